package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sandai/arena/src/domain/game"
)

const namespace = "arena"

// Game records game loop and session outcomes.
type Game struct {
	loops    prometheus.Gauge
	points   *prometheus.CounterVec
	finished *prometheus.CounterVec
}

func NewGame(reg prometheus.Registerer) *Game {
	g := &Game{
		loops: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "game",
			Name:      "running_loops",
			Help:      "Number of game loops currently ticking.",
		}),
		points: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "game",
			Name:      "points_total",
			Help:      "Points scored, by session kind.",
		}, []string{"kind"}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "game",
			Name:      "sessions_finished_total",
			Help:      "Sessions that reached a terminal status.",
		}, []string{"kind", "status"}),
	}
	reg.MustRegister(g.loops, g.points, g.finished)
	return g
}

func (g *Game) LoopStarted() { g.loops.Inc() }
func (g *Game) LoopStopped() { g.loops.Dec() }

func (g *Game) PointScored(kind game.Kind) {
	g.points.WithLabelValues(string(kind)).Inc()
}

func (g *Game) SessionFinished(kind game.Kind, status game.Status) {
	g.finished.WithLabelValues(string(kind), string(status)).Inc()
}

// Tournament records bracket progress.
type Tournament struct {
	rounds   prometheus.Counter
	outcomes *prometheus.CounterVec
	barriers *prometheus.CounterVec
}

func NewTournament(reg prometheus.Registerer) *Tournament {
	t := &Tournament{
		rounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tournament",
			Name:      "rounds_advanced_total",
			Help:      "Bracket rounds advanced.",
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tournament",
			Name:      "ended_total",
			Help:      "Tournaments that ended, by outcome.",
		}, []string{"outcome"}),
		barriers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tournament",
			Name:      "readiness_checks_total",
			Help:      "Readiness checks, by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(t.rounds, t.outcomes, t.barriers)
	return t
}

func (t *Tournament) RoundAdvanced()       { t.rounds.Inc() }
func (t *Tournament) TournamentFinished()  { t.outcomes.WithLabelValues("finished").Inc() }
func (t *Tournament) TournamentCancelled() { t.outcomes.WithLabelValues("cancelled").Inc() }

func (t *Tournament) BarrierChecked(ok bool) {
	result := "timeout"
	if ok {
		result = "ready"
	}
	t.barriers.WithLabelValues(result).Inc()
}
