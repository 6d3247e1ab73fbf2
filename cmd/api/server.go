package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sandai/arena/src/app/players"
	"github.com/sandai/arena/src/app/sessions"
	"github.com/sandai/arena/src/app/tournaments"
	"github.com/sandai/arena/src/domain/game"
	"github.com/sandai/arena/src/domain/shared"
	"github.com/sandai/arena/src/infra/realtime"
)

type ServerConfig struct {
	Logger       *zap.Logger
	Registry     *sessions.Registry
	Protocol     *sessions.Protocol
	Tournaments  *tournaments.Engine
	Players      *players.Service
	Hub          *realtime.Hub
	Auth         *Authenticator
	Registerer   prometheus.Registerer
	Gatherer     prometheus.Gatherer
	RoundsNeeded int
}

// Server wires HTTP and websocket endpoints to application services.
type Server struct {
	cfg            ServerConfig
	router         *mux.Router
	upgrader       websocket.Upgrader
	httpMetrics    *prometheus.HistogramVec
	requestCounter *prometheus.CounterVec
}

func NewServer(cfg ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.DefaultRegisterer
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	srv := &Server{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	srv.initMetrics()
	srv.buildRouter()
	return srv
}

// Handler returns the router wrapped with panic recovery and CORS.
func (s *Server) Handler() http.Handler {
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(zap.NewStdLog(s.cfg.Logger)),
		handlers.PrintRecoveryStack(true),
	)
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type", "X-Request-Id"}),
	)
	return recovery(cors(s.router))
}

func (s *Server) initMetrics() {
	s.httpMetrics = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "arena",
		Subsystem: "http",
		Name:      "request_latency_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "code"})
	s.requestCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arena",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests by route",
	}, []string{"route", "method", "code"})
	s.cfg.Registerer.MustRegister(s.httpMetrics, s.requestCounter)
}

func (s *Server) buildRouter() {
	r := mux.NewRouter()
	r.Use(s.correlationMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.metricsMiddleware)

	api := r.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/players/ranking", s.handleRanking).Methods(http.MethodGet)

	authed := api.NewRoute().Subrouter()
	authed.Use(s.authMiddleware)
	authed.HandleFunc("/sessions", s.handleCreateSession).Methods(http.MethodPost)
	authed.HandleFunc("/sessions/{id}", s.handleGetSession).Methods(http.MethodGet)
	authed.HandleFunc("/tournaments", s.handleCreateTournament).Methods(http.MethodPost)
	authed.HandleFunc("/tournaments", s.handleListTournaments).Methods(http.MethodGet)
	authed.HandleFunc("/tournaments/{id}", s.handleGetTournament).Methods(http.MethodGet)
	authed.HandleFunc("/tournaments/{id}/join", s.handleJoinTournament).Methods(http.MethodPost)
	authed.HandleFunc("/tournaments/{id}/withdraw", s.handleWithdrawTournament).Methods(http.MethodPost)
	authed.HandleFunc("/tournaments/{id}/start", s.handleStartTournament).Methods(http.MethodPost)

	ws := r.PathPrefix("/ws").Subrouter()
	ws.Use(s.authMiddleware)
	ws.HandleFunc("/pong/remote/{id}", s.handlePongSocket(game.KindRemote)).Methods(http.MethodGet)
	ws.HandleFunc("/pong/local/{id}", s.handlePongSocket(game.KindLocal)).Methods(http.MethodGet)
	ws.HandleFunc("/notifications", s.handleNotificationSocket).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	s.router = r
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// errValidation marks request errors that map to 400.
var errValidation = errors.New("invalid request")

// writeServiceError maps the shared error taxonomy onto HTTP status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, shared.ErrConflict), errors.Is(err, shared.ErrInvalidState):
		s.writeError(w, http.StatusConflict, err)
	case errors.Is(err, errValidation):
		s.writeError(w, http.StatusBadRequest, err)
	default:
		s.cfg.Logger.Error("request failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

// loggingMiddleware and metricsMiddleware capture the status through
// httpsnoop so hijacking for websockets keeps working.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		s.cfg.Logger.Info("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", m.Code),
			zap.Duration("duration", m.Duration),
			zap.String("request_id", correlationIDFromContext(r.Context())),
		)
	})
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		routeName := "unknown"
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				routeName = tmpl
			}
		}
		labels := prometheus.Labels{"route": routeName, "method": r.Method, "code": strconv.Itoa(m.Code)}
		s.httpMetrics.With(labels).Observe(m.Duration.Seconds())
		s.requestCounter.With(labels).Inc()
	})
}
