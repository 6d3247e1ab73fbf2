package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sandai/arena/src/app/players"
	"github.com/sandai/arena/src/app/sessions"
	"github.com/sandai/arena/src/app/tournaments"
	"github.com/sandai/arena/src/domain/game"
	"github.com/sandai/arena/src/domain/kv"
	"github.com/sandai/arena/src/domain/player"
	"github.com/sandai/arena/src/domain/tournament"
	gameinfra "github.com/sandai/arena/src/infra/game"
	kvinfra "github.com/sandai/arena/src/infra/kv"
	"github.com/sandai/arena/src/infra/metrics"
	playerinfra "github.com/sandai/arena/src/infra/player"
	"github.com/sandai/arena/src/infra/postgres"
	"github.com/sandai/arena/src/infra/realtime"
	tournamentinfra "github.com/sandai/arena/src/infra/tournament"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	baseCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	store, closeStore, err := openStore(baseCtx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open state store", zap.Error(err))
	}
	defer closeStore()

	repos, closeRepos, err := openRepositories(baseCtx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open repositories", zap.Error(err))
	}
	defer closeRepos()

	hub := realtime.NewHub(logger)
	playerService := players.NewService(repos.players, repos.sessions, logger)

	registry := sessions.NewRegistry(store, repos.sessions, playerService, hub, logger)
	registry.Loop = cfg.Game.loop()
	registry.Metrics = metrics.NewGame(prometheus.DefaultRegisterer)
	protocol := sessions.NewProtocol(registry, logger)

	barrier := tournaments.NewBarrier(store, hub, logger)
	barrier.Timeout = cfg.Tournament.BarrierTimeout
	barrier.Interval = cfg.Tournament.BarrierInterval

	engine := tournaments.NewEngine(repos.tournaments, repos.sessions, registry, barrier, hub, playerService, logger)
	engine.Config = cfg.Tournament.engine()
	engine.Metrics = metrics.NewTournament(prometheus.DefaultRegisterer)
	registry.OnCompleted(engine.OnSessionCompleted)

	scheduler := tournaments.NewScheduler(engine, cfg.Tournament.SchedulerInterval, logger)
	go scheduler.Run(baseCtx)

	server := NewServer(ServerConfig{
		Logger:       logger,
		Registry:     registry,
		Protocol:     protocol,
		Tournaments:  engine,
		Players:      playerService,
		Hub:          hub,
		Auth:         NewAuthenticator(cfg.JWTSecret),
		RoundsNeeded: cfg.Game.RoundsNeeded,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return baseCtx },
	}

	go func() {
		logger.Info("arena API listening", zap.String("addr", cfg.HTTPAddress))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-baseCtx.Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	registry.Shutdown()
	engine.Wait()
	logger.Info("arena API stopped")
}

func openStore(ctx context.Context, cfg Config, logger *zap.Logger) (kv.Store, func(), error) {
	if cfg.RedisAddr == "" {
		logger.Info("using in-memory state store")
		return kvinfra.NewMemoryStore(), func() {}, nil
	}
	store, err := kvinfra.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("using redis state store", zap.String("addr", cfg.RedisAddr))
	return store, func() { _ = store.Close() }, nil
}

type repositories struct {
	sessions    game.Repository
	tournaments tournament.Repository
	players     player.Repository
}

func openRepositories(ctx context.Context, cfg Config, logger *zap.Logger) (repositories, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Info("using in-memory repositories")
		return repositories{
			sessions:    gameinfra.NewMemoryRepository(),
			tournaments: tournamentinfra.NewMemoryRepository(),
			players:     playerinfra.NewMemoryRepository(),
		}, func() {}, nil
	}
	pool, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return repositories{}, nil, err
	}
	logger.Info("using postgres repositories")
	return repositories{
		sessions:    postgres.NewSessionRepository(pool),
		tournaments: postgres.NewTournamentRepository(pool),
		players:     postgres.NewPlayerRepository(pool),
	}, pool.Close, nil
}
