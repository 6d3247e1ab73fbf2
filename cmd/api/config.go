package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sandai/arena/src/app/sessions"
	"github.com/sandai/arena/src/app/tournaments"
)

type Config struct {
	HTTPAddress string           `yaml:"http_addr"`
	RedisAddr   string           `yaml:"redis_addr"`
	RedisDB     int              `yaml:"redis_db"`
	DatabaseURL string           `yaml:"database_url"`
	JWTSecret   string           `yaml:"jwt_secret"`
	Log         LogConfig        `yaml:"log"`
	Game        GameConfig       `yaml:"game"`
	Tournament  TournamentConfig `yaml:"tournament"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type GameConfig struct {
	TickRate         int           `yaml:"tick_rate"`
	ServeDelay       time.Duration `yaml:"serve_delay"`
	BroadcastTimeout time.Duration `yaml:"broadcast_timeout"`
	RoundsNeeded     int           `yaml:"rounds_needed"`
}

type TournamentConfig struct {
	RoundsNeeded      int           `yaml:"rounds_needed"`
	MinParticipants   int           `yaml:"min_participants"`
	Countdown         time.Duration `yaml:"countdown"`
	BarrierTimeout    time.Duration `yaml:"barrier_timeout"`
	BarrierInterval   time.Duration `yaml:"barrier_interval"`
	SchedulerInterval time.Duration `yaml:"scheduler_interval"`
}

func defaultConfig() Config {
	return Config{
		HTTPAddress: ":8080",
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 14,
		},
		Game: GameConfig{
			TickRate:         60,
			ServeDelay:       sessions.DefaultLoopConfig.ServeDelay,
			BroadcastTimeout: sessions.DefaultLoopConfig.BroadcastTimeout,
			RoundsNeeded:     5,
		},
		Tournament: TournamentConfig{
			RoundsNeeded:      tournaments.DefaultConfig.RoundsNeeded,
			MinParticipants:   tournaments.DefaultConfig.MinParticipants,
			Countdown:         tournaments.DefaultConfig.Countdown,
			BarrierTimeout:    3 * time.Second,
			BarrierInterval:   100 * time.Millisecond,
			SchedulerInterval: 10 * time.Second,
		},
	}
}

// loadConfig layers defaults, the optional YAML file named by ARENA_CONFIG,
// then environment overrides.
func loadConfig() (Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("ARENA_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.HTTPAddress = getEnv("ARENA_HTTP_ADDR", cfg.HTTPAddress)
	cfg.RedisAddr = getEnv("ARENA_REDIS_ADDR", cfg.RedisAddr)
	cfg.DatabaseURL = getEnv("ARENA_DATABASE_URL", cfg.DatabaseURL)
	cfg.JWTSecret = getEnv("ARENA_JWT_SECRET", cfg.JWTSecret)
	cfg.Log.Level = getEnv("ARENA_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = getEnv("ARENA_LOG_FILE", cfg.Log.File)
	if db := os.Getenv("ARENA_REDIS_DB"); db != "" {
		n, err := strconv.Atoi(db)
		if err != nil {
			return Config{}, fmt.Errorf("ARENA_REDIS_DB: %w", err)
		}
		cfg.RedisDB = n
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required (ARENA_JWT_SECRET)")
	}
	if c.Game.TickRate <= 0 {
		return fmt.Errorf("game.tick_rate must be positive")
	}
	if c.Game.RoundsNeeded <= 0 || c.Tournament.RoundsNeeded <= 0 {
		return fmt.Errorf("rounds_needed must be positive")
	}
	return nil
}

func (c GameConfig) loop() sessions.LoopConfig {
	return sessions.LoopConfig{
		TickInterval:     time.Second / time.Duration(c.TickRate),
		ServeDelay:       c.ServeDelay,
		BroadcastTimeout: c.BroadcastTimeout,
	}
}

func (c TournamentConfig) engine() tournaments.Config {
	return tournaments.Config{
		RoundsNeeded:    c.RoundsNeeded,
		MinParticipants: c.MinParticipants,
		Countdown:       c.Countdown,
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
