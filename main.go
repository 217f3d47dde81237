package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	// The production driver; self-registers with database/sql.
	_ "github.com/lib/pq"

	"usersock/db"
	"usersock/handler"
	"usersock/metrics"
	"usersock/repo"
	"usersock/server"
)

type config struct {
	listenAddr  string
	metricsAddr string

	driver string
	dsn    string

	maxOpenConns int
	maxIdleConns int
	queryTimeout time.Duration

	readTimeout  time.Duration
	writeTimeout time.Duration
	acceptRate   float64
	acceptBurst  int
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(),
	}))
	slog.SetDefault(logger)

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("config", slog.Any("error", err))
		os.Exit(1)
	}

	recorder := metrics.NewRecorder()

	database, err := db.Open(db.Config{
		DSN:            cfg.dsn,
		DriverName:     cfg.driver,
		MaxOpenConns:   cfg.maxOpenConns,
		MaxIdleConns:   cfg.maxIdleConns,
		DefaultTimeout: cfg.queryTimeout,
		Hooks: []db.Hook{
			db.NewLogHook(db.LogHookConfig{
				Logger:             logger,
				SlowQueryThreshold: 200 * time.Millisecond,
			}),
			db.NewMetricsHook(recorder),
		},
	})
	if err != nil {
		logger.Error("db open", slog.Any("error", err))
		os.Exit(1)
	}
	defer database.Close()
	logger.Info("database connected", slog.String("driver", cfg.driver))

	bootCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := repo.EnsureSchema(bootCtx, database, cfg.driver); err != nil {
		logger.Error("schema bootstrap", slog.Any("error", err))
		os.Exit(1)
	}

	store := repo.NewUserStore(database)
	dispatcher := handler.New(store, logger, recorder)

	srv := server.New(server.Config{
		Addr:         cfg.listenAddr,
		ReadTimeout:  cfg.readTimeout,
		WriteTimeout: cfg.writeTimeout,
		AcceptRate:   cfg.acceptRate,
		AcceptBurst:  cfg.acceptBurst,
	}, dispatcher, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.metricsAddr != "" {
		go metrics.Serve(ctx, cfg.metricsAddr, logger)
	}

	logger.Info("server listening", slog.String("addr", cfg.listenAddr))
	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error("serve", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func loadConfig() (config, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return config{}, errors.New("DATABASE_URL must be set in environment")
	}
	return config{
		listenAddr:   envOr("LISTEN_ADDR", "0.0.0.0:8080"),
		metricsAddr:  os.Getenv("METRICS_ADDR"),
		driver:       envOr("DB_DRIVER", "postgres"),
		dsn:          dsn,
		maxOpenConns: envInt("DB_MAX_OPEN_CONNS", 25),
		maxIdleConns: envInt("DB_MAX_IDLE_CONNS", 10),
		queryTimeout: time.Duration(envInt("QUERY_TIMEOUT_MS", 10_000)) * time.Millisecond,
		readTimeout:  time.Duration(envInt("READ_TIMEOUT_MS", 5_000)) * time.Millisecond,
		writeTimeout: time.Duration(envInt("WRITE_TIMEOUT_MS", 5_000)) * time.Millisecond,
		acceptRate:   envFloat("ACCEPT_RATE", 0),
		acceptBurst:  envInt("ACCEPT_BURST", 0),
	}, nil
}

func logLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(envOr("LOG_LEVEL", "info"))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
