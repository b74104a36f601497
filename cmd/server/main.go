package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/opobank/backend/internal/api"
	"github.com/opobank/backend/internal/bankfile"
	"github.com/opobank/backend/internal/event"
	"github.com/opobank/backend/internal/infrastructure/config"
	"github.com/opobank/backend/internal/service"
	"github.com/opobank/backend/internal/store"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// ── Dependencies ────────────────────────────────────────────────
	repo, err := bankfile.LoadFile(cfg.BankPath)
	if err != nil {
		logger.Error("failed to load question bank", "path", cfg.BankPath, "error", err)
		os.Exit(1)
	}
	stats := repo.Stats()
	logger.Info("question bank loaded",
		"path", cfg.BankPath,
		"categories", stats.Categories,
		"themes", stats.Themes,
		"questions", stats.Questions,
	)

	db, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var registry store.Registry = store.NewMemoryRegistry(cfg.SessionTTL)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		redisRegistry := store.NewRedisRegistry(client, repo, cfg.SessionTTL)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisRegistry.Ping(ctx)
		cancel()
		if err != nil {
			logger.Error("failed to connect to redis", "address", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		registry = redisRegistry
		logger.Info("live sessions stored in redis", "address", cfg.RedisAddr, "ttl", cfg.SessionTTL)
	}

	publisher, err := event.NewAMQPPublisher(cfg.RabbitMQURI, cfg.RabbitMQExchange, logger)
	if err != nil {
		logger.Error("failed to set up event publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	sessions := service.NewSessionService(repo, registry, db, publisher, logger)
	handler := api.NewHandler(sessions, logger)

	// ── Routes ──────────────────────────────────────────────────────
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "ok"}`))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	api.RegisterRoutes(mux, handler)

	// ── Middleware chain: Logging → CORS → mux ──────────────────────
	logged := api.Logging(logger)(api.CORS(mux))

	// ── Server ──────────────────────────────────────────────────────
	server := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           logged,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		logger.Info("shutting down server")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server forced to shutdown", "error", err)
		}
	}()

	logger.Info("starting server", "address", cfg.ServerAddress)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed to start", "error", err)
		os.Exit(1)
	}
}
