// Command minise-ingest accepts documents over HTTP and publishes them to
// the ingest topic for minise-build --source kafka.
//
// Usage:
//
//	minise-ingest [--config configs/development.yaml] [--port 8081]
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/minise/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/postgres"
)

func main() {
	var (
		configPath string
		port       int
	)
	cmd := &cobra.Command{
		Use:          "minise-ingest",
		Short:        "Accept documents for indexing",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to config file")
	cmd.Flags().IntVar(&port, "port", 8081, "HTTP port")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	slog.Info("starting ingestion service", "port", cfg.Server.Port)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer shutdown(context.Background())
	}

	checker := health.NewChecker()
	var store publisher.DocumentStore
	if cfg.Postgres.Enabled {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		store = publisher.NewPostgresStore(db)
		checker.Register("postgres", health.Required(db.Ping))
		slog.Info("connected to postgres")
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest)
	defer producer.Close()
	slog.Info("kafka producer initialized", "topic", cfg.Kafka.Topics.DocumentIngest)

	mux := http.NewServeMux()
	handler.New(publisher.New(store, producer, m)).Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	limiter := middleware.NewRateLimiter(cfg.RateLimit, m)
	go limiter.Sweep(ctx, time.Minute)
	mws := []func(http.Handler) http.Handler{middleware.RequestID}
	if m != nil {
		mws = append(mws, middleware.Metrics(m, handler.Routes...))
	}
	if cfg.RateLimit.Enabled {
		mws = append(mws, limiter.Middleware)
	}
	mws = append(mws, middleware.Timeout(cfg.Server.RequestTimeout))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Chain(mux, mws...),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("ingestion service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	slog.Info("ingestion service stopped")
	return nil
}
