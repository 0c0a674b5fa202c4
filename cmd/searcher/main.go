// Command minise-search queries an index file interactively, or serves it
// over HTTP with the serve subcommand.
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

	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/searcher/reload"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/searcher/shell"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/minise/pkg/redis"
)

func main() {
	var configPath string
	cfg := config.Default()

	root := &cobra.Command{
		Use:          "minise-search",
		Short:        "Search a minise index",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, configPath, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runShell(ctx, cfg, cmd)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "path to config file")
	pf.StringVarP(&cfg.Index.Path, "index", "i", cfg.Index.Path, "index file")
	pf.IntVarP(&cfg.Search.Num, "num", "n", cfg.Search.Num, "results shown per query")
	pf.IntVarP(&cfg.Search.SnippetNum, "snippetnum", "s", cfg.Search.SnippetNum, "snippets shown per result")
	pf.IntVarP(&cfg.Search.SnippetLen, "snippetlen", "l", cfg.Search.SnippetLen, "snippet length in bytes")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the index over HTTP, reloading it when it changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}
	serve.Flags().IntVar(&cfg.Server.Port, "port", cfg.Server.Port, "HTTP port")
	serve.Flags().BoolVar(&cfg.Index.Watch, "watch", cfg.Index.Watch, "reload when the index file changes")
	root.AddCommand(serve)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command, path string, cfg *config.Config) error {
	if path != "" {
		flags := *cfg
		fromFile, err := config.Load(path)
		if err != nil {
			return err
		}
		*cfg = *fromFile
		overrides := map[string]func(){
			"index":      func() { cfg.Index.Path = flags.Index.Path },
			"num":        func() { cfg.Search.Num = flags.Search.Num },
			"snippetnum": func() { cfg.Search.SnippetNum = flags.Search.SnippetNum },
			"snippetlen": func() { cfg.Search.SnippetLen = flags.Search.SnippetLen },
			"port":       func() { cfg.Server.Port = flags.Server.Port },
			"watch":      func() { cfg.Index.Watch = flags.Index.Watch },
		}
		for name, apply := range overrides {
			if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
				apply()
			}
		}
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	return nil
}

func runShell(ctx context.Context, cfg *config.Config, cmd *cobra.Command) error {
	engine, err := indexer.Open(cfg.Index.Path)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	shell.PrintHeader(out, shell.Info{
		Method: engine.IndexName(),
		Docs:   engine.DocCount(),
		Path:   cfg.Index.Path,
		Terms:  engine.TermCount(),
		Size:   engine.IndexSize(),
	})
	opts := executor.Options{Num: cfg.Search.Num, SnippetNum: cfg.Search.SnippetNum, SnippetLen: cfg.Search.SnippetLen}
	return shell.New(executor.NewStatic(engine), opts).Run(ctx, cmd.InOrStdin(), out)
}

func runServer(ctx context.Context, cfg *config.Config) error {
	slog.Info("starting search service", "port", cfg.Server.Port, "index", cfg.Index.Path)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer shutdown(context.Background())
	}

	holder := reload.New(cfg.Index.Path, m)
	if err := holder.Load(ctx, "startup"); err != nil {
		slog.Warn("no index loaded yet, serving 503 until one appears", "error", err)
	}

	var (
		queryCache  *cache.QueryCache
		redisClient *pkgredis.Client
	)
	if cfg.Redis.Enabled {
		var err error
		redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			holder.OnSwap(func(ctx context.Context, _ *indexer.Engine) {
				if err := queryCache.Invalidate(ctx); err != nil {
					slog.Warn("cache not invalidated after reload", "error", err)
				}
			})
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	if cfg.Index.Watch {
		go func() {
			if err := holder.Watch(ctx); err != nil {
				slog.Error("index watcher stopped", "error", err)
			}
		}()
	}
	if cfg.Kafka.Enabled {
		host, _ := os.Hostname()
		events := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete,
			kafka.ConsumerOptions{GroupID: cfg.Kafka.ConsumerGroup + "-search-" + host},
			holder.HandleEvent)
		defer events.Close()
		go func() {
			if err := events.Start(ctx); err != nil {
				slog.Error("index event consumer stopped", "error", err)
			}
		}()
	}

	checker := health.NewChecker()
	checker.Register("index", health.Required(func(context.Context) error {
		return holder.Ready()
	}))
	if redisClient != nil {
		checker.Register("redis", health.Optional(redisClient.Ping))
	}

	exec := executor.New(holder.Index)
	exec.SetMetrics(m)
	h := handler.New(exec, holder, queryCache, cfg.Search)

	mux := http.NewServeMux()
	h.Register(mux)
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

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	slog.Info("search service stopped")
	return nil
}
