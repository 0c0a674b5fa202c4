// Command minise-build builds an index file from a list of documents, the
// documents table or the ingest topic.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/loader"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/tracing"
)

func main() {
	var configPath string
	cfg := config.Default()

	cmd := &cobra.Command{
		Use:   "minise-build",
		Short: "Build a minise index file",
		Long: "Build a minise index file.\n\nMethods: seq (quick search), inv (inverted file), " +
			"1gram, 2gram, sa (suffix array), sa8 (UTF-8 suffix array).\n" +
			"Compression (inverted methods only): none, vb (variable byte), rc (Rice code).",
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, configPath, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "path to config file")
	f.StringVarP(&cfg.Index.Method, "method", "m", cfg.Index.Method, "index method: seq|inv|1gram|2gram|sa|sa8")
	f.StringVarP(&cfg.Index.List, "list", "l", cfg.Index.List, "file listing the documents, one path or glob per line")
	f.StringVarP(&cfg.Index.Path, "index", "i", cfg.Index.Path, "index file to write")
	f.StringVarP(&cfg.Index.Compress, "compress", "c", cfg.Index.Compress, "posting compression: none|vb|rc")
	f.StringVar(&cfg.Index.Source, "source", cfg.Index.Source, "document source: list|postgres|kafka")
	f.IntVar(&cfg.Index.ReadConcurrency, "concurrency", cfg.Index.ReadConcurrency, "parallel file reads for the list source")
	f.IntVar(&cfg.Index.MaxDocs, "max-docs", cfg.Index.MaxDocs, "kafka source: stop after this many documents (0 = no limit)")
	f.DurationVar(&cfg.Index.IdleTimeout, "idle", cfg.Index.IdleTimeout, "kafka source: stop after the topic is quiet this long")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig layers the config file under the flags the user set
// explicitly.
func loadConfig(cmd *cobra.Command, path string, cfg *config.Config) error {
	if path == "" {
		logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
		return nil
	}
	fromFile, err := config.Load(path)
	if err != nil {
		return err
	}
	flags := *cfg
	*cfg = *fromFile
	set := map[string]func(){
		"method":      func() { cfg.Index.Method = flags.Index.Method },
		"list":        func() { cfg.Index.List = flags.Index.List },
		"index":       func() { cfg.Index.Path = flags.Index.Path },
		"compress":    func() { cfg.Index.Compress = flags.Index.Compress },
		"source":      func() { cfg.Index.Source = flags.Index.Source },
		"concurrency": func() { cfg.Index.ReadConcurrency = flags.Index.ReadConcurrency },
		"max-docs":    func() { cfg.Index.MaxDocs = flags.Index.MaxDocs },
		"idle":        func() { cfg.Index.IdleTimeout = flags.Index.IdleTimeout },
	}
	for name, apply := range set {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	return nil
}

func run(ctx context.Context, cfg *config.Config, out io.Writer) error {
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer shutdown(context.Background())
	}

	engine, err := indexer.NewEngine(cfg.Index.Method, cfg.Index.Compress)
	if err != nil {
		return err
	}
	engine.SetMetrics(m)

	ctx, span := tracing.StartSpan(ctx, "minise-build", "")
	defer func() {
		span.End()
		span.Log(slog.Default())
	}()
	start := time.Now()

	fmt.Fprintf(out, "method: %s\n", engine.IndexName())
	progress := func(n int) { fmt.Fprintf(out, "%d\r", n) }

	_, addSpan := tracing.StartChildSpan(ctx, "add")
	docs, err := addDocuments(ctx, cfg, engine, out, progress)
	addSpan.SetAttr("docs", docs)
	addSpan.End()
	if err != nil {
		return err
	}

	fmt.Fprint(out, "build...")
	_, buildSpan := tracing.StartChildSpan(ctx, "build")
	err = engine.Build()
	buildSpan.End()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\r termN: %d\n", engine.TermCount())

	fmt.Fprint(out, " save...")
	_, saveSpan := tracing.StartChildSpan(ctx, "save")
	err = engine.Save(cfg.Index.Path)
	saveSpan.End()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\r  time: %.3f sec.\n", time.Since(start).Seconds())
	fmt.Fprintf(out, "  size: %d bytes.\n", engine.IndexSize())
	fmt.Fprintln(out, "build finish.")

	if cfg.Kafka.Enabled {
		announce(ctx, cfg, engine)
	}
	return nil
}

func addDocuments(ctx context.Context, cfg *config.Config, engine *indexer.Engine, out io.Writer, progress loader.ProgressFunc) (int, error) {
	switch cfg.Index.Source {
	case "list":
		if cfg.Index.List == "" {
			return 0, fmt.Errorf("--list is required for the list source")
		}
		paths, err := loader.ReadList(cfg.Index.List)
		if err != nil {
			return 0, err
		}
		fmt.Fprintf(out, "  docN: %d\n", len(paths))
		fmt.Fprintf(out, " index: %s\n", cfg.Index.Path)
		return loader.Files(ctx, paths, cfg.Index.ReadConcurrency, engine.AddDocument, progress)

	case "postgres":
		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return 0, err
		}
		defer client.Close()
		fmt.Fprintf(out, " index: %s\n", cfg.Index.Path)
		n, err := loader.Rows(ctx, client.DB, engine.AddDocument, progress)
		fmt.Fprintf(out, "  docN: %d\n", n)
		return n, err

	case "kafka":
		var db *postgres.Client
		if cfg.Postgres.Enabled {
			var err error
			if db, err = postgres.New(ctx, cfg.Postgres); err != nil {
				return 0, err
			}
			defer db.Close()
		}
		opts := consumer.Options{MaxDocs: cfg.Index.MaxDocs, Idle: cfg.Index.IdleTimeout, Progress: progress}
		if db != nil {
			opts.DB = db.DB
		}
		ic := consumer.New(engine.AddDocument, opts)
		kc := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest, kafka.ConsumerOptions{FromStart: true}, ic.Handle)
		defer kc.Close()
		fmt.Fprintf(out, " index: %s\n", cfg.Index.Path)
		n, err := ic.Drain(ctx, kc)
		fmt.Fprintf(out, "  docN: %d\n", n)
		return n, err

	default:
		return 0, fmt.Errorf("unknown source %q (want list, postgres or kafka)", cfg.Index.Source)
	}
}

// announce publishes an index-complete event so that search services
// reload. Failure only logs; the index file is already in place.
func announce(ctx context.Context, cfg *config.Config, engine *indexer.Engine) {
	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
	defer producer.Close()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	err := producer.Publish(ctx, kafka.Event{
		Key: cfg.Index.Path,
		Value: kafka.IndexCompleteEvent{
			Path:      cfg.Index.Path,
			Method:    cfg.Index.Method,
			Name:      engine.IndexName(),
			Documents: engine.DocCount(),
			SizeBytes: engine.IndexSize(),
			BuiltAt:   time.Now().UTC(),
		},
	})
	if err != nil {
		slog.Warn("index-complete event not published", "error", err)
	}
}
