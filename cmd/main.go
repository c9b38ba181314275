package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/tinoosan/paytrace/internal/auxtag"
	"github.com/tinoosan/paytrace/internal/classify"
	"github.com/tinoosan/paytrace/internal/config"
	httpapi "github.com/tinoosan/paytrace/internal/httpapi/v1"
	"github.com/tinoosan/paytrace/internal/service/tracker"
	"github.com/tinoosan/paytrace/internal/storage/memory"
	pgstore "github.com/tinoosan/paytrace/internal/storage/postgres"
	sqlstore "github.com/tinoosan/paytrace/internal/storage/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configPath := flag.String("config", "", "path to YAML config file (optional)")
	flag.Parse()

	// Logger (slog to stdout). Level via LOG_LEVEL; format via LOG_FORMAT (json|text, default json)
	logger := buildLoggerFromEnv()
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	var (
		repo    tracker.Repo
		writer  tracker.Writer
		records httpapi.RecordReader
		closeFn func()
	)
	switch {
	case cfg.Storage.PostgresDSN != "":
		pg, err := pgstore.Open(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			logger.Error("failed to connect to postgres", "err", err)
			os.Exit(1)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Error("failed to ensure postgres schema", "err", err)
			pg.Close()
			os.Exit(1)
		}
		repo, writer, records = pg, pg, pg
		closeFn = pg.Close
		logger.Info("storage backend: postgres")
	case cfg.Storage.SQLitePath != "":
		db, err := sqlstore.Open(cfg.Storage.SQLitePath)
		if err != nil {
			logger.Error("failed to open sqlite", "path", cfg.Storage.SQLitePath, "err", err)
			os.Exit(1)
		}
		repo, writer, records = db, db, db
		closeFn = func() { _ = db.Close() }
		logger.Info("storage backend: sqlite", "path", cfg.Storage.SQLitePath)
	default:
		store := memory.New()
		repo, writer, records = store, store, store
		logger.Info("storage backend: memory")
	}

	var classifier classify.Classifier
	if cfg.Classifier.APIKey != "" {
		llm, err := classify.NewLLM(classify.LLMConfig{
			Provider: cfg.Classifier.Provider,
			APIKey:   cfg.Classifier.APIKey,
			BaseURL:  cfg.Classifier.BaseURL,
			Model:    cfg.Classifier.Model,
			Timeout:  cfg.Classifier.Timeout.Std(),
		})
		if err != nil {
			logger.Error("failed to build classifier", "err", err)
			os.Exit(1)
		}
		classifier = llm
		logger.Info("classifier: llm", "provider", cfg.Classifier.Provider)
	} else {
		classifier = classify.Keyword{}
		logger.Info("classifier: keyword rules, no LLM provider configured")
	}

	parser := auxtag.NewParser(cfg.Parser.MaxValueLen)
	for raw, canonical := range cfg.Parser.Aliases {
		if err := parser.AddAlias(raw, canonical); err != nil {
			logger.Error("invalid tag alias", "alias", raw, "err", err)
			os.Exit(1)
		}
	}

	srvMux := httpapi.New(repo, writer, records, classifier, parser, httpapi.Options{
		VoucherPrefix: cfg.Parser.VoucherPrefix,
		Workers:       cfg.Workers,
	}, logger).Handler()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srvMux,
		ReadTimeout:       cfg.Server.ReadTimeout.Std(),
		ReadHeaderTimeout: cfg.Server.ReadTimeout.Std(),
		WriteTimeout:      cfg.Server.WriteTimeout.Std(),
		IdleTimeout:       cfg.Server.IdleTimeout.Std(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("payment tracker listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
	case err := <-errCh:
		logger.Error("server error", "err", err)
	}
	if closeFn != nil {
		closeFn()
	}
}

// parseLogLevel maps env values to slog.Leveler
func parseLogLevel(s string) slog.Leveler {
	switch s {
	case "DEBUG", "debug":
		return slog.LevelDebug
	case "WARN", "WARNING", "warn", "warning":
		return slog.LevelWarn
	case "ERROR", "ERR", "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildLoggerFromEnv() *slog.Logger {
	level := parseLogLevel(os.Getenv("LOG_LEVEL"))
	format := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT")))
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	// default to JSON
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
