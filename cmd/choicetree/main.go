package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/alexanderramin/choicetree/internal/cli"
	"github.com/alexanderramin/choicetree/internal/config"
	"github.com/alexanderramin/choicetree/internal/db"
	"github.com/alexanderramin/choicetree/internal/service"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// configPath picks --config out of the arguments before cobra runs, since
// the command tree needs services built from the loaded config.
func configPath(args []string) string {
	fs := pflag.NewFlagSet("choicetree", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.Usage = func() {}
	path := fs.String("config", "", "")
	_ = fs.Parse(args)
	return *path
}

func run() error {
	cfg, err := config.Load(configPath(os.Args[1:]))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := cfg.NewLogger(os.Stderr)

	database, err := db.OpenDB(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	// Wire unit of work and the persistence collaborator
	uow := db.NewSQLiteUnitOfWork(database)
	store := service.NewSQLPersistence(uow)
	guard := service.NewGuard()

	registry := prometheus.NewRegistry()
	observer := service.NewMultiUseCaseObserver(
		service.NewSlogUseCaseObserver(logger),
		service.NewPrometheusObserver(registry),
	)

	if cfg.Metrics.Addr != "" {
		stop := serveMetrics(cfg.Metrics.Addr, cfg.Metrics.Path, registry, logger)
		defer stop()
	}

	app := &cli.App{
		Trees:     service.NewTreeService(uow, store, observer),
		Rules:     service.NewRuleService(store, guard, observer),
		Items:     service.NewItemService(store, guard, observer),
		Sort:      service.NewSortService(store, guard, observer),
		Import:    service.NewImportService(uow, observer),
		AssumeYes: cfg.AssumeYes,
	}

	// Prompts need a terminal on both ends.
	app.IsInteractive = func() bool {
		in := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
		out := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
		return in && out
	}

	rootCmd := cli.NewRootCmd(app)
	return rootCmd.ExecuteContext(context.Background())
}

// serveMetrics exposes the registry over HTTP until the returned stop
// function is called.
func serveMetrics(addr, path string, registry *prometheus.Registry, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "addr", addr, "error", err)
		}
	}()
	logger.Debug("metrics server listening", "addr", addr, "path", path)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
