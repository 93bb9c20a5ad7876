// Package main provides the CLI entry point for the admin console.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"

	"github.com/erp/console/internal/infrastructure/auth"
	"github.com/erp/console/internal/infrastructure/client"
	"github.com/erp/console/internal/infrastructure/config"
	"github.com/erp/console/internal/infrastructure/courier"
	"github.com/erp/console/internal/infrastructure/logger"
	"github.com/erp/console/internal/infrastructure/storage"
	"github.com/erp/console/internal/interfaces/cli"
)

// Version information (populated at build time)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// CLI flags
var (
	configPath   string
	outputFormat string
	verbose      bool
	showMetrics  bool
	showVersion  bool
)

func init() {
	flag.StringVar(&configPath, "config", "", "Path to the TOML configuration file")
	flag.StringVar(&configPath, "c", "", "Path to the TOML configuration file (shorthand)")
	flag.StringVar(&outputFormat, "output", cli.FormatTable, "Output format: table, json or yaml")
	flag.StringVar(&outputFormat, "o", cli.FormatTable, "Output format (shorthand)")
	flag.BoolVar(&verbose, "verbose", false, "Enable debug logging")
	flag.BoolVar(&verbose, "v", false, "Enable debug logging (shorthand)")
	flag.BoolVar(&showMetrics, "metrics", false, "Print client request metrics to stderr on exit")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
}

func main() {
	flag.Parse()

	if showVersion {
		printVersion()
		os.Exit(0)
	}

	os.Exit(run(flag.Args()))
}

func printVersion() {
	fmt.Printf("console version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

func run(args []string) int {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return cli.ExitFailure
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.DefaultTimeFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		return cli.ExitFailure
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Auth.Email != "" {
		ctx, log = logger.WithOperator(ctx, log, cfg.Auth.Email)
	}

	reg := prometheus.NewRegistry()
	var metrics *client.Metrics
	if cfg.Metrics.Enabled || showMetrics {
		metrics, err = client.NewMetrics(reg)
		if err != nil {
			log.Error("Failed to register metrics", zap.Error(err))
			return cli.ExitFailure
		}
	}

	deps, cleanup, err := wire(ctx, cfg, log, metrics)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return cli.ExitFailure
	}
	defer cleanup()

	app, err := cli.New(deps, outputFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return cli.ExitUsage
	}

	err = app.Run(ctx, args)
	if showMetrics {
		if derr := dumpMetrics(os.Stderr, reg); derr != nil {
			log.Warn("Failed to write metrics", zap.Error(derr))
		}
	}
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		log.Debug("command failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %s\n", cli.Describe(err))
	}
	return cli.ExitCode(err)
}

// wire builds the command dependencies from cfg. cleanup releases
// connections opened along the way.
func wire(ctx context.Context, cfg *config.Config, log *zap.Logger, metrics *client.Metrics) (cli.Deps, func(), error) {
	tokens, session, cleanup, err := tokenSource(ctx, cfg, log, metrics)
	if err != nil {
		return cli.Deps{}, nil, err
	}

	opts := []client.Option{
		client.WithTokenSource(tokens),
		client.WithLogger(log),
		client.WithMetrics(metrics),
	}
	api, err := client.New(cfg.API, opts...)
	if err != nil {
		cleanup()
		return cli.Deps{}, nil, fmt.Errorf("creating API client: %w", err)
	}

	salesCfg := cfg.API
	if cfg.API.SalesBaseURL != "" {
		salesCfg.BaseURL = cfg.API.SalesBaseURL
	}
	sales, err := client.New(salesCfg, opts...)
	if err != nil {
		cleanup()
		return cli.Deps{}, nil, fmt.Errorf("creating sales client: %w", err)
	}

	// Without a courier the dispatch pickup and track commands report it
	var cour *courier.Adapter
	if cfg.Courier.BaseURL != "" {
		cour, err = courier.NewAdapter(cfg.Courier, tokens,
			courier.WithLogger(log),
			courier.WithMetrics(metrics),
		)
		if err != nil {
			cleanup()
			return cli.Deps{}, nil, fmt.Errorf("creating courier adapter: %w", err)
		}
	}

	st, err := storage.New(&cfg.Storage, storage.WithLogger(log))
	if err != nil {
		cleanup()
		return cli.Deps{}, nil, fmt.Errorf("creating storage: %w", err)
	}

	return cli.Deps{
		Config:  cfg,
		API:     api,
		Sales:   sales,
		Courier: cour,
		Storage: st,
		Session: session,
		Logger:  log,
	}, cleanup, nil
}

// tokenSource selects the bearer token provider for auth.type. session is
// nil unless the console logs in itself.
func tokenSource(ctx context.Context, cfg *config.Config, log *zap.Logger, metrics *client.Metrics) (client.TokenSource, auth.SessionSource, func(), error) {
	noop := func() {}

	switch cfg.Auth.Type {
	case "bearer":
		return auth.StaticToken(cfg.Auth.Token), nil, noop, nil
	case "login":
		// The login call itself goes out unauthenticated
		loginClient, err := client.New(cfg.API, client.WithLogger(log), client.WithMetrics(metrics))
		if err != nil {
			return nil, nil, noop, fmt.Errorf("creating login client: %w", err)
		}
		src := auth.NewLoginSource(loginClient, cfg.Auth.LoginPath,
			auth.Credentials{Email: cfg.Auth.Email, Password: cfg.Auth.Password},
			cfg.Auth.CacheTTL,
			auth.WithLoginLogger(log),
		)
		if !cfg.Auth.CacheInRedis {
			return src, src, noop, nil
		}

		rdb, err := auth.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn("Token cache unavailable, logging in for this run only", zap.Error(err))
			return src, src, noop, nil
		}
		cache := auth.NewRedisCache(rdb, src, cfg.Redis.KeyPrefix, cfg.Auth.Email, log)
		return cache, cache, func() { _ = rdb.Close() }, nil
	default:
		return auth.None{}, nil, noop, nil
	}
}

// dumpMetrics writes every gathered family in the Prometheus text format
func dumpMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
