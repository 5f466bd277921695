// Shopdash analytics API server
//
// Usage:
//
//	server                        Start the HTTP server
//	server -migrate               Run database migrations and exit
//	server -seed                  Run migrations, load the sample dataset and exit
//	server -seed -seed-file x.hcl Load a custom dataset instead
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/shopdash/shopdash/internal/analytics"
	"github.com/shopdash/shopdash/internal/api"
	"github.com/shopdash/shopdash/internal/config"
	"github.com/shopdash/shopdash/internal/db"
	"github.com/shopdash/shopdash/internal/logging"
	"github.com/shopdash/shopdash/internal/metrics"
)

func main() {
	migrateOnly := flag.Bool("migrate", false, "Run migrations and exit")
	seed := flag.Bool("seed", false, "Replace all analytics data with the seed set and exit")
	seedFile := flag.String("seed-file", "", "HCL seed file (default: built-in sample data)")
	migrationsDir := flag.String("migrations-dir", "", "Path to migrations directory (default: built-in migrations)")
	envFile := flag.String("env-file", "config.env", "Env file loaded before reading the environment")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger, options{
		migrateOnly:   *migrateOnly,
		seed:          *seed,
		seedFile:      *seedFile,
		migrationsDir: *migrationsDir,
	}); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

type options struct {
	migrateOnly   bool
	seed          bool
	seedFile      string
	migrationsDir string
}

func run(cfg *config.Config, logger *zap.Logger, opts options) error {
	ctx := context.Background()

	// Connect to database
	database, err := db.New(ctx, cfg.PoolConfig())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	// Run migrations
	migrations := db.Migrations()
	if opts.migrationsDir != "" {
		migrations = os.DirFS(opts.migrationsDir)
	}
	applied, err := database.RunMigrations(ctx, migrations)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("migrations complete", zap.Strings("applied", applied))

	if opts.migrateOnly {
		logger.Info("migration-only mode, exiting")
		return nil
	}

	if opts.seed {
		if err := seedDatabase(ctx, database, opts.seedFile, logger); err != nil {
			return err
		}
		return logTableStats(ctx, database, logger)
	}

	if err := logTableStats(ctx, database, logger); err != nil {
		return err
	}

	m := metrics.New()
	m.RegisterPool(database.Pool)

	svc := analytics.NewService(database, m, logger)
	apiServer := api.NewServer(svc, database, m, cfg.AllowedOrigins(), logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      apiServer.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("analytics API server starting",
			zap.String("addr", cfg.Addr()),
			zap.Strings("cors_origins", cfg.AllowedOrigins()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case sig := <-done:
		logger.Info("shutting down server", zap.String("signal", sig.String()))
	case err := <-serveErr:
		return fmt.Errorf("serving: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func seedDatabase(ctx context.Context, database *db.DB, seedFile string, logger *zap.Logger) error {
	var (
		set *db.SeedSet
		err error
	)
	if seedFile == "" {
		set, err = db.DefaultSeed()
	} else {
		var src []byte
		if src, err = os.ReadFile(seedFile); err == nil {
			set, err = db.ParseSeedHCL(src, seedFile)
		}
	}
	if err != nil {
		return fmt.Errorf("loading seed set: %w", err)
	}

	counts, err := database.Seed(ctx, set)
	if err != nil {
		return fmt.Errorf("seeding database: %w", err)
	}

	var total int64
	for _, n := range counts {
		total += n
	}
	logger.Info("database seeded", zap.Int("tables", len(counts)), zap.Int64("rows", total))
	return nil
}

// logTableStats reports row counts so an unseeded database is visible at startup.
// Empty tables are not an error: list endpoints return [] and summaries fall back
// to their defaults.
func logTableStats(ctx context.Context, database *db.DB, logger *zap.Logger) error {
	stats, err := database.TableStats(ctx)
	if err != nil {
		return fmt.Errorf("reading table stats: %w", err)
	}
	for _, st := range stats {
		if st.Rows == 0 {
			logger.Warn("analytics table is empty", zap.String("table", st.Table))
			continue
		}
		logger.Debug("analytics table", zap.String("table", st.Table), zap.Int64("rows", st.Rows))
	}
	return nil
}
