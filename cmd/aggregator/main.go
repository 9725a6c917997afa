package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"creatorpulse/aggregator/internal/batch"
	"creatorpulse/aggregator/internal/config"
	"creatorpulse/aggregator/internal/database"
	"creatorpulse/aggregator/internal/dedup"
	"creatorpulse/aggregator/internal/importer"
	"creatorpulse/aggregator/internal/ingest"
	"creatorpulse/aggregator/internal/logging"
	"creatorpulse/aggregator/internal/server"
	"creatorpulse/aggregator/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importCmd.StringVar(&cfg.CreatorsCSVPath, "csv", cfg.CreatorsCSVPath,
		"Path to the creators CSV file (env: AGGREGATOR_CSV_PATH)")
	importCmd.StringVar(&cfg.DBPath, "db", cfg.DBPath,
		"Path to the SQLite database file (env: AGGREGATOR_DB_PATH)")
	importCmd.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel,
		"Log level: debug, info, warn, error (env: LOG_LEVEL)")

	startCmd := flag.NewFlagSet("start", flag.ExitOnError)
	startCmd.StringVar(&cfg.DBPath, "db", cfg.DBPath,
		"Path to the SQLite database file (env: AGGREGATOR_DB_PATH)")
	startCmd.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel,
		"Log level: debug, info, warn, error (env: LOG_LEVEL)")
	startCmd.IntVar(&cfg.IntervalMinutes, "interval", cfg.IntervalMinutes,
		"Interval in minutes between processing runs, 0 for one-shot mode (env: AGGREGATOR_INTERVAL)")
	startCmd.IntVar(&cfg.WorkerCount, "workers", cfg.WorkerCount,
		"Number of worker goroutines for processing, 0 for CPU count (env: AGGREGATOR_WORKER_COUNT)")
	startCmd.IntVar(&cfg.RetentionDays, "retention", cfg.RetentionDays,
		"Number of days to retain content items (env: AGGREGATOR_RETENTION_DAYS)")

	serverCmd := flag.NewFlagSet("server", flag.ExitOnError)
	serverCmd.StringVar(&cfg.DBPath, "db", cfg.DBPath,
		"Path to the SQLite database file (env: AGGREGATOR_DB_PATH)")
	serverCmd.StringVar(&cfg.ServerHost, "host", cfg.ServerHost,
		"Host to bind the server to (env: AGGREGATOR_HOST)")
	serverCmd.IntVar(&cfg.ServerPort, "port", cfg.ServerPort,
		"Port to listen on (env: AGGREGATOR_PORT)")
	serverCmd.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel,
		"Log level: debug, info, warn, error (env: LOG_LEVEL)")

	var readOnly bool
	serverCmd.BoolVar(&readOnly, "read-only", false,
		"Open the database read-only and disable the push ingestion endpoint")

	if len(os.Args) < 2 {
		fmt.Println("Usage: aggregator [command] [options]")
		fmt.Println("Commands: import, start, server")
		fmt.Println("\nFor command-specific options, use: aggregator [command] -h")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "import":
		importCmd.Parse(os.Args[2:])
		mustSetupLogging(cfg)

		if err := runImport(cfg); err != nil {
			log.Error().Err(err).Msg("Import failed")
			os.Exit(1)
		}

	case "start":
		startCmd.Parse(os.Args[2:])
		mustSetupLogging(cfg)

		if err := runStart(cfg); err != nil {
			log.Error().Err(err).Msg("Processing failed")
			os.Exit(1)
		}

	case "server":
		serverCmd.Parse(os.Args[2:])
		mustSetupLogging(cfg)

		if err := runServer(cfg, readOnly); err != nil {
			log.Error().Err(err).Msg("Server failed")
			os.Exit(1)
		}

	case "-h", "--help", "help":
		fmt.Println("Usage: aggregator [command] [options]")
		fmt.Println("Commands: import, start, server")
		fmt.Println("\nFor command-specific options, use: aggregator [command] -h")
		os.Exit(0)

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		fmt.Println("Available commands: import, start, server")
		fmt.Println("\nFor command-specific options, use: aggregator [command] -h")
		os.Exit(1)
	}
}

func mustSetupLogging(cfg *config.Config) {
	if err := logging.Setup(cfg.Environment, cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to configure logging: %v\n", err)
		os.Exit(1)
	}
}

// runImport imports creators and their sources from a CSV file into a
// fresh database. It will prompt for confirmation before deleting an
// existing database.
func runImport(cfg *config.Config) error {
	if _, err := os.Stat(cfg.DBPath); err == nil {
		fmt.Printf("Database %s already exists. All data will be lost as updates are not currently supported.\n", cfg.DBPath)
		fmt.Print("Delete and recreate? (y/N): ")

		var answer string
		fmt.Scanln(&answer)

		if strings.ToLower(answer) != "y" {
			log.Info().Msg("Operation canceled by user")
			return fmt.Errorf("operation canceled by user")
		}

		if err := database.DeleteDB(cfg.DBPath); err != nil {
			log.Error().Err(err).Str("path", cfg.DBPath).Msg("Failed to delete existing database")
			return fmt.Errorf("failed to delete existing database: %w", err)
		}
		log.Info().Str("path", cfg.DBPath).Msg("Deleted existing database")
	}

	dbCfg := database.NewConfig(cfg.DBPath)
	db, err := database.NewDB(dbCfg)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.DBPath).Msg("Failed to initialize database")
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	imp := importer.NewImporter(db)
	return imp.ImportCreators(cfg.CreatorsCSVPath)
}

// runStart executes the ingestion runner either once or periodically
// based on configuration.
func runStart(cfg *config.Config) error {
	interval := cfg.Interval()
	if interval <= 0 {
		log.Info().Msg("Running in one-shot mode")
	} else {
		log.Info().Int64("interval_minutes", int64(interval.Minutes())).Msg("Running in periodic mode")
	}

	dbCfg := database.NewConfig(cfg.DBPath)
	db, err := database.NewDB(dbCfg)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.DBPath).Msg("Failed to initialize database")
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-shutdown
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel() // Cancel the context to stop processing
	}()

	if err := runProcessingCycle(ctx, db, cfg); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info().Msg("Processing cycle canceled by shutdown signal")
			return nil
		}
		return err
	}

	if interval == 0 {
		log.Info().Msg("One-shot processing completed, exiting")
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().
		Dur("interval", interval).
		Time("next_run", time.Now().Add(interval)).
		Msg("Waiting for next processing cycle")

	for {
		select {
		case <-ticker.C:
			log.Info().Msg("Starting scheduled processing cycle")

			if err := runProcessingCycle(ctx, db, cfg); err != nil {
				if errors.Is(err, context.Canceled) {
					log.Info().Msg("Processing cycle canceled by shutdown signal")
					return nil
				}
				log.Error().Err(err).Msg("Processing cycle failed")
				// Continue to the next cycle rather than exiting
			}

			log.Info().
				Time("next_run", time.Now().Add(interval)).
				Msg("Waiting for next processing cycle")

		case <-ctx.Done():
			log.Info().Msg("Shutting down periodic processing")
			return nil
		}
	}
}

// runProcessingCycle executes a single source ingestion cycle.
func runProcessingCycle(ctx context.Context, db *database.DB, cfg *config.Config) error {
	gateway := store.NewGateway(db)
	engine := dedup.NewEngine(db)
	orchestrator := batch.NewOrchestrator(engine, gateway)

	runner, err := ingest.NewRunner(db, orchestrator, gateway, cfg.WorkerCount)
	if err != nil {
		return fmt.Errorf("failed to initialize ingestion runner: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	log.Info().
		Int("worker_count", runner.WorkerCount).
		Msg("Starting processing cycle")

	startTime := time.Now()
	err = runner.Run(runCtx)
	endTime := time.Now()

	log.Info().
		Dur("duration", endTime.Sub(startTime)).
		Msg("Processing cycle finished")

	if err != nil {
		if ctxErr := runCtx.Err(); ctxErr != nil && (errors.Is(ctxErr, err) || err.Error() == ctxErr.Error()) {
			return ctx.Err() // Propagate cancellation
		}
		return fmt.Errorf("processing error: %w", err)
	}

	created, updated, skipped, failed := runner.Stats()
	log.Info().
		Int64("created", created).
		Int64("updated", updated).
		Int64("skipped", skipped).
		Int64("failed", failed).
		Msg("Processing stats")

	// Run purging as part of the processing cycle
	purgeCtx, purgeCancel := context.WithTimeout(ctx, 5*time.Minute)
	defer purgeCancel()

	purgedCount, purgeErr := runner.PurgeOldItems(purgeCtx, cfg.RetentionDays)
	if purgeErr != nil {
		log.Error().Err(purgeErr).Msg("Failed to purge old items")
	} else if purgedCount > 0 {
		log.Info().Int64("purged_count", purgedCount).Msg("Successfully purged old content items")
	} else {
		log.Info().Msg("No old content items needed purging")
	}

	return nil
}

// runServer starts the HTTP API server with the provided configuration.
// In read-only mode the database is opened read-only and the push
// ingestion endpoint stays disabled.
func runServer(cfg *config.Config, readOnly bool) error {
	dbCfg := database.NewConfig(cfg.DBPath)
	dbCfg.ReadOnly = readOnly

	db, err := database.NewDB(dbCfg)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.DBPath).Msg("Failed to initialize database")
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	var orchestrator *batch.Orchestrator
	if !readOnly {
		gateway := store.NewGateway(db)
		engine := dedup.NewEngine(db)
		orchestrator = batch.NewOrchestrator(engine, gateway)
	}

	return server.RunServer(db, orchestrator, cfg.ListenAddr(), log.Logger, cfg.APIKey)
}
