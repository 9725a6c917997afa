// Package ingest drives scheduled ingestion runs: it loads active
// creator sources, fetches their raw payloads in parallel and hands each
// source's items to the batch orchestrator. Parallelism lives here, in
// the fetch layer; the normalize-dedup-store core below runs each batch
// sequentially.
package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"creatorpulse/aggregator/internal/batch"
	"creatorpulse/aggregator/internal/database"
	"creatorpulse/aggregator/internal/fetch"
	"creatorpulse/aggregator/internal/models"
	"creatorpulse/aggregator/internal/store"
)

const maxSourceFailures = 10

// Runner handles parallel processing of creator sources
type Runner struct {
	db           *database.DB
	fetcher      *fetch.RSSFetcher
	orchestrator *batch.Orchestrator
	gateway      *store.Gateway
	WorkerCount  int
	sourceQueue  chan models.CreatorSource
	errorQueue   chan error

	workerWg sync.WaitGroup
	created  atomic.Int64
	updated  atomic.Int64
	skipped  atomic.Int64
	failed   atomic.Int64

	activeWorkers atomic.Int32
}

// NewRunner creates a new ingest runner using an existing database connection
func NewRunner(db *database.DB, orchestrator *batch.Orchestrator, gateway *store.Gateway, workerCount int) (*Runner, error) {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	if db == nil {
		return nil, fmt.Errorf("database connection cannot be nil")
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("database connection is not valid: %w", err)
	}

	return &Runner{
		db:           db,
		fetcher:      fetch.NewRSSFetcher(),
		orchestrator: orchestrator,
		gateway:      gateway,
		WorkerCount:  workerCount,
		sourceQueue:  make(chan models.CreatorSource, workerCount*2),
		errorQueue:   make(chan error, workerCount),
	}, nil
}

// Run fetches active sources from the DB and processes them in parallel.
func (r *Runner) Run(ctx context.Context) error {
	progressTicker := time.NewTicker(5 * time.Minute)
	defer progressTicker.Stop()

	// goroutine to log progress
	go func() {
		for {
			select {
			case <-progressTicker.C:
				created, updated, skipped, failed := r.Stats()
				log.Info().
					Int64("created", created).
					Int64("updated", updated).
					Int64("skipped", skipped).
					Int64("failed", failed).
					Int32("active_workers", r.activeWorkers.Load()).
					Int("source_queue_size", len(r.sourceQueue)).
					Msg("Ingestion progress")
			case <-ctx.Done():
				return
			}
		}
	}()

	errChan := make(chan error, 1) // Channel to collect the first error
	go func() {
		var firstErr error
		for err := range r.errorQueue {
			if err != nil {
				log.Error().
					Err(err).
					Msg("Error occurred")
				// Only store critical errors (database connection, etc.)
				if firstErr == nil && strings.Contains(err.Error(), "database") {
					firstErr = err
				}
			}
		}
		errChan <- firstErr
		close(errChan)
	}()

	for i := 0; i < r.WorkerCount; i++ {
		r.workerWg.Add(1)
		go r.sourceWorker(ctx)
	}

	// Load active RSS sources; the other platforms arrive by push through
	// the ingest endpoint.
	var sources []models.CreatorSource
	query := `SELECT * FROM creator_sources
		WHERE status = 'active' AND platform = 'rss' AND deleted_at IS NULL
		ORDER BY last_retrieved_at ASC, created_at ASC`
	err := r.db.SelectContext(ctx, &sources, query)
	if err != nil {
		log.Error().
			Err(err).
			Msg("Critical error loading creator sources from database")
		close(r.sourceQueue) // Signal workers there's no work (they will exit)
		r.workerWg.Wait()
		close(r.errorQueue)

		if collectedErr := <-errChan; collectedErr != nil {
			return fmt.Errorf("failed to load sources: %w (additional error: %v)", err, collectedErr)
		}
		return fmt.Errorf("failed to load sources: %w", err)
	}
	log.Info().
		Int("loaded_sources", len(sources)).
		Msg("Loaded active creator sources to process.")

	// Queue the loaded sources
sourceLoop:
	for _, source := range sources {
		sourceToSend := source // Make a copy for the channel
		select {
		case r.sourceQueue <- sourceToSend:
		case <-ctx.Done():
			log.Info().
				Err(ctx.Err()).
				Msg("Context cancelled during source queuing")
			break sourceLoop
		}
	}
	close(r.sourceQueue)
	log.Info().Msg("Finished queueing sources.")

	r.workerWg.Wait()
	log.Info().Msg("All source workers finished.")

	// Close error queue *after* all goroutines that might write to it are done
	close(r.errorQueue)

	finalErr := <-errChan
	log.Info().Msg("Error collector finished.")
	return finalErr
}

// sourceWorker receives CreatorSource rows, fetches and processes their
// items, and updates the source's retrieval bookkeeping.
func (r *Runner) sourceWorker(ctx context.Context) {
	defer r.workerWg.Done()
	r.activeWorkers.Add(1)
	defer r.activeWorkers.Add(-1)
	log.Debug().Msg("Source worker started")

	for {
		select {
		case source, ok := <-r.sourceQueue:
			if !ok {
				log.Debug().Msg("Source worker exiting (sourceQueue closed)")
				return
			}
			r.processSource(ctx, source)

		case <-ctx.Done():
			log.Info().
				Err(ctx.Err()).
				Msg("Source worker cancelling")
			return
		}
	}
}

func (r *Runner) processSource(ctx context.Context, source models.CreatorSource) {
	sourceCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	log.Info().
		Int64("source_id", source.ID).
		Int64("creator_id", source.CreatorID).
		Str("url", source.URL).
		Msg("Processing source")

	payloads, fetchErr := r.fetcher.Fetch(sourceCtx, source.URL)

	updateCtx, cancelUpdate := context.WithTimeout(ctx, 15*time.Second) // Short timeout for DB update
	now := time.Now()
	var updateErr error

	if fetchErr != nil {
		if strings.Contains(fetchErr.Error(), "429") {
			log.Warn().
				Int64("source_id", source.ID).
				Str("url", source.URL).
				Msg("Rate limited by source, marking for later retry")
			source.Status = "rate_limited"
			source.LastError = sql.NullString{String: "Rate limited by source", Valid: true}
		} else {
			source.FailuresCount++
			source.LastError = sql.NullString{String: fetchErr.Error(), Valid: true}
			if source.FailuresCount > maxSourceFailures {
				source.Status = "failed"
			}
		}
		_, updateErr = r.db.ExecContext(updateCtx, `
			UPDATE creator_sources
			SET status = ?, failures_count = ?, last_error = ?, last_retrieved_at = ?, updated_at = ?
			WHERE id = ?`,
			source.Status, source.FailuresCount, source.LastError, now, now, source.ID)
		r.sendError(fmt.Errorf("error fetching source %d (%s): %w", source.ID, source.URL, fetchErr))
	} else {
		// Reset failures on success
		_, updateErr = r.db.ExecContext(updateCtx, `
			UPDATE creator_sources
			SET status = 'active', failures_count = 0, last_error = NULL, last_retrieved_at = ?, updated_at = ?
			WHERE id = ?`,
			now, now, source.ID)
	}
	cancelUpdate()

	if updateErr != nil {
		r.sendError(fmt.Errorf("failed to update source status for source %d (%s): %w", source.ID, source.URL, updateErr))
	}
	if fetchErr != nil {
		return
	}

	result := r.orchestrator.ProcessPayloads(sourceCtx, source.CreatorID, source.URL, payloads)

	r.created.Add(int64(result.Created))
	r.updated.Add(int64(result.Updated))
	r.skipped.Add(int64(result.Skipped))
	r.failed.Add(int64(len(result.Errors)))

	for _, itemErr := range result.Errors {
		r.sendError(fmt.Errorf("source %d (%s) item %s: %s",
			source.ID, source.URL, itemErr.PlatformContentID, itemErr.Error))
	}
}

// sendError sends an error to the error queue without blocking.
func (r *Runner) sendError(err error) {
	if err == nil {
		return
	}
	select {
	case r.errorQueue <- err:
	default:
		// Log if the error queue is full to avoid blocking the sender
		log.Error().
			Err(err).
			Msg("Error queue full, logging error instead of queuing")
	}
}

// Stats returns cumulative processing statistics for this runner.
func (r *Runner) Stats() (created, updated, skipped, failed int64) {
	return r.created.Load(), r.updated.Load(), r.skipped.Load(), r.failed.Load()
}

// PurgeOldItems removes content older than the specified retention days.
func (r *Runner) PurgeOldItems(ctx context.Context, retentionDays int) (int64, error) {
	log.Info().
		Int("retention_days", retentionDays).
		Msg("Purging old content items")

	rowsAffected, err := r.gateway.PurgeOlderThan(ctx, retentionDays)
	if err != nil {
		return 0, fmt.Errorf("failed to purge old content items: %w", err)
	}

	log.Info().
		Int64("rows_affected", rowsAffected).
		Msg("Purged old content items.")
	return rowsAffected, nil
}
