// Package batch drives lists of raw items through normalize, dedup and
// store, isolating per-item failures so one bad payload never aborts its
// siblings.
package batch

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"creatorpulse/aggregator/internal/dedup"
	"creatorpulse/aggregator/internal/models"
	"creatorpulse/aggregator/internal/normalize"
	"creatorpulse/aggregator/internal/platform"
	"creatorpulse/aggregator/internal/store"
)

// ItemError records a single failed item, keyed by its platform-native
// content id (or a positional key when the id never became known).
type ItemError struct {
	PlatformContentID string `json:"platform_content_id"`
	Error             string `json:"error"`
}

// Result is the aggregate outcome of one batch. The batch itself always
// completes; Success is false iff any item errored.
type Result struct {
	Success bool        `json:"success"`
	Created int         `json:"created"`
	Updated int         `json:"updated"`
	Skipped int         `json:"skipped"`
	Errors  []ItemError `json:"errors"`
}

// Orchestrator wires the dedup engine and store gateway together.
type Orchestrator struct {
	engine  *dedup.Engine
	gateway *store.Gateway
}

// NewOrchestrator creates a batch orchestrator.
func NewOrchestrator(engine *dedup.Engine, gateway *store.Gateway) *Orchestrator {
	return &Orchestrator{engine: engine, gateway: gateway}
}

// ProcessRaw decodes and normalizes raw payloads for one creator, then
// stores them. Payloads that cannot satisfy the identity invariant are
// silently skipped, per-item failures are recorded and processing
// continues with the rest.
func (o *Orchestrator) ProcessRaw(ctx context.Context, creatorID int64, sourceURL string, raw []platform.RawItem) Result {
	result := Result{Success: true}

	for i, r := range raw {
		payload, err := r.Decode()
		if err != nil {
			result.fail(fmt.Sprintf("item_%d", i), err)
			continue
		}

		item, err := normalize.Normalize(payload, creatorID, sourceURL)
		if err != nil {
			if errors.Is(err, normalize.ErrMissingIdentity) {
				result.Skipped++
				log.Debug().
					Int64("creator_id", creatorID).
					Str("platform", string(r.Platform)).
					Int("index", i).
					Msg("Skipping payload without identity")
				continue
			}
			result.fail(fmt.Sprintf("item_%d", i), err)
			continue
		}

		o.processOne(ctx, item, &result)
	}

	o.logSummary(creatorID, len(raw), result)
	return result
}

// ProcessPayloads normalizes and stores already-decoded payloads, with
// the same skip and isolation rules as ProcessRaw.
func (o *Orchestrator) ProcessPayloads(ctx context.Context, creatorID int64, sourceURL string, payloads []platform.Payload) Result {
	result := Result{Success: true}

	for i, payload := range payloads {
		item, err := normalize.Normalize(payload, creatorID, sourceURL)
		if err != nil {
			if errors.Is(err, normalize.ErrMissingIdentity) {
				result.Skipped++
				continue
			}
			result.fail(fmt.Sprintf("item_%d", i), err)
			continue
		}
		o.processOne(ctx, item, &result)
	}

	o.logSummary(creatorID, len(payloads), result)
	return result
}

// Process stores items a per-platform normalizer already produced.
func (o *Orchestrator) Process(ctx context.Context, items []models.ContentItem) Result {
	result := Result{Success: true}
	for _, item := range items {
		o.processOne(ctx, item, &result)
	}
	if len(items) > 0 {
		o.logSummary(items[0].CreatorID, len(items), result)
	}
	return result
}

// processOne runs the existence check, branches to create or update, and
// records any failure against the item. The unique index on the identity
// triple backstops the existence check: a racing insert surfaces as
// DuplicateContentError and is retried as an update.
func (o *Orchestrator) processOne(ctx context.Context, item models.ContentItem, result *Result) {
	exists, err := o.gateway.Exists(ctx, item.CreatorID, item.Platform, item.PlatformContentID)
	if err != nil {
		result.fail(item.PlatformContentID, err)
		return
	}

	if exists {
		if err := o.update(ctx, item); err != nil {
			result.fail(item.PlatformContentID, err)
			return
		}
		result.Updated++
		return
	}

	resolution, err := o.engine.Resolve(ctx, item)
	if err != nil {
		result.fail(item.PlatformContentID, err)
		return
	}
	resolution.Apply(&item)

	if _, err := o.gateway.Store(ctx, item); err != nil {
		var dup *store.DuplicateContentError
		if errors.As(err, &dup) {
			// Lost the race against a concurrent run; converge on update.
			if err := o.update(ctx, item); err != nil {
				result.fail(item.PlatformContentID, err)
				return
			}
			result.Updated++
			return
		}
		result.fail(item.PlatformContentID, err)
		return
	}
	result.Created++
}

// update refreshes the mutable fields of an existing row. Identity and
// dedup fields stay untouched.
func (o *Orchestrator) update(ctx context.Context, item models.ContentItem) error {
	fields := store.UpdateFields{
		Title:           &item.Title,
		Description:     &item.Description,
		ContentBody:     &item.ContentBody,
		ThumbnailURL:    &item.ThumbnailURL,
		WordCount:       &item.WordCount,
		ReadingTimeMins: &item.ReadingTimeMins,
	}
	if item.MediaURLs != nil {
		fields.MediaURLs = item.MediaURLs
	}
	if item.EngagementMetrics != nil {
		fields.EngagementMetrics = item.EngagementMetrics
	}

	_, err := o.gateway.UpdateByIdentity(ctx, item.CreatorID, item.Platform, item.PlatformContentID, fields)
	return err
}

func (r *Result) fail(platformContentID string, err error) {
	r.Success = false
	r.Errors = append(r.Errors, ItemError{
		PlatformContentID: platformContentID,
		Error:             err.Error(),
	})
}

func (o *Orchestrator) logSummary(creatorID int64, total int, result Result) {
	log.Info().
		Int64("creator_id", creatorID).
		Int("total", total).
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Int("errors", len(result.Errors)).
		Msg("Batch processed")
}
