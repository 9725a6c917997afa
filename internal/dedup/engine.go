// Package dedup decides duplicate-group membership and primary status
// for candidate content items before they are stored. Matching is exact
// on the content hash; the hash itself is already case- and
// whitespace-insensitive, which is the minimum viable behavior here.
package dedup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"creatorpulse/aggregator/internal/contenthash"
	"creatorpulse/aggregator/internal/database"
	"creatorpulse/aggregator/internal/models"
)

// Resolution is the dedup verdict attached to an item before storage.
type Resolution struct {
	ContentHash      string
	DuplicateGroupID string
	IsPrimary        bool
}

// Engine resolves candidates against the stored content set.
type Engine struct {
	db *database.DB
}

// NewEngine creates an engine using an existing database connection.
func NewEngine(db *database.DB) *Engine {
	return &Engine{db: db}
}

type groupPrimary struct {
	DuplicateGroupID string    `db:"duplicate_group_id"`
	PublishedAt      time.Time `db:"published_at"`
}

// Resolve fingerprints the candidate and decides its group and primary
// status. No match starts a fresh group with the candidate as primary.
// On a match the candidate joins the existing group and becomes primary
// only when it was published strictly earlier than the current primary;
// equal or absent timestamps keep the first-ingested item on top. The
// actual demotion of a displaced primary happens atomically at the
// storage layer, not here.
func (e *Engine) Resolve(ctx context.Context, item models.ContentItem) (Resolution, error) {
	hash := contenthash.Hash(item)

	var current groupPrimary
	err := e.db.GetContext(ctx, &current, `
		SELECT duplicate_group_id, published_at FROM content_items
		WHERE content_hash = ? AND is_primary = 1
		ORDER BY published_at ASC, id ASC
		LIMIT 1`, hash)
	if errors.Is(err, sql.ErrNoRows) {
		return Resolution{
			ContentHash:      hash,
			DuplicateGroupID: uuid.NewString(),
			IsPrimary:        true,
		}, nil
	}
	if err != nil {
		return Resolution{}, fmt.Errorf("dedup lookup failed: %w", err)
	}

	isPrimary := item.PublishedAt.UTC().Before(current.PublishedAt.UTC())

	log.Debug().
		Str("content_hash", hash).
		Str("duplicate_group_id", current.DuplicateGroupID).
		Bool("displaces_primary", isPrimary).
		Msg("Candidate joins existing duplicate group")

	return Resolution{
		ContentHash:      hash,
		DuplicateGroupID: current.DuplicateGroupID,
		IsPrimary:        isPrimary,
	}, nil
}

// Apply stamps a resolution onto an item.
func (r Resolution) Apply(item *models.ContentItem) {
	item.ContentHash = r.ContentHash
	item.DuplicateGroupID = r.DuplicateGroupID
	item.IsPrimary = r.IsPrimary
}
