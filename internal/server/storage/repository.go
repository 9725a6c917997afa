package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"creatorpulse/aggregator/internal/database"
	"creatorpulse/aggregator/internal/models"
)

// ContentFilter narrows a content listing. Nil fields mean no filter.
type ContentFilter struct {
	CreatorID   *int64
	Platform    *models.Platform
	PrimaryOnly bool
}

// ContentRepository defines read operations for stored content items.
type ContentRepository interface {
	FetchContent(ctx context.Context, limit int, since *time.Time, cursorTimestamp *time.Time, cursorID *int64, filter ContentFilter) ([]models.ContentItem, error)
}

// sqlxRepository implements ContentRepository using sqlx.
type sqlxRepository struct {
	db *database.DB
}

// NewRepository creates a new repository instance.
func NewRepository(db *database.DB) ContentRepository {
	return &sqlxRepository{db: db}
}

// FetchContent retrieves content items based on time or cursor. Only
// processed rows are visible to readers; pending and failed items stay
// internal until promoted.
func (r *sqlxRepository) FetchContent(ctx context.Context, limit int, since *time.Time, cursorTimestamp *time.Time, cursorID *int64, filter ContentFilter) ([]models.ContentItem, error) {
	var items []models.ContentItem
	var args []any

	// We must order consistently for cursor pagination to work.
	query := `SELECT * FROM content_items WHERE processing_status = 'processed'`

	if cursorTimestamp != nil && cursorID != nil {
		// Paginate using cursor (timestamp and ID of the last item from previous page)
		query += ` AND ((created_at > ?) OR (created_at = ? AND id > ?))`
		args = append(args, cursorTimestamp.UTC(), cursorTimestamp.UTC(), *cursorID)
	} else if since != nil {
		// First page request using 'since' timestamp
		query += ` AND created_at > ?`
		args = append(args, since.UTC())
	} else {
		// Should not happen if handler validates properly, but return error just in case.
		return nil, fmt.Errorf("either 'since' or cursor parameters must be provided")
	}

	if filter.CreatorID != nil {
		query += ` AND creator_id = ?`
		args = append(args, *filter.CreatorID)
	}
	if filter.Platform != nil {
		query += ` AND platform = ?`
		args = append(args, *filter.Platform)
	}
	if filter.PrimaryOnly {
		query += ` AND is_primary = 1`
	}

	query += ` ORDER BY created_at ASC, id ASC LIMIT ?`
	args = append(args, limit)

	err := r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []models.ContentItem{}, nil // Return empty slice, not error
		}
		return nil, fmt.Errorf("database query failed: %w", err)
	}

	return items, nil
}
