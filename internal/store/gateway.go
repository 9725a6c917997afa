// Package store is the persistence gateway for canonical content items.
// It owns idempotent writes keyed by the identity triple
// (creator_id, platform, platform_content_id); the unique index on that
// triple is the safety net batch callers rely on when their existence
// check races a concurrent ingestion run.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"creatorpulse/aggregator/internal/database"
	"creatorpulse/aggregator/internal/models"
)

// Gateway performs content item persistence against the shared database.
type Gateway struct {
	db *database.DB
}

// NewGateway creates a gateway using an existing database connection.
func NewGateway(db *database.DB) *Gateway {
	return &Gateway{db: db}
}

// Exists reports whether a row with the given identity triple is stored.
func (g *Gateway) Exists(ctx context.Context, creatorID int64, platform models.Platform, platformContentID string) (bool, error) {
	var one int
	err := g.db.GetContext(ctx, &one, `
		SELECT 1 FROM content_items
		WHERE creator_id = ? AND platform = ? AND platform_content_id = ?`,
		creatorID, platform, platformContentID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, &StorageError{Op: "exists", Err: err}
	}
	return true, nil
}

// Store inserts a new content item with its dedup fields attached and
// returns the stored row. A duplicate identity triple yields
// DuplicateContentError. When the item is the primary of its duplicate
// group, the previous primary is demoted in the same transaction with a
// single conditional UPDATE, so the exactly-one-primary invariant holds
// even under concurrent ingestion.
func (g *Gateway) Store(ctx context.Context, item models.ContentItem) (models.ContentItem, error) {
	if err := validate(item); err != nil {
		return models.ContentItem{}, err
	}

	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	tx, err := g.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.ContentItem{}, &StorageError{Op: "store", Err: err}
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO content_items (
			creator_id, platform, platform_content_id, url,
			title, description, content_body, thumbnail_url,
			media_urls, engagement_metrics, reference_type, referenced_content,
			word_count, reading_time_minutes, published_at,
			content_hash, duplicate_group_id, is_primary, processing_status,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.CreatorID, item.Platform, item.PlatformContentID, item.URL,
		item.Title, item.Description, item.ContentBody, item.ThumbnailURL,
		item.MediaURLs, item.EngagementMetrics, item.ReferenceType, item.ReferencedContent,
		item.WordCount, item.ReadingTimeMins, item.PublishedAt.UTC(),
		item.ContentHash, item.DuplicateGroupID, item.IsPrimary, item.ProcessingStatus,
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return models.ContentItem{}, classifyInsertErr(err, item)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return models.ContentItem{}, &StorageError{Op: "store", Err: err}
	}
	item.ID = id

	if item.IsPrimary {
		// Atomic primary handover: one statement flips the whole group,
		// no read-modify-write window.
		if _, err := tx.ExecContext(ctx, `
			UPDATE content_items SET is_primary = (id = ?)
			WHERE duplicate_group_id = ?`,
			id, item.DuplicateGroupID); err != nil {
			return models.ContentItem{}, &StorageError{Op: "store", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return models.ContentItem{}, &StorageError{Op: "store", Err: err}
	}
	return item, nil
}

// UpdateFields carries the mutable fields UpdateByIdentity may refresh.
// Nil pointers (and nil maps/slices) leave the stored value untouched.
// Identity and dedup fields are deliberately not updatable.
type UpdateFields struct {
	Title             *string
	Description       *string
	ContentBody       *string
	ThumbnailURL      *string
	MediaURLs         models.MediaList
	EngagementMetrics models.EngagementMetrics
	WordCount         *int
	ReadingTimeMins   *int
	ProcessingStatus  *models.ProcessingStatus
}

// UpdateByIdentity refreshes mutable fields of the row matching the
// identity triple and returns the updated item. ErrNotFound when the
// triple is absent.
func (g *Gateway) UpdateByIdentity(ctx context.Context, creatorID int64, platform models.Platform, platformContentID string, fields UpdateFields) (models.ContentItem, error) {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if fields.Title != nil {
		add("title", *fields.Title)
	}
	if fields.Description != nil {
		add("description", *fields.Description)
	}
	if fields.ContentBody != nil {
		add("content_body", *fields.ContentBody)
	}
	if fields.ThumbnailURL != nil {
		add("thumbnail_url", *fields.ThumbnailURL)
	}
	if fields.MediaURLs != nil {
		for _, m := range fields.MediaURLs {
			if m.URL == "" {
				return models.ContentItem{}, &ValidationError{Reason: "media entry without url"}
			}
		}
		add("media_urls", fields.MediaURLs)
	}
	if fields.EngagementMetrics != nil {
		add("engagement_metrics", fields.EngagementMetrics)
	}
	if fields.WordCount != nil {
		add("word_count", *fields.WordCount)
	}
	if fields.ReadingTimeMins != nil {
		add("reading_time_minutes", *fields.ReadingTimeMins)
	}
	if fields.ProcessingStatus != nil {
		add("processing_status", *fields.ProcessingStatus)
	}

	add("updated_at", time.Now().UTC())

	query := fmt.Sprintf(`
		UPDATE content_items SET %s
		WHERE creator_id = ? AND platform = ? AND platform_content_id = ?`,
		strings.Join(sets, ", "))
	args = append(args, creatorID, platform, platformContentID)

	res, err := g.db.ExecContext(ctx, query, args...)
	if err != nil {
		return models.ContentItem{}, &StorageError{Op: "update", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.ContentItem{}, &StorageError{Op: "update", Err: err}
	}
	if affected == 0 {
		return models.ContentItem{}, ErrNotFound
	}

	return g.GetByIdentity(ctx, creatorID, platform, platformContentID)
}

// GetByIdentity fetches the row matching the identity triple.
func (g *Gateway) GetByIdentity(ctx context.Context, creatorID int64, platform models.Platform, platformContentID string) (models.ContentItem, error) {
	var item models.ContentItem
	err := g.db.GetContext(ctx, &item, `
		SELECT * FROM content_items
		WHERE creator_id = ? AND platform = ? AND platform_content_id = ?`,
		creatorID, platform, platformContentID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ContentItem{}, ErrNotFound
	}
	if err != nil {
		return models.ContentItem{}, &StorageError{Op: "get", Err: err}
	}
	return item, nil
}

// Get fetches a content item by row id.
func (g *Gateway) Get(ctx context.Context, id int64) (models.ContentItem, error) {
	var item models.ContentItem
	err := g.db.GetContext(ctx, &item, `SELECT * FROM content_items WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ContentItem{}, ErrNotFound
	}
	if err != nil {
		return models.ContentItem{}, &StorageError{Op: "get", Err: err}
	}
	return item, nil
}

// Delete hard-deletes a content item by row id.
func (g *Gateway) Delete(ctx context.Context, id int64) error {
	res, err := g.db.ExecContext(ctx, `DELETE FROM content_items WHERE id = ?`, id)
	if err != nil {
		return &StorageError{Op: "delete", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return &StorageError{Op: "delete", Err: err}
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByCreator hard-deletes every content item owned by a creator and
// returns the number of removed rows.
func (g *Gateway) DeleteByCreator(ctx context.Context, creatorID int64) (int64, error) {
	res, err := g.db.ExecContext(ctx, `DELETE FROM content_items WHERE creator_id = ?`, creatorID)
	if err != nil {
		return 0, &StorageError{Op: "delete_by_creator", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, &StorageError{Op: "delete_by_creator", Err: err}
	}
	return affected, nil
}

// PurgeOlderThan removes content items created before the retention
// cutoff and returns the number of removed rows.
func (g *Gateway) PurgeOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, &ValidationError{Reason: "retentionDays must be positive"}
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	res, err := g.db.ExecContext(ctx,
		"DELETE FROM content_items WHERE created_at < ?",
		cutoff.Format("2006-01-02 15:04:05"))
	if err != nil {
		return 0, &StorageError{Op: "purge", Err: err}
	}
	return res.RowsAffected()
}

func validate(item models.ContentItem) error {
	switch {
	case item.CreatorID <= 0:
		return &ValidationError{Reason: "creator_id is required"}
	case !item.Platform.Valid():
		return &ValidationError{Reason: fmt.Sprintf("unknown platform %q", item.Platform)}
	case item.PlatformContentID == "":
		return &ValidationError{Reason: "platform_content_id is required"}
	case item.ContentHash == "":
		return &ValidationError{Reason: "content_hash is required"}
	case item.DuplicateGroupID == "":
		return &ValidationError{Reason: "duplicate_group_id is required"}
	}
	for _, m := range item.MediaURLs {
		if m.URL == "" {
			return &ValidationError{Reason: "media entry without url"}
		}
	}
	return nil
}

func classifyInsertErr(err error, item models.ContentItem) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return &DuplicateContentError{
				CreatorID:         item.CreatorID,
				Platform:          item.Platform,
				PlatformContentID: item.PlatformContentID,
			}
		case sqlite3.ErrConstraintForeignKey:
			return &ValidationError{Reason: fmt.Sprintf("creator %d does not exist", item.CreatorID)}
		}
	}
	return &StorageError{Op: "store", Err: err}
}
