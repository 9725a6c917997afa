package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creatorpulse/aggregator/internal/database"
	"creatorpulse/aggregator/internal/models"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	cfg := database.NewConfig(filepath.Join(t.TempDir(), "test.db"))
	db, err := database.NewDB(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedCreator(t *testing.T, db *database.DB, handle string) int64 {
	t.Helper()

	creator := models.NewCreator()
	creator.Handle = handle
	id, err := db.InsertCreator(creator)
	require.NoError(t, err)
	return id
}

func testItem(creatorID int64, contentID string) models.ContentItem {
	return models.ContentItem{
		CreatorID:         creatorID,
		Platform:          models.PlatformRSS,
		PlatformContentID: contentID,
		URL:               "https://blog.example.com/" + contentID,
		Title:             "A post",
		ContentBody:       "body of " + contentID,
		PublishedAt:       time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC),
		ContentHash:       "hash-" + contentID,
		DuplicateGroupID:  uuid.NewString(),
		IsPrimary:         true,
		ProcessingStatus:  models.StatusProcessed,
		ReferenceType:     models.ReferenceNone,
	}
}

func TestGateway_StoreAndGetByIdentity(t *testing.T) {
	db := newTestDB(t)
	creatorID := seedCreator(t, db, "writer")
	g := NewGateway(db)
	ctx := context.Background()

	item := testItem(creatorID, "post-1")
	item.MediaURLs = models.MediaList{
		{URL: "https://cdn.example.com/a.jpg", Type: models.MediaImage, Width: 800},
	}
	item.EngagementMetrics = models.EngagementMetrics{"likes": 10}
	item.ReferencedContent = &models.ReferencedContent{ID: "orig", Author: "someone"}
	item.ReferenceType = models.ReferenceQuote

	stored, err := g.Store(ctx, item)
	require.NoError(t, err)
	assert.NotZero(t, stored.ID)

	got, err := g.GetByIdentity(ctx, creatorID, models.PlatformRSS, "post-1")
	require.NoError(t, err)
	assert.Equal(t, stored.ID, got.ID)
	assert.Equal(t, "A post", got.Title)
	require.Len(t, got.MediaURLs, 1)
	assert.Equal(t, "https://cdn.example.com/a.jpg", got.MediaURLs[0].URL)
	assert.Equal(t, models.EngagementMetrics{"likes": 10}, got.EngagementMetrics)
	require.NotNil(t, got.ReferencedContent)
	assert.Equal(t, "orig", got.ReferencedContent.ID)
	assert.True(t, got.IsPrimary)
}

func TestGateway_StoreDuplicateIdentity(t *testing.T) {
	db := newTestDB(t)
	creatorID := seedCreator(t, db, "writer")
	g := NewGateway(db)
	ctx := context.Background()

	_, err := g.Store(ctx, testItem(creatorID, "post-1"))
	require.NoError(t, err)

	second := testItem(creatorID, "post-1")
	second.ContentHash = "different-hash"
	_, err = g.Store(ctx, second)

	var dup *DuplicateContentError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, creatorID, dup.CreatorID)
	assert.Equal(t, "post-1", dup.PlatformContentID)
}

func TestGateway_StoreValidation(t *testing.T) {
	db := newTestDB(t)
	creatorID := seedCreator(t, db, "writer")
	g := NewGateway(db)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*models.ContentItem)
	}{
		{"missing creator", func(i *models.ContentItem) { i.CreatorID = 0 }},
		{"unknown platform", func(i *models.ContentItem) { i.Platform = "myspace" }},
		{"missing content id", func(i *models.ContentItem) { i.PlatformContentID = "" }},
		{"missing hash", func(i *models.ContentItem) { i.ContentHash = "" }},
		{"missing group", func(i *models.ContentItem) { i.DuplicateGroupID = "" }},
		{"media entry without url", func(i *models.ContentItem) {
			i.MediaURLs = models.MediaList{{Type: models.MediaImage}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := testItem(creatorID, "post-x")
			tt.mutate(&item)

			_, err := g.Store(ctx, item)
			var vErr *ValidationError
			assert.ErrorAs(t, err, &vErr)
		})
	}
}

func TestGateway_StoreUnknownCreator(t *testing.T) {
	db := newTestDB(t)
	g := NewGateway(db)

	_, err := g.Store(context.Background(), testItem(9999, "post-1"))
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr, "foreign key violation surfaces as validation error")
}

func TestGateway_PrimaryHandover(t *testing.T) {
	db := newTestDB(t)
	creatorID := seedCreator(t, db, "writer")
	g := NewGateway(db)
	ctx := context.Background()

	groupID := uuid.NewString()

	first := testItem(creatorID, "post-1")
	first.DuplicateGroupID = groupID
	stored1, err := g.Store(ctx, first)
	require.NoError(t, err)

	// Same group, earlier published, takes over as primary.
	second := testItem(creatorID, "post-2")
	second.Platform = models.PlatformLinkedIn
	second.DuplicateGroupID = groupID
	second.PublishedAt = first.PublishedAt.Add(-time.Hour)
	stored2, err := g.Store(ctx, second)
	require.NoError(t, err)

	got1, err := g.Get(ctx, stored1.ID)
	require.NoError(t, err)
	got2, err := g.Get(ctx, stored2.ID)
	require.NoError(t, err)

	assert.False(t, got1.IsPrimary, "previous primary must be demoted")
	assert.True(t, got2.IsPrimary)
}

func TestGateway_NonPrimaryJoinLeavesPrimaryAlone(t *testing.T) {
	db := newTestDB(t)
	creatorID := seedCreator(t, db, "writer")
	g := NewGateway(db)
	ctx := context.Background()

	groupID := uuid.NewString()

	first := testItem(creatorID, "post-1")
	first.DuplicateGroupID = groupID
	stored1, err := g.Store(ctx, first)
	require.NoError(t, err)

	second := testItem(creatorID, "post-2")
	second.DuplicateGroupID = groupID
	second.IsPrimary = false
	_, err = g.Store(ctx, second)
	require.NoError(t, err)

	got1, err := g.Get(ctx, stored1.ID)
	require.NoError(t, err)
	assert.True(t, got1.IsPrimary)
}

func TestGateway_UpdateByIdentity(t *testing.T) {
	db := newTestDB(t)
	creatorID := seedCreator(t, db, "writer")
	g := NewGateway(db)
	ctx := context.Background()

	_, err := g.Store(ctx, testItem(creatorID, "post-1"))
	require.NoError(t, err)

	newTitle := "Refreshed title"
	status := models.StatusProcessed
	updated, err := g.UpdateByIdentity(ctx, creatorID, models.PlatformRSS, "post-1", UpdateFields{
		Title:             &newTitle,
		EngagementMetrics: models.EngagementMetrics{"likes": 99},
		ProcessingStatus:  &status,
	})
	require.NoError(t, err)

	assert.Equal(t, "Refreshed title", updated.Title)
	assert.Equal(t, models.EngagementMetrics{"likes": 99}, updated.EngagementMetrics)
	assert.Equal(t, "body of post-1", updated.ContentBody, "untouched fields keep their value")
}

func TestGateway_UpdateByIdentityNotFound(t *testing.T) {
	db := newTestDB(t)
	creatorID := seedCreator(t, db, "writer")
	g := NewGateway(db)

	title := "x"
	_, err := g.UpdateByIdentity(context.Background(), creatorID, models.PlatformRSS, "missing", UpdateFields{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGateway_UpdateRejectsEmptyMediaURL(t *testing.T) {
	db := newTestDB(t)
	creatorID := seedCreator(t, db, "writer")
	g := NewGateway(db)
	ctx := context.Background()

	_, err := g.Store(ctx, testItem(creatorID, "post-1"))
	require.NoError(t, err)

	_, err = g.UpdateByIdentity(ctx, creatorID, models.PlatformRSS, "post-1", UpdateFields{
		MediaURLs: models.MediaList{{Type: models.MediaImage}},
	})
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestGateway_Delete(t *testing.T) {
	db := newTestDB(t)
	creatorID := seedCreator(t, db, "writer")
	g := NewGateway(db)
	ctx := context.Background()

	stored, err := g.Store(ctx, testItem(creatorID, "post-1"))
	require.NoError(t, err)

	require.NoError(t, g.Delete(ctx, stored.ID))
	assert.ErrorIs(t, g.Delete(ctx, stored.ID), ErrNotFound)

	_, err = g.Get(ctx, stored.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGateway_DeleteByCreator(t *testing.T) {
	db := newTestDB(t)
	creatorA := seedCreator(t, db, "alpha")
	creatorB := seedCreator(t, db, "beta")
	g := NewGateway(db)
	ctx := context.Background()

	_, err := g.Store(ctx, testItem(creatorA, "post-1"))
	require.NoError(t, err)
	_, err = g.Store(ctx, testItem(creatorA, "post-2"))
	require.NoError(t, err)
	_, err = g.Store(ctx, testItem(creatorB, "post-3"))
	require.NoError(t, err)

	removed, err := g.DeleteByCreator(ctx, creatorA)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	_, err = g.GetByIdentity(ctx, creatorB, models.PlatformRSS, "post-3")
	assert.NoError(t, err, "other creators' content survives")
}

func TestGateway_Exists(t *testing.T) {
	db := newTestDB(t)
	creatorID := seedCreator(t, db, "writer")
	g := NewGateway(db)
	ctx := context.Background()

	exists, err := g.Exists(ctx, creatorID, models.PlatformRSS, "post-1")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = g.Store(ctx, testItem(creatorID, "post-1"))
	require.NoError(t, err)

	exists, err = g.Exists(ctx, creatorID, models.PlatformRSS, "post-1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = g.Exists(ctx, creatorID, models.PlatformTwitter, "post-1")
	require.NoError(t, err)
	assert.False(t, exists, "identity is scoped per platform")
}

func TestGateway_PurgeOlderThanValidation(t *testing.T) {
	db := newTestDB(t)
	g := NewGateway(db)

	_, err := g.PurgeOlderThan(context.Background(), 0)
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}
