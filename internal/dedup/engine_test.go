package dedup

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creatorpulse/aggregator/internal/contenthash"
	"creatorpulse/aggregator/internal/database"
	"creatorpulse/aggregator/internal/models"
	"creatorpulse/aggregator/internal/store"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	cfg := database.NewConfig(filepath.Join(t.TempDir(), "test.db"))
	db, err := database.NewDB(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedCreator(t *testing.T, db *database.DB) int64 {
	t.Helper()

	creator := models.NewCreator()
	creator.Handle = "writer"
	id, err := db.InsertCreator(creator)
	require.NoError(t, err)
	return id
}

func candidate(creatorID int64, platform models.Platform, contentID, title, body string, published time.Time) models.ContentItem {
	return models.ContentItem{
		CreatorID:         creatorID,
		Platform:          platform,
		PlatformContentID: contentID,
		Title:             title,
		ContentBody:       body,
		PublishedAt:       published,
		ProcessingStatus:  models.StatusProcessed,
		ReferenceType:     models.ReferenceNone,
	}
}

func TestEngine_NewGroupForUnseenContent(t *testing.T) {
	db := newTestDB(t)
	creatorID := seedCreator(t, db)
	engine := NewEngine(db)
	ctx := context.Background()

	item := candidate(creatorID, models.PlatformRSS, "post-1", "Launch day", "We shipped it.", time.Now().UTC())

	res, err := engine.Resolve(ctx, item)
	require.NoError(t, err)

	assert.Equal(t, contenthash.Hash(item), res.ContentHash)
	assert.NotEmpty(t, res.DuplicateGroupID)
	assert.True(t, res.IsPrimary, "first sighting starts its group as primary")
}

func TestEngine_LaterDuplicateJoinsGroupAsSecondary(t *testing.T) {
	db := newTestDB(t)
	creatorID := seedCreator(t, db)
	engine := NewEngine(db)
	gateway := store.NewGateway(db)
	ctx := context.Background()

	published := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	first := candidate(creatorID, models.PlatformRSS, "post-1", "Launch day", "We shipped it.", published)
	res, err := engine.Resolve(ctx, first)
	require.NoError(t, err)
	res.Apply(&first)
	_, err = gateway.Store(ctx, first)
	require.NoError(t, err)

	// Same text cross-posted later on another platform.
	second := candidate(creatorID, models.PlatformLinkedIn, "urn:li:share:1", "Launch Day", "We  shipped it.", published.Add(2*time.Hour))
	res2, err := engine.Resolve(ctx, second)
	require.NoError(t, err)

	assert.Equal(t, res.ContentHash, res2.ContentHash)
	assert.Equal(t, res.DuplicateGroupID, res2.DuplicateGroupID)
	assert.False(t, res2.IsPrimary, "later copy joins as secondary")
}

func TestEngine_EarlierPublishedDisplacesPrimary(t *testing.T) {
	db := newTestDB(t)
	creatorID := seedCreator(t, db)
	engine := NewEngine(db)
	gateway := store.NewGateway(db)
	ctx := context.Background()

	published := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	first := candidate(creatorID, models.PlatformLinkedIn, "urn:li:share:1", "Launch day", "We shipped it.", published)
	res, err := engine.Resolve(ctx, first)
	require.NoError(t, err)
	res.Apply(&first)
	stored, err := gateway.Store(ctx, first)
	require.NoError(t, err)

	// The original post turns out to be older.
	original := candidate(creatorID, models.PlatformRSS, "post-1", "Launch day", "We shipped it.", published.Add(-time.Hour))
	res2, err := engine.Resolve(ctx, original)
	require.NoError(t, err)
	require.True(t, res2.IsPrimary)
	res2.Apply(&original)
	_, err = gateway.Store(ctx, original)
	require.NoError(t, err)

	demoted, err := gateway.Get(ctx, stored.ID)
	require.NoError(t, err)
	assert.False(t, demoted.IsPrimary)
}

func TestEngine_EqualTimestampKeepsFirstIngested(t *testing.T) {
	db := newTestDB(t)
	creatorID := seedCreator(t, db)
	engine := NewEngine(db)
	gateway := store.NewGateway(db)
	ctx := context.Background()

	published := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	first := candidate(creatorID, models.PlatformRSS, "post-1", "Launch day", "We shipped it.", published)
	res, err := engine.Resolve(ctx, first)
	require.NoError(t, err)
	res.Apply(&first)
	_, err = gateway.Store(ctx, first)
	require.NoError(t, err)

	second := candidate(creatorID, models.PlatformThreads, "t-1", "Launch day", "We shipped it.", published)
	res2, err := engine.Resolve(ctx, second)
	require.NoError(t, err)
	assert.False(t, res2.IsPrimary, "ties keep the first-ingested item primary")
}

func TestResolution_Apply(t *testing.T) {
	var item models.ContentItem
	Resolution{ContentHash: "h", DuplicateGroupID: "g", IsPrimary: true}.Apply(&item)

	assert.Equal(t, "h", item.ContentHash)
	assert.Equal(t, "g", item.DuplicateGroupID)
	assert.True(t, item.IsPrimary)
}
