package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creatorpulse/aggregator/internal/models"
	"creatorpulse/aggregator/internal/server/pagination"
	"creatorpulse/aggregator/internal/server/storage"
)

// stubRepo returns a canned item list and records the last call.
type stubRepo struct {
	items      []models.ContentItem
	err        error
	lastLimit  int
	lastFilter storage.ContentFilter
}

func (s *stubRepo) FetchContent(_ context.Context, limit int, _ *time.Time, _ *time.Time, _ *int64, filter storage.ContentFilter) ([]models.ContentItem, error) {
	s.lastLimit = limit
	s.lastFilter = filter
	return s.items, s.err
}

func getContent(t *testing.T, repo storage.ContentRepository, query string) *httptest.ResponseRecorder {
	t.Helper()

	handler := NewContentHandler(repo)
	req := httptest.NewRequest(http.MethodGet, "/v1/content"+query, nil)
	rec := httptest.NewRecorder()
	handler.GetContent(rec, req)
	return rec
}

func TestGetContent_RequiresSinceOrCursor(t *testing.T) {
	rec := getContent(t, &stubRepo{}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetContent_InvalidParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"bad limit", "?since=2026-04-01T00:00:00Z&limit=0"},
		{"limit too large", "?since=2026-04-01T00:00:00Z&limit=99999"},
		{"bad since", "?since=yesterday"},
		{"bad cursor", "?cursor=!!!"},
		{"bad creator_id", "?since=2026-04-01T00:00:00Z&creator_id=-1"},
		{"bad platform", "?since=2026-04-01T00:00:00Z&platform=myspace"},
		{"bad primary_only", "?since=2026-04-01T00:00:00Z&primary_only=maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := getContent(t, &stubRepo{}, tt.query)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGetContent_NextCursorOnFullPage(t *testing.T) {
	// Three items back for a limit of two means one extra, so a next
	// cursor pointing at the second item must be returned.
	now := time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)
	repo := &stubRepo{items: []models.ContentItem{
		{ID: 1, CreatedAt: now},
		{ID: 2, CreatedAt: now.Add(time.Second)},
		{ID: 3, CreatedAt: now.Add(2 * time.Second)},
	}}

	rec := getContent(t, repo, "?since=2026-04-01T00:00:00Z&limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, repo.lastLimit, "handler fetches one extra row to detect the next page")

	var resp ContentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Items, 2)
	require.NotNil(t, resp.NextCursor)

	ts, id, err := pagination.DecodeCursor(*resp.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)
	assert.True(t, ts.Equal(now.Add(time.Second)))
}

func TestGetContent_NoNextCursorOnShortPage(t *testing.T) {
	repo := &stubRepo{items: []models.ContentItem{{ID: 1, CreatedAt: time.Now().UTC()}}}

	rec := getContent(t, repo, "?since=2026-04-01T00:00:00Z&limit=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ContentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Items, 1)
	assert.Nil(t, resp.NextCursor)
}

func TestGetContent_FilterPassthrough(t *testing.T) {
	repo := &stubRepo{}

	rec := getContent(t, repo, "?since=2026-04-01T00:00:00Z&creator_id=7&platform=twitter&primary_only=true")
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, repo.lastFilter.CreatorID)
	assert.Equal(t, int64(7), *repo.lastFilter.CreatorID)
	require.NotNil(t, repo.lastFilter.Platform)
	assert.Equal(t, models.PlatformTwitter, *repo.lastFilter.Platform)
	assert.True(t, repo.lastFilter.PrimaryOnly)
}

func TestPostIngest_Validation(t *testing.T) {
	// Requests rejected before processing never touch the orchestrator,
	// so a nil one is safe here.
	handler := NewIngestHandler(nil)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{broken`},
		{"unknown field", `{"creator_id":1,"items":[],"extra":true}`},
		{"missing creator", `{"items":[{"platform":"rss","payload":{}}]}`},
		{"empty items", `{"creator_id":1,"items":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/ingest", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.PostIngest(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
