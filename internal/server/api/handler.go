package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/hlog"

	"creatorpulse/aggregator/internal/batch"
	"creatorpulse/aggregator/internal/models"
	"creatorpulse/aggregator/internal/platform"
	"creatorpulse/aggregator/internal/server/pagination"
	"creatorpulse/aggregator/internal/server/storage"
)

const defaultLimit = 100
const maxLimit = 1000
const iso8601Format = time.RFC3339
const maxIngestItems = 500

// ContentResponse is the payload of the content listing endpoint.
type ContentResponse struct {
	Items      []models.ContentItem `json:"items"`
	NextCursor *string              `json:"next_cursor,omitempty"`
}

// ContentHandler holds dependencies for the content listing endpoint.
type ContentHandler struct {
	repo storage.ContentRepository
}

// NewContentHandler creates a new handler instance.
func NewContentHandler(repo storage.ContentRepository) *ContentHandler {
	return &ContentHandler{
		repo: repo,
	}
}

// GetContent handles requests to list processed content items.
func (h *ContentHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	log.Debug().Msg("Processing content listing request")

	ctx := r.Context()

	query := r.URL.Query()
	limitStr := query.Get("limit")
	sinceStr := query.Get("since")
	cursorStr := query.Get("cursor")

	limit := defaultLimit
	if limitStr != "" {
		parsedLimit, err := strconv.Atoi(limitStr)
		if err != nil || parsedLimit <= 0 || parsedLimit > maxLimit {
			log.Warn().Err(err).Str("limit", limitStr).Msg("Invalid 'limit' parameter value")
			http.Error(w, fmt.Sprintf("Invalid 'limit' parameter: must be between 1 and %d", maxLimit), http.StatusBadRequest)
			return
		}
		limit = parsedLimit
	}

	var since *time.Time
	var cursorTimestamp *time.Time
	var cursorID *int64

	if cursorStr != "" {
		ts, id, err := pagination.DecodeCursor(cursorStr)
		if err != nil {
			log.Warn().Err(err).Str("cursor", cursorStr).Msg("Invalid 'cursor' parameter")
			http.Error(w, "Invalid 'cursor' parameter", http.StatusBadRequest)
			return
		}
		cursorTimestamp = &ts
		cursorID = &id
	} else if sinceStr != "" {
		parsedSince, err := time.Parse(iso8601Format, sinceStr)
		if err != nil {
			log.Warn().Err(err).Str("since", sinceStr).Msg("Invalid 'since' parameter format")
			http.Error(w, "Invalid 'since' parameter: use RFC3339 format (e.g., 2025-03-28T15:00:00Z)", http.StatusBadRequest)
			return
		}
		utcSince := parsedSince.UTC()
		since = &utcSince
	} else {
		log.Warn().Msg("Missing required parameter: 'since' or 'cursor'")
		http.Error(w, "Missing required parameter: 'since' or 'cursor'", http.StatusBadRequest)
		return
	}

	filter, err := parseContentFilter(query)
	if err != nil {
		log.Warn().Err(err).Msg("Invalid filter parameter")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	items, err := h.repo.FetchContent(ctx, limit+1, since, cursorTimestamp, cursorID, filter) // Fetch one extra
	if err != nil {
		errLogEvent := log.Error().Err(err)
		if since != nil {
			errLogEvent = errLogEvent.Time("since", *since)
		}
		errLogEvent.Str("cursor", cursorStr).Msg("Error fetching content items from repository")

		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var nextCursorStr *string
	hasNextPage := len(items) > limit
	actualItems := items
	if hasNextPage {
		actualItems = items[:limit]
		if len(actualItems) > 0 {
			lastItem := actualItems[len(actualItems)-1]
			cursor := pagination.EncodeCursor(lastItem.CreatedAt.UTC(), lastItem.ID)
			nextCursorStr = &cursor
		}
	}

	writeJSON(w, r, http.StatusOK, ContentResponse{
		Items:      actualItems,
		NextCursor: nextCursorStr,
	})
}

func parseContentFilter(query map[string][]string) (storage.ContentFilter, error) {
	var filter storage.ContentFilter

	get := func(key string) string {
		if vals := query[key]; len(vals) > 0 {
			return vals[0]
		}
		return ""
	}

	if creatorStr := get("creator_id"); creatorStr != "" {
		creatorID, err := strconv.ParseInt(creatorStr, 10, 64)
		if err != nil || creatorID <= 0 {
			return filter, fmt.Errorf("invalid 'creator_id' parameter")
		}
		filter.CreatorID = &creatorID
	}
	if platformStr := get("platform"); platformStr != "" {
		p := models.Platform(platformStr)
		if !p.Valid() {
			return filter, fmt.Errorf("invalid 'platform' parameter")
		}
		filter.Platform = &p
	}
	if primaryStr := get("primary_only"); primaryStr != "" {
		primaryOnly, err := strconv.ParseBool(primaryStr)
		if err != nil {
			return filter, fmt.Errorf("invalid 'primary_only' parameter")
		}
		filter.PrimaryOnly = primaryOnly
	}

	return filter, nil
}

// IngestRequest is the body of the push ingestion endpoint: one creator,
// one optional source URL, and a list of tagged raw payloads.
type IngestRequest struct {
	CreatorID int64              `json:"creator_id"`
	SourceURL string             `json:"source_url,omitempty"`
	Items     []platform.RawItem `json:"items"`
}

// IngestHandler accepts pushed raw payloads from external fetchers.
type IngestHandler struct {
	orchestrator *batch.Orchestrator
}

// NewIngestHandler creates a new handler instance.
func NewIngestHandler(orchestrator *batch.Orchestrator) *IngestHandler {
	return &IngestHandler{orchestrator: orchestrator}
}

// PostIngest handles POST /v1/ingest. The batch result is returned as-is;
// per-item errors never fail the request.
func (h *IngestHandler) PostIngest(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	log.Debug().Msg("Processing ingest request")

	var req IngestRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		log.Warn().Err(err).Msg("Invalid ingest request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.CreatorID <= 0 {
		http.Error(w, "'creator_id' is required", http.StatusBadRequest)
		return
	}
	if len(req.Items) == 0 {
		http.Error(w, "'items' must not be empty", http.StatusBadRequest)
		return
	}
	if len(req.Items) > maxIngestItems {
		http.Error(w, fmt.Sprintf("'items' exceeds the maximum of %d", maxIngestItems), http.StatusBadRequest)
		return
	}

	result := h.orchestrator.ProcessRaw(r.Context(), req.CreatorID, req.SourceURL, req.Items)

	log.Info().
		Int64("creator_id", req.CreatorID).
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Int("errors", len(result.Errors)).
		Msg("Ingest request processed")

	writeJSON(w, r, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	log := hlog.FromRequest(r)

	jsonBytes, err := json.Marshal(body)
	if err != nil {
		log.Error().Err(err).Msg("Error marshaling JSON response")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(jsonBytes); err != nil {
		log.Error().Err(err).Msg("Error writing JSON response body to client")
		// Cannot reliably send a different status code here.
	}
	log.Debug().Int("bytes_written", len(jsonBytes)).Msg("Response completed")
}
