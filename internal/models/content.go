package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Platform identifies the source network a content item was ingested from.
type Platform string

const (
	PlatformRSS      Platform = "rss"
	PlatformYouTube  Platform = "youtube"
	PlatformTwitter  Platform = "twitter"
	PlatformLinkedIn Platform = "linkedin"
	PlatformThreads  Platform = "threads"
	PlatformWebsite  Platform = "website"
)

// Valid reports whether p is one of the known platforms.
func (p Platform) Valid() bool {
	switch p {
	case PlatformRSS, PlatformYouTube, PlatformTwitter, PlatformLinkedIn, PlatformThreads, PlatformWebsite:
		return true
	}
	return false
}

// DefaultProcessingStatus returns the lifecycle state newly normalized
// items start in. Platforms with a deterministic normalizer go straight
// to processed; exploratory ones stay pending and hidden from readers.
func (p Platform) DefaultProcessingStatus() ProcessingStatus {
	switch p {
	case PlatformYouTube, PlatformWebsite:
		return StatusPending
	default:
		return StatusProcessed
	}
}

// ProcessingStatus is the lifecycle state of a stored content item.
type ProcessingStatus string

const (
	StatusPending   ProcessingStatus = "pending"
	StatusProcessed ProcessingStatus = "processed"
	StatusFailed    ProcessingStatus = "failed"
)

// ReferenceType describes how an item relates to another post.
type ReferenceType string

const (
	ReferenceNone    ReferenceType = "none"
	ReferenceQuote   ReferenceType = "quote"
	ReferenceRetweet ReferenceType = "retweet"
	ReferenceReply   ReferenceType = "reply"
)

// MediaType classifies a media attachment.
type MediaType string

const (
	MediaImage       MediaType = "image"
	MediaVideo       MediaType = "video"
	MediaAudio       MediaType = "audio"
	MediaDocument    MediaType = "document"
	MediaLinkPreview MediaType = "link_preview"
)

// MediaEntry is a single attachment on a content item. URL is required;
// entries without a resolvable URL are dropped before persistence.
type MediaEntry struct {
	URL          string    `json:"url"`
	Type         MediaType `json:"type"`
	Width        int       `json:"width,omitempty"`
	Height       int       `json:"height,omitempty"`
	DurationSecs int       `json:"duration_secs,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	LinkTitle    string    `json:"link_title,omitempty"`
	LinkDesc     string    `json:"link_description,omitempty"`
	LinkDomain   string    `json:"link_domain,omitempty"`
}

// MediaList is a JSON-encoded media_urls column.
type MediaList []MediaEntry

// EngagementMetrics is a free-form numeric map (likes, comments, shares,
// views). Absent metrics are omitted rather than defaulted to zero.
type EngagementMetrics map[string]float64

// ReferencedContent is the reduced-shape description of a quoted,
// retweeted or replied-to post. Only ID and Author may be populated when
// the source exposes no full content.
type ReferencedContent struct {
	ID       string     `json:"id,omitempty"`
	Author   string     `json:"author,omitempty"`
	URL      string     `json:"url,omitempty"`
	Title    string     `json:"title,omitempty"`
	Body     string     `json:"body,omitempty"`
	Media    MediaList  `json:"media,omitempty"`
	PostedAt *time.Time `json:"posted_at,omitempty"`
}

// ContentItem is the canonical record every platform payload is mapped
// into, and a row in the content_items table.
type ContentItem struct {
	ID                int64              `db:"id" json:"id"`
	CreatorID         int64              `db:"creator_id" json:"creator_id"`
	Platform          Platform           `db:"platform" json:"platform"`
	PlatformContentID string             `db:"platform_content_id" json:"platform_content_id"`
	URL               string             `db:"url" json:"url"`
	Title             string             `db:"title" json:"title"`
	Description       string             `db:"description" json:"description"`
	ContentBody       string             `db:"content_body" json:"content_body"`
	ThumbnailURL      string             `db:"thumbnail_url" json:"thumbnail_url"`
	MediaURLs         MediaList          `db:"media_urls" json:"media_urls"`
	EngagementMetrics EngagementMetrics  `db:"engagement_metrics" json:"engagement_metrics"`
	ReferenceType     ReferenceType      `db:"reference_type" json:"reference_type"`
	ReferencedContent *ReferencedContent `db:"referenced_content" json:"referenced_content,omitempty"`
	WordCount         int                `db:"word_count" json:"word_count"`
	ReadingTimeMins   int                `db:"reading_time_minutes" json:"reading_time_minutes"`
	PublishedAt       time.Time          `db:"published_at" json:"published_at"`
	ContentHash       string             `db:"content_hash" json:"content_hash"`
	DuplicateGroupID  string             `db:"duplicate_group_id" json:"duplicate_group_id"`
	IsPrimary         bool               `db:"is_primary" json:"is_primary"`
	ProcessingStatus  ProcessingStatus   `db:"processing_status" json:"processing_status"`
	CreatedAt         time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time          `db:"updated_at" json:"updated_at"`
}

// Value implements driver.Valuer for the media_urls JSON column.
func (m MediaList) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for the media_urls JSON column.
func (m *MediaList) Scan(src any) error {
	return scanJSON(src, m, "media_urls")
}

// Value implements driver.Valuer for the engagement_metrics JSON column.
func (e EngagementMetrics) Value() (driver.Value, error) {
	if len(e) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for the engagement_metrics JSON column.
func (e *EngagementMetrics) Scan(src any) error {
	return scanJSON(src, e, "engagement_metrics")
}

// Value implements driver.Valuer for the referenced_content JSON column.
func (r *ReferencedContent) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for the referenced_content JSON column.
func (r *ReferencedContent) Scan(src any) error {
	return scanJSON(src, r, "referenced_content")
}

func scanJSON(src, dst any, column string) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported scan type %T for %s", src, column)
	}
}
