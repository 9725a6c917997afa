// Package normalize converts raw per-platform payloads into the canonical
// content item shape. Normalizers are pure functions: no I/O, no side
// effects, and they never fail on missing optional fields. The only hard
// failure is a payload that cannot satisfy the identity invariant.
package normalize

import (
	"errors"
	"fmt"
	"time"

	"creatorpulse/aggregator/internal/models"
	"creatorpulse/aggregator/internal/platform"
)

// ErrMissingIdentity marks a payload that carries neither a native ID nor
// a URL. Such items cannot be stored and are skipped by batch callers.
var ErrMissingIdentity = errors.New("payload has no platform content id and no url")

// Normalize maps a decoded raw payload onto the canonical item for the
// given creator. sourceURL is the followed source the payload came from
// and is only used for synthesized fallback identifiers.
func Normalize(p platform.Payload, creatorID int64, sourceURL string) (models.ContentItem, error) {
	var (
		item models.ContentItem
		err  error
	)

	switch v := p.(type) {
	case platform.RSSPayload:
		item, err = normalizeRSS(v, sourceURL)
	case platform.TweetPayload:
		item, err = normalizeTweet(v)
	case platform.LinkedInPayload:
		item, err = normalizeLinkedIn(v)
	case platform.ThreadsPayload:
		item, err = normalizeThreads(v)
	case platform.YouTubePayload:
		item, err = normalizeYouTube(v)
	case platform.WebsitePayload:
		item, err = normalizeWebsite(v)
	default:
		return models.ContentItem{}, fmt.Errorf("no normalizer for payload type %T", p)
	}
	if err != nil {
		return models.ContentItem{}, err
	}

	item.CreatorID = creatorID
	item.Platform = p.Platform()
	finalize(&item)
	return item, nil
}

const readingWordsPerMinute = 200

// finalize fills the neutral defaults every canonical item carries:
// ingestion-time publish timestamp when the source gave none, derived
// reading metrics, media entries without URLs dropped.
func finalize(item *models.ContentItem) {
	if item.PublishedAt.IsZero() {
		item.PublishedAt = time.Now().UTC()
	}
	if item.ReferenceType == "" {
		item.ReferenceType = models.ReferenceNone
	}
	if item.ProcessingStatus == "" {
		item.ProcessingStatus = item.Platform.DefaultProcessingStatus()
	}

	item.MediaURLs = dropEmptyMedia(item.MediaURLs)

	if item.WordCount == 0 {
		item.WordCount = wordCount(extractText(item.ContentBody))
	}
	if item.ReadingTimeMins == 0 && item.WordCount > 0 {
		item.ReadingTimeMins = (item.WordCount + readingWordsPerMinute - 1) / readingWordsPerMinute
	}
}

// dropEmptyMedia removes entries without a resolvable URL. An attachment
// that cannot be fetched cannot pass downstream validation.
func dropEmptyMedia(media models.MediaList) models.MediaList {
	if len(media) == 0 {
		return media
	}
	kept := media[:0]
	for _, m := range media {
		if m.URL == "" {
			continue
		}
		kept = append(kept, m)
	}
	return kept
}

// mediaTypeFromMIME infers a media type from a MIME type prefix,
// defaulting to document for anything unrecognized.
func mediaTypeFromMIME(mime string) models.MediaType {
	switch {
	case hasMIMEPrefix(mime, "image/"):
		return models.MediaImage
	case hasMIMEPrefix(mime, "video/"):
		return models.MediaVideo
	case hasMIMEPrefix(mime, "audio/"):
		return models.MediaAudio
	default:
		return models.MediaDocument
	}
}

func hasMIMEPrefix(mime, prefix string) bool {
	return len(mime) >= len(prefix) && mime[:len(prefix)] == prefix
}
