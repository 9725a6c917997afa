package normalize

import (
	"fmt"

	"creatorpulse/aggregator/internal/models"
	"creatorpulse/aggregator/internal/platform"
)

// normalizeYouTube is a stub mapping: whatever subset of video fields is
// available lands in the canonical shape, absent fields are omitted.
func normalizeYouTube(p platform.YouTubePayload) (models.ContentItem, error) {
	if p.VideoID == "" {
		return models.ContentItem{}, ErrMissingIdentity
	}

	item := models.ContentItem{
		PlatformContentID: p.VideoID,
		URL:               fmt.Sprintf("https://www.youtube.com/watch?v=%s", p.VideoID),
		Title:             p.Title,
		Description:       p.Description,
		ContentBody:       p.Description,
		ThumbnailURL:      p.ThumbnailURL,
		EngagementMetrics: youtubeMetrics(p),
	}
	if p.PublishedAt != nil {
		item.PublishedAt = p.PublishedAt.UTC()
	}

	entry := models.MediaEntry{
		URL:          item.URL,
		Type:         models.MediaVideo,
		DurationSecs: p.DurationSecs,
		ThumbnailURL: p.ThumbnailURL,
	}
	item.MediaURLs = models.MediaList{entry}

	return item, nil
}

func youtubeMetrics(p platform.YouTubePayload) models.EngagementMetrics {
	metrics := models.EngagementMetrics{}
	put := func(key string, v *int64) {
		if v != nil {
			metrics[key] = float64(*v)
		}
	}
	put("views", p.ViewCount)
	put("likes", p.LikeCount)
	put("comments", p.CommentCount)
	if len(metrics) == 0 {
		return nil
	}
	return metrics
}
