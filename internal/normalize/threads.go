package normalize

import (
	"fmt"

	"creatorpulse/aggregator/internal/models"
	"creatorpulse/aggregator/internal/platform"
)

// normalizeThreads maps a Threads post onto the canonical shape.
//
// A post with video versions is a video post and its image candidates are
// treated as the poster frame, never emitted as a second media entry.
// Carousel children are each mapped independently.
func normalizeThreads(p platform.ThreadsPayload) (models.ContentItem, error) {
	contentID := p.ID
	if contentID == "" {
		contentID = p.Code
	}
	if contentID == "" {
		return models.ContentItem{}, ErrMissingIdentity
	}

	item := models.ContentItem{
		PlatformContentID: contentID,
		URL:               threadsURL(p.AuthorHandle, p.Code),
		ContentBody:       p.Text,
		EngagementMetrics: threadsMetrics(p),
	}
	if p.TakenAt != nil {
		item.PublishedAt = p.TakenAt.UTC()
	}

	if len(p.CarouselMedia) > 0 {
		for _, child := range p.CarouselMedia {
			if entry, ok := threadsPrimaryMedia(child); ok {
				item.MediaURLs = append(item.MediaURLs, entry)
			}
		}
	} else if entry, ok := threadsPrimaryMedia(p); ok {
		item.MediaURLs = append(item.MediaURLs, entry)
	}

	if item.ThumbnailURL == "" {
		for _, m := range item.MediaURLs {
			if m.ThumbnailURL != "" {
				item.ThumbnailURL = m.ThumbnailURL
				break
			}
			if m.Type == models.MediaImage {
				item.ThumbnailURL = m.URL
				break
			}
		}
	}

	switch {
	case p.RepostedPost != nil:
		item.ReferenceType = models.ReferenceRetweet
		item.ReferencedContent = referencedThreads(p.RepostedPost)
	case p.QuotedPost != nil:
		item.ReferenceType = models.ReferenceQuote
		item.ReferencedContent = referencedThreads(p.QuotedPost)
	case p.ReplyToID != "":
		item.ReferenceType = models.ReferenceReply
		item.ReferencedContent = &models.ReferencedContent{ID: p.ReplyToID}
	}

	return item, nil
}

// threadsPrimaryMedia resolves the single primary attachment of a post or
// carousel child: video when video versions exist, otherwise the first
// image candidate.
func threadsPrimaryMedia(p platform.ThreadsPayload) (models.MediaEntry, bool) {
	if len(p.VideoVersions) > 0 && p.VideoVersions[0].URL != "" {
		entry := models.MediaEntry{
			URL:  p.VideoVersions[0].URL,
			Type: models.MediaVideo,
		}
		if len(p.ImageVersions) > 0 {
			entry.ThumbnailURL = p.ImageVersions[0].URL
		}
		return entry, true
	}

	if len(p.ImageVersions) > 0 && p.ImageVersions[0].URL != "" {
		img := p.ImageVersions[0]
		return models.MediaEntry{
			URL:    img.URL,
			Type:   models.MediaImage,
			Width:  img.Width,
			Height: img.Height,
		}, true
	}

	return models.MediaEntry{}, false
}

func threadsMetrics(p platform.ThreadsPayload) models.EngagementMetrics {
	metrics := models.EngagementMetrics{}
	put := func(key string, v *int64) {
		if v != nil {
			metrics[key] = float64(*v)
		}
	}
	put("likes", p.LikeCount)
	put("replies", p.ReplyCount)
	put("reposts", p.RepostCount)
	if len(metrics) == 0 {
		return nil
	}
	return metrics
}

// referencedThreads builds the reduced-shape reference for a quoted or
// reposted post, same rule as LinkedIn reshares.
func referencedThreads(p *platform.ThreadsPayload) *models.ReferencedContent {
	ref := &models.ReferencedContent{
		ID:     p.ID,
		Author: p.AuthorHandle,
		URL:    threadsURL(p.AuthorHandle, p.Code),
		Body:   p.Text,
	}
	if p.TakenAt != nil {
		posted := p.TakenAt.UTC()
		ref.PostedAt = &posted
	}
	if entry, ok := threadsPrimaryMedia(*p); ok {
		ref.Media = models.MediaList{entry}
	}
	return ref
}

func threadsURL(handle, code string) string {
	if handle == "" || code == "" {
		return ""
	}
	return fmt.Sprintf("https://www.threads.net/@%s/post/%s", handle, code)
}
