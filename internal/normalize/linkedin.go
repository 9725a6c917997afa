package normalize

import (
	"net/url"
	"strings"

	"creatorpulse/aggregator/internal/models"
	"creatorpulse/aggregator/internal/platform"
)

// normalizeLinkedIn maps a LinkedIn post onto the canonical shape.
//
// Posts lacking both a native ID and a URL are rejected with
// ErrMissingIdentity: they cannot satisfy the identity invariant and must
// be skipped rather than stored. Reshares map to a retweet reference.
func normalizeLinkedIn(p platform.LinkedInPayload) (models.ContentItem, error) {
	if p.ID == "" && p.URL == "" {
		return models.ContentItem{}, ErrMissingIdentity
	}

	contentID := p.ID
	if contentID == "" {
		contentID = p.URL
	}

	item := models.ContentItem{
		PlatformContentID: contentID,
		URL:               p.URL,
		ContentBody:       p.Text,
		EngagementMetrics: linkedInMetrics(p),
	}
	if p.PostedAt != nil {
		item.PublishedAt = p.PostedAt.UTC()
	}

	for _, img := range p.Images {
		item.MediaURLs = append(item.MediaURLs, models.MediaEntry{
			URL:    img.URL,
			Type:   models.MediaImage,
			Width:  img.Width,
			Height: img.Height,
		})
	}

	if v := p.Video; v != nil && v.URL != "" {
		thumb := v.ThumbnailURL
		if thumb == "" {
			thumb = linkedInVideoThumbnail(v.URL)
		}
		item.MediaURLs = append(item.MediaURLs, models.MediaEntry{
			URL:          v.URL,
			Type:         models.MediaVideo,
			DurationSecs: v.DurationSecs,
			ThumbnailURL: thumb,
		})
		if item.ThumbnailURL == "" {
			item.ThumbnailURL = thumb
		}
	}

	if a := p.Article; a != nil && a.URL != "" {
		item.MediaURLs = append(item.MediaURLs, models.MediaEntry{
			URL:          a.URL,
			Type:         models.MediaLinkPreview,
			ThumbnailURL: a.ImageURL,
			LinkTitle:    a.Title,
			LinkDesc:     a.Description,
			LinkDomain:   articleDomain(a),
		})
	}

	if d := p.Document; d != nil && d.URL != "" {
		item.MediaURLs = append(item.MediaURLs, models.MediaEntry{
			URL:       d.URL,
			Type:      models.MediaLinkPreview,
			LinkTitle: d.Title,
		})
	}

	if item.ThumbnailURL == "" {
		for _, m := range item.MediaURLs {
			if m.Type == models.MediaImage {
				item.ThumbnailURL = m.URL
				break
			}
		}
	}

	if re := p.ResharedPost; re != nil {
		item.ReferenceType = models.ReferenceRetweet
		item.ReferencedContent = referencedLinkedIn(re)
	}

	return item, nil
}

// linkedInVideoThumbnail derives a best-effort poster frame URL for a
// native video whose payload carried no explicit thumbnail. LinkedIn's
// CDN serves frame captures under the same asset path with the mp4
// rendition segment swapped for an image one.
func linkedInVideoThumbnail(videoURL string) string {
	u, err := url.Parse(videoURL)
	if err != nil || !strings.Contains(u.Path, "mp4") {
		return ""
	}
	u.Path = strings.Replace(u.Path, "mp4", "jpg", 1)
	u.RawQuery = ""
	return u.String()
}

func articleDomain(a *platform.LinkedInArticle) string {
	if a.Domain != "" {
		return a.Domain
	}
	u, err := url.Parse(a.URL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func linkedInMetrics(p platform.LinkedInPayload) models.EngagementMetrics {
	metrics := models.EngagementMetrics{}
	put := func(key string, v *int64) {
		if v != nil {
			metrics[key] = float64(*v)
		}
	}
	put("likes", p.NumLikes)
	put("comments", p.NumComments)
	put("shares", p.NumShares)
	if len(metrics) == 0 {
		return nil
	}
	return metrics
}

// referencedLinkedIn builds the reduced-shape reference for a reshared
// post. Only the fields the source exposes are populated.
func referencedLinkedIn(p *platform.LinkedInPayload) *models.ReferencedContent {
	ref := &models.ReferencedContent{
		ID:     p.ID,
		Author: p.AuthorHandle,
		URL:    p.URL,
		Body:   p.Text,
	}
	if p.PostedAt != nil {
		posted := p.PostedAt.UTC()
		ref.PostedAt = &posted
	}
	return ref
}
