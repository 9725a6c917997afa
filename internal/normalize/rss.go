package normalize

import (
	"fmt"
	"time"

	"creatorpulse/aggregator/internal/models"
	"creatorpulse/aggregator/internal/platform"
)

// normalizeRSS maps a fetched feed item onto the canonical shape.
//
// Body text prefers the full content block over the description and
// summary, in that order. Inline <img> tags become image media entries
// and an enclosure becomes a media entry typed from its MIME prefix.
func normalizeRSS(p platform.RSSPayload, sourceURL string) (models.ContentItem, error) {
	body := p.Content
	if body == "" {
		body = p.Description
	}
	if body == "" {
		body = p.Summary
	}

	description := p.Description
	if description == "" {
		description = p.Summary
	}

	item := models.ContentItem{
		PlatformContentID: rssContentID(p, sourceURL),
		URL:               p.Link,
		Title:             p.Title,
		Description:       extractText(description),
		ContentBody:       body,
	}
	if p.PublishedAt != nil {
		item.PublishedAt = p.PublishedAt.UTC()
	}

	for _, src := range extractImageURLs(body) {
		item.MediaURLs = append(item.MediaURLs, models.MediaEntry{
			URL:  src,
			Type: models.MediaImage,
		})
	}
	if item.ThumbnailURL == "" && len(item.MediaURLs) > 0 {
		item.ThumbnailURL = item.MediaURLs[0].URL
	}

	if p.Enclosure != nil && p.Enclosure.URL != "" {
		item.MediaURLs = append(item.MediaURLs, models.MediaEntry{
			URL:  p.Enclosure.URL,
			Type: mediaTypeFromMIME(p.Enclosure.MIMEType),
		})
	}

	return item, nil
}

// rssContentID falls back through guid, link, and a synthesized
// feedURL_pubDate key for feeds that supply neither.
func rssContentID(p platform.RSSPayload, sourceURL string) string {
	if p.GUID != "" {
		return p.GUID
	}
	if p.Link != "" {
		return p.Link
	}

	feedURL := p.FeedURL
	if feedURL == "" {
		feedURL = sourceURL
	}
	published := time.Now().UTC()
	if p.PublishedAt != nil {
		published = p.PublishedAt.UTC()
	}
	return fmt.Sprintf("%s_%s", feedURL, published.Format(time.RFC3339))
}
