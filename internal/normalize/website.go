package normalize

import (
	"creatorpulse/aggregator/internal/models"
	"creatorpulse/aggregator/internal/platform"
)

// normalizeWebsite is a stub mapping for scraped generic pages. The page
// URL doubles as the platform content id.
func normalizeWebsite(p platform.WebsitePayload) (models.ContentItem, error) {
	if p.URL == "" {
		return models.ContentItem{}, ErrMissingIdentity
	}

	item := models.ContentItem{
		PlatformContentID: p.URL,
		URL:               p.URL,
		Title:             p.Title,
		Description:       p.Description,
		ContentBody:       p.Content,
		ThumbnailURL:      p.ImageURL,
	}
	if p.PublishedAt != nil {
		item.PublishedAt = p.PublishedAt.UTC()
	}
	if p.ImageURL != "" {
		item.MediaURLs = models.MediaList{{URL: p.ImageURL, Type: models.MediaImage}}
	}
	return item, nil
}
