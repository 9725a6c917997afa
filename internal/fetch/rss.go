// Package fetch holds the in-repo source fetchers. Only RSS is fetched
// directly; the scraping-API platforms push their payloads through the
// ingest endpoint instead.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"creatorpulse/aggregator/internal/platform"
)

const (
	defaultUserAgent = "CreatorPulse/1.0"
	defaultTimeout   = 15 * time.Second
	defaultMaxItems  = 100
)

// RSSFetcher downloads and parses a feed URL into raw RSS payloads.
type RSSFetcher struct {
	parser   *gofeed.Parser
	maxItems int
}

// NewRSSFetcher creates a fetcher with sane request defaults.
func NewRSSFetcher() *RSSFetcher {
	parser := gofeed.NewParser()
	parser.UserAgent = defaultUserAgent
	parser.Client = &http.Client{Timeout: defaultTimeout}

	return &RSSFetcher{
		parser:   parser,
		maxItems: defaultMaxItems,
	}
}

// Fetch retrieves the feed and maps its items to the raw payload shape
// the normalizer consumes. Items beyond the per-fetch cap are dropped,
// newest first ordering is whatever the feed publishes.
func (f *RSSFetcher) Fetch(ctx context.Context, feedURL string) ([]platform.Payload, error) {
	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", feedURL, err)
	}

	items := feed.Items
	if len(items) > f.maxItems {
		items = items[:f.maxItems]
	}

	payloads := make([]platform.Payload, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		payloads = append(payloads, toPayload(feed, item, feedURL))
	}
	return payloads, nil
}

func toPayload(feed *gofeed.Feed, item *gofeed.Item, feedURL string) platform.RSSPayload {
	p := platform.RSSPayload{
		GUID:        item.GUID,
		Link:        item.Link,
		Title:       item.Title,
		Content:     item.Content,
		Description: item.Description,
		FeedURL:     feedURL,
		FeedTitle:   feed.Title,
	}
	if item.PublishedParsed != nil {
		published := item.PublishedParsed.UTC()
		p.PublishedAt = &published
	} else if item.UpdatedParsed != nil {
		updated := item.UpdatedParsed.UTC()
		p.PublishedAt = &updated
	}

	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		p.Enclosure = &platform.RSSEnclosure{
			URL:      enc.URL,
			MIMEType: enc.Type,
		}
		break // first enclosure only, feeds rarely carry more
	}

	return p
}
