package normalize

import (
	"fmt"

	"creatorpulse/aggregator/internal/models"
	"creatorpulse/aggregator/internal/platform"
)

// normalizeTweet maps a tweet onto the canonical shape. Tweets are
// titleless; video media prefers the highest-bitrate MP4 variant, and
// link-preview cards are merged with plain URL entities so the same link
// never produces two entries. Pure retweets are filtered upstream by the
// fetch layer and normally never reach this function; if one does, it is
// mapped as a retweet reference around the retweeted text.
func normalizeTweet(p platform.TweetPayload) (models.ContentItem, error) {
	if p.ID == "" {
		return models.ContentItem{}, ErrMissingIdentity
	}

	item := models.ContentItem{
		PlatformContentID: p.ID,
		URL:               tweetURL(p.AuthorHandle, p.ID),
		ContentBody:       p.Text,
		EngagementMetrics: tweetMetrics(p),
	}
	if p.CreatedAt != nil {
		item.PublishedAt = p.CreatedAt.UTC()
	}

	for _, m := range p.Media {
		entry, ok := tweetMediaEntry(m)
		if !ok {
			continue
		}
		item.MediaURLs = append(item.MediaURLs, entry)
		if item.ThumbnailURL == "" {
			if entry.ThumbnailURL != "" {
				item.ThumbnailURL = entry.ThumbnailURL
			} else if entry.Type == models.MediaImage {
				item.ThumbnailURL = entry.URL
			}
		}
	}

	item.MediaURLs = appendTweetLinks(item.MediaURLs, p)

	switch {
	case p.RetweetedTweet != nil:
		item.ReferenceType = models.ReferenceRetweet
		item.ReferencedContent = referencedTweet(p.RetweetedTweet)
	case p.QuotedTweet != nil:
		item.ReferenceType = models.ReferenceQuote
		item.ReferencedContent = referencedTweet(p.QuotedTweet)
	case p.InReplyToID != "":
		item.ReferenceType = models.ReferenceReply
		item.ReferencedContent = &models.ReferencedContent{
			ID:     p.InReplyToID,
			Author: p.InReplyToHandle,
		}
	}

	return item, nil
}

// tweetMediaEntry converts one extended-entities attachment. Videos and
// animated GIFs pick the MP4 variant with the highest bitrate.
func tweetMediaEntry(m platform.TweetMedia) (models.MediaEntry, bool) {
	switch m.Type {
	case "photo":
		if m.MediaURL == "" {
			return models.MediaEntry{}, false
		}
		return models.MediaEntry{
			URL:    m.MediaURL,
			Type:   models.MediaImage,
			Width:  m.Width,
			Height: m.Height,
		}, true

	case "video", "animated_gif":
		best := bestMP4Variant(m.VideoVariants)
		if best == "" {
			return models.MediaEntry{}, false
		}
		return models.MediaEntry{
			URL:          best,
			Type:         models.MediaVideo,
			Width:        m.Width,
			Height:       m.Height,
			DurationSecs: m.DurationMS / 1000,
			ThumbnailURL: m.MediaURL,
		}, true

	default:
		return models.MediaEntry{}, false
	}
}

func bestMP4Variant(variants []platform.TweetVariant) string {
	var (
		bestURL     string
		bestBitrate int64 = -1
	)
	for _, v := range variants {
		if v.ContentType != "video/mp4" || v.URL == "" {
			continue
		}
		if v.Bitrate > bestBitrate {
			bestBitrate = v.Bitrate
			bestURL = v.URL
		}
	}
	return bestURL
}

// appendTweetLinks adds URL entities as link previews and merges the
// card's richer metadata into an existing entry when they point at the
// same destination.
func appendTweetLinks(media models.MediaList, p platform.TweetPayload) models.MediaList {
	index := make(map[string]int)

	for _, u := range p.URLs {
		if u.ExpandedURL == "" {
			continue
		}
		if _, dup := index[u.ExpandedURL]; dup {
			continue
		}
		index[u.ExpandedURL] = len(media)
		media = append(media, models.MediaEntry{
			URL:  u.ExpandedURL,
			Type: models.MediaLinkPreview,
		})
	}

	if card := p.Card; card != nil && card.URL != "" {
		enriched := models.MediaEntry{
			URL:          card.URL,
			Type:         models.MediaLinkPreview,
			ThumbnailURL: card.ImageURL,
			LinkTitle:    card.Title,
			LinkDesc:     card.Description,
			LinkDomain:   card.Domain,
		}
		if i, dup := index[card.URL]; dup {
			media[i] = enriched
		} else {
			media = append(media, enriched)
		}
	}

	return media
}

func tweetMetrics(p platform.TweetPayload) models.EngagementMetrics {
	metrics := models.EngagementMetrics{}
	put := func(key string, v *int64) {
		if v != nil {
			metrics[key] = float64(*v)
		}
	}
	put("likes", p.LikeCount)
	put("retweets", p.RetweetCount)
	put("replies", p.ReplyCount)
	put("views", p.ViewCount)
	put("quotes", p.QuoteCount)
	put("bookmarks", p.BookmarkCount)
	if len(metrics) == 0 {
		return nil
	}
	return metrics
}

func referencedTweet(p *platform.TweetPayload) *models.ReferencedContent {
	ref := &models.ReferencedContent{
		ID:     p.ID,
		Author: p.AuthorHandle,
		URL:    tweetURL(p.AuthorHandle, p.ID),
		Body:   p.Text,
	}
	if p.CreatedAt != nil {
		posted := p.CreatedAt.UTC()
		ref.PostedAt = &posted
	}
	for _, m := range p.Media {
		if entry, ok := tweetMediaEntry(m); ok {
			ref.Media = append(ref.Media, entry)
		}
	}
	return ref
}

func tweetURL(handle, id string) string {
	if handle == "" || id == "" {
		return ""
	}
	return fmt.Sprintf("https://twitter.com/%s/status/%s", handle, id)
}
