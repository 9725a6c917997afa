// Package platform defines the raw payload shapes the fetch layer hands
// to the normalizer, one tagged variant per source platform. Payloads are
// decoded and validated at this boundary so malformed input fails fast
// instead of surfacing as empty fields deep in the pipeline.
package platform

import (
	"encoding/json"
	"fmt"
	"time"

	"creatorpulse/aggregator/internal/models"
)

// Payload is implemented by every per-platform raw shape.
type Payload interface {
	Platform() models.Platform
}

// RSSPayload mirrors the fields of a fetched RSS/Atom item.
type RSSPayload struct {
	GUID        string        `json:"guid"`
	Link        string        `json:"link"`
	Title       string        `json:"title"`
	Content     string        `json:"content"`
	Description string        `json:"description"`
	Summary     string        `json:"summary"`
	PublishedAt *time.Time    `json:"published_at"`
	Enclosure   *RSSEnclosure `json:"enclosure,omitempty"`
	FeedURL     string        `json:"feed_url"`
	FeedTitle   string        `json:"feed_title"`
}

// RSSEnclosure is a podcast/video attachment on an RSS item.
type RSSEnclosure struct {
	URL      string `json:"url"`
	MIMEType string `json:"mime_type"`
	Length   int64  `json:"length"`
}

func (RSSPayload) Platform() models.Platform { return models.PlatformRSS }

// TweetPayload mirrors the subset of a tweet object the normalizer reads.
type TweetPayload struct {
	ID               string        `json:"id"`
	Text             string        `json:"text"`
	CreatedAt        *time.Time    `json:"created_at"`
	AuthorHandle     string        `json:"author_handle"`
	URLs             []TweetURL    `json:"urls,omitempty"`
	Media            []TweetMedia  `json:"media,omitempty"`
	Card             *TweetCard    `json:"card,omitempty"`
	QuotedTweet      *TweetPayload `json:"quoted_tweet,omitempty"`
	InReplyToID      string        `json:"in_reply_to_id,omitempty"`
	InReplyToHandle  string        `json:"in_reply_to_handle,omitempty"`
	RetweetedTweet   *TweetPayload `json:"retweeted_tweet,omitempty"`
	LikeCount        *int64        `json:"like_count,omitempty"`
	RetweetCount     *int64        `json:"retweet_count,omitempty"`
	ReplyCount       *int64        `json:"reply_count,omitempty"`
	ViewCount        *int64        `json:"view_count,omitempty"`
	QuoteCount       *int64        `json:"quote_count,omitempty"`
	BookmarkCount    *int64        `json:"bookmark_count,omitempty"`
	ConversationID   string        `json:"conversation_id,omitempty"`
	PossiblySensitive bool         `json:"possibly_sensitive,omitempty"`
}

// TweetURL is a plain link entity inside tweet text.
type TweetURL struct {
	ExpandedURL string `json:"expanded_url"`
	DisplayURL  string `json:"display_url"`
}

// TweetMedia is an extended-entities media attachment.
type TweetMedia struct {
	Type          string         `json:"type"` // photo | video | animated_gif
	MediaURL      string         `json:"media_url"`
	Width         int            `json:"width,omitempty"`
	Height        int            `json:"height,omitempty"`
	DurationMS    int            `json:"duration_ms,omitempty"`
	VideoVariants []TweetVariant `json:"video_variants,omitempty"`
}

// TweetVariant is one encoding of a tweet video.
type TweetVariant struct {
	Bitrate     int64  `json:"bitrate"`
	ContentType string `json:"content_type"`
	URL         string `json:"url"`
}

// TweetCard is parsed link-preview card metadata.
type TweetCard struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Domain      string `json:"domain"`
	ImageURL    string `json:"image_url"`
}

func (TweetPayload) Platform() models.Platform { return models.PlatformTwitter }

// LinkedInPayload mirrors the subset of a LinkedIn post the normalizer reads.
type LinkedInPayload struct {
	ID           string            `json:"id"`
	URL          string            `json:"url"`
	Text         string            `json:"text"`
	AuthorHandle string            `json:"author_handle"`
	PostedAt     *time.Time        `json:"posted_at"`
	Images       []LinkedInImage   `json:"images,omitempty"`
	Video        *LinkedInVideo    `json:"video,omitempty"`
	Article      *LinkedInArticle  `json:"article,omitempty"`
	Document     *LinkedInDocument `json:"document,omitempty"`
	ResharedPost *LinkedInPayload  `json:"reshared_post,omitempty"`
	NumLikes     *int64            `json:"num_likes,omitempty"`
	NumComments  *int64            `json:"num_comments,omitempty"`
	NumShares    *int64            `json:"num_shares,omitempty"`
}

// LinkedInImage is an image attachment on a post.
type LinkedInImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// LinkedInVideo is a native video attachment.
type LinkedInVideo struct {
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	DurationSecs int    `json:"duration_secs,omitempty"`
}

// LinkedInArticle is a shared external article.
type LinkedInArticle struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Domain      string `json:"domain,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// LinkedInDocument is an attached document (PDF deck and the like).
type LinkedInDocument struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

func (LinkedInPayload) Platform() models.Platform { return models.PlatformLinkedIn }

// ThreadsPayload mirrors the subset of a Threads post the normalizer reads.
type ThreadsPayload struct {
	ID            string           `json:"id"`
	Code          string           `json:"code"`
	Text          string           `json:"text"`
	AuthorHandle  string           `json:"author_handle"`
	TakenAt       *time.Time       `json:"taken_at"`
	ImageVersions []ThreadsImage   `json:"image_versions,omitempty"`
	VideoVersions []ThreadsVideo   `json:"video_versions,omitempty"`
	CarouselMedia []ThreadsPayload `json:"carousel_media,omitempty"`
	QuotedPost    *ThreadsPayload  `json:"quoted_post,omitempty"`
	RepostedPost  *ThreadsPayload  `json:"reposted_post,omitempty"`
	ReplyToID     string           `json:"reply_to_id,omitempty"`
	LikeCount     *int64           `json:"like_count,omitempty"`
	ReplyCount    *int64           `json:"reply_count,omitempty"`
	RepostCount   *int64           `json:"repost_count,omitempty"`
}

// ThreadsImage is one candidate rendition of a post image.
type ThreadsImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// ThreadsVideo is one rendition of a post video.
type ThreadsVideo struct {
	URL string `json:"url"`
}

func (ThreadsPayload) Platform() models.Platform { return models.PlatformThreads }

// YouTubePayload mirrors the subset of a video resource the stub
// normalizer reads.
type YouTubePayload struct {
	VideoID      string     `json:"video_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	ThumbnailURL string     `json:"thumbnail_url,omitempty"`
	ChannelTitle string     `json:"channel_title,omitempty"`
	PublishedAt  *time.Time `json:"published_at"`
	DurationSecs int        `json:"duration_secs,omitempty"`
	ViewCount    *int64     `json:"view_count,omitempty"`
	LikeCount    *int64     `json:"like_count,omitempty"`
	CommentCount *int64     `json:"comment_count,omitempty"`
}

func (YouTubePayload) Platform() models.Platform { return models.PlatformYouTube }

// WebsitePayload mirrors a scraped generic web page.
type WebsitePayload struct {
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Content     string     `json:"content"`
	ImageURL    string     `json:"image_url,omitempty"`
	PublishedAt *time.Time `json:"published_at"`
}

func (WebsitePayload) Platform() models.Platform { return models.PlatformWebsite }

// RawItem is the wire form of one raw payload: a platform tag plus the
// undecoded body. Batch callers (cron routes, the ingest endpoint) send
// lists of these.
type RawItem struct {
	Platform models.Platform `json:"platform"`
	Payload  json.RawMessage `json:"payload"`
}

// Decode validates the platform tag and unmarshals the body into the
// matching typed payload.
func (r RawItem) Decode() (Payload, error) {
	if !r.Platform.Valid() {
		return nil, fmt.Errorf("unknown platform %q", r.Platform)
	}
	if len(r.Payload) == 0 {
		return nil, fmt.Errorf("empty payload for platform %q", r.Platform)
	}

	var (
		p   Payload
		err error
	)
	switch r.Platform {
	case models.PlatformRSS:
		var v RSSPayload
		err = json.Unmarshal(r.Payload, &v)
		p = v
	case models.PlatformTwitter:
		var v TweetPayload
		err = json.Unmarshal(r.Payload, &v)
		p = v
	case models.PlatformLinkedIn:
		var v LinkedInPayload
		err = json.Unmarshal(r.Payload, &v)
		p = v
	case models.PlatformThreads:
		var v ThreadsPayload
		err = json.Unmarshal(r.Payload, &v)
		p = v
	case models.PlatformYouTube:
		var v YouTubePayload
		err = json.Unmarshal(r.Payload, &v)
		p = v
	case models.PlatformWebsite:
		var v WebsitePayload
		err = json.Unmarshal(r.Payload, &v)
		p = v
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", r.Platform, err)
	}
	return p, nil
}
