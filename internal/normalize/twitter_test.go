package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creatorpulse/aggregator/internal/models"
	"creatorpulse/aggregator/internal/platform"
)

func TestNormalizeTweet_RequiresID(t *testing.T) {
	_, err := Normalize(platform.TweetPayload{Text: "no id"}, 1, "")
	assert.ErrorIs(t, err, ErrMissingIdentity)
}

func TestNormalizeTweet_Basics(t *testing.T) {
	created := time.Date(2026, 2, 14, 8, 30, 0, 0, time.UTC)
	likes := int64(42)
	views := int64(1000)

	item, err := Normalize(platform.TweetPayload{
		ID:           "1890000000000000000",
		Text:         "shipping something new today",
		AuthorHandle: "builder",
		CreatedAt:    &created,
		LikeCount:    &likes,
		ViewCount:    &views,
	}, 3, "")
	require.NoError(t, err)

	assert.Equal(t, "1890000000000000000", item.PlatformContentID)
	assert.Equal(t, "https://twitter.com/builder/status/1890000000000000000", item.URL)
	assert.Empty(t, item.Title, "tweets are titleless")
	assert.Equal(t, created, item.PublishedAt)
	assert.Equal(t, models.EngagementMetrics{"likes": 42, "views": 1000}, item.EngagementMetrics)
}

func TestNormalizeTweet_VideoPicksHighestBitrateMP4(t *testing.T) {
	item, err := Normalize(platform.TweetPayload{
		ID:           "1",
		AuthorHandle: "builder",
		Media: []platform.TweetMedia{{
			Type:       "video",
			MediaURL:   "https://pbs.twimg.com/thumb.jpg",
			DurationMS: 93500,
			VideoVariants: []platform.TweetVariant{
				{Bitrate: 256000, ContentType: "video/mp4", URL: "https://video.twimg.com/low.mp4"},
				{Bitrate: 0, ContentType: "application/x-mpegURL", URL: "https://video.twimg.com/playlist.m3u8"},
				{Bitrate: 2176000, ContentType: "video/mp4", URL: "https://video.twimg.com/high.mp4"},
			},
		}},
	}, 1, "")
	require.NoError(t, err)

	require.Len(t, item.MediaURLs, 1)
	m := item.MediaURLs[0]
	assert.Equal(t, "https://video.twimg.com/high.mp4", m.URL)
	assert.Equal(t, models.MediaVideo, m.Type)
	assert.Equal(t, 93, m.DurationSecs)
	assert.Equal(t, "https://pbs.twimg.com/thumb.jpg", m.ThumbnailURL)
	assert.Equal(t, "https://pbs.twimg.com/thumb.jpg", item.ThumbnailURL)
}

func TestNormalizeTweet_CardMergesWithURLEntity(t *testing.T) {
	item, err := Normalize(platform.TweetPayload{
		ID: "1",
		URLs: []platform.TweetURL{
			{ExpandedURL: "https://blog.example.com/post"},
			{ExpandedURL: "https://other.example.com"},
		},
		Card: &platform.TweetCard{
			URL:      "https://blog.example.com/post",
			Title:    "A post",
			Domain:   "blog.example.com",
			ImageURL: "https://blog.example.com/og.png",
		},
	}, 1, "")
	require.NoError(t, err)

	require.Len(t, item.MediaURLs, 2, "card must not duplicate the matching URL entity")
	assert.Equal(t, "A post", item.MediaURLs[0].LinkTitle)
	assert.Equal(t, "blog.example.com", item.MediaURLs[0].LinkDomain)
	assert.Equal(t, models.MediaLinkPreview, item.MediaURLs[1].Type)
	assert.Empty(t, item.MediaURLs[1].LinkTitle)
}

func TestNormalizeTweet_References(t *testing.T) {
	quoted := &platform.TweetPayload{ID: "900", Text: "original take", AuthorHandle: "source"}

	tests := []struct {
		name     string
		payload  platform.TweetPayload
		wantType models.ReferenceType
		wantID   string
	}{
		{
			name:     "retweet",
			payload:  platform.TweetPayload{ID: "1", RetweetedTweet: quoted},
			wantType: models.ReferenceRetweet,
			wantID:   "900",
		},
		{
			name:     "quote",
			payload:  platform.TweetPayload{ID: "2", QuotedTweet: quoted},
			wantType: models.ReferenceQuote,
			wantID:   "900",
		},
		{
			name:     "reply",
			payload:  platform.TweetPayload{ID: "3", InReplyToID: "800", InReplyToHandle: "other"},
			wantType: models.ReferenceReply,
			wantID:   "800",
		},
		{
			name:     "standalone",
			payload:  platform.TweetPayload{ID: "4", Text: "hello"},
			wantType: models.ReferenceNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := Normalize(tt.payload, 1, "")
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, item.ReferenceType)
			if tt.wantID == "" {
				assert.Nil(t, item.ReferencedContent)
			} else {
				require.NotNil(t, item.ReferencedContent)
				assert.Equal(t, tt.wantID, item.ReferencedContent.ID)
			}
		})
	}
}

func TestNormalizeTweet_NoMetricsStaysNil(t *testing.T) {
	item, err := Normalize(platform.TweetPayload{ID: "1", Text: "quiet"}, 1, "")
	require.NoError(t, err)
	assert.Nil(t, item.EngagementMetrics)
}
