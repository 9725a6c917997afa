package contenthash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"creatorpulse/aggregator/internal/models"
)

func TestHash_CaseAndWhitespaceInsensitive(t *testing.T) {
	a := models.ContentItem{
		Title:       "My Big Announcement",
		ContentBody: "We are launching   a new product today.",
	}
	b := models.ContentItem{
		Title:       "my big ANNOUNCEMENT",
		ContentBody: "We are\n\nlaunching a new product today.",
	}

	assert.Equal(t, Hash(a), Hash(b))
}

func TestHash_IgnoresMarkup(t *testing.T) {
	plain := models.ContentItem{
		Title:       "Weekly update",
		ContentBody: "Shipping fast and breaking nothing.",
	}
	html := models.ContentItem{
		Title:       "Weekly update",
		ContentBody: "<p>Shipping <strong>fast</strong> and breaking nothing.</p>",
	}

	assert.Equal(t, Hash(plain), Hash(html))
}

func TestHash_IgnoresNonTextFields(t *testing.T) {
	a := models.ContentItem{
		Title:             "Same story",
		ContentBody:       "Identical words in both.",
		Platform:          models.PlatformRSS,
		PlatformContentID: "guid-1",
		URL:               "https://blog.example.com/post",
	}
	b := models.ContentItem{
		Title:             "Same story",
		ContentBody:       "Identical words in both.",
		Platform:          models.PlatformLinkedIn,
		PlatformContentID: "urn:li:share:99",
		URL:               "https://linkedin.com/posts/99",
	}

	assert.Equal(t, Hash(a), Hash(b))
}

func TestHash_SnippetBoundsBody(t *testing.T) {
	base := strings.Repeat("word ", 200) // well past 500 runes of normalized text

	a := models.ContentItem{Title: "t", ContentBody: base + "original tail"}
	b := models.ContentItem{Title: "t", ContentBody: base + "edited tail with appended link"}

	assert.Equal(t, Hash(a), Hash(b))
}

func TestHash_DifferentContentDiffers(t *testing.T) {
	a := models.ContentItem{Title: "First post", ContentBody: "alpha"}
	b := models.ContentItem{Title: "Second post", ContentBody: "alpha"}
	c := models.ContentItem{Title: "First post", ContentBody: "beta"}

	assert.NotEqual(t, Hash(a), Hash(b))
	assert.NotEqual(t, Hash(a), Hash(c))
}

func TestHash_StableHexOutput(t *testing.T) {
	item := models.ContentItem{Title: "Stable", ContentBody: "output"}

	h1 := Hash(item)
	h2 := Hash(item)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}
