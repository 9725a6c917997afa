package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractText(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"plain text", "already   plain\ntext", "already plain text"},
		{"markup stripped", "<p>Hello <strong>world</strong></p>", "Hello world"},
		{"script and style removed", `<p>kept</p><script>var x = 1;</script><style>p{}</style>`, "kept"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractText(tt.html))
		})
	}
}

func TestExtractImageURLs(t *testing.T) {
	html := `
		<p><img src="https://cdn.example.com/a.jpg"></p>
		<img src="https://cdn.example.com/b.jpg">
		<img src="https://cdn.example.com/a.jpg">
		<img src="/relative.jpg">
		<img>`

	urls := extractImageURLs(html)

	assert.Equal(t, []string{
		"https://cdn.example.com/a.jpg",
		"https://cdn.example.com/b.jpg",
	}, urls, "duplicates, relative URLs and missing src are dropped")
}

func TestExtractImageURLs_NoMarkup(t *testing.T) {
	assert.Nil(t, extractImageURLs("no images here"))
}
