package normalize

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// extractText strips markup from an HTML fragment and collapses
// whitespace, returning the plain text used for metric computation and
// hashing. Input that fails to parse is returned whitespace-collapsed.
func extractText(html string) string {
	if html == "" {
		return ""
	}
	if !strings.ContainsRune(html, '<') {
		return collapseWhitespace(html)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return collapseWhitespace(html)
	}
	doc.Find("script, style").Remove()
	return collapseWhitespace(doc.Text())
}

// extractImageURLs returns the src attributes of <img> tags inside an
// HTML fragment, in document order, absolute URLs only.
func extractImageURLs(html string) []string {
	if html == "" || !strings.ContainsRune(html, '<') {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var urls []string
	seen := make(map[string]struct{})
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if !ok || src == "" {
			return
		}
		u, err := url.Parse(src)
		if err != nil || !u.IsAbs() {
			return
		}
		if _, dup := seen[src]; dup {
			return
		}
		seen[src] = struct{}{}
		urls = append(urls, src)
	})
	return urls
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}
