// Package contenthash computes the stable fingerprint used for duplicate
// detection across platforms. The hash is derived only from normalized
// text, never from platform IDs, URLs or timestamps, so the same story
// ingested from two sources collapses to the same value.
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"creatorpulse/aggregator/internal/models"
)

// bodySnippetRunes bounds how much body text participates in the hash.
// Trailing edits (appended links, signatures) past the snippet do not
// change the fingerprint.
const bodySnippetRunes = 500

// Hash returns the hex-encoded SHA-256 fingerprint of an item's
// case- and whitespace-normalized title and body snippet.
func Hash(item models.ContentItem) string {
	title := normalizeText(item.Title)
	body := truncateRunes(normalizeText(plainText(item.ContentBody)), bodySnippetRunes)

	sum := sha256.Sum256([]byte(title + "\n" + body))
	return hex.EncodeToString(sum[:])
}

// plainText strips markup crudely: the hasher only needs stability, not
// fidelity, and must not depend on a full HTML parse succeeding.
func plainText(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
			b.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// normalizeText lowercases and collapses all whitespace runs to single
// spaces.
func normalizeText(s string) string {
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	for i, f := range fields {
		fields[i] = strings.ToLower(f)
	}
	return strings.Join(fields, " ")
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
