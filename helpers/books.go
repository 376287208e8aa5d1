package helpers

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// BookCoverPlaceholder returns an image URL showing the title, for books
// without a cover.
func BookCoverPlaceholder(title string) string {
	return "https://via.placeholder.com/300x450/3b82f6/ffffff?text=" + url.QueryEscape(title)
}

func GenerateBookSlug(title, author string) string {
	return Slugify(title + " " + author)
}

var (
	wordPattern = regexp.MustCompile(`\w+`)
	stopWords   = map[string]bool{
		"the": true, "a": true, "an": true, "and": true, "or": true, "but": true, "in": true,
		"on": true, "at": true, "to": true, "for": true, "of": true, "with": true, "by": true,
	}
)

// ExtractBookKeywords returns up to ten distinct lower-case words longer
// than two letters, skipping stop words, in order of first appearance.
func ExtractBookKeywords(title, author, description string) []string {
	text := strings.ToLower(title + " " + author + " " + description)
	seen := make(map[string]bool)
	var out []string
	for _, w := range wordPattern.FindAllString(text, -1) {
		if len(w) <= 2 || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
		if len(out) == 10 {
			break
		}
	}
	return out
}

// GenerateID returns a random identifier with the given prefix.
func GenerateID(prefix string) string {
	if prefix == "" {
		prefix = "id"
	}
	return prefix + "-" + uuid.NewString()
}
