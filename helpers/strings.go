package helpers

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const defaultTruncate = 100

// TruncateText cuts s to at most max runes and appends "...". The kept
// prefix is right-trimmed so the suffix never follows a space. max <= 0
// uses the default of 100.
func TruncateText(s string, max int) string {
	if max <= 0 {
		max = defaultTruncate
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimRightFunc(string(runes[:max]), unicode.IsSpace) + "..."
}

// Fit pads or cuts s to exactly width runes for fixed-width tables.
func Fit(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n > width {
		if width <= 3 {
			return string([]rune(s)[:width])
		}
		return string([]rune(s)[:width-3]) + "..."
	}
	return s + strings.Repeat(" ", width-n)
}

// CapitalizeFirst upper-cases the first rune and lower-cases the rest.
func CapitalizeFirst(s string) string {
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

var (
	slugStrip    = regexp.MustCompile(`[^\w\s-]`)
	slugCollapse = regexp.MustCompile(`[\s_-]+`)
)

func Slugify(s string) string {
	s = strings.ToLower(s)
	s = slugStrip.ReplaceAllString(s, "")
	s = slugCollapse.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// HighlightSearchTerm wraps every case-insensitive occurrence of term in
// text with mark. An empty term returns text unchanged.
func HighlightSearchTerm(text, term string, mark func(string) string) string {
	if term == "" || mark == nil {
		return text
	}
	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(term))
	if err != nil {
		return text
	}
	return re.ReplaceAllStringFunc(text, mark)
}
