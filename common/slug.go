package common

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxLabelLength keeps generated labels well under the 255 character limit
// GitLab and Jira both enforce, leaving room for a scope prefix.
const MaxLabelLength = 64

var (
	ErrEmptyLabel = errors.New("label cannot be empty")
	nonLabelChars = regexp.MustCompile(`[^a-z0-9]+`)
)

// Label turns a free-text name such as a component reported by a customer into
// prefix + slug, with the slug capped at MaxLabelLength.
func Label(prefix, name string) (string, error) {
	slug := slugify(name)
	if slug == "" {
		return "", ErrEmptyLabel
	}
	if len(slug) > MaxLabelLength {
		slug = strings.TrimRight(slug[:MaxLabelLength], "-")
	}
	return prefix + slug, nil
}

// Truncate shortens s to at most max runes, ending with "..." when cut.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 3 {
		return string([]rune(s)[:max])
	}
	return strings.TrimSpace(string([]rune(s)[:max-3])) + "..."
}

func slugify(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	slug := nonLabelChars.ReplaceAllString(lower, "-")
	return strings.Trim(slug, "-")
}
