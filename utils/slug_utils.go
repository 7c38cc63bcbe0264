package utils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	slugStripRe     = regexp.MustCompile(`[^\w\s-]`)
	slugSeparatorRe = regexp.MustCompile(`[\s_-]+`)
	slugValidRe     = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// Slugify converts a title into a URL-friendly slug: lowercase, alphanumerics
// and dashes only, no leading or trailing dashes.
func Slugify(text string) string {
	slug := strings.ToLower(strings.TrimSpace(text))
	slug = slugStripRe.ReplaceAllString(slug, "")
	slug = slugSeparatorRe.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// SlugifyWithTimestamp appends the current unix-millisecond timestamp, used as
// a fallback when the title alone makes a slug that is empty or too short.
func SlugifyWithTimestamp(text string) string {
	baseSlug := Slugify(text)
	timestamp := time.Now().UnixMilli()

	if len(baseSlug) < 3 {
		return fmt.Sprintf("post-%d", timestamp)
	}
	return fmt.Sprintf("%s-%d", baseSlug, timestamp)
}

// IsValidSlug reports whether s is a well-formed slug.
func IsValidSlug(s string) bool {
	return slugValidRe.MatchString(s)
}

// TruncateSlug caps a slug at maxLength without leaving a trailing dash.
func TruncateSlug(slug string, maxLength int) string {
	if len(slug) <= maxLength {
		return slug
	}
	return strings.TrimRight(slug[:maxLength], "-")
}
