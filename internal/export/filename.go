package export

import (
	"regexp"
	"strings"
	"time"
)

// DefaultTitle names exports of untitled trips.
const DefaultTitle = "Travel_Itinerary"

var (
	disallowed = regexp.MustCompile(`[^A-Za-z0-9\s]`)
	whitespace = regexp.MustCompile(`\s+`)
)

// SanitizeTitle keeps ASCII letters and digits and joins words with single
// underscores.
func SanitizeTitle(title string) string {
	s := disallowed.ReplaceAllString(title, "")
	s = whitespace.ReplaceAllString(strings.TrimSpace(s), "_")
	if s == "" {
		return DefaultTitle
	}
	return s
}

// Filename is "<sanitized title>_<YYYY-MM-DD>.pdf".
func Filename(title string, day time.Time) string {
	return SanitizeTitle(title) + "_" + day.Format(time.DateOnly) + ".pdf"
}
