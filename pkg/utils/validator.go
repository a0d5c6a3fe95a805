package utils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DateLayout is the calendar date format accepted from clients
const DateLayout = "2006-01-02"

var (
	controlChars  = regexp.MustCompile(`[\x00-\x1f\x7f]`)
	fileNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// ParseDate accepts a calendar date (YYYY-MM-DD) or an RFC3339 timestamp
// and returns midnight UTC of the calendar date it names in loc
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if loc == nil {
		loc = time.UTC
	}

	if t, err := time.ParseInLocation(DateLayout, s, loc); err == nil {
		return DateOf(t, loc), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DateOf(t, loc), nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC3339", s)
}

// DateOf truncates t to its calendar date in loc, expressed as midnight UTC
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SanitizeString removes control characters
func SanitizeString(s string) string {
	return controlChars.ReplaceAllString(s, "")
}

// SanitizeFileName reduces s to characters safe in a file name
func SanitizeFileName(s string) string {
	return strings.Trim(fileNameChars.ReplaceAllString(s, "-"), "-.")
}
