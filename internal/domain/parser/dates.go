package parser

import (
	"strings"
	"time"
)

// ResolveDate maps a relative-date phrase in text to a concrete timestamp.
// "yesterday" and "last night" resolve to the prior midnight, "this morning"
// to today 08:00, anything else to now unchanged.
func ResolveDate(text string, now time.Time) time.Time {
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "yesterday"),
		strings.Contains(lower, "last night"),
		strings.Contains(lower, "গতকাল"):
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return midnight.AddDate(0, 0, -1)
	case strings.Contains(lower, "this morning"),
		strings.Contains(lower, "আজ সকালে"):
		return time.Date(now.Year(), now.Month(), now.Day(), 8, 0, 0, 0, now.Location())
	default:
		return now
	}
}
