// Package timestamp normalizes the ISO-8601-style timestamp strings found in
// export bundles. Parsing is never fatal: malformed input degrades to the
// zero time and the raw string is shown verbatim.
package timestamp

import (
	"strings"
	"time"
)

// DisplayLayout is the fixed-width form shown next to each message.
const DisplayLayout = "2006-01-02 15:04"

// DayLayout is the calendar-date key used for day separators.
const DayLayout = "2006-01-02"

// Exports write instants like "2024-09-17T06:52:11.254000+00:00", but some
// sources drop the offset, the fraction, use a space separator, or carry a
// bare date. Layouts are tried in order; fractional seconds are optional in
// each.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Parse converts a raw export timestamp into an instant. Empty or malformed
// input yields (zero, false) rather than an error.
func Parse(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Format renders a raw timestamp as "YYYY-MM-DD HH:MM". When parsing fails
// the raw string is returned verbatim so the user still sees something for
// foreign formats; empty input stays empty.
func Format(raw string) string {
	t, ok := Parse(raw)
	if !ok {
		return raw
	}
	return t.Format(DisplayLayout)
}

// Day returns the calendar-date key for a raw timestamp. ok is false when
// the timestamp does not parse, in which case no day separator applies.
func Day(raw string) (string, bool) {
	t, ok := Parse(raw)
	if !ok {
		return "", false
	}
	return t.Format(DayLayout), true
}

// SortKey returns the instant used for chronological ordering. Unparseable
// timestamps map to the zero time so they sort before everything else,
// deterministically, instead of failing or being dropped.
func SortKey(raw string) time.Time {
	t, _ := Parse(raw)
	return t
}
