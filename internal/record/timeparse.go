package record

import "time"

// =============================================================================
// COMPACT TIMESTAMP HANDLING
// The warehouse API encodes instants as "YYYYMMDD" or "YYYYMMDDHHMMSS"
// strings with no timezone marker; values are taken as UTC.
// =============================================================================

const (
	compactDateLayout = "20060102"
	compactTimeLayout = "20060102150405"

	// windowLayout formats date-window bounds the way the search endpoints
	// expect them. No timezone conversion is applied to window bounds.
	windowLayout = "20060102"
)

// timeNow is swapped out by tests.
var timeNow = time.Now

// ParseCompact parses a compact vendor timestamp into a UTC instant. An
// 8-character value is truncated to midnight UTC; a 14-character value
// carries the time of day. Malformed or absent input fails soft to the
// current time: a bad date must never block a record.
func ParseCompact(s string) time.Time {
	switch len(s) {
	case len(compactTimeLayout):
		if t, err := time.ParseInLocation(compactTimeLayout, s, time.UTC); err == nil {
			return t
		}
	case len(compactDateLayout):
		if t, err := time.ParseInLocation(compactDateLayout, s, time.UTC); err == nil {
			return t
		}
	}
	return timeNow().UTC()
}

// FormatWindow renders a date-window bound as the 8-digit calendar date the
// search endpoints expect.
func FormatWindow(t time.Time) string {
	return t.Format(windowLayout)
}
