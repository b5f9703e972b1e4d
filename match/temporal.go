package match

import (
	"time"

	"github.com/gocoa/ruleengine"
)

// IsValidOn reports whether a segment code is valid on the given date.
// Comparison is at day granularity (time-of-day is ignored) and both
// window bounds are inclusive; a nil ValidTo means open-ended.
//
// Pure function, never fails. An absent code is the caller's concern.
func IsValidOn(code *ruleengine.SegmentCode, on time.Time) bool {
	if code == nil || !code.Active {
		return false
	}

	day := truncateToDay(on)
	if day.Before(truncateToDay(code.ValidFrom)) {
		return false
	}
	if code.ValidTo != nil && day.After(truncateToDay(*code.ValidTo)) {
		return false
	}
	return true
}

// truncateToDay normalizes a timestamp to midnight UTC of its calendar
// day, so dates compare equal regardless of time-of-day or zone offset
// within the day.
func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
