package report

import (
	"fmt"
	"time"
)

// Kind selects the aggregation window.
type Kind string

const (
	Daily   Kind = "daily"
	Weekly  Kind = "weekly"
	Monthly Kind = "monthly"
)

// ParseKind validates a period kind from the wire.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Daily, Weekly, Monthly:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown report kind %q", s)
}

// Range returns the inclusive [start, end] calendar window containing ref.
// Weeks run Sunday through Saturday. Pure date arithmetic, no side effects.
func Range(kind Kind, ref time.Time) (start, end time.Time) {
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	switch kind {
	case Weekly:
		start = day.AddDate(0, 0, -int(day.Weekday()))
		end = start.AddDate(0, 0, 6)
	case Monthly:
		start = time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, -1)
	default: // Daily
		start, end = day, day
	}
	return start, end
}
