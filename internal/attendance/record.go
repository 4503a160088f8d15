package attendance

import (
	"errors"
	"time"
)

// Pipeline error taxonomy. The HTTP layer maps these to status codes; the
// capture agent treats everything else as transient.
var (
	// ErrNotFound means the referenced record or employee does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyClosed means the record already has a check-out timestamp.
	ErrAlreadyClosed = errors.New("attendance already closed")
	// ErrInvalidOrdering means a check-out timestamp precedes the check-in.
	ErrInvalidOrdering = errors.New("check-out precedes check-in")
	// ErrConflict means a concurrent duplicate check-in race was lost and
	// could not be resolved by re-reading the winner's record.
	ErrConflict = errors.New("concurrent check-in conflict")
)

// Record is one employee's attendance for one work day.
type Record struct {
	ID         string     `json:"id"`
	EmployeeID string     `json:"employee_id"`
	WorkDay    time.Time  `json:"work_day"`
	CheckIn    time.Time  `json:"check_in"`
	CheckOut   *time.Time `json:"check_out,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Open reports whether the record still lacks a check-out.
func (r Record) Open() bool {
	return r.CheckOut == nil
}

// Hours returns the worked hours for a closed record, 0 for an open one.
// The value is exact; rounding happens at presentation time only.
func (r Record) Hours() float64 {
	if r.CheckOut == nil {
		return 0
	}
	return r.CheckOut.Sub(r.CheckIn).Hours()
}

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Filter narrows List queries. Zero values mean "no constraint".
type Filter struct {
	EmployeeID string
	From       time.Time
	To         time.Time
	Limit      int
	Offset     int
}
