package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"facetrack/internal/metrics"
	"facetrack/internal/queue"
)

// Store is the persistence the service needs; *Repository implements it.
type Store interface {
	Insert(ctx context.Context, rec Record) (Record, bool, error)
	Get(ctx context.Context, id string) (Record, error)
	GetByEmployeeDay(ctx context.Context, employeeID string, day time.Time) (Record, error)
	SetCheckOut(ctx context.Context, id string, at time.Time) (bool, error)
	Update(ctx context.Context, rec Record) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f Filter) ([]Record, error)
}

// Locker serializes check-in attempts per (employee, day) across terminals.
// The DB unique constraint remains the authority; the lock only keeps
// concurrent sessions from hammering it.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// CheckInResult reports what a check-in attempt did.
type CheckInResult struct {
	Record  Record `json:"record"`
	Created bool   `json:"created"`
	Message string `json:"message"`
}

// Per-day check-in outcomes, kept verbatim from the legacy system so
// terminals render the same text.
const (
	MsgCheckedIn       = "Check-in successful"
	MsgAlreadyAttended = "You have already attended today"
)

// Service manages the per-(employee, day) attendance state machine:
// absent -> checked in -> checked out.
type Service struct {
	store  Store
	locker Locker
	pub    queue.Publisher
}

// NewService creates a service. locker and pub may be nil.
func NewService(store Store, locker Locker, pub queue.Publisher) *Service {
	return &Service{store: store, locker: locker, pub: pub}
}

// CheckIn opens today's record for the employee. Calling it again on the
// same day is a no-op that reports the existing record instead of erroring,
// so recognition may re-fire freely.
func (s *Service) CheckIn(ctx context.Context, employeeID string, now time.Time) (CheckInResult, error) {
	if employeeID == "" {
		return CheckInResult{}, errors.New("employee id required")
	}
	day := Day(now)

	if s.locker != nil {
		key := fmt.Sprintf("facetrack:lock:checkin:%s:%s", employeeID, day.Format("2006-01-02"))
		if ok, err := s.locker.Acquire(ctx, key, 5*time.Second); err == nil && ok {
			defer func() { _ = s.locker.Release(ctx, key) }()
		}
		// Lock misses and redis errors fall through: the unique
		// constraint still guarantees a single open record.
	}

	rec, created, err := s.store.Insert(ctx, Record{
		EmployeeID: employeeID,
		WorkDay:    day,
		CheckIn:    now,
	})
	if err != nil {
		return CheckInResult{}, err
	}
	if created {
		metrics.CheckinsCreated.Inc()
		s.publish(ctx, queue.Event{
			Kind:       "checkin",
			RecordID:   rec.ID,
			EmployeeID: employeeID,
			WorkDay:    day.Format("2006-01-02"),
			At:         now,
		})
		return CheckInResult{Record: rec, Created: true, Message: MsgCheckedIn}, nil
	}

	existing, err := s.store.GetByEmployeeDay(ctx, employeeID, day)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// The insert lost to a row that vanished before we could
			// read it back (concurrent delete).
			return CheckInResult{}, fmt.Errorf("employee %s on %s: %w", employeeID, day.Format("2006-01-02"), ErrConflict)
		}
		return CheckInResult{}, err
	}
	metrics.CheckinsDuplicate.Inc()
	return CheckInResult{Record: existing, Created: false, Message: MsgAlreadyAttended}, nil
}

// CheckOut closes a record. now must not precede the record's check-in.
func (s *Service) CheckOut(ctx context.Context, recordID string, now time.Time) (Record, error) {
	rec, err := s.store.Get(ctx, recordID)
	if err != nil {
		return Record{}, err
	}
	if rec.CheckOut != nil {
		return Record{}, fmt.Errorf("attendance %s: %w", recordID, ErrAlreadyClosed)
	}
	if now.Before(rec.CheckIn) {
		return Record{}, fmt.Errorf("attendance %s: check-out %s before check-in %s: %w",
			recordID, now.Format(time.RFC3339), rec.CheckIn.Format(time.RFC3339), ErrInvalidOrdering)
	}

	updated, err := s.store.SetCheckOut(ctx, recordID, now)
	if err != nil {
		return Record{}, err
	}
	if !updated {
		// A racing checkout closed it first.
		return Record{}, fmt.Errorf("attendance %s: %w", recordID, ErrAlreadyClosed)
	}
	rec.CheckOut = &now

	metrics.CheckoutsTotal.Inc()
	s.publish(ctx, queue.Event{
		Kind:       "checkout",
		RecordID:   rec.ID,
		EmployeeID: rec.EmployeeID,
		WorkDay:    rec.WorkDay.Format("2006-01-02"),
		At:         now,
		Hours:      rec.Hours(),
	})
	return rec, nil
}

// Get returns a single record.
func (s *Service) Get(ctx context.Context, recordID string) (Record, error) {
	return s.store.Get(ctx, recordID)
}

// Update overwrites a record. Administrative override, no state validation.
func (s *Service) Update(ctx context.Context, rec Record) (Record, error) {
	if err := s.store.Update(ctx, rec); err != nil {
		return Record{}, err
	}
	return s.store.Get(ctx, rec.ID)
}

// Delete removes a record unconditionally.
func (s *Service) Delete(ctx context.Context, recordID string) error {
	return s.store.Delete(ctx, recordID)
}

// List returns records matching the filter.
func (s *Service) List(ctx context.Context, f Filter) ([]Record, error) {
	return s.store.List(ctx, f)
}

func (s *Service) publish(ctx context.Context, evt queue.Event) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(ctx, evt); err != nil {
		log.Printf("queue publish failed: %v", err)
	}
}
