package attendance

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"facetrack/internal/queue"
)

// fakeStore is an in-memory Store keyed by record id and (employee, day).
type fakeStore struct {
	byID  map[string]Record
	byDay map[string]Record
	next  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: map[string]Record{}, byDay: map[string]Record{}}
}

func dayKey(employeeID string, day time.Time) string {
	return employeeID + "|" + day.Format("2006-01-02")
}

func (s *fakeStore) Insert(ctx context.Context, rec Record) (Record, bool, error) {
	key := dayKey(rec.EmployeeID, rec.WorkDay)
	if _, exists := s.byDay[key]; exists {
		return Record{}, false, nil
	}
	s.next++
	rec.ID = fmt.Sprintf("rec-%d", s.next)
	rec.CreatedAt = rec.CheckIn
	s.byID[rec.ID] = rec
	s.byDay[key] = rec
	return rec, true, nil
}

func (s *fakeStore) Get(ctx context.Context, id string) (Record, error) {
	rec, ok := s.byID[id]
	if !ok {
		return Record{}, fmt.Errorf("attendance %s: %w", id, ErrNotFound)
	}
	return rec, nil
}

func (s *fakeStore) GetByEmployeeDay(ctx context.Context, employeeID string, day time.Time) (Record, error) {
	rec, ok := s.byDay[dayKey(employeeID, day)]
	if !ok {
		return Record{}, fmt.Errorf("employee %s: %w", employeeID, ErrNotFound)
	}
	return rec, nil
}

func (s *fakeStore) SetCheckOut(ctx context.Context, id string, at time.Time) (bool, error) {
	rec, ok := s.byID[id]
	if !ok || rec.CheckOut != nil {
		return false, nil
	}
	rec.CheckOut = &at
	s.byID[id] = rec
	s.byDay[dayKey(rec.EmployeeID, rec.WorkDay)] = rec
	return true, nil
}

func (s *fakeStore) Update(ctx context.Context, rec Record) error {
	old, ok := s.byID[rec.ID]
	if !ok {
		return fmt.Errorf("attendance %s: %w", rec.ID, ErrNotFound)
	}
	delete(s.byDay, dayKey(old.EmployeeID, old.WorkDay))
	s.byID[rec.ID] = rec
	s.byDay[dayKey(rec.EmployeeID, rec.WorkDay)] = rec
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, id string) error {
	rec, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("attendance %s: %w", id, ErrNotFound)
	}
	delete(s.byID, id)
	delete(s.byDay, dayKey(rec.EmployeeID, rec.WorkDay))
	return nil
}

func (s *fakeStore) List(ctx context.Context, f Filter) ([]Record, error) {
	var out []Record
	for _, rec := range s.byID {
		if f.EmployeeID != "" && rec.EmployeeID != f.EmployeeID {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// fakeLocker records acquire/release calls and can be told to deny.
type fakeLocker struct {
	deny     bool
	acquired []string
	released []string
}

func (l *fakeLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if l.deny {
		return false, nil
	}
	l.acquired = append(l.acquired, key)
	return true, nil
}

func (l *fakeLocker) Release(ctx context.Context, key string) error {
	l.released = append(l.released, key)
	return nil
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	events []queue.Event
	fail   bool
}

func (p *recordingPublisher) Publish(ctx context.Context, evt queue.Event) error {
	if p.fail {
		return errors.New("queue down")
	}
	p.events = append(p.events, evt)
	return nil
}

func TestCheckInCreatesRecord(t *testing.T) {
	store := newFakeStore()
	pub := &recordingPublisher{}
	svc := NewService(store, nil, pub)
	now := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	res, err := svc.CheckIn(context.Background(), "e1", now)
	if err != nil {
		t.Fatalf("check-in failed: %v", err)
	}
	if !res.Created {
		t.Error("expected created=true on first check-in")
	}
	if res.Message != MsgCheckedIn {
		t.Errorf("expected %q, got %q", MsgCheckedIn, res.Message)
	}
	if !res.Record.WorkDay.Equal(Day(now)) {
		t.Errorf("expected work day %v, got %v", Day(now), res.Record.WorkDay)
	}
	if len(pub.events) != 1 || pub.events[0].Kind != "checkin" {
		t.Fatalf("expected one checkin event, got %+v", pub.events)
	}
}

func TestCheckInIsIdempotentPerDay(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, nil)
	morning := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	first, err := svc.CheckIn(context.Background(), "e1", morning)
	if err != nil {
		t.Fatalf("first check-in failed: %v", err)
	}
	second, err := svc.CheckIn(context.Background(), "e1", morning.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("repeat check-in must not error: %v", err)
	}
	if second.Created {
		t.Error("expected created=false on repeat check-in")
	}
	if second.Message != MsgAlreadyAttended {
		t.Errorf("expected %q, got %q", MsgAlreadyAttended, second.Message)
	}
	if second.Record.ID != first.Record.ID {
		t.Errorf("expected same record, got %s and %s", first.Record.ID, second.Record.ID)
	}
	if !second.Record.CheckIn.Equal(morning) {
		t.Errorf("repeat must not move the check-in time, got %v", second.Record.CheckIn)
	}
}

func TestCheckInNextDayCreatesNewRecord(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, nil)
	day1 := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	first, _ := svc.CheckIn(context.Background(), "e1", day1)
	second, err := svc.CheckIn(context.Background(), "e1", day1.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("next-day check-in failed: %v", err)
	}
	if !second.Created {
		t.Error("expected a fresh record on the next day")
	}
	if second.Record.ID == first.Record.ID {
		t.Error("expected distinct records for distinct days")
	}
}

func TestCheckInEmptyEmployee(t *testing.T) {
	svc := NewService(newFakeStore(), nil, nil)
	if _, err := svc.CheckIn(context.Background(), "", time.Now()); err == nil {
		t.Error("expected error for empty employee id")
	}
}

func TestCheckInAcquiresAndReleasesLock(t *testing.T) {
	store := newFakeStore()
	locker := &fakeLocker{}
	svc := NewService(store, locker, nil)
	now := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	if _, err := svc.CheckIn(context.Background(), "e1", now); err != nil {
		t.Fatalf("check-in failed: %v", err)
	}
	if len(locker.acquired) != 1 || len(locker.released) != 1 {
		t.Errorf("expected one acquire and one release, got %d/%d", len(locker.acquired), len(locker.released))
	}
}

func TestCheckInProceedsWhenLockDenied(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeLocker{deny: true}, nil)
	now := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	res, err := svc.CheckIn(context.Background(), "e1", now)
	if err != nil {
		t.Fatalf("lock denial must not fail the check-in: %v", err)
	}
	if !res.Created {
		t.Error("expected the insert to still win")
	}
}

// vanishingStore loses the insert race and then cannot find the winner.
type vanishingStore struct{ fakeStore }

func (s *vanishingStore) Insert(ctx context.Context, rec Record) (Record, bool, error) {
	return Record{}, false, nil
}

func (s *vanishingStore) GetByEmployeeDay(ctx context.Context, employeeID string, day time.Time) (Record, error) {
	return Record{}, fmt.Errorf("employee %s: %w", employeeID, ErrNotFound)
}

func TestCheckInConflictWhenWinnerVanishes(t *testing.T) {
	svc := NewService(&vanishingStore{*newFakeStore()}, nil, nil)
	_, err := svc.CheckIn(context.Background(), "e1", time.Now())
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestCheckOutClosesRecord(t *testing.T) {
	store := newFakeStore()
	pub := &recordingPublisher{}
	svc := NewService(store, nil, pub)
	in := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	res, _ := svc.CheckIn(context.Background(), "e1", in)
	out := in.Add(8 * time.Hour)

	rec, err := svc.CheckOut(context.Background(), res.Record.ID, out)
	if err != nil {
		t.Fatalf("check-out failed: %v", err)
	}
	if rec.CheckOut == nil || !rec.CheckOut.Equal(out) {
		t.Errorf("expected check-out %v, got %v", out, rec.CheckOut)
	}
	if rec.Hours() != 8.0 {
		t.Errorf("expected 8.0 hours, got %v", rec.Hours())
	}
	last := pub.events[len(pub.events)-1]
	if last.Kind != "checkout" || last.Hours != 8.0 {
		t.Errorf("expected checkout event with 8 hours, got %+v", last)
	}
}

func TestCheckOutUnknownRecord(t *testing.T) {
	svc := NewService(newFakeStore(), nil, nil)
	_, err := svc.CheckOut(context.Background(), "missing", time.Now())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCheckOutTwice(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, nil)
	in := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	res, _ := svc.CheckIn(context.Background(), "e1", in)
	if _, err := svc.CheckOut(context.Background(), res.Record.ID, in.Add(time.Hour)); err != nil {
		t.Fatalf("first check-out failed: %v", err)
	}
	_, err := svc.CheckOut(context.Background(), res.Record.ID, in.Add(2*time.Hour))
	if !errors.Is(err, ErrAlreadyClosed) {
		t.Errorf("expected ErrAlreadyClosed, got %v", err)
	}
}

func TestCheckOutBeforeCheckIn(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, nil)
	in := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	res, _ := svc.CheckIn(context.Background(), "e1", in)
	_, err := svc.CheckOut(context.Background(), res.Record.ID, in.Add(-time.Minute))
	if !errors.Is(err, ErrInvalidOrdering) {
		t.Errorf("expected ErrInvalidOrdering, got %v", err)
	}
	rec, _ := svc.Get(context.Background(), res.Record.ID)
	if rec.CheckOut != nil {
		t.Error("rejected check-out must not mutate the record")
	}
}

// racingStore reports the record open but loses the conditional update.
type racingStore struct{ *fakeStore }

func (s *racingStore) SetCheckOut(ctx context.Context, id string, at time.Time) (bool, error) {
	return false, nil
}

func TestCheckOutLosesRace(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, nil)
	in := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	res, _ := svc.CheckIn(context.Background(), "e1", in)

	racing := NewService(&racingStore{store}, nil, nil)
	_, err := racing.CheckOut(context.Background(), res.Record.ID, in.Add(time.Hour))
	if !errors.Is(err, ErrAlreadyClosed) {
		t.Errorf("expected ErrAlreadyClosed on lost race, got %v", err)
	}
}

func TestPublishFailureDoesNotFailCheckIn(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, &recordingPublisher{fail: true})
	res, err := svc.CheckIn(context.Background(), "e1", time.Now().UTC())
	if err != nil {
		t.Fatalf("publish failure must not surface: %v", err)
	}
	if !res.Created {
		t.Error("expected record created despite queue failure")
	}
}

func TestDeleteThenCheckInAgain(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, nil)
	now := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	res, _ := svc.CheckIn(context.Background(), "e1", now)
	if err := svc.Delete(context.Background(), res.Record.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	again, err := svc.CheckIn(context.Background(), "e1", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("check-in after delete failed: %v", err)
	}
	if !again.Created {
		t.Error("expected a fresh record after the old one was deleted")
	}
}
