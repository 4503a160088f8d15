package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"facetrack/internal/metrics"
)

// Recognizer is the capture-and-classify round trip.
type Recognizer interface {
	Submit(ctx context.Context, frame []byte) ([]Outcome, error)
}

// Sink receives admitted check-in signals. *Client implements it against
// the API; tests plug fakes in.
type Sink interface {
	CheckIn(ctx context.Context, employeeID string) (CheckInReply, error)
}

// Loop drives one capture session: every interval it reads a frame,
// submits it, and routes recognized employees through the dedup guard into
// the sink. Ticks never overlap; submission failures are transient and the
// loop keeps polling until Stop.
type Loop struct {
	frames   FrameSource
	rec      Recognizer
	sink     Sink
	guard    *Guard
	interval time.Duration

	mu     sync.Mutex
	active bool
	sched  *gocron.Scheduler
}

// NewLoop builds a loop with the reference 3s cadence unless overridden.
func NewLoop(frames FrameSource, rec Recognizer, sink Sink, interval time.Duration) *Loop {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Loop{
		frames:   frames,
		rec:      rec,
		sink:     sink,
		guard:    NewGuard(),
		interval: interval,
	}
}

// Start begins a fresh session: the guard resets and the scheduler fires
// every interval. Singleton mode guarantees a tick finishes before the
// next one may run.
func (l *Loop) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active {
		return errors.New("session already running")
	}
	l.guard.Reset()
	l.active = true

	l.sched = gocron.NewScheduler(time.UTC)
	if _, err := l.sched.Every(l.interval).SingletonMode().Do(l.tick); err != nil {
		l.active = false
		return err
	}
	l.sched.StartAsync()
	return nil
}

// Stop halts the timer so no further submissions are issued. A submission
// already in flight completes but its results are discarded.
func (l *Loop) Stop() {
	l.mu.Lock()
	sched := l.sched
	l.active = false
	l.sched = nil
	l.mu.Unlock()
	if sched != nil {
		sched.Stop()
	}
}

func (l *Loop) isActive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

func (l *Loop) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), l.interval*10)
	defer cancel()
	l.runOnce(ctx, time.Now().UTC())
}

// runOnce is one capture-submit-process cycle.
func (l *Loop) runOnce(ctx context.Context, now time.Time) {
	frame, err := l.frames.Next(ctx)
	if errors.Is(err, ErrNoFrame) {
		return
	}
	if err != nil {
		log.Printf("frame read failed: %v", err)
		return
	}

	metrics.CapturesTotal.Inc()
	outcomes, err := l.rec.Submit(ctx, frame)
	if err != nil {
		metrics.ClassifierFailures.Inc()
		log.Printf("capture submit failed (will retry): %v", err)
		return
	}
	if !l.isActive() {
		// Session stopped while the submission was in flight.
		return
	}

	for _, outcome := range outcomes {
		if outcome.EmployeeID == "" {
			metrics.UnknownTotal.Inc()
			log.Printf("unrecognized face: %s", outcome.Message)
			continue
		}
		metrics.RecognizedTotal.Inc()
		if !l.guard.Admit(outcome.EmployeeID, now) {
			continue
		}
		reply, err := l.sink.CheckIn(ctx, outcome.EmployeeID)
		if err != nil {
			log.Printf("check-in failed for %s: %v", outcome.EmployeeID, err)
			continue
		}
		log.Printf("employee %s: %s", outcome.EmployeeID, reply.Message)
	}
}
