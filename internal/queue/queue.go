package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event is the payload published for every attendance transition.
type Event struct {
	Kind       string    `json:"kind"` // "checkin" or "checkout"
	RecordID   string    `json:"record_id"`
	EmployeeID string    `json:"employee_id"`
	WorkDay    string    `json:"work_day"` // 2006-01-02
	At         time.Time `json:"at"`
	Hours      float64   `json:"hours,omitempty"` // set on checkout
}

// Publisher is the write side of the queue; the attendance service only
// needs this half.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Queue is the abstraction over different backends.
type Queue interface {
	Publisher
	Consume(ctx context.Context) (<-chan Event, error)
}

// InMemory is a minimal channel-backed queue for dev/testing.
type InMemory struct {
	ch chan Event
}

// NewInMemory creates a bounded in-memory queue.
func NewInMemory(size int) *InMemory {
	return &InMemory{ch: make(chan Event, size)}
}

// Publish enqueues an event.
func (q *InMemory) Publish(ctx context.Context, evt Event) error {
	select {
	case q.ch <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume returns a channel for workers.
func (q *InMemory) Consume(ctx context.Context) (<-chan Event, error) {
	out := make(chan Event)
	go func() {
		defer close(out)
		for {
			select {
			case evt := <-q.ch:
				out <- evt
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// RedisQueue implements a simple Redis list-backed queue.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue builds a queue using LPUSH/BRPOP semantics.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = "facetrack:events"
	}
	return &RedisQueue{client: client, key: key}
}

// Publish enqueues an event as JSON.
func (q *RedisQueue) Publish(ctx context.Context, evt Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, body).Err()
}

// Consume streams events using BRPOP. Malformed payloads are skipped.
func (q *RedisQueue) Consume(ctx context.Context) (<-chan Event, error) {
	out := make(chan Event)
	go func() {
		defer close(out)
		for {
			res, err := q.client.BRPop(ctx, 5*time.Second, q.key).Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				if ctx.Err() != nil {
					return
				}
				continue
			}
			if len(res) == 2 {
				var evt Event
				if err := json.Unmarshal([]byte(res[1]), &evt); err == nil {
					out <- evt
				}
			}
		}
	}()
	return out, nil
}
