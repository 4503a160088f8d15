package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"facetrack/internal/config"
	"facetrack/internal/queue"
	"facetrack/internal/store"
)

// Worker consumes attendance events and maintains the per-day summary the
// API serves at /v1/stats/today.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "facetrack:events")
	}

	events, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for attendance events...")
	for evt := range events {
		key := "facetrack:summary:" + evt.WorkDay

		switch evt.Kind {
		case "checkin":
			if err := redisClient.Client.HIncrBy(ctx, key, "checkins", 1).Err(); err != nil {
				log.Printf("summary update failed for %s: %v", key, err)
				continue
			}
			log.Printf("check-in: employee %s on %s", evt.EmployeeID, evt.WorkDay)
		case "checkout":
			if err := redisClient.Client.HIncrBy(ctx, key, "checkouts", 1).Err(); err != nil {
				log.Printf("summary update failed for %s: %v", key, err)
				continue
			}
			log.Printf("check-out: employee %s on %s (%.2f hours)", evt.EmployeeID, evt.WorkDay, evt.Hours)
		default:
			log.Printf("skipping event kind %q", evt.Kind)
			continue
		}

		// Summaries only matter near their day; let stale ones expire.
		_ = redisClient.Client.Expire(ctx, key, 7*24*time.Hour).Err()
	}

	log.Println("worker stopped")
}
