package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"facetrack/internal/config"
	"facetrack/internal/session"
)

// Agent runs one capture terminal: it polls the camera spool directory on a
// fixed cadence, submits frames to the API for classification, and issues
// check-ins for recognized employees after local dedup.
func main() {
	cfg := config.Load()

	client := session.NewClient(cfg.APIBaseURL)
	if cfg.AgentUsername == "" || cfg.AgentPassword == "" {
		log.Fatal("AGENT_USERNAME and AGENT_PASSWORD must be set")
	}

	loginCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := client.Login(loginCtx, cfg.AgentUsername, cfg.AgentPassword); err != nil {
		cancel()
		log.Fatalf("login failed: %v", err)
	}
	cancel()
	log.Printf("terminal authenticated against %s", cfg.APIBaseURL)

	frames := session.NewDirSource(cfg.FrameDir)
	loop := session.NewLoop(frames, client, client, cfg.CaptureInterval)
	if err := loop.Start(); err != nil {
		log.Fatalf("session start failed: %v", err)
	}
	log.Printf("capture session started (every %s, frames from %s)", cfg.CaptureInterval, cfg.FrameDir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("stopping capture session...")
	loop.Stop()
	log.Println("session stopped")
}
