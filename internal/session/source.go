package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNoFrame means the source has nothing new; the loop skips the tick.
var ErrNoFrame = errors.New("no new frame")

// FrameSource yields camera frames for submission.
type FrameSource interface {
	Next(ctx context.Context) ([]byte, error)
}

// DirSource reads the newest image from a spool directory that a camera
// process writes frames into. A frame is served once; until a newer file
// appears, Next returns ErrNoFrame.
type DirSource struct {
	Dir string

	lastPath string
	lastMod  time.Time
}

// NewDirSource creates a source over dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{Dir: dir}
}

// Next returns the newest unseen frame.
func (s *DirSource) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, err
	}

	var (
		newest    string
		newestMod time.Time
	)
	for _, entry := range entries {
		if entry.IsDir() || !isImage(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(newestMod) {
			newest = filepath.Join(s.Dir, entry.Name())
			newestMod = info.ModTime()
		}
	}
	if newest == "" {
		return nil, ErrNoFrame
	}
	if newest == s.lastPath && !newestMod.After(s.lastMod) {
		return nil, ErrNoFrame
	}

	frame, err := os.ReadFile(newest)
	if err != nil {
		return nil, err
	}
	s.lastPath, s.lastMod = newest, newestMod
	return frame, nil
}

func isImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}
