package cleanup

import (
	"log"
	"os"
	"path/filepath"
	"time"
)

// Scheduler periodically removes stale artifacts (downloaded audio, chunk
// directories) from the watched directories.
type Scheduler struct {
	dirs     []string
	interval time.Duration
	maxAge   time.Duration
	stopChan chan struct{}
}

// NewScheduler creates a scheduler sweeping the given directories.
func NewScheduler(dirs []string, interval, maxAge time.Duration) *Scheduler {
	return &Scheduler{
		dirs:     dirs,
		interval: interval,
		maxAge:   maxAge,
		stopChan: make(chan struct{}),
	}
}

// Start runs an initial sweep and begins the periodic cleanup.
func (s *Scheduler) Start() {
	s.sweep()

	ticker := time.NewTicker(s.interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	log.Printf("Cleanup scheduler started (interval: %s, max age: %s)", s.interval, s.maxAge)
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	close(s.stopChan)
}

// sweep removes files older than maxAge from the watched directories and
// prunes directories emptied by the removal.
func (s *Scheduler) sweep() {
	now := time.Now()
	var deleted int

	for _, dir := range s.dirs {
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				return nil
			}
			if now.Sub(info.ModTime()) > s.maxAge {
				if err := os.Remove(path); err != nil {
					log.Printf("Failed to delete stale file %s: %v", path, err)
				} else {
					deleted++
				}
			}
			return nil
		})
		if err != nil {
			log.Printf("Cleanup walk failed for %s: %v", dir, err)
		}

		s.pruneEmptyDirs(dir)
	}

	if deleted > 0 {
		log.Printf("Cleanup removed %d stale files", deleted)
	}
}

// pruneEmptyDirs removes empty subdirectories left behind by chunk
// cleanup. The root itself is kept.
func (s *Scheduler) pruneEmptyDirs(root string) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		sub := filepath.Join(root, entry.Name())
		if contents, err := os.ReadDir(sub); err == nil && len(contents) == 0 {
			os.Remove(sub)
		}
	}
}

// EnsureDirs creates the watched directories if missing.
func EnsureDirs(dirs ...string) error {
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
