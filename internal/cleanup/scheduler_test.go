package cleanup

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestSweepRemovesStaleFilesAndEmptyDirs ages a file past the limit and
// checks that it and its emptied chunk directory are removed while fresh
// files survive.
func TestSweepRemovesStaleFilesAndEmptyDirs(t *testing.T) {
	root := t.TempDir()
	chunkDir := filepath.Join(root, "chunks_abc")
	if err := os.MkdirAll(chunkDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	stale := filepath.Join(chunkDir, "chunk_000.mp3")
	fresh := filepath.Join(root, "fresh.mp3")
	for _, path := range []string{stale, fresh} {
		if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}

	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	s := NewScheduler([]string{root}, time.Minute, 24*time.Hour)
	s.sweep()

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("stale file survived: %v", err)
	}
	if _, err := os.Stat(chunkDir); !os.IsNotExist(err) {
		t.Fatalf("empty chunk dir survived: %v", err)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("fresh file removed: %v", err)
	}
}
