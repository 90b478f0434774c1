package chunker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeRunner simulates ffprobe/ffmpeg invocations.
type fakeRunner struct {
	run func(ctx context.Context, name string, args ...string) (commandResult, error)
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	if f.run == nil {
		return commandResult{}, nil
	}
	return f.run(ctx, name, args...)
}

func mustWriteFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func argValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// TestPlanSegments checks the partition math: ceil(D/S) bounds, strictly
// increasing starts, durations summing exactly to the total, short tail.
func TestPlanSegments(t *testing.T) {
	cases := []struct {
		name    string
		total   float64
		segment float64
	}{
		{"exact multiple", 600, 300},
		{"short tail", 700, 300},
		{"single short", 120, 300},
		{"ten minutes five minute policy", 600, 300},
		{"fractional", 601.5, 300},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bounds := PlanSegments(tc.total, tc.segment)

			want := int(math.Ceil(tc.total / tc.segment))
			if len(bounds) != want {
				t.Fatalf("segment count = %d, want %d", len(bounds), want)
			}

			var sum float64
			for i, b := range bounds {
				if b.Start != float64(i)*tc.segment {
					t.Fatalf("bound %d start = %v, want %v", i, b.Start, float64(i)*tc.segment)
				}
				sum += b.Duration
			}
			if math.Abs(sum-tc.total) > 1e-9 {
				t.Fatalf("durations sum = %v, want %v", sum, tc.total)
			}

			last := bounds[len(bounds)-1]
			wantLast := tc.total - tc.segment*float64(len(bounds)-1)
			if math.Abs(last.Duration-wantLast) > 1e-9 {
				t.Fatalf("last duration = %v, want %v", last.Duration, wantLast)
			}
		})
	}
}

// TestPlanSegmentsDegenerate checks empty plans for non-positive inputs.
func TestPlanSegmentsDegenerate(t *testing.T) {
	if got := PlanSegments(0, 300); got != nil {
		t.Fatalf("plan for zero duration = %v, want nil", got)
	}
	if got := PlanSegments(600, 0); got != nil {
		t.Fatalf("plan for zero segment = %v, want nil", got)
	}
}

// TestSplitUnderCeilingIsIdentity verifies the no-split path.
func TestSplitUnderCeilingIsIdentity(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "small.mp3")
	mustWriteFile(t, src, 1024)

	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			t.Fatalf("unexpected command %s for small input", name)
			return commandResult{}, nil
		},
	}

	s := NewSplitterForTests("ffmpeg", "ffprobe", 4096, 300, root, runner)
	result, err := s.Split(context.Background(), src)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	defer result.Cleanup()

	if len(result.Chunks) != 1 {
		t.Fatalf("chunk count = %d, want 1", len(result.Chunks))
	}
	if result.Chunks[0].Index != 0 || result.Chunks[0].Path != src {
		t.Fatalf("chunk = %+v, want index 0 referencing source", result.Chunks[0])
	}
}

// TestSplitOversizedSource drives a 10-minute source through a 5-minute
// segment policy and checks the produced chunk sequence.
func TestSplitOversizedSource(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "podcast.mp3")
	mustWriteFile(t, src, 8192)

	var ffmpegCalls int
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			switch name {
			case "ffprobe":
				return commandResult{Stdout: "600.0\n"}, nil
			case "ffmpeg":
				ffmpegCalls++
				out := args[len(args)-1]
				mustWriteFile(t, out, 16)
				if argValue(args, "-c") != "copy" {
					t.Fatalf("expected stream copy, args=%v", args)
				}
				return commandResult{}, nil
			default:
				t.Fatalf("unexpected command %q", name)
				return commandResult{}, nil
			}
		},
	}

	s := NewSplitterForTests("ffmpeg", "ffprobe", 4096, 300, root, runner)
	result, err := s.Split(context.Background(), src)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	defer result.Cleanup()

	if ffmpegCalls != 2 {
		t.Fatalf("ffmpeg calls = %d, want 2", ffmpegCalls)
	}
	if len(result.Chunks) != 2 {
		t.Fatalf("chunk count = %d, want 2", len(result.Chunks))
	}
	for i, chunk := range result.Chunks {
		if chunk.Index != i {
			t.Fatalf("chunk %d index = %d", i, chunk.Index)
		}
		if chunk.Start != float64(i)*300 || chunk.Duration != 300 {
			t.Fatalf("chunk %d bounds = %v/%v", i, chunk.Start, chunk.Duration)
		}
		if _, err := os.Stat(chunk.Path); err != nil {
			t.Fatalf("chunk %d file missing: %v", i, err)
		}
		if !strings.Contains(chunk.Path, fmt.Sprintf("chunk_%03d", i)) {
			t.Fatalf("chunk %d path = %q", i, chunk.Path)
		}
	}

	chunkDir := filepath.Dir(result.Chunks[0].Path)
	result.Cleanup()
	if _, err := os.Stat(chunkDir); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected chunk dir removal, stat err = %v", err)
	}
}

// TestSplitFFmpegFailure maps a non-zero exit to SplitError and leaves no
// chunk files behind.
func TestSplitFFmpegFailure(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "podcast.mp3")
	mustWriteFile(t, src, 8192)

	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			if name == "ffprobe" {
				return commandResult{Stdout: "600.0"}, nil
			}
			return commandResult{Stderr: "invalid data", ExitCode: 1}, errors.New("exit status 1")
		},
	}

	s := NewSplitterForTests("ffmpeg", "ffprobe", 4096, 300, root, runner)
	_, err := s.Split(context.Background(), src)
	if err == nil {
		t.Fatal("expected error")
	}

	var sErr *SplitError
	if !errors.As(err, &sErr) {
		t.Fatalf("error type = %T, want *SplitError", err)
	}
	if !strings.Contains(sErr.Message, "invalid data") {
		t.Fatalf("message = %q, want ffmpeg stderr included", sErr.Message)
	}

	entries, readErr := os.ReadDir(root)
	if readErr != nil {
		t.Fatalf("read dir: %v", readErr)
	}
	for _, e := range entries {
		if e.IsDir() {
			t.Fatalf("chunk dir %s left behind after failure", e.Name())
		}
	}
}

// TestSplitProbeFailure maps ffprobe failures to SplitError.
func TestSplitProbeFailure(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "podcast.mp3")
	mustWriteFile(t, src, 8192)

	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			return commandResult{Stderr: "no such stream", ExitCode: 1}, errors.New("exit status 1")
		},
	}

	s := NewSplitterForTests("ffmpeg", "ffprobe", 4096, 300, root, runner)
	_, err := s.Split(context.Background(), src)

	var sErr *SplitError
	if !errors.As(err, &sErr) {
		t.Fatalf("error = %v, want *SplitError", err)
	}
}

// TestSplitZeroPlan treats an unsplittable oversized input as SplitError.
func TestSplitZeroPlan(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "podcast.mp3")
	mustWriteFile(t, src, 8192)

	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			return commandResult{Stdout: "0.0"}, nil
		},
	}

	s := NewSplitterForTests("ffmpeg", "ffprobe", 4096, 300, root, runner)
	_, err := s.Split(context.Background(), src)

	var sErr *SplitError
	if !errors.As(err, &sErr) {
		t.Fatalf("error = %v, want *SplitError", err)
	}
}
