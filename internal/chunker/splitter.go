package chunker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"media-scribe/internal/types"
)

// Default policy constants for the transcription provider boundary.
const (
	DefaultSizeLimitBytes = 25 * 1024 * 1024
	DefaultSegmentSeconds = 300
)

// SplitError reports a segmentation failure.
type SplitError struct {
	Message string
	Err     error
}

func (e *SplitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("split failed: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("split failed: %s", e.Message)
}

func (e *SplitError) Unwrap() error { return e.Err }

// commandResult is an internal process execution response.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec.
type execRunner struct{}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
	}
	return result, err
}

// Splitter cuts oversized audio artifacts into bounded-duration segments
// with an ffmpeg stream copy (no re-encode).
type Splitter struct {
	ffmpegBin      string
	ffprobeBin     string
	sizeLimitBytes int64
	segmentSeconds float64
	tempDir        string
	runner         commandRunner
}

// NewSplitter creates a splitter with the given provider size ceiling and
// segment duration policy. Chunk files are written under tempDir.
func NewSplitter(sizeLimitBytes int64, segmentSeconds float64, tempDir string) *Splitter {
	return &Splitter{
		ffmpegBin:      "ffmpeg",
		ffprobeBin:     "ffprobe",
		sizeLimitBytes: sizeLimitBytes,
		segmentSeconds: segmentSeconds,
		tempDir:        tempDir,
		runner:         &execRunner{},
	}
}

// NewSplitterForTests wires custom binaries and runner.
func NewSplitterForTests(ffmpegBin, ffprobeBin string, sizeLimitBytes int64, segmentSeconds float64, tempDir string, runner commandRunner) *Splitter {
	return &Splitter{
		ffmpegBin:      ffmpegBin,
		ffprobeBin:     ffprobeBin,
		sizeLimitBytes: sizeLimitBytes,
		segmentSeconds: segmentSeconds,
		tempDir:        tempDir,
		runner:         runner,
	}
}

// Result holds the ordered chunk sequence and owns any temporary files
// created for it.
type Result struct {
	Chunks  []types.AudioChunk
	tempDir string
}

// Cleanup removes the chunk files. A no-split result owns nothing and this
// is a no-op.
func (r *Result) Cleanup() {
	if r == nil || r.tempDir == "" {
		return
	}
	if err := os.RemoveAll(r.tempDir); err != nil {
		log.Printf("Failed to remove chunk directory %s: %v", r.tempDir, err)
	}
	r.tempDir = ""
}

// Split returns the artifact as a single chunk when it fits under the
// provider size ceiling, otherwise cuts it into consecutive segments of
// the configured duration. Segments cover the full source duration in
// order, with the final segment possibly shorter.
func (s *Splitter) Split(ctx context.Context, path string) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &SplitError{Message: "cannot stat source", Err: err}
	}

	if info.Size() <= s.sizeLimitBytes {
		return &Result{Chunks: []types.AudioChunk{{Index: 0, Path: path}}}, nil
	}

	duration, err := s.probeDuration(ctx, path)
	if err != nil {
		return nil, err
	}

	bounds := PlanSegments(duration, s.segmentSeconds)
	if len(bounds) == 0 {
		return nil, &SplitError{Message: fmt.Sprintf("no segments planned for duration %.2fs", duration)}
	}

	outDir, err := os.MkdirTemp(s.tempDir, "chunks_")
	if err != nil {
		return nil, &SplitError{Message: "cannot create chunk directory", Err: err}
	}

	log.Printf("Splitting %s (%.1fMB, %.1fs) into %d segments of %.0fs",
		filepath.Base(path), float64(info.Size())/(1024*1024), duration, len(bounds), s.segmentSeconds)

	ext := filepath.Ext(path)
	chunks := make([]types.AudioChunk, 0, len(bounds))
	for i, bound := range bounds {
		chunkPath := filepath.Join(outDir, fmt.Sprintf("chunk_%03d%s", i, ext))
		args := []string{
			"-y",
			"-ss", formatSeconds(bound.Start),
			"-t", formatSeconds(bound.Duration),
			"-i", path,
			"-c", "copy",
			chunkPath,
		}

		res, err := s.runner.Run(ctx, s.ffmpegBin, args...)
		if err != nil || res.ExitCode != 0 {
			os.RemoveAll(outDir)
			return nil, &SplitError{
				Message: fmt.Sprintf("ffmpeg exit %d on segment %d: %s", res.ExitCode, i, strings.TrimSpace(res.Stderr)),
				Err:     err,
			}
		}
		if _, err := os.Stat(chunkPath); err != nil {
			os.RemoveAll(outDir)
			return nil, &SplitError{Message: fmt.Sprintf("segment %d missing after ffmpeg", i), Err: err}
		}

		chunks = append(chunks, types.AudioChunk{
			Index:    i,
			Path:     chunkPath,
			Start:    bound.Start,
			Duration: bound.Duration,
		})
	}

	if len(chunks) == 0 {
		os.RemoveAll(outDir)
		return nil, &SplitError{Message: "segmentation produced zero chunks"}
	}

	return &Result{Chunks: chunks, tempDir: outDir}, nil
}

// SegmentBound is one planned cut, in seconds relative to the source.
type SegmentBound struct {
	Start    float64
	Duration float64
}

// PlanSegments partitions a total duration into consecutive non-overlapping
// bounds of at most segmentSeconds each. The final bound absorbs the
// remainder, so bound durations always sum to the total.
func PlanSegments(totalSeconds, segmentSeconds float64) []SegmentBound {
	if totalSeconds <= 0 || segmentSeconds <= 0 {
		return nil
	}

	var bounds []SegmentBound
	for start := 0.0; start < totalSeconds; start += segmentSeconds {
		duration := segmentSeconds
		if start+duration > totalSeconds {
			duration = totalSeconds - start
		}
		bounds = append(bounds, SegmentBound{Start: start, Duration: duration})
	}
	return bounds
}

// probeDuration reads the source duration in seconds via ffprobe.
func (s *Splitter) probeDuration(ctx context.Context, path string) (float64, error) {
	res, err := s.runner.Run(ctx, s.ffprobeBin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil || res.ExitCode != 0 {
		return 0, &SplitError{
			Message: fmt.Sprintf("ffprobe exit %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr)),
			Err:     err,
		}
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(res.Stdout), 64)
	if err != nil {
		return 0, &SplitError{Message: fmt.Sprintf("unparseable duration %q", strings.TrimSpace(res.Stdout)), Err: err}
	}
	return duration, nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
