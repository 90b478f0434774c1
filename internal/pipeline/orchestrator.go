package pipeline

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"media-scribe/internal/chunker"
	"media-scribe/internal/history"
	"media-scribe/internal/jobs"
	"media-scribe/internal/types"
)

// Transcriber converts one bounded audio unit to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*types.TranscriptionResult, error)
}

// Generator produces text from one composed prompt.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Splitter cuts an audio artifact into bounded chunks.
type Splitter interface {
	Split(ctx context.Context, path string) (*chunker.Result, error)
}

// AudioFetcher acquires a local audio artifact from a remote source.
type AudioFetcher interface {
	Download(ctx context.Context, url string) (string, error)
}

// Orchestrator drives jobs through the pending -> processing ->
// completed|failed state machine. Each dispatched job runs on its own
// goroutine; chunk transcription within a job is sequential so the
// transcript preserves temporal order.
type Orchestrator struct {
	jobs        *jobs.Store
	history     *history.Store
	splitter    Splitter
	transcriber Transcriber
	generator   Generator
	fetcher     AudioFetcher
}

// NewOrchestrator wires the pipeline dependencies.
func NewOrchestrator(jobStore *jobs.Store, historyStore *history.Store, splitter Splitter, transcriber Transcriber, generator Generator, fetcher AudioFetcher) *Orchestrator {
	return &Orchestrator{
		jobs:        jobStore,
		history:     historyStore,
		splitter:    splitter,
		transcriber: transcriber,
		generator:   generator,
		fetcher:     fetcher,
	}
}

// TranscribeRequest describes one transcription job. AudioPath is set for
// uploads; YouTube jobs leave it empty and carry the source URL instead.
type TranscribeRequest struct {
	JobID      string
	Owner      string
	Title      string
	SourceKind string
	SourceURL  string
	AudioPath  string
}

// GenerateRequest describes one content-generation job derived from a
// stored transcription.
type GenerateRequest struct {
	JobID           string
	Owner           string
	TranscriptionID int64
	Config          StyleConfig
}

// DispatchTranscription hands the job to a background goroutine and
// returns immediately. Failures after this point are recorded only as a
// failed job transition.
func (o *Orchestrator) DispatchTranscription(req TranscribeRequest) {
	go o.runTranscription(context.Background(), req)
}

// DispatchGeneration hands the job to a background goroutine and returns
// immediately.
func (o *Orchestrator) DispatchGeneration(req GenerateRequest) {
	go o.runGeneration(context.Background(), req)
}

func (o *Orchestrator) runTranscription(ctx context.Context, req TranscribeRequest) {
	if _, err := o.jobs.Transition(req.JobID, types.StatusProcessing, nil); err != nil {
		log.Printf("Job %s: failed to enter processing: %v", req.JobID, err)
		return
	}

	audioPath := req.AudioPath
	if audioPath == "" {
		downloaded, err := o.fetcher.Download(ctx, req.SourceURL)
		if err != nil {
			o.fail(req.JobID, "acquisition", err)
			return
		}
		audioPath = downloaded
	}

	result, err := o.splitter.Split(ctx, audioPath)
	if err != nil {
		o.fail(req.JobID, "split", err)
		return
	}
	defer result.Cleanup()

	if len(result.Chunks) > 1 {
		log.Printf("Job %s: transcribing %d chunks sequentially", req.JobID, len(result.Chunks))
	}

	// Chunks arrive ordered by index; transcribe them one by one and
	// join the texts in that order.
	texts := make([]string, 0, len(result.Chunks))
	var segments []types.Segment
	for _, chunk := range result.Chunks {
		tr, err := o.transcriber.Transcribe(ctx, chunk.Path)
		if err != nil {
			o.fail(req.JobID, "transcription", err)
			return
		}
		texts = append(texts, tr.Text)
		// Multi-chunk segment offsets stay chunk-relative; they are
		// carried through, not re-timed.
		segments = append(segments, tr.Segments...)
	}

	transcript := strings.Join(texts, "\n")

	var segmentsJSON *string
	if len(segments) > 0 {
		encoded, err := json.Marshal(segments)
		if err != nil {
			o.fail(req.JobID, "segment encoding", err)
			return
		}
		s := string(encoded)
		segmentsJSON = &s
	}

	if _, err := o.history.SaveTranscription(req.Owner, req.SourceKind, req.SourceURL, req.Title, transcript, segmentsJSON); err != nil {
		o.fail(req.JobID, "history", err)
		return
	}

	if _, err := o.jobs.Transition(req.JobID, types.StatusCompleted, &transcript); err != nil {
		log.Printf("Job %s: failed to record completion: %v", req.JobID, err)
		return
	}
	log.Printf("Job %s: transcription completed (%d chunks)", req.JobID, len(result.Chunks))
}

func (o *Orchestrator) runGeneration(ctx context.Context, req GenerateRequest) {
	if _, err := o.jobs.Transition(req.JobID, types.StatusProcessing, nil); err != nil {
		log.Printf("Job %s: failed to enter processing: %v", req.JobID, err)
		return
	}

	rec, err := o.history.GetTranscription(req.TranscriptionID)
	if err != nil {
		o.fail(req.JobID, "transcript lookup", err)
		return
	}
	if rec.Owner != req.Owner {
		o.fail(req.JobID, "transcript lookup", history.ErrNotFound)
		return
	}

	prompt := BuildArticlePrompt(rec.Transcript, req.Config)

	generated, err := o.generator.Complete(ctx, prompt)
	if err != nil {
		o.fail(req.JobID, "generation", err)
		return
	}

	cfgJSON, err := json.Marshal(req.Config)
	if err != nil {
		o.fail(req.JobID, "config encoding", err)
		return
	}

	if _, err := o.history.SaveContent(req.Owner, rec.ID, rec.Title, generated, string(cfgJSON)); err != nil {
		o.fail(req.JobID, "history", err)
		return
	}

	if _, err := o.jobs.Transition(req.JobID, types.StatusCompleted, &generated); err != nil {
		log.Printf("Job %s: failed to record completion: %v", req.JobID, err)
		return
	}
	log.Printf("Job %s: content generation completed", req.JobID)
}

// fail records a terminal failure. Error detail goes to the log only; the
// job record carries no result for failed jobs.
func (o *Orchestrator) fail(jobID, stage string, cause error) {
	log.Printf("Job %s: %s failed: %v", jobID, stage, cause)
	if _, err := o.jobs.Transition(jobID, types.StatusFailed, nil); err != nil {
		log.Printf("Job %s: failed to record failure: %v", jobID, err)
	}
}
