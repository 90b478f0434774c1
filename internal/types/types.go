package types

// Job status constants
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Source type constants
const (
	SourceUpload   = "Upload"
	SourceYouTube  = "YouTube"
	SourceGenerate = "Generate"
)

// TranscriptionResult represents the output of one speech-to-text call
type TranscriptionResult struct {
	Text     string    `json:"text"`
	Language string    `json:"language,omitempty"`
	Duration float64   `json:"duration,omitempty"`
	Segments []Segment `json:"segments,omitempty"`
}

// Segment represents a timestamped slice of a transcript. Offsets are
// relative to the audio unit that produced them, not to the full source.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// AudioChunk is one bounded slice of an oversized audio artifact,
// numbered for ordered reassembly. Start and Duration are seconds
// relative to the source artifact.
type AudioChunk struct {
	Index    int
	Path     string
	Start    float64
	Duration float64
}

// IsTerminal reports whether a job status admits no further transition.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}
