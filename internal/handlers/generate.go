package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"media-scribe/internal/auth"
	"media-scribe/internal/history"
	"media-scribe/internal/jobs"
	"media-scribe/internal/pipeline"
)

// GenerateHandler starts content-generation jobs from stored transcripts.
type GenerateHandler struct {
	orchestrator *pipeline.Orchestrator
	jobStore     *jobs.Store
	historyStore *history.Store
}

// NewGenerateHandler creates a new generate handler.
func NewGenerateHandler(orchestrator *pipeline.Orchestrator, jobStore *jobs.Store, historyStore *history.Store) *GenerateHandler {
	return &GenerateHandler{
		orchestrator: orchestrator,
		jobStore:     jobStore,
		historyStore: historyStore,
	}
}

// GenerateRequest represents the request body: the source transcription
// and the style configuration echoed into the stored content record.
type GenerateRequest struct {
	JobID           string `json:"job_id"`
	TranscriptionID int64  `json:"transcription_id"`
	pipeline.StyleConfig
}

// Handle validates the source transcript synchronously, then dispatches
// the generation job.
func (h *GenerateHandler) Handle(c *fiber.Ctx) error {
	var req GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
			"code":  "ERR_INVALID_BODY",
		})
	}

	owner := auth.Owner(c)

	rec, err := h.historyStore.GetTranscription(req.TranscriptionID)
	if err != nil || rec.Owner != owner {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Transcription not found",
			"code":  "ERR_TRANSCRIPTION_NOT_FOUND",
		})
	}

	jobID := req.JobID
	if jobID == "" {
		jobID = uuid.New().String()
	}

	if _, err := h.jobStore.Create(jobID, owner, rec.Title); err != nil {
		if errors.Is(err, jobs.ErrDuplicateID) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Job id already exists",
				"code":  "ERR_DUPLICATE_JOB",
			})
		}
		log.Printf("Failed to create job: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create job",
			"code":  "ERR_JOB_CREATE",
		})
	}

	h.orchestrator.DispatchGeneration(pipeline.GenerateRequest{
		JobID:           jobID,
		Owner:           owner,
		TranscriptionID: req.TranscriptionID,
		Config:          req.StyleConfig,
	})

	return c.JSON(fiber.Map{
		"job_id":  jobID,
		"message": "Content generation started",
	})
}
