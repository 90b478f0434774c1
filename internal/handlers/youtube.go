package handlers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"media-scribe/internal/auth"
	"media-scribe/internal/jobs"
	"media-scribe/internal/media"
	"media-scribe/internal/pipeline"
	"media-scribe/internal/types"
)

// YouTubeHandler starts transcription jobs for YouTube links. Download
// and transcription both happen in the background worker.
type YouTubeHandler struct {
	orchestrator *pipeline.Orchestrator
	jobStore     *jobs.Store
	downloader   *media.Downloader
}

// NewYouTubeHandler creates a new YouTube handler.
func NewYouTubeHandler(orchestrator *pipeline.Orchestrator, jobStore *jobs.Store, downloader *media.Downloader) *YouTubeHandler {
	return &YouTubeHandler{
		orchestrator: orchestrator,
		jobStore:     jobStore,
		downloader:   downloader,
	}
}

// YouTubeRequest represents the request body.
type YouTubeRequest struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	JobID string `json:"job_id"`
}

// Handle processes YouTube transcription requests.
func (h *YouTubeHandler) Handle(c *fiber.Ctx) error {
	var req YouTubeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
			"code":  "ERR_INVALID_BODY",
		})
	}
	if req.URL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "URL is required",
			"code":  "ERR_NO_URL",
		})
	}

	title := req.Title
	if title == "" {
		// Best effort; fall back to the raw URL so the status page
		// still shows something identifiable.
		probeCtx, cancel := context.WithTimeout(c.Context(), 30*time.Second)
		defer cancel()
		if probed, err := h.downloader.FetchTitle(probeCtx, req.URL); err == nil {
			title = probed
		} else {
			log.Printf("Title probe failed for %s: %v", req.URL, err)
			title = req.URL
		}
	}

	jobID := req.JobID
	if jobID == "" {
		jobID = uuid.New().String()
	}

	owner := auth.Owner(c)
	if _, err := h.jobStore.Create(jobID, owner, title); err != nil {
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

	h.orchestrator.DispatchTranscription(pipeline.TranscribeRequest{
		JobID:      jobID,
		Owner:      owner,
		Title:      title,
		SourceKind: types.SourceYouTube,
		SourceURL:  req.URL,
	})

	return c.JSON(fiber.Map{
		"job_id":        jobID,
		"youtube_title": title,
		"status":        types.StatusPending,
		"message":       "YouTube transcription started",
	})
}
