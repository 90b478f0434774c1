package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"media-scribe/internal/auth"
	"media-scribe/internal/jobs"
)

// JobsHandler serves the job status read path.
type JobsHandler struct {
	jobStore *jobs.Store
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(jobStore *jobs.Store) *JobsHandler {
	return &JobsHandler{jobStore: jobStore}
}

// jobResponse is the polling read model for one job.
func jobResponse(job *jobs.Job) fiber.Map {
	return fiber.Map{
		"job_id":       job.ID,
		"status":       job.Status,
		"result":       job.Result,
		"title":        job.Title,
		"created_at":   job.CreatedAt,
		"completed_at": job.CompletedAt,
	}
}

// Status returns the currently persisted state of one job.
func (h *JobsHandler) Status(c *fiber.Ctx) error {
	job, err := h.jobStore.Get(c.Params("id"))
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Job ID not found",
				"code":  "ERR_JOB_NOT_FOUND",
			})
		}
		log.Printf("Failed to read job %s: %v", c.Params("id"), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read job",
			"code":  "ERR_JOB_READ",
		})
	}
	return c.JSON(jobResponse(job))
}

// Ongoing lists the caller's pending and processing jobs.
func (h *JobsHandler) Ongoing(c *fiber.Ctx) error {
	active, err := h.jobStore.ListActive(auth.Owner(c))
	if err != nil {
		log.Printf("Failed to list active jobs: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list jobs",
			"code":  "ERR_JOB_LIST",
		})
	}

	response := make([]fiber.Map, 0, len(active))
	for _, job := range active {
		response = append(response, jobResponse(job))
	}
	return c.JSON(response)
}
