package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/gofiber/websocket/v2"

	"media-scribe/internal/jobs"
	"media-scribe/internal/types"
)

// WatchHandler pushes job status over a websocket until the job reaches
// a terminal state. It mirrors the polling read model; clients that
// prefer plain polling use GET /jobs/:id/status instead.
type WatchHandler struct {
	jobStore *jobs.Store
	interval time.Duration
}

// NewWatchHandler creates a new watch handler.
func NewWatchHandler(jobStore *jobs.Store) *WatchHandler {
	return &WatchHandler{
		jobStore: jobStore,
		interval: time.Second,
	}
}

type watchUpdate struct {
	JobID       string     `json:"job_id"`
	Status      string     `json:"status"`
	Result      *string    `json:"result"`
	Title       string     `json:"title"`
	CompletedAt *time.Time `json:"completed_at"`
}

// Handle streams status updates for one job.
func (h *WatchHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	jobID := c.Params("id")
	var lastStatus string

	for {
		job, err := h.jobStore.Get(jobID)
		if err != nil {
			if errors.Is(err, jobs.ErrNotFound) {
				c.WriteMessage(websocket.TextMessage, []byte(`{"error":"Job ID not found"}`))
			} else {
				log.Printf("Watch read failed for job %s: %v", jobID, err)
			}
			return
		}

		if job.Status != lastStatus {
			payload, err := json.Marshal(watchUpdate{
				JobID:       job.ID,
				Status:      job.Status,
				Result:      job.Result,
				Title:       job.Title,
				CompletedAt: job.CompletedAt,
			})
			if err != nil {
				log.Printf("Watch encode failed for job %s: %v", jobID, err)
				return
			}
			if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
			lastStatus = job.Status
		}

		if types.IsTerminal(job.Status) {
			return
		}
		time.Sleep(h.interval)
	}
}
