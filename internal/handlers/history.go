package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"media-scribe/internal/auth"
	"media-scribe/internal/history"
)

// HistoryHandler serves the append-only transcription and content
// listings.
type HistoryHandler struct {
	historyStore *history.Store
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(historyStore *history.Store) *HistoryHandler {
	return &HistoryHandler{historyStore: historyStore}
}

// Transcriptions lists the caller's transcription history, newest first.
func (h *HistoryHandler) Transcriptions(c *fiber.Ctx) error {
	records, err := h.historyStore.ListTranscriptions(auth.Owner(c))
	if err != nil {
		log.Printf("Failed to list transcription history: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list history",
			"code":  "ERR_HISTORY_LIST",
		})
	}

	response := make([]fiber.Map, 0, len(records))
	for _, rec := range records {
		title := rec.Title
		if title == "" {
			title = "Untitled Transcription"
		}
		response = append(response, fiber.Map{
			"id":         rec.ID,
			"title":      title,
			"source":     rec.Source,
			"source_url": rec.SourceURL,
			"transcript": rec.Transcript,
			"segments":   rec.Segments,
			"created_at": rec.CreatedAt,
		})
	}
	return c.JSON(response)
}

// Content lists the caller's generated-content history, newest first.
func (h *HistoryHandler) Content(c *fiber.Ctx) error {
	records, err := h.historyStore.ListContent(auth.Owner(c))
	if err != nil {
		log.Printf("Failed to list content history: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list history",
			"code":  "ERR_HISTORY_LIST",
		})
	}

	response := make([]fiber.Map, 0, len(records))
	for _, rec := range records {
		response = append(response, fiber.Map{
			"id":                  rec.ID,
			"title":               rec.Title,
			"transcription_id":    rec.TranscriptionID,
			"transcription_title": rec.TranscriptionTitle,
			"generated_content":   rec.Generated,
			"config":              rec.Config,
			"created_at":          rec.CreatedAt,
		})
	}
	return c.JSON(response)
}
