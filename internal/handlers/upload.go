package handlers

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"media-scribe/internal/auth"
	"media-scribe/internal/jobs"
	"media-scribe/internal/media"
	"media-scribe/internal/pipeline"
	"media-scribe/internal/types"
)

// UploadHandler accepts audio uploads and starts transcription jobs.
type UploadHandler struct {
	orchestrator *pipeline.Orchestrator
	jobStore     *jobs.Store
	uploadDir    string
	publicURL    string
	maxSizeMB    int
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(orchestrator *pipeline.Orchestrator, jobStore *jobs.Store, uploadDir, publicURL string, maxSizeMB int) *UploadHandler {
	return &UploadHandler{
		orchestrator: orchestrator,
		jobStore:     jobStore,
		uploadDir:    uploadDir,
		publicURL:    publicURL,
		maxSizeMB:    maxSizeMB,
	}
}

// Handle processes the upload request. Validation failures surface here;
// once the job id is returned, any later failure is visible only through
// the job status.
func (h *UploadHandler) Handle(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file uploaded",
			"code":  "ERR_NO_FILE",
		})
	}

	maxSize := int64(h.maxSizeMB) * 1024 * 1024
	if file.Size > maxSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("File too large (max %dMB)", h.maxSizeMB),
			"code":  "ERR_FILE_TOO_LARGE",
		})
	}

	filename, err := media.UploadFilename(file.Filename)
	if err != nil {
		if errors.Is(err, media.ErrUnsupportedType) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unsupported file type",
				"code":  "ERR_INVALID_FORMAT",
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "ERR_INVALID_NAME",
		})
	}

	savePath := filepath.Join(h.uploadDir, filename)
	if err := c.SaveFile(file, savePath); err != nil {
		log.Printf("Failed to save uploaded file: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save file",
			"code":  "ERR_SAVE_FAILED",
		})
	}

	title := c.FormValue("title")
	if title == "" {
		title = filename
	}
	jobID := c.FormValue("job_id")
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
		SourceKind: types.SourceUpload,
		SourceURL:  h.publicURL + "/uploads/" + filename,
		AudioPath:  savePath,
	})

	return c.JSON(fiber.Map{
		"job_id":  jobID,
		"status":  types.StatusPending,
		"message": "File uploaded, transcription is processing in the background",
	})
}
