package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"

	"media-scribe/internal/auth"
	"media-scribe/internal/history"
	"media-scribe/internal/jobs"
	"media-scribe/internal/types"
)

func newTestApp(t *testing.T) (*fiber.App, *jobs.Store) {
	t.Helper()
	dir := t.TempDir()

	jobStore, err := jobs.NewStore(filepath.Join(dir, "jobs.db"))
	if err != nil {
		t.Fatalf("jobs.NewStore: %v", err)
	}
	t.Cleanup(func() { jobStore.Close() })

	historyStore, err := history.NewStore(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatalf("history.NewStore: %v", err)
	}
	t.Cleanup(func() { historyStore.Close() })

	verifier := auth.NewStaticVerifier(map[string]string{"token-u1": "u1"})

	app := fiber.New()
	jobsHandler := NewJobsHandler(jobStore)
	// The upload handler never reaches the orchestrator in these tests;
	// requests fail validation first.
	uploadHandler := NewUploadHandler(nil, jobStore, dir, "http://localhost:8000", 25)

	app.Get("/jobs/:id/status", jobsHandler.Status)
	authed := app.Group("", auth.Middleware(verifier))
	authed.Post("/upload", uploadHandler.Handle)
	authed.Get("/jobs/ongoing", jobsHandler.Ongoing)

	return app, jobStore
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode body %q: %v", raw, err)
	}
	return body
}

// TestJobStatusNotFound returns 404 for unknown job ids.
func TestJobStatusNotFound(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/jobs/nope/status", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

// TestJobStatusRead returns the persisted job state.
func TestJobStatusRead(t *testing.T) {
	app, jobStore := newTestApp(t)

	if _, err := jobStore.Create("j1", "u1", "demo"); err != nil {
		t.Fatalf("create: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/jobs/j1/status", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["status"] != types.StatusPending || body["title"] != "demo" {
		t.Fatalf("body = %v", body)
	}
	if body["result"] != nil || body["completed_at"] != nil {
		t.Fatalf("pending job leaked result fields: %v", body)
	}
}

// TestUploadRequiresAuth rejects requests without a bearer token.
func TestUploadRequiresAuth(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/upload", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

// TestUploadRejectsUnsupportedType returns 400 before any job is created.
func TestUploadRejectsUnsupportedType(t *testing.T) {
	app, _ := newTestApp(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "notes.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write([]byte("not audio"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer token-u1")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["code"] != "ERR_INVALID_FORMAT" {
		t.Fatalf("code = %v", body["code"])
	}
}

// TestOngoingScopedToOwner lists only the caller's active jobs.
func TestOngoingScopedToOwner(t *testing.T) {
	app, jobStore := newTestApp(t)

	if _, err := jobStore.Create("mine", "u1", "mine"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := jobStore.Create("theirs", "u2", "theirs"); err != nil {
		t.Fatalf("create: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/jobs/ongoing", nil)
	req.Header.Set("Authorization", "Bearer token-u1")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	raw, _ := io.ReadAll(resp.Body)
	var list []map[string]interface{}
	if err := json.Unmarshal(raw, &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 || list[0]["job_id"] != "mine" {
		t.Fatalf("list = %v", list)
	}
}
