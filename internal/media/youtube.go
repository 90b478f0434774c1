package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

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

// Downloader fetches YouTube audio through yt-dlp, extracting the
// best-available audio normalized to a single mp3 container.
type Downloader struct {
	binary      string
	outputDir   string
	cookiesFile string
	runner      commandRunner
}

// NewDownloader creates a downloader writing into outputDir. cookiesFile
// is optional; when present it is passed to yt-dlp for authentication.
func NewDownloader(outputDir, cookiesFile string) *Downloader {
	return &Downloader{
		binary:      "yt-dlp",
		outputDir:   outputDir,
		cookiesFile: cookiesFile,
		runner:      &execRunner{},
	}
}

// NewDownloaderForTests wires a custom binary name and runner.
func NewDownloaderForTests(binary, outputDir, cookiesFile string, runner commandRunner) *Downloader {
	return &Downloader{
		binary:      binary,
		outputDir:   outputDir,
		cookiesFile: cookiesFile,
		runner:      runner,
	}
}

// FetchTitle probes the video title without downloading.
func (d *Downloader) FetchTitle(ctx context.Context, url string) (string, error) {
	args := []string{"--print", "title", "--no-download", url}
	res, err := d.runner.Run(ctx, d.binary, args...)
	if err != nil || res.ExitCode != 0 {
		return "", fmt.Errorf("yt-dlp title probe failed (exit %d): %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	title := strings.TrimSpace(res.Stdout)
	if title == "" {
		return "", fmt.Errorf("yt-dlp returned an empty title")
	}
	return title, nil
}

// Download fetches the audio track and returns the local mp3 path.
func (d *Downloader) Download(ctx context.Context, url string) (string, error) {
	if err := os.MkdirAll(d.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %v", err)
	}

	id := uuid.New().String()
	template := filepath.Join(d.outputDir, id+".%(ext)s")
	finalPath := filepath.Join(d.outputDir, id+".mp3")

	args := []string{
		"-x",
		"--audio-format", "mp3",
		"--audio-quality", "192K",
		"-o", template,
	}
	if d.cookiesFile != "" {
		if _, err := os.Stat(d.cookiesFile); err == nil {
			args = append(args, "--cookies", d.cookiesFile)
		}
	}
	args = append(args, url)

	log.Printf("Downloading YouTube audio: %s", url)

	res, err := d.runner.Run(ctx, d.binary, args...)
	if err != nil || res.ExitCode != 0 {
		return "", fmt.Errorf("yt-dlp failed (exit %d): %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	if _, err := os.Stat(finalPath); err != nil {
		return "", fmt.Errorf("downloaded file not found: %s", finalPath)
	}
	return finalPath, nil
}
