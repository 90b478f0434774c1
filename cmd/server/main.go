package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"media-scribe/internal/auth"
	"media-scribe/internal/chunker"
	"media-scribe/internal/cleanup"
	"media-scribe/internal/handlers"
	"media-scribe/internal/history"
	"media-scribe/internal/jobs"
	"media-scribe/internal/media"
	"media-scribe/internal/openai"
	"media-scribe/internal/pipeline"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port      int    `yaml:"port"`
		Host      string `yaml:"host"`
		PublicURL string `yaml:"public_url"`
	} `yaml:"server"`

	Storage struct {
		JobsDatabase    string `yaml:"jobs_database"`
		HistoryDatabase string `yaml:"history_database"`
		UploadDir       string `yaml:"upload_dir"`
		DownloadDir     string `yaml:"download_dir"`
		TempDir         string `yaml:"temp_dir"`
	} `yaml:"storage"`

	Transcription struct {
		SizeLimitMB    int64   `yaml:"size_limit_mb"`
		SegmentSeconds float64 `yaml:"segment_seconds"`
	} `yaml:"transcription"`

	YouTube struct {
		CookiesFile string `yaml:"cookies_file"`
	} `yaml:"youtube"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeHours     int `yaml:"max_age_hours"`
	} `yaml:"cleanup"`

	Limits struct {
		MaxFileSizeMB int `yaml:"max_file_size_mb"`
	} `yaml:"limits"`

	Auth struct {
		Tokens map[string]string `yaml:"tokens"`
	} `yaml:"auth"`
}

func main() {
	// Load configuration
	config, err := loadConfig("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// API key comes from the environment, optionally via a .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on the environment")
	}
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Fatal("OPENAI_API_KEY is not set")
	}

	// Ensure directories exist
	if err := cleanup.EnsureDirs(
		config.Storage.UploadDir,
		config.Storage.DownloadDir,
		config.Storage.TempDir,
	); err != nil {
		log.Fatalf("Failed to create storage directories: %v", err)
	}

	// Custom logger setup
	logBuffer := &LogBuffer{
		lines: make([]string, 0, 1000),
	}
	multiWriter := io.MultiWriter(os.Stdout, logBuffer)
	log.SetOutput(multiWriter)

	// Initialize components
	log.Println("Initializing components...")

	jobStore, err := jobs.NewStore(config.Storage.JobsDatabase)
	if err != nil {
		log.Fatalf("Failed to initialize job store: %v", err)
	}
	defer jobStore.Close()

	historyStore, err := history.NewStore(config.Storage.HistoryDatabase)
	if err != nil {
		log.Fatalf("Failed to initialize history store: %v", err)
	}
	defer historyStore.Close()

	sizeLimit := config.Transcription.SizeLimitMB * 1024 * 1024
	if sizeLimit <= 0 {
		sizeLimit = chunker.DefaultSizeLimitBytes
	}
	segmentSeconds := config.Transcription.SegmentSeconds
	if segmentSeconds <= 0 {
		segmentSeconds = chunker.DefaultSegmentSeconds
	}
	splitter := chunker.NewSplitter(sizeLimit, segmentSeconds, config.Storage.TempDir)

	client := openai.NewClient(apiKey)
	downloader := media.NewDownloader(config.Storage.DownloadDir, config.YouTube.CookiesFile)

	orchestrator := pipeline.NewOrchestrator(jobStore, historyStore, splitter, client, client, downloader)

	// Cleanup scheduler sweeps uploads, downloads and chunk temp dirs
	cleanupScheduler := cleanup.NewScheduler(
		[]string{config.Storage.UploadDir, config.Storage.DownloadDir, config.Storage.TempDir},
		time.Duration(config.Cleanup.IntervalMinutes)*time.Minute,
		time.Duration(config.Cleanup.MaxAgeHours)*time.Hour,
	)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: config.Limits.MaxFileSizeMB * 1024 * 1024,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Initialize handlers
	uploadHandler := handlers.NewUploadHandler(orchestrator, jobStore, config.Storage.UploadDir, config.Server.PublicURL, config.Limits.MaxFileSizeMB)
	youtubeHandler := handlers.NewYouTubeHandler(orchestrator, jobStore, downloader)
	generateHandler := handlers.NewGenerateHandler(orchestrator, jobStore, historyStore)
	jobsHandler := handlers.NewJobsHandler(jobStore)
	historyHandler := handlers.NewHistoryHandler(historyStore)
	watchHandler := handlers.NewWatchHandler(jobStore)

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// Job status is readable without auth; the job id is the capability.
	app.Get("/jobs/:id/status", jobsHandler.Status)
	app.Get("/ws/jobs/:id", websocket.New(watchHandler.Handle))

	app.Static("/uploads", config.Storage.UploadDir)

	authed := app.Group("", auth.Middleware(auth.NewStaticVerifier(config.Auth.Tokens)))
	authed.Post("/upload", uploadHandler.Handle)
	authed.Post("/youtube", youtubeHandler.Handle)
	authed.Post("/generate", generateHandler.Handle)
	authed.Get("/jobs/ongoing", jobsHandler.Ongoing)
	authed.Get("/history", historyHandler.Transcriptions)
	authed.Get("/content-history", historyHandler.Content)

	// Get server logs
	app.Get("/logs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"logs": logBuffer.GetLogs(),
		})
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	log.Printf("Server starting on %s", addr)
	log.Println("Endpoints:")
	log.Println("   POST /upload          - Upload audio file")
	log.Println("   POST /youtube         - Transcribe YouTube audio")
	log.Println("   POST /generate        - Generate content from a transcript")
	log.Println("   GET  /jobs/:id/status - Poll job status")
	log.Println("   GET  /jobs/ongoing    - List active jobs")
	log.Println("   GET  /ws/jobs/:id     - Watch job status over websocket")
	log.Println("   GET  /history         - Transcription history")
	log.Println("   GET  /content-history - Generated content history")
	log.Println("   GET  /logs            - View server logs")
	log.Println("   GET  /health          - Health check")

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down gracefully...")
		app.Shutdown()
	}()

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// LogBuffer captures logs in memory
type LogBuffer struct {
	lines []string
	mu    sync.Mutex
}

func (lb *LogBuffer) Write(p []byte) (n int, err error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.lines = append(lb.lines, string(p))

	// Keep last 1000 lines
	if len(lb.lines) > 1000 {
		lb.lines = lb.lines[len(lb.lines)-1000:]
	}

	return len(p), nil
}

func (lb *LogBuffer) GetLogs() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	logs := make([]string, len(lb.lines))
	copy(logs, lb.lines)
	return logs
}

// loadConfig loads configuration from YAML file
func loadConfig(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
