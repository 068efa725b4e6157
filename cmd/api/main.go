package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nwoyto/PersonalAiHelper-sub000/internal/calendar"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/config"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/contextutil"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/http"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/llm"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/metrics"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/scheduler"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/service"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/speech"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/storage"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/vectorstore"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	// Create repository instances
	noteRepo := storage.NewNoteRepo(db)
	taskRepo := storage.NewTaskRepo(db)
	integrationRepo := storage.NewIntegrationRepo(db)
	eventRepo := storage.NewEventRepo(db)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appMetrics := metrics.New(reg)

	// Create LLM client (external service layer)
	llmClient := llm.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel)
	slog.Debug("LLM configuration", "base_url", cfg.OpenAIBaseURL, "model", cfg.OpenAIModel)

	transcribeOpts := []service.TranscriptionOption{service.WithTranscriptionMetrics(appMetrics)}
	noteOpts := []service.NoteServiceOption{}
	deps := &http.Deps{
		DB:            db,
		Metrics:       appMetrics,
		Gatherer:      reg,
		ClientURL:     cfg.ClientURL,
		DefaultUserID: cfg.DefaultUserID,
		Voice: speech.Config{
			WakeWord:        cfg.VoiceWakeWord,
			AlwaysListening: cfg.VoiceAlwaysListening,
		},
	}

	if cfg.SearchEnabled() {
		vectorStore, search := setupSearch(ctx, cfg, noteRepo)
		defer func() {
			_ = vectorStore.Close()
		}()
		transcribeOpts = append(transcribeOpts, service.WithNoteIndexer(search))
		noteOpts = append(noteOpts, service.WithNoteRemover(search))
		deps.NoteSearch = search
		deps.NoteReindexer = search
		deps.VectorStore = vectorStore
		deps.CollectionName = cfg.QdrantCollection
	} else {
		slog.Info("Note search disabled, QDRANT_URL not set")
	}

	deps.Notes = service.NewNoteService(noteRepo, noteOpts...)
	deps.Transcriber = service.NewTranscriptionService(llmClient, noteRepo, taskRepo, transcribeOpts...)

	managerOpts := []calendar.ManagerOption{calendar.WithMetrics(appMetrics)}
	if cfg.GoogleEnabled() {
		google := calendar.NewGoogleClient(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
		managerOpts = append(managerOpts, calendar.WithProviderClient(calendar.ProviderGoogle, google))
		slog.Info("Google Calendar integration enabled", "redirect_url", cfg.GoogleRedirectURL)
	} else {
		slog.Warn("Google Calendar integration disabled, GOOGLE_CLIENT_ID not set")
	}
	calendars := calendar.NewManager(integrationRepo, eventRepo, managerOpts...)
	deps.Calendars = calendars

	// Periodic calendar sync
	jobs := scheduler.NewCron(time.Local, logger)
	if _, err := jobs.Add("calendar-sync", cfg.CalendarSyncSchedule, scheduler.FuncJob(func(ctx context.Context) {
		if _, err := calendars.SyncAll(ctx); err != nil {
			contextutil.LoggerFromContext(ctx).Error("calendar sync job failed", "error", err)
		}
	})); err != nil {
		log.Fatalf("Invalid CALENDAR_SYNC_SCHEDULE %q: %v", cfg.CalendarSyncSchedule, err)
	}
	jobs.Start()
	defer jobs.Stop()
	slog.Info("Calendar sync scheduled", "schedule", cfg.CalendarSyncSchedule)

	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	srv := &nethttp.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Starting API server", "addr", addr)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			log.Fatalf("API server failed to start: %v", err)
		}
	case <-ctx.Done():
		slog.Info("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("API server shutdown failed", "error", err)
		}
	}
}

// setupSearch connects to Qdrant and prepares the note collection. Any failure is fatal.
func setupSearch(ctx context.Context, cfg *config.Config, notes storage.NoteStore) (*vectorstore.QdrantStore, *service.NoteSearchService) {
	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}
	if err := vectorStore.Health(ctx); err != nil {
		log.Fatalf("Qdrant is unreachable: %v", err)
	}

	// Ensure collection exists with correct vector size
	if err := vectorStore.EnsureCollection(ctx, cfg.QdrantCollection, cfg.QdrantVectorSize); err != nil {
		log.Fatalf("Failed to ensure Qdrant collection: %v", err)
	}
	info, err := vectorStore.GetCollectionInfo(ctx, cfg.QdrantCollection)
	if err != nil {
		log.Fatalf("Failed to read Qdrant collection: %v", err)
	}
	slog.Info("Qdrant collection ready",
		"collection", cfg.QdrantCollection, "vector_size", info.VectorSize, "points", info.PointsCount, "status", info.Status)

	// Validate embedding client vector size (fail-fast)
	embedder := llm.NewEmbeddingsClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.EmbeddingModel, cfg.QdrantVectorSize)
	if _, err := embedder.EmbedTexts(ctx, []string{"test"}); err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	slog.Info("Embedding client validated", "model", cfg.EmbeddingModel, "vector_size", cfg.QdrantVectorSize)

	return vectorStore, service.NewNoteSearchService(embedder, vectorStore, notes, cfg.QdrantCollection)
}
