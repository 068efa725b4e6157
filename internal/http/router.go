package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nwoyto/PersonalAiHelper-sub000/internal/handlers"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/metrics"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/service"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/speech"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Transcriber service.TranscriptionService
	Calendars   handlers.CalendarService
	Notes       service.NoteService
	DB          handlers.Pinger

	// Note search is optional. Leave these nil when it is disabled.
	NoteSearch     service.NoteSearcher
	NoteReindexer  service.NoteReindexer
	VectorStore    handlers.CollectionChecker
	CollectionName string

	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer

	Voice        speech.Config
	VoiceOptions []handlers.VoiceOption

	ClientURL     string
	DefaultUserID string
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	// Add chi middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(MetricsMiddleware(deps.Metrics))

	// Add CORS middleware
	r.Use(CORS)
	r.Use(UserMiddleware(deps.DefaultUserID))

	transcribeHandler := handlers.NewTranscribeHandler(deps.Transcriber)
	calendarHandler := handlers.NewCalendarHandler(deps.Calendars, deps.ClientURL)
	noteHandler := handlers.NewNoteHandler(deps.Notes, deps.NoteSearch)
	indexHandler := handlers.NewIndexHandler(deps.NoteReindexer)
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.VectorStore, deps.CollectionName)
	voiceOpts := append([]handlers.VoiceOption{handlers.WithVoiceMetrics(deps.Metrics)}, deps.VoiceOptions...)
	voiceHandler := handlers.NewVoiceHandler(deps.Transcriber, deps.Voice, voiceOpts...)

	// Register API routes
	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", healthHandler)
		r.Method(http.MethodPost, "/transcribe", transcribeHandler)
		r.Get("/tasks", transcribeHandler.ListTasks)
		r.Method(http.MethodGet, "/voice/ws", voiceHandler)

		r.Route("/notes", func(r chi.Router) {
			r.Get("/search", noteHandler.Search)
			r.Method(http.MethodPost, "/reindex", indexHandler)
			r.Delete("/{id}", noteHandler.Delete)
		})

		r.Route("/calendar", func(r chi.Router) {
			r.Post("/connect", calendarHandler.Connect)
			r.Get("/callback/{provider}", calendarHandler.Callback)
			r.Get("/integration-status", calendarHandler.Status)
			r.Get("/integrations", calendarHandler.ListIntegrations)
			r.Get("/events", calendarHandler.ListEvents)
			r.Post("/sync", calendarHandler.SyncAll)
			r.Post("/integrations/{id}/sync", calendarHandler.SyncIntegration)
			r.Delete("/integrations/{id}", calendarHandler.Disconnect)
		})
	})

	r.Method(http.MethodGet, "/notes/{id}", noteHandler)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}
