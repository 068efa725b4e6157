package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_llm_client.go -package=mocks github.com/nwoyto/PersonalAiHelper-sub000/internal/service LLMClient
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_transcription_service.go -package=mocks github.com/nwoyto/PersonalAiHelper-sub000/internal/service TranscriptionService

import (
	"context"
	"strings"

	"github.com/nwoyto/PersonalAiHelper-sub000/internal/contextutil"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/llm"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/metrics"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/speech"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/storage"
)

// LLMClient extracts tasks from free text.
// This interface is defined from the service layer's perspective (consumer-first).
type LLMClient interface {
	ExtractTasks(ctx context.Context, text string) ([]llm.ExtractedTask, error)
}

// NoteIndexer makes a stored note searchable.
type NoteIndexer interface {
	IndexNote(ctx context.Context, note storage.NoteRecord) error
}

// TranscribeRequest represents a transcription request in the domain layer.
type TranscribeRequest struct {
	UserID string
	Text   string
}

// TranscribeResponse holds the stored note and the tasks extracted from it.
type TranscribeResponse struct {
	Note  storage.NoteRecord
	Tasks []storage.TaskRecord
}

// TranscriptionService turns transcripts into notes and tasks.
type TranscriptionService interface {
	// Transcribe extracts tasks from the text and stores both the note and the tasks.
	Transcribe(ctx context.Context, req TranscribeRequest) (TranscribeResponse, error)
	// Tasks lists a user's tasks, newest first.
	Tasks(ctx context.Context, userID string) ([]storage.TaskRecord, error)
}

// transcriptionService implements TranscriptionService.
type transcriptionService struct {
	llmClient LLMClient
	notes     storage.NoteStore
	tasks     storage.TaskStore
	indexer   NoteIndexer
	metrics   *metrics.Metrics
}

// TranscriptionOption configures the transcription service.
type TranscriptionOption func(*transcriptionService)

// WithNoteIndexer indexes every stored note. Indexing failures are logged, not returned.
func WithNoteIndexer(idx NoteIndexer) TranscriptionOption {
	return func(s *transcriptionService) { s.indexer = idx }
}

// WithTranscriptionMetrics records transcription outcomes.
func WithTranscriptionMetrics(m *metrics.Metrics) TranscriptionOption {
	return func(s *transcriptionService) { s.metrics = m }
}

// NewTranscriptionService creates a new TranscriptionService.
func NewTranscriptionService(llmClient LLMClient, notes storage.NoteStore, tasks storage.TaskStore, opts ...TranscriptionOption) TranscriptionService {
	s := &transcriptionService{
		llmClient: llmClient,
		notes:     notes,
		tasks:     tasks,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Transcribe processes a transcription request.
func (s *transcriptionService) Transcribe(ctx context.Context, req TranscribeRequest) (resp TranscribeResponse, err error) {
	logger := contextutil.LoggerFromContext(ctx)
	defer func() {
		s.metrics.ObserveTranscription(len(resp.Tasks), err)
	}()

	text := strings.TrimSpace(req.Text)
	if text == "" {
		logger.WarnContext(ctx, "empty text in transcription request")
		return TranscribeResponse{}, &ValidationError{
			Field:   "text",
			Message: "cannot be empty",
		}
	}
	if req.UserID == "" {
		return TranscribeResponse{}, &ValidationError{
			Field:   "userId",
			Message: "cannot be empty",
		}
	}

	extracted, err := s.llmClient.ExtractTasks(ctx, text)
	if err != nil {
		logger.ErrorContext(ctx, "failed to extract tasks", "error", err)
		return TranscribeResponse{}, externalError(err, "failed to extract tasks")
	}

	note := storage.NoteRecord{UserID: req.UserID, Content: text}
	if err := s.notes.Create(ctx, &note); err != nil {
		logger.ErrorContext(ctx, "failed to store note", "error", err)
		return TranscribeResponse{}, WrapError(err, "failed to store note")
	}

	tasks := make([]storage.TaskRecord, 0, len(extracted))
	for _, t := range extracted {
		tasks = append(tasks, storage.TaskRecord{
			UserID:      req.UserID,
			NoteID:      note.ID,
			Title:       t.Title,
			Description: t.Description,
			DueDate:     t.Due(),
			Priority:    llm.NormalizePriority(t.Priority),
			Category:    t.Category,
		})
	}
	if err := s.tasks.CreateBatch(ctx, tasks); err != nil {
		logger.ErrorContext(ctx, "failed to store tasks", "note_id", note.ID, "error", err)
		return TranscribeResponse{}, WrapError(err, "failed to store tasks")
	}

	if s.indexer != nil {
		if err := s.indexer.IndexNote(ctx, note); err != nil {
			logger.WarnContext(ctx, "failed to index note", "note_id", note.ID, "error", err)
		}
	}

	logger.InfoContext(ctx, "transcription processed", "note_id", note.ID, "text_length", len(text), "tasks", len(tasks))
	return TranscribeResponse{Note: note, Tasks: tasks}, nil
}

// Tasks lists a user's tasks.
func (s *transcriptionService) Tasks(ctx context.Context, userID string) ([]storage.TaskRecord, error) {
	tasks, err := s.tasks.ListByUser(ctx, userID)
	if err != nil {
		return nil, WrapError(err, "failed to list tasks")
	}
	return tasks, nil
}

// Processor adapts the service to a speech session owned by userID.
func Processor(svc TranscriptionService, userID string) speech.Processor {
	return speech.ProcessorFunc(func(ctx context.Context, text string) (int, error) {
		resp, err := svc.Transcribe(ctx, TranscribeRequest{UserID: userID, Text: text})
		if err != nil {
			return 0, err
		}
		return len(resp.Tasks), nil
	})
}
