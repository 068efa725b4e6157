package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/nwoyto/PersonalAiHelper-sub000/internal/contextutil"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/service"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/storage"
)

// TranscribeHandler handles HTTP requests for transcriptions and the tasks they produce.
type TranscribeHandler struct {
	transcriber service.TranscriptionService
}

// NewTranscribeHandler creates a new TranscribeHandler.
func NewTranscribeHandler(transcriber service.TranscriptionService) *TranscribeHandler {
	return &TranscribeHandler{
		transcriber: transcriber,
	}
}

// TranscribeRequest represents the HTTP request payload for transcription.
type TranscribeRequest struct {
	Text string `json:"text"`
}

// TaskResponse is a task as returned over HTTP.
type TaskResponse struct {
	ID          string  `json:"id"`
	NoteID      string  `json:"noteId,omitempty"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	DueDate     *string `json:"dueDate"`
	Priority    string  `json:"priority"`
	Category    string  `json:"category,omitempty"`
	Completed   bool    `json:"completed"`
	CreatedAt   string  `json:"createdAt"`
}

// NoteResponse is a note as returned over HTTP.
type NoteResponse struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

// TranscribeResponse represents the HTTP response payload for transcription.
type TranscribeResponse struct {
	Tasks []TaskResponse `json:"tasks"`
	Note  NoteResponse   `json:"note"`
}

// ServeHTTP extracts tasks from the posted text.
func (h *TranscribeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req TranscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	svcResp, err := h.transcriber.Transcribe(ctx, service.TranscribeRequest{
		UserID: userID(r),
		Text:   req.Text,
	})
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to process transcription")
		return
	}

	writeJSON(ctx, w, http.StatusOK, TranscribeResponse{
		Tasks: toTaskResponses(svcResp.Tasks),
		Note:  toNoteResponse(svcResp.Note),
	})
}

// ListTasks returns the user's tasks, newest first.
func (h *TranscribeHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tasks, err := h.transcriber.Tasks(ctx, userID(r))
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to list tasks")
		return
	}
	writeJSON(ctx, w, http.StatusOK, toTaskResponses(tasks))
}

func toTaskResponses(tasks []storage.TaskRecord) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		resp := TaskResponse{
			ID:          t.ID,
			NoteID:      t.NoteID,
			Title:       t.Title,
			Description: t.Description,
			Priority:    t.Priority,
			Category:    t.Category,
			Completed:   t.Completed,
			CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
		}
		if t.DueDate != nil {
			due := t.DueDate.Format(time.DateOnly)
			resp.DueDate = &due
		}
		out = append(out, resp)
	}
	return out
}

func toNoteResponse(n storage.NoteRecord) NoteResponse {
	return NoteResponse{
		ID:        n.ID,
		Content:   n.Content,
		CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
	}
}
