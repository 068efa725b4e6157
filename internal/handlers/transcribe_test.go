package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/nwoyto/PersonalAiHelper-sub000/internal/contextutil"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/service"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/service/mocks"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/storage"
)

func init() {
	// Set default logger to discard output for cleaner test output
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// asUser attaches a user ID the way the user middleware does.
func asUser(r *http.Request, id string) *http.Request {
	return r.WithContext(contextutil.WithUserID(r.Context(), id))
}

func TestTranscribeHandler_ServeHTTP(t *testing.T) {
	due := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	created := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)

	tests := []struct {
		name          string
		method        string
		body          any
		mockSetup     func(*mocks.MockTranscriptionService)
		wantStatus    int
		checkResponse func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:   "successful POST request",
			method: http.MethodPost,
			body:   TranscribeRequest{Text: "buy milk tomorrow"},
			mockSetup: func(m *mocks.MockTranscriptionService) {
				m.EXPECT().
					Transcribe(gomock.Any(), service.TranscribeRequest{UserID: "u1", Text: "buy milk tomorrow"}).
					Return(service.TranscribeResponse{
						Note: storage.NoteRecord{ID: "note-1", Content: "buy milk tomorrow", CreatedAt: created},
						Tasks: []storage.TaskRecord{{
							ID: "task-1", NoteID: "note-1", Title: "Buy milk",
							DueDate: &due, Priority: "high", CreatedAt: created,
						}},
					}, nil)
			},
			wantStatus: http.StatusOK,
			checkResponse: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp TranscribeResponse
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					t.Fatalf("decode response: %v", err)
				}
				if resp.Note.ID != "note-1" || resp.Note.CreatedAt != "2024-06-01T08:30:00Z" {
					t.Errorf("note = %+v", resp.Note)
				}
				if len(resp.Tasks) != 1 {
					t.Fatalf("tasks len = %d, want 1", len(resp.Tasks))
				}
				task := resp.Tasks[0]
				if task.DueDate == nil || *task.DueDate != "2024-06-02" {
					t.Errorf("dueDate = %v, want 2024-06-02", task.DueDate)
				}
				if task.Priority != "high" || task.NoteID != "note-1" {
					t.Errorf("task = %+v", task)
				}
			},
		},
		{
			name:       "method not allowed",
			method:     http.MethodGet,
			mockSetup:  func(m *mocks.MockTranscriptionService) {},
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "invalid JSON body",
			method:     http.MethodPost,
			body:       "invalid json",
			mockSetup:  func(m *mocks.MockTranscriptionService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "validation error",
			method: http.MethodPost,
			body:   TranscribeRequest{Text: ""},
			mockSetup: func(m *mocks.MockTranscriptionService) {
				m.EXPECT().Transcribe(gomock.Any(), gomock.Any()).
					Return(service.TranscribeResponse{}, &service.ValidationError{Field: "text", Message: "cannot be empty"})
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "llm failure",
			method: http.MethodPost,
			body:   TranscribeRequest{Text: "hello"},
			mockSetup: func(m *mocks.MockTranscriptionService) {
				m.EXPECT().Transcribe(gomock.Any(), gomock.Any()).
					Return(service.TranscribeResponse{}, service.WrapError(service.ErrExternalService, "llm"))
			},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:   "storage failure",
			method: http.MethodPost,
			body:   TranscribeRequest{Text: "hello"},
			mockSetup: func(m *mocks.MockTranscriptionService) {
				m.EXPECT().Transcribe(gomock.Any(), gomock.Any()).
					Return(service.TranscribeResponse{}, errors.New("disk full"))
			},
			wantStatus: http.StatusInternalServerError,
			checkResponse: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp ErrorResponse
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					t.Fatalf("decode response: %v", err)
				}
				if resp.Error != "Failed to process transcription" {
					t.Errorf("error = %q", resp.Error)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			svc := mocks.NewMockTranscriptionService(ctrl)
			tt.mockSetup(svc)
			handler := NewTranscribeHandler(svc)

			var body []byte
			if s, ok := tt.body.(string); ok {
				body = []byte(s)
			} else if tt.body != nil {
				body, _ = json.Marshal(tt.body)
			}

			req := asUser(httptest.NewRequest(tt.method, "/api/transcribe", bytes.NewReader(body)), "u1")
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("ServeHTTP() status = %v, want %v", w.Code, tt.wantStatus)
			}
			if tt.checkResponse != nil {
				tt.checkResponse(t, w)
			}
		})
	}
}

func TestTranscribeHandler_ListTasks(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockTranscriptionService(ctrl)
	handler := NewTranscribeHandler(svc)

	svc.EXPECT().Tasks(gomock.Any(), "u1").Return([]storage.TaskRecord{
		{ID: "t1", Title: "Call mom", Priority: "medium"},
	}, nil)

	w := httptest.NewRecorder()
	handler.ListTasks(w, asUser(httptest.NewRequest(http.MethodGet, "/api/tasks", nil), "u1"))

	if w.Code != http.StatusOK {
		t.Fatalf("ListTasks() status = %v, want %v", w.Code, http.StatusOK)
	}
	var tasks []TaskResponse
	if err := json.NewDecoder(w.Body).Decode(&tasks); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "t1" || tasks[0].DueDate != nil {
		t.Errorf("ListTasks() = %+v", tasks)
	}

	svc.EXPECT().Tasks(gomock.Any(), "u1").Return(nil, errors.New("db locked"))
	w = httptest.NewRecorder()
	handler.ListTasks(w, asUser(httptest.NewRequest(http.MethodGet, "/api/tasks", nil), "u1"))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("ListTasks() status = %v, want %v", w.Code, http.StatusInternalServerError)
	}
}
