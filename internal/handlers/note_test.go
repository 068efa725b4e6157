package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	"github.com/nwoyto/PersonalAiHelper-sub000/internal/service"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/service/mocks"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/storage"
)

func noteRequest(method, id, user string) *http.Request {
	req := httptest.NewRequest(method, "/notes/"+id, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	return asUser(req, user)
}

func TestNoteHandler_ServeHTTP(t *testing.T) {
	note := storage.NoteRecord{
		ID:        "n1",
		UserID:    "u1",
		Content:   "# Groceries\n\n- [ ] milk\n- [x] eggs\n\n<script>alert(1)</script>",
		CreatedAt: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name       string
		id         string
		user       string
		mockSetup  func(*mocks.MockNoteService)
		wantStatus int
		wantBody   []string
		notInBody  []string
	}{
		{
			name: "renders markdown",
			id:   "n1",
			user: "u1",
			mockSetup: func(m *mocks.MockNoteService) {
				m.EXPECT().Note(gomock.Any(), "u1", "n1").Return(note, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   []string{"<title>Groceries</title>", `<h1 id="groceries">Groceries</h1>`, `type="checkbox"`},
			notInBody:  []string{"<script>alert(1)</script>"},
		},
		{
			name: "other user's note is hidden",
			id:   "n1",
			user: "u2",
			mockSetup: func(m *mocks.MockNoteService) {
				m.EXPECT().Note(gomock.Any(), "u2", "n1").Return(storage.NoteRecord{}, service.WrapError(service.ErrNotFound, "note n1"))
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "storage failure",
			id:   "n1",
			user: "u1",
			mockSetup: func(m *mocks.MockNoteService) {
				m.EXPECT().Note(gomock.Any(), "u1", "n1").Return(storage.NoteRecord{}, errors.New("db locked"))
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			notes := mocks.NewMockNoteService(ctrl)
			tt.mockSetup(notes)
			handler := NewNoteHandler(notes, nil)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, noteRequest(http.MethodGet, tt.id, tt.user))

			if w.Code != tt.wantStatus {
				t.Fatalf("ServeHTTP() status = %v, want %v", w.Code, tt.wantStatus)
			}
			body := w.Body.String()
			for _, want := range tt.wantBody {
				if !strings.Contains(body, want) {
					t.Errorf("body missing %q", want)
				}
			}
			for _, bad := range tt.notInBody {
				if strings.Contains(body, bad) {
					t.Errorf("body contains %q", bad)
				}
			}
		})
	}
}

func TestNoteHandler_Delete(t *testing.T) {
	tests := []struct {
		name       string
		user       string
		mockErr    error
		wantStatus int
	}{
		{name: "own note", user: "u1", wantStatus: http.StatusNoContent},
		{name: "missing or foreign note", user: "u2", mockErr: service.WrapError(service.ErrNotFound, "note n1"), wantStatus: http.StatusNotFound},
		{name: "storage failure", user: "u1", mockErr: errors.New("db locked"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			notes := mocks.NewMockNoteService(ctrl)
			notes.EXPECT().DeleteNote(gomock.Any(), tt.user, "n1").Return(tt.mockErr)
			handler := NewNoteHandler(notes, nil)

			w := httptest.NewRecorder()
			handler.Delete(w, noteRequest(http.MethodDelete, "n1", tt.user))

			if w.Code != tt.wantStatus {
				t.Errorf("Delete() status = %v, want %v", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestNoteHandler_Search(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		mockSetup  func(*mocks.MockNoteSearcher)
		wantStatus int
		wantHits   int
	}{
		{
			name:  "returns hits",
			query: "?q=milk&k=3",
			mockSetup: func(m *mocks.MockNoteSearcher) {
				m.EXPECT().Search(gomock.Any(), "u1", "milk", 3).Return([]service.NoteHit{
					{Note: storage.NoteRecord{ID: "n1", Content: "buy milk"}, Score: 0.9},
				}, nil)
			},
			wantStatus: http.StatusOK,
			wantHits:   1,
		},
		{
			name:  "default k",
			query: "?q=milk",
			mockSetup: func(m *mocks.MockNoteSearcher) {
				m.EXPECT().Search(gomock.Any(), "u1", "milk", 0).Return(nil, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "bad k",
			query:      "?q=milk&k=lots",
			mockSetup:  func(*mocks.MockNoteSearcher) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:  "negative k",
			query: "?q=milk&k=-2",
			mockSetup: func(m *mocks.MockNoteSearcher) {
				m.EXPECT().Search(gomock.Any(), "u1", "milk", -2).
					Return(nil, service.WrapError(service.ErrInvalidInput, "k must not be negative"))
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:  "empty query",
			query: "",
			mockSetup: func(m *mocks.MockNoteSearcher) {
				m.EXPECT().Search(gomock.Any(), "u1", "", 0).
					Return(nil, &service.ValidationError{Field: "q", Message: "cannot be empty"})
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:  "vector store down",
			query: "?q=milk",
			mockSetup: func(m *mocks.MockNoteSearcher) {
				m.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, service.WrapError(service.ErrExternalService, "search"))
			},
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			searcher := mocks.NewMockNoteSearcher(ctrl)
			tt.mockSetup(searcher)
			handler := NewNoteHandler(mocks.NewMockNoteService(ctrl), searcher)

			w := httptest.NewRecorder()
			handler.Search(w, asUser(httptest.NewRequest(http.MethodGet, "/api/notes/search"+tt.query, nil), "u1"))

			if w.Code != tt.wantStatus {
				t.Fatalf("Search() status = %v, want %v", w.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			hits := decode[[]NoteSearchHit](t, w)
			if len(hits) != tt.wantHits {
				t.Errorf("Search() hits = %d, want %d", len(hits), tt.wantHits)
			}
		})
	}
}

func TestNoteHandler_SearchDisabled(t *testing.T) {
	ctrl := gomock.NewController(t)
	handler := NewNoteHandler(mocks.NewMockNoteService(ctrl), nil)

	w := httptest.NewRecorder()
	handler.Search(w, asUser(httptest.NewRequest(http.MethodGet, "/api/notes/search?q=x", nil), "u1"))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Search() status = %v, want %v", w.Code, http.StatusServiceUnavailable)
	}
}

func TestInferTitle(t *testing.T) {
	tests := []struct {
		content string
		want    string
	}{
		{content: "# Groceries\nmilk", want: "Groceries"},
		{content: "\n\n  call bob  \n", want: "call bob"},
		{content: "", want: "Note"},
		{content: strings.Repeat("a", 70), want: strings.Repeat("a", 60) + "…"},
	}
	for _, tt := range tests {
		if got := inferTitle(tt.content); got != tt.want {
			t.Errorf("inferTitle(%q) = %q, want %q", tt.content, got, tt.want)
		}
	}
}
