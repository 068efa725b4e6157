package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"
	"golang.org/x/oauth2"

	"github.com/nwoyto/PersonalAiHelper-sub000/internal/calendar"
	calmocks "github.com/nwoyto/PersonalAiHelper-sub000/internal/calendar/mocks"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/contextutil"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/storage"
)

const testClientURL = "http://localhost:5173"

type calendarEnv struct {
	router http.Handler
	client *calmocks.MockProviderClient
}

func newCalendarEnv(t *testing.T) *calendarEnv {
	t.Helper()

	db, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	client := calmocks.NewMockProviderClient(gomock.NewController(t))
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	manager := calendar.NewManager(
		storage.NewIntegrationRepo(db),
		storage.NewEventRepo(db),
		calendar.WithProviderClient(calendar.ProviderGoogle, client),
		calendar.WithNow(func() time.Time { return now }),
	)
	h := NewCalendarHandler(manager, testClientURL)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			id := req.Header.Get("X-User-ID")
			if id == "" {
				id = "u1"
			}
			next.ServeHTTP(w, req.WithContext(contextutil.WithUserID(req.Context(), id)))
		})
	})
	r.Post("/api/calendar/connect", h.Connect)
	r.Get("/api/calendar/callback/{provider}", h.Callback)
	r.Get("/api/calendar/integration-status", h.Status)
	r.Get("/api/calendar/integrations", h.ListIntegrations)
	r.Get("/api/calendar/events", h.ListEvents)
	r.Post("/api/calendar/sync", h.SyncAll)
	r.Post("/api/calendar/integrations/{id}/sync", h.SyncIntegration)
	r.Delete("/api/calendar/integrations/{id}", h.Disconnect)

	return &calendarEnv{router: r, client: client}
}

func (e *calendarEnv) do(t *testing.T, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, w.Body.String())
	}
	return v
}

// connect runs the connect and callback round trip and returns the integration ID.
func (e *calendarEnv) connect(t *testing.T) string {
	t.Helper()

	var state string
	e.client.EXPECT().AuthCodeURL(gomock.Any()).DoAndReturn(func(s string) string {
		state = s
		return "https://accounts.example.com/auth?state=" + s
	})
	w := e.do(t, http.MethodPost, "/api/calendar/connect", "", `{"provider":"google"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("connect status = %d, want 200", w.Code)
	}
	resp := decode[ConnectResponse](t, w)
	if !resp.Success || !strings.HasSuffix(resp.AuthURL, state) {
		t.Fatalf("connect response = %+v", resp)
	}

	start := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	e.client.EXPECT().Exchange(gomock.Any(), "auth-code").Return(&oauth2.Token{
		AccessToken:  "secret-access",
		RefreshToken: "secret-refresh",
		Expiry:       start,
	}, nil)
	e.client.EXPECT().FetchEvents(gomock.Any(), "secret-access", calendar.DefaultCalendarID, gomock.Any(), gomock.Any()).
		Return([]calendar.RemoteEvent{{ExternalID: "ev-1", Title: "Dentist", Start: &start, End: &end}}, nil)

	w = e.do(t, http.MethodGet, "/api/calendar/callback/google?code=auth-code&state="+url.QueryEscape(state), "", "")
	if w.Code != http.StatusFound {
		t.Fatalf("callback status = %d, want 302", w.Code)
	}
	if got, want := w.Header().Get("Location"), testClientURL+"/settings?calendar=connected&provider=google"; got != want {
		t.Fatalf("callback Location = %q, want %q", got, want)
	}

	integrations := decode[[]IntegrationResponse](t, e.do(t, http.MethodGet, "/api/calendar/integrations", "", ""))
	if len(integrations) != 1 {
		t.Fatalf("integrations len = %d, want 1", len(integrations))
	}
	return integrations[0].ID
}

func TestCalendarHandler_Connect(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "invalid body", body: "nope", wantStatus: http.StatusBadRequest},
		{name: "unknown provider", body: `{"provider":"yahoo"}`, wantStatus: http.StatusBadRequest},
		{name: "outlook not implemented", body: `{"provider":"outlook"}`, wantStatus: http.StatusNotImplemented},
		{name: "apple not implemented", body: `{"provider":"apple"}`, wantStatus: http.StatusNotImplemented},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newCalendarEnv(t)
			w := env.do(t, http.MethodPost, "/api/calendar/connect", "", tt.body)

			if w.Code != tt.wantStatus {
				t.Errorf("Connect() status = %d, want %d", w.Code, tt.wantStatus)
			}
			if resp := decode[ConnectResponse](t, w); resp.Success || resp.Message == "" {
				t.Errorf("Connect() response = %+v, want failure with message", resp)
			}
		})
	}
}

func TestCalendarHandler_CallbackErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{name: "user denied consent", query: "?error=access_denied", want: "calendar_error=access_denied&provider=google"},
		{name: "unknown state", query: "?code=x&state=forged", want: "calendar_error=invalid_state&provider=google"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newCalendarEnv(t)
			w := env.do(t, http.MethodGet, "/api/calendar/callback/google"+tt.query, "", "")

			if w.Code != http.StatusFound {
				t.Fatalf("Callback() status = %d, want 302", w.Code)
			}
			if got, want := w.Header().Get("Location"), testClientURL+"/settings?"+tt.want; got != want {
				t.Errorf("Callback() Location = %q, want %q", got, want)
			}
		})
	}
}

func TestCalendarHandler_Lifecycle(t *testing.T) {
	env := newCalendarEnv(t)
	id := env.connect(t)

	status := decode[map[string]bool](t, env.do(t, http.MethodGet, "/api/calendar/integration-status", "", ""))
	if !status["google"] || status["outlook"] || status["apple"] {
		t.Errorf("status = %v, want only google", status)
	}

	w := env.do(t, http.MethodGet, "/api/calendar/integrations", "", "")
	if body := w.Body.String(); strings.Contains(body, "secret-access") || strings.Contains(body, "secret-refresh") {
		t.Errorf("integrations response leaks tokens: %s", body)
	}

	events := decode[[]EventResponse](t, env.do(t, http.MethodGet, "/api/calendar/events", "", ""))
	if len(events) != 1 {
		t.Fatalf("events len = %d, want 1", len(events))
	}
	if ev := events[0]; ev.Title != "Dentist" || ev.Provider != "google" ||
		ev.StartTime == nil || *ev.StartTime != "2024-06-03T09:00:00Z" {
		t.Errorf("event = %+v", ev)
	}

	// Another user cannot see or touch the integration.
	if w := env.do(t, http.MethodPost, fmt.Sprintf("/api/calendar/integrations/%s/sync", id), "u2", ""); w.Code != http.StatusNotFound {
		t.Errorf("foreign sync status = %d, want 404", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/api/calendar/integrations/"+id, "u2", ""); w.Code != http.StatusNotFound {
		t.Errorf("foreign delete status = %d, want 404", w.Code)
	}

	env.client.EXPECT().FetchEvents(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/calendar/integrations/%s/sync", id), "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("sync status = %d, want 200", w.Code)
	}
	if resp := decode[SyncResponse](t, w); !resp.Success || resp.EventsSynced != 0 {
		t.Errorf("sync response = %+v", resp)
	}

	env.client.EXPECT().FetchEvents(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, calendar.ErrProviderAPI)
	w = env.do(t, http.MethodPost, "/api/calendar/sync", "", "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("sync all status = %d, want 500", w.Code)
	}
	if resp := decode[SyncResponse](t, w); resp.Success {
		t.Errorf("sync all response = %+v, want failure", resp)
	}

	if w := env.do(t, http.MethodDelete, "/api/calendar/integrations/"+id, "", ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/api/calendar/integrations/"+id, "", ""); w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}

	status = decode[map[string]bool](t, env.do(t, http.MethodGet, "/api/calendar/integration-status", "", ""))
	if status["google"] {
		t.Error("status google = true after disconnect")
	}
	if events := decode[[]EventResponse](t, env.do(t, http.MethodGet, "/api/calendar/events", "", "")); len(events) != 0 {
		t.Errorf("events after disconnect = %d, want 0", len(events))
	}
}
