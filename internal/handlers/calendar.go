package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nwoyto/PersonalAiHelper-sub000/internal/calendar"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/contextutil"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/storage"
)

// CalendarService is the calendar manager as used by the HTTP layer.
type CalendarService interface {
	Connect(ctx context.Context, userID, provider string) (string, error)
	HandleCallback(ctx context.Context, provider, code, state string) (*calendar.CallbackResult, error)
	Status(ctx context.Context, userID string) (map[calendar.Provider]bool, error)
	Integrations(ctx context.Context, userID string) ([]storage.IntegrationRecord, error)
	Events(ctx context.Context, userID string) ([]storage.EventRecord, error)
	SyncUser(ctx context.Context, userID string) (int, error)
	SyncIntegration(ctx context.Context, userID, integrationID string) (int, error)
	Disconnect(ctx context.Context, userID, integrationID string) error
}

// CalendarHandler handles the calendar integration routes.
type CalendarHandler struct {
	calendars CalendarService
	clientURL string
}

// NewCalendarHandler creates a new CalendarHandler. OAuth callbacks redirect to clientURL.
func NewCalendarHandler(calendars CalendarService, clientURL string) *CalendarHandler {
	return &CalendarHandler{
		calendars: calendars,
		clientURL: clientURL,
	}
}

// ConnectRequest is the payload of POST /api/calendar/connect.
type ConnectRequest struct {
	Provider string `json:"provider"`
}

// ConnectResponse is the result of a connect attempt.
type ConnectResponse struct {
	Success bool   `json:"success"`
	AuthURL string `json:"authUrl,omitempty"`
	Message string `json:"message,omitempty"`
}

// SyncResponse is the result of a manual sync.
type SyncResponse struct {
	Success      bool   `json:"success"`
	EventsSynced int    `json:"eventsSynced"`
	Message      string `json:"message,omitempty"`
}

// IntegrationResponse is an integration without its credentials.
type IntegrationResponse struct {
	ID          string  `json:"id"`
	Provider    string  `json:"provider"`
	CalendarID  string  `json:"calendarId,omitempty"`
	Enabled     bool    `json:"enabled"`
	TokenExpiry *string `json:"tokenExpiry,omitempty"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

// EventResponse is a mirrored calendar event.
type EventResponse struct {
	ID          string  `json:"id"`
	ExternalID  string  `json:"externalId"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	StartTime   *string `json:"startTime"`
	EndTime     *string `json:"endTime"`
	AllDay      bool    `json:"allDay"`
	Location    string  `json:"location,omitempty"`
	URL         string  `json:"url,omitempty"`
	Provider    string  `json:"provider"`
}

// Connect starts the OAuth flow for a provider and returns its consent URL.
func (h *CalendarHandler) Connect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeJSON(ctx, w, http.StatusBadRequest, ConnectResponse{Message: "Invalid request body"})
		return
	}

	authURL, err := h.calendars.Connect(ctx, userID(r), req.Provider)
	switch {
	case err == nil:
		writeJSON(ctx, w, http.StatusOK, ConnectResponse{Success: true, AuthURL: authURL})
	case errors.Is(err, calendar.ErrInvalidProvider):
		writeJSON(ctx, w, http.StatusBadRequest, ConnectResponse{Message: "Invalid provider"})
	case errors.Is(err, calendar.ErrNotImplemented):
		writeJSON(ctx, w, http.StatusNotImplemented, ConnectResponse{Message: req.Provider + " calendar integration is not yet implemented"})
	case errors.Is(err, calendar.ErrProviderNotConfigured):
		logger.WarnContext(ctx, "calendar provider not configured", "provider", req.Provider)
		writeJSON(ctx, w, http.StatusServiceUnavailable, ConnectResponse{Message: req.Provider + " calendar integration is not configured"})
	default:
		logger.ErrorContext(ctx, "calendar connect failed", "error", err)
		writeJSON(ctx, w, http.StatusInternalServerError, ConnectResponse{Message: "Failed to start calendar connection"})
	}
}

// Callback completes the OAuth flow and redirects the browser back to the client settings page.
func (h *CalendarHandler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	provider := chi.URLParam(r, "provider")
	q := r.URL.Query()

	if denied := q.Get("error"); denied != "" {
		logger.WarnContext(ctx, "calendar authorization denied", "provider", provider, "error", denied)
		h.redirect(w, r, url.Values{"calendar_error": {denied}, "provider": {provider}})
		return
	}

	result, err := h.calendars.HandleCallback(ctx, provider, q.Get("code"), q.Get("state"))
	if err != nil {
		logger.ErrorContext(ctx, "calendar callback failed", "provider", provider, "error", err)
		h.redirect(w, r, url.Values{"calendar_error": {callbackErrorCode(err)}, "provider": {provider}})
		return
	}

	params := url.Values{"calendar": {"connected"}, "provider": {provider}}
	if result.SyncErr != nil {
		params.Set("sync", "failed")
	}
	h.redirect(w, r, params)
}

func (h *CalendarHandler) redirect(w http.ResponseWriter, r *http.Request, params url.Values) {
	http.Redirect(w, r, h.clientURL+"/settings?"+params.Encode(), http.StatusFound)
}

func callbackErrorCode(err error) string {
	switch {
	case errors.Is(err, calendar.ErrInvalidProvider):
		return "invalid_provider"
	case errors.Is(err, calendar.ErrNotImplemented):
		return "not_implemented"
	case errors.Is(err, calendar.ErrProviderNotConfigured):
		return "not_configured"
	case errors.Is(err, calendar.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, calendar.ErrExchangeFailed):
		return "exchange_failed"
	default:
		return "server_error"
	}
}

// Status reports which providers the user has connected.
func (h *CalendarHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status, err := h.calendars.Status(ctx, userID(r))
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to load integration status")
		return
	}
	writeJSON(ctx, w, http.StatusOK, status)
}

// ListIntegrations lists the user's integrations. Tokens are never returned.
func (h *CalendarHandler) ListIntegrations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	recs, err := h.calendars.Integrations(ctx, userID(r))
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to list integrations")
		return
	}

	out := make([]IntegrationResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, IntegrationResponse{
			ID:          rec.ID,
			Provider:    rec.Provider,
			CalendarID:  rec.CalendarID,
			Enabled:     rec.Enabled,
			TokenExpiry: formatOptionalTime(rec.TokenExpiry),
			CreatedAt:   rec.CreatedAt.UTC().Format(time.RFC3339),
			UpdatedAt:   rec.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(ctx, w, http.StatusOK, out)
}

// ListEvents returns the user's mirrored events.
func (h *CalendarHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	evs, err := h.calendars.Events(ctx, userID(r))
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to list events")
		return
	}

	out := make([]EventResponse, 0, len(evs))
	for _, ev := range evs {
		out = append(out, EventResponse{
			ID:          ev.ID,
			ExternalID:  ev.ExternalID,
			Title:       ev.Title,
			Description: ev.Description,
			StartTime:   formatOptionalTime(ev.StartTime),
			EndTime:     formatOptionalTime(ev.EndTime),
			AllDay:      ev.AllDay,
			Location:    ev.Location,
			URL:         ev.URL,
			Provider:    ev.Provider,
		})
	}
	writeJSON(ctx, w, http.StatusOK, out)
}

// SyncAll syncs every integration of the user.
func (h *CalendarHandler) SyncAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	n, err := h.calendars.SyncUser(ctx, userID(r))
	if err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "calendar sync failed", "error", err)
		writeJSON(ctx, w, http.StatusInternalServerError, SyncResponse{EventsSynced: n, Message: "Calendar sync failed"})
		return
	}
	writeJSON(ctx, w, http.StatusOK, SyncResponse{Success: true, EventsSynced: n})
}

// SyncIntegration syncs one integration.
func (h *CalendarHandler) SyncIntegration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	n, err := h.calendars.SyncIntegration(ctx, userID(r), id)
	if errors.Is(err, calendar.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Integration not found")
		return
	}
	if err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "calendar sync failed", "integration_id", id, "error", err)
		writeJSON(ctx, w, http.StatusInternalServerError, SyncResponse{Message: "Calendar sync failed"})
		return
	}
	writeJSON(ctx, w, http.StatusOK, SyncResponse{Success: true, EventsSynced: n})
}

// Disconnect removes an integration and its events.
func (h *CalendarHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	err := h.calendars.Disconnect(ctx, userID(r), chi.URLParam(r, "id"))
	if errors.Is(err, calendar.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Integration not found")
		return
	}
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to disconnect integration")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
