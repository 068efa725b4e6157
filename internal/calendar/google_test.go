package calendar_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/nwoyto/PersonalAiHelper-sub000/internal/calendar"
)

func newGoogleTestClient(t *testing.T, handler http.Handler) *calendar.GoogleClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return calendar.NewGoogleClient("client-id", "client-secret", "http://localhost/callback",
		calendar.WithGoogleBaseURL(srv.URL),
		calendar.WithGoogleHTTPClient(srv.Client()),
		calendar.WithGoogleEndpoint(oauth2.Endpoint{
			AuthURL:   srv.URL + "/auth",
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		}),
	)
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestGoogleClient_AuthCodeURL(t *testing.T) {
	g := calendar.NewGoogleClient("client-id", "secret", "http://localhost:8080/api/calendar/callback/google")

	raw := g.AuthCodeURL("state-123")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "http://localhost:8080/api/calendar/callback/google", q.Get("redirect_uri"))
	for _, scope := range calendar.GoogleScopes {
		assert.Contains(t, q.Get("scope"), scope)
	}
}

func TestGoogleClient_FetchEvents(t *testing.T) {
	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(calendar.SyncWindow)

	var pages int
	g := newGoogleTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/calendars/primary/events", r.URL.Path)
		assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))

		q := r.URL.Query()
		assert.Equal(t, "true", q.Get("singleEvents"))
		assert.Equal(t, "startTime", q.Get("orderBy"))
		assert.Equal(t, from.Format(time.RFC3339), q.Get("timeMin"))
		assert.Equal(t, to.Format(time.RFC3339), q.Get("timeMax"))

		pages++
		switch q.Get("pageToken") {
		case "":
			writeJSON(t, w, map[string]any{
				"items": []map[string]any{
					{
						"id": "a", "status": "confirmed", "summary": "Standup",
						"htmlLink": "https://calendar.google.com/a",
						"start":    map[string]string{"dateTime": "2024-06-02T09:00:00Z"},
						"end":      map[string]string{"dateTime": "2024-06-02T09:15:00Z"},
					},
					{
						"id": "b", "status": "cancelled", "summary": "Dropped",
						"start": map[string]string{"dateTime": "2024-06-02T10:00:00Z"},
					},
				},
				"nextPageToken": "page-2",
			})
		case "page-2":
			writeJSON(t, w, map[string]any{
				"items": []map[string]any{
					{
						"id": "c", "status": "confirmed",
						"start": map[string]string{"date": "2024-06-05"},
						"end":   map[string]string{"date": "2024-06-06"},
					},
				},
			})
		default:
			t.Errorf("unexpected page token %q", q.Get("pageToken"))
		}
	}))

	events, err := g.FetchEvents(context.Background(), "at", "primary", from, to)
	require.NoError(t, err)
	assert.Equal(t, 2, pages)
	require.Len(t, events, 2)

	assert.Equal(t, "a", events[0].ExternalID)
	assert.Equal(t, "Standup", events[0].Title)
	assert.False(t, events[0].AllDay)
	require.NotNil(t, events[0].Start)
	assert.True(t, events[0].Start.Equal(time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC)))
	assert.Equal(t, "https://calendar.google.com/a", events[0].URL)

	assert.Equal(t, "c", events[1].ExternalID)
	assert.Equal(t, "(No title)", events[1].Title)
	assert.True(t, events[1].AllDay)
	require.NotNil(t, events[1].Start)
	assert.Equal(t, "2024-06-05", events[1].Start.Format(time.DateOnly))
}

func TestGoogleClient_FetchEvents_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, wantErr: calendar.ErrTokenExpired},
		{name: "forbidden", status: http.StatusForbidden, wantErr: calendar.ErrProviderAPI},
		{name: "server error", status: http.StatusInternalServerError, wantErr: calendar.ErrProviderAPI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGoogleTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			_, err := g.FetchEvents(context.Background(), "at", "", time.Now(), time.Now().Add(time.Hour))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGoogleClient_FetchEvents_MalformedEvent(t *testing.T) {
	g := newGoogleTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"items": []map[string]any{
				{"id": "x", "status": "confirmed", "start": map[string]string{"dateTime": "tomorrow"}},
			},
		})
	}))

	_, err := g.FetchEvents(context.Background(), "at", "", time.Now(), time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, calendar.ErrProviderAPI)
	assert.Contains(t, err.Error(), `event x: invalid dateTime "tomorrow"`)
}

func TestGoogleClient_Tokens(t *testing.T) {
	g := newGoogleTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/token", r.URL.Path)
		require.NoError(t, r.ParseForm())

		switch r.PostForm.Get("grant_type") {
		case "authorization_code":
			if r.PostForm.Get("code") != "good" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
				return
			}
			writeJSON(t, w, map[string]any{
				"access_token": "at-1", "refresh_token": "rt-1", "token_type": "Bearer", "expires_in": 3600,
			})
		case "refresh_token":
			assert.Equal(t, "rt-1", r.PostForm.Get("refresh_token"))
			writeJSON(t, w, map[string]any{
				"access_token": "at-2", "token_type": "Bearer", "expires_in": 3600,
			})
		default:
			t.Errorf("unexpected grant type %q", r.PostForm.Get("grant_type"))
		}
	}))

	ctx := context.Background()

	tok, err := g.Exchange(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, "at-1", tok.AccessToken)
	assert.Equal(t, "rt-1", tok.RefreshToken)
	assert.False(t, tok.Expiry.IsZero())

	_, err = g.Exchange(ctx, "bad")
	assert.ErrorIs(t, err, calendar.ErrExchangeFailed)

	tok, err = g.Refresh(ctx, "rt-1")
	require.NoError(t, err)
	assert.Equal(t, "at-2", tok.AccessToken)
	assert.True(t, strings.EqualFold(tok.TokenType, "bearer"))
}
