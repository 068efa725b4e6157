package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const googlePageSize = 250

// GoogleScopes are the read-only scopes requested on consent.
var GoogleScopes = []string{
	"https://www.googleapis.com/auth/calendar.readonly",
	"https://www.googleapis.com/auth/calendar.events.readonly",
}

// GoogleClient implements ProviderClient for Google Calendar.
type GoogleClient struct {
	oauth   *oauth2.Config
	client  *http.Client
	baseURL string // empty means the public Calendar API
}

// GoogleOption configures a GoogleClient.
type GoogleOption func(*GoogleClient)

// WithGoogleEndpoint overrides the OAuth endpoint.
func WithGoogleEndpoint(ep oauth2.Endpoint) GoogleOption {
	return func(g *GoogleClient) { g.oauth.Endpoint = ep }
}

// WithGoogleBaseURL overrides the Calendar API base URL.
func WithGoogleBaseURL(baseURL string) GoogleOption {
	return func(g *GoogleClient) { g.baseURL = baseURL }
}

// WithGoogleHTTPClient sets the HTTP client used for token and API calls.
func WithGoogleHTTPClient(c *http.Client) GoogleOption {
	return func(g *GoogleClient) { g.client = c }
}

// NewGoogleClient creates a Google Calendar client.
func NewGoogleClient(clientID, clientSecret, redirectURL string, opts ...GoogleOption) *GoogleClient {
	g := &GoogleClient{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       GoogleScopes,
			Endpoint:     endpoints.Google,
		},
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AuthCodeURL requests offline access and forces the consent screen so a
// refresh token is always issued.
func (g *GoogleClient) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades the authorization code for tokens.
func (g *GoogleClient) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := g.oauth.Exchange(g.withClient(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExchangeFailed, err)
	}
	return tok, nil
}

// Refresh obtains a fresh access token.
func (g *GoogleClient) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	src := g.oauth.TokenSource(g.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh google token: %w", err)
	}
	return tok, nil
}

// FetchEvents lists single (expanded) events ordered by start time, following pagination.
func (g *GoogleClient) FetchEvents(ctx context.Context, accessToken, calendarID string, from, to time.Time) ([]RemoteEvent, error) {
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}

	svc, err := g.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	var events []RemoteEvent
	err = svc.Events.List(calendarID).
		SingleEvents(true).
		OrderBy("startTime").
		TimeMin(from.UTC().Format(time.RFC3339)).
		TimeMax(to.UTC().Format(time.RFC3339)).
		MaxResults(googlePageSize).
		Pages(ctx, func(page *gcal.Events) error {
			for _, item := range page.Items {
				if item.Status == "cancelled" {
					continue
				}
				ev, err := toRemoteEvent(item)
				if err != nil {
					return err
				}
				events = append(events, ev)
			}
			return nil
		})
	if err != nil {
		return nil, googleError(err)
	}
	return events, nil
}

// service builds a Calendar API client that authenticates with accessToken.
func (g *GoogleClient) service(ctx context.Context, accessToken string) (*gcal.Service, error) {
	httpClient := oauth2.NewClient(g.withClient(ctx), oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if g.baseURL != "" {
		opts = append(opts, option.WithEndpoint(strings.TrimSuffix(g.baseURL, "/")+"/"))
	}

	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create google calendar service: %w", err)
	}
	return svc, nil
}

// googleError maps a rejected token to ErrTokenExpired and everything else,
// malformed events included, to ErrProviderAPI.
func googleError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusUnauthorized {
			return ErrTokenExpired
		}
		return fmt.Errorf("%w: status %d: %s", ErrProviderAPI, apiErr.Code, apiErr.Message)
	}
	return fmt.Errorf("%w: %w", ErrProviderAPI, err)
}

func toRemoteEvent(e *gcal.Event) (RemoteEvent, error) {
	ev := RemoteEvent{
		ExternalID:  e.Id,
		Title:       e.Summary,
		Description: e.Description,
		Location:    e.Location,
		URL:         e.HtmlLink,
		AllDay:      e.Start != nil && e.Start.DateTime == "" && e.Start.Date != "",
	}
	if ev.Title == "" {
		ev.Title = "(No title)"
	}

	var err error
	if ev.Start, err = parseEventTime(e.Start); err != nil {
		return RemoteEvent{}, fmt.Errorf("event %s: %w", e.Id, err)
	}
	if ev.End, err = parseEventTime(e.End); err != nil {
		return RemoteEvent{}, fmt.Errorf("event %s: %w", e.Id, err)
	}
	return ev, nil
}

// parseEventTime returns nil when the provider sent neither a dateTime nor a date.
func parseEventTime(t *gcal.EventDateTime) (*time.Time, error) {
	switch {
	case t == nil:
		return nil, nil
	case t.DateTime != "":
		v, err := time.Parse(time.RFC3339, t.DateTime)
		if err != nil {
			return nil, fmt.Errorf("invalid dateTime %q: %w", t.DateTime, err)
		}
		return &v, nil
	case t.Date != "":
		v, err := time.Parse(time.DateOnly, t.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", t.Date, err)
		}
		return &v, nil
	default:
		return nil, nil
	}
}

func (g *GoogleClient) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, g.client)
}
