package calendar

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_provider_client.go -package=mocks github.com/nwoyto/PersonalAiHelper-sub000/internal/calendar ProviderClient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

var (
	// ErrInvalidProvider is returned for provider names outside the known set.
	ErrInvalidProvider = errors.New("invalid calendar provider")
	// ErrNotImplemented is returned for known providers without an integration.
	ErrNotImplemented = errors.New("calendar provider not implemented")
	// ErrProviderNotConfigured is returned when an implemented provider has no credentials configured.
	ErrProviderNotConfigured = errors.New("calendar provider not configured")
	// ErrInvalidState is returned when an OAuth callback carries an unknown, expired or mismatched state.
	ErrInvalidState = errors.New("invalid or expired oauth state")
	// ErrExchangeFailed is returned when the authorization code cannot be exchanged for tokens.
	ErrExchangeFailed = errors.New("oauth code exchange failed")
	// ErrTokenExpired is returned by provider clients when the access token was rejected.
	ErrTokenExpired = errors.New("access token expired")
	// ErrProviderAPI is returned for any other provider API failure.
	ErrProviderAPI = errors.New("calendar provider api error")
	// ErrNotFound is returned when an integration does not exist or belongs to another user.
	ErrNotFound = errors.New("calendar integration not found")
)

// Provider is an external calendar service.
type Provider string

const (
	ProviderGoogle  Provider = "google"
	ProviderOutlook Provider = "outlook"
	ProviderApple   Provider = "apple"
)

// Providers lists every known provider.
var Providers = []Provider{ProviderGoogle, ProviderOutlook, ProviderApple}

// ParseProvider parses a provider name case-insensitively.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Providers {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidProvider, s)
}

// Implemented reports whether the provider has a client implementation.
func (p Provider) Implemented() bool {
	return p == ProviderGoogle
}

// RemoteEvent is an event as fetched from a provider.
type RemoteEvent struct {
	ExternalID  string
	Title       string
	Description string
	Start       *time.Time
	End         *time.Time
	AllDay      bool
	Location    string
	URL         string
}

// ProviderClient talks to one calendar provider.
type ProviderClient interface {
	// AuthCodeURL returns the consent page URL for the given state.
	AuthCodeURL(state string) string
	// Exchange trades an authorization code for tokens.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	// Refresh obtains a new access token from a refresh token.
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	// FetchEvents returns the events of calendarID that overlap [from, to).
	// A rejected access token is reported as ErrTokenExpired.
	FetchEvents(ctx context.Context, accessToken, calendarID string, from, to time.Time) ([]RemoteEvent, error)
}
