package calendar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/moby/locker"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/nwoyto/PersonalAiHelper-sub000/internal/contextutil"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/metrics"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/storage"
)

const (
	// SyncWindow is how far ahead of now events are mirrored.
	SyncWindow = 30 * 24 * time.Hour
	// DefaultCalendarID is used when an integration has no calendar selected.
	DefaultCalendarID = "primary"

	syncAllConcurrency = 4
)

// CallbackResult describes a completed OAuth callback.
type CallbackResult struct {
	Integration *storage.IntegrationRecord
	// EventsSynced is the number of events written by the initial sync.
	EventsSynced int
	// SyncErr is set when the initial sync failed. The integration is kept.
	SyncErr error
}

// Manager connects calendar providers and mirrors their events locally.
type Manager struct {
	integrations storage.IntegrationStore
	events       storage.EventStore
	clients      map[Provider]ProviderClient
	states       *StateStore
	metrics      *metrics.Metrics
	now          func() time.Time

	// syncLocks is keyed by integration ID, upsertLocks by upsertKey.
	// A sync may take its upsert lock while holding the sync lock, never the reverse.
	syncLocks   *locker.Locker
	upsertLocks *locker.Locker
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithProviderClient registers the client for a provider.
func WithProviderClient(p Provider, c ProviderClient) ManagerOption {
	return func(m *Manager) { m.clients[p] = c }
}

// WithStateStore replaces the OAuth state store.
func WithStateStore(s *StateStore) ManagerOption {
	return func(m *Manager) { m.states = s }
}

// WithMetrics sets the metrics sink.
func WithMetrics(mt *metrics.Metrics) ManagerOption {
	return func(m *Manager) { m.metrics = mt }
}

// WithNow replaces the time source.
func WithNow(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a calendar manager.
func NewManager(integrations storage.IntegrationStore, events storage.EventStore, opts ...ManagerOption) *Manager {
	m := &Manager{
		integrations: integrations,
		events:       events,
		clients:      make(map[Provider]ProviderClient),
		states:       NewStateStore(DefaultStateTTL),
		now:          time.Now,
		syncLocks:    locker.New(),
		upsertLocks:  locker.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) client(p Provider) (ProviderClient, error) {
	if !p.Implemented() {
		return nil, fmt.Errorf("%w: %s", ErrNotImplemented, p)
	}
	c, ok := m.clients[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotConfigured, p)
	}
	return c, nil
}

// Connect starts an OAuth handshake and returns the consent URL.
func (m *Manager) Connect(ctx context.Context, userID, provider string) (string, error) {
	p, err := ParseProvider(provider)
	if err != nil {
		return "", err
	}
	c, err := m.client(p)
	if err != nil {
		return "", err
	}

	state := m.states.Issue(userID, p)
	contextutil.LoggerFromContext(ctx).Info("calendar connect started", "user_id", userID, "provider", p)
	return c.AuthCodeURL(state), nil
}

// HandleCallback completes the OAuth handshake: it exchanges the code, upserts
// the integration and runs an initial sync. A failed exchange leaves storage
// untouched. A failed sync is reported in the result but does not undo the
// connection, so a later manual sync can succeed.
func (m *Manager) HandleCallback(ctx context.Context, provider, code, state string) (*CallbackResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	p, err := ParseProvider(provider)
	if err != nil {
		return nil, err
	}
	c, err := m.client(p)
	if err != nil {
		return nil, err
	}
	userID, ok := m.states.Consume(state, p)
	if !ok {
		return nil, ErrInvalidState
	}
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", ErrExchangeFailed)
	}

	tok, err := c.Exchange(ctx, code)
	if err != nil {
		if !errors.Is(err, ErrExchangeFailed) {
			err = fmt.Errorf("%w: %w", ErrExchangeFailed, err)
		}
		logger.Error("oauth exchange failed", "provider", p, "user_id", userID, "error", err)
		return nil, err
	}

	rec, err := m.upsert(ctx, userID, p, tok)
	if err != nil {
		return nil, err
	}
	logger.Info("calendar connected", "provider", p, "user_id", userID, "integration_id", rec.ID)

	result := &CallbackResult{Integration: rec}
	result.EventsSynced, result.SyncErr = m.Sync(ctx, rec.ID)
	if result.SyncErr != nil {
		logger.Warn("initial calendar sync failed", "integration_id", rec.ID, "error", result.SyncErr)
	}
	return result, nil
}

// upsert updates the user's existing integration for p or inserts a new one.
// A refresh token already on file is kept when the provider did not issue a new one.
func (m *Manager) upsert(ctx context.Context, userID string, p Provider, tok *oauth2.Token) (*storage.IntegrationRecord, error) {
	key := upsertKey(userID, p)
	m.upsertLocks.Lock(key)
	defer func() {
		_ = m.upsertLocks.Unlock(key)
	}()

	existing, err := m.integrations.GetByUserAndProvider(ctx, userID, string(p))
	switch {
	case err == nil:
		applyToken(existing, tok)
		existing.Enabled = true
		if err := m.integrations.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("failed to update integration: %w", err)
		}
		return existing, nil
	case errors.Is(err, storage.ErrNotFound):
		rec := &storage.IntegrationRecord{
			UserID:     userID,
			Provider:   string(p),
			CalendarID: DefaultCalendarID,
			Enabled:    true,
		}
		applyToken(rec, tok)
		if err := m.integrations.Create(ctx, rec); err != nil {
			return nil, fmt.Errorf("failed to create integration: %w", err)
		}
		return rec, nil
	default:
		return nil, fmt.Errorf("failed to look up integration: %w", err)
	}
}

func applyToken(rec *storage.IntegrationRecord, tok *oauth2.Token) {
	rec.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		rec.RefreshToken = tok.RefreshToken
	}
	if tok.Expiry.IsZero() {
		rec.TokenExpiry = nil
	} else {
		expiry := tok.Expiry.UTC()
		rec.TokenExpiry = &expiry
	}
}

// Sync replaces the mirrored events of one integration with the provider's
// events for the next SyncWindow. Syncs of the same integration never overlap.
// A rejected access token is refreshed once and the fetch retried exactly once.
func (m *Manager) Sync(ctx context.Context, integrationID string) (int, error) {
	m.syncLocks.Lock(integrationID)
	defer func() {
		_ = m.syncLocks.Unlock(integrationID)
	}()

	rec, err := m.integrations.GetByID(ctx, integrationID)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load integration: %w", err)
	}
	return m.syncLocked(ctx, rec)
}

func (m *Manager) syncLocked(ctx context.Context, rec *storage.IntegrationRecord) (n int, err error) {
	logger := contextutil.LoggerFromContext(ctx)
	start := m.now()
	p := Provider(rec.Provider)
	defer func() {
		m.metrics.ObserveCalendarSync(rec.Provider, err, n, m.now().Sub(start))
	}()

	c, err := m.client(p)
	if err != nil {
		return 0, err
	}

	calendarID := rec.CalendarID
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}
	from := start
	to := from.Add(SyncWindow)

	remote, err := c.FetchEvents(ctx, rec.AccessToken, calendarID, from, to)
	if errors.Is(err, ErrTokenExpired) {
		logger.Info("calendar access token expired, refreshing", "integration_id", rec.ID)
		if err := m.refresh(ctx, c, rec); err != nil {
			return 0, err
		}
		remote, err = c.FetchEvents(ctx, rec.AccessToken, calendarID, from, to)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to fetch %s events: %w", p, err)
	}

	records := make([]storage.EventRecord, 0, len(remote))
	for _, ev := range remote {
		records = append(records, storage.EventRecord{
			ExternalID:  ev.ExternalID,
			Title:       ev.Title,
			Description: ev.Description,
			StartTime:   ev.Start,
			EndTime:     ev.End,
			AllDay:      ev.AllDay,
			Location:    ev.Location,
			URL:         ev.URL,
		})
	}
	if err := m.events.ReplaceForIntegration(ctx, rec.ID, records); err != nil {
		return 0, fmt.Errorf("failed to store events: %w", err)
	}

	logger.Info("calendar synced", "integration_id", rec.ID, "provider", p, "events", len(records))
	return len(records), nil
}

// refresh exchanges the refresh token for a new access token and persists it.
// It runs under the upsert lock of the integration's user and provider and
// works on the stored row, so tokens written by a reconnect are never lost.
func (m *Manager) refresh(ctx context.Context, c ProviderClient, rec *storage.IntegrationRecord) (err error) {
	key := upsertKey(rec.UserID, Provider(rec.Provider))
	m.upsertLocks.Lock(key)
	defer func() {
		_ = m.upsertLocks.Unlock(key)
	}()

	current, err := m.integrations.GetByID(ctx, rec.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to reload integration: %w", err)
	}
	if current.AccessToken != rec.AccessToken {
		// Reconnected after the rejected fetch.
		*rec = *current
		return nil
	}

	defer func() {
		m.metrics.ObserveTokenRefresh(rec.Provider, err)
	}()

	if current.RefreshToken == "" {
		return fmt.Errorf("%w: no refresh token on file", ErrTokenExpired)
	}
	tok, err := c.Refresh(ctx, current.RefreshToken)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTokenExpired, err)
	}
	applyToken(current, tok)
	if err := m.integrations.Update(ctx, current); err != nil {
		return fmt.Errorf("failed to persist refreshed token: %w", err)
	}
	*rec = *current
	return nil
}

func upsertKey(userID string, p Provider) string {
	return userID + "|" + string(p)
}

// SyncUser syncs every enabled integration of a user and returns the total
// number of events written. All integrations are attempted; errors are joined.
func (m *Manager) SyncUser(ctx context.Context, userID string) (int, error) {
	recs, err := m.integrations.ListByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to list integrations: %w", err)
	}

	total := 0
	var errs []error
	for _, rec := range recs {
		if !rec.Enabled {
			continue
		}
		n, err := m.Sync(ctx, rec.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rec.Provider, err))
			continue
		}
		total += n
	}
	return total, errors.Join(errs...)
}

// SyncAll syncs every enabled integration of every user with bounded
// concurrency. It returns the number of failed syncs.
func (m *Manager) SyncAll(ctx context.Context) (int, error) {
	logger := contextutil.LoggerFromContext(ctx)

	recs, err := m.integrations.ListEnabled(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list enabled integrations: %w", err)
	}

	var (
		g      errgroup.Group
		mu     sync.Mutex
		failed int
	)
	g.SetLimit(syncAllConcurrency)
	for _, rec := range recs {
		id := rec.ID
		g.Go(func() error {
			if _, err := m.Sync(ctx, id); err != nil {
				logger.Error("scheduled calendar sync failed", "integration_id", id, "error", err)
				mu.Lock()
				failed++
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	logger.Info("scheduled calendar sync finished", "integrations", len(recs), "failed", failed)
	return failed, nil
}

// Status reports, for every known provider, whether the user has an enabled integration.
func (m *Manager) Status(ctx context.Context, userID string) (map[Provider]bool, error) {
	recs, err := m.integrations.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list integrations: %w", err)
	}

	status := make(map[Provider]bool, len(Providers))
	for _, p := range Providers {
		status[p] = false
	}
	for _, rec := range recs {
		if rec.Enabled {
			status[Provider(rec.Provider)] = true
		}
	}
	return status, nil
}

// Integrations lists a user's integrations.
func (m *Manager) Integrations(ctx context.Context, userID string) ([]storage.IntegrationRecord, error) {
	recs, err := m.integrations.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list integrations: %w", err)
	}
	return recs, nil
}

// Events returns the mirrored events of a user's enabled integrations.
func (m *Manager) Events(ctx context.Context, userID string) ([]storage.EventRecord, error) {
	evs, err := m.events.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return evs, nil
}

// SyncIntegration syncs one integration owned by userID.
func (m *Manager) SyncIntegration(ctx context.Context, userID, integrationID string) (int, error) {
	if _, err := m.owned(ctx, userID, integrationID); err != nil {
		return 0, err
	}
	return m.Sync(ctx, integrationID)
}

// Disconnect deletes an integration and its events. It waits for any running
// sync of the integration to finish first.
func (m *Manager) Disconnect(ctx context.Context, userID, integrationID string) error {
	rec, err := m.owned(ctx, userID, integrationID)
	if err != nil {
		return err
	}

	m.syncLocks.Lock(integrationID)
	defer func() {
		_ = m.syncLocks.Unlock(integrationID)
	}()

	if err := m.integrations.Delete(ctx, integrationID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete integration: %w", err)
	}
	contextutil.LoggerFromContext(ctx).Info("calendar disconnected",
		"integration_id", integrationID, "provider", rec.Provider, "user_id", userID)
	return nil
}

func (m *Manager) owned(ctx context.Context, userID, integrationID string) (*storage.IntegrationRecord, error) {
	rec, err := m.integrations.GetByID(ctx, integrationID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load integration: %w", err)
	}
	if rec.UserID != userID {
		return nil, ErrNotFound
	}
	return rec, nil
}
