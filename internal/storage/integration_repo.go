package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// IntegrationStore defines the interface for calendar integration storage operations.
type IntegrationStore interface {
	// Create inserts a new integration, assigning an ID and timestamps when unset.
	Create(ctx context.Context, integration *IntegrationRecord) error
	// Update rewrites tokens, calendar and enabled flag of an existing integration.
	Update(ctx context.Context, integration *IntegrationRecord) error
	// GetByID returns ErrNotFound when no row matches.
	GetByID(ctx context.Context, id string) (*IntegrationRecord, error)
	// GetByUserAndProvider returns the most recently updated row for the pair, or ErrNotFound.
	GetByUserAndProvider(ctx context.Context, userID, provider string) (*IntegrationRecord, error)
	// ListByUser returns every integration of a user.
	ListByUser(ctx context.Context, userID string) ([]IntegrationRecord, error)
	// ListEnabled returns every enabled integration across users.
	ListEnabled(ctx context.Context) ([]IntegrationRecord, error)
	// Delete removes the integration and its events. Returns ErrNotFound when missing.
	Delete(ctx context.Context, id string) error
}

// IntegrationRepo provides methods for calendar integration operations.
// It implements the IntegrationStore interface.
type IntegrationRepo struct {
	db *sql.DB
}

// NewIntegrationRepo creates a new IntegrationRepo.
func NewIntegrationRepo(db *sql.DB) *IntegrationRepo {
	return &IntegrationRepo{db: db}
}

const integrationColumns = "id, user_id, provider, access_token, refresh_token, token_expiry, calendar_id, enabled, created_at, updated_at"

// Create inserts a new integration.
func (r *IntegrationRepo) Create(ctx context.Context, integration *IntegrationRecord) error {
	if integration.ID == "" {
		integration.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if integration.CreatedAt.IsZero() {
		integration.CreatedAt = now
	}
	integration.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO calendar_integrations (`+integrationColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		integration.ID, integration.UserID, integration.Provider, integration.AccessToken,
		nullString(integration.RefreshToken), formatTimePtr(integration.TokenExpiry),
		nullString(integration.CalendarID), integration.Enabled,
		formatTime(integration.CreatedAt), formatTime(integration.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert integration: %w", err)
	}
	return nil
}

// Update rewrites the mutable columns of an existing integration.
func (r *IntegrationRepo) Update(ctx context.Context, integration *IntegrationRecord) error {
	integration.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx,
		`UPDATE calendar_integrations
		 SET access_token = ?, refresh_token = ?, token_expiry = ?, calendar_id = ?, enabled = ?, updated_at = ?
		 WHERE id = ?`,
		integration.AccessToken, nullString(integration.RefreshToken), formatTimePtr(integration.TokenExpiry),
		nullString(integration.CalendarID), integration.Enabled, formatTime(integration.UpdatedAt),
		integration.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update integration: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID gets an integration by ID.
func (r *IntegrationRepo) GetByID(ctx context.Context, id string) (*IntegrationRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+integrationColumns+" FROM calendar_integrations WHERE id = ?", id)
	return scanIntegration(row)
}

// GetByUserAndProvider gets the newest integration for a user and provider.
func (r *IntegrationRepo) GetByUserAndProvider(ctx context.Context, userID, provider string) (*IntegrationRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+integrationColumns+` FROM calendar_integrations
		 WHERE user_id = ? AND provider = ?
		 ORDER BY updated_at DESC LIMIT 1`,
		userID, provider)
	return scanIntegration(row)
}

// ListByUser returns the integrations of a user ordered by provider.
func (r *IntegrationRepo) ListByUser(ctx context.Context, userID string) ([]IntegrationRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+integrationColumns+" FROM calendar_integrations WHERE user_id = ? ORDER BY provider, created_at",
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query integrations: %w", err)
	}
	defer rows.Close()
	return scanIntegrations(rows)
}

// ListEnabled returns all enabled integrations.
func (r *IntegrationRepo) ListEnabled(ctx context.Context) ([]IntegrationRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+integrationColumns+" FROM calendar_integrations WHERE enabled = 1 ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("failed to query enabled integrations: %w", err)
	}
	defer rows.Close()
	return scanIntegrations(rows)
}

// Delete removes the integration's events and then the integration row in one transaction.
func (r *IntegrationRepo) Delete(ctx context.Context, id string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM calendar_events WHERE integration_id = ?", id); err != nil {
			return fmt.Errorf("failed to delete integration events: %w", err)
		}
		result, err := tx.ExecContext(ctx, "DELETE FROM calendar_integrations WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to delete integration: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check deleted rows: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIntegration(row rowScanner) (*IntegrationRecord, error) {
	var (
		rec                            IntegrationRecord
		refreshToken, expiry, calendar sql.NullString
		createdAt, updatedAt           string
	)
	err := row.Scan(&rec.ID, &rec.UserID, &rec.Provider, &rec.AccessToken,
		&refreshToken, &expiry, &calendar, &rec.Enabled, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan integration: %w", err)
	}

	rec.RefreshToken = refreshToken.String
	rec.CalendarID = calendar.String
	if rec.TokenExpiry, err = parseTimePtr(expiry); err != nil {
		return nil, err
	}
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

func scanIntegrations(rows *sql.Rows) ([]IntegrationRecord, error) {
	var integrations []IntegrationRecord
	for rows.Next() {
		rec, err := scanIntegration(rows)
		if err != nil {
			return nil, err
		}
		integrations = append(integrations, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return integrations, nil
}
