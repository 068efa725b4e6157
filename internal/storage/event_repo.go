package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventStore defines the interface for mirrored calendar event storage.
type EventStore interface {
	// ReplaceForIntegration deletes every event of the integration and inserts
	// events in their place, atomically. Row IDs are regenerated.
	ReplaceForIntegration(ctx context.Context, integrationID string, events []EventRecord) error
	// ListByIntegration returns the events of one integration ordered by start time.
	ListByIntegration(ctx context.Context, integrationID string) ([]EventRecord, error)
	// ListByUser returns the events of every enabled integration of a user, tagged with the provider.
	ListByUser(ctx context.Context, userID string) ([]EventRecord, error)
}

// EventRepo provides methods for calendar event operations.
// It implements the EventStore interface.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo creates a new EventRepo.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

// ReplaceForIntegration fully replaces the mirrored event set of an integration.
func (r *EventRepo) ReplaceForIntegration(ctx context.Context, integrationID string, events []EventRecord) error {
	syncedAt := time.Now().UTC()

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM calendar_events WHERE integration_id = ?", integrationID); err != nil {
			return fmt.Errorf("failed to delete events: %w", err)
		}

		if len(events) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO calendar_events
			 (id, integration_id, external_id, title, description, start_time, end_time, all_day, location, url, last_synced)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare event insert: %w", err)
		}
		defer stmt.Close()

		for i := range events {
			ev := &events[i]
			ev.ID = uuid.New().String()
			ev.IntegrationID = integrationID
			ev.LastSynced = syncedAt

			if _, err := stmt.ExecContext(ctx,
				ev.ID, ev.IntegrationID, ev.ExternalID, ev.Title, nullString(ev.Description),
				formatTimePtr(ev.StartTime), formatTimePtr(ev.EndTime), ev.AllDay,
				nullString(ev.Location), nullString(ev.URL), formatTime(ev.LastSynced),
			); err != nil {
				return fmt.Errorf("failed to insert event %s: %w", ev.ExternalID, err)
			}
		}
		return nil
	})
}

// ListByIntegration returns the events of one integration.
func (r *EventRepo) ListByIntegration(ctx context.Context, integrationID string) ([]EventRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT e.id, e.integration_id, e.external_id, e.title, e.description, e.start_time, e.end_time,
		        e.all_day, e.location, e.url, e.last_synced, i.provider
		 FROM calendar_events e
		 JOIN calendar_integrations i ON i.id = e.integration_id
		 WHERE e.integration_id = ?
		 ORDER BY e.start_time, e.external_id`,
		integrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListByUser returns the events of a user's enabled integrations.
func (r *EventRepo) ListByUser(ctx context.Context, userID string) ([]EventRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT e.id, e.integration_id, e.external_id, e.title, e.description, e.start_time, e.end_time,
		        e.all_day, e.location, e.url, e.last_synced, i.provider
		 FROM calendar_events e
		 JOIN calendar_integrations i ON i.id = e.integration_id
		 WHERE i.user_id = ? AND i.enabled = 1
		 ORDER BY e.start_time, e.external_id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]EventRecord, error) {
	var events []EventRecord
	for rows.Next() {
		var (
			ev                         EventRecord
			description, location, url sql.NullString
			startTime, endTime         sql.NullString
			lastSynced                 string
		)
		if err := rows.Scan(&ev.ID, &ev.IntegrationID, &ev.ExternalID, &ev.Title, &description,
			&startTime, &endTime, &ev.AllDay, &location, &url, &lastSynced, &ev.Provider); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		ev.Description = description.String
		ev.Location = location.String
		ev.URL = url.String

		var err error
		if ev.StartTime, err = parseTimePtr(startTime); err != nil {
			return nil, err
		}
		if ev.EndTime, err = parseTimePtr(endTime); err != nil {
			return nil, err
		}
		if ev.LastSynced, err = parseTime(lastSynced); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
