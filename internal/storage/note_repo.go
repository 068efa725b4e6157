package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_note_store.go -package=mocks github.com/nwoyto/PersonalAiHelper-sub000/internal/storage NoteStore,TaskStore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NoteStore defines the interface for note storage operations.
type NoteStore interface {
	// Create inserts a note, generating its ID and creation time when unset.
	Create(ctx context.Context, note *NoteRecord) error
	// GetByID gets a note by ID.
	// Returns nil and ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*NoteRecord, error)
	// GetByIDs returns the notes with the given IDs, in the order given. Missing IDs are skipped.
	GetByIDs(ctx context.Context, ids []string) ([]NoteRecord, error)
	// ListByUser returns every note of a user, oldest first.
	ListByUser(ctx context.Context, userID string) ([]NoteRecord, error)
	// Delete removes a note. Tasks extracted from it keep existing without a note.
	// Returns ErrNotFound if not found.
	Delete(ctx context.Context, id string) error
}

// NoteRepo provides methods for note operations.
// It implements the NoteStore interface.
type NoteRepo struct {
	db *sql.DB
}

// NewNoteRepo creates a new NoteRepo.
func NewNoteRepo(db *sql.DB) *NoteRepo {
	return &NoteRepo{db: db}
}

// Create inserts a new note.
func (r *NoteRepo) Create(ctx context.Context, note *NoteRecord) error {
	if note.ID == "" {
		note.ID = uuid.New().String()
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO notes (id, user_id, content, created_at) VALUES (?, ?, ?, ?)",
		note.ID, note.UserID, note.Content, formatTime(note.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert note: %w", err)
	}
	return nil
}

// GetByID gets a note by ID.
func (r *NoteRepo) GetByID(ctx context.Context, id string) (*NoteRecord, error) {
	var note NoteRecord
	var createdAtStr string

	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, content, created_at FROM notes WHERE id = ?", id,
	).Scan(&note.ID, &note.UserID, &note.Content, &createdAtStr)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query note: %w", err)
	}

	note.CreatedAt, err = parseTime(createdAtStr)
	if err != nil {
		return nil, err
	}
	return &note, nil
}

// GetByIDs returns notes for the given IDs preserving the input order.
func (r *NoteRepo) GetByIDs(ctx context.Context, ids []string) ([]NoteRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, content, created_at FROM notes WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]NoteRecord, len(ids))
	for rows.Next() {
		var note NoteRecord
		var createdAtStr string
		if err := rows.Scan(&note.ID, &note.UserID, &note.Content, &createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		if note.CreatedAt, err = parseTime(createdAtStr); err != nil {
			return nil, err
		}
		byID[note.ID] = note
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	notes := make([]NoteRecord, 0, len(byID))
	for _, id := range ids {
		if note, ok := byID[id]; ok {
			notes = append(notes, note)
		}
	}
	return notes, nil
}

// ListByUser returns a user's notes ordered by creation time.
func (r *NoteRepo) ListByUser(ctx context.Context, userID string) ([]NoteRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, content, created_at FROM notes WHERE user_id = ? ORDER BY created_at, id", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var notes []NoteRecord
	for rows.Next() {
		var note NoteRecord
		var createdAtStr string
		if err := rows.Scan(&note.ID, &note.UserID, &note.Content, &createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		if note.CreatedAt, err = parseTime(createdAtStr); err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

// Delete removes a note by ID.
func (r *NoteRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
