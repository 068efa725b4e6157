package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_note_service.go -package=mocks github.com/nwoyto/PersonalAiHelper-sub000/internal/service NoteService

import (
	"context"
	"errors"
	"strings"

	"github.com/nwoyto/PersonalAiHelper-sub000/internal/contextutil"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/storage"
)

// NoteRemover drops a deleted note from the search index.
type NoteRemover interface {
	RemoveNote(ctx context.Context, noteID string) error
}

// NoteService reads and deletes a user's stored notes.
type NoteService interface {
	// Note returns the user's note. Notes of other users are reported as ErrNotFound.
	Note(ctx context.Context, userID, id string) (storage.NoteRecord, error)
	// DeleteNote removes the user's note and its search vector.
	DeleteNote(ctx context.Context, userID, id string) error
}

type noteService struct {
	notes   storage.NoteStore
	remover NoteRemover
}

// NoteServiceOption configures the note service.
type NoteServiceOption func(*noteService)

// WithNoteRemover removes deleted notes from the search index. Failures are logged, not returned.
func WithNoteRemover(r NoteRemover) NoteServiceOption {
	return func(s *noteService) { s.remover = r }
}

// NewNoteService creates a new NoteService.
func NewNoteService(notes storage.NoteStore, opts ...NoteServiceOption) NoteService {
	s := &noteService{notes: notes}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *noteService) Note(ctx context.Context, userID, id string) (storage.NoteRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.NoteRecord{}, &ValidationError{Field: "id", Message: "cannot be empty"}
	}

	note, err := s.notes.GetByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.NoteRecord{}, WrapError(ErrNotFound, "note "+id)
	}
	if err != nil {
		return storage.NoteRecord{}, WrapError(err, "failed to load note")
	}
	if note.UserID != userID {
		return storage.NoteRecord{}, WrapError(ErrNotFound, "note "+id)
	}
	return *note, nil
}

func (s *noteService) DeleteNote(ctx context.Context, userID, id string) error {
	logger := contextutil.LoggerFromContext(ctx)

	note, err := s.Note(ctx, userID, id)
	if err != nil {
		return err
	}

	err = s.notes.Delete(ctx, note.ID)
	if errors.Is(err, storage.ErrNotFound) {
		// Deleted concurrently.
		return WrapError(ErrNotFound, "note "+note.ID)
	}
	if err != nil {
		return WrapError(err, "failed to delete note")
	}

	if s.remover != nil {
		if err := s.remover.RemoveNote(ctx, note.ID); err != nil {
			logger.WarnContext(ctx, "failed to remove note from search index", "note_id", note.ID, "error", err)
		}
	}

	logger.InfoContext(ctx, "note deleted", "note_id", note.ID)
	return nil
}
