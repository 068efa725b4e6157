package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_search.go -package=mocks github.com/nwoyto/PersonalAiHelper-sub000/internal/service Embedder,NoteIndexer,NoteSearcher,NoteReindexer,NoteRemover

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nwoyto/PersonalAiHelper-sub000/internal/contextutil"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/storage"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/vectorstore"
)

const (
	// DefaultSearchLimit is used when a search does not ask for a result count.
	DefaultSearchLimit = 5
	// MaxSearchLimit caps the number of search results.
	MaxSearchLimit = 50

	reindexBatchSize = 32
)

// Embedder turns texts into vectors.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// NoteHit is a note matched by a search.
type NoteHit struct {
	Note  storage.NoteRecord
	Score float32
}

// NoteSearcher finds a user's notes by meaning.
type NoteSearcher interface {
	Search(ctx context.Context, userID, query string, k int) ([]NoteHit, error)
}

// NoteReindexer rebuilds a user's note index.
type NoteReindexer interface {
	Reindex(ctx context.Context, userID string) (int, error)
}

// NoteSearchService indexes notes into a vector store and searches them.
type NoteSearchService struct {
	embedder   Embedder
	store      vectorstore.VectorStore
	notes      storage.NoteStore
	collection string
}

// NewNoteSearchService creates a NoteSearchService writing to collection.
func NewNoteSearchService(embedder Embedder, store vectorstore.VectorStore, notes storage.NoteStore, collection string) *NoteSearchService {
	return &NoteSearchService{
		embedder:   embedder,
		store:      store,
		notes:      notes,
		collection: collection,
	}
}

// IndexNote embeds the note's content and upserts it keyed by the note ID.
func (s *NoteSearchService) IndexNote(ctx context.Context, note storage.NoteRecord) error {
	vecs, err := s.embedder.EmbedTexts(ctx, []string{note.Content})
	if err != nil {
		return externalError(err, "failed to embed note")
	}
	if len(vecs) != 1 {
		return externalError(nil, fmt.Sprintf("expected 1 embedding, got %d", len(vecs)))
	}

	if err := s.store.Upsert(ctx, s.collection, []vectorstore.Point{notePoint(note, vecs[0])}); err != nil {
		return externalError(err, "failed to upsert note")
	}
	return nil
}

// Reindex embeds and upserts every note of the user again and returns how
// many were indexed. Notes whose best-effort indexing failed become searchable.
func (s *NoteSearchService) Reindex(ctx context.Context, userID string) (int, error) {
	logger := contextutil.LoggerFromContext(ctx)

	notes, err := s.notes.ListByUser(ctx, userID)
	if err != nil {
		return 0, WrapError(err, "failed to list notes")
	}

	indexed := 0
	for start := 0; start < len(notes); start += reindexBatchSize {
		batch := notes[start:min(start+reindexBatchSize, len(notes))]

		texts := make([]string, len(batch))
		for i, n := range batch {
			texts[i] = n.Content
		}
		vecs, err := s.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return indexed, externalError(err, "failed to embed notes")
		}
		if len(vecs) != len(batch) {
			return indexed, externalError(nil, fmt.Sprintf("expected %d embeddings, got %d", len(batch), len(vecs)))
		}

		points := make([]vectorstore.Point, len(batch))
		for i, n := range batch {
			points[i] = notePoint(n, vecs[i])
		}
		if err := s.store.Upsert(ctx, s.collection, points); err != nil {
			return indexed, externalError(err, "failed to upsert notes")
		}
		indexed += len(batch)
		logger.DebugContext(ctx, "reindexed note batch", "indexed", indexed, "total", len(notes))
	}

	logger.InfoContext(ctx, "note reindex completed", "notes", indexed)
	return indexed, nil
}

// RemoveNote deletes the note's vector. Removing a note that was never indexed is not an error.
func (s *NoteSearchService) RemoveNote(ctx context.Context, noteID string) error {
	if err := s.store.Delete(ctx, s.collection, []string{noteID}); err != nil {
		return externalError(err, "failed to delete note vector")
	}
	return nil
}

func notePoint(note storage.NoteRecord, vec []float32) vectorstore.Point {
	return vectorstore.Point{
		ID:  note.ID,
		Vec: vec,
		Meta: map[string]any{
			"note_id":    note.ID,
			"user_id":    note.UserID,
			"created_at": note.CreatedAt.UTC().Format(time.RFC3339),
		},
	}
}

// Search returns up to k of the user's notes closest to query, best first.
func (s *NoteSearchService) Search(ctx context.Context, userID, query string, k int) ([]NoteHit, error) {
	logger := contextutil.LoggerFromContext(ctx)

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &ValidationError{Field: "q", Message: "cannot be empty"}
	}
	switch {
	case k < 0:
		return nil, invalidInput("k must not be negative, got %d", k)
	case k == 0:
		k = DefaultSearchLimit
	case k > MaxSearchLimit:
		k = MaxSearchLimit
	}

	vecs, err := s.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, externalError(err, "failed to embed query")
	}
	if len(vecs) != 1 {
		return nil, externalError(nil, fmt.Sprintf("expected 1 embedding, got %d", len(vecs)))
	}

	results, err := s.store.Search(ctx, s.collection, vecs[0], k, map[string]any{"user_id": userID})
	if err != nil {
		return nil, externalError(err, "failed to search notes")
	}

	ids := make([]string, 0, len(results))
	scores := make(map[string]float32, len(results))
	for _, r := range results {
		id, _ := r.Meta["note_id"].(string)
		if id == "" {
			id = r.PointID
		}
		if id == "" {
			continue
		}
		if _, seen := scores[id]; seen {
			continue
		}
		ids = append(ids, id)
		scores[id] = r.Score
	}

	notes, err := s.notes.GetByIDs(ctx, ids)
	if err != nil {
		return nil, WrapError(err, "failed to load notes")
	}

	hits := make([]NoteHit, 0, len(notes))
	for _, n := range notes {
		// The index may be stale; storage is authoritative for ownership.
		if n.UserID != userID {
			continue
		}
		hits = append(hits, NoteHit{Note: n, Score: scores[n.ID]})
	}

	logger.InfoContext(ctx, "note search completed", "k", k, "results", len(hits))
	return hits, nil
}
