package handlers

import (
	"context"
	"net/http"

	"github.com/nwoyto/PersonalAiHelper-sub000/internal/contextutil"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/service"
)

// IndexHandler handles HTTP requests for rebuilding the note search index.
type IndexHandler struct {
	reindexer service.NoteReindexer
}

// NewIndexHandler creates a new IndexHandler.
func NewIndexHandler(reindexer service.NoteReindexer) *IndexHandler {
	return &IndexHandler{
		reindexer: reindexer,
	}
}

// IndexResponse represents the response from the index endpoint.
type IndexResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// ServeHTTP starts re-indexing the user's notes in the background.
func (h *IndexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if h.reindexer == nil {
		writeError(w, http.StatusServiceUnavailable, "Note search is not configured")
		return
	}

	uid := userID(r)
	logger.InfoContext(ctx, "note re-indexing triggered via API", "user_id", uid)

	// Keep the request's logger and user but not its cancellation.
	indexCtx := context.WithoutCancel(ctx)
	go func() {
		n, err := h.reindexer.Reindex(indexCtx, uid)
		if err != nil {
			logger.ErrorContext(indexCtx, "note re-indexing failed", "indexed", n, "error", err)
			return
		}
		logger.InfoContext(indexCtx, "note re-indexing completed", "indexed", n)
	}()

	writeJSON(ctx, w, http.StatusAccepted, IndexResponse{
		Message: "Re-indexing started. Check server logs for progress.",
		Status:  "accepted",
	})
}
