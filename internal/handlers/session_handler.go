package handlers

import (
	"fmt"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fury/internal/interfaces"
)

// SessionHandler serves the import session history.
type SessionHandler struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

func NewSessionHandler(storage interfaces.StorageManager, logger arbor.ILogger) *SessionHandler {
	return &SessionHandler{
		storage: storage,
		logger:  logger,
	}
}

// HandleList handles GET /api/sessions, newest first.
func (h *SessionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit := QueryInt(r, "limit", 50)
	sessions, err := h.storage.SessionStorage().List(r.Context(), limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list sessions: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}
