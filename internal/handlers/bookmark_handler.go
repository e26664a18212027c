package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fury/internal/interfaces"
	"github.com/ternarybob/fury/internal/models"
)

// BookmarkHandler serves the bookmark read API.
type BookmarkHandler struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

func NewBookmarkHandler(storage interfaces.StorageManager, logger arbor.ILogger) *BookmarkHandler {
	return &BookmarkHandler{
		storage: storage,
		logger:  logger,
	}
}

// HandleList handles GET /api/bookmarks with category_id, q, limit and
// offset query parameters.
func (h *BookmarkHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	categoryID, err := QueryInt64Ptr(r, "category_id")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "category_id must be an integer")
		return
	}

	filter := models.BookmarkFilter{
		CategoryID: categoryID,
		Query:      r.URL.Query().Get("q"),
		Limit:      QueryInt(r, "limit", 100),
		Offset:     QueryInt(r, "offset", 0),
	}

	bookmarks, err := h.storage.BookmarkStorage().List(r.Context(), filter)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list bookmarks: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"bookmarks": bookmarks,
		"count":     len(bookmarks),
		"limit":     filter.Limit,
		"offset":    filter.Offset,
	})
}

// HandleGet handles GET /api/bookmarks/{id}.
func (h *BookmarkHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	idStr := strings.TrimPrefix(r.URL.Path, "/api/bookmarks/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "bookmark id must be an integer")
		return
	}

	bookmark, err := h.storage.BookmarkStorage().GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, fmt.Sprintf("bookmark %d not found", id))
			return
		}
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load bookmark: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, bookmark)
}

// HandleCount handles GET /api/bookmarks/count.
func (h *BookmarkHandler) HandleCount(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	count, err := h.storage.BookmarkStorage().Count(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("failed to count bookmarks: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]int{"count": count})
}
