package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fury/internal/interfaces"
	"github.com/ternarybob/fury/internal/models"
)

// CategoryHandler serves the category read API plus bulk creation and
// merge operations.
type CategoryHandler struct {
	storage interfaces.StorageManager
	events  interfaces.EventService
	logger  arbor.ILogger
}

func NewCategoryHandler(storage interfaces.StorageManager, events interfaces.EventService, logger arbor.ILogger) *CategoryHandler {
	return &CategoryHandler{
		storage: storage,
		events:  events,
		logger:  logger,
	}
}

// HandleList handles GET /api/categories. With tree=true the flat list is
// folded into a forest of CategoryNode with per-category bookmark counts.
func (h *CategoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	categories, err := h.storage.CategoryStorage().List(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list categories: %v", err))
		return
	}

	if r.URL.Query().Get("tree") != "true" {
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"categories": categories,
			"count":      len(categories),
		})
		return
	}

	tree, err := h.buildTree(r, categories)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("failed to build category tree: %v", err))
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": tree,
		"count":      len(categories),
	})
}

func (h *CategoryHandler) buildTree(r *http.Request, categories []*models.Category) ([]*models.CategoryNode, error) {
	nodes := make(map[int64]*models.CategoryNode, len(categories))
	for _, cat := range categories {
		count, err := h.storage.BookmarkStorage().CountByCategory(r.Context(), cat.ID)
		if err != nil {
			return nil, err
		}
		nodes[cat.ID] = &models.CategoryNode{Category: *cat, BookmarkCount: count}
	}

	// List is ordered parent-first, so children append in stable order.
	roots := make([]*models.CategoryNode, 0)
	for _, cat := range categories {
		node := nodes[cat.ID]
		if cat.ParentID != nil {
			if parent, ok := nodes[*cat.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots, nil
}

type bulkCreateRequest struct {
	Categories      []*models.DiscoveredCategory `json:"categories"`
	ReplaceExisting bool                         `json:"replaceExisting"`
}

// HandleBulkCreate handles POST /api/categories/bulk: persist a discovered
// forest, optionally replacing the current taxonomy.
func (h *CategoryHandler) HandleBulkCreate(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req bulkCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if len(req.Categories) == 0 {
		WriteError(w, http.StatusBadRequest, "categories is required")
		return
	}

	result, err := h.storage.CategoryStorage().CreateBulk(r.Context(), req.Categories, req.ReplaceExisting)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("bulk create failed: %v", err))
		return
	}

	h.logger.Info().
		Int("created", result.Created).
		Int("updated", result.Updated).
		Bool("replace_existing", req.ReplaceExisting).
		Msg("Bulk category creation completed")

	if h.events != nil {
		h.events.Publish(r.Context(), interfaces.Event{
			Type:    interfaces.EventCategoryCreated,
			Payload: result,
		})
	}

	WriteJSON(w, http.StatusOK, result)
}

type mergeRequest struct {
	SourceID int64 `json:"sourceId"`
	TargetID int64 `json:"targetId"`
}

// HandleMerge handles POST /api/categories/merge: move the source's
// bookmarks and children onto the target, union keywords, delete the
// source.
func (h *CategoryHandler) HandleMerge(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req mergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.SourceID == 0 || req.TargetID == 0 {
		WriteError(w, http.StatusBadRequest, "sourceId and targetId are required")
		return
	}
	if req.SourceID == req.TargetID {
		WriteError(w, http.StatusBadRequest, "cannot merge a category into itself")
		return
	}

	result, err := h.storage.CategoryStorage().Merge(r.Context(), req.SourceID, req.TargetID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "source or target category not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("merge failed: %v", err))
		return
	}

	h.logger.Info().
		Int64("source_id", req.SourceID).
		Int64("target_id", req.TargetID).
		Int("merged_bookmarks", result.MergedBookmarks).
		Msg("Categories merged")

	if h.events != nil {
		h.events.Publish(r.Context(), interfaces.Event{
			Type:    interfaces.EventCategoryMerged,
			Payload: result,
		})
	}

	WriteJSON(w, http.StatusOK, result)
}
