package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fury/internal/interfaces"
	"github.com/ternarybob/fury/internal/models"
	"github.com/ternarybob/fury/internal/services/parser"
)

// AnalyzeHandler runs taxonomy discovery over an uploaded bookmark set
// without persisting anything.
type AnalyzeHandler struct {
	discovery interfaces.DiscoveryService
	logger    arbor.ILogger
}

func NewAnalyzeHandler(discovery interfaces.DiscoveryService, logger arbor.ILogger) *AnalyzeHandler {
	return &AnalyzeHandler{
		discovery: discovery,
		logger:    logger,
	}
}

type analyzeRequest struct {
	BookmarksHTML string                  `json:"bookmarksHtml,omitempty"`
	Bookmarks     []models.ParsedBookmark `json:"bookmarks,omitempty"`
}

type analyzeResponse struct {
	Success bool                  `json:"success"`
	Result  *models.AnalyzeResult `json:"result,omitempty"`
	Error   string                `json:"error,omitempty"`
}

// HandleAnalyze handles POST /api/analyze. The body carries either raw
// archive HTML or an already-parsed bookmark list.
func (h *AnalyzeHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSON(w, http.StatusBadRequest, analyzeResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	bookmarks := req.Bookmarks
	if len(bookmarks) == 0 && req.BookmarksHTML != "" {
		parsed, err := parser.Parse(req.BookmarksHTML)
		if err != nil {
			WriteJSON(w, http.StatusBadRequest, analyzeResponse{Error: fmt.Sprintf("failed to parse bookmarks: %v", err)})
			return
		}
		bookmarks = parsed
	}
	if len(bookmarks) == 0 {
		WriteJSON(w, http.StatusBadRequest, analyzeResponse{Error: "no bookmarks provided"})
		return
	}

	h.logger.Info().Int("bookmarks", len(bookmarks)).Msg("Analyzing bookmark set")

	result, err := h.discovery.Discover(r.Context(), bookmarks)
	if err != nil {
		h.logger.Error().Err(err).Msg("Taxonomy discovery failed")
		WriteJSON(w, http.StatusInternalServerError, analyzeResponse{Error: fmt.Sprintf("discovery failed: %v", err)})
		return
	}

	WriteJSON(w, http.StatusOK, analyzeResponse{
		Success: true,
		Result: &models.AnalyzeResult{
			DiscoveryResult: result,
			Validation:      h.discovery.ValidateHierarchy(result.Categories),
			Stats:           h.discovery.Stats(result.Categories),
			BookmarkCount:   len(bookmarks),
		},
	})
}
