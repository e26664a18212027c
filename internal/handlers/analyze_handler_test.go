package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fury/internal/models"
)

// stubDiscovery returns a fixed one-category forest.
type stubDiscovery struct {
	gotBookmarks int
}

func (s *stubDiscovery) Discover(ctx context.Context, bookmarks []models.ParsedBookmark) (*models.DiscoveryResult, error) {
	s.gotBookmarks = len(bookmarks)
	return &models.DiscoveryResult{
		Categories: []*models.DiscoveredCategory{
			{TempID: "c1", Name: "Programming", Slug: "programming", Level: 1},
		},
		Source: "clustering",
	}, nil
}

func (s *stubDiscovery) ValidateHierarchy(tree []*models.DiscoveredCategory) models.ValidationResult {
	return models.ValidationResult{Valid: true, Errors: []string{}, Warnings: []string{}}
}

func (s *stubDiscovery) Stats(tree []*models.DiscoveredCategory) models.TaxonomyStats {
	return models.TaxonomyStats{TotalCategories: len(tree), MaxDepth: 1}
}

func TestAnalyzeFromHTML(t *testing.T) {
	disc := &stubDiscovery{}
	h := NewAnalyzeHandler(disc, arbor.NewLogger())

	body := `{"bookmarksHtml":"<dl><dt><a href=\"https://go.dev\">Go</a></dt><dt><a href=\"https://rust-lang.org\">Rust</a></dt></dl>"}`
	rec := httptest.NewRecorder()
	h.HandleAnalyze(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp analyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Result)
	assert.Equal(t, 2, resp.Result.BookmarkCount)
	assert.Equal(t, 2, disc.gotBookmarks)
	assert.Equal(t, "clustering", resp.Result.DiscoveryResult.Source)
	assert.True(t, resp.Result.Validation.Valid)
}

func TestAnalyzeFromParsedList(t *testing.T) {
	h := NewAnalyzeHandler(&stubDiscovery{}, arbor.NewLogger())

	body := `{"bookmarks":[{"url":"https://go.dev","title":"Go"}]}`
	rec := httptest.NewRecorder()
	h.HandleAnalyze(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp analyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Result.BookmarkCount)
}

func TestAnalyzeRejectsEmpty(t *testing.T) {
	h := NewAnalyzeHandler(&stubDiscovery{}, arbor.NewLogger())

	rec := httptest.NewRecorder()
	h.HandleAnalyze(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp analyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestAnalyzeRejectsGet(t *testing.T) {
	h := NewAnalyzeHandler(&stubDiscovery{}, arbor.NewLogger())

	rec := httptest.NewRecorder()
	h.HandleAnalyze(rec, httptest.NewRequest(http.MethodGet, "/api/analyze", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
