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

func seedCategoryTree(t *testing.T, h *CategoryHandler) map[string]int64 {
	t.Helper()
	tree := []*models.DiscoveredCategory{
		{
			TempID: "t1", Name: "Tech", Slug: "tech", Level: 1,
			Children: []*models.DiscoveredCategory{
				{TempID: "t2", Name: "Golang", Slug: "golang", ParentTempID: "t1", Level: 2, Keywords: []string{"go"}},
			},
		},
		{TempID: "t3", Name: "Cooking", Slug: "cooking", Level: 1, Keywords: []string{"recipe"}},
	}
	result, err := h.storage.CategoryStorage().CreateBulk(context.Background(), tree, true)
	require.NoError(t, err)
	return result.CategoryMap
}

func TestCategoryListFlat(t *testing.T) {
	h := NewCategoryHandler(newTestStorage(t), nil, arbor.NewLogger())
	seedCategoryTree(t, h)

	rec := httptest.NewRecorder()
	h.HandleList(rec, httptest.NewRequest(http.MethodGet, "/api/categories", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Categories []*models.Category `json:"categories"`
		Count      int                `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Count)
}

func TestCategoryListTree(t *testing.T) {
	storage := newTestStorage(t)
	h := NewCategoryHandler(storage, nil, arbor.NewLogger())
	ids := seedCategoryTree(t, h)

	golangID := ids["t2"]
	bm := seedBookmark(t, storage, "https://go.dev", "Go")
	require.NoError(t, storage.BookmarkStorage().SetCategory(context.Background(), bm.ID, &golangID))

	rec := httptest.NewRecorder()
	h.HandleList(rec, httptest.NewRequest(http.MethodGet, "/api/categories?tree=true", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Categories []*models.CategoryNode `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Categories, 2, "two roots")

	var tech *models.CategoryNode
	for _, root := range resp.Categories {
		if root.Slug == "tech" {
			tech = root
		}
	}
	require.NotNil(t, tech)
	require.Len(t, tech.Children, 1)
	assert.Equal(t, "golang", tech.Children[0].Slug)
	assert.Equal(t, 1, tech.Children[0].BookmarkCount)
}

func TestCategoryBulkCreate(t *testing.T) {
	h := NewCategoryHandler(newTestStorage(t), nil, arbor.NewLogger())

	body := `{"categories":[{"tempId":"a","name":"Reading","slug":"reading","level":1}],"replaceExisting":false}`
	rec := httptest.NewRecorder()
	h.HandleBulkCreate(rec, httptest.NewRequest(http.MethodPost, "/api/categories/bulk", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)

	// The result object is the response body, not wrapped in an envelope
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Contains(t, raw, "created")
	assert.Contains(t, raw, "updated")
	assert.Contains(t, raw, "categoryMap")

	var result models.BulkCreateResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Created)
	assert.Contains(t, result.CategoryMap, "a")
}

func TestCategoryBulkCreateRejectsEmpty(t *testing.T) {
	h := NewCategoryHandler(newTestStorage(t), nil, arbor.NewLogger())

	rec := httptest.NewRecorder()
	h.HandleBulkCreate(rec, httptest.NewRequest(http.MethodPost, "/api/categories/bulk", strings.NewReader(`{"categories":[]}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCategoryMerge(t *testing.T) {
	storage := newTestStorage(t)
	h := NewCategoryHandler(storage, nil, arbor.NewLogger())
	ids := seedCategoryTree(t, h)

	cookingID := ids["t3"]
	bm := seedBookmark(t, storage, "https://seriouseats.com", "Recipes")
	require.NoError(t, storage.BookmarkStorage().SetCategory(context.Background(), bm.ID, &cookingID))

	body, _ := json.Marshal(map[string]int64{"sourceId": ids["t3"], "targetId": ids["t1"]})
	rec := httptest.NewRecorder()
	h.HandleMerge(rec, httptest.NewRequest(http.MethodPost, "/api/categories/merge", strings.NewReader(string(body))))

	require.Equal(t, http.StatusOK, rec.Code)
	var result models.MergeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.MergedBookmarks)
	assert.Contains(t, result.MergedKeywords, "recipe", "source keywords folded into the target")

	moved, err := storage.BookmarkStorage().GetByID(context.Background(), bm.ID)
	require.NoError(t, err)
	require.NotNil(t, moved.CategoryID)
	assert.Equal(t, ids["t1"], *moved.CategoryID)
}

func TestCategoryMergeRejectsSelf(t *testing.T) {
	h := NewCategoryHandler(newTestStorage(t), nil, arbor.NewLogger())
	ids := seedCategoryTree(t, h)

	body, _ := json.Marshal(map[string]int64{"sourceId": ids["t1"], "targetId": ids["t1"]})
	rec := httptest.NewRecorder()
	h.HandleMerge(rec, httptest.NewRequest(http.MethodPost, "/api/categories/merge", strings.NewReader(string(body))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCategoryMergeMissingCategory(t *testing.T) {
	h := NewCategoryHandler(newTestStorage(t), nil, arbor.NewLogger())
	seedCategoryTree(t, h)

	rec := httptest.NewRecorder()
	h.HandleMerge(rec, httptest.NewRequest(http.MethodPost, "/api/categories/merge", strings.NewReader(`{"sourceId":9998,"targetId":9999}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
