package exporter

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fury/internal/common"
	"github.com/ternarybob/fury/internal/interfaces"
	"github.com/ternarybob/fury/internal/models"
	"github.com/ternarybob/fury/internal/storage/sqlite"
	"github.com/ternarybob/fury/internal/taxonomy"
)

type fixture struct {
	storage  interfaces.StorageManager
	exporter interfaces.ExportService
	tech     *models.Category
	golang   *models.Category
	cooking  *models.Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	presets, err := taxonomy.LoadPresets("")
	require.NoError(t, err)
	storage, err := sqlite.NewManager(arbor.NewLogger(), &common.SQLiteConfig{
		Path: filepath.Join(t.TempDir(), "export_test.db"),
	}, presets)
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	ctx := context.Background()
	result, err := storage.CategoryStorage().CreateBulk(ctx, []*models.DiscoveredCategory{
		{TempID: "tech", Name: "Tech", Children: []*models.DiscoveredCategory{
			{TempID: "golang", Name: "Golang"},
		}},
		{TempID: "cooking", Name: "Cooking"},
		{TempID: "empty", Name: "Empty Corner"},
	}, false)
	require.NoError(t, err)

	f := &fixture{storage: storage, exporter: NewService(storage, arbor.NewLogger())}
	f.tech, err = storage.CategoryStorage().GetByID(ctx, result.CategoryMap["tech"])
	require.NoError(t, err)
	f.golang, err = storage.CategoryStorage().GetByID(ctx, result.CategoryMap["golang"])
	require.NoError(t, err)
	f.cooking, err = storage.CategoryStorage().GetByID(ctx, result.CategoryMap["cooking"])
	require.NoError(t, err)

	seed := []*models.Bookmark{
		{URL: "https://go.dev", Title: "Go", CategoryID: &f.golang.ID},
		{URL: "https://example.com/pie", Title: "Pie & Cake", CategoryID: &f.cooking.ID},
		{URL: "https://example.com/loose", Title: "Loose End"},
	}
	for _, bm := range seed {
		_, _, err := storage.BookmarkStorage().Upsert(ctx, bm)
		require.NoError(t, err)
	}
	return f
}

func TestExportHTML(t *testing.T) {
	f := newFixture(t)

	out, err := f.exporter.ExportHTML(context.Background(), nil)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE NETSCAPE-Bookmark-file-1>"))
	assert.Contains(t, out, "<DT><H3")
	assert.Contains(t, out, ">Tech</H3>")
	assert.Contains(t, out, ">Golang</H3>")
	assert.Contains(t, out, `HREF="https://go.dev"`)
	assert.Contains(t, out, "Pie &amp; Cake", "titles are html-escaped")
	assert.Contains(t, out, "Loose End", "uncategorized bookmarks at top level")
	assert.NotContains(t, out, "Empty Corner", "bookmark-less categories are dropped")
	assert.Contains(t, out, "ADD_DATE=")

	// Nesting: Golang's DL sits inside Tech's
	techIdx := strings.Index(out, ">Tech</H3>")
	golangIdx := strings.Index(out, ">Golang</H3>")
	assert.Greater(t, golangIdx, techIdx)
}

func TestExportHTMLFiltered(t *testing.T) {
	f := newFixture(t)

	out, err := f.exporter.ExportHTML(context.Background(), &f.golang.ID)
	require.NoError(t, err)

	assert.Contains(t, out, ">Golang</H3>")
	assert.Contains(t, out, ">Tech</H3>", "ancestors frame the subtree")
	assert.NotContains(t, out, ">Cooking</H3>")
	assert.NotContains(t, out, "Loose End", "no top-level orphans in a filtered export")
}

func TestExportJSON(t *testing.T) {
	f := newFixture(t)

	data, err := f.exporter.ExportJSON(context.Background(), nil)
	require.NoError(t, err)

	var export jsonExport
	require.NoError(t, json.Unmarshal(data, &export))

	bar := export.Roots["bookmark_bar"]
	require.NotNil(t, bar)
	require.Len(t, bar.Children, 1)
	assert.Equal(t, "Loose End", bar.Children[0].Name)
	assert.Equal(t, "url", bar.Children[0].Type)

	other := export.Roots["other"]
	require.NotNil(t, other)
	require.Len(t, other.Children, 2, "Tech and Cooking, not Empty Corner")

	var tech *jsonNode
	for _, child := range other.Children {
		if child.Name == "Tech" {
			tech = child
		}
	}
	require.NotNil(t, tech)
	require.Len(t, tech.Children, 1)
	assert.Equal(t, "Golang", tech.Children[0].Name)
	require.Len(t, tech.Children[0].Children, 1)
	assert.Equal(t, "https://go.dev", tech.Children[0].Children[0].URL)
}

func TestExportJSONFiltered(t *testing.T) {
	f := newFixture(t)

	data, err := f.exporter.ExportJSON(context.Background(), &f.cooking.ID)
	require.NoError(t, err)

	var export jsonExport
	require.NoError(t, json.Unmarshal(data, &export))

	assert.Empty(t, export.Roots["bookmark_bar"].Children)
	other := export.Roots["other"]
	require.Len(t, other.Children, 1)
	assert.Equal(t, "Cooking", other.Children[0].Name)
}

func TestExportEmptyStore(t *testing.T) {
	presets, err := taxonomy.LoadPresets("")
	require.NoError(t, err)
	storage, err := sqlite.NewManager(arbor.NewLogger(), &common.SQLiteConfig{
		Path: filepath.Join(t.TempDir(), "empty_test.db"),
	}, presets)
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	svc := NewService(storage, arbor.NewLogger())
	out, err := svc.ExportHTML(context.Background(), nil)
	require.NoError(t, err)
	assert.Contains(t, out, "<!DOCTYPE NETSCAPE-Bookmark-file-1>")
	assert.NotContains(t, out, "<DT>")
}
