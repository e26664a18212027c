package importer

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fury/internal/common"
	"github.com/ternarybob/fury/internal/interfaces"
	"github.com/ternarybob/fury/internal/models"
	"github.com/ternarybob/fury/internal/services/classifier"
	"github.com/ternarybob/fury/internal/storage/sqlite"
	"github.com/ternarybob/fury/internal/taxonomy"
)

// collectSink records every emitted frame; workers emit concurrently.
type collectSink struct {
	mu     sync.Mutex
	events []models.ImportEvent
}

func (c *collectSink) Emit(event models.ImportEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *collectSink) byName(name string) []models.ImportEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.ImportEvent
	for _, e := range c.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

func (c *collectSink) last() models.ImportEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events[len(c.events)-1]
}

type stubFetcher struct {
	mu        sync.Mutex
	invalid   map[string]bool
	meta      map[string]*models.PageMetadata
	fetches   int
	refreshed map[string]bool
}

func (f *stubFetcher) Validate(ctx context.Context, rawURL string) bool {
	return !f.invalid[rawURL]
}

func (f *stubFetcher) Fetch(ctx context.Context, rawURL string, refresh bool) *models.PageMetadata {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if refresh {
		f.refreshed[rawURL] = true
	}
	return f.meta[rawURL]
}

type stubAssigner struct {
	assignments map[int]string
	called      bool
}

func (a *stubAssigner) Assign(ctx context.Context, bookmarks []models.ParsedBookmark, categories []*models.Category, progress interfaces.AssignProgress) (map[int]string, []int, error) {
	a.called = true
	if progress != nil {
		progress(len(a.assignments), len(bookmarks))
	}
	var unassigned []int
	for i := range bookmarks {
		if _, ok := a.assignments[i]; !ok {
			unassigned = append(unassigned, i)
		}
	}
	return a.assignments, unassigned, nil
}

type harness struct {
	service  interfaces.ImportService
	storage  interfaces.StorageManager
	fetcher  *stubFetcher
	assigner *stubAssigner
	sink     *collectSink
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	presets, err := taxonomy.LoadPresets("")
	require.NoError(t, err)
	storage, err := sqlite.NewManager(arbor.NewLogger(), &common.SQLiteConfig{
		Path: filepath.Join(t.TempDir(), "import_test.db"),
	}, presets)
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	tax, err := taxonomy.LoadTaxonomy("")
	require.NoError(t, err)

	config := &common.ImporterConfig{
		Concurrency:   2,
		PauseEvery:    5,
		PauseMin:      0,
		PauseJitter:   0,
		ProgressEvery: 10,
	}
	fetcher := &stubFetcher{invalid: map[string]bool{}, meta: map[string]*models.PageMetadata{}, refreshed: map[string]bool{}}
	assigner := &stubAssigner{}

	return &harness{
		service:  NewService(config, storage, fetcher, classifier.New(tax, arbor.NewLogger()), assigner, nil, arbor.NewLogger()),
		storage:  storage,
		fetcher:  fetcher,
		assigner: assigner,
		sink:     &collectSink{},
	}
}

const testArchive = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<DL><p>
    <DT><A HREF="https://github.com/golang/go" ADD_DATE="1700000000">Go on GitHub</A>
    <DT><A HREF="https://github.com/golang/go/">Go on GitHub, again</A>
    <DT><A HREF="https://example.com/pie">Apple pie recipe</A>
</DL><p>
`

func TestImportDefaultPath(t *testing.T) {
	h := newHarness(t)

	err := h.service.Import(context.Background(), testArchive, interfaces.ImportOptions{FileName: "bookmarks.html"}, h.sink)
	require.NoError(t, err)

	inits := h.sink.byName(models.EventInit)
	require.Len(t, inits, 1)
	init := inits[0].Data.(models.InitPayload)
	assert.Equal(t, 3, init.TotalInFile)
	assert.Equal(t, 2, init.UniqueBookmarks, "trailing slash collapses to the same canonical URL")
	assert.Equal(t, 1, init.DuplicatesInFile)

	last := h.sink.last()
	require.Equal(t, models.EventComplete, last.Name, "terminal event is last")
	complete := last.Data.(models.CompletePayload)
	assert.Equal(t, 2, complete.NewBookmarks)
	assert.Equal(t, 2, complete.SuccessfulBookmarks)
	assert.Zero(t, complete.FailedBookmarks)
	assert.NotZero(t, complete.ImportSessionID)

	assert.Len(t, h.sink.byName(models.EventProgress), 2, "one progress frame per unique bookmark")

	ctx := context.Background()
	stored, err := h.storage.BookmarkStorage().GetByURL(ctx, "https://github.com/golang/go")
	require.NoError(t, err)
	require.NotNil(t, stored.CategoryID, "every bookmark lands in a category")
	assert.Equal(t, "Web Development", stored.SuggestedCategory)

	sessions, err := h.storage.SessionStorage().List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	s := sessions[0]
	assert.Equal(t, "bookmarks.html", s.FileName)
	assert.Equal(t, 3, s.TotalParsed)
	assert.Equal(t, s.TotalParsed, s.Successful+s.Failed+s.Skipped)
}

func TestImportDefaultPathEnrichment(t *testing.T) {
	h := newHarness(t)
	h.fetcher.meta["https://github.com/golang/go"] = &models.PageMetadata{
		Title:           "golang/go",
		MetaDescription: "The Go programming language",
		OGImage:         "https://github.com/og.png",
		BodyText:        "Go is an open source programming language supported by Google",
	}

	err := h.service.Import(context.Background(), testArchive, interfaces.ImportOptions{}, h.sink)
	require.NoError(t, err)

	stored, err := h.storage.BookmarkStorage().GetByURL(context.Background(), "https://github.com/golang/go")
	require.NoError(t, err)
	assert.Equal(t, "golang/go", stored.MetaTitle)
	assert.Equal(t, "The Go programming language", stored.MetaDescription)
	assert.Equal(t, "https://github.com/og.png", stored.OGImage)
	assert.NotEmpty(t, stored.Keywords, "body text yields extracted keywords")
}

func TestImportSkipsInvalid(t *testing.T) {
	h := newHarness(t)
	h.fetcher.invalid["https://example.com/pie"] = true

	err := h.service.Import(context.Background(), testArchive, interfaces.ImportOptions{}, h.sink)
	require.NoError(t, err)

	skips := h.sink.byName(models.EventSkipped)
	require.Len(t, skips, 1)
	skip := skips[0].Data.(models.SkippedPayload)
	assert.Equal(t, "https://example.com/pie", skip.URL)
	assert.Equal(t, "Invalid URL", skip.Reason)

	complete := h.sink.last().Data.(models.CompletePayload)
	assert.Equal(t, 1, complete.SkippedBookmarks)
	assert.Equal(t, 1, complete.NewBookmarks)

	_, err = h.storage.BookmarkStorage().GetByURL(context.Background(), "https://example.com/pie")
	assert.ErrorIs(t, err, interfaces.ErrNotFound, "skipped bookmarks are not persisted")
}

func TestImportRefetchesStaleBookmarks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// An earlier import left this bookmark behind and the maintenance
	// sweep has since flagged its enrichment
	_, created, err := h.storage.BookmarkStorage().Upsert(ctx, &models.Bookmark{
		URL:   "https://github.com/golang/go",
		Title: "Go on GitHub",
		Stale: true,
	})
	require.NoError(t, err)
	require.True(t, created)

	err = h.service.Import(ctx, testArchive, interfaces.ImportOptions{}, h.sink)
	require.NoError(t, err)

	assert.True(t, h.fetcher.refreshed["https://github.com/golang/go"], "stale bookmark bypasses the metadata cache")
	assert.False(t, h.fetcher.refreshed["https://example.com/pie"], "fresh bookmarks keep using the cache")

	stored, err := h.storage.BookmarkStorage().GetByURL(ctx, "https://github.com/golang/go")
	require.NoError(t, err)
	assert.False(t, stored.Stale, "re-import clears the stale flag")
}

func TestImportMalformedArchive(t *testing.T) {
	h := newHarness(t)

	err := h.service.Import(context.Background(), "not a bookmark file", interfaces.ImportOptions{}, h.sink)
	require.ErrorIs(t, err, models.ErrMalformedInput)

	last := h.sink.last()
	assert.Equal(t, models.EventError, last.Name)

	sessions, err := h.storage.SessionStorage().List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, sessions, "a run that never parsed writes no session")
}

func TestImportCustomPath(t *testing.T) {
	h := newHarness(t)
	h.assigner.assignments = map[int]string{0: "Programming"}

	opts := interfaces.ImportOptions{
		FileName: "bookmarks.html",
		CustomCategories: []*models.DiscoveredCategory{
			{TempID: "t1", Name: "Programming", Slug: "programming", Level: 1, Children: []*models.DiscoveredCategory{
				{TempID: "t2", Name: "Go", Slug: "go", ParentTempID: "t1", Level: 2},
			}},
		},
	}
	err := h.service.Import(context.Background(), testArchive, opts, h.sink)
	require.NoError(t, err)

	assert.True(t, h.assigner.called)
	assert.Zero(t, h.fetcher.fetches, "fast path never fetches metadata")

	complete := h.sink.last().Data.(models.CompletePayload)
	assert.Equal(t, 2, complete.CustomCategoriesCreated)
	assert.Equal(t, 1, complete.AIAssignments)
	assert.Equal(t, 2, complete.NewBookmarks)

	ctx := context.Background()
	assigned, err := h.storage.BookmarkStorage().GetByURL(ctx, "https://github.com/golang/go")
	require.NoError(t, err)
	programming, err := h.storage.CategoryStorage().GetBySlug(ctx, "programming")
	require.NoError(t, err)
	require.NotNil(t, assigned.CategoryID)
	assert.Equal(t, programming.ID, *assigned.CategoryID)

	// The unassigned bookmark still lands somewhere
	residue, err := h.storage.BookmarkStorage().GetByURL(ctx, "https://example.com/pie")
	require.NoError(t, err)
	assert.NotNil(t, residue.CategoryID)
}

func TestImportCancelledStillWritesSession(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.service.Import(ctx, testArchive, interfaces.ImportOptions{FileName: "cancelled.html"}, h.sink)
	require.ErrorIs(t, err, models.ErrCancelled)

	last := h.sink.last()
	require.Equal(t, models.EventError, last.Name)
	assert.Equal(t, "cancelled", last.Data.(models.ErrorPayload).Message)

	sessions, err := h.storage.SessionStorage().List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1, "cancelled runs still record their session")
	assert.Equal(t, "cancelled.html", sessions[0].FileName)
	assert.Zero(t, sessions[0].Successful)
}

func TestImportLargeArchiveBatches(t *testing.T) {
	h := newHarness(t)

	var b []byte
	b = append(b, "<!DOCTYPE NETSCAPE-Bookmark-file-1>\n<DL><p>\n"...)
	for i := 0; i < 12; i++ {
		b = append(b, fmt.Sprintf("<DT><A HREF=\"https://example.com/page-%d\">Page %d</A>\n", i, i)...)
	}
	b = append(b, "</DL><p>\n"...)

	err := h.service.Import(context.Background(), string(b), interfaces.ImportOptions{}, h.sink)
	require.NoError(t, err)

	complete := h.sink.last().Data.(models.CompletePayload)
	assert.Equal(t, 12, complete.NewBookmarks)

	count, err := h.storage.BookmarkStorage().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, count)
}
