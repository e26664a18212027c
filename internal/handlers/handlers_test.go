package handlers

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fury/internal/common"
	"github.com/ternarybob/fury/internal/interfaces"
	"github.com/ternarybob/fury/internal/models"
	"github.com/ternarybob/fury/internal/storage/sqlite"
	"github.com/ternarybob/fury/internal/taxonomy"
)

func newTestStorage(t *testing.T) interfaces.StorageManager {
	t.Helper()
	presets, err := taxonomy.LoadPresets("")
	require.NoError(t, err)
	storage, err := sqlite.NewManager(arbor.NewLogger(), &common.SQLiteConfig{
		Path: filepath.Join(t.TempDir(), "handlers_test.db"),
	}, presets)
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })
	return storage
}

func seedBookmark(t *testing.T, storage interfaces.StorageManager, url, title string) *models.Bookmark {
	t.Helper()
	stored, _, err := storage.BookmarkStorage().Upsert(context.Background(), &models.Bookmark{
		URL:   url,
		Title: title,
	})
	require.NoError(t, err)
	return stored
}

// stubLLM is an always-unavailable LLM for status tests.
type stubLLM struct{}

func (s *stubLLM) Generate(ctx context.Context, prompt string, opts interfaces.GenerateOptions) (string, error) {
	return "", models.ErrLLMUnavailable
}
func (s *stubLLM) Available() bool  { return false }
func (s *stubLLM) Provider() string { return "none" }
func (s *stubLLM) Close() error     { return nil }
