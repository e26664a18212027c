package assigner

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fury/internal/interfaces"
	"github.com/ternarybob/fury/internal/models"
)

type stubLLM struct {
	responses []string
	calls     int
	available bool
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, opts interfaces.GenerateOptions) (string, error) {
	if s.calls >= len(s.responses) {
		return "", fmt.Errorf("no more canned responses")
	}
	resp := s.responses[s.calls]
	s.calls++
	return resp, nil
}

func (s *stubLLM) Available() bool  { return s.available }
func (s *stubLLM) Provider() string { return "stub" }
func (s *stubLLM) Close() error     { return nil }

func testCategories() []*models.Category {
	return []*models.Category{
		{ID: 1, Name: "Technology", Slug: "technology"},
		{ID: 2, Name: "Cooking", Slug: "cooking"},
	}
}

func makeBookmarks(n int) []models.ParsedBookmark {
	bookmarks := make([]models.ParsedBookmark, n)
	for i := range bookmarks {
		bookmarks[i] = models.ParsedBookmark{
			URL:   fmt.Sprintf("https://example.com/%d", i),
			Title: fmt.Sprintf("Bookmark %d", i),
		}
	}
	return bookmarks
}

func TestAssignMapsPairs(t *testing.T) {
	llm := &stubLLM{available: true, responses: []string{"[[0,0],[1,1],[2,0]]"}}
	svc := NewService(llm, arbor.NewLogger())

	assignments, unassigned, err := svc.Assign(context.Background(), makeBookmarks(3), testCategories(), nil)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{0: "Technology", 1: "Cooking", 2: "Technology"}, assignments)
	assert.Empty(t, unassigned)
	assert.Equal(t, 1, llm.calls)
}

func TestAssignBatching(t *testing.T) {
	// 120 bookmarks -> 3 batches; each response assigns its whole batch
	responses := make([]string, 3)
	for b := 0; b < 3; b++ {
		pairs := "["
		start, end := b*batchSize, (b+1)*batchSize
		if end > 120 {
			end = 120
		}
		for j := start; j < end; j++ {
			if j > start {
				pairs += ","
			}
			pairs += fmt.Sprintf("[%d,0]", j)
		}
		responses[b] = pairs + "]"
	}
	llm := &stubLLM{available: true, responses: responses}
	svc := NewService(llm, arbor.NewLogger())

	var progressCalls []int
	progress := func(assigned, total int) {
		progressCalls = append(progressCalls, assigned)
		assert.Equal(t, 120, total)
	}

	assignments, unassigned, err := svc.Assign(context.Background(), makeBookmarks(120), testCategories(), progress)
	require.NoError(t, err)
	assert.Len(t, assignments, 120)
	assert.Empty(t, unassigned)
	assert.Equal(t, 3, llm.calls)
	assert.Equal(t, []int{50, 100, 120}, progressCalls)
}

func TestAssignTruncatedResponse(t *testing.T) {
	llm := &stubLLM{available: true, responses: []string{"[[0,0],[1,1],[2,"}}
	svc := NewService(llm, arbor.NewLogger())

	assignments, unassigned, err := svc.Assign(context.Background(), makeBookmarks(3), testCategories(), nil)
	require.NoError(t, err, "truncation is recovered, never surfaced")
	assert.Equal(t, map[int]string{0: "Technology", 1: "Cooking"}, assignments)
	assert.Equal(t, []int{2}, unassigned)
}

func TestAssignGarbageResponse(t *testing.T) {
	llm := &stubLLM{available: true, responses: []string{"cannot comply"}}
	svc := NewService(llm, arbor.NewLogger())

	assignments, unassigned, err := svc.Assign(context.Background(), makeBookmarks(2), testCategories(), nil)
	require.NoError(t, err)
	assert.Empty(t, assignments)
	assert.Equal(t, []int{0, 1}, unassigned)
}

func TestAssignUnknownCategoryIndexDropped(t *testing.T) {
	llm := &stubLLM{available: true, responses: []string{"[[0,0],[1,99]]"}}
	svc := NewService(llm, arbor.NewLogger())

	assignments, unassigned, err := svc.Assign(context.Background(), makeBookmarks(2), testCategories(), nil)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{0: "Technology"}, assignments)
	assert.Equal(t, []int{1}, unassigned)
}

func TestAssignWithoutProvider(t *testing.T) {
	svc := NewService(&stubLLM{available: false}, arbor.NewLogger())

	assignments, unassigned, err := svc.Assign(context.Background(), makeBookmarks(3), testCategories(), nil)
	require.NoError(t, err)
	assert.Empty(t, assignments)
	assert.Equal(t, []int{0, 1, 2}, unassigned, "everything falls through to keyword matching")
}

func TestAssignCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	llm := &stubLLM{available: true, responses: []string{"[[0,0]]"}}
	svc := NewService(llm, arbor.NewLogger())

	_, _, err := svc.Assign(ctx, makeBookmarks(3), testCategories(), nil)
	assert.ErrorIs(t, err, models.ErrCancelled)
}

func TestParsePairsLeadingProse(t *testing.T) {
	pairs, truncated := parsePairs("Here you go: [[0,1],[1,0]]")
	assert.False(t, truncated)
	assert.Equal(t, map[int]int{0: 1, 1: 0}, pairs)
}

func TestRepairTruncated(t *testing.T) {
	repaired, ok := repairTruncated("[[0,2],[1,0],[2")
	require.True(t, ok)
	assert.Equal(t, "[[0,2],[1,0]]", repaired)

	_, ok = repairTruncated("no array here")
	assert.False(t, ok)
}
