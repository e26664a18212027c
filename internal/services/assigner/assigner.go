package assigner

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fury/internal/common"
	"github.com/ternarybob/fury/internal/interfaces"
	"github.com/ternarybob/fury/internal/models"
)

const (
	// batchSize is how many bookmarks go into one assignment call.
	batchSize = 50

	// interCallGap spaces consecutive LLM calls.
	interCallGap = 100 * time.Millisecond
)

// Service maps bookmarks onto a known taxonomy in LLM batches.
type Service struct {
	llm    interfaces.LLMService
	logger arbor.ILogger
}

// NewService creates a batch assigner.
func NewService(llm interfaces.LLMService, logger arbor.ILogger) interfaces.AssignerService {
	return &Service{
		llm:    llm,
		logger: logger,
	}
}

// Assign returns bookmarkIndex -> categoryName for every index the LLM
// resolved, plus the indices left for the keyword fallback. With no
// provider every index is unassigned.
func (s *Service) Assign(ctx context.Context, bookmarks []models.ParsedBookmark, categories []*models.Category, progress interfaces.AssignProgress) (map[int]string, []int, error) {
	assignments := make(map[int]string)
	if len(bookmarks) == 0 {
		return assignments, nil, nil
	}

	if s.llm == nil || !s.llm.Available() || len(categories) == 0 {
		return assignments, allIndices(len(bookmarks)), nil
	}

	categoryList := renderCategories(categories)
	nameByIndex := make(map[int]string, len(categories))
	for i, cat := range categories {
		nameByIndex[i] = cat.Name
	}

	for start := 0; start < len(bookmarks); start += batchSize {
		if err := ctx.Err(); err != nil {
			return assignments, unassignedIndices(assignments, len(bookmarks)), models.ErrCancelled
		}
		if start > 0 {
			time.Sleep(interCallGap)
		}

		end := start + batchSize
		if end > len(bookmarks) {
			end = len(bookmarks)
		}

		pairs := s.assignBatch(ctx, bookmarks[start:end], start, categoryList)
		for j, i := range pairs {
			if name, ok := nameByIndex[i]; ok {
				assignments[j] = name
			}
		}

		if progress != nil {
			progress(len(assignments), len(bookmarks))
		}
	}

	return assignments, unassignedIndices(assignments, len(bookmarks)), nil
}

// assignBatch runs one LLM call and returns bookmarkIndex -> categoryIndex.
// Failures return an empty map; those bookmarks land in unassigned.
func (s *Service) assignBatch(ctx context.Context, batch []models.ParsedBookmark, offset int, categoryList string) map[int]int {
	prompt := buildAssignPrompt(batch, offset, categoryList)

	raw, err := s.llm.Generate(ctx, prompt, interfaces.GenerateOptions{
		Temperature:  0.2,
		MaxTokens:    8192,
		JSONResponse: true,
	})
	if err != nil {
		s.logger.Warn().Err(err).Int("offset", offset).Int("batch_size", len(batch)).Msg("Assignment batch failed")
		return nil
	}

	pairs, truncated := parsePairs(raw)
	if truncated {
		s.logger.Warn().Int("offset", offset).Int("recovered", len(pairs)).Msg("Assignment response truncated, kept complete pairs")
	}
	return pairs
}

// buildAssignPrompt renders one batch. Bookmark indices are global so the
// response maps straight back onto the input slice.
func buildAssignPrompt(batch []models.ParsedBookmark, offset int, categoryList string) string {
	var b strings.Builder
	b.WriteString("Assign each bookmark to the best category.\n\n## Categories (index: name)\n")
	b.WriteString(categoryList)

	b.WriteString("\n## Bookmarks (index: title | host)\n")
	for i, bm := range batch {
		host := common.URLHost(bm.URL)
		fmt.Fprintf(&b, "%d: %s | %s\n", offset+i, truncate(bm.Title, 100), host)
	}

	b.WriteString("\nRespond with ONLY a compact JSON array of [bookmarkIndex, categoryIndex] pairs, " +
		"one pair per bookmark, nothing else. Example: [[0,2],[1,0]]")
	return b.String()
}

// renderCategories flattens the taxonomy to an indexed list.
func renderCategories(categories []*models.Category) string {
	var b strings.Builder
	for i, cat := range categories {
		fmt.Fprintf(&b, "%d: %s\n", i, cat.Name)
	}
	return b.String()
}

// parsePairs decodes the [[j,i],...] array, tolerating truncation by
// trimming to the last complete inner pair.
func parsePairs(raw string) (map[int]int, bool) {
	text := strings.TrimSpace(raw)
	if idx := strings.Index(text, "["); idx > 0 {
		text = text[idx:]
	}

	var pairs [][]int
	truncated := false
	if err := json.Unmarshal([]byte(text), &pairs); err != nil {
		repaired, ok := repairTruncated(text)
		if !ok {
			return nil, false
		}
		if err := json.Unmarshal([]byte(repaired), &pairs); err != nil {
			return nil, false
		}
		truncated = true
	}

	result := make(map[int]int, len(pairs))
	for _, pair := range pairs {
		if len(pair) == 2 {
			result[pair[0]] = pair[1]
		}
	}
	return result, truncated
}

// repairTruncated trims a cut-off array to its last complete inner pair
// and closes it.
func repairTruncated(text string) (string, bool) {
	last := strings.LastIndex(text, "]")
	if last < 0 {
		return "", false
	}
	trimmed := strings.TrimRight(text[:last+1], ", \n\t")
	if !strings.HasPrefix(trimmed, "[") {
		return "", false
	}
	return trimmed + "]", true
}

func allIndices(n int) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return indices
}

func unassignedIndices(assignments map[int]string, n int) []int {
	var unassigned []int
	for i := 0; i < n; i++ {
		if _, ok := assignments[i]; !ok {
			unassigned = append(unassigned, i)
		}
	}
	sort.Ints(unassigned)
	return unassigned
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
