package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fury/internal/interfaces"
	"github.com/ternarybob/fury/internal/models"
	"github.com/ternarybob/fury/internal/services/textproc"
	"github.com/ternarybob/fury/internal/taxonomy"
)

const (
	// maxDepth caps the category forest. Over-deep branches get their
	// grandchildren promoted instead of being rejected.
	maxDepth = 4

	// sampleLimit caps how many bookmarks go into the LLM prompt.
	sampleLimit = 200
)

// Service synthesizes a custom taxonomy from a bookmark set: LLM when a
// provider is available, deterministic clustering otherwise.
type Service struct {
	llm      interfaces.LLMService
	taxonomy *taxonomy.Taxonomy
	logger   arbor.ILogger
}

// NewService creates a taxonomy discovery service. The taxonomy supplies
// the domain map used by the clustering fallback.
func NewService(llm interfaces.LLMService, tax *taxonomy.Taxonomy, logger arbor.ILogger) interfaces.DiscoveryService {
	return &Service{
		llm:      llm,
		taxonomy: tax,
		logger:   logger,
	}
}

// llmCategory is the flat shape the prompt demands from the model.
type llmCategory struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Keywords       []string `json:"keywords"`
	ParentName     string   `json:"parentName"`
	EstimatedCount int      `json:"estimatedCount"`
}

type llmResponse struct {
	Categories []llmCategory `json:"categories"`
	Reasoning  string        `json:"reasoning"`
}

// Discover runs the LLM path when available, falling back to clustering.
// Never returns an empty result for a non-empty input.
func (s *Service) Discover(ctx context.Context, bookmarks []models.ParsedBookmark) (*models.DiscoveryResult, error) {
	if len(bookmarks) == 0 {
		return nil, fmt.Errorf("no bookmarks to discover categories from")
	}

	if s.llm != nil && s.llm.Available() {
		if result := s.discoverLLM(ctx, bookmarks); result != nil {
			return result, nil
		}
		s.logger.Warn().Msg("LLM discovery failed, using clustering fallback")
	} else {
		s.logger.Info().Msg("No LLM provider, using clustering fallback")
	}

	return s.discoverClustering(bookmarks), nil
}

// discoverLLM builds the prompt, calls the provider and parses the strict
// JSON contract. Any failure returns nil and the caller falls back.
func (s *Service) discoverLLM(ctx context.Context, bookmarks []models.ParsedBookmark) *models.DiscoveryResult {
	prompt := buildDiscoveryPrompt(bookmarks)

	raw, err := s.llm.Generate(ctx, prompt, interfaces.GenerateOptions{
		Temperature:       0.7,
		MaxTokens:         16384,
		SystemInstruction: discoverySystemInstruction,
		JSONResponse:      true,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Discovery generation failed")
		return nil
	}

	var parsed llmResponse
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil {
		s.logger.Warn().Err(err).Int("response_length", len(raw)).Msg("Discovery response did not parse")
		return nil
	}
	if len(parsed.Categories) == 0 {
		s.logger.Warn().Msg("Discovery response held no categories")
		return nil
	}

	tree := buildForest(parsed.Categories)
	flattenOverDeep(tree)
	assignLevels(tree, 1)

	if v := s.ValidateHierarchy(tree); !v.Valid {
		s.logger.Warn().Strs("errors", v.Errors).Msg("Discovered hierarchy failed validation")
		return nil
	}

	return &models.DiscoveryResult{
		Categories: tree,
		Reasoning:  parsed.Reasoning,
		Source:     "llm",
	}
}

// buildForest links the model's flat list into a tree via parentName.
// Unknown parents make the node a root rather than dropping it.
func buildForest(flat []llmCategory) []*models.DiscoveredCategory {
	nodes := make([]*models.DiscoveredCategory, 0, len(flat))
	byName := make(map[string]*models.DiscoveredCategory, len(flat))

	for i, cat := range flat {
		name := strings.TrimSpace(cat.Name)
		if name == "" {
			continue
		}
		node := &models.DiscoveredCategory{
			TempID:         fmt.Sprintf("cat-%d", i+1),
			Name:           name,
			Slug:           textproc.Slugify(name),
			Description:    strings.TrimSpace(cat.Description),
			Keywords:       cat.Keywords,
			EstimatedCount: cat.EstimatedCount,
		}
		nodes = append(nodes, node)
		if _, exists := byName[strings.ToLower(name)]; !exists {
			byName[strings.ToLower(name)] = node
		}
	}

	var roots []*models.DiscoveredCategory
	idx := 0
	for _, cat := range flat {
		if strings.TrimSpace(cat.Name) == "" {
			continue
		}
		node := nodes[idx]
		idx++

		parentName := strings.ToLower(strings.TrimSpace(cat.ParentName))
		if parentName == "" || parentName == "null" {
			roots = append(roots, node)
			continue
		}
		parent, ok := byName[parentName]
		if !ok || parent == node {
			roots = append(roots, node)
			continue
		}
		node.ParentTempID = parent.TempID
		parent.Children = append(parent.Children, node)
	}

	return roots
}

// flattenOverDeep promotes grandchildren of depth-cap nodes so no branch
// exceeds maxDepth: a node whose children sit at the cap absorbs their
// children as its own.
func flattenOverDeep(roots []*models.DiscoveredCategory) {
	var walk func(node *models.DiscoveredCategory, depth int)
	walk = func(node *models.DiscoveredCategory, depth int) {
		if depth == maxDepth-1 {
			// Children sit at the cap; grandchildren move up beside them.
			// Appended nodes are revisited by the same index loop, so
			// arbitrarily deep branches flatten in one pass.
			for i := 0; i < len(node.Children); i++ {
				child := node.Children[i]
				if len(child.Children) == 0 {
					continue
				}
				for _, gc := range child.Children {
					gc.ParentTempID = node.TempID
					node.Children = append(node.Children, gc)
				}
				child.Children = nil
			}
			return
		}
		for _, child := range node.Children {
			walk(child, depth+1)
		}
	}
	for _, root := range roots {
		walk(root, 1)
	}
}

// assignLevels writes 1-based depth onto every node.
func assignLevels(nodes []*models.DiscoveredCategory, level int) {
	for _, node := range nodes {
		node.Level = level
		assignLevels(node.Children, level+1)
	}
}

// ValidateHierarchy checks depth, parent linkage and global slug
// uniqueness.
func (s *Service) ValidateHierarchy(tree []*models.DiscoveredCategory) models.ValidationResult {
	result := models.ValidationResult{Valid: true, Errors: []string{}, Warnings: []string{}}

	if len(tree) == 0 {
		result.Valid = false
		result.Errors = append(result.Errors, "hierarchy is empty")
		return result
	}

	seen := make(map[string]string)
	var walk func(node *models.DiscoveredCategory, depth int)
	walk = func(node *models.DiscoveredCategory, depth int) {
		slug := node.Slug
		if slug == "" {
			slug = textproc.Slugify(node.Name)
		}
		if prior, dup := seen[slug]; dup {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("duplicate slug %q (%s and %s)", slug, prior, node.Name))
		} else {
			seen[slug] = node.Name
		}

		if depth > maxDepth {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("category %q exceeds depth %d", node.Name, maxDepth))
		}
		if len(node.Keywords) == 0 {
			result.Warnings = append(result.Warnings, fmt.Sprintf("category %q has no keywords", node.Name))
		}
		for _, child := range node.Children {
			walk(child, depth+1)
		}
	}
	for _, root := range tree {
		walk(root, 1)
	}

	rootCount := len(tree)
	if rootCount < 6 || rootCount > 10 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%d root categories (6-10 preferred)", rootCount))
	}

	return result
}

// Stats summarizes a forest for the analyze response.
func (s *Service) Stats(tree []*models.DiscoveredCategory) models.TaxonomyStats {
	stats := models.TaxonomyStats{}

	var walk func(node *models.DiscoveredCategory, depth int)
	walk = func(node *models.DiscoveredCategory, depth int) {
		stats.TotalCategories++
		stats.TotalKeywords += len(node.Keywords)
		stats.TotalEstimatedBookmarks += node.EstimatedCount
		if depth > stats.MaxDepth {
			stats.MaxDepth = depth
		}
		for len(stats.CategoriesPerLevel) < depth {
			stats.CategoriesPerLevel = append(stats.CategoriesPerLevel, 0)
		}
		stats.CategoriesPerLevel[depth-1]++
		for _, child := range node.Children {
			walk(child, depth+1)
		}
	}
	for _, root := range tree {
		walk(root, 1)
	}

	return stats
}

// stripFences removes markdown code fences the model sometimes wraps
// around JSON despite instructions.
func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
