package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fury/internal/taxonomy"
)

func testClassifier(t *testing.T, entries []taxonomy.Entry, domains map[string]string) *Classifier {
	t.Helper()
	if domains == nil {
		domains = map[string]string{}
	}
	return New(&taxonomy.Taxonomy{Entries: entries, Domains: domains}, arbor.NewLogger())
}

func TestClassifyKeywordScoring(t *testing.T) {
	c := testClassifier(t, []taxonomy.Entry{
		{Name: "Technology", Weight: 2, Keywords: []string{"golang", "compiler"}},
		{Name: "Cooking", Weight: 2, Keywords: []string{"recipe", "baking"}},
	}, nil)

	result := c.Classify(Input{
		URL:   "https://example.com/post",
		Title: "A golang compiler deep dive",
	})
	assert.Equal(t, "Technology", result.Category)
	assert.Equal(t, 4, result.Score, "two keyword hits at weight 2")
}

func TestClassifyURLPattern(t *testing.T) {
	c := testClassifier(t, []taxonomy.Entry{
		{Name: "Gaming", Weight: 1, URLPatterns: []string{`steam(powered|community)?\.com`}},
	}, nil)

	result := c.Classify(Input{URL: "https://store.steampowered.com/app/12345"})
	assert.Equal(t, "Gaming", result.Category)
	assert.Equal(t, 10, result.Score, "10 x weight, once per entry regardless of pattern count")
}

func TestClassifyDomainTable(t *testing.T) {
	c := testClassifier(t, []taxonomy.Entry{
		{Name: "Streaming & Video", Weight: 1, Keywords: []string{"video"}},
	}, map[string]string{"www.youtube.com": "Streaming & Video"})

	result := c.Classify(Input{URL: "https://www.youtube.com/watch?v=abc"})
	assert.Equal(t, "Streaming & Video", result.Category)
	assert.GreaterOrEqual(t, result.Score, 15)
}

func TestClassifyContentIndicators(t *testing.T) {
	c := testClassifier(t, []taxonomy.Entry{
		{Name: "Recipes & Cooking", Weight: 2, Keywords: []string{"cooking"},
			ContentIndicators: []string{"preheat the oven"}},
	}, nil)

	result := c.Classify(Input{
		URL:         "https://example.com",
		Title:       "Sourdough",
		Description: "First preheat the oven to 230C",
	})
	assert.Equal(t, "Recipes & Cooking", result.Category)
	assert.Equal(t, 4, result.Score, "indicator counts 2 x weight")
}

func TestClassifySemanticKeywordOverlap(t *testing.T) {
	c := testClassifier(t, []taxonomy.Entry{
		{Name: "Finance & Business", Weight: 2, Keywords: []string{"invest"}},
	}, nil)

	result := c.Classify(Input{
		URL:      "https://example.com",
		Keywords: []string{"investing"},
	})
	assert.Equal(t, "Finance & Business", result.Category)
	assert.Equal(t, 6, result.Score, "semantic overlap counts 3 x weight")
}

func TestClassifyExclusionZeroes(t *testing.T) {
	c := testClassifier(t, []taxonomy.Entry{
		{Name: "Home & Garden", Weight: 3, Keywords: []string{"bayer", "garden"},
			Exclusions: []string{"pharmaceutical"}},
		{Name: "Health", Weight: 2, Keywords: []string{"pharmaceutical", "drug"}},
	}, nil)

	result := c.Classify(Input{
		URL:   "https://bayer.com",
		Title: "Bayer pharmaceutical garden division drug pipeline",
	})
	assert.Equal(t, "Health", result.Category, "exclusion forces the stronger match to zero")
}

func TestClassifyWordBoundary(t *testing.T) {
	c := testClassifier(t, []taxonomy.Entry{
		{Name: "Artificial Intelligence", Weight: 4, Keywords: []string{"ai"}, RequireWordBoundary: true},
	}, nil)

	miss := c.Classify(Input{Title: "maintain your chair"})
	assert.Equal(t, OtherLabel, miss.Category, "'ai' inside other words does not count")

	hit := c.Classify(Input{Title: "an ai assistant"})
	assert.Equal(t, "Artificial Intelligence", hit.Category)
}

func TestClassifyBelowThresholdIsOther(t *testing.T) {
	c := testClassifier(t, []taxonomy.Entry{
		{Name: "Technology", Weight: 1, Keywords: []string{"software"}},
	}, nil)

	result := c.Classify(Input{Title: "software"})
	assert.Equal(t, OtherLabel, result.Category, "score 1 is under the threshold")
	assert.Equal(t, 1, result.Score)
}

func TestClassifyTieKeepsDeclarationOrder(t *testing.T) {
	c := testClassifier(t, []taxonomy.Entry{
		{Name: "First", Weight: 4, Keywords: []string{"shared"}},
		{Name: "Second", Weight: 4, Keywords: []string{"shared"}},
	}, nil)

	result := c.Classify(Input{Title: "shared term"})
	assert.Equal(t, "First", result.Category)
}

func TestClassifyWithEmbeddedTaxonomy(t *testing.T) {
	tax, err := taxonomy.LoadTaxonomy("")
	require.NoError(t, err)
	c := New(tax, arbor.NewLogger())

	result := c.Classify(Input{
		URL:   "https://github.com/golang/go",
		Title: "golang/go: The Go programming language",
	})
	assert.Equal(t, "Web Development", result.Category)
	assert.GreaterOrEqual(t, result.Confidence, 50)
}

func TestConfidenceClamped(t *testing.T) {
	assert.Equal(t, 100, confidence(40))
	assert.Equal(t, 20, confidence(4))
	assert.Equal(t, 0, confidence(0))
}
