package classifier

import (
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fury/internal/common"
	"github.com/ternarybob/fury/internal/services/textproc"
	"github.com/ternarybob/fury/internal/taxonomy"
)

const (
	// OtherLabel is the sentinel returned when no category clears the
	// threshold. The caller maps it to the real catch-all category.
	OtherLabel = "Other"

	// defaultThreshold is the minimum winning score.
	defaultThreshold = 4
)

// Input is everything known about a bookmark at classification time.
// Keywords are the pre-extracted semantic keywords.
type Input struct {
	URL         string
	Title       string
	Description string
	Keywords    []string
}

// Result is the winning category with its score. Confidence is an
// advisory 0-100 mapping of the score.
type Result struct {
	Category   string
	Score      int
	Confidence int
}

// Classifier scores bookmarks against the weighted taxonomy table.
// Stateless after construction, safe for concurrent use.
type Classifier struct {
	taxonomy  *taxonomy.Taxonomy
	patterns  [][]*regexp.Regexp // per entry, compiled url_patterns
	threshold int
	logger    arbor.ILogger
}

// New compiles the taxonomy's URL patterns and returns a classifier.
// Invalid patterns are skipped rather than failing the whole table.
func New(tax *taxonomy.Taxonomy, logger arbor.ILogger) *Classifier {
	patterns := make([][]*regexp.Regexp, len(tax.Entries))
	for i, entry := range tax.Entries {
		for _, raw := range entry.URLPatterns {
			re, err := regexp.Compile("(?i)" + raw)
			if err != nil {
				logger.Warn().Err(err).Str("entry", entry.Name).Str("pattern", raw).Msg("Skipping invalid URL pattern")
				continue
			}
			patterns[i] = append(patterns[i], re)
		}
	}

	return &Classifier{
		taxonomy:  tax,
		patterns:  patterns,
		threshold: defaultThreshold,
		logger:    logger,
	}
}

// Classify scores every taxonomy entry and returns the winner, or the
// Other sentinel when nothing clears the threshold. Ties keep the
// earlier entry in declaration order.
func (c *Classifier) Classify(in Input) Result {
	combined := c.combinedText(in)
	host := common.URLHost(in.URL)
	domainCategory := c.taxonomy.Domains[host]

	best := Result{Category: OtherLabel}
	for i, entry := range c.taxonomy.Entries {
		score := c.scoreEntry(i, entry, in, combined, domainCategory)
		if score > best.Score {
			best = Result{Category: entry.Name, Score: score}
		}
	}

	if best.Score < c.threshold {
		best.Category = OtherLabel
	}
	best.Confidence = confidence(best.Score)
	return best
}

func (c *Classifier) scoreEntry(idx int, entry taxonomy.Entry, in Input, combined, domainCategory string) int {
	// Hard exclusion short-circuits everything else
	for _, excl := range entry.Exclusions {
		if strings.Contains(combined, strings.ToLower(excl)) {
			return 0
		}
	}

	score := 0

	for _, re := range c.patterns[idx] {
		if re.MatchString(in.URL) {
			score += 10 * entry.Weight
			break
		}
	}

	if domainCategory == entry.Name {
		score += 15
	}

	for _, kw := range entry.Keywords {
		if matchTerm(combined, strings.ToLower(kw), entry.RequireWordBoundary) {
			score += entry.Weight
		}
	}

	for _, indicator := range entry.ContentIndicators {
		if strings.Contains(combined, strings.ToLower(indicator)) {
			score += 2 * entry.Weight
		}
	}

	// Pre-extracted semantic keywords carry more signal than raw text
	for _, semantic := range in.Keywords {
		s := strings.ToLower(semantic)
		if overlapsAny(s, entry.Keywords) {
			score += 3 * entry.Weight
		}
		if overlapsAny(s, entry.ContentIndicators) {
			score += 2 * entry.Weight
		}
	}

	return score
}

// combinedText merges title, description and URL tokens into one
// lowercased haystack.
func (c *Classifier) combinedText(in Input) string {
	parts := []string{textproc.Clean(in.Title + " " + in.Description)}
	if tokens := textproc.ExtractURLTokens(in.URL); len(tokens) > 0 {
		parts = append(parts, strings.Join(tokens, " "))
	}
	return strings.Join(parts, " ")
}

// matchTerm checks a term as a substring, or as a whole word when the
// entry demands word boundaries.
func matchTerm(haystack, term string, wordBoundary bool) bool {
	if !wordBoundary {
		return strings.Contains(haystack, term)
	}
	idx := 0
	for {
		pos := strings.Index(haystack[idx:], term)
		if pos < 0 {
			return false
		}
		start := idx + pos
		end := start + len(term)
		beforeOK := start == 0 || !isWordChar(haystack[start-1])
		afterOK := end == len(haystack) || !isWordChar(haystack[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '\''
}

// overlapsAny reports whether the semantic keyword and any term contain
// one another.
func overlapsAny(semantic string, terms []string) bool {
	for _, term := range terms {
		t := strings.ToLower(term)
		if strings.Contains(semantic, t) || strings.Contains(t, semantic) {
			return true
		}
	}
	return false
}

// confidence maps a raw score onto the advisory 0-100 scale.
func confidence(score int) int {
	c := score * 5
	if c > 100 {
		c = 100
	}
	return c
}
