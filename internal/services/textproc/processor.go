// Package textproc turns bookmark titles, descriptions and page text
// into scored semantic keywords for the rule classifier and the
// clustering fallback. All tables are process-wide read-only data.
package textproc

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	htmlEntityPattern = regexp.MustCompile(`&#?[a-zA-Z0-9]+;`)
	urlPattern        = regexp.MustCompile(`https?://\S+|www\.\S+`)
	emailPattern      = regexp.MustCompile(`\S+@\S+\.\S+`)
	camelPattern      = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	nonWordPattern    = regexp.MustCompile(`[^a-z0-9' ]+`)
	spacePattern      = regexp.MustCompile(`\s+`)

	// NFD + strip combining marks + NFC folds accented characters to ASCII
	deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Keyword is one extracted term with its relevance score.
type Keyword struct {
	Word  string
	Score int
}

// Options controls keyword extraction.
type Options struct {
	MinWordLength    int  // Drop tokens shorter than this (default 2)
	MaxKeywords      int  // Return at most this many keywords (default 15)
	IncludeCompounds bool // Keep curated two-word phrases whole
}

// DefaultOptions returns the extraction defaults.
func DefaultOptions() Options {
	return Options{
		MinWordLength:    2,
		MaxKeywords:      15,
		IncludeCompounds: true,
	}
}

// Clean normalizes text for matching: fold Unicode to ASCII, strip HTML
// entities, remove URLs and email-shaped runs, split CamelCase and
// snake_case/kebab-case identifiers, lowercase, collapse whitespace.
func Clean(text string) string {
	if text == "" {
		return ""
	}

	t, _, err := transform.String(deaccent, text)
	if err != nil {
		t = text
	}

	t = htmlEntityPattern.ReplaceAllString(t, " ")
	t = urlPattern.ReplaceAllString(t, " ")
	t = emailPattern.ReplaceAllString(t, " ")

	// Split identifier-style words before lowercasing
	t = camelPattern.ReplaceAllString(t, "$1 $2")
	t = strings.NewReplacer("_", " ", "-", " ", "/", " ").Replace(t)

	t = strings.ToLower(t)
	t = nonWordPattern.ReplaceAllString(t, " ")
	t = spacePattern.ReplaceAllString(t, " ")

	return strings.TrimSpace(t)
}

// ExtractSemanticKeywords tokenizes the cleaned text and returns the top
// keywords by score. Curated compound terms found in the text score 100,
// bigrams matching the compound list score 50, single words score by
// frequency with domain terms counted double.
func ExtractSemanticKeywords(text string, opts Options) []Keyword {
	if opts.MinWordLength <= 0 {
		opts.MinWordLength = 2
	}
	if opts.MaxKeywords <= 0 {
		opts.MaxKeywords = 15
	}

	cleaned := Clean(text)
	if cleaned == "" {
		return nil
	}

	scores := map[string]int{}

	if opts.IncludeCompounds {
		// Whole compound phrases present in the cleaned text
		for _, phrase := range compoundTerms {
			if strings.Contains(cleaned, phrase) {
				scores[phrase] = 100
			}
		}
	}

	tokens := strings.Fields(cleaned)

	if opts.IncludeCompounds {
		// Adjacent token pairs that form a known compound (stop-word
		// removal below may have created or kept the adjacency)
		for i := 0; i+1 < len(tokens); i++ {
			bigram := tokens[i] + " " + tokens[i+1]
			if compoundSet[bigram] {
				if _, seen := scores[bigram]; !seen {
					scores[bigram] = 50
				}
			}
		}
	}

	for _, tok := range tokens {
		tok = strings.Trim(tok, "'")
		if len(tok) < opts.MinWordLength {
			continue
		}
		if isNumeric(tok) {
			continue
		}
		if stopWords[tok] {
			continue
		}
		weight := 1
		if domainTerms[tok] {
			weight = 2
		}
		scores[tok] += weight
	}

	keywords := make([]Keyword, 0, len(scores))
	for word, score := range scores {
		keywords = append(keywords, Keyword{Word: word, Score: score})
	}

	// Highest score first, alphabetical within a score for determinism
	sort.Slice(keywords, func(i, j int) bool {
		if keywords[i].Score != keywords[j].Score {
			return keywords[i].Score > keywords[j].Score
		}
		return keywords[i].Word < keywords[j].Word
	})

	if len(keywords) > opts.MaxKeywords {
		keywords = keywords[:opts.MaxKeywords]
	}
	return keywords
}

// Words returns just the keyword texts in score order.
func Words(keywords []Keyword) []string {
	out := make([]string, len(keywords))
	for i, k := range keywords {
		out[i] = k.Word
	}
	return out
}

// ExtractURLTokens splits a URL's host and path into matchable tokens.
// TLDs, "www" and single characters are dropped.
func ExtractURLTokens(rawURL string) []string {
	cleaned := strings.TrimSpace(rawURL)
	cleaned = strings.TrimPrefix(cleaned, "https://")
	cleaned = strings.TrimPrefix(cleaned, "http://")

	// Cut query and fragment, they rarely carry words
	if i := strings.IndexAny(cleaned, "?#"); i >= 0 {
		cleaned = cleaned[:i]
	}

	var tokens []string
	seen := map[string]bool{}
	for _, part := range strings.FieldsFunc(cleaned, func(r rune) bool {
		return r == '/' || r == '.' || r == '-' || r == '_' || r == ':'
	}) {
		tok := strings.ToLower(part)
		if len(tok) < 2 || tok == "www" || urlNoiseTokens[tok] || isNumeric(tok) {
			continue
		}
		if !seen[tok] {
			seen[tok] = true
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// DomainHints matches host+path against a fixed pattern table and
// returns every tag that matches.
func DomainHints(rawURL string) []string {
	target := strings.ToLower(strings.TrimSpace(rawURL))
	if target == "" {
		return nil
	}

	var tags []string
	seen := map[string]bool{}
	for _, hint := range domainHints {
		if hint.pattern.MatchString(target) && !seen[hint.tag] {
			seen[hint.tag] = true
			tags = append(tags, hint.tag)
		}
	}
	return tags
}

// Slugify converts a category name to its URL-safe identity form.
// "Web Development" -> "web-development", "News & Media" -> "news-media".
func Slugify(name string) string {
	folded, _, err := transform.String(deaccent, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
