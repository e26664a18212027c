package textproc

import "regexp"

// compoundTerms are curated two-word phrases kept whole during
// extraction. Order does not matter; compoundSet mirrors it for bigram
// lookups.
var compoundTerms = []string{
	"machine learning",
	"artificial intelligence",
	"deep learning",
	"neural network",
	"natural language",
	"data science",
	"computer science",
	"web development",
	"software engineering",
	"open source",
	"user experience",
	"user interface",
	"cloud computing",
	"operating system",
	"search engine",
	"social media",
	"real estate",
	"climate change",
	"mental health",
	"public health",
	"clinical trial",
	"drug development",
	"home improvement",
	"interior design",
	"graphic design",
	"video game",
	"video games",
	"board game",
	"stock market",
	"personal finance",
	"supply chain",
	"remote work",
	"project management",
	"digital marketing",
	"meal prep",
	"road trip",
	"travel guide",
	"national park",
	"science fiction",
	"true crime",
}

var compoundSet = func() map[string]bool {
	m := make(map[string]bool, len(compoundTerms))
	for _, t := range compoundTerms {
		m[t] = true
	}
	return m
}()

// domainTerms double a word's frequency score. These are words that
// carry categorization signal on their own.
var domainTerms = map[string]bool{
	"programming":    true,
	"software":       true,
	"developer":      true,
	"api":            true,
	"database":       true,
	"javascript":     true,
	"python":         true,
	"golang":         true,
	"tutorial":       true,
	"documentation":  true,
	"recipe":         true,
	"cooking":        true,
	"baking":         true,
	"investing":      true,
	"cryptocurrency": true,
	"stocks":         true,
	"fitness":        true,
	"nutrition":      true,
	"medical":        true,
	"pharmaceutical": true,
	"photography":    true,
	"travel":         true,
	"music":          true,
	"design":         true,
	"research":       true,
	"science":        true,
	"gaming":         true,
	"streaming":      true,
	"podcast":        true,
	"gardening":      true,
}

// urlNoiseTokens are host/path fragments with no categorization value.
var urlNoiseTokens = map[string]bool{
	"com": true, "org": true, "net": true, "edu": true, "gov": true,
	"io": true, "co": true, "uk": true, "de": true, "fr": true,
	"html": true, "htm": true, "php": true, "asp": true, "aspx": true,
	"index": true, "default": true, "page": true, "pages": true,
	"article": true, "articles": true, "post": true, "posts": true,
	"view": true, "item": true, "id": true,
}

type domainHint struct {
	pattern *regexp.Regexp
	tag     string
}

// domainHints maps host+path patterns to broad tags. A URL can match
// several.
var domainHints = []domainHint{
	{regexp.MustCompile(`github\.com|gitlab\.com|bitbucket\.org|stackoverflow\.com|developer\.`), "development"},
	{regexp.MustCompile(`news\.|bbc\.|cnn\.|reuters\.|nytimes\.com|theguardian\.com`), "news"},
	{regexp.MustCompile(`recipe|allrecipes\.com|seriouseats\.com|food\.`), "food"},
	{regexp.MustCompile(`youtube\.com|netflix\.com|twitch\.tv|vimeo\.com`), "video"},
	{regexp.MustCompile(`amazon\.|ebay\.|etsy\.com|shop\.`), "shopping"},
	{regexp.MustCompile(`\.edu|coursera\.org|udemy\.com|khanacademy\.org`), "education"},
	{regexp.MustCompile(`arxiv\.org|nature\.com|sciencedirect\.com`), "science"},
	{regexp.MustCompile(`booking\.com|airbnb\.com|tripadvisor\.com|expedia\.`), "travel"},
	{regexp.MustCompile(`spotify\.com|soundcloud\.com|bandcamp\.com`), "music"},
	{regexp.MustCompile(`twitter\.com|x\.com|facebook\.com|instagram\.com|reddit\.com|linkedin\.com`), "social"},
	{regexp.MustCompile(`bloomberg\.com|finance\.|investing\.`), "finance"},
	{regexp.MustCompile(`steampowered\.com|itch\.io|ign\.com`), "gaming"},
}
