package textproc

import (
	_ "embed"
	"strings"
)

//go:embed stopwords.txt
var stopWordsRaw string

// stopWords is the ~700-entry set stripped during keyword extraction.
// Lines starting with # are section comments.
var stopWords = func() map[string]bool {
	m := make(map[string]bool, 768)
	for _, line := range strings.Split(stopWordsRaw, "\n") {
		word := strings.TrimSpace(line)
		if word == "" || strings.HasPrefix(word, "#") {
			continue
		}
		m[strings.ToLower(word)] = true
	}
	return m
}()
