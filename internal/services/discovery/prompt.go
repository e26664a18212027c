package discovery

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ternarybob/fury/internal/common"
	"github.com/ternarybob/fury/internal/models"
)

const discoverySystemInstruction = "You are a bookmark organization expert. " +
	"You design concise, practical category hierarchies for personal bookmark collections. " +
	"Respond with strict JSON only, no prose outside the JSON object."

// buildDiscoveryPrompt renders the bookmark sample and aggregate
// statistics into the taxonomy prompt.
func buildDiscoveryPrompt(bookmarks []models.ParsedBookmark) string {
	sample := bookmarks
	if len(sample) > sampleLimit {
		sample = sample[:sampleLimit]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Design a category hierarchy for a collection of %d bookmarks.\n\n", len(bookmarks))

	b.WriteString("## Bookmark sample\n")
	for _, bm := range sample {
		host := common.URLHost(bm.URL)
		line := "- " + truncate(bm.Title, 120)
		if host != "" {
			line += " (" + host + ")"
		}
		if bm.SourceFolder != "" {
			line += " [" + bm.SourceFolder + "]"
		}
		b.WriteString(line + "\n")
	}

	if hosts := topHosts(bookmarks, 20); len(hosts) > 0 {
		b.WriteString("\n## Top domains\n")
		for _, h := range hosts {
			fmt.Fprintf(&b, "- %s: %d bookmarks\n", h.key, h.count)
		}
	}

	if folders := folderHistogram(bookmarks, 20); len(folders) > 0 {
		b.WriteString("\n## Existing folders\n")
		for _, f := range folders {
			fmt.Fprintf(&b, "- %s: %d bookmarks\n", f.key, f.count)
		}
	}

	b.WriteString(`
## Requirements
- Between 6 and 10 root categories.
- At most 4 levels deep; prefer 2.
- Every category: a short name, a one-sentence description, 3-5 lowercase keywords, parentName (null for roots), estimatedCount.
- Category names must be unique.

## Response format
Respond with exactly this JSON shape and nothing else:
{"categories":[{"name":"...","description":"...","keywords":["..."],"parentName":null,"estimatedCount":0}],"reasoning":"..."}
`)

	return b.String()
}

type freqEntry struct {
	key   string
	count int
}

// topHosts counts bookmark hosts and returns the most frequent, ties by
// name for determinism.
func topHosts(bookmarks []models.ParsedBookmark, limit int) []freqEntry {
	counts := make(map[string]int)
	for _, bm := range bookmarks {
		if host := common.URLHost(bm.URL); host != "" {
			counts[host]++
		}
	}
	return topEntries(counts, limit)
}

// folderHistogram counts source folder breadcrumbs.
func folderHistogram(bookmarks []models.ParsedBookmark, limit int) []freqEntry {
	counts := make(map[string]int)
	for _, bm := range bookmarks {
		if bm.SourceFolder != "" {
			counts[bm.SourceFolder]++
		}
	}
	return topEntries(counts, limit)
}

func topEntries(counts map[string]int, limit int) []freqEntry {
	entries := make([]freqEntry, 0, len(counts))
	for k, c := range counts {
		entries = append(entries, freqEntry{key: k, count: c})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].key < entries[j].key
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
