package discovery

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ternarybob/fury/internal/common"
	"github.com/ternarybob/fury/internal/models"
	"github.com/ternarybob/fury/internal/services/textproc"
)

const (
	minFolderCluster  = 3
	minDomainCluster  = 5
	minKeywordCluster = 5
	clusterKeywordCap = 15

	uncategorizedName = "Uncategorized"
)

// discoverClustering is the deterministic fallback: cluster by source
// folder, then by known-domain category, then by frequent keywords, with
// an Uncategorized bucket for the residue. Output depends only on the
// input.
func (s *Service) discoverClustering(bookmarks []models.ParsedBookmark) *models.DiscoveryResult {
	consumed := make([]bool, len(bookmarks))
	var clusters []cluster

	clusters = append(clusters, s.folderClusters(bookmarks, consumed)...)
	clusters = append(clusters, s.domainClusters(bookmarks, consumed)...)
	clusters = append(clusters, s.keywordClusters(bookmarks, consumed)...)

	// Residue bucket
	var residue []int
	for i, done := range consumed {
		if !done {
			residue = append(residue, i)
		}
	}
	if len(residue) > 0 {
		clusters = append(clusters, cluster{name: uncategorizedName, members: residue})
	}

	tree := make([]*models.DiscoveredCategory, 0, len(clusters))
	for i, cl := range clusters {
		tree = append(tree, &models.DiscoveredCategory{
			TempID:         fmt.Sprintf("cluster-%d", i+1),
			Name:           cl.name,
			Slug:           textproc.Slugify(cl.name),
			Description:    cl.description(len(cl.members)),
			Keywords:       cl.topKeywords(bookmarks),
			EstimatedCount: len(cl.members),
			Level:          1,
		})
	}

	s.logger.Info().
		Int("bookmarks", len(bookmarks)).
		Int("clusters", len(tree)).
		Msg("Clustering discovery completed")

	return &models.DiscoveryResult{
		Categories: tree,
		Reasoning:  fmt.Sprintf("Deterministic clustering over %d bookmarks: source folders, known domains, frequent keywords.", len(bookmarks)),
		Source:     "clustering",
	}
}

type cluster struct {
	name    string
	members []int // indices into the bookmark slice
}

func (c cluster) description(size int) string {
	if c.name == uncategorizedName {
		return fmt.Sprintf("%d bookmarks that did not fit any detected group", size)
	}
	return fmt.Sprintf("%d bookmarks grouped under %q", size, c.name)
}

// topKeywords extracts the most frequent semantic keywords across the
// cluster's members.
func (c cluster) topKeywords(bookmarks []models.ParsedBookmark) []string {
	counts := make(map[string]int)
	for _, idx := range c.members {
		bm := bookmarks[idx]
		for _, kw := range textproc.ExtractSemanticKeywords(bm.Title+" "+bm.Description, textproc.DefaultOptions()) {
			counts[kw.Word]++
		}
		for _, token := range textproc.ExtractURLTokens(bm.URL) {
			counts[token]++
		}
	}
	entries := topEntries(counts, clusterKeywordCap)
	words := make([]string, 0, len(entries))
	for _, e := range entries {
		words = append(words, e.key)
	}
	return words
}

// folderClusters groups by the leaf folder name, keeping groups of at
// least minFolderCluster.
func (s *Service) folderClusters(bookmarks []models.ParsedBookmark, consumed []bool) []cluster {
	groups := make(map[string][]int)
	for i, bm := range bookmarks {
		if consumed[i] || bm.SourceFolder == "" {
			continue
		}
		groups[leafFolder(bm.SourceFolder)] = append(groups[leafFolder(bm.SourceFolder)], i)
	}
	return takeClusters(groups, minFolderCluster, consumed)
}

// domainClusters groups unconsumed bookmarks via the known-domain table.
func (s *Service) domainClusters(bookmarks []models.ParsedBookmark, consumed []bool) []cluster {
	groups := make(map[string][]int)
	for i, bm := range bookmarks {
		if consumed[i] {
			continue
		}
		if category, ok := s.taxonomy.Domains[common.URLHost(bm.URL)]; ok {
			groups[category] = append(groups[category], i)
		}
	}
	return takeClusters(groups, minDomainCluster, consumed)
}

// keywordClusters groups the remainder by their most frequent extracted
// keyword. Each bookmark joins at most one keyword group.
func (s *Service) keywordClusters(bookmarks []models.ParsedBookmark, consumed []bool) []cluster {
	// Count keyword frequency over the unconsumed set first
	keywordsPer := make(map[int][]string)
	counts := make(map[string]int)
	for i, bm := range bookmarks {
		if consumed[i] {
			continue
		}
		kws := textproc.Words(textproc.ExtractSemanticKeywords(bm.Title+" "+bm.Description, textproc.DefaultOptions()))
		keywordsPer[i] = kws
		for _, kw := range kws {
			counts[kw]++
		}
	}

	// Frequent keywords claim members in descending frequency order
	frequent := topEntries(counts, len(counts))
	groups := make(map[string][]int)
	claimed := make(map[int]bool)
	for _, entry := range frequent {
		if entry.count < minKeywordCluster {
			break
		}
		for i, kws := range keywordsPer {
			if claimed[i] {
				continue
			}
			for _, kw := range kws {
				if kw == entry.key {
					groups[titleCase(entry.key)] = append(groups[titleCase(entry.key)], i)
					claimed[i] = true
					break
				}
			}
		}
	}

	return takeClusters(groups, minKeywordCluster, consumed)
}

// takeClusters keeps groups meeting the size floor, marks their members
// consumed and returns them sorted by name for determinism.
func takeClusters(groups map[string][]int, minSize int, consumed []bool) []cluster {
	names := make([]string, 0, len(groups))
	for name, members := range groups {
		if len(members) >= minSize {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	clusters := make([]cluster, 0, len(names))
	for _, name := range names {
		members := groups[name]
		sort.Ints(members)
		for _, idx := range members {
			consumed[idx] = true
		}
		clusters = append(clusters, cluster{name: name, members: members})
	}
	return clusters
}

// leafFolder returns the last segment of an "A / B / C" breadcrumb.
func leafFolder(breadcrumb string) string {
	parts := strings.Split(breadcrumb, " / ")
	return strings.TrimSpace(parts[len(parts)-1])
}

func titleCase(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + word[1:]
}
