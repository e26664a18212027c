package models

import "time"

// Category is a node in the persisted category forest. Slug is the unique
// identity; the parent pointer forms a forest of depth <= 4.
type Category struct {
	ID          int64     `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ParentID    *int64    `json:"parent_id,omitempty"`
	Keywords    []string  `json:"keywords,omitempty"` // JSON-encoded in storage
	CreatedAt   time.Time `json:"created_at"`
}

// CategoryNode is a category with its resolved children, used by the read
// API and the exporter.
type CategoryNode struct {
	Category
	BookmarkCount int             `json:"bookmark_count"`
	Children      []*CategoryNode `json:"children,omitempty"`
}

// DiscoveredCategory is the transient tree produced by taxonomy discovery
// and consumed by bulk creation. TempID links children to parents before
// real ids exist.
type DiscoveredCategory struct {
	TempID         string                `json:"tempId"`
	Name           string                `json:"name"`
	Slug           string                `json:"slug"`
	Description    string                `json:"description,omitempty"`
	Keywords       []string              `json:"keywords,omitempty"`
	ParentTempID   string                `json:"parentTempId,omitempty"`
	Level          int                   `json:"level"` // 1-based depth
	EstimatedCount int                   `json:"estimatedCount,omitempty"`
	Children       []*DiscoveredCategory `json:"children,omitempty"`
}

// Walk visits the node and every descendant, parents before children.
func (d *DiscoveredCategory) Walk(fn func(*DiscoveredCategory)) {
	fn(d)
	for _, child := range d.Children {
		child.Walk(fn)
	}
}

// DiscoveryResult is what the taxonomy discoverer returns: the proposed
// forest plus how it was produced.
type DiscoveryResult struct {
	Categories []*DiscoveredCategory `json:"categories"`
	Reasoning  string                `json:"reasoning,omitempty"`
	Source     string                `json:"source"` // "llm" or "clustering"
}

// ValidationResult reports hierarchy validation of a discovered forest.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// TaxonomyStats summarizes a discovered forest for the analyze response.
type TaxonomyStats struct {
	TotalCategories         int   `json:"totalCategories"`
	MaxDepth                int   `json:"maxDepth"`
	CategoriesPerLevel      []int `json:"categoriesPerLevel"`
	TotalKeywords           int   `json:"totalKeywords"`
	TotalEstimatedBookmarks int   `json:"totalEstimatedBookmarks"`
}

// BulkCreateResult reports persisted bulk category creation.
type BulkCreateResult struct {
	Created     int              `json:"created"`
	Updated     int              `json:"updated"`
	CategoryMap map[string]int64 `json:"categoryMap"` // tempId -> real id
}

// MergeResult reports a category merge.
type MergeResult struct {
	MergedBookmarks int      `json:"mergedBookmarks"`
	MergedKeywords  []string `json:"mergedKeywords"`
}
