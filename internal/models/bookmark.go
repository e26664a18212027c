package models

import (
	"strings"
	"time"
)

// Bookmark represents a persisted bookmark row. The URL is the canonical
// form produced by the normalizer and is unique across the store.
type Bookmark struct {
	// Identity
	ID  int64  `json:"id"`
	URL string `json:"url"` // canonical form, unique

	// Display
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	SourceFolder string `json:"source_folder,omitempty"` // breadcrumb from the archive, "A / B / C"

	// Classification
	CategoryID        *int64 `json:"category_id,omitempty"`
	SuggestedCategory string `json:"suggested_category,omitempty"` // advisory label from the classifier
	Confidence        int    `json:"confidence"`                   // 0-100, advisory

	// Enrichment (populated by the metadata fetcher, all optional)
	MetaTitle       string `json:"meta_title,omitempty"`
	MetaDescription string `json:"meta_description,omitempty"`
	OGTitle         string `json:"og_title,omitempty"`
	OGDescription   string `json:"og_description,omitempty"`
	OGImage         string `json:"og_image,omitempty"`
	Keywords        string `json:"keywords,omitempty"` // comma-joined
	Summary         string `json:"summary,omitempty"`

	// Maintenance
	Stale bool `json:"stale,omitempty"` // set by the scheduler, cleared on re-fetch

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// KeywordList splits the comma-joined keywords column.
func (b *Bookmark) KeywordList() []string {
	if b.Keywords == "" {
		return nil
	}
	parts := strings.Split(b.Keywords, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParsedBookmark is a single entry yielded by the archive parser before
// normalization and persistence.
type ParsedBookmark struct {
	URL          string     `json:"url"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	SourceFolder string     `json:"sourceFolder,omitempty"`
	AddedAt      *time.Time `json:"addedAt,omitempty"` // from ADD_DATE when present
}

// PageMetadata holds everything the fetcher extracts from a target page.
// All fields are optional; a nil PageMetadata means transport failure.
type PageMetadata struct {
	Title           string    `json:"title,omitempty"`
	MetaDescription string    `json:"meta_description,omitempty"`
	OGTitle         string    `json:"og_title,omitempty"`
	OGDescription   string    `json:"og_description,omitempty"`
	OGImage         string    `json:"og_image,omitempty"`
	BodyText        string    `json:"body_text,omitempty"` // whitespace-normalized, capped
	FetchedAt       time.Time `json:"fetched_at"`
}

// BookmarkFilter narrows read-API queries.
type BookmarkFilter struct {
	CategoryID *int64
	Query      string // substring match over url, title, description
	Limit      int
	Offset     int
}
