package interfaces

import (
	"context"

	"github.com/ternarybob/fury/internal/models"
)

// EventSink receives import pipeline events in order. Emit must never
// block the pipeline; implementations that lose their consumer become
// no-ops.
type EventSink interface {
	Emit(event models.ImportEvent)
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(event models.ImportEvent)

func (f EventSinkFunc) Emit(event models.ImportEvent) { f(event) }

// ImportOptions configure a single import run.
type ImportOptions struct {
	// FileName is recorded on the import session.
	FileName string

	// CustomCategories switches the run to the custom-taxonomy path when
	// non-empty: the tree is persisted, then bookmarks are batch-assigned.
	CustomCategories []*models.DiscoveredCategory

	// ReplaceExisting clears the current categories before persisting the
	// custom tree.
	ReplaceExisting bool
}

// ImportService drives the full import pipeline: parse, dedupe, fetch,
// classify, persist, and emit progress events to the sink. Cancellation is
// observed through ctx between items; a cancelled run still records its
// partial session.
type ImportService interface {
	Import(ctx context.Context, archiveHTML string, opts ImportOptions, sink EventSink) error
}

// FetcherService validates bookmark targets and fetches page metadata.
type FetcherService interface {
	// Validate probes reachability. Internal addresses pass without a
	// probe; remote targets get a HEAD with a GET fallback.
	Validate(ctx context.Context, rawURL string) bool

	// Fetch retrieves and parses the page. Never returns an error to the
	// caller; nil means transport failure and the bookmark is stored
	// without enrichment. refresh bypasses the metadata cache so stale
	// enrichment is re-fetched from the network.
	Fetch(ctx context.Context, rawURL string, refresh bool) *models.PageMetadata
}

// DiscoveryService synthesizes a custom taxonomy from a bookmark set.
type DiscoveryService interface {
	// Discover runs the LLM path when a provider is available, falling
	// back to deterministic clustering. Never returns an empty result for
	// a non-empty input.
	Discover(ctx context.Context, bookmarks []models.ParsedBookmark) (*models.DiscoveryResult, error)

	// ValidateHierarchy checks depth, acyclicity and slug uniqueness.
	ValidateHierarchy(tree []*models.DiscoveredCategory) models.ValidationResult

	// Stats summarizes a forest for the analyze response.
	Stats(tree []*models.DiscoveredCategory) models.TaxonomyStats
}

// AssignProgress is invoked after each completed assignment batch.
type AssignProgress func(assigned, total int)

// AssignerService maps bookmarks onto a known taxonomy in LLM batches.
type AssignerService interface {
	// Assign returns bookmarkIndex -> categoryName for every index the
	// LLM resolved, plus the indices left for keyword fallback.
	Assign(ctx context.Context, bookmarks []models.ParsedBookmark, categories []*models.Category, progress AssignProgress) (map[int]string, []int, error)
}

// ExportService renders the persisted corpus.
type ExportService interface {
	// ExportHTML renders Netscape bookmark HTML, optionally filtered to
	// one category subtree.
	ExportHTML(ctx context.Context, categoryID *int64) (string, error)

	// ExportJSON renders the nested chrome-style JSON tree.
	ExportJSON(ctx context.Context, categoryID *int64) ([]byte, error)
}
