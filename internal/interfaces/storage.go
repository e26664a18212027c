package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/fury/internal/models"
)

// ErrNotFound is returned by lookups when no row matches.
var ErrNotFound = errors.New("not found")

// BookmarkStorage - interface for bookmark persistence
type BookmarkStorage interface {
	// Upsert inserts a bookmark keyed by canonical URL or updates the
	// mutable fields of the existing row. Returns the stored row and
	// whether it was newly created.
	Upsert(ctx context.Context, bookmark *models.Bookmark) (*models.Bookmark, bool, error)

	// Lookup operations
	GetByID(ctx context.Context, id int64) (*models.Bookmark, error)
	GetByURL(ctx context.Context, url string) (*models.Bookmark, error)
	List(ctx context.Context, filter models.BookmarkFilter) ([]*models.Bookmark, error)
	ListByCategory(ctx context.Context, categoryID int64) ([]*models.Bookmark, error)
	Count(ctx context.Context) (int, error)
	CountByCategory(ctx context.Context, categoryID int64) (int, error)

	// Category reassignment
	SetCategory(ctx context.Context, bookmarkID int64, categoryID *int64) error
	ClearAllCategories(ctx context.Context) error
	ReassignCategory(ctx context.Context, fromCategoryID, toCategoryID int64) (int, error)

	// Maintenance
	MarkStale(ctx context.Context, olderThanDays int) (int, error)
}

// CategoryStorage - interface for the category forest
type CategoryStorage interface {
	// EnsureCategory returns the category with the slug of name, creating
	// it (and its preset parent chain) when absent.
	EnsureCategory(ctx context.Context, name string) (*models.Category, error)

	// EnsureDefaults seeds the built-in taxonomy roots. No-op when any
	// category already exists.
	EnsureDefaults(ctx context.Context) error

	// CreateBulk persists a discovered forest parent-first, optionally
	// replacing all existing categories.
	CreateBulk(ctx context.Context, tree []*models.DiscoveredCategory, replaceExisting bool) (*models.BulkCreateResult, error)

	// Merge unions keywords, reparents children, moves bookmarks and
	// deletes the source. Atomic: on failure the store is unchanged.
	Merge(ctx context.Context, sourceID, targetID int64) (*models.MergeResult, error)

	// Lookup operations
	GetByID(ctx context.Context, id int64) (*models.Category, error)
	GetBySlug(ctx context.Context, slug string) (*models.Category, error)
	List(ctx context.Context) ([]*models.Category, error)
	Count(ctx context.Context) (int, error)
}

// SessionStorage - interface for import session records
type SessionStorage interface {
	Create(ctx context.Context, session *models.ImportSession) (*models.ImportSession, error)
	List(ctx context.Context, limit int) ([]*models.ImportSession, error)
	DeleteOlderThan(ctx context.Context, days int) (int, error)
}

// MetadataCache - fetch-result cache keyed by canonical URL
type MetadataCache interface {
	Get(url string) (*models.PageMetadata, bool)
	Set(url string, meta *models.PageMetadata) error
	Delete(url string) error
	Close() error
}

// StorageManager - composite interface for all storage operations
type StorageManager interface {
	BookmarkStorage() BookmarkStorage
	CategoryStorage() CategoryStorage
	SessionStorage() SessionStorage
	Ping(ctx context.Context) error
	Close() error
}
