package badger

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/fury/internal/interfaces"
	"github.com/ternarybob/fury/internal/models"
)

// cachedMetadata is the stored record: one fetch result keyed by the
// canonical URL.
type cachedMetadata struct {
	URL      string `badgerhold:"key"`
	Meta     models.PageMetadata
	StoredAt time.Time
}

// MetadataCache caches page metadata fetch results with a freshness
// window. An entry past the TTL behaves as a miss.
type MetadataCache struct {
	db     *BadgerDB
	ttl    time.Duration
	logger arbor.ILogger
}

// NewMetadataCache creates a metadata cache on top of a Badger connection.
// A zero ttl disables expiry.
func NewMetadataCache(db *BadgerDB, ttl time.Duration, logger arbor.ILogger) interfaces.MetadataCache {
	return &MetadataCache{
		db:     db,
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns the cached metadata for a canonical URL, or a miss when the
// entry is absent or stale.
func (c *MetadataCache) Get(url string) (*models.PageMetadata, bool) {
	var entry cachedMetadata
	err := c.db.Store().Get(url, &entry)
	if err == badgerhold.ErrNotFound {
		return nil, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("url", url).Msg("Metadata cache read failed")
		return nil, false
	}

	if c.ttl > 0 && time.Since(entry.StoredAt) > c.ttl {
		// Stale entries are dropped lazily on read
		if err := c.db.Store().Delete(url, &cachedMetadata{}); err != nil && err != badgerhold.ErrNotFound {
			c.logger.Warn().Err(err).Str("url", url).Msg("Failed to evict stale cache entry")
		}
		return nil, false
	}

	meta := entry.Meta
	return &meta, true
}

// Set stores fetch metadata for a canonical URL
func (c *MetadataCache) Set(url string, meta *models.PageMetadata) error {
	if meta == nil {
		return fmt.Errorf("cannot cache nil metadata")
	}

	entry := cachedMetadata{
		URL:      url,
		Meta:     *meta,
		StoredAt: time.Now(),
	}
	if err := c.db.Store().Upsert(url, &entry); err != nil {
		return fmt.Errorf("failed to cache metadata: %w", err)
	}
	return nil
}

// Delete removes a cache entry. Absent keys are not an error.
func (c *MetadataCache) Delete(url string) error {
	err := c.db.Store().Delete(url, &cachedMetadata{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Close closes the underlying store
func (c *MetadataCache) Close() error {
	return c.db.Close()
}
