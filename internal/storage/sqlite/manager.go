package sqlite

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fury/internal/common"
	"github.com/ternarybob/fury/internal/interfaces"
	"github.com/ternarybob/fury/internal/taxonomy"
)

// Manager implements the StorageManager interface
type Manager struct {
	db       *SQLiteDB
	bookmark interfaces.BookmarkStorage
	category interfaces.CategoryStorage
	session  interfaces.SessionStorage
	logger   arbor.ILogger
}

// NewManager creates a new SQLite storage manager
func NewManager(logger arbor.ILogger, config *common.SQLiteConfig, presets []taxonomy.Preset) (interfaces.StorageManager, error) {
	db, err := NewSQLiteDB(logger, config)
	if err != nil {
		return nil, err
	}

	return &Manager{
		db:       db,
		bookmark: NewBookmarkStorage(db, logger),
		category: NewCategoryStorage(db, presets, logger),
		session:  NewSessionStorage(db, logger),
		logger:   logger,
	}, nil
}

// BookmarkStorage returns the bookmark storage interface
func (m *Manager) BookmarkStorage() interfaces.BookmarkStorage {
	return m.bookmark
}

// CategoryStorage returns the category storage interface
func (m *Manager) CategoryStorage() interfaces.CategoryStorage {
	return m.category
}

// SessionStorage returns the import session storage interface
func (m *Manager) SessionStorage() interfaces.SessionStorage {
	return m.session
}

// Ping verifies the database connection
func (m *Manager) Ping(ctx context.Context) error {
	return m.db.Ping(ctx)
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
