package sqlite

import "fmt"

const schemaSQL = `
-- Category forest. Slug is the stable identity; the parent edge forms
-- a forest of depth <= 4.
CREATE TABLE IF NOT EXISTS categories (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	slug TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	parent_id INTEGER REFERENCES categories(id) ON DELETE SET NULL,
	keywords TEXT NOT NULL DEFAULT '[]',
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_categories_parent ON categories(parent_id);

-- Bookmarks. The url column holds the canonical form and is the
-- dedupe key across imports.
CREATE TABLE IF NOT EXISTS bookmarks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	url TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	source_folder TEXT NOT NULL DEFAULT '',
	category_id INTEGER REFERENCES categories(id) ON DELETE SET NULL,
	suggested_category TEXT NOT NULL DEFAULT '',
	confidence INTEGER NOT NULL DEFAULT 0,
	meta_title TEXT NOT NULL DEFAULT '',
	meta_description TEXT NOT NULL DEFAULT '',
	og_title TEXT NOT NULL DEFAULT '',
	og_description TEXT NOT NULL DEFAULT '',
	og_image TEXT NOT NULL DEFAULT '',
	keywords TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	stale INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_bookmarks_category ON bookmarks(category_id);
CREATE INDEX IF NOT EXISTS idx_bookmarks_updated ON bookmarks(updated_at);

-- One row per import run, written at the very end of the run.
CREATE TABLE IF NOT EXISTS import_sessions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_name TEXT NOT NULL,
	total_parsed INTEGER NOT NULL DEFAULT 0,
	successful INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_created ON import_sessions(created_at);
`

// migrate applies the schema. Statements are idempotent, so this runs on
// every startup.
func (s *SQLiteDB) migrate() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	s.logger.Debug().Msg("SQLite schema applied")
	return nil
}
