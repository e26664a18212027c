package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fury/internal/interfaces"
	"github.com/ternarybob/fury/internal/models"
	"github.com/ternarybob/fury/internal/services/textproc"
	"github.com/ternarybob/fury/internal/taxonomy"
)

// maxDepth is the category forest depth cap. A bookmark's category must
// reach a root within maxDepth-1 parent hops.
const maxDepth = 4

const categoryColumns = `id, slug, name, description, parent_id, keywords, created_at`

// CategoryStorage implements the CategoryStorage interface for SQLite.
// The preset tree supplies parent chains for built-in category names
// created lazily by the classifier.
type CategoryStorage struct {
	db      *SQLiteDB
	presets []taxonomy.Preset
	logger  arbor.ILogger
	mu      sync.Mutex // Prevents SQLITE_BUSY errors on concurrent writes
}

// NewCategoryStorage creates a new CategoryStorage instance
func NewCategoryStorage(db *SQLiteDB, presets []taxonomy.Preset, logger arbor.ILogger) interfaces.CategoryStorage {
	return &CategoryStorage{
		db:      db,
		presets: presets,
		logger:  logger,
	}
}

// EnsureCategory returns the category with the slug of name, creating it
// when absent. A built-in preset name gets its preset parent chain
// created first, so "Web Development" lands under "Technology".
func (s *CategoryStorage) EnsureCategory(ctx context.Context, name string) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureCategory(ctx, name, 0)
}

func (s *CategoryStorage) ensureCategory(ctx context.Context, name string, depth int) (*models.Category, error) {
	if depth >= maxDepth {
		return nil, fmt.Errorf("category %q exceeds the depth cap", name)
	}

	slug := textproc.Slugify(name)
	if slug == "" {
		return nil, fmt.Errorf("category name %q produces an empty slug", name)
	}

	existing, err := s.getBySlug(ctx, slug)
	if err == nil {
		return existing, nil
	}
	if err != interfaces.ErrNotFound {
		return nil, err
	}

	var parentID *int64
	description := ""
	var keywords []string

	if preset := taxonomy.FindPreset(s.presets, name); preset != nil {
		description = preset.Description
		keywords = preset.Keywords
		if preset.Parent != "" {
			parent, err := s.ensureCategory(ctx, preset.Parent, depth+1)
			if err != nil {
				return nil, fmt.Errorf("failed to ensure parent of %q: %w", name, err)
			}
			parentID = &parent.ID
		}
	}

	id, err := s.insert(ctx, s.db.db, slug, name, description, parentID, keywords)
	if err != nil {
		// Lost a race with another writer; the row exists now.
		if isUniqueViolation(err) {
			return s.getBySlug(ctx, slug)
		}
		return nil, err
	}

	s.logger.Debug().Str("slug", slug).Str("name", name).Msg("Category created")
	return s.getByID(ctx, id)
}

// EnsureDefaults seeds the built-in taxonomy roots. No-op whenever any
// category already exists.
func (s *CategoryStorage) EnsureDefaults(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	count, err := s.count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	roots := taxonomy.RootPresets(s.presets)
	for _, preset := range roots {
		if _, err := s.insert(ctx, s.db.db, preset.Slug, preset.Name, preset.Description, nil, preset.Keywords); err != nil {
			return fmt.Errorf("failed to seed category %q: %w", preset.Name, err)
		}
	}

	s.logger.Info().Int("count", len(roots)).Msg("Default categories seeded")
	return nil
}

// CreateBulk persists a discovered forest parent-first, mapping temp ids
// to real ids. With replaceExisting, every bookmark's category is nulled
// and all categories deleted first. Atomic: runs inside one transaction.
func (s *CategoryStorage) CreateBulk(ctx context.Context, tree []*models.DiscoveredCategory, replaceExisting bool) (*models.BulkCreateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	if replaceExisting {
		if _, err := tx.ExecContext(ctx, `UPDATE bookmarks SET category_id = NULL`); err != nil {
			return nil, fmt.Errorf("failed to detach bookmarks: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM categories`); err != nil {
			return nil, fmt.Errorf("failed to clear categories: %w", err)
		}
	}

	result := &models.BulkCreateResult{CategoryMap: make(map[string]int64)}
	for _, root := range tree {
		if err := s.createNode(ctx, tx, root, nil, 1, result); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit bulk create: %w", err)
	}

	s.logger.Info().
		Int("created", result.Created).
		Int("updated", result.Updated).
		Bool("replaced", replaceExisting).
		Msg("Bulk categories persisted")
	return result, nil
}

// createNode writes one node and recurses into its children. Children of
// a node already at the depth cap are promoted to the node's own parent
// so the stored forest never exceeds maxDepth.
func (s *CategoryStorage) createNode(ctx context.Context, tx *sql.Tx, node *models.DiscoveredCategory, parentID *int64, depth int, result *models.BulkCreateResult) error {
	slug := node.Slug
	if slug == "" {
		slug = textproc.Slugify(node.Name)
	}
	if slug == "" {
		return fmt.Errorf("category %q produces an empty slug", node.Name)
	}

	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM categories WHERE slug = ?`, slug).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		keywordsJSON, _ := json.Marshal(emptyIfNil(node.Keywords))
		res, err := tx.ExecContext(ctx,
			`INSERT INTO categories (slug, name, description, parent_id, keywords, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			slug, node.Name, node.Description, nullableID(parentID), string(keywordsJSON), time.Now().Unix())
		if err != nil {
			return fmt.Errorf("failed to insert category %q: %w", node.Name, err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read category id: %w", err)
		}
		result.Created++
	case err != nil:
		return fmt.Errorf("failed to look up category %q: %w", node.Name, err)
	default:
		keywordsJSON, _ := json.Marshal(emptyIfNil(node.Keywords))
		_, err := tx.ExecContext(ctx,
			`UPDATE categories SET name = ?, description = ?, parent_id = ?, keywords = ? WHERE id = ?`,
			node.Name, node.Description, nullableID(parentID), string(keywordsJSON), id)
		if err != nil {
			return fmt.Errorf("failed to update category %q: %w", node.Name, err)
		}
		result.Updated++
	}

	if node.TempID != "" {
		result.CategoryMap[node.TempID] = id
	}

	childParent := &id
	childDepth := depth + 1
	if depth >= maxDepth {
		childParent = parentID
		childDepth = depth
	}
	for _, child := range node.Children {
		if err := s.createNode(ctx, tx, child, childParent, childDepth, result); err != nil {
			return err
		}
	}
	return nil
}

// Merge folds the source category into the target: keywords union,
// children reparented, bookmarks reassigned, source deleted. Atomic; on
// failure the store is unchanged.
func (s *CategoryStorage) Merge(ctx context.Context, sourceID, targetID int64) (*models.MergeResult, error) {
	if sourceID == targetID {
		return nil, fmt.Errorf("cannot merge a category into itself")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	source, err := s.getByID(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("source category: %w", err)
	}
	target, err := s.getByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("target category: %w", err)
	}

	// Target keywords first, then source keywords not already present.
	merged := append([]string{}, target.Keywords...)
	seen := make(map[string]bool, len(merged))
	for _, k := range merged {
		seen[k] = true
	}
	for _, k := range source.Keywords {
		if !seen[k] {
			merged = append(merged, k)
			seen[k] = true
		}
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	keywordsJSON, _ := json.Marshal(merged)
	if _, err := tx.ExecContext(ctx, `UPDATE categories SET keywords = ? WHERE id = ?`, string(keywordsJSON), targetID); err != nil {
		return nil, fmt.Errorf("failed to update target keywords: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE categories SET parent_id = ? WHERE parent_id = ?`, targetID, sourceID); err != nil {
		return nil, fmt.Errorf("failed to reparent children: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE bookmarks SET category_id = ?, updated_at = ? WHERE category_id = ?`,
		targetID, time.Now().Unix(), sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to reassign bookmarks: %w", err)
	}
	moved, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to count reassigned bookmarks: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, sourceID); err != nil {
		return nil, fmt.Errorf("failed to delete source category: %w", err)
	}

	// Reparenting can push a subtree past the depth cap; promote any
	// over-deep node to its grandparent until the forest fits again.
	if err := flattenOverDeep(ctx, tx); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit merge: %w", err)
	}

	s.logger.Info().
		Str("source", source.Slug).
		Str("target", target.Slug).
		Int64("bookmarks", moved).
		Msg("Categories merged")

	return &models.MergeResult{
		MergedBookmarks: int(moved),
		MergedKeywords:  merged,
	}, nil
}

// GetByID retrieves a category by row id
func (s *CategoryStorage) GetByID(ctx context.Context, id int64) (*models.Category, error) {
	return s.getByID(ctx, id)
}

func (s *CategoryStorage) getByID(ctx context.Context, id int64) (*models.Category, error) {
	query := fmt.Sprintf(`SELECT %s FROM categories WHERE id = ?`, categoryColumns)
	return scanCategory(s.db.db.QueryRowContext(ctx, query, id))
}

// GetBySlug retrieves a category by slug
func (s *CategoryStorage) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return s.getBySlug(ctx, slug)
}

func (s *CategoryStorage) getBySlug(ctx context.Context, slug string) (*models.Category, error) {
	query := fmt.Sprintf(`SELECT %s FROM categories WHERE slug = ?`, categoryColumns)
	return scanCategory(s.db.db.QueryRowContext(ctx, query, slug))
}

// List returns every category ordered by id, which preserves creation
// order (parents before children for bulk-created trees)
func (s *CategoryStorage) List(ctx context.Context) ([]*models.Category, error) {
	query := fmt.Sprintf(`SELECT %s FROM categories ORDER BY id`, categoryColumns)

	rows, err := s.db.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []*models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return categories, nil
}

// Count returns the total number of categories
func (s *CategoryStorage) Count(ctx context.Context) (int, error) {
	return s.count(ctx)
}

func (s *CategoryStorage) count(ctx context.Context) (int, error) {
	var count int
	err := s.db.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count categories: %w", err)
	}
	return count, nil
}

func (s *CategoryStorage) insert(ctx context.Context, db *sql.DB, slug, name, description string, parentID *int64, keywords []string) (int64, error) {
	keywordsJSON, _ := json.Marshal(emptyIfNil(keywords))
	res, err := db.ExecContext(ctx,
		`INSERT INTO categories (slug, name, description, parent_id, keywords, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		slug, name, description, nullableID(parentID), string(keywordsJSON), time.Now().Unix())
	if err != nil {
		if isUniqueViolation(err) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to insert category: %w", err)
	}
	return res.LastInsertId()
}

// flattenOverDeep reparents any category deeper than maxDepth to its
// grandparent, repeating until the forest fits the cap.
func flattenOverDeep(ctx context.Context, tx *sql.Tx) error {
	for {
		rows, err := tx.QueryContext(ctx, `SELECT id, parent_id FROM categories`)
		if err != nil {
			return fmt.Errorf("failed to load category edges: %w", err)
		}

		parents := map[int64]*int64{}
		for rows.Next() {
			var id int64
			var parent sql.NullInt64
			if err := rows.Scan(&id, &parent); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan category edge: %w", err)
			}
			if parent.Valid {
				p := parent.Int64
				parents[id] = &p
			} else {
				parents[id] = nil
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating category edges: %w", err)
		}

		changed := false
		for id := range parents {
			if depthOf(id, parents) > maxDepth {
				// Promote one level: adopt the grandparent.
				parent := parents[id]
				grand := parents[*parent]
				if _, err := tx.ExecContext(ctx, `UPDATE categories SET parent_id = ? WHERE id = ?`, nullableID(grand), id); err != nil {
					return fmt.Errorf("failed to promote category %d: %w", id, err)
				}
				changed = true
			}
		}
		if !changed {
			return nil
		}
	}
}

// depthOf counts nodes on the path to the root; a root has depth 1.
// A cycle (which the store never creates) terminates at maxDepth+1.
func depthOf(id int64, parents map[int64]*int64) int {
	depth := 1
	cur := id
	for depth <= maxDepth {
		parent, ok := parents[cur]
		if !ok || parent == nil {
			return depth
		}
		cur = *parent
		depth++
	}
	return depth
}

func scanCategory(row rowScanner) (*models.Category, error) {
	var c models.Category
	var parentID sql.NullInt64
	var keywordsJSON string
	var createdAt int64

	err := row.Scan(&c.ID, &c.Slug, &c.Name, &c.Description, &parentID, &keywordsJSON, &createdAt)
	if err == sql.ErrNoRows {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan category: %w", err)
	}

	if parentID.Valid {
		c.ParentID = &parentID.Int64
	}
	if keywordsJSON != "" {
		if err := json.Unmarshal([]byte(keywordsJSON), &c.Keywords); err != nil {
			c.Keywords = nil
		}
	}
	c.CreatedAt = time.Unix(createdAt, 0)
	return &c, nil
}

func emptyIfNil(keywords []string) []string {
	if keywords == nil {
		return []string{}
	}
	return keywords
}
