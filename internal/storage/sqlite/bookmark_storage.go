package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fury/internal/interfaces"
	"github.com/ternarybob/fury/internal/models"
)

// bookmarkColumns is the scan order shared by every bookmark query.
const bookmarkColumns = `id, url, title, description, source_folder, category_id,
	suggested_category, confidence, meta_title, meta_description,
	og_title, og_description, og_image, keywords, summary, stale,
	created_at, updated_at`

// BookmarkStorage implements the BookmarkStorage interface for SQLite
type BookmarkStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
	mu     sync.Mutex // Prevents SQLITE_BUSY errors on concurrent writes
}

// NewBookmarkStorage creates a new BookmarkStorage instance
func NewBookmarkStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.BookmarkStorage {
	return &BookmarkStorage{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts a bookmark keyed by its canonical URL or updates the
// mutable fields of the existing row. The created_at of an existing row
// is preserved. Returns the stored row and whether it was newly created.
func (s *BookmarkStorage) Upsert(ctx context.Context, bookmark *models.Bookmark) (*models.Bookmark, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.getByURL(ctx, bookmark.URL)
	if err != nil && err != interfaces.ErrNotFound {
		return nil, false, err
	}

	if existing != nil {
		if err := s.update(ctx, existing.ID, bookmark); err != nil {
			return nil, false, err
		}
		stored, err := s.getByURL(ctx, bookmark.URL)
		return stored, false, err
	}

	if err := s.insert(ctx, bookmark); err != nil {
		// A concurrent writer can win the insert race; fall back to
		// update, which is what the conflict means.
		if isUniqueViolation(err) {
			s.logger.Debug().Str("url", bookmark.URL).Msg("Insert conflict, switching to update")
			existing, rerr := s.getByURL(ctx, bookmark.URL)
			if rerr != nil {
				return nil, false, fmt.Errorf("%w: %v", models.ErrStorageConflict, err)
			}
			if uerr := s.update(ctx, existing.ID, bookmark); uerr != nil {
				return nil, false, uerr
			}
			stored, gerr := s.getByURL(ctx, bookmark.URL)
			return stored, false, gerr
		}
		return nil, false, err
	}

	stored, err := s.getByURL(ctx, bookmark.URL)
	return stored, true, err
}

func (s *BookmarkStorage) insert(ctx context.Context, b *models.Bookmark) error {
	now := time.Now().Unix()
	createdAt := now
	if !b.CreatedAt.IsZero() {
		createdAt = b.CreatedAt.Unix()
	}

	query := `
		INSERT INTO bookmarks (url, title, description, source_folder, category_id,
			suggested_category, confidence, meta_title, meta_description,
			og_title, og_description, og_image, keywords, summary, stale,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.db.ExecContext(ctx, query,
		b.URL, b.Title, b.Description, b.SourceFolder, nullableID(b.CategoryID),
		b.SuggestedCategory, b.Confidence, b.MetaTitle, b.MetaDescription,
		b.OGTitle, b.OGDescription, b.OGImage, b.Keywords, b.Summary, boolToInt(b.Stale),
		createdAt, now)
	if err != nil {
		if isUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("failed to insert bookmark: %w", err)
	}
	return nil
}

func (s *BookmarkStorage) update(ctx context.Context, id int64, b *models.Bookmark) error {
	query := `
		UPDATE bookmarks SET
			title = ?, description = ?, source_folder = ?, category_id = ?,
			suggested_category = ?, confidence = ?, meta_title = ?, meta_description = ?,
			og_title = ?, og_description = ?, og_image = ?, keywords = ?, summary = ?,
			stale = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := s.db.db.ExecContext(ctx, query,
		b.Title, b.Description, b.SourceFolder, nullableID(b.CategoryID),
		b.SuggestedCategory, b.Confidence, b.MetaTitle, b.MetaDescription,
		b.OGTitle, b.OGDescription, b.OGImage, b.Keywords, b.Summary,
		boolToInt(b.Stale), time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update bookmark: %w", err)
	}
	return nil
}

// GetByID retrieves a bookmark by its row id
func (s *BookmarkStorage) GetByID(ctx context.Context, id int64) (*models.Bookmark, error) {
	query := fmt.Sprintf(`SELECT %s FROM bookmarks WHERE id = ?`, bookmarkColumns)
	return scanBookmark(s.db.db.QueryRowContext(ctx, query, id))
}

// GetByURL retrieves a bookmark by its canonical URL
func (s *BookmarkStorage) GetByURL(ctx context.Context, url string) (*models.Bookmark, error) {
	return s.getByURL(ctx, url)
}

func (s *BookmarkStorage) getByURL(ctx context.Context, url string) (*models.Bookmark, error) {
	query := fmt.Sprintf(`SELECT %s FROM bookmarks WHERE url = ?`, bookmarkColumns)
	return scanBookmark(s.db.db.QueryRowContext(ctx, query, url))
}

// List returns bookmarks matching the filter, newest first
func (s *BookmarkStorage) List(ctx context.Context, filter models.BookmarkFilter) ([]*models.Bookmark, error) {
	var conditions []string
	var args []interface{}

	if filter.CategoryID != nil {
		conditions = append(conditions, "category_id = ?")
		args = append(args, *filter.CategoryID)
	}
	if filter.Query != "" {
		conditions = append(conditions, "(url LIKE ? OR title LIKE ? OR description LIKE ?)")
		pattern := "%" + filter.Query + "%"
		args = append(args, pattern, pattern, pattern)
	}

	query := fmt.Sprintf(`SELECT %s FROM bookmarks`, bookmarkColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY updated_at DESC, id DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	defer rows.Close()

	return collectBookmarks(rows)
}

// ListByCategory returns all bookmarks assigned to a category
func (s *BookmarkStorage) ListByCategory(ctx context.Context, categoryID int64) ([]*models.Bookmark, error) {
	query := fmt.Sprintf(`SELECT %s FROM bookmarks WHERE category_id = ? ORDER BY title COLLATE NOCASE`, bookmarkColumns)

	rows, err := s.db.db.QueryContext(ctx, query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks by category: %w", err)
	}
	defer rows.Close()

	return collectBookmarks(rows)
}

// Count returns the total number of bookmarks
func (s *BookmarkStorage) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookmarks`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count bookmarks: %w", err)
	}
	return count, nil
}

// CountByCategory returns the number of bookmarks in a category
func (s *BookmarkStorage) CountByCategory(ctx context.Context, categoryID int64) (int, error) {
	var count int
	err := s.db.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookmarks WHERE category_id = ?`, categoryID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count bookmarks by category: %w", err)
	}
	return count, nil
}

// SetCategory assigns or clears a bookmark's category
func (s *BookmarkStorage) SetCategory(ctx context.Context, bookmarkID int64, categoryID *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.db.ExecContext(ctx,
		`UPDATE bookmarks SET category_id = ?, updated_at = ? WHERE id = ?`,
		nullableID(categoryID), time.Now().Unix(), bookmarkID)
	if err != nil {
		return fmt.Errorf("failed to set bookmark category: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

// ClearAllCategories sets every bookmark's category to null. Used by the
// replace-existing bulk category path before categories are deleted.
func (s *BookmarkStorage) ClearAllCategories(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.db.ExecContext(ctx, `UPDATE bookmarks SET category_id = NULL`)
	if err != nil {
		return fmt.Errorf("failed to clear bookmark categories: %w", err)
	}
	return nil
}

// ReassignCategory moves every bookmark from one category to another and
// returns how many moved
func (s *BookmarkStorage) ReassignCategory(ctx context.Context, fromCategoryID, toCategoryID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.db.ExecContext(ctx,
		`UPDATE bookmarks SET category_id = ?, updated_at = ? WHERE category_id = ?`,
		toCategoryID, time.Now().Unix(), fromCategoryID)
	if err != nil {
		return 0, fmt.Errorf("failed to reassign bookmarks: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(affected), nil
}

// MarkStale flags bookmarks whose enrichment is older than the cutoff so
// the next import bypasses the metadata cache for them
func (s *BookmarkStorage) MarkStale(ctx context.Context, olderThanDays int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -olderThanDays).Unix()
	result, err := s.db.db.ExecContext(ctx,
		`UPDATE bookmarks SET stale = 1 WHERE stale = 0 AND updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to mark stale bookmarks: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(affected), nil
}

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBookmark(row rowScanner) (*models.Bookmark, error) {
	var b models.Bookmark
	var categoryID sql.NullInt64
	var stale int
	var createdAt, updatedAt int64

	err := row.Scan(&b.ID, &b.URL, &b.Title, &b.Description, &b.SourceFolder, &categoryID,
		&b.SuggestedCategory, &b.Confidence, &b.MetaTitle, &b.MetaDescription,
		&b.OGTitle, &b.OGDescription, &b.OGImage, &b.Keywords, &b.Summary, &stale,
		&createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan bookmark: %w", err)
	}

	if categoryID.Valid {
		b.CategoryID = &categoryID.Int64
	}
	b.Stale = stale != 0
	b.CreatedAt = time.Unix(createdAt, 0)
	b.UpdatedAt = time.Unix(updatedAt, 0)
	return &b, nil
}

func collectBookmarks(rows *sql.Rows) ([]*models.Bookmark, error) {
	bookmarks := []*models.Bookmark{}
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, err
		}
		bookmarks = append(bookmarks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return bookmarks, nil
}

func nullableID(id *int64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
