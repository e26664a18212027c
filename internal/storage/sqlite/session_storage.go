package sqlite

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fury/internal/interfaces"
	"github.com/ternarybob/fury/internal/models"
)

// SessionStorage implements the SessionStorage interface for SQLite
type SessionStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
	mu     sync.Mutex
}

// NewSessionStorage creates a new SessionStorage instance
func NewSessionStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.SessionStorage {
	return &SessionStorage{
		db:     db,
		logger: logger,
	}
}

// Create records one import run
func (s *SessionStorage) Create(ctx context.Context, session *models.ImportSession) (*models.ImportSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := session.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := s.db.db.ExecContext(ctx,
		`INSERT INTO import_sessions (file_name, total_parsed, successful, failed, skipped, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		session.FileName, session.TotalParsed, session.Successful, session.Failed, session.Skipped, createdAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to create import session: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read session id: %w", err)
	}

	stored := *session
	stored.ID = id
	stored.CreatedAt = createdAt
	return &stored, nil
}

// List returns import sessions, newest first
func (s *SessionStorage) List(ctx context.Context, limit int) ([]*models.ImportSession, error) {
	query := `SELECT id, file_name, total_parsed, successful, failed, skipped, created_at
		FROM import_sessions ORDER BY created_at DESC, id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list import sessions: %w", err)
	}
	defer rows.Close()

	sessions := []*models.ImportSession{}
	for rows.Next() {
		var sess models.ImportSession
		var createdAt int64
		if err := rows.Scan(&sess.ID, &sess.FileName, &sess.TotalParsed, &sess.Successful, &sess.Failed, &sess.Skipped, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sess.CreatedAt = time.Unix(createdAt, 0)
		sessions = append(sessions, &sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return sessions, nil
}

// DeleteOlderThan prunes sessions past the retention window and returns
// how many were removed
func (s *SessionStorage) DeleteOlderThan(ctx context.Context, days int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -days).Unix()
	res, err := s.db.db.ExecContext(ctx, `DELETE FROM import_sessions WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune import sessions: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(affected), nil
}
