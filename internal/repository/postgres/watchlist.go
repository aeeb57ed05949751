package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/adminlove520/daily-stock-analysis/internal/domain/watchlist"
	"github.com/adminlove520/daily-stock-analysis/pkg/errors"
)

// Compile-time check
var _ watchlist.Repository = (*WatchlistRepository)(nil)

// WatchlistRepository implements watchlist.Repository using sqlx
type WatchlistRepository struct {
	db DBTX
}

// NewWatchlistRepository creates a new watchlist repository
func NewWatchlistRepository(db DBTX) *WatchlistRepository {
	return &WatchlistRepository{db: db}
}

// GetAll retrieves all watchlist entries in insertion order
func (r *WatchlistRepository) GetAll(ctx context.Context) ([]*watchlist.Entry, error) {
	var entries []*watchlist.Entry

	query := `SELECT code, name, comment, created_at FROM watchlist ORDER BY created_at ASC, code ASC`

	err := r.db.SelectContext(ctx, &entries, query)
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// Add inserts a new watchlist entry
func (r *WatchlistRepository) Add(ctx context.Context, entry *watchlist.Entry) error {
	query := `
		INSERT INTO watchlist (code, name, comment, created_at)
		VALUES ($1, $2, $3, NOW())`

	_, err := r.db.ExecContext(ctx, query, entry.Code, entry.Name, entry.Comment)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return errors.ErrAlreadyExists
		}
		return err
	}

	return nil
}

// Remove deletes a watchlist entry by code
func (r *WatchlistRepository) Remove(ctx context.Context, code string) error {
	query := `DELETE FROM watchlist WHERE code = $1`

	result, err := r.db.ExecContext(ctx, query, code)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return errors.ErrNotFound
	}

	return nil
}

// Exists checks whether a code is already watched
func (r *WatchlistRepository) Exists(ctx context.Context, code string) (bool, error) {
	var exists bool

	query := `SELECT EXISTS(SELECT 1 FROM watchlist WHERE code = $1)`

	err := r.db.GetContext(ctx, &exists, query, code)
	if err != nil && err != sql.ErrNoRows {
		return false, err
	}

	return exists, nil
}
