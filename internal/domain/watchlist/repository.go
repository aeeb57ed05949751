package watchlist

import "context"

// Repository defines watchlist persistence operations
type Repository interface {
	// GetAll returns all entries ordered by insertion time
	GetAll(ctx context.Context) ([]*Entry, error)

	// Add inserts an entry. Returns errors.ErrAlreadyExists when the code
	// is already watched.
	Add(ctx context.Context, entry *Entry) error

	// Remove deletes an entry by code. Returns errors.ErrNotFound when the
	// code is not watched.
	Remove(ctx context.Context, code string) error
}
