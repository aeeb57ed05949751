package watchlist

import "time"

// Entry is one watched stock. Code is the 6-digit A-share code and the
// primary key; uniqueness is enforced by the store.
type Entry struct {
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name,omitempty"`
	Comment   string    `db:"comment" json:"comment,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
