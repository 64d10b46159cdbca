// Package catalog owns the item records whose available-copy capacity the
// circulation core borrows against.
package catalog

import "github.com/google/uuid"

// Item represents a book or other catalog entry. AvailableCopies is the
// single counter tracking currently loanable units; it is the sole source of
// truth, there is no separate total reconciled against it.
type Item struct {
	ID              uuid.UUID `json:"id" db:"item_id"`
	Title           string    `json:"title" db:"title"`
	Author          string    `json:"author" db:"author"`
	Identifier      string    `json:"identifier" db:"identifier"`
	PublishedYear   int       `json:"published_year,omitempty" db:"published_year"`
	AvailableCopies int       `json:"available_copies" db:"available_copies"`
}
