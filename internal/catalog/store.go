package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Store reads catalog items and mutates their copy count. The two counter
// mutations take the caller's transaction handle: they may only run inside a
// unit of work owned by the circulation coordinator, never against the pool
// directly.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a catalog store over an explicitly owned connection pool.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// GetItem retrieves a single item. The wrapped error is sql.ErrNoRows when
// the item does not exist.
func (s *Store) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	query := s.db.Rebind(`
		SELECT item_id, title, author, identifier, published_year, available_copies
		FROM items
		WHERE item_id = ?`)
	var item Item
	if err := s.db.GetContext(ctx, &item, query, id); err != nil {
		return nil, fmt.Errorf("get item %s: %w", id, err)
	}
	return &item, nil
}

// ListAvailable returns the items with at least one loanable copy, ordered
// by title for the selection views.
func (s *Store) ListAvailable(ctx context.Context) ([]Item, error) {
	query := `
		SELECT item_id, title, author, identifier, published_year, available_copies
		FROM items
		WHERE available_copies > 0
		ORDER BY title`
	var items []Item
	if err := s.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list available items: %w", err)
	}
	return items, nil
}

// AvailableCopies reads the current counter through the given handle. The
// wrapped error is sql.ErrNoRows when the item does not exist.
func (s *Store) AvailableCopies(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (int, error) {
	query := q.Rebind(`SELECT available_copies FROM items WHERE item_id = ?`)
	var copies int
	if err := sqlx.GetContext(ctx, q, &copies, query, id); err != nil {
		return 0, fmt.Errorf("read available copies for %s: %w", id, err)
	}
	return copies, nil
}

// ConditionalDecrement takes one copy of the item. The check and the
// decrement are a single statement, so two concurrent requests cannot both
// observe the last copy. Returns the number of rows updated: 0 means no copy
// was available or no such item exists.
func (s *Store) ConditionalDecrement(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (int64, error) {
	query := q.Rebind(`
		UPDATE items
		SET available_copies = available_copies - 1
		WHERE item_id = ? AND available_copies > 0`)
	res, err := q.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("decrement available copies for %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("decrement available copies for %s: %w", id, err)
	}
	return n, nil
}

// Increment gives one copy back. Returns the number of rows updated: 0 means
// no such item exists.
func (s *Store) Increment(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (int64, error) {
	query := q.Rebind(`
		UPDATE items
		SET available_copies = available_copies + 1
		WHERE item_id = ?`)
	res, err := q.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("increment available copies for %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("increment available copies for %s: %w", id, err)
	}
	return n, nil
}
