package circulation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"libracirc/internal/catalog"
)

// Guard enforces the non-negative copy-count invariant around checkout and
// return. It is the only mutator of the counter, and only ever inside a
// coordinator-owned transaction.
type Guard struct {
	catalog *catalog.Store
}

// NewGuard creates an inventory guard over the catalog store.
func NewGuard(store *catalog.Store) *Guard {
	return &Guard{catalog: store}
}

// ReserveCopy takes one copy of the item inside the given transaction. The
// reservation is a single conditional update verified by rows affected, not
// a read followed by a write: two concurrent requests against the last copy
// resolve to one reservation and one ErrNoCopiesAvailable.
func (g *Guard) ReserveCopy(ctx context.Context, tx sqlx.ExtContext, itemID uuid.UUID) error {
	n, err := g.catalog.ConditionalDecrement(ctx, tx, itemID)
	if err != nil {
		return fmt.Errorf("reserve copy: %w", err)
	}
	if n > 0 {
		return nil
	}

	// Nothing was reserved: the item is either unknown or out of copies.
	if _, err := g.catalog.AvailableCopies(ctx, tx, itemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("item %s: %w", itemID, ErrNotFound)
		}
		return fmt.Errorf("reserve copy: %w", err)
	}
	return fmt.Errorf("item %s: %w", itemID, ErrNoCopiesAvailable)
}

// ReleaseCopy gives one copy back inside the given transaction. No ceiling
// applies: a copy only comes back through closing a loan, and a loan closes
// at most once.
func (g *Guard) ReleaseCopy(ctx context.Context, tx sqlx.ExtContext, itemID uuid.UUID) error {
	n, err := g.catalog.Increment(ctx, tx, itemID)
	if err != nil {
		return fmt.Errorf("release copy: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("item %s: %w", itemID, ErrNotFound)
	}
	return nil
}
