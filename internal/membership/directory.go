package membership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Directory is the read-side view of the member records.
type Directory struct {
	db *sqlx.DB
}

// NewDirectory creates a member directory over an explicitly owned
// connection pool.
func NewDirectory(db *sqlx.DB) *Directory {
	return &Directory{db: db}
}

// Exists reports whether a member with the given identifier is registered.
func (d *Directory) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	query := d.db.Rebind(`SELECT 1 FROM members WHERE member_id = ?`)
	var one int
	if err := d.db.GetContext(ctx, &one, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check member %s: %w", id, err)
	}
	return true, nil
}

// Get retrieves a single member. The wrapped error is sql.ErrNoRows when the
// member does not exist.
func (d *Directory) Get(ctx context.Context, id uuid.UUID) (*Member, error) {
	query := d.db.Rebind(`
		SELECT member_id, name, email, registered_at
		FROM members
		WHERE member_id = ?`)
	var member Member
	if err := d.db.GetContext(ctx, &member, query, id); err != nil {
		return nil, fmt.Errorf("get member %s: %w", id, err)
	}
	return &member, nil
}

// List returns all members ordered by name for the selection views.
func (d *Directory) List(ctx context.Context) ([]Member, error) {
	query := `
		SELECT member_id, name, email, registered_at
		FROM members
		ORDER BY name`
	var members []Member
	if err := d.db.SelectContext(ctx, &members, query); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}
