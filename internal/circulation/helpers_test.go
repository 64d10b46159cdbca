package circulation

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"libracirc/internal/catalog"
	"libracirc/internal/membership"
	"libracirc/internal/storage"
)

// newTestDB opens a fresh in-memory database named after the test. A single
// pooled connection keeps the shared-cache database alive and serializes
// writers the way a row lock would.
func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := storage.Open("sqlite", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, storage.EnsureSchema(context.Background(), db))
	return db
}

func newTestService(t *testing.T) (Service, *sqlx.DB) {
	t.Helper()
	db := newTestDB(t)
	svc := NewService(db, catalog.NewStore(db), membership.NewDirectory(db))
	return svc, db
}

func seedMember(t *testing.T, db *sqlx.DB, name, email string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Exec(db.Rebind(`
		INSERT INTO members (member_id, name, email, registered_at)
		VALUES (?, ?, ?, ?)`), id, name, email, time.Now().UTC())
	require.NoError(t, err)
	return id
}

func seedItem(t *testing.T, db *sqlx.DB, title, author string, copies int) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Exec(db.Rebind(`
		INSERT INTO items (item_id, title, author, identifier, available_copies)
		VALUES (?, ?, ?, ?, ?)`), id, title, author, "ISBN-"+id.String()[:8], copies)
	require.NoError(t, err)
	return id
}

func availableCopies(t *testing.T, db *sqlx.DB, itemID uuid.UUID) int {
	t.Helper()
	var n int
	require.NoError(t, db.Get(&n, db.Rebind(
		`SELECT available_copies FROM items WHERE item_id = ?`), itemID))
	return n
}

func loanCount(t *testing.T, db *sqlx.DB, itemID uuid.UUID) int {
	t.Helper()
	var n int
	require.NoError(t, db.Get(&n, db.Rebind(
		`SELECT COUNT(*) FROM loans WHERE item_id = ?`), itemID))
	return n
}

// date builds a day-precision timestamp, the granularity loans carry.
func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
