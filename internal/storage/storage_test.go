package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndEnsureSchema(t *testing.T) {
	db, err := Open("sqlite", "file:storagetest?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, EnsureSchema(ctx, db))

	// Applying again is a no-op.
	require.NoError(t, EnsureSchema(ctx, db))

	for _, table := range []string{"items", "members", "loans"} {
		var n int
		require.NoError(t, db.Get(&n, "SELECT COUNT(*) FROM "+table))
		assert.Zero(t, n)
	}
}

func TestSchemaRejectsNegativeCopies(t *testing.T) {
	db, err := Open("sqlite", "file:storageneg?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()
	require.NoError(t, EnsureSchema(context.Background(), db))

	_, err = db.Exec(db.Rebind(`
		INSERT INTO items (item_id, title, author, available_copies)
		VALUES (?, ?, ?, ?)`), "item-1", "Title", "Author", -1)
	require.Error(t, err)
}
