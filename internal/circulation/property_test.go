package circulation

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"libracirc/internal/catalog"
	"libracirc/internal/membership"
	"libracirc/internal/storage"
)

var propRun int64

// TestCounterProperties drives random checkout/return sequences against a
// live database and checks after every step that the committed counter never
// goes negative and that conservation holds: checkouts minus returns equals
// the initial count minus the current one.
func TestCounterProperties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		dsn := fmt.Sprintf("file:prop%d?mode=memory&cache=shared", atomic.AddInt64(&propRun, 1))
		db, err := storage.Open("sqlite", dsn)
		require.NoError(rt, err)
		db.SetMaxOpenConns(1)
		defer db.Close()
		require.NoError(rt, storage.EnsureSchema(context.Background(), db))

		svc := NewService(db, catalog.NewStore(db), membership.NewDirectory(db))
		ctx := context.Background()

		members := []uuid.UUID{
			propMember(rt, db, "Alice Munro"),
			propMember(rt, db, "Bob Dylan"),
		}

		type modelItem struct {
			id        uuid.UUID
			initial   int
			available int
			checkouts int
			returns   int
		}
		itemCount := rapid.IntRange(1, 3).Draw(rt, "items")
		items := make([]*modelItem, itemCount)
		for i := range items {
			initial := rapid.IntRange(0, 3).Draw(rt, fmt.Sprintf("copies%d", i))
			items[i] = &modelItem{
				id:        propItem(rt, db, fmt.Sprintf("Title %d", i), initial),
				initial:   initial,
				available: initial,
			}
		}

		var (
			open   []uuid.UUID
			owner  = map[uuid.UUID]*modelItem{}
			closed []uuid.UUID
		)
		day := date(2026, time.January, 1)

		rt.Repeat(map[string]func(*rapid.T){
			"checkout": func(rt *rapid.T) {
				item := rapid.SampledFrom(items).Draw(rt, "item")
				member := rapid.SampledFrom(members).Draw(rt, "member")
				loanID, err := svc.Checkout(ctx, member, item.id, day)
				if item.available > 0 {
					require.NoError(rt, err)
					item.available--
					item.checkouts++
					open = append(open, loanID)
					owner[loanID] = item
				} else {
					require.ErrorIs(rt, err, ErrNoCopiesAvailable)
				}
			},
			"return": func(rt *rapid.T) {
				if len(open) == 0 {
					return
				}
				i := rapid.IntRange(0, len(open)-1).Draw(rt, "loan")
				loanID := open[i]
				require.NoError(rt, svc.ReturnLoan(ctx, loanID, day))
				item := owner[loanID]
				item.available++
				item.returns++
				open = append(open[:i], open[i+1:]...)
				closed = append(closed, loanID)
			},
			"doubleReturn": func(rt *rapid.T) {
				if len(closed) == 0 {
					return
				}
				loanID := rapid.SampledFrom(closed).Draw(rt, "closed")
				require.ErrorIs(rt, svc.ReturnLoan(ctx, loanID, day), ErrInvalidState)
			},
			"": func(rt *rapid.T) {
				for _, item := range items {
					current := propCopies(rt, db, item.id)
					require.GreaterOrEqual(rt, current, 0)
					require.Equal(rt, item.available, current)
					require.Equal(rt, item.initial-current, item.checkouts-item.returns)
				}
			},
		})
	})
}

func propMember(rt *rapid.T, db *sqlx.DB, name string) uuid.UUID {
	id := uuid.New()
	_, err := db.Exec(db.Rebind(`
		INSERT INTO members (member_id, name, email, registered_at)
		VALUES (?, ?, ?, ?)`), id, name, id.String()[:8]+"@example.com", time.Now().UTC())
	require.NoError(rt, err)
	return id
}

func propItem(rt *rapid.T, db *sqlx.DB, title string, copies int) uuid.UUID {
	id := uuid.New()
	_, err := db.Exec(db.Rebind(`
		INSERT INTO items (item_id, title, author, identifier, available_copies)
		VALUES (?, ?, ?, ?, ?)`), id, title, "Property Author", "ISBN-"+id.String()[:8], copies)
	require.NoError(rt, err)
	return id
}

func propCopies(rt *rapid.T, db *sqlx.DB, itemID uuid.UUID) int {
	var n int
	require.NoError(rt, db.Get(&n, db.Rebind(
		`SELECT available_copies FROM items WHERE item_id = ?`), itemID))
	return n
}
