package circulation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Ledger is the authoritative store of loan records, past and present.
// Writes go through the coordinator's transaction handle; projections read
// from the pool directly.
type Ledger struct {
	db *sqlx.DB
}

// NewLedger creates a loan ledger over an explicitly owned connection pool.
func NewLedger(db *sqlx.DB) *Ledger {
	return &Ledger{db: db}
}

// CreateLoan inserts a new active loan and returns its identifier. Member
// and item references are not re-validated here; the store's referential
// constraints reject dangling ones.
func (l *Ledger) CreateLoan(ctx context.Context, tx sqlx.ExtContext, memberID, itemID uuid.UUID, loanDate time.Time) (uuid.UUID, error) {
	id := uuid.New()
	query := tx.Rebind(`
		INSERT INTO loans (loan_id, member_id, item_id, loan_date)
		VALUES (?, ?, ?, ?)`)
	if _, err := tx.ExecContext(ctx, query, id, memberID, itemID, loanDate); err != nil {
		if isForeignKeyViolation(err) {
			return uuid.Nil, fmt.Errorf("create loan: %w", ErrNotFound)
		}
		return uuid.Nil, fmt.Errorf("create loan: %w", err)
	}
	return id, nil
}

// loanRow is the coordinator's view of a loan before closing it.
type loanRow struct {
	ItemID     uuid.UUID  `db:"item_id"`
	LoanDate   time.Time  `db:"loan_date"`
	ReturnDate *time.Time `db:"return_date"`
}

func (l *Ledger) lookupLoan(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*loanRow, error) {
	query := q.Rebind(`SELECT item_id, loan_date, return_date FROM loans WHERE loan_id = ?`)
	var row loanRow
	if err := sqlx.GetContext(ctx, q, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("loan %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("look up loan %s: %w", id, err)
	}
	return &row, nil
}

// CloseLoan sets the return date on an active loan. Closing is not
// idempotent: a second attempt is rejected with ErrInvalidState so duplicate
// returns surface at the boundary instead of passing as no-ops.
func (l *Ledger) CloseLoan(ctx context.Context, tx sqlx.ExtContext, id uuid.UUID, returnDate time.Time) error {
	query := tx.Rebind(`
		UPDATE loans
		SET return_date = ?
		WHERE loan_id = ? AND return_date IS NULL`)
	res, err := tx.ExecContext(ctx, query, returnDate, id)
	if err != nil {
		return fmt.Errorf("close loan %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("close loan %s: %w", id, err)
	}
	if n == 0 {
		if _, err := l.lookupLoan(ctx, tx, id); err != nil {
			return err
		}
		return fmt.Errorf("loan %s: %w", id, ErrInvalidState)
	}
	return nil
}

// GetLoan returns a single loan with its member and item attribution.
func (l *Ledger) GetLoan(ctx context.Context, id uuid.UUID) (*Loan, error) {
	query := l.db.Rebind(loanProjection + ` WHERE l.loan_id = ?`)
	var loan Loan
	if err := l.db.GetContext(ctx, &loan, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("loan %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get loan %s: %w", id, err)
	}
	return &loan, nil
}

const loanProjection = `
	SELECT l.loan_id, l.member_id, l.item_id,
	       m.name AS member_name, i.title AS item_title, i.author AS item_author,
	       l.loan_date, l.return_date
	FROM loans l
	JOIN members m ON m.member_id = l.member_id
	JOIN items i ON i.item_id = l.item_id`

// ListLoans returns the ledger projection for the given filter. The full
// ledger view reads newest first; the active-loans report reads oldest
// first, so the longest-outstanding loans lead.
func (l *Ledger) ListLoans(ctx context.Context, filter Filter) ([]Loan, error) {
	var (
		clauses []string
		args    []interface{}
	)

	switch filter.Status {
	case StatusActive:
		clauses = append(clauses, "l.return_date IS NULL")
	case StatusReturned:
		clauses = append(clauses, "l.return_date IS NOT NULL")
	case StatusAll, "":
	default:
		return nil, fmt.Errorf("status %q: %w", filter.Status, ErrValidation)
	}

	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		clauses = append(clauses, "(LOWER(m.name) LIKE ? OR LOWER(i.title) LIKE ?)")
		args = append(args, pattern, pattern)
	}

	query := loanProjection
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	if filter.Status == StatusActive {
		query += " ORDER BY l.loan_date ASC, l.loan_id"
	} else {
		query += " ORDER BY l.loan_date DESC, l.loan_id"
	}

	var loans []Loan
	if err := l.db.SelectContext(ctx, &loans, l.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	return loans, nil
}

// isForeignKeyViolation matches referential-constraint rejections from both
// supported engines.
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
