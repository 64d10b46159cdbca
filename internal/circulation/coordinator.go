package circulation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"libracirc/internal/membership"
)

// Coordinator sequences the composite checkout and return operations. Each
// request is one database transaction: other readers observe either the
// pre-request state or the fully applied result, never an intermediate one.
type Coordinator struct {
	db      *sqlx.DB
	ledger  *Ledger
	guard   *Guard
	members *membership.Directory
	tracer  trace.Tracer
}

// NewCoordinator creates a transaction coordinator over the ledger, the
// inventory guard and the member directory.
func NewCoordinator(db *sqlx.DB, ledger *Ledger, guard *Guard, members *membership.Directory) *Coordinator {
	return &Coordinator{
		db:      db,
		ledger:  ledger,
		guard:   guard,
		members: members,
		tracer:  otel.Tracer("libracirc/circulation"),
	}
}

// Checkout reserves a copy of the item and records the loan as one atomic
// unit. The reservation runs first so an unavailable item aborts before any
// ledger write; a failure after the reservation rolls the whole transaction
// back, leaving the copy count as if the reservation never happened.
func (c *Coordinator) Checkout(ctx context.Context, memberID, itemID uuid.UUID, loanDate time.Time) (uuid.UUID, error) {
	ctx, span := c.tracer.Start(ctx, "circulation.checkout",
		trace.WithAttributes(
			attribute.String("member.id", memberID.String()),
			attribute.String("item.id", itemID.String()),
		),
	)
	defer span.End()

	if memberID == uuid.Nil || itemID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("member and item are required: %w", ErrValidation)
	}
	if loanDate.IsZero() {
		return uuid.Nil, fmt.Errorf("loan date is required: %w", ErrValidation)
	}

	ok, err := c.members.Exists(ctx, memberID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("check member: %w", err)
	}
	if !ok {
		return uuid.Nil, fmt.Errorf("member %s: %w", memberID, ErrNotFound)
	}

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin checkout: %v: %w", err, ErrTransactionFailure)
	}
	defer rollback(tx)

	if err := c.guard.ReserveCopy(ctx, tx, itemID); err != nil {
		return uuid.Nil, err
	}

	loanID, err := c.ledger.CreateLoan(ctx, tx, memberID, itemID, loanDate)
	if err != nil {
		return uuid.Nil, err
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return uuid.Nil, fmt.Errorf("commit checkout: %v: %w", err, ErrTransactionFailure)
	}

	span.SetAttributes(attribute.String("loan.id", loanID.String()))
	return loanID, nil
}

// ReturnLoan closes the loan and releases its copy as one atomic unit. A
// close that fails leaves the copy count untouched; a release that fails
// rolls the close back.
func (c *Coordinator) ReturnLoan(ctx context.Context, loanID uuid.UUID, returnDate time.Time) error {
	ctx, span := c.tracer.Start(ctx, "circulation.return",
		trace.WithAttributes(attribute.String("loan.id", loanID.String())),
	)
	defer span.End()

	if loanID == uuid.Nil {
		return fmt.Errorf("loan is required: %w", ErrValidation)
	}
	if returnDate.IsZero() {
		return fmt.Errorf("return date is required: %w", ErrValidation)
	}

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin return: %v: %w", err, ErrTransactionFailure)
	}
	defer rollback(tx)

	loan, err := c.ledger.lookupLoan(ctx, tx, loanID)
	if err != nil {
		return err
	}
	if loan.ReturnDate != nil {
		return fmt.Errorf("loan %s: %w", loanID, ErrInvalidState)
	}
	if returnDate.Before(loan.LoanDate) {
		return fmt.Errorf("return date precedes loan date: %w", ErrValidation)
	}

	if err := c.ledger.CloseLoan(ctx, tx, loanID, returnDate); err != nil {
		return err
	}
	if err := c.guard.ReleaseCopy(ctx, tx, loan.ItemID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("commit return: %v: %w", err, ErrTransactionFailure)
	}
	return nil
}

// rollback releases the transaction; sql.ErrTxDone is the normal outcome
// after a commit. Any other failure means local state can no longer be
// trusted, so it is escalated to the log.
func rollback(tx *sqlx.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		log.Printf("unrecoverable: transaction rollback failed: %v", err)
	}
}
