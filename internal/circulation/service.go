package circulation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"libracirc/internal/catalog"
	"libracirc/internal/membership"
)

// Service is the circulation surface consumed by the presentation layer.
type Service interface {
	Checkout(ctx context.Context, memberID, itemID uuid.UUID, loanDate time.Time) (uuid.UUID, error)
	ReturnLoan(ctx context.Context, loanID uuid.UUID, returnDate time.Time) error
	ListActiveLoans(ctx context.Context) ([]Loan, error)
	ListReturnedLoans(ctx context.Context) ([]Loan, error)
	ListAllLoans(ctx context.Context, filter Filter) ([]Loan, error)
	ListAvailableItems(ctx context.Context) ([]catalog.Item, error)
	ListMembers(ctx context.Context) ([]membership.Member, error)
}
