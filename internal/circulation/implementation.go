package circulation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"libracirc/internal/catalog"
	"libracirc/internal/membership"
)

// service implements the Service interface.
type service struct {
	coordinator *Coordinator
	ledger      *Ledger
	catalog     *catalog.Store
	members     *membership.Directory
}

// NewService wires the circulation core over an explicitly owned connection
// pool. The copy count is only ever touched through the coordinator built
// here.
func NewService(db *sqlx.DB, catalogStore *catalog.Store, members *membership.Directory) Service {
	ledger := NewLedger(db)
	guard := NewGuard(catalogStore)
	return &service{
		coordinator: NewCoordinator(db, ledger, guard, members),
		ledger:      ledger,
		catalog:     catalogStore,
		members:     members,
	}
}

func (s *service) Checkout(ctx context.Context, memberID, itemID uuid.UUID, loanDate time.Time) (uuid.UUID, error) {
	return s.coordinator.Checkout(ctx, memberID, itemID, loanDate)
}

func (s *service) ReturnLoan(ctx context.Context, loanID uuid.UUID, returnDate time.Time) error {
	return s.coordinator.ReturnLoan(ctx, loanID, returnDate)
}

func (s *service) ListActiveLoans(ctx context.Context) ([]Loan, error) {
	return s.ledger.ListLoans(ctx, Filter{Status: StatusActive})
}

func (s *service) ListReturnedLoans(ctx context.Context) ([]Loan, error) {
	return s.ledger.ListLoans(ctx, Filter{Status: StatusReturned})
}

func (s *service) ListAllLoans(ctx context.Context, filter Filter) ([]Loan, error) {
	if filter.Status == "" {
		filter.Status = StatusAll
	}
	return s.ledger.ListLoans(ctx, filter)
}

func (s *service) ListAvailableItems(ctx context.Context) ([]catalog.Item, error) {
	return s.catalog.ListAvailable(ctx)
}

func (s *service) ListMembers(ctx context.Context) ([]membership.Member, error) {
	return s.members.List(ctx)
}
