// Package circulation implements the loan lifecycle: checkout and return as
// atomic units of work over the loan ledger and the catalog copy count.
package circulation

import (
	"time"

	"github.com/google/uuid"
)

// Loan links a member and a catalog item for one checkout-to-return cycle.
// A nil ReturnDate means the loan is active. Loans are created by a
// successful checkout, closed exactly once by a successful return, and never
// deleted.
type Loan struct {
	ID         uuid.UUID  `json:"id" db:"loan_id"`
	MemberID   uuid.UUID  `json:"member_id" db:"member_id"`
	ItemID     uuid.UUID  `json:"item_id" db:"item_id"`
	MemberName string     `json:"member_name" db:"member_name"`
	ItemTitle  string     `json:"item_title" db:"item_title"`
	ItemAuthor string     `json:"item_author" db:"item_author"`
	LoanDate   time.Time  `json:"loan_date" db:"loan_date"`
	ReturnDate *time.Time `json:"return_date,omitempty" db:"return_date"`
}

// Active reports whether the loan has not been returned yet.
func (l *Loan) Active() bool {
	return l.ReturnDate == nil
}

// Status selects which loans a ledger listing includes.
type Status string

const (
	StatusAll      Status = "all"
	StatusActive   Status = "active"
	StatusReturned Status = "returned"
)

// Filter narrows a ledger listing. Search is a case-insensitive substring
// match over member name and item title.
type Filter struct {
	Status Status
	Search string
}
