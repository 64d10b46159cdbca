// Package membership owns the member identity records the circulation core
// reads for attribution.
package membership

import (
	"time"

	"github.com/google/uuid"
)

// Member represents a library member.
type Member struct {
	ID           uuid.UUID `json:"id" db:"member_id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	RegisteredAt time.Time `json:"registered_at" db:"registered_at"`
}
