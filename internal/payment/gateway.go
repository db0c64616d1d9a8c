package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Payer identifies who is being charged.
type Payer struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// Intent is the charge handed to the gateway for confirmation. Amounts are in
// minor currency units.
type Intent struct {
	ID          uuid.UUID
	AmountMinor int64
	Currency    string
	TrackIDs    []int64
	Payer       Payer
	CreatedAt   time.Time
}

// Confirmation is the gateway's answer to an intent. Approved false means the
// payer backed out; processing faults are reported as errors instead.
type Confirmation struct {
	Approved  bool
	Reference string
}

// Gateway is the external processor port. Confirm blocks until the payer
// decides or ctx is done.
type Gateway interface {
	Confirm(ctx context.Context, intent Intent) (Confirmation, error)
}
