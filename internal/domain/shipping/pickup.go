package shipping

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/erp/console/internal/domain/shared"
)

// PickupDraft is the edit buffer of the pickup scheduling form
type PickupDraft struct {
	OrderID        string          `validate:"required"`
	ReadyBy        time.Time       `validate:"required"`
	CloseBy        time.Time       `validate:"required"`
	Weight         decimal.Decimal `validate:"-"`
	TotalShipments int             `validate:"gt=0"`
	ContactName    string          `validate:"required"`
	ContactPhone   string          `validate:"required"`
	ContactEmail   string          `validate:"omitempty,email"`
	Location       string          `validate:"max=80"`
	Instructions   string          `validate:"max=200"`
}

// NewPickupDraft starts a pickup for o with one piece
func NewPickupDraft(o DispatchOrder) PickupDraft {
	return PickupDraft{
		OrderID:        o.ID,
		TotalShipments: 1,
	}
}

// Check applies the numeric and time-window rules against now
func (d PickupDraft) Check(now time.Time) error {
	if !d.Weight.IsPositive() {
		return shared.NewValidationError("weight", "must be greater than zero")
	}
	if d.TotalShipments <= 0 {
		return shared.NewValidationError("totalShipments", "must be greater than zero")
	}
	if d.ReadyBy.Before(now) {
		return shared.NewValidationError("readyBy", "must not be in the past")
	}
	if !d.CloseBy.After(d.ReadyBy) {
		return shared.NewValidationError("closeBy", "must be after readyBy")
	}
	return nil
}

// PickupConfirmation is the courier's acceptance of a pickup request
type PickupConfirmation struct {
	ConfirmationID string
	ReadyBy        time.Time
	CloseBy        time.Time
}
