package trade

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erp/console/internal/domain/shared"
)

// OrderStatus is the fulfilment state of a customer order
type OrderStatus string

const (
	OrderStatusPending          OrderStatus = "Pending"
	OrderStatusReadyForDispatch OrderStatus = "Ready for Dispatch"
	OrderStatusDelivered        OrderStatus = "Delivered"
)

// OrderStatuses lists the statuses an operator can choose, in workflow order
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusReadyForDispatch,
	OrderStatusDelivered,
}

// IsValid checks if the status is one of the known values
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusReadyForDispatch, OrderStatusDelivered:
		return true
	default:
		return false
	}
}

// ParseOrderStatus matches s case-insensitively against the known statuses
func ParseOrderStatus(s string) (OrderStatus, error) {
	for _, status := range OrderStatuses {
		if strings.EqualFold(string(status), strings.TrimSpace(s)) {
			return status, nil
		}
	}
	return "", shared.NewValidationError("status", "must be one of Pending, Ready for Dispatch, Delivered")
}

// Address is the shipping address attached to an order
type Address struct {
	FirstName  string `json:"firstName" yaml:"first_name"`
	LastName   string `json:"lastName" yaml:"last_name"`
	Phone      string `json:"phone,omitempty" yaml:"phone,omitempty"`
	Street     string `json:"address,omitempty" yaml:"street,omitempty"`
	City       string `json:"city,omitempty" yaml:"city,omitempty"`
	PostalCode string `json:"pincode,omitempty" yaml:"postal_code,omitempty"`
}

// FullName joins first and last name
func (a Address) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Order is a customer order
type Order struct {
	ID          string          `json:"_id" yaml:"id"`
	Address     Address         `json:"address" yaml:"address"`
	ProductName string          `json:"productName,omitempty" yaml:"product_name,omitempty"`
	Quantity    int             `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	Amount      decimal.Decimal `json:"amount" yaml:"amount"`
	PaymentMode string          `json:"paymentMode" yaml:"payment_mode"`
	Status      OrderStatus     `json:"status" yaml:"status"`
	CreatedAt   time.Time       `json:"createdAt,omitzero" yaml:"created_at,omitempty"`
}

// ResourceID returns the server id
func (o Order) ResourceID() string { return o.ID }

// EffectiveStatus treats a missing status as Pending
func (o Order) EffectiveStatus() OrderStatus {
	if o.Status == "" {
		return OrderStatusPending
	}
	return o.Status
}

// StatusDraft is the edit buffer of the order status page
type StatusDraft struct {
	ID     string      `validate:"required"`
	Status OrderStatus `validate:"required"`
}

// NewStatusDraft copies the editable part of o
func NewStatusDraft(o Order) StatusDraft {
	return StatusDraft{ID: o.ID, Status: o.EffectiveStatus()}
}

// Check rejects statuses outside the workflow
func (d StatusDraft) Check() error {
	if !d.Status.IsValid() {
		return shared.NewValidationError("status", "unknown status "+string(d.Status))
	}
	return nil
}
