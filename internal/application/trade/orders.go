// Package trade binds the orders endpoint to the paged store.
package trade

import (
	"context"

	"github.com/erp/console/internal/application/store"
	"github.com/erp/console/internal/application/validation"
	"github.com/erp/console/internal/domain/trade"
	"github.com/erp/console/internal/infrastructure/client"
)

// OrdersPath is the orders collection
const OrdersPath = "/api/orders"

var _ store.Binding[trade.Order, trade.StatusDraft] = (*OrderBinding)(nil)

// OrderBinding lets the operator change an order's status
type OrderBinding struct {
	resource  *client.Resource[trade.Order]
	validator *validation.Validator
}

// NewOrderBinding creates the orders binding
func NewOrderBinding(c *client.Client, v *validation.Validator) *OrderBinding {
	return &OrderBinding{
		resource: client.NewResource(c, client.Endpoint[trade.Order]{
			Path: OrdersPath,
			List: client.ListOf[trade.Order]("orders"),
			Item: client.ItemOf[trade.Order]("order"),
		}),
		validator: v,
	}
}

// Fetch lists all orders
func (b *OrderBinding) Fetch(ctx context.Context) ([]trade.Order, error) {
	return b.resource.FetchAll(ctx)
}

// Draft copies the order's status
func (b *OrderBinding) Draft(o trade.Order) trade.StatusDraft {
	return trade.NewStatusDraft(o)
}

// Validate rejects empty and unknown statuses
func (b *OrderBinding) Validate(d trade.StatusDraft) error {
	if err := b.validator.Struct(d); err != nil {
		return err
	}
	return d.Check()
}

// Update sends {status} and returns the server's order
func (b *OrderBinding) Update(ctx context.Context, original trade.Order, d trade.StatusDraft) (trade.Order, error) {
	return b.resource.Update(ctx, original.ID, client.JSON(map[string]trade.OrderStatus{"status": d.Status}))
}
