// Package shipping binds dispatch orders and shipments to the paged store,
// schedules courier pickups and exports shipping documents.
package shipping

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/erp/console/internal/application/store"
	"github.com/erp/console/internal/application/validation"
	"github.com/erp/console/internal/domain/catalog"
	"github.com/erp/console/internal/domain/shipping"
	"github.com/erp/console/internal/infrastructure/client"
)

const (
	// DispatchPath lists orders handed to the courier, oldest first
	DispatchPath = "/api/admin/orders"
	// ShipmentsPath lists all courier shipments
	ShipmentsPath = "/api/dhl/get-all-shipments"
)

// PickupScheduler books a courier pickup
type PickupScheduler interface {
	SchedulePickup(ctx context.Context, draft shipping.PickupDraft) (shipping.PickupConfirmation, error)
}

var _ store.Binding[shipping.DispatchOrder, shipping.PickupDraft] = (*DispatchBinding)(nil)

// DispatchBinding lets the operator schedule a pickup for a dispatch order.
// Saving a draft books the pickup; the courier's confirmation is recorded on
// the order returned to the store.
type DispatchBinding struct {
	resource  *client.Resource[shipping.DispatchOrder]
	courier   PickupScheduler
	validator *validation.Validator
	now       func() time.Time
	contact   Contact
	logger    *zap.Logger
}

// Contact prefills the pickup contact of new drafts
type Contact struct {
	Name  string
	Phone string
	Email string
}

// DispatchOption configures a DispatchBinding
type DispatchOption func(*DispatchBinding)

// WithClock replaces the clock used to validate pickup windows
func WithClock(now func() time.Time) DispatchOption {
	return func(b *DispatchBinding) { b.now = now }
}

// WithContact sets the default pickup contact
func WithContact(c Contact) DispatchOption {
	return func(b *DispatchBinding) { b.contact = c }
}

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) DispatchOption {
	return func(b *DispatchBinding) { b.logger = logger }
}

// NewDispatchBinding creates the dispatch binding
func NewDispatchBinding(c *client.Client, courier PickupScheduler, v *validation.Validator, opts ...DispatchOption) *DispatchBinding {
	b := &DispatchBinding{
		resource: client.NewResource(c, client.Endpoint[shipping.DispatchOrder]{
			Path: DispatchPath,
			List: client.ListOf[shipping.DispatchOrder]("orders"),
		}),
		courier:   courier,
		validator: v,
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Fetch lists dispatch orders in server order; the store reverses them
func (b *DispatchBinding) Fetch(ctx context.Context) ([]shipping.DispatchOrder, error) {
	return b.resource.FetchAll(ctx)
}

// Draft starts a one-piece pickup with the default contact
func (b *DispatchBinding) Draft(o shipping.DispatchOrder) shipping.PickupDraft {
	d := shipping.NewPickupDraft(o)
	d.ContactName = b.contact.Name
	d.ContactPhone = b.contact.Phone
	d.ContactEmail = b.contact.Email
	return d
}

// Validate checks required fields, then weight, piece count and the window
// against the current time
func (b *DispatchBinding) Validate(d shipping.PickupDraft) error {
	if err := b.validator.Struct(d); err != nil {
		return err
	}
	return d.Check(b.now())
}

// Update books the pickup and returns original with the confirmation id
func (b *DispatchBinding) Update(ctx context.Context, original shipping.DispatchOrder, d shipping.PickupDraft) (shipping.DispatchOrder, error) {
	conf, err := b.courier.SchedulePickup(ctx, d)
	if err != nil {
		return shipping.DispatchOrder{}, err
	}
	b.logger.Debug("pickup confirmed",
		zap.String("order_id", original.ID),
		zap.String("confirmation_id", conf.ConfirmationID),
	)
	saved := original
	saved.PickupConfirmationID = conf.ConfirmationID
	return saved, nil
}

// NewDispatchReader lists dispatch orders without booking pickups, for
// document export
func NewDispatchReader(c *client.Client) store.ReadOnly[shipping.DispatchOrder] {
	res := client.NewResource(c, client.Endpoint[shipping.DispatchOrder]{
		Path: DispatchPath,
		List: client.ListOf[shipping.DispatchOrder]("orders"),
	})
	return store.ReadOnly[shipping.DispatchOrder]{FetchFunc: res.FetchAll}
}

// MatchDispatch searches dispatch orders by receiver name or AWB number
func MatchDispatch(o shipping.DispatchOrder, query string) bool {
	return catalog.MatchesName(o.ReceiverName, query) || strings.Contains(o.AWBNo, strings.TrimSpace(query))
}

// NewShipmentBinding creates the read-only shipments binding
func NewShipmentBinding(c *client.Client) store.ReadOnly[shipping.Shipment] {
	res := client.NewResource(c, client.Endpoint[shipping.Shipment]{
		Path: ShipmentsPath,
		List: client.ListOf[shipping.Shipment]("shipments"),
	})
	return store.ReadOnly[shipping.Shipment]{FetchFunc: res.FetchAll}
}

// MatchShipment searches shipments by receiver name or AWB number
func MatchShipment(s shipping.Shipment, query string) bool {
	return catalog.MatchesName(s.ReceiverName, query) || strings.Contains(s.AWBNumber, strings.TrimSpace(query))
}
