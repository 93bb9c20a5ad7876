package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	shippingapp "github.com/erp/console/internal/application/shipping"
	"github.com/erp/console/internal/application/store"
	"github.com/erp/console/internal/domain/shared"
	"github.com/erp/console/internal/domain/shipping"
)

var errNoCourier = errors.New("courier is not configured")

func (a *App) dispatchStore() (*store.Store[shipping.DispatchOrder, shipping.PickupDraft], error) {
	if a.deps.Courier == nil {
		return nil, errNoCourier
	}
	shipper := a.cfg.Courier.Shipper
	b := shippingapp.NewDispatchBinding(a.deps.API, a.deps.Courier, a.validator,
		shippingapp.WithClock(a.deps.Now),
		shippingapp.WithContact(shippingapp.Contact{
			Name:  shipper.ContactName,
			Phone: shipper.Phone,
			Email: shipper.Email,
		}),
		shippingapp.WithLogger(a.logger),
	)
	opts := storeOptions(a, "dispatch", a.cfg.Pages.DispatchPageSize, shippingapp.MatchDispatch)
	opts.Reverse = true
	return store.New[shipping.DispatchOrder, shipping.PickupDraft](b, opts), nil
}

func (a *App) runDispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageErrorf("dispatch", "expected list, pickup or export")
	}
	switch args[0] {
	case "list":
		return a.listDispatch(ctx, args[1:])
	case "pickup":
		return a.schedulePickup(ctx, args[1:])
	case "export":
		return a.exportDocuments(ctx, args[1:])
	default:
		return usageErrorf("dispatch", "unknown subcommand %q", args[0])
	}
}

func (a *App) listDispatch(ctx context.Context, args []string) error {
	fs := newFlagSet("dispatch list", a.deps.Err)
	page := fs.Int("page", 1, "page number")
	query := fs.String("q", "", "filter by AWB number or receiver")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	s, err := a.dispatchStore()
	if err != nil {
		return err
	}
	view, err := listPage(ctx, s, *page, *query)
	if err != nil {
		return err
	}
	return a.render.Render("dispatch", view)
}

func (a *App) schedulePickup(ctx context.Context, args []string) error {
	fs := newFlagSet("dispatch pickup", a.deps.Err)
	ready := fs.String("ready", "", "ready by time (required)")
	closeBy := fs.String("close", "", "location close time (required)")
	weight := fs.String("weight", "", "total weight in kg (required)")
	shipments := fs.Int("shipments", 1, "number of packages")
	location := fs.String("location", "", "pickup location at the shipper address")
	instructions := fs.String("instructions", "", "special instructions for the courier")
	contactName := fs.String("contact", "", "contact name (default from config)")
	contactPhone := fs.String("phone", "", "contact phone (default from config)")
	id, _, err := parseWithID(fs, args)
	if err != nil {
		return err
	}

	now := a.deps.Now()
	readyBy, err := parseTime(*ready, now, time.Local)
	if err != nil {
		return usageErrorf("dispatch pickup", "-ready: %v", err)
	}
	closeTime, err := parseTime(*closeBy, now, time.Local)
	if err != nil {
		return usageErrorf("dispatch pickup", "-close: %v", err)
	}
	w, err := decimal.NewFromString(*weight)
	if err != nil {
		return usageErrorf("dispatch pickup", "-weight %q is not a number", *weight)
	}

	s, err := a.dispatchStore()
	if err != nil {
		return err
	}
	if err := s.Load(ctx); err != nil {
		return err
	}
	if err := focus(s, id); err != nil {
		return err
	}
	if err := s.Edit(func(d *shipping.PickupDraft) error {
		d.ReadyBy = readyBy
		d.CloseBy = closeTime
		d.Weight = w
		d.TotalShipments = *shipments
		d.Location = *location
		d.Instructions = *instructions
		if *contactName != "" {
			d.ContactName = *contactName
		}
		if *contactPhone != "" {
			d.ContactPhone = *contactPhone
		}
		return nil
	}); err != nil {
		return err
	}
	if err := s.Save(ctx); err != nil {
		return err
	}

	saved, err := afterSave(s.Snapshot().Items, id)
	if err != nil {
		return err
	}
	a.logger.Info("pickup scheduled",
		zap.String("order_id", id),
		zap.String("confirmation_id", saved.PickupConfirmationID),
	)
	return a.render.Render("pickup", pickupView{
		OrderID:        id,
		ConfirmationID: saved.PickupConfirmationID,
		ReadyBy:        readyBy,
		CloseBy:        closeTime,
	})
}

func (a *App) exportDocuments(ctx context.Context, args []string) error {
	fs := newFlagSet("dispatch export", a.deps.Err)
	var kinds stringList
	fs.Var(&kinds, "kind", "shipment or invoice (repeatable, default both)")
	id, _, err := parseWithID(fs, args)
	if err != nil {
		return err
	}
	if a.deps.Storage == nil {
		return errors.New("document export needs a configured storage")
	}

	var wanted []shipping.DocumentKind
	for _, k := range kinds {
		kind := shipping.DocumentKind(k)
		if kind != shipping.DocumentShipment && kind != shipping.DocumentInvoice {
			return usageErrorf("dispatch export", "unknown document kind %q", k)
		}
		wanted = append(wanted, kind)
	}

	s := store.New[shipping.DispatchOrder, shipping.DispatchOrder](
		shippingapp.NewDispatchReader(a.deps.API),
		storeOptions[shipping.DispatchOrder](a, "dispatch", a.cfg.Pages.DispatchPageSize, nil),
	)
	if err := s.Load(ctx); err != nil {
		return err
	}
	order, ok := find(s.Snapshot().Items, id)
	if !ok {
		return fmt.Errorf("dispatch order %s: %w", id, shared.ErrNotFound)
	}

	docs, err := shippingapp.NewExporter(a.deps.API, a.deps.Storage, a.logger).Export(ctx, order, wanted...)
	if err != nil {
		return err
	}
	return a.render.Render("exported", docs)
}

func (a *App) runShipments(ctx context.Context, args []string) error {
	fs := newFlagSet("shipments", a.deps.Err)
	page := fs.Int("page", 1, "page number")
	query := fs.String("q", "", "filter by AWB, receiver or city")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	s := store.New[shipping.Shipment, shipping.Shipment](
		shippingapp.NewShipmentBinding(a.deps.API),
		storeOptions(a, "shipments", a.cfg.Pages.ShipmentsPageSize, shippingapp.MatchShipment),
	)
	view, err := listPage(ctx, s, *page, *query)
	if err != nil {
		return err
	}
	return a.render.Render("shipments", view)
}

func (a *App) runTrack(ctx context.Context, args []string) error {
	fs := newFlagSet("track", a.deps.Err)
	awb, _, err := parseWithID(fs, args)
	if err != nil {
		return err
	}
	if a.deps.Courier == nil {
		return errNoCourier
	}

	result, err := a.deps.Courier.Track(ctx, awb)
	if err != nil {
		return err
	}
	return a.render.Render("tracking", newTrackingView(result.AWBNumber, result.Details))
}

func (a *App) runLogin(ctx context.Context, args []string) error {
	fs := newFlagSet("login", a.deps.Err)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if a.deps.Session == nil {
		return usageErrorf("login", "auth.type is %q; set it to login with auth.email and auth.password", a.cfg.Auth.Type)
	}

	sess, err := a.deps.Session.Session(ctx)
	if err != nil {
		return err
	}
	return a.render.Render("session", sessionView{Username: sess.Username, ExpiresAt: sess.ExpiresAt})
}
