package cli

import (
	"context"
	"strings"

	"github.com/erp/console/internal/application/store"
	tradeapp "github.com/erp/console/internal/application/trade"
	"github.com/erp/console/internal/domain/trade"
)

func (a *App) orderStore() *store.Store[trade.Order, trade.StatusDraft] {
	return store.New[trade.Order, trade.StatusDraft](
		tradeapp.NewOrderBinding(a.deps.API, a.validator),
		storeOptions[trade.Order](a, "orders", a.cfg.Pages.OrdersPageSize, nil),
	)
}

func (a *App) runOrders(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageErrorf("orders", "expected list or set-status")
	}
	switch args[0] {
	case "list":
		fs := newFlagSet("orders list", a.deps.Err)
		page := fs.Int("page", 1, "page number")
		if err := parseFlags(fs, args[1:]); err != nil {
			return err
		}
		view, err := listPage(ctx, a.orderStore(), *page, "")
		if err != nil {
			return err
		}
		return a.render.Render("orders", view)
	case "set-status":
		return a.setOrderStatus(ctx, args[1:])
	default:
		return usageErrorf("orders", "unknown subcommand %q", args[0])
	}
}

func (a *App) setOrderStatus(ctx context.Context, args []string) error {
	fs := newFlagSet("orders set-status", a.deps.Err)
	id, rest, err := parseWithID(fs, args)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return usageErrorf("orders set-status", "a status is required")
	}
	status, err := trade.ParseOrderStatus(strings.Join(rest, " "))
	if err != nil {
		return err
	}

	s := a.orderStore()
	if err := s.Load(ctx); err != nil {
		return err
	}
	if err := focus(s, id); err != nil {
		return err
	}
	if err := s.Edit(func(d *trade.StatusDraft) error {
		d.Status = status
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
	a.render.Message("Order %s is now %s", id, saved.EffectiveStatus())
	return a.render.Render("order", saved)
}
