package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/shopspring/decimal"

	catalogapp "github.com/erp/console/internal/application/catalog"
	"github.com/erp/console/internal/application/store"
	"github.com/erp/console/internal/domain/catalog"
	"github.com/erp/console/internal/domain/inventory"
	"github.com/erp/console/internal/domain/shared"
	"github.com/erp/console/internal/infrastructure/storage"
)

func (a *App) productStore() *store.Store[catalog.Product, catalog.ProductDraft] {
	return store.New[catalog.Product, catalog.ProductDraft](
		catalogapp.NewProductBinding(a.deps.API, a.validator),
		storeOptions(a, "products", a.cfg.Pages.ProductsPageSize, catalogapp.MatchProduct),
	)
}

func (a *App) runProducts(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageErrorf("products", "expected list, show, create, update or delete")
	}
	switch args[0] {
	case "list":
		return a.listProducts(ctx, args[1:])
	case "show":
		return a.showProduct(ctx, args[1:])
	case "create":
		return a.createProduct(ctx, args[1:])
	case "update":
		return a.updateProduct(ctx, args[1:])
	case "delete":
		return a.deleteProduct(ctx, args[1:])
	default:
		return usageErrorf("products", "unknown subcommand %q", args[0])
	}
}

func (a *App) listProducts(ctx context.Context, args []string) error {
	fs := newFlagSet("products list", a.deps.Err)
	page := fs.Int("page", 1, "page number")
	query := fs.String("q", "", "filter by name")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	view, err := listPage(ctx, a.productStore(), *page, *query)
	if err != nil {
		return err
	}
	return a.render.Render("products", view)
}

func (a *App) showProduct(ctx context.Context, args []string) error {
	fs := newFlagSet("products show", a.deps.Err)
	id, _, err := parseWithID(fs, args)
	if err != nil {
		return err
	}

	s := a.productStore()
	if err := s.Load(ctx); err != nil {
		return err
	}
	p, ok := find(s.Snapshot().Items, id)
	if !ok {
		return fmt.Errorf("product %s: %w", id, shared.ErrNotFound)
	}
	return a.render.Render("product", a.productView(p))
}

// productFields are the text fields shared by create and update
type productFields struct {
	name, description, details, amount, dimension, sku *string
}

func (f productFields) apply(d *catalog.ProductDraft, set map[string]bool) error {
	if set["name"] {
		d.Name = *f.name
	}
	if set["description"] {
		d.Description = *f.description
	}
	if set["details"] {
		d.Details = *f.details
	}
	if set["dimension"] {
		d.Dimension = *f.dimension
	}
	if set["sku"] {
		d.SKU = *f.sku
	}
	if set["amount"] {
		amount, err := decimal.NewFromString(*f.amount)
		if err != nil {
			return usageErrorf("products", "amount %q is not a number", *f.amount)
		}
		d.Amount = amount
	}
	return nil
}

func (a *App) createProduct(ctx context.Context, args []string) error {
	fs := newFlagSet("products create", a.deps.Err)
	fields := productFlags(fs)
	var images stringList
	fs.Var(&images, "image", "image path in storage (repeatable, up to 7)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if len(images) > catalog.SlotCount {
		return usageErrorf("products create", "at most %d images", catalog.SlotCount)
	}

	attachments, err := a.attachments(ctx, images)
	if err != nil {
		return err
	}

	s := a.productStore()
	if err := s.Load(ctx); err != nil {
		return err
	}
	if err := s.Compose(); err != nil {
		return err
	}
	err = s.Edit(func(d *catalog.ProductDraft) error {
		if err := fields.apply(d, setFlags(fs)); err != nil {
			return err
		}
		for i, att := range attachments {
			if err := d.Images.Replace(i, att); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	before := len(s.Snapshot().Items)
	if err := s.Save(ctx); err != nil {
		return err
	}

	items := s.Snapshot().Items
	if len(items) > before {
		a.render.Message("Product created")
		return a.render.Render("product", a.productView(items[len(items)-1]))
	}
	a.render.Message("Product created; the list was refreshed")
	return nil
}

func (a *App) updateProduct(ctx context.Context, args []string) error {
	fs := newFlagSet("products update", a.deps.Err)
	fields := productFlags(fs)
	var slots stringList
	var removed intList
	fs.Var(&slots, "slot", "replace image slot, index=path (repeatable)")
	fs.Var(&removed, "remove-slot", "clear image slot by index (repeatable)")
	id, _, err := parseWithID(fs, args)
	if err != nil {
		return err
	}

	type replacement struct {
		index int
		key   string
	}
	replacements := make([]replacement, 0, len(slots))
	keys := make([]string, 0, len(slots))
	for _, v := range slots {
		i, key, err := parseSlot(v)
		if err != nil {
			return usageErrorf("products update", "%v", err)
		}
		replacements = append(replacements, replacement{index: i, key: key})
		keys = append(keys, key)
	}
	attachments, err := a.attachments(ctx, keys)
	if err != nil {
		return err
	}

	s := a.productStore()
	if err := s.Load(ctx); err != nil {
		return err
	}
	if err := focus(s, id); err != nil {
		return err
	}
	err = s.Edit(func(d *catalog.ProductDraft) error {
		if err := fields.apply(d, setFlags(fs)); err != nil {
			return err
		}
		for _, i := range removed {
			if err := d.Images.Remove(i); err != nil {
				return err
			}
		}
		for n, r := range replacements {
			if err := d.Images.Replace(r.index, attachments[n]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := s.Save(ctx); err != nil {
		return err
	}

	saved, err := afterSave(s.Snapshot().Items, id)
	if err != nil {
		return err
	}
	a.render.Message("Product updated")
	return a.render.Render("product", a.productView(saved))
}

func (a *App) deleteProduct(ctx context.Context, args []string) error {
	fs := newFlagSet("products delete", a.deps.Err)
	id, _, err := parseWithID(fs, args)
	if err != nil {
		return err
	}

	s := a.productStore()
	if err := s.Load(ctx); err != nil {
		return err
	}
	if err := s.Remove(ctx, id); err != nil {
		return err
	}
	a.render.Message("Product %s deleted", id)
	return nil
}

func productFlags(fs *flag.FlagSet) productFields {
	return productFields{
		name:        fs.String("name", "", "product name"),
		description: fs.String("description", "", "description"),
		details:     fs.String("details", "", "long details"),
		amount:      fs.String("amount", "", "price, e.g. 1499.00"),
		dimension:   fs.String("dimension", "", "dimensions"),
		sku:         fs.String("sku", "", "stock keeping unit"),
	}
}

// attachments stats every key before the edit starts, so no storage I/O
// happens while the store holds its lock
func (a *App) attachments(ctx context.Context, keys []string) ([]catalog.Attachment, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	if a.deps.Storage == nil {
		return nil, fmt.Errorf("image uploads need a configured storage")
	}
	out := make([]catalog.Attachment, 0, len(keys))
	for _, key := range keys {
		att, err := storage.Attachment(ctx, a.deps.Storage, key)
		if err != nil {
			return nil, fmt.Errorf("image %s: %w", key, err)
		}
		out = append(out, att)
	}
	return out, nil
}

func (a *App) productView(p catalog.Product) productView {
	urls := make([]string, 0, len(p.Images))
	for _, ref := range p.Images {
		urls = append(urls, mediaURL(a.cfg.Media.BaseURL, ref))
	}
	return productView{Product: p, ImageURLs: urls}
}

func (a *App) runInventory(ctx context.Context, args []string) error {
	fs := newFlagSet("inventory", a.deps.Err)
	page := fs.Int("page", 1, "page number")
	query := fs.String("q", "", "filter by product name")
	low := fs.Int("low", 5, "flag rows at or below this stock")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	s := store.New[inventory.StockRow, inventory.StockRow](
		catalogapp.NewInventoryBinding(a.deps.API),
		storeOptions(a, "inventory", a.cfg.Pages.InventoryPageSize, catalogapp.MatchStock),
	)
	view, err := listPage(ctx, s, *page, *query)
	if err != nil {
		return err
	}
	return a.render.Render("inventory", inventoryView{listView: view, Threshold: *low})
}

func (a *App) runDashboard(ctx context.Context, args []string) error {
	fs := newFlagSet("dashboard", a.deps.Err)
	year := fs.Int("year", 0, "calendar year (default: current year)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	y := *year
	if y == 0 {
		y = a.deps.Now().Year()
	}
	monthly, err := catalogapp.NewSalesReport(a.deps.Sales).Monthly(ctx, y)
	if err != nil {
		return err
	}
	return a.render.Render("dashboard", newDashboardView(y, monthly))
}
