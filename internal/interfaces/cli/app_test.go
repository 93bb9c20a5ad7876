package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/erp/console/internal/domain/catalog"
	"github.com/erp/console/internal/domain/inventory"
	"github.com/erp/console/internal/domain/shared"
	"github.com/erp/console/internal/domain/shipping"
	"github.com/erp/console/internal/domain/trade"
	"github.com/erp/console/internal/infrastructure/auth"
	"github.com/erp/console/internal/infrastructure/client"
	"github.com/erp/console/internal/infrastructure/config"
	"github.com/erp/console/internal/infrastructure/courier"
	"github.com/erp/console/internal/infrastructure/storage"
	"github.com/erp/console/internal/testutil"
)

var fixedNow = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type harness struct {
	api     *testutil.FakeAPI
	cfg     *config.Config
	dir     string
	session auth.SessionSource
	out     bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	api := testutil.NewFakeAPI(t)
	return &harness{
		api: api,
		dir: t.TempDir(),
		cfg: &config.Config{
			App:  config.AppConfig{Locale: "en", Currency: "$"},
			API:  config.APIConfig{BaseURL: api.URL(), SalesBaseURL: api.URL() + testutil.SalesPrefix, Timeout: 5 * time.Second},
			Auth: config.AuthConfig{Type: "none"},
			Pages: config.PagesConfig{
				ProductsPageSize:  7,
				InventoryPageSize: 7,
				OrdersPageSize:    6,
				DispatchPageSize:  10,
				ShipmentsPageSize: 10,
			},
			Courier: config.CourierConfig{
				BaseURL:      api.URL(),
				PickupPath:   "/api/dhl/schedule-pickup",
				TrackingPath: "/api/dhl/fetch-tracking",
				Timeout:      5 * time.Second,
				Shipper: config.ShipperConfig{
					AccountNumber: "960123456",
					ContactName:   "Dispatch Desk",
					Phone:         "+91 22 5555 0100",
				},
			},
			Media: config.MediaConfig{BaseURL: "https://cdn.example.com"},
		},
	}
}

func (h *harness) run(t *testing.T, format string, args ...string) error {
	t.Helper()
	h.out.Reset()

	api, err := client.New(h.cfg.API)
	require.NoError(t, err)
	sales, err := client.New(config.APIConfig{BaseURL: h.cfg.API.SalesBaseURL, Timeout: h.cfg.API.Timeout})
	require.NoError(t, err)
	cour, err := courier.NewAdapter(h.cfg.Courier, nil)
	require.NoError(t, err)
	st, err := storage.NewLocalStore(h.dir)
	require.NoError(t, err)

	app, err := New(Deps{
		Config:  h.cfg,
		API:     api,
		Sales:   sales,
		Courier: cour,
		Storage: st,
		Session: h.session,
		Logger:  zaptest.NewLogger(t),
		Out:     &h.out,
		Err:     &bytes.Buffer{},
		Now:     func() time.Time { return fixedNow },
	}, format)
	require.NoError(t, err)
	return app.Run(context.Background(), args)
}

func seedShoes(api *testutil.FakeAPI, n int) {
	products := make([]catalog.Product, 0, n)
	for i := 1; i <= n; i++ {
		products = append(products, catalog.Product{
			ID:          fmt.Sprintf("p%d", i),
			Name:        fmt.Sprintf("Shoe %d", i),
			Description: "Running shoe",
			Amount:      decimal.NewFromInt(int64(1000 + i)),
			Images:      []string{"uploads/a.png", "uploads/b.png"},
		})
	}
	api.SeedProducts(products...)
}

func TestApp_ProductsListPages(t *testing.T) {
	h := newHarness(t)
	seedShoes(h.api, 9)

	require.NoError(t, h.run(t, FormatTable, "products", "list", "-page", "2"))
	assert.Contains(t, h.out.String(), "Shoe 8")
	assert.Contains(t, h.out.String(), "Shoe 9")
	assert.NotContains(t, h.out.String(), "Shoe 7")
	assert.Contains(t, h.out.String(), "page 2 of 2, 9 item(s)")

	require.NoError(t, h.run(t, FormatJSON, "products", "list", "-q", "shoe 3"))
	var view struct {
		Items []catalog.Product `json:"items"`
		Total int               `json:"total"`
		Query string            `json:"query"`
	}
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &view))
	assert.Equal(t, 1, view.Total)
	assert.Equal(t, "shoe 3", view.Query)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "p3", view.Items[0].ID)
}

func TestApp_ProductsShow(t *testing.T) {
	h := newHarness(t)
	seedShoes(h.api, 2)

	require.NoError(t, h.run(t, FormatTable, "products", "show", "p2"))
	assert.Contains(t, h.out.String(), "Shoe 2")
	assert.Contains(t, h.out.String(), "https://cdn.example.com/uploads/b.png")

	err := h.run(t, FormatTable, "products", "show", "p9")
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Equal(t, ExitFailure, ExitCode(err))
}

func TestApp_ProductsUpdateReplacesSlot(t *testing.T) {
	h := newHarness(t)
	seedShoes(h.api, 1)
	require.NoError(t, os.WriteFile(filepath.Join(h.dir, "new.png"), pngHeader, 0o644))

	require.NoError(t, h.run(t, FormatTable, "products", "update", "p1",
		"-name", "Trail Shoe v2", "-slot", "1=new.png"))
	assert.Contains(t, h.out.String(), "Product updated")
	assert.Contains(t, h.out.String(), "Trail Shoe v2")

	req, ok := h.api.Last(http.MethodPut, "/api/products/:id")
	require.True(t, ok)
	assert.Equal(t, []string{"Trail Shoe v2"}, req.Form["name"])
	assert.JSONEq(t, `["uploads/a.png"]`, req.Form["existingImages"][0])
	assert.JSONEq(t, `["uploads/b.png"]`, req.Form["imagesToDelete"][0])
	assert.Equal(t, []string{"new.png"}, req.Files["images"])

	assert.Equal(t, []string{"uploads/a.png", "uploads/new.png"}, h.api.Products()[0].Images)
}

func TestApp_ProductsUpdateMissingImage(t *testing.T) {
	h := newHarness(t)
	seedShoes(h.api, 1)

	err := h.run(t, FormatTable, "products", "update", "p1", "-slot", "0=missing.png")
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
	assert.Equal(t, 0, h.api.Count(http.MethodPut, "/api/products/:id"))
}

func TestApp_ProductsUpdateWithoutChanges(t *testing.T) {
	h := newHarness(t)
	seedShoes(h.api, 1)

	err := h.run(t, FormatTable, "products", "update", "p1")
	require.ErrorIs(t, err, shared.ErrNothingToSave)
	assert.Equal(t, ExitConflict, ExitCode(err))
	assert.Equal(t, "nothing to save: no field was changed", Describe(err))
	assert.Equal(t, 0, h.api.Count(http.MethodPut, "/api/products/:id"))

	err = h.run(t, FormatTable, "products", "update", "p1", "-name", "Shoe 1")
	require.ErrorIs(t, err, shared.ErrNothingToSave)
	assert.Equal(t, 0, h.api.Count(http.MethodPut, "/api/products/:id"))
}

func TestApp_ProductsCreateNeedsImage(t *testing.T) {
	h := newHarness(t)

	err := h.run(t, FormatTable, "products", "create",
		"-name", "Trail Shoe", "-description", "Grippy", "-amount", "1499")
	assert.Equal(t, ExitValidation, ExitCode(err))
	assert.Equal(t, 0, h.api.Count(http.MethodPost, "/api/products"))
}

func TestApp_ProductsCreate(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.WriteFile(filepath.Join(h.dir, "front.png"), pngHeader, 0o644))

	require.NoError(t, h.run(t, FormatTable, "products", "create",
		"-name", "Trail Shoe", "-description", "Grippy", "-amount", "1499", "-image", "front.png"))
	assert.Contains(t, h.out.String(), "Product created")

	products := h.api.Products()
	require.Len(t, products, 1)
	assert.Equal(t, "Trail Shoe", products[0].Name)
	assert.Equal(t, []string{"uploads/front.png"}, products[0].Images)
}

func TestApp_ProductsDelete(t *testing.T) {
	h := newHarness(t)
	seedShoes(h.api, 2)

	require.NoError(t, h.run(t, FormatTable, "products", "delete", "p1"))
	assert.Equal(t, "Product p1 deleted\n", h.out.String())
	require.Len(t, h.api.Products(), 1)

	err := h.run(t, FormatTable, "products", "delete", "p1")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestApp_ServerErrorMapsToNetworkExit(t *testing.T) {
	h := newHarness(t)
	h.api.Respond(http.MethodGet, "/api/products", http.StatusInternalServerError, map[string]any{"error": "boom"})

	err := h.run(t, FormatTable, "products", "list")
	require.Error(t, err)
	assert.Equal(t, ExitNetwork, ExitCode(err))
	assert.Equal(t, "server error (500): boom", Describe(err))
}

func TestApp_Inventory(t *testing.T) {
	h := newHarness(t)
	h.api.SeedStock(
		inventory.StockRow{ID: "p1", Name: "Trail Shoe", SoldStock: 40, Stock: 2},
		inventory.StockRow{ID: "p2", Name: "Road Shoe", SoldStock: 12, Stock: 30},
	)

	require.NoError(t, h.run(t, FormatJSON, "inventory", "-low", "3"))
	var view struct {
		Items     []inventory.StockRow `json:"items"`
		Threshold int                  `json:"lowStockThreshold"`
	}
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &view))
	assert.Len(t, view.Items, 2)
	assert.Equal(t, 3, view.Threshold)

	require.NoError(t, h.run(t, FormatTable, "inventory", "-q", "trail", "-low", "3"))
	assert.Contains(t, h.out.String(), "yes")
	assert.NotContains(t, h.out.String(), "Road Shoe")
}

func TestApp_Dashboard(t *testing.T) {
	h := newHarness(t)
	h.api.SeedSales(
		catalog.SalesRecord{Name: "a", CreatedDate: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), Sold: 4},
		catalog.SalesRecord{Name: "b", CreatedDate: time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC), Sold: 1},
		catalog.SalesRecord{Name: "c", CreatedDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), Sold: 9},
	)

	require.NoError(t, h.run(t, FormatJSON, "dashboard", "-year", "2026"))
	var view dashboardView
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &view))
	require.Len(t, view.Months, 12)
	assert.Equal(t, "March", view.Months[2].Month)
	assert.Equal(t, 5, view.Months[2].Sold)
	assert.Equal(t, 5, view.Total)

	require.NoError(t, h.run(t, FormatTable, "dashboard"))
	assert.Contains(t, h.out.String(), "Total 2026")
}

func TestApp_OrdersSetStatus(t *testing.T) {
	h := newHarness(t)
	h.api.SeedOrders(
		trade.Order{ID: "o1", Address: trade.Address{FirstName: "Asha", LastName: "Rao"}, Amount: decimal.NewFromInt(4999)},
		trade.Order{ID: "o2", Address: trade.Address{FirstName: "Ravi", LastName: "Iyer"}, Amount: decimal.NewFromInt(1299)},
	)

	require.NoError(t, h.run(t, FormatTable, "orders", "set-status", "o1", "ready", "for", "dispatch"))
	assert.Contains(t, h.out.String(), "Order o1 is now Ready for Dispatch")
	assert.Equal(t, trade.OrderStatusReadyForDispatch, h.api.Orders()[0].Status)

	err := h.run(t, FormatTable, "orders", "set-status", "o2", "Lost")
	assert.Equal(t, ExitValidation, ExitCode(err))

	err = h.run(t, FormatTable, "orders", "set-status", "o2")
	assert.Equal(t, ExitUsage, ExitCode(err))

	require.NoError(t, h.run(t, FormatTable, "orders", "list"))
	assert.Contains(t, h.out.String(), "Asha Rao")
	assert.Contains(t, h.out.String(), "Ready for Dispatch")
}

func seedDispatch(api *testutil.FakeAPI) {
	api.SeedDispatch(
		shipping.DispatchOrder{ID: "d1", ReceiverName: "Asha Rao", AWBNo: "1111111111",
			ShipmentPDFPath: "/files/1111111111-shipment.pdf", InvoicePath: "/files/1111111111-invoice.pdf"},
		shipping.DispatchOrder{ID: "d2", ReceiverName: "Ravi Iyer", AWBNo: "2222222222"},
	)
}

func TestApp_DispatchPickup(t *testing.T) {
	h := newHarness(t)
	seedDispatch(h.api)

	require.NoError(t, h.run(t, FormatJSON, "dispatch", "pickup", "d2",
		"-ready", "+2h", "-close", "+6h", "-weight", "1.5"))
	var view pickupView
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &view))
	assert.Equal(t, "d2", view.OrderID)
	assert.Equal(t, "PRG000001", view.ConfirmationID)
	assert.True(t, view.ReadyBy.Equal(fixedNow.Add(2*time.Hour)))

	req, ok := h.api.Last(http.MethodPost, "/api/dhl/schedule-pickup")
	require.True(t, ok)
	var body map[string]any
	require.NoError(t, req.JSON(&body))
	assert.Equal(t, "d2", body["orderId"])
	assert.Equal(t, "Dispatch Desk", body["contact"].(map[string]any)["name"])
}

func TestApp_DispatchPickupInPast(t *testing.T) {
	h := newHarness(t)
	seedDispatch(h.api)

	err := h.run(t, FormatTable, "dispatch", "pickup", "d1",
		"-ready", "2026-10-16 10:00", "-close", "2026-10-16 18:00", "-weight", "1")
	assert.Equal(t, ExitValidation, ExitCode(err))
	assert.Equal(t, 0, h.api.Count(http.MethodPost, "/api/dhl/schedule-pickup"))

	err = h.run(t, FormatTable, "dispatch", "pickup", "d1", "-ready", "soon", "-close", "+1h", "-weight", "1")
	assert.Equal(t, ExitUsage, ExitCode(err))
}

func TestApp_DispatchListLatestFirst(t *testing.T) {
	h := newHarness(t)
	seedDispatch(h.api)

	require.NoError(t, h.run(t, FormatJSON, "dispatch", "list"))
	var view struct {
		Items []shipping.DispatchOrder `json:"items"`
	}
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &view))
	require.Len(t, view.Items, 2)
	assert.Equal(t, "d2", view.Items[0].ID)
}

func TestApp_DispatchExport(t *testing.T) {
	h := newHarness(t)
	seedDispatch(h.api)
	h.api.SeedDocument("/1111111111-invoice.pdf", []byte("%PDF invoice"))

	require.NoError(t, h.run(t, FormatTable, "dispatch", "export", "d1", "-kind", "invoice"))
	assert.Contains(t, h.out.String(), "Invoice")

	data, err := os.ReadFile(filepath.Join(h.dir, "1111111111", "1111111111-invoice.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF invoice", string(data))

	err = h.run(t, FormatTable, "dispatch", "export", "d1", "-kind", "label")
	assert.Equal(t, ExitUsage, ExitCode(err))
}

func TestApp_ShipmentsAndTracking(t *testing.T) {
	h := newHarness(t)
	h.api.SeedShipments(
		shipping.Shipment{AWBNumber: "1111111111", ReceiverName: "Asha Rao", ReceiverCity: "Pune",
			Items: []shipping.ShipmentItem{{Name: "Trail Shoe", Quantity: 2}}},
	)
	h.api.SeedTracking("1111111111", `{"status":"Delivered"}`)

	require.NoError(t, h.run(t, FormatTable, "shipments"))
	assert.Contains(t, h.out.String(), "Trail Shoe (x2)")

	require.NoError(t, h.run(t, FormatTable, "track", "1111111111"))
	assert.Contains(t, h.out.String(), "Delivered")

	err := h.run(t, FormatTable, "track", "9999999999")
	assert.Equal(t, ExitNetwork, ExitCode(err))
}

func TestApp_Login(t *testing.T) {
	h := newHarness(t)

	err := h.run(t, FormatTable, "login")
	assert.Equal(t, ExitUsage, ExitCode(err))

	h.api.AllowLogin("admin@example.com", "secret", "admin", "tok-1")
	loginClient, err := client.New(h.cfg.API)
	require.NoError(t, err)
	h.session = auth.NewLoginSource(loginClient, "/api/admin/login",
		auth.Credentials{Email: "admin@example.com", Password: "secret"}, time.Hour)

	require.NoError(t, h.run(t, FormatTable, "login"))
	assert.Contains(t, h.out.String(), "Logged in as admin")
}

func TestApp_UnknownCommand(t *testing.T) {
	h := newHarness(t)

	err := h.run(t, FormatTable, "refunds")
	assert.Equal(t, ExitUsage, ExitCode(err))

	err = h.run(t, FormatTable)
	assert.Equal(t, ExitUsage, ExitCode(err))

	assert.NoError(t, h.run(t, FormatTable, "help"))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"help", flag.ErrHelp, ExitOK},
		{"usage", usageErrorf("x", "bad"), ExitUsage},
		{"validation", shared.NewValidationError("name", "required"), ExitValidation},
		{"conflict", shared.NewConflictError("save", "Saving"), ExitConflict},
		{"http", fmt.Errorf("wrapped: %w", shared.NewHTTPError(502, "bad gateway")), ExitNetwork},
		{"transport", &shared.TransportError{Method: "GET", URL: "http://x", Err: errors.New("refused")}, ExitNetwork},
		{"other", errors.New("disk full"), ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestAfterSave(t *testing.T) {
	items := []trade.Order{{ID: "o1"}, {ID: "o2"}}

	got, err := afterSave(items, "o2")
	require.NoError(t, err)
	assert.Equal(t, "o2", got.ID)

	_, err = afterSave(items, "o9")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestParseWithID(t *testing.T) {
	fs := newFlagSet("x", &bytes.Buffer{})
	name := fs.String("name", "", "")
	id, rest, err := parseWithID(fs, []string{"-name", "n", "p1", "extra"})
	require.NoError(t, err)
	assert.Equal(t, "p1", id)
	assert.Equal(t, []string{"extra"}, rest)
	assert.Equal(t, "n", *name)

	fs = newFlagSet("x", &bytes.Buffer{})
	_, _, err = parseWithID(fs, nil)
	assert.Equal(t, ExitUsage, ExitCode(err))
}

func TestParseTime(t *testing.T) {
	got, err := parseTime("+90m", fixedNow, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Add(90*time.Minute), got)

	got, err = parseTime("2026-10-18 10:30", fixedNow, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 18, 10, 30, 0, 0, time.UTC), got)

	_, err = parseTime("tomorrow", fixedNow, time.UTC)
	assert.Error(t, err)
}
