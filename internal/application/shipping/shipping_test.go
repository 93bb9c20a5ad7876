package shipping

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/erp/console/internal/application/store"
	"github.com/erp/console/internal/application/validation"
	"github.com/erp/console/internal/domain/shared"
	"github.com/erp/console/internal/domain/shipping"
	"github.com/erp/console/internal/infrastructure/client"
	"github.com/erp/console/internal/infrastructure/config"
	"github.com/erp/console/internal/infrastructure/courier"
	"github.com/erp/console/internal/infrastructure/storage"
	"github.com/erp/console/internal/testutil"
)

var fixedNow = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

func newClient(t *testing.T, api *testutil.FakeAPI) *client.Client {
	t.Helper()
	c, err := client.New(config.APIConfig{BaseURL: api.URL(), Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c
}

func newCourier(t *testing.T, api *testutil.FakeAPI) *courier.Adapter {
	t.Helper()
	a, err := courier.NewAdapter(config.CourierConfig{
		BaseURL:      api.URL(),
		PickupPath:   "/api/dhl/schedule-pickup",
		TrackingPath: "/api/dhl/fetch-tracking",
		Shipper:      config.ShipperConfig{AccountNumber: "960123456", CompanyName: "Neightiv"},
	}, nil)
	require.NoError(t, err)
	return a
}

func seedDispatch(api *testutil.FakeAPI) {
	api.SeedDispatch(
		shipping.DispatchOrder{ID: "d1", ReceiverName: "Asha Rao", AWBNo: "1111111111",
			ShipmentPDFPath: "/files/1111111111-shipment.pdf", InvoicePath: "/files/1111111111-invoice.pdf"},
		shipping.DispatchOrder{ID: "d2", ReceiverName: "Ravi Iyer", AWBNo: "2222222222"},
		shipping.DispatchOrder{ID: "d3", ReceiverName: "Meera Das", AWBNo: "3333333333"},
	)
}

func newDispatchStore(t *testing.T, api *testutil.FakeAPI) *store.Store[shipping.DispatchOrder, shipping.PickupDraft] {
	t.Helper()
	b := NewDispatchBinding(newClient(t, api), newCourier(t, api), validation.New(),
		WithClock(func() time.Time { return fixedNow }),
		WithContact(Contact{Name: "Dispatch Desk", Phone: "+91 22 5555 0100"}),
		WithLogger(zaptest.NewLogger(t)),
	)
	s := store.New[shipping.DispatchOrder, shipping.PickupDraft](b, store.Options[shipping.DispatchOrder]{
		Name:     "dispatch",
		PageSize: 10,
		Reverse:  true,
		Match:    MatchDispatch,
	})
	require.NoError(t, s.Load(context.Background()))
	return s
}

func TestDispatch_LatestFirst(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	seedDispatch(api)
	s := newDispatchStore(t, api)

	v := s.Snapshot()
	require.Len(t, v.Items, 3)
	assert.Equal(t, []string{"d3", "d2", "d1"}, []string{v.Items[0].ID, v.Items[1].ID, v.Items[2].ID})

	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, "d3", s.Snapshot().Items[0].ID, "reverse is applied once per load")

	require.NoError(t, s.Search("2222"))
	v = s.Snapshot()
	require.Len(t, v.Visible, 1)
	assert.Equal(t, "d2", v.Visible[0].ID)
}

func TestDispatch_SchedulePickup(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	seedDispatch(api)
	s := newDispatchStore(t, api)
	ctx := context.Background()

	require.NoError(t, s.Select("d2"))
	buf := s.Snapshot().EditBuffer
	require.NotNil(t, buf)
	assert.Equal(t, "d2", buf.OrderID)
	assert.Equal(t, 1, buf.TotalShipments)
	assert.Equal(t, "Dispatch Desk", buf.ContactName)

	require.NoError(t, s.Edit(func(d *shipping.PickupDraft) error {
		d.ReadyBy = fixedNow.Add(2 * time.Hour)
		d.CloseBy = fixedNow.Add(8 * time.Hour)
		d.Weight = decimal.RequireFromString("1.2")
		return nil
	}))
	require.NoError(t, s.Save(ctx))

	v := s.Snapshot()
	assert.Equal(t, store.PhaseReady, v.Phase)
	assert.Equal(t, "PRG000001", v.Items[1].PickupConfirmationID)
	assert.True(t, v.Items[1].PickupScheduled())
	assert.False(t, v.Items[0].PickupScheduled())

	req, ok := api.Last(http.MethodPost, "/api/dhl/schedule-pickup")
	require.True(t, ok)
	var body map[string]any
	require.NoError(t, req.JSON(&body))
	assert.Equal(t, "d2", body["orderId"])
	assert.Equal(t, "960123456", body["accountNumber"])
}

func TestDispatch_PastReadyByRejected(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	seedDispatch(api)
	s := newDispatchStore(t, api)

	require.NoError(t, s.Select("d1"))
	require.NoError(t, s.Edit(func(d *shipping.PickupDraft) error {
		d.ReadyBy = fixedNow.Add(-time.Minute)
		d.CloseBy = fixedNow.Add(time.Hour)
		d.Weight = decimal.NewFromInt(1)
		return nil
	}))

	err := s.Save(context.Background())
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "readyBy", verr.Field)
	assert.Equal(t, store.PhaseEditing, s.Phase())
	assert.Equal(t, 0, api.Count(http.MethodPost, "/api/dhl/schedule-pickup"))
}

func TestDispatch_CourierRejects(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	seedDispatch(api)
	api.Respond(http.MethodPost, "/api/dhl/schedule-pickup", http.StatusOK,
		map[string]any{"status": "failed", "message": "No pickup capacity"})
	s := newDispatchStore(t, api)

	require.NoError(t, s.Select("d1"))
	require.NoError(t, s.Edit(func(d *shipping.PickupDraft) error {
		d.ReadyBy = fixedNow.Add(time.Hour)
		d.CloseBy = fixedNow.Add(3 * time.Hour)
		d.Weight = decimal.NewFromInt(3)
		return nil
	}))

	err := s.Save(context.Background())
	assert.ErrorIs(t, err, courier.ErrPickupRejected)
	v := s.Snapshot()
	assert.Equal(t, store.PhaseEditing, v.Phase)
	assert.False(t, v.Items[2].PickupScheduled())
}

func TestDispatchReader_RejectsPickup(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	seedDispatch(api)
	s := store.New[shipping.DispatchOrder, shipping.DispatchOrder](NewDispatchReader(newClient(t, api)),
		store.Options[shipping.DispatchOrder]{Name: "dispatch", PageSize: 10})

	require.NoError(t, s.Load(context.Background()))
	require.Len(t, s.Snapshot().Items, 3)
	assert.Equal(t, "d1", s.Snapshot().Items[0].ID, "server order without Reverse")

	require.NoError(t, s.Select("d1"))
	require.NoError(t, s.Edit(func(d *shipping.DispatchOrder) error {
		d.PickupConfirmationID = "forged"
		return nil
	}))
	assert.ErrorIs(t, s.Save(context.Background()), store.ErrUnsupported)
	assert.Equal(t, 0, api.Count(http.MethodPost, "/api/dhl/schedule-pickup"))
}

func TestShipments(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.SeedShipments(
		shipping.Shipment{AWBNumber: "1111111111", ReceiverName: "Asha Rao",
			Items: []shipping.ShipmentItem{{Name: "Trail Shoe", Quantity: 1}}},
		shipping.Shipment{AWBNumber: "2222222222", ReceiverName: "Ravi Iyer"},
	)
	s := store.New[shipping.Shipment, shipping.Shipment](NewShipmentBinding(newClient(t, api)),
		store.Options[shipping.Shipment]{Name: "shipments", PageSize: 10, Match: MatchShipment})

	require.NoError(t, s.Load(context.Background()))
	require.NoError(t, s.Search("asha"))
	v := s.Snapshot()
	require.Len(t, v.Visible, 1)
	assert.Equal(t, "1111111111", v.Visible[0].ResourceID())
	assert.Equal(t, "Trail Shoe (x1)", v.Visible[0].ItemSummary())
}

func TestExporter_Export(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.SeedDocument("/1111111111-shipment.pdf", []byte("%PDF shipment"))
	api.SeedDocument("/1111111111-invoice.pdf", []byte("%PDF invoice"))

	dir := t.TempDir()
	target, err := storage.NewLocalStore(dir)
	require.NoError(t, err)
	exp := NewExporter(newClient(t, api), target, zaptest.NewLogger(t))

	order := shipping.DispatchOrder{ID: "d1", AWBNo: "1111111111",
		ShipmentPDFPath: "/files/1111111111-shipment.pdf",
		InvoicePath:     api.URL() + "/files/1111111111-invoice.pdf"}

	docs, err := exp.Export(context.Background(), order)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, shipping.DocumentShipment, docs[0].Kind)

	data, err := os.ReadFile(filepath.Join(dir, "1111111111", "1111111111-invoice.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF invoice", string(data))

	docs, err = exp.Export(context.Background(), order, shipping.DocumentInvoice)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, shipping.DocumentInvoice, docs[0].Kind)

	_, err = exp.Export(context.Background(), shipping.DispatchOrder{ID: "d2"})
	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestExporter_MissingDocument(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	target, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	exp := NewExporter(newClient(t, api), target, nil)

	_, err = exp.Export(context.Background(), shipping.DispatchOrder{ID: "d9", ShipmentPDFPath: "/files/none.pdf"})
	var httpErr *shared.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.Status)
}
