package shipping

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/console/internal/domain/shared"
)

func TestDispatchOrder_Documents(t *testing.T) {
	o := DispatchOrder{ID: "d1", ShipmentPDFPath: "https://api.example.com/pdf/awb/123.pdf"}
	docs := o.Documents()
	require.Len(t, docs, 1)
	assert.Equal(t, DocumentShipment, docs[0].Kind)
	assert.Equal(t, "123.pdf", docs[0].FileName())

	o.InvoicePath = "/invoices/inv-9.pdf"
	assert.Len(t, o.Documents(), 2)
	assert.False(t, o.PickupScheduled())
}

func TestShipment(t *testing.T) {
	body := `{"shipments":[{"awbNumber":"123","receiverName":"R","declaredValue":250.5,"weight":"1.2","items":[{"name":"Rug","quantity":2},{"name":"Mat","quantity":1}]}]}`
	var wrapper struct {
		Shipments []Shipment `json:"shipments"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &wrapper))
	s := wrapper.Shipments[0]

	assert.Equal(t, "123", s.ResourceID())
	assert.Equal(t, "Rug (x2), Mat (x1)", s.ItemSummary())
	assert.True(t, s.Weight.Equal(decimal.RequireFromString("1.2")))

	s.ID = "mongo-id"
	assert.Equal(t, "mongo-id", s.ResourceID())
}

func TestPickupDraft_Check(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	valid := PickupDraft{
		OrderID:        "d1",
		ReadyBy:        now.Add(time.Hour),
		CloseBy:        now.Add(4 * time.Hour),
		Weight:         decimal.NewFromInt(5),
		TotalShipments: 2,
	}
	require.NoError(t, valid.Check(now))

	atNow := valid
	atNow.ReadyBy = now
	assert.NoError(t, atNow.Check(now), "readyBy equal to now is allowed")

	tests := []struct {
		name  string
		mut   func(*PickupDraft)
		field string
	}{
		{"past readyBy", func(d *PickupDraft) { d.ReadyBy = now.Add(-time.Minute) }, "readyBy"},
		{"closeBy equal to readyBy", func(d *PickupDraft) { d.CloseBy = d.ReadyBy }, "closeBy"},
		{"closeBy before readyBy", func(d *PickupDraft) { d.CloseBy = d.ReadyBy.Add(-time.Minute) }, "closeBy"},
		{"zero weight", func(d *PickupDraft) { d.Weight = decimal.Zero }, "weight"},
		{"negative weight", func(d *PickupDraft) { d.Weight = decimal.NewFromInt(-1) }, "weight"},
		{"no shipments", func(d *PickupDraft) { d.TotalShipments = 0 }, "totalShipments"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid
			tt.mut(&d)
			var ve *shared.ValidationError
			require.ErrorAs(t, d.Check(now), &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestNewPickupDraft(t *testing.T) {
	d := NewPickupDraft(DispatchOrder{ID: "d7"})
	assert.Equal(t, "d7", d.OrderID)
	assert.Equal(t, 1, d.TotalShipments)
}
