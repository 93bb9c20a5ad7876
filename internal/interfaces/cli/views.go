package cli

import (
	"encoding/json"
	"time"

	"github.com/erp/console/internal/application/store"
	"github.com/erp/console/internal/domain/catalog"
	"github.com/erp/console/internal/domain/inventory"
)

// listView is one page of a store as printed by list commands
type listView[T any] struct {
	Items     []T    `json:"items" yaml:"items"`
	Page      int    `json:"page" yaml:"page"`
	PageCount int    `json:"pageCount" yaml:"page_count"`
	PageSize  int    `json:"pageSize" yaml:"page_size"`
	Total     int    `json:"total" yaml:"total"`
	Query     string `json:"query,omitempty" yaml:"query,omitempty"`
}

func newListView[T any, D any](v store.View[T, D]) listView[T] {
	return listView[T]{
		Items:     v.Visible,
		Page:      v.Page,
		PageCount: v.PageCount,
		PageSize:  v.PageSize,
		Total:     v.Total,
		Query:     v.Query,
	}
}

// Offset is the 1-based row number of the first item on the page
func (v listView[T]) Offset() int {
	return (v.Page-1)*v.PageSize + 1
}

type inventoryView struct {
	listView[inventory.StockRow] `yaml:",inline"`
	Threshold                    int `json:"lowStockThreshold" yaml:"low_stock_threshold"`
}

type productView struct {
	Product   catalog.Product `json:"product" yaml:"product"`
	ImageURLs []string        `json:"imageUrls" yaml:"image_urls"`
}

type trackingView struct {
	AWBNumber string `json:"awbNumber" yaml:"awb_number"`
	Details   any    `json:"trackingDetails" yaml:"tracking_details"`
	// Status is the details as compact JSON for table output
	Status string `json:"-" yaml:"-"`
}

func newTrackingView(awb string, raw json.RawMessage) trackingView {
	v := trackingView{AWBNumber: awb, Status: string(raw)}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &v.Details)
	}
	return v
}

type monthSales struct {
	Month string `json:"month" yaml:"month"`
	Sold  int    `json:"sold" yaml:"sold"`
}

type dashboardView struct {
	Year   int          `json:"year" yaml:"year"`
	Months []monthSales `json:"months" yaml:"months"`
	Total  int          `json:"total" yaml:"total"`
}

func newDashboardView(year int, m catalog.MonthlySales) dashboardView {
	v := dashboardView{Year: year, Total: m.Total()}
	for i, sold := range m {
		v.Months = append(v.Months, monthSales{Month: time.Month(i + 1).String(), Sold: sold})
	}
	return v
}

type pickupView struct {
	OrderID        string    `json:"orderId" yaml:"order_id"`
	ConfirmationID string    `json:"confirmationId" yaml:"confirmation_id"`
	ReadyBy        time.Time `json:"readyBy" yaml:"ready_by"`
	CloseBy        time.Time `json:"closeBy" yaml:"close_by"`
}

type sessionView struct {
	Username  string    `json:"username" yaml:"username"`
	ExpiresAt time.Time `json:"expiresAt" yaml:"expires_at"`
}

// views are the table layouts; columns are tab separated
const views = `
{{define "footer"}}page {{.Page}} of {{.PageCount}}, {{number .Total}} item(s){{if .Query}} matching "{{.Query}}"{{end}}
{{end}}

{{define "products"}}ID	NAME	AMOUNT	SKU	IMAGES
{{range .Items}}{{.ID}}	{{truncate 32 .Name}}	{{money .Amount}}	{{default "-" .SKU}}	{{len .Images}}
{{end}}{{template "footer" .}}{{end}}

{{define "product"}}ID:	{{.Product.ID}}
Name:	{{.Product.Name}}
Description:	{{truncate 80 .Product.Description}}
Details:	{{default "-" (truncate 80 .Product.Details)}}
Amount:	{{money .Product.Amount}}
Dimension:	{{default "-" .Product.Dimension}}
SKU:	{{default "-" .Product.SKU}}
Created:	{{default "-" (date .Product.CreatedAt)}}
{{range $i, $url := .ImageURLs}}Image {{add $i 1}}:	{{$url}}
{{end}}{{end}}

{{define "inventory"}}ID	PRODUCT	SOLD	STOCK	LOW
{{range .Items}}{{.ID}}	{{truncate 32 .Name}}	{{number .SoldStock}}	{{number .Stock}}	{{yesno (.LowStock $.Threshold)}}
{{end}}{{template "footer" .}}{{end}}

{{define "orders"}}ID	CUSTOMER	PRODUCT	QTY	AMOUNT	PAYMENT	STATUS	CREATED
{{range .Items}}{{.ID}}	{{.Address.FullName}}	{{default "-" (truncate 24 .ProductName)}}	{{.Quantity}}	{{money .Amount}}	{{default "-" .PaymentMode}}	{{.EffectiveStatus}}	{{date .CreatedAt}}
{{end}}{{template "footer" .}}{{end}}

{{define "order"}}ID:	{{.ID}}
Customer:	{{.Address.FullName}}
Phone:	{{default "-" .Address.Phone}}
Address:	{{default "-" .Address.Street}} {{.Address.City}} {{.Address.PostalCode}}
Amount:	{{money .Amount}}
Payment:	{{default "-" .PaymentMode}}
Status:	{{.EffectiveStatus}}
{{end}}

{{define "dispatch"}}#	ID	RECEIVER	PHONE	AWB	SHIPMENT PDF	INVOICE	PICKUP
{{range $i, $o := .Items}}{{add $i $.Offset}}	{{$o.ID}}	{{default "N/A" $o.ReceiverName}}	{{default "N/A" $o.ReceiverPhone}}	{{default "N/A" $o.AWBNo}}	{{yesno (ne $o.ShipmentPDFPath "")}}	{{yesno (ne $o.InvoicePath "")}}	{{default "-" $o.PickupConfirmationID}}
{{end}}{{template "footer" .}}{{end}}

{{define "shipments"}}AWB	RECEIVER	CITY	COUNTRY	VALUE	WEIGHT	CREATED	ITEMS
{{range .Items}}{{.AWBNumber}}	{{.ReceiverName}}	{{default "-" .ReceiverCity}}	{{default "-" .ReceiverCountryCode}}	{{.DeclaredValue}} {{.Currency}}	{{.Weight}}	{{default "-" .CreatedDate}}	{{truncate 40 .ItemSummary}}
{{end}}{{template "footer" .}}{{end}}

{{define "tracking"}}AWB Number:	{{.AWBNumber}}
Status:	{{default "-" .Status}}
{{end}}

{{define "dashboard"}}MONTH	SOLD
{{range .Months}}{{.Month}}	{{number .Sold}}
{{end}}Total {{.Year}}	{{number .Total}}
{{end}}

{{define "exported"}}KIND	LOCATION	SIZE
{{range .}}{{title (print .Kind)}}	{{.Location}}	{{number .Size}}
{{end}}{{end}}

{{define "pickup"}}Order:	{{.OrderID}}
Confirmation:	{{.ConfirmationID}}
Ready by:	{{datetime .ReadyBy}}
Close by:	{{datetime .CloseBy}}
{{end}}

{{define "session"}}Logged in as {{default "admin" .Username}}, token valid until {{datetime .ExpiresAt}}
{{end}}
`
