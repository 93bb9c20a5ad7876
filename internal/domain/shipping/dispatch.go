package shipping

import (
	"path"
	"time"
)

// DocumentKind names a downloadable document of a dispatch order
type DocumentKind string

const (
	DocumentShipment DocumentKind = "shipment"
	DocumentInvoice  DocumentKind = "invoice"
)

// Document is a server-side PDF attached to a dispatch order
type Document struct {
	Kind DocumentKind
	Path string
}

// FileName is the last path element of the document
func (d Document) FileName() string {
	return path.Base(d.Path)
}

// DispatchOrder is an order handed to the courier, with its AWB and documents
type DispatchOrder struct {
	ID                   string    `json:"_id" yaml:"id"`
	ReceiverName         string    `json:"receiverName" yaml:"receiver_name"`
	ReceiverPhone        string    `json:"receiverPhone" yaml:"receiver_phone"`
	AWBNo                string    `json:"awbNo" yaml:"awb_no"`
	ShipmentPDFPath      string    `json:"shipmentPdfPath,omitempty" yaml:"shipment_pdf_path,omitempty"`
	InvoicePath          string    `json:"invoicePath,omitempty" yaml:"invoice_path,omitempty"`
	PickupConfirmationID string    `json:"pickupConfirmationId,omitempty" yaml:"pickup_confirmation_id,omitempty"`
	CreatedAt            time.Time `json:"createdAt,omitzero" yaml:"created_at,omitempty"`
}

// ResourceID returns the server id
func (o DispatchOrder) ResourceID() string { return o.ID }

// Documents returns the PDFs available for the order
func (o DispatchOrder) Documents() []Document {
	var docs []Document
	if o.ShipmentPDFPath != "" {
		docs = append(docs, Document{Kind: DocumentShipment, Path: o.ShipmentPDFPath})
	}
	if o.InvoicePath != "" {
		docs = append(docs, Document{Kind: DocumentInvoice, Path: o.InvoicePath})
	}
	return docs
}

// PickupScheduled reports whether a courier pickup was confirmed
func (o DispatchOrder) PickupScheduled() bool {
	return o.PickupConfirmationID != ""
}
