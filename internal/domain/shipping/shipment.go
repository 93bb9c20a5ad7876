package shipping

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ShipmentItem is one line of a shipment
type ShipmentItem struct {
	Name     string `json:"name" yaml:"name"`
	Quantity int    `json:"quantity" yaml:"quantity"`
}

// Shipment is a courier shipment as listed by the shipments endpoint
type Shipment struct {
	ID                  string          `json:"_id,omitempty" yaml:"id,omitempty"`
	AWBNumber           string          `json:"awbNumber" yaml:"awb_number"`
	ReceiverName        string          `json:"receiverName" yaml:"receiver_name"`
	ReceiverAddress     string          `json:"receiverAddress" yaml:"receiver_address"`
	ReceiverCity        string          `json:"receiverCity" yaml:"receiver_city"`
	ReceiverPostalCode  string          `json:"receiverPostalCode" yaml:"receiver_postal_code"`
	ReceiverCountryCode string          `json:"receiverCountryCode" yaml:"receiver_country_code"`
	DeclaredValue       decimal.Decimal `json:"declaredValue" yaml:"declared_value"`
	Currency            string          `json:"currency" yaml:"currency"`
	Weight              decimal.Decimal `json:"weight" yaml:"weight"`
	CreatedDate         string          `json:"createdDate" yaml:"created_date"`
	Items               []ShipmentItem  `json:"items" yaml:"items"`
}

// ResourceID returns the server id, or the AWB number for rows without one
func (s Shipment) ResourceID() string {
	if s.ID != "" {
		return s.ID
	}
	return s.AWBNumber
}

// ItemSummary renders items as "name (xN), ..."
func (s Shipment) ItemSummary() string {
	parts := make([]string, 0, len(s.Items))
	for _, it := range s.Items {
		parts = append(parts, fmt.Sprintf("%s (x%d)", it.Name, it.Quantity))
	}
	return strings.Join(parts, ", ")
}

// TrackingResult is the courier's answer for one AWB number.
// Details is passed through as returned.
type TrackingResult struct {
	AWBNumber string          `json:"awbNumber" yaml:"awb_number"`
	Details   json.RawMessage `json:"trackingDetails" yaml:"-"`
}
