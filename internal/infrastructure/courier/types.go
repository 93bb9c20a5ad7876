package courier

import (
	"encoding/json"
)

// StatusSuccess is the only pickup status treated as accepted
const StatusSuccess = "success"

type shipperInfo struct {
	CompanyName string `json:"companyName"`
	ContactName string `json:"contactName"`
	Phone       string `json:"phone"`
	Email       string `json:"email,omitempty"`
	Address     string `json:"address"`
	City        string `json:"city"`
	PostalCode  string `json:"postalCode"`
	CountryCode string `json:"countryCode"`
}

type contactInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// pickupRequest is the body of POST {courier}/schedule-pickup
type pickupRequest struct {
	OrderID        string      `json:"orderId"`
	AccountNumber  string      `json:"accountNumber"`
	Shipper        shipperInfo `json:"shipper"`
	ReadyBy        string      `json:"plannedPickupDateAndTime"`
	CloseTime      string      `json:"closeTime"`
	Location       string      `json:"location,omitempty"`
	Instructions   string      `json:"specialInstructions,omitempty"`
	Weight         json.Number `json:"weight"`
	TotalShipments int         `json:"totalShipments"`
	Contact        contactInfo `json:"contact"`
}

type pickupResponse struct {
	Status         string `json:"status"`
	ConfirmationID string `json:"confirmationId"`
}

type trackingRequest struct {
	AWBNumber string `json:"awbNumber"`
}

// trackingResponse also carries the error field some failures are
// reported in with a 200 status
type trackingResponse struct {
	AWBNumber string          `json:"awbNumber"`
	Details   json.RawMessage `json:"trackingDetails"`
	Error     string          `json:"error"`
}
