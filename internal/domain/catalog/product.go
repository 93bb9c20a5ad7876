package catalog

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erp/console/internal/domain/shared"
)

// Product is a catalog item as served by the products endpoint
type Product struct {
	ID          string          `json:"_id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description" yaml:"description"`
	Details     string          `json:"details,omitempty" yaml:"details,omitempty"`
	Amount      decimal.Decimal `json:"amount" yaml:"amount"`
	Dimension   string          `json:"dimension,omitempty" yaml:"dimension,omitempty"`
	SKU         string          `json:"sku,omitempty" yaml:"sku,omitempty"`
	Images      []string        `json:"images" yaml:"images"`
	CreatedAt   time.Time       `json:"createdAt,omitzero" yaml:"created_at,omitempty"`
}

// ResourceID returns the server id
func (p Product) ResourceID() string { return p.ID }

// SearchName is the text matched by name search
func (p Product) SearchName() string { return p.Name }

// MatchesName reports whether name contains query, ignoring case.
// An empty query matches everything.
func MatchesName(name, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(query))
}

// ProductDraft is the editable copy of a product
type ProductDraft struct {
	ID          string          `json:"-"`
	Name        string          `validate:"required,max=200"`
	Description string          `validate:"required"`
	Details     string          `validate:"max=5000"`
	Amount      decimal.Decimal `validate:"-"`
	Dimension   string          `validate:"max=100"`
	SKU         string          `validate:"max=64"`
	Images      ImageSlots      `validate:"-"`
}

// NewProductDraft copies p into an edit buffer with its images laid out in slots
func NewProductDraft(p Product) ProductDraft {
	return ProductDraft{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Details:     p.Details,
		Amount:      p.Amount,
		Dimension:   p.Dimension,
		SKU:         p.SKU,
		Images:      NewImageSlots(p.Images),
	}
}

// IsNew reports whether the draft has not been created on the server yet
func (d ProductDraft) IsNew() bool { return d.ID == "" }

// Check applies the rules struct tags cannot express: a positive amount,
// image size limits, and at least one image when creating.
func (d ProductDraft) Check() error {
	if !d.Amount.IsPositive() {
		return shared.NewValidationError("amount", "must be greater than zero")
	}

	attachments := d.Images.Attachments()
	if d.IsNew() && len(attachments) == 0 {
		return shared.NewValidationError("images", "at least one image is required")
	}

	var total int64
	for _, a := range attachments {
		if a.Size > MaxImageSize {
			return shared.NewValidationError("images", a.Name+" exceeds the 10MB size limit")
		}
		total += a.Size
	}
	if total > MaxTotalImageSize {
		return shared.NewValidationError("images", "total image size exceeds 100MB")
	}
	return nil
}
