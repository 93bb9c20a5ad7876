package inventory

// StockRow is one product line of the inventory view
type StockRow struct {
	ID        string `json:"_id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	SoldStock int    `json:"soldStock" yaml:"sold_stock"`
	Stock     int    `json:"stock" yaml:"stock"`
}

// ResourceID returns the server id
func (r StockRow) ResourceID() string { return r.ID }

// SearchName is the text matched by name search
func (r StockRow) SearchName() string { return r.Name }

// LowStock reports whether the row is at or below threshold
func (r StockRow) LowStock(threshold int) bool {
	return r.Stock <= threshold
}
