package catalog

import "time"

// SalesRecord is one product row from the sales statistics endpoint
type SalesRecord struct {
	Name        string    `json:"name"`
	CreatedDate time.Time `json:"createdDate"`
	Sold        int       `json:"sold"`
}

// MonthlySales is units sold per calendar month, January first
type MonthlySales [12]int

// SummarizeSales buckets records by the month of their creation date.
// Records outside year are skipped; year 0 means all years.
func SummarizeSales(records []SalesRecord, year int) MonthlySales {
	var out MonthlySales
	for _, r := range records {
		if r.CreatedDate.IsZero() {
			continue
		}
		if year != 0 && r.CreatedDate.Year() != year {
			continue
		}
		out[r.CreatedDate.Month()-1] += r.Sold
	}
	return out
}

// Total returns the units sold across all months
func (m MonthlySales) Total() int {
	total := 0
	for _, n := range m {
		total += n
	}
	return total
}
