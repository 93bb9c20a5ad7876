package catalog

import (
	"github.com/erp/console/internal/application/store"
	"github.com/erp/console/internal/domain/catalog"
	"github.com/erp/console/internal/domain/inventory"
	"github.com/erp/console/internal/infrastructure/client"
)

// InventoryPath lists stock per product
const InventoryPath = "/api/products/inventory"

// NewInventoryBinding creates the read-only inventory binding
func NewInventoryBinding(c *client.Client) store.ReadOnly[inventory.StockRow] {
	res := client.NewResource(c, client.Endpoint[inventory.StockRow]{
		Path: InventoryPath,
		List: client.ListOf[inventory.StockRow]("inventory"),
	})
	return store.ReadOnly[inventory.StockRow]{FetchFunc: res.FetchAll}
}

// MatchStock is the name search used by the inventory page
func MatchStock(r inventory.StockRow, query string) bool {
	return catalog.MatchesName(r.Name, query)
}
