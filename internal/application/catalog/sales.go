package catalog

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/erp/console/internal/domain/catalog"
	"github.com/erp/console/internal/infrastructure/client"
	"github.com/erp/console/internal/infrastructure/telemetry"
)

// SalesPath is the product statistics collection on the sales API
const SalesPath = "/api/products"

// SalesReport computes the dashboard's monthly sold totals
type SalesReport struct {
	resource *client.Resource[catalog.SalesRecord]
	now      func() time.Time
}

// NewSalesReport creates a report over the sales API client
func NewSalesReport(c *client.Client) *SalesReport {
	return &SalesReport{
		resource: client.NewResource(c, client.Endpoint[catalog.SalesRecord]{
			Path: SalesPath,
			List: client.ListOf[catalog.SalesRecord]("data"),
		}),
		now: time.Now,
	}
}

// Monthly returns units sold per month of year. Year 0 means the current year.
func (r *SalesReport) Monthly(ctx context.Context, year int) (catalog.MonthlySales, error) {
	if year == 0 {
		year = r.now().Year()
	}
	ctx, span := telemetry.StartSpan(ctx, "dashboard", "monthly_sales", attribute.Int("year", year))
	defer span.End()

	records, err := r.resource.FetchAll(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return catalog.MonthlySales{}, err
	}
	return catalog.SummarizeSales(records, year), nil
}
