package analytics

import (
	"context"

	"github.com/shopdash/shopdash/internal/db"
)

// Dataset describes one chart dataset and how it is read and exposed.
type Dataset struct {
	// Key is the field name in the composite response.
	Key string
	// Path is the route segment under /api/analytics/.
	Path string
	// Label names the dataset in client-facing error messages.
	Label string
	// Singleton datasets return one record, with a default when the table is empty.
	Singleton bool

	read   func(ctx context.Context, s Store) (any, error)
	assign func(d *Dashboard, v any)
}

// ErrorMessage is the fixed client-facing message for a failed read.
func (ds Dataset) ErrorMessage() string {
	return "Failed to fetch " + ds.Label + " data"
}

var datasets = []Dataset{
	{
		Key: "sessionsByDevice", Path: "sessions-by-device", Label: "sessions by device",
		read: func(ctx context.Context, s Store) (any, error) {
			return s.SessionsByDevice(ctx)
		},
		assign: func(d *Dashboard, v any) { d.SessionsByDevice = v.([]db.DeviceSessions) },
	},
	{
		Key: "customersOverTime", Path: "customers-over-time", Label: "customers over time",
		read: func(ctx context.Context, s Store) (any, error) {
			return s.CustomersOverTime(ctx)
		},
		assign: func(d *Dashboard, v any) { d.CustomersOverTime = v.([]db.CustomersPoint) },
	},
	{
		Key: "totalSales", Path: "total-sales", Label: "total sales",
		read: func(ctx context.Context, s Store) (any, error) {
			return s.TotalSales(ctx)
		},
		assign: func(d *Dashboard, v any) { d.TotalSales = v.([]db.PeriodPoint) },
	},
	{
		Key: "grossSalesByCountry", Path: "gross-sales-by-country", Label: "gross sales by country",
		read: func(ctx context.Context, s Store) (any, error) {
			return s.GrossSalesByCountry(ctx)
		},
		assign: func(d *Dashboard, v any) { d.GrossSalesByCountry = v.([]db.CountrySales) },
	},
	{
		Key: "salesByProduct", Path: "sales-by-product", Label: "sales by product",
		read: func(ctx context.Context, s Store) (any, error) {
			return s.SalesByProduct(ctx)
		},
		assign: func(d *Dashboard, v any) { d.SalesByProduct = v.([]db.ProductSales) },
	},
	{
		Key: "grossSalesByDevice", Path: "gross-sales-by-device", Label: "gross sales by device",
		read: func(ctx context.Context, s Store) (any, error) {
			return s.GrossSalesByDevice(ctx)
		},
		assign: func(d *Dashboard, v any) { d.GrossSalesByDevice = v.([]db.DeviceSalesPoint) },
	},
	{
		Key: "sessionsByCountry", Path: "sessions-by-country", Label: "sessions by country",
		read: func(ctx context.Context, s Store) (any, error) {
			return s.SessionsByCountry(ctx)
		},
		assign: func(d *Dashboard, v any) { d.SessionsByCountry = v.([]db.CountrySessionsPoint) },
	},
	{
		Key: "customerSatisfaction", Path: "customer-satisfaction", Label: "customer satisfaction", Singleton: true,
		read: func(ctx context.Context, s Store) (any, error) {
			return SatisfactionDefault.Resolve(s.LatestCustomerSatisfaction(ctx))
		},
		assign: func(d *Dashboard, v any) { d.CustomerSatisfaction = v.(db.CustomerSatisfaction) },
	},
	{
		Key: "conversionRate", Path: "conversion-rate", Label: "conversion rate", Singleton: true,
		read: func(ctx context.Context, s Store) (any, error) {
			return ConversionDefault.Resolve(s.LatestConversionRate(ctx))
		},
		assign: func(d *Dashboard, v any) { d.ConversionRate = v.(db.ConversionRate) },
	},
	{
		Key: "sessionsOverTime", Path: "sessions-over-time", Label: "sessions over time",
		read: func(ctx context.Context, s Store) (any, error) {
			return s.SessionsOverTime(ctx)
		},
		assign: func(d *Dashboard, v any) { d.SessionsOverTime = v.([]db.PeriodPoint) },
	},
}

// Datasets returns every dataset in composite order.
func Datasets() []Dataset {
	out := make([]Dataset, len(datasets))
	copy(out, datasets)
	return out
}

// Lookup finds a dataset by composite key or route path.
func Lookup(name string) (Dataset, bool) {
	for _, ds := range datasets {
		if ds.Key == name || ds.Path == name {
			return ds, true
		}
	}
	return Dataset{}, false
}
