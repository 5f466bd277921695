package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/jackc/pgx/v5"
)

// SeedSet is the full content of the ten analytics tables.
type SeedSet struct {
	DeviceSessions   []DeviceSessions
	Customers        []CustomersPoint
	TotalSales       []PeriodPoint
	CountrySales     []CountrySales
	ProductSales     []ProductSales
	DeviceSales      []DeviceSalesPoint
	CountrySessions  []CountrySessionsPoint
	SessionsOverTime []PeriodPoint
	Satisfaction     *CustomerSatisfaction
	Conversion       *ConversionRate
}

// hclSeedFile is the on-disk layout of a seed document:
//
//	device_sessions "Mobile" {
//	  sessions = 35
//	  color    = "#00D4AA"
//	}
//
//	total_sales = [
//	  { date = "2023-06-06", current = 6000, previous = 4000 },
//	]
//
//	conversion_rate {
//	  rate     = 3.2
//	  growth   = 0.8
//	  target   = 4.0
//	  progress = 80
//	}
type hclSeedFile struct {
	DeviceSessions   []hclDeviceSessions  `hcl:"device_sessions,block"`
	Customers        []hclCustomers       `hcl:"customers,optional"`
	TotalSales       []hclPeriod          `hcl:"total_sales,optional"`
	CountrySales     []hclCountrySales    `hcl:"country_sales,block"`
	ProductSales     []hclProductSales    `hcl:"product_sales,block"`
	DeviceSales      []hclDeviceSales     `hcl:"device_sales,optional"`
	CountrySessions  []hclCountrySessions `hcl:"country_sessions,optional"`
	SessionsOverTime []hclPeriod          `hcl:"sessions_over_time,optional"`
	Satisfaction     *hclSatisfaction     `hcl:"customer_satisfaction,block"`
	Conversion       *hclConversion       `hcl:"conversion_rate,block"`
}

type hclDeviceSessions struct {
	Device   string `hcl:"device,label"`
	Sessions int    `hcl:"sessions"`
	Color    string `hcl:"color"`
}

type hclCountrySales struct {
	Country string `hcl:"country,label"`
	Sales   int    `hcl:"sales"`
}

type hclProductSales struct {
	Product string `hcl:"product,label"`
	Sales   int    `hcl:"sales"`
	Color   string `hcl:"color"`
}

type hclCustomers struct {
	Date      string `cty:"date"`
	FirstTime int    `cty:"first_time"`
	Recurring int    `cty:"recurring"`
}

type hclPeriod struct {
	Date     string `cty:"date"`
	Current  int    `cty:"current"`
	Previous int    `cty:"previous"`
}

type hclDeviceSales struct {
	Date    string `cty:"date"`
	Mobile  int    `cty:"mobile"`
	Desktop int    `cty:"desktop"`
	Tablet  int    `cty:"tablet"`
}

type hclCountrySessions struct {
	Date string `cty:"date"`
	US   int    `cty:"us"`
	CA   int    `cty:"ca"`
	UK   int    `cty:"uk"`
	FR   int    `cty:"fr"`
}

type hclSatisfaction struct {
	Rating        float64 `hcl:"rating"`
	Status        string  `hcl:"status"`
	Reviews       int     `hcl:"reviews"`
	MonthlyGrowth float64 `hcl:"monthly_growth"`
	Satisfied     int     `hcl:"satisfied"`
	Neutral       int     `hcl:"neutral"`
	Dissatisfied  int     `hcl:"dissatisfied"`
}

type hclConversion struct {
	Rate     float64 `hcl:"rate"`
	Growth   float64 `hcl:"growth"`
	Target   float64 `hcl:"target"`
	Progress int     `hcl:"progress"`
}

// ParseSeedHCL parses a seed document. filename only selects the syntax and
// labels diagnostics.
func ParseSeedHCL(src []byte, filename string) (*SeedSet, error) {
	var file hclSeedFile
	if err := hclsimple.Decode(filename, src, nil, &file); err != nil {
		if diags, ok := err.(hcl.Diagnostics); ok {
			for _, diag := range diags {
				if diag.Severity == hcl.DiagError {
					return nil, fmt.Errorf("HCL parse error at %s: %s", diag.Subject, diag.Detail)
				}
			}
		}
		return nil, fmt.Errorf("parsing HCL: %w", err)
	}
	return convertSeedFile(file)
}

func convertSeedFile(file hclSeedFile) (*SeedSet, error) {
	set := &SeedSet{}

	for _, d := range file.DeviceSessions {
		if err := checkColor(d.Color); err != nil {
			return nil, fmt.Errorf("device_sessions %q: %w", d.Device, err)
		}
		set.DeviceSessions = append(set.DeviceSessions, DeviceSessions{Name: d.Device, Value: d.Sessions, Color: d.Color})
	}

	for _, c := range file.Customers {
		date, err := ParseDate(c.Date)
		if err != nil {
			return nil, fmt.Errorf("customers: %w", err)
		}
		set.Customers = append(set.Customers, CustomersPoint{Date: date, FirstTime: c.FirstTime, Recurring: c.Recurring})
	}

	var err error
	if set.TotalSales, err = convertPeriods(file.TotalSales); err != nil {
		return nil, fmt.Errorf("total_sales: %w", err)
	}
	if set.SessionsOverTime, err = convertPeriods(file.SessionsOverTime); err != nil {
		return nil, fmt.Errorf("sessions_over_time: %w", err)
	}

	for _, c := range file.CountrySales {
		set.CountrySales = append(set.CountrySales, CountrySales{Country: c.Country, Sales: c.Sales})
	}

	for _, p := range file.ProductSales {
		if err := checkColor(p.Color); err != nil {
			return nil, fmt.Errorf("product_sales %q: %w", p.Product, err)
		}
		set.ProductSales = append(set.ProductSales, ProductSales{Product: p.Product, Sales: p.Sales, Color: p.Color})
	}

	for _, d := range file.DeviceSales {
		date, err := ParseDate(d.Date)
		if err != nil {
			return nil, fmt.Errorf("device_sales: %w", err)
		}
		set.DeviceSales = append(set.DeviceSales, DeviceSalesPoint{Date: date, Mobile: d.Mobile, Desktop: d.Desktop, Tablet: d.Tablet})
	}

	for _, c := range file.CountrySessions {
		date, err := ParseDate(c.Date)
		if err != nil {
			return nil, fmt.Errorf("country_sessions: %w", err)
		}
		set.CountrySessions = append(set.CountrySessions, CountrySessionsPoint{Date: date, US: c.US, CA: c.CA, UK: c.UK, FR: c.FR})
	}

	if s := file.Satisfaction; s != nil {
		if s.Satisfied+s.Neutral+s.Dissatisfied != 100 {
			return nil, fmt.Errorf("customer_satisfaction: percentages sum to %d, want 100", s.Satisfied+s.Neutral+s.Dissatisfied)
		}
		set.Satisfaction = &CustomerSatisfaction{
			Rating:        s.Rating,
			Status:        s.Status,
			Reviews:       s.Reviews,
			MonthlyGrowth: s.MonthlyGrowth,
			Satisfied:     s.Satisfied,
			Neutral:       s.Neutral,
			Dissatisfied:  s.Dissatisfied,
		}
	}

	if c := file.Conversion; c != nil {
		set.Conversion = &ConversionRate{Rate: c.Rate, Growth: c.Growth, Target: c.Target, Progress: c.Progress}
	}

	return set, nil
}

func convertPeriods(in []hclPeriod) ([]PeriodPoint, error) {
	var out []PeriodPoint
	for _, p := range in {
		date, err := ParseDate(p.Date)
		if err != nil {
			return nil, err
		}
		out = append(out, PeriodPoint{Date: date, Current: p.Current, Previous: p.Previous})
	}
	return out, nil
}

// checkColor accepts #RRGGBB, the only form the color columns can hold.
func checkColor(c string) error {
	if len(c) != 7 || !strings.HasPrefix(c, "#") {
		return fmt.Errorf("color %q is not #RRGGBB", c)
	}
	for _, r := range c[1:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return fmt.Errorf("color %q is not #RRGGBB", c)
		}
	}
	return nil
}

// seedTables lists every analytics table; Seed empties all of them.
var seedTables = []string{
	"sessions_by_device",
	"customers_over_time",
	"total_sales",
	"gross_sales_by_country",
	"sales_by_product",
	"gross_sales_by_device",
	"sessions_by_country",
	"sessions_over_time",
	"customer_satisfaction",
	"conversion_rate",
}

// Seed replaces the content of every analytics table with set in a single
// transaction. It returns the number of rows written per table.
func (db *DB) Seed(ctx context.Context, set *SeedSet) (map[string]int64, error) {
	counts := make(map[string]int64, len(seedTables))

	err := pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "TRUNCATE "+strings.Join(seedTables, ", ")+" RESTART IDENTITY"); err != nil {
			return fmt.Errorf("truncating analytics tables: %w", err)
		}

		copies := []struct {
			table   string
			columns []string
			rows    [][]any
		}{
			{"sessions_by_device", []string{"device_type", "session_count", "color"}, deviceSessionRows(set.DeviceSessions)},
			{"customers_over_time", []string{"date", "first_time_customers", "recurring_customers"}, customerRows(set.Customers)},
			{"total_sales", []string{"date", "current_period", "previous_period"}, periodRows(set.TotalSales)},
			{"gross_sales_by_country", []string{"country", "sales_amount"}, countrySalesRows(set.CountrySales)},
			{"sales_by_product", []string{"product_name", "sales_amount", "color"}, productSalesRows(set.ProductSales)},
			{"gross_sales_by_device", []string{"date", "mobile_sales", "desktop_sales", "tablet_sales"}, deviceSalesRows(set.DeviceSales)},
			{"sessions_by_country", []string{"date", "us_sessions", "ca_sessions", "uk_sessions", "fr_sessions"}, countrySessionRows(set.CountrySessions)},
			{"sessions_over_time", []string{"date", "current_period", "previous_period"}, periodRows(set.SessionsOverTime)},
		}

		for _, c := range copies {
			n, err := tx.CopyFrom(ctx, pgx.Identifier{c.table}, c.columns, pgx.CopyFromRows(c.rows))
			if err != nil {
				return fmt.Errorf("seeding %s: %w", c.table, err)
			}
			counts[c.table] = n
		}

		if s := set.Satisfaction; s != nil {
			_, err := tx.Exec(ctx,
				`INSERT INTO customer_satisfaction
				   (rating, status, total_reviews, monthly_growth,
				    satisfied_percentage, neutral_percentage, dissatisfied_percentage)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				s.Rating, s.Status, s.Reviews, s.MonthlyGrowth, s.Satisfied, s.Neutral, s.Dissatisfied,
			)
			if err != nil {
				return fmt.Errorf("seeding customer_satisfaction: %w", err)
			}
			counts["customer_satisfaction"] = 1
		}

		if c := set.Conversion; c != nil {
			_, err := tx.Exec(ctx,
				`INSERT INTO conversion_rate (conversion_rate, monthly_growth, target_rate, progress_percentage)
				 VALUES ($1, $2, $3, $4)`,
				c.Rate, c.Growth, c.Target, c.Progress,
			)
			if err != nil {
				return fmt.Errorf("seeding conversion_rate: %w", err)
			}
			counts["conversion_rate"] = 1
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func deviceSessionRows(in []DeviceSessions) [][]any {
	rows := make([][]any, 0, len(in))
	for _, d := range in {
		rows = append(rows, []any{d.Name, d.Value, d.Color})
	}
	return rows
}

func customerRows(in []CustomersPoint) [][]any {
	rows := make([][]any, 0, len(in))
	for _, c := range in {
		rows = append(rows, []any{time.Time(c.Date), c.FirstTime, c.Recurring})
	}
	return rows
}

func periodRows(in []PeriodPoint) [][]any {
	rows := make([][]any, 0, len(in))
	for _, p := range in {
		rows = append(rows, []any{time.Time(p.Date), p.Current, p.Previous})
	}
	return rows
}

func countrySalesRows(in []CountrySales) [][]any {
	rows := make([][]any, 0, len(in))
	for _, c := range in {
		rows = append(rows, []any{c.Country, c.Sales})
	}
	return rows
}

func productSalesRows(in []ProductSales) [][]any {
	rows := make([][]any, 0, len(in))
	for _, p := range in {
		rows = append(rows, []any{p.Product, p.Sales, p.Color})
	}
	return rows
}

func deviceSalesRows(in []DeviceSalesPoint) [][]any {
	rows := make([][]any, 0, len(in))
	for _, d := range in {
		rows = append(rows, []any{time.Time(d.Date), d.Mobile, d.Desktop, d.Tablet})
	}
	return rows
}

func countrySessionRows(in []CountrySessionsPoint) [][]any {
	rows := make([][]any, 0, len(in))
	for _, c := range in {
		rows = append(rows, []any{time.Time(c.Date), c.US, c.CA, c.UK, c.FR})
	}
	return rows
}
