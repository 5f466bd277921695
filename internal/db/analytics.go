package db

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jackc/pgx/v5"
)

// now is swapped in tests that pin lastUpdated rendering.
var now = time.Now

// SessionsByDevice returns device session counts, largest first.
func (db *DB) SessionsByDevice(ctx context.Context) ([]DeviceSessions, error) {
	out := []DeviceSessions{}
	err := db.query(ctx,
		`SELECT device_type, session_count, color
		 FROM sessions_by_device
		 ORDER BY session_count DESC, id`,
		func(rows pgx.Rows) error {
			var d DeviceSessions
			if err := rows.Scan(&d.Name, &d.Value, &d.Color); err != nil {
				return err
			}
			out = append(out, d)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("querying sessions by device: %w", err)
	}
	return out, nil
}

// CustomersOverTime returns first-time and recurring customers by date.
func (db *DB) CustomersOverTime(ctx context.Context) ([]CustomersPoint, error) {
	out := []CustomersPoint{}
	err := db.query(ctx,
		`SELECT date, first_time_customers, recurring_customers
		 FROM customers_over_time
		 ORDER BY date, id`,
		func(rows pgx.Rows) error {
			var p CustomersPoint
			if err := rows.Scan((*time.Time)(&p.Date), &p.FirstTime, &p.Recurring); err != nil {
				return err
			}
			out = append(out, p)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("querying customers over time: %w", err)
	}
	return out, nil
}

// TotalSales returns current vs. previous period sales by date.
func (db *DB) TotalSales(ctx context.Context) ([]PeriodPoint, error) {
	out, err := db.periodSeries(ctx, "total_sales")
	if err != nil {
		return nil, fmt.Errorf("querying total sales: %w", err)
	}
	return out, nil
}

// SessionsOverTime returns current vs. previous period sessions by date.
func (db *DB) SessionsOverTime(ctx context.Context) ([]PeriodPoint, error) {
	out, err := db.periodSeries(ctx, "sessions_over_time")
	if err != nil {
		return nil, fmt.Errorf("querying sessions over time: %w", err)
	}
	return out, nil
}

// periodSeries reads one of the two current/previous tables. table is always a
// constant from this file.
func (db *DB) periodSeries(ctx context.Context, table string) ([]PeriodPoint, error) {
	out := []PeriodPoint{}
	err := db.query(ctx,
		`SELECT date, current_period, previous_period
		 FROM `+table+`
		 ORDER BY date, id`,
		func(rows pgx.Rows) error {
			var p PeriodPoint
			if err := rows.Scan((*time.Time)(&p.Date), &p.Current, &p.Previous); err != nil {
				return err
			}
			out = append(out, p)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GrossSalesByCountry returns sales per country, largest first.
func (db *DB) GrossSalesByCountry(ctx context.Context) ([]CountrySales, error) {
	out := []CountrySales{}
	err := db.query(ctx,
		`SELECT country, sales_amount
		 FROM gross_sales_by_country
		 ORDER BY sales_amount DESC, id`,
		func(rows pgx.Rows) error {
			var c CountrySales
			if err := rows.Scan(&c.Country, &c.Sales); err != nil {
				return err
			}
			out = append(out, c)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("querying gross sales by country: %w", err)
	}
	return out, nil
}

// SalesByProduct returns sales per product, largest first.
func (db *DB) SalesByProduct(ctx context.Context) ([]ProductSales, error) {
	out := []ProductSales{}
	err := db.query(ctx,
		`SELECT product_name, sales_amount, color
		 FROM sales_by_product
		 ORDER BY sales_amount DESC, id`,
		func(rows pgx.Rows) error {
			var p ProductSales
			if err := rows.Scan(&p.Product, &p.Sales, &p.Color); err != nil {
				return err
			}
			out = append(out, p)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("querying sales by product: %w", err)
	}
	return out, nil
}

// GrossSalesByDevice returns per-device sales by date.
func (db *DB) GrossSalesByDevice(ctx context.Context) ([]DeviceSalesPoint, error) {
	out := []DeviceSalesPoint{}
	err := db.query(ctx,
		`SELECT date, mobile_sales, desktop_sales, tablet_sales
		 FROM gross_sales_by_device
		 ORDER BY date, id`,
		func(rows pgx.Rows) error {
			var p DeviceSalesPoint
			if err := rows.Scan((*time.Time)(&p.Date), &p.Mobile, &p.Desktop, &p.Tablet); err != nil {
				return err
			}
			out = append(out, p)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("querying gross sales by device: %w", err)
	}
	return out, nil
}

// SessionsByCountry returns per-country sessions by date.
func (db *DB) SessionsByCountry(ctx context.Context) ([]CountrySessionsPoint, error) {
	out := []CountrySessionsPoint{}
	err := db.query(ctx,
		`SELECT date, us_sessions, ca_sessions, uk_sessions, fr_sessions
		 FROM sessions_by_country
		 ORDER BY date, id`,
		func(rows pgx.Rows) error {
			var p CountrySessionsPoint
			if err := rows.Scan((*time.Time)(&p.Date), &p.US, &p.CA, &p.UK, &p.FR); err != nil {
				return err
			}
			out = append(out, p)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("querying sessions by country: %w", err)
	}
	return out, nil
}

// LatestCustomerSatisfaction returns the most recent satisfaction row, or
// pgx.ErrNoRows (wrapped) when the table is empty.
func (db *DB) LatestCustomerSatisfaction(ctx context.Context) (*CustomerSatisfaction, error) {
	var (
		cs      CustomerSatisfaction
		updated time.Time
	)
	err := db.queryRow(ctx,
		`SELECT rating, status, total_reviews, monthly_growth,
		        satisfied_percentage, neutral_percentage, dissatisfied_percentage,
		        last_updated
		 FROM customer_satisfaction
		 ORDER BY last_updated DESC, id DESC
		 LIMIT 1`,
		&cs.Rating, &cs.Status, &cs.Reviews, &cs.MonthlyGrowth,
		&cs.Satisfied, &cs.Neutral, &cs.Dissatisfied,
		&updated,
	)
	if err != nil {
		return nil, fmt.Errorf("querying customer satisfaction: %w", err)
	}
	cs.LastUpdated = humanize.RelTime(updated, now(), "ago", "from now")
	return &cs, nil
}

// LatestConversionRate returns the most recent conversion rate row, or
// pgx.ErrNoRows (wrapped) when the table is empty.
func (db *DB) LatestConversionRate(ctx context.Context) (*ConversionRate, error) {
	var cr ConversionRate
	err := db.queryRow(ctx,
		`SELECT conversion_rate, monthly_growth, target_rate, progress_percentage
		 FROM conversion_rate
		 ORDER BY last_updated DESC, id DESC
		 LIMIT 1`,
		&cr.Rate, &cr.Growth, &cr.Target, &cr.Progress,
	)
	if err != nil {
		return nil, fmt.Errorf("querying conversion rate: %w", err)
	}
	return &cr, nil
}
