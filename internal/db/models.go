package db

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the wire format of every date column.
const DateLayout = "2006-01-02"

// Date is a calendar day serialized as YYYY-MM-DD.
type Date time.Time

// NewDate returns the given calendar day in UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return Date(t), nil
}

func (d Date) String() string {
	return time.Time(d).Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DeviceSessions is one slice of the sessions-by-device donut.
type DeviceSessions struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
	Color string `json:"color"`
}

// CustomersPoint is one day of first-time vs. recurring customers.
type CustomersPoint struct {
	Date      Date `json:"date"`
	FirstTime int  `json:"firstTime"`
	Recurring int  `json:"recurring"`
}

// PeriodPoint compares the current and previous period for one day. Used by both
// total sales and sessions over time.
type PeriodPoint struct {
	Date     Date `json:"date"`
	Current  int  `json:"current"`
	Previous int  `json:"previous"`
}

// CountrySales is gross sales for one country.
type CountrySales struct {
	Country string `json:"country"`
	Sales   int    `json:"sales"`
}

// ProductSales is sales for one product.
type ProductSales struct {
	Product string `json:"product"`
	Sales   int    `json:"sales"`
	Color   string `json:"color"`
}

// DeviceSalesPoint is one day of gross sales split by device.
type DeviceSalesPoint struct {
	Date    Date `json:"date"`
	Mobile  int  `json:"mobile"`
	Desktop int  `json:"desktop"`
	Tablet  int  `json:"tablet"`
}

// CountrySessionsPoint is one day of sessions split by country.
type CountrySessionsPoint struct {
	Date Date `json:"date"`
	US   int  `json:"us"`
	CA   int  `json:"ca"`
	UK   int  `json:"uk"`
	FR   int  `json:"fr"`
}

// CustomerSatisfaction is the latest satisfaction summary.
type CustomerSatisfaction struct {
	Rating        float64 `json:"rating"`
	Status        string  `json:"status"`
	Reviews       int     `json:"reviews"`
	MonthlyGrowth float64 `json:"monthlyGrowth"`
	Satisfied     int     `json:"satisfied"`
	Neutral       int     `json:"neutral"`
	Dissatisfied  int     `json:"dissatisfied"`
	LastUpdated   string  `json:"lastUpdated"`
}

// ConversionRate is the latest conversion rate summary.
type ConversionRate struct {
	Rate     float64 `json:"rate"`
	Growth   float64 `json:"growth"`
	Target   float64 `json:"target"`
	Progress int     `json:"progress"`
}
