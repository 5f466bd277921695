package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/shopdash/shopdash/internal/analytics"
	"github.com/shopdash/shopdash/internal/db"
	"github.com/shopdash/shopdash/internal/metrics"
)

// fakeStore serves fixed rows. Setting err fails every read; empty leaves every
// table empty.
type fakeStore struct {
	err   error
	empty bool
	calls atomic.Int32
}

func (f *fakeStore) begin() error {
	f.calls.Add(1)
	return f.err
}

func (f *fakeStore) SessionsByDevice(ctx context.Context) ([]db.DeviceSessions, error) {
	if err := f.begin(); err != nil || f.empty {
		return []db.DeviceSessions{}, err
	}
	return []db.DeviceSessions{
		{Name: "Mobile", Value: 65, Color: "#3B82F6"},
		{Name: "Desktop", Value: 30, Color: "#10B981"},
		{Name: "Tablet", Value: 5, Color: "#F59E0B"},
	}, nil
}

func (f *fakeStore) CustomersOverTime(ctx context.Context) ([]db.CustomersPoint, error) {
	if err := f.begin(); err != nil || f.empty {
		return []db.CustomersPoint{}, err
	}
	return []db.CustomersPoint{{Date: db.NewDate(2024, time.January, 1), FirstTime: 120, Recurring: 80}}, nil
}

func (f *fakeStore) TotalSales(ctx context.Context) ([]db.PeriodPoint, error) {
	if err := f.begin(); err != nil || f.empty {
		return []db.PeriodPoint{}, err
	}
	return []db.PeriodPoint{{Date: db.NewDate(2024, time.January, 1), Current: 4500, Previous: 4000}}, nil
}

func (f *fakeStore) GrossSalesByCountry(ctx context.Context) ([]db.CountrySales, error) {
	if err := f.begin(); err != nil || f.empty {
		return []db.CountrySales{}, err
	}
	return []db.CountrySales{{Country: "United States", Sales: 45000}}, nil
}

func (f *fakeStore) SalesByProduct(ctx context.Context) ([]db.ProductSales, error) {
	if err := f.begin(); err != nil || f.empty {
		return []db.ProductSales{}, err
	}
	return []db.ProductSales{{Product: "T-Shirts", Sales: 12000, Color: "#3B82F6"}}, nil
}

func (f *fakeStore) GrossSalesByDevice(ctx context.Context) ([]db.DeviceSalesPoint, error) {
	if err := f.begin(); err != nil || f.empty {
		return []db.DeviceSalesPoint{}, err
	}
	return []db.DeviceSalesPoint{{Date: db.NewDate(2024, time.January, 1), Mobile: 2800, Desktop: 1500, Tablet: 200}}, nil
}

func (f *fakeStore) SessionsByCountry(ctx context.Context) ([]db.CountrySessionsPoint, error) {
	if err := f.begin(); err != nil || f.empty {
		return []db.CountrySessionsPoint{}, err
	}
	return []db.CountrySessionsPoint{{Date: db.NewDate(2024, time.January, 1), US: 1200, CA: 300, UK: 250, FR: 150}}, nil
}

func (f *fakeStore) SessionsOverTime(ctx context.Context) ([]db.PeriodPoint, error) {
	if err := f.begin(); err != nil || f.empty {
		return []db.PeriodPoint{}, err
	}
	return []db.PeriodPoint{{Date: db.NewDate(2024, time.January, 1), Current: 1500, Previous: 1300}}, nil
}

func (f *fakeStore) LatestCustomerSatisfaction(ctx context.Context) (*db.CustomerSatisfaction, error) {
	if err := f.begin(); err != nil {
		return nil, err
	}
	if f.empty {
		return nil, fmt.Errorf("querying customer satisfaction: %w", pgx.ErrNoRows)
	}
	return &db.CustomerSatisfaction{
		Rating: 4.6, Status: "Great", Reviews: 100, MonthlyGrowth: 3,
		Satisfied: 80, Neutral: 15, Dissatisfied: 5, LastUpdated: "5 minutes ago",
	}, nil
}

func (f *fakeStore) LatestConversionRate(ctx context.Context) (*db.ConversionRate, error) {
	if err := f.begin(); err != nil {
		return nil, err
	}
	if f.empty {
		return nil, fmt.Errorf("querying conversion rate: %w", pgx.ErrNoRows)
	}
	return &db.ConversionRate{Rate: 2.9, Growth: 0.4, Target: 3.5, Progress: 83}, nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func newTestServer(t *testing.T, store *fakeStore, pinger Pinger) http.Handler {
	t.Helper()
	logger := zaptest.NewLogger(t)
	m := metrics.New()
	svc := analytics.NewService(store, m, logger)
	return NewServer(svc, pinger, m, []string{"http://localhost:3000"}, logger).Handler()
}

func get(t *testing.T, h http.Handler, path string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSessionsByDevice(t *testing.T) {
	h := newTestServer(t, &fakeStore{}, fakePinger{})

	rec := get(t, h, "/api/analytics/sessions-by-device", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `[
		{"name":"Mobile","value":65,"color":"#3B82F6"},
		{"name":"Desktop","value":30,"color":"#10B981"},
		{"name":"Tablet","value":5,"color":"#F59E0B"}
	]`, rec.Body.String())
}

func TestDatasetEndpointsServeEveryDataset(t *testing.T) {
	h := newTestServer(t, &fakeStore{}, fakePinger{})

	for _, ds := range analytics.Datasets() {
		t.Run(ds.Path, func(t *testing.T) {
			rec := get(t, h, "/api/analytics/"+ds.Path, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var body any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			if ds.Singleton {
				assert.IsType(t, map[string]any{}, body)
			} else {
				assert.IsType(t, []any{}, body)
			}
		})
	}
}

func TestEmptyTables(t *testing.T) {
	h := newTestServer(t, &fakeStore{empty: true}, fakePinger{})

	rec := get(t, h, "/api/analytics/total-sales", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = get(t, h, "/api/analytics/customer-satisfaction", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"rating":4.8,"status":"Excellent Rating","reviews":2847,"monthlyGrowth":12,
		"satisfied":85,"neutral":10,"dissatisfied":5,"lastUpdated":"2 hours ago"
	}`, rec.Body.String())

	rec = get(t, h, "/api/analytics/conversion-rate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"rate":3.2,"growth":0.8,"target":4.0,"progress":80}`, rec.Body.String())
}

func TestDashboardMatchesSingleEndpoints(t *testing.T) {
	h := newTestServer(t, &fakeStore{}, fakePinger{})

	rec := get(t, h, "/api/analytics/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var dashboard map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dashboard))
	assert.Len(t, dashboard, 10)

	for _, ds := range analytics.Datasets() {
		single := get(t, h, "/api/analytics/"+ds.Path, nil)
		require.Equal(t, http.StatusOK, single.Code)
		require.Contains(t, dashboard, ds.Key)
		assert.JSONEq(t, single.Body.String(), string(dashboard[ds.Key]), ds.Key)
	}
}

func TestStoreErrors(t *testing.T) {
	h := newTestServer(t, &fakeStore{err: errors.New("connection refused")}, fakePinger{})

	for _, ds := range analytics.Datasets() {
		rec := get(t, h, "/api/analytics/"+ds.Path, nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, ds.Path)
		assert.JSONEq(t, `{"error":"`+ds.ErrorMessage()+`"}`, rec.Body.String())
	}

	rec := get(t, h, "/api/analytics/dashboard", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch dashboard data"}`, rec.Body.String())
}

func TestCORS(t *testing.T) {
	t.Run("disallowed origin never reaches the store", func(t *testing.T) {
		store := &fakeStore{}
		h := newTestServer(t, store, fakePinger{})

		rec := get(t, h, "/api/analytics/dashboard", map[string]string{"Origin": "https://evil.example"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.JSONEq(t, `{"error":"Not allowed by CORS"}`, rec.Body.String())
		assert.Zero(t, store.calls.Load())
	})

	t.Run("allowed origin", func(t *testing.T) {
		h := newTestServer(t, &fakeStore{}, fakePinger{})

		rec := get(t, h, "/api/analytics/conversion-rate", map[string]string{"Origin": "http://localhost:3000"})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("no origin", func(t *testing.T) {
		h := newTestServer(t, &fakeStore{}, fakePinger{})

		rec := get(t, h, "/api/analytics/conversion-rate", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		h := newTestServer(t, &fakeStore{}, fakePinger{})

		req := httptest.NewRequest(http.MethodOptions, "/api/analytics/dashboard", nil)
		req.Header.Set("Origin", "http://localhost:3000/")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "GET")
	})
}

func TestHealth(t *testing.T) {
	// Health never touches the database.
	h := newTestServer(t, &fakeStore{}, fakePinger{err: errors.New("down")})

	rec := get(t, h, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "OK", body.Status)
	assert.NotEmpty(t, body.Message)
	ts, err := time.Parse(time.RFC3339Nano, body.Timestamp)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, ts.Location())
}

func TestReady(t *testing.T) {
	rec := get(t, newTestServer(t, &fakeStore{}, fakePinger{}), "/api/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())

	rec = get(t, newTestServer(t, &fakeStore{}, fakePinger{err: errors.New("down")}), "/api/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNotFound(t *testing.T) {
	h := newTestServer(t, &fakeStore{}, fakePinger{})

	for _, path := range []string{"/", "/api/analytics/unknown", "/api/nope"} {
		rec := get(t, h, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.JSONEq(t, `{"error":"Route not found"}`, rec.Body.String())
	}
}

func TestMiddlewareHeaders(t *testing.T) {
	h := newTestServer(t, &fakeStore{}, fakePinger{})

	rec := get(t, h, "/api/health", map[string]string{"X-Request-ID": "abc123"})
	assert.Equal(t, "abc123", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	rec = get(t, h, "/api/health", nil)
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, &fakeStore{}, fakePinger{})
	get(t, h, "/api/analytics/total-sales", nil)

	rec := get(t, h, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `shopdash_dataset_queries_total{dataset="totalSales",outcome="ok"} 1`)
	assert.Contains(t, rec.Body.String(), `shopdash_http_requests_total{code="200",method="GET"} 1`)
}

func TestRecoverMiddleware(t *testing.T) {
	logger := zaptest.NewLogger(t)
	s := NewServer(analytics.NewService(&fakeStore{}, nil, logger), fakePinger{}, metrics.New(), nil, logger)
	s.mux.HandleFunc("GET /boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := get(t, s.Handler(), "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Something went wrong!"}`, rec.Body.String())
}
