package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI serves a minimal analytics API under /api.
func fakeAPI(t *testing.T, ready bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status": "OK", "message": "Analytics API is running", "timestamp": "2024-01-01T00:00:00Z",
		})
	})
	mux.HandleFunc("GET /api/ready", func(w http.ResponseWriter, r *http.Request) {
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"database unavailable"}`))
			return
		}
		w.Write([]byte(`{"status":"ready"}`))
	})
	mux.HandleFunc("GET /api/analytics/conversion-rate", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rate": 3.2, "growth": 0.8, "target": 4.0, "progress": 80}`))
	})
	mux.HandleFunc("GET /api/analytics/sessions-by-device", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Failed to fetch sessions by device data"}`))
	})
	mux.HandleFunc("GET /api/analytics/dashboard", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"sessionsByDevice":[{"name":"Mobile","value":35,"color":"#00D4AA"}],
			"customersOverTime":[],"totalSales":[],"grossSalesByCountry":[],"salesByProduct":[],
			"grossSalesByDevice":[],"sessionsByCountry":[],
			"customerSatisfaction":{"rating":4.8},"conversionRate":{"rate":3.2},"sessionsOverTime":[]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// runCLI executes the root command with args and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv(serverEnv, "")
	serverFlag = ""

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestAPIClientErrors(t *testing.T) {
	srv := fakeAPI(t, true)
	client := NewClientWithURL(srv.URL + "/api/")

	_, err := client.Dataset("sessions-by-device")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "Failed to fetch sessions by device data", apiErr.Message)
	assert.Equal(t, "API error (500): Failed to fetch sessions by device data", apiErr.Error())

	// Unstructured bodies fall back to the status text.
	_, err = client.Dataset("nope")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.NotEmpty(t, apiErr.Message)
}

func TestAPIClientHealth(t *testing.T) {
	srv := fakeAPI(t, true)

	health, err := NewClientWithURL(srv.URL + "/api").Health()
	require.NoError(t, err)
	assert.Equal(t, "OK", health.Status)
	assert.Equal(t, "2024-01-01T00:00:00Z", health.Timestamp)
}

func TestResolveServer(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(serverEnv, "")

	got, err := resolveServer("")
	require.NoError(t, err)
	assert.Equal(t, DefaultServer, got)

	require.NoError(t, SaveConfig(Config{Server: "http://from-config/api"}))
	got, err = resolveServer("")
	require.NoError(t, err)
	assert.Equal(t, "http://from-config/api", got)

	t.Setenv(serverEnv, "http://from-env/api/")
	got, err = resolveServer("")
	require.NoError(t, err)
	assert.Equal(t, "http://from-env/api", got)

	got, err = resolveServer("http://from-flag/api")
	require.NoError(t, err)
	assert.Equal(t, "http://from-flag/api", got)
}

func TestValidateServer(t *testing.T) {
	assert.NoError(t, validateServer("http://localhost:5000/api"))
	assert.NoError(t, validateServer("https://analytics.example.com/api"))
	assert.Error(t, validateServer("localhost:5000"))
	assert.Error(t, validateServer("ftp://host/api"))
	assert.Error(t, validateServer("http:///api"))
}

func TestGetCommand(t *testing.T) {
	srv := fakeAPI(t, true)

	out, err := runCLI(t, "get", "conversionRate", "--server", srv.URL+"/api")
	require.NoError(t, err)
	// Not a terminal, so the body is compacted.
	assert.Equal(t, `{"rate":3.2,"growth":0.8,"target":4.0,"progress":80}`+"\n", out)

	_, err = runCLI(t, "get", "bogus", "--server", srv.URL+"/api")
	assert.ErrorContains(t, err, `unknown dataset "bogus"`)

	_, err = runCLI(t, "get", "sessions-by-device", "--server", srv.URL+"/api")
	assert.ErrorContains(t, err, "Failed to fetch sessions by device data")
}

func TestDashboardCommand(t *testing.T) {
	srv := fakeAPI(t, true)

	out, err := runCLI(t, "dashboard", "--server", srv.URL+"/api")
	require.NoError(t, err)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Len(t, body, 10)
	assert.False(t, strings.Contains(strings.TrimSpace(out), "\n"))
}

func TestDatasetsCommand(t *testing.T) {
	out, err := runCLI(t, "datasets")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 11)
	assert.Contains(t, lines[0], "NAME")
	assert.Contains(t, out, "sessions-over-time")
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		require.GreaterOrEqual(t, len(fields), 4, line)
		if fields[0] == "customer-satisfaction" {
			assert.Equal(t, []string{"customerSatisfaction", "summary"}, fields[1:3])
		}
	}
}

func TestConfigSetServer(t *testing.T) {
	out, err := runCLI(t, "config", "set-server", "http://analytics.internal:5000/api/")
	require.NoError(t, err)
	assert.Equal(t, "Server set to http://analytics.internal:5000/api\n", out)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://analytics.internal:5000/api", cfg.Server)

	_, err = runCLI(t, "config", "set-server", "not a url")
	assert.Error(t, err)
}

func TestDoctor(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		srv := fakeAPI(t, true)
		checks := doctorChecks(NewClientWithURL(srv.URL + "/api"))
		require.Len(t, checks, 4)
		for _, c := range checks {
			assert.True(t, c.ok, "%s: %s", c.name, c.detail)
		}
		assert.Contains(t, checks[3].detail, "10 datasets")
		assert.Contains(t, checks[3].detail, "empty:")
	})

	t.Run("database down", func(t *testing.T) {
		srv := fakeAPI(t, false)
		checks := doctorChecks(NewClientWithURL(srv.URL + "/api"))
		require.Len(t, checks, 4)
		assert.False(t, checks[2].ok)
		assert.Contains(t, checks[2].detail, "database unavailable")
	})

	t.Run("wrong base path", func(t *testing.T) {
		srv := fakeAPI(t, true)
		checks := doctorChecks(NewClientWithURL(srv.URL))
		require.Len(t, checks, 1)
		assert.False(t, checks[0].ok)
	})

	t.Run("command fails when a check fails", func(t *testing.T) {
		srv := fakeAPI(t, false)
		_, err := runCLI(t, "doctor", "--server", srv.URL+"/api")
		assert.EqualError(t, err, "health check failed")
	})
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "shopdash version dev\n", out)
}
