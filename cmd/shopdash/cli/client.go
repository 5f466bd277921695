package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// APIClient handles HTTP communication with the analytics API.
type APIClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error (%d)", e.StatusCode)
}

// NewClient creates an APIClient for the resolved server.
func NewClient() (*APIClient, error) {
	server, err := resolveServer(serverFlag)
	if err != nil {
		return nil, err
	}
	return NewClientWithURL(server), nil
}

// NewClientWithURL creates a new APIClient with an explicit base URL.
func NewClientWithURL(serverURL string) *APIClient {
	return &APIClient{
		BaseURL: strings.TrimRight(serverURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *APIClient) do(method, path string, result interface{}) error {
	url := c.BaseURL + path
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		// Try to parse structured error
		_ = json.Unmarshal(respBody, apiErr)
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Health queries the liveness endpoint.
func (c *APIClient) Health() (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.do("GET", "/health", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ready queries the readiness endpoint, which checks the database.
func (c *APIClient) Ready() error {
	return c.do("GET", "/ready", nil)
}

// Dataset fetches one dataset by route path. The raw JSON is returned so it can be
// printed unchanged.
func (c *APIClient) Dataset(path string) (json.RawMessage, error) {
	var resp json.RawMessage
	if err := c.do("GET", "/analytics/"+path, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Dashboard fetches every dataset in one call, as an object keyed by dataset name.
func (c *APIClient) Dashboard() (json.RawMessage, error) {
	var resp json.RawMessage
	if err := c.do("GET", "/analytics/dashboard", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}
