package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// apiClient is a thin HTTP client for the latticed API. Identity headers
// mimic what the gateway would set in front of the service.
type apiClient struct {
	baseURL string
	userID  int64
	admin   bool
	http    *http.Client
}

func newAPIClient(baseURL string, userID int64, admin bool) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		userID:  userID,
		admin:   admin,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// doJSON sends a request and decodes the JSON response into out (when out
// is non-nil and the body is JSON). The raw body is returned for error
// reporting.
func (c *apiClient) doJSON(method, path string, body interface{}, out interface{}) (int, string, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, "", fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return 0, "", err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Lattice-User-Id", strconv.FormatInt(c.userID, 10))
	if c.admin {
		req.Header.Set("X-Lattice-Platform-Admin", "true")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", err
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, string(raw), nil
		}
	}
	return resp.StatusCode, string(raw), nil
}
