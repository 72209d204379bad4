package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dob-oracle/internal/domain"
)

const (
	msgStartFailed  = "Failed to start analysis"
	msgStatusFailed = "Failed to get workflow status"
)

// APIError is a non-2xx answer from the analysis backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Health is the body of GET /api/health.
type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
}

// Client talks to the analysis backend over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for baseURL. A zero timeout leaves requests
// bounded only by their context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Analyze starts a DOB analysis and returns the workflow id.
func (c *Client) Analyze(ctx context.Context, dob string) (string, error) {
	requestBody, err := json.Marshal(domain.AnalyzeRequest{DOB: dob})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/analyze", bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", decodeError(resp, msgStartFailed)
	}

	var started domain.AnalyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&started); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}
	if started.WorkflowID == "" {
		return "", &APIError{StatusCode: resp.StatusCode, Message: msgStartFailed}
	}

	return started.WorkflowID, nil
}

// GetWorkflow fetches the current status of a workflow.
func (c *Client) GetWorkflow(ctx context.Context, workflowID string) (*domain.WorkflowStatus, error) {
	endpoint := c.baseURL + "/api/workflow/" + url.PathEscape(workflowID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msgStatusFailed}
	}

	var status domain.WorkflowStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	return &status, nil
}

// Health checks that the backend is up.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp, fmt.Sprintf("backend unhealthy: status code %d", resp.StatusCode))
	}

	var health Health
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	return &health, nil
}

// decodeError surfaces the backend's {"error": "..."} message when present.
func decodeError(resp *http.Response, fallback string) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
		return &APIError{StatusCode: resp.StatusCode, Message: fallback}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: body.Error}
}
