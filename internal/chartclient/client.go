// Package chartclient is a typed client for the Chart Compute Service.
package chartclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds a single request. Chart calculations can take
// several seconds on a cold engine.
const DefaultTimeout = 60 * time.Second

// maxBody limits how much of a response is read.
const maxBody = 16 << 20

// HTTPClient is the subset of *http.Client used by Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
	// Type is the service's error_type, e.g. "LocationError".
	Type string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("chart service returned HTTP %d", e.StatusCode)
	}
	if e.Type != "" {
		return fmt.Sprintf("chart service returned HTTP %d: %s (%s)", e.StatusCode, e.Message, e.Type)
	}
	return fmt.Sprintf("chart service returned HTTP %d: %s", e.StatusCode, e.Message)
}

// NotFound reports a 404, which the service uses for unknown locations.
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Client talks to one service instance.
type Client struct {
	baseURL string
	http    HTTPClient
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(c HTTPClient) Option {
	return func(cl *Client) { cl.http = c }
}

// New creates a Client for baseURL, e.g. "http://127.0.0.1:5000".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health fetches /api/health. An unhealthy service answers 503 with a
// full body; both the decoded body and an *APIError are returned then.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	status, body, err := c.do(ctx, http.MethodGet, "/api/health", nil)
	if err != nil {
		return nil, err
	}
	if jsonErr := json.Unmarshal(body, &out); jsonErr != nil {
		if status/100 != 2 {
			return nil, apiError(status, body)
		}
		return nil, fmt.Errorf("failed to decode health response: %w", jsonErr)
	}
	if status/100 != 2 {
		return &out, apiError(status, body)
	}
	return &out, nil
}

// Version fetches /api/version.
func (c *Client) Version(ctx context.Context) (*VersionResponse, error) {
	var out VersionResponse
	if err := c.call(ctx, http.MethodGet, "/api/version", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Metrics fetches /api/metrics as raw JSON.
func (c *Client) Metrics(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.call(ctx, http.MethodGet, "/api/metrics", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CalculateChart posts req to /api/calculate-chart.
func (c *Client) CalculateChart(ctx context.Context, req ChartRequest) (*ChartResult, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, fmt.Errorf("question is required")
	}

	var raw json.RawMessage
	if err := c.call(ctx, http.MethodPost, "/api/calculate-chart", req, &raw); err != nil {
		return nil, err
	}

	var out ChartResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode chart result: %w", err)
	}
	out.Raw = raw
	return &out, nil
}

// Timezone resolves location through /api/get-timezone.
func (c *Client) Timezone(ctx context.Context, location string) (*TimezoneResponse, error) {
	var out TimezoneResponse
	if err := c.locationCall(ctx, "/api/get-timezone", location, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CurrentTime fetches the current time at location from /api/current-time.
func (c *Client) CurrentTime(ctx context.Context, location string) (*CurrentTimeResponse, error) {
	var out CurrentTimeResponse
	if err := c.locationCall(ctx, "/api/current-time", location, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) locationCall(ctx context.Context, path, location string, out any) error {
	location = strings.TrimSpace(location)
	if location == "" {
		return fmt.Errorf("location is required")
	}
	return c.call(ctx, http.MethodPost, path, locationRequest{Location: location}, out)
}

// Status is a combined health and version snapshot.
type Status struct {
	Health  *HealthResponse
	Version *VersionResponse
}

// Status fetches health and version concurrently. A degraded or unhealthy
// service still yields its health body alongside the error.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var st Status
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		h, err := c.Health(gctx)
		st.Health = h
		return err
	})
	g.Go(func() error {
		v, err := c.Version(gctx)
		st.Version = v
		return err
	})

	err := g.Wait()
	return &st, err
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	status, body, err := c.do(ctx, method, path, in)
	if err != nil {
		return err
	}
	if status/100 != 2 {
		return apiError(status, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in any) (int, []byte, error) {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read %s response: %w", path, err)
	}
	return resp.StatusCode, body, nil
}

func apiError(status int, body []byte) *APIError {
	e := &APIError{StatusCode: status}
	var env errorEnvelope
	if json.Unmarshal(body, &env) == nil {
		e.Message = env.Error
		e.Type = env.ErrorType
	}
	return e
}
