package controlplane

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Result is the outcome of one control-plane call. Calls always complete
// within the client timeout; a Result never represents a still-pending
// request.
type Result struct {
	OK         bool
	StatusCode int
	Message    string
	Err        error
}

// String renders the result for log lines.
func (r Result) String() string {
	if r.OK {
		return fmt.Sprintf("ok (%d): %s", r.StatusCode, r.Message)
	}
	if r.Err != nil {
		return fmt.Sprintf("failed: %v", r.Err)
	}
	return fmt.Sprintf("failed (%d): %s", r.StatusCode, r.Message)
}

// Client talks to the host-side control-plane service. Every call carries
// the bearer token and a hard timeout so a hung host never blocks a build.
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient builds a client for the service at host:port.
func NewClient(host string, port int, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    fmt.Sprintf("http://%s:%d", host, port),
		apiKey:     apiKey,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// BaseURL returns the service address the client targets.
func (c *Client) BaseURL() string { return c.baseURL }

// Restart asks the host to restart one named resource.
func (c *Client) Restart(ctx context.Context, name string) Result {
	endpoint := "/restart?resource=" + url.QueryEscape(name)
	var body RestartResponse
	res := c.post(ctx, endpoint, &body)
	if res.OK {
		res.Message = body.Message
		res.OK = body.Success
	}
	return res
}

// RestartAll asks the host to restart every resource except its own.
func (c *Client) RestartAll(ctx context.Context) Result {
	var body RestartAllResponse
	res := c.post(ctx, "/restart", &body)
	if res.OK {
		res.Message = body.Message
		res.OK = body.Success
	}
	return res
}

// ListResources fetches the host's resource names.
func (c *Client) ListResources(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, "/resources")
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("control-plane request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("control-plane list: %s", errorBody(resp))
	}
	var body ListResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("control-plane list decode: %w", err)
	}
	return body.Resources, nil
}

// Ping checks service liveness.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, "/")
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("control-plane unreachable: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("control-plane liveness: status %d", resp.StatusCode)
	}
	return nil
}

// post issues a POST and decodes a 200 body into out. Network failures and
// non-2xx statuses land in the Result, never as a hang or a panic.
func (c *Client) post(ctx context.Context, endpoint string, out any) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodPost, endpoint)
	if err != nil {
		return Result{Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{Err: fmt.Errorf("control-plane request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{StatusCode: resp.StatusCode, Message: errorBody(resp)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return Result{StatusCode: resp.StatusCode, Err: fmt.Errorf("control-plane decode: %w", err)}
	}
	return Result{OK: true, StatusCode: resp.StatusCode}
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("control-plane request build: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// errorBody extracts the error message from a JSON error reply, falling back
// to the HTTP status line.
func errorBody(resp *http.Response) string {
	var body ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err == nil && body.Error != "" {
		return body.Error
	}
	return resp.Status
}
