package deviceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/muurk/ecofan/internal/version"
)

// DefaultTimeout is the default HTTP request timeout
const DefaultTimeout = 10 * time.Second

// maxBodySize caps how much of a response is read. The controller's state
// document is a few dozen bytes.
const maxBodySize = 64 << 10

// Client talks to a single eCO fan controller.
type Client struct {
	// BaseURL is the device address including scheme (e.g., "http://192.168.1.40")
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// UserAgent is sent on every request
	UserAgent string
}

// Response is a raw answer from the controller. The status code is never
// interpreted; the firmware does not use it meaningfully.
type Response struct {
	StatusCode int
	Body       []byte
}

// NewClient creates a client for the device at baseURL.
// A trailing slash is trimmed so paths can be appended directly.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		UserAgent:  version.UserAgent(),
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// StateURL returns the full URL of the state endpoint.
func (c *Client) StateURL() string {
	return c.BaseURL + StatePath
}

// Fetch performs GET /api/state and returns the raw response.
func (c *Client) Fetch(ctx context.Context) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.StateURL(), nil)
	if err != nil {
		return nil, NewRequestError("failed to create GET request", c.BaseURL, err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, "GET request failed")
}

// GetState fetches and decodes the controller state.
// Transport failures are network errors; an undecodable body is a parse error.
func (c *Client) GetState(ctx context.Context) (*StateResponse, error) {
	resp, err := c.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	state, err := DecodeState(resp.Body)
	if err != nil {
		return nil, NewParseError("failed to parse state response", c.BaseURL, err)
	}
	return state, nil
}

// SetState POSTs the full state to the controller. Any HTTP response counts
// as delivered; the returned status code is informational only.
func (c *Client) SetState(ctx context.Context, state State) (int, error) {
	payload, err := json.Marshal(state)
	if err != nil {
		return 0, NewRequestError("failed to encode state", c.BaseURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.StateURL(), bytes.NewReader(payload))
	if err != nil {
		return 0, NewRequestError("failed to create POST request", c.BaseURL, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req, "POST request failed")
	if err != nil {
		return 0, err
	}
	return resp.StatusCode, nil
}

func (c *Client) do(req *http.Request, failure string) (*Response, error) {
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, NewNetworkError(failure, c.BaseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, NewNetworkError("failed to read response body", c.BaseURL, err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}
