package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// maxBodySize caps how much of a response body is read
const maxBodySize = 1 << 20

// Connection manages HTTP round trips to the device
type Connection struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// Response is a raw device response
type Response struct {
	StatusCode int
	Status     string // Status message without the numeric code, e.g. "Not Found"
	Body       []byte
}

// NewConnection creates a new connection instance
func NewConnection(baseURL string, timeout time.Duration) *Connection {
	return &Connection{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// BaseURL returns the device base URL without a trailing slash
func (c *Connection) BaseURL() string {
	return c.baseURL
}

// SendRequest performs a single request and reads the whole response body.
// A form, when non-nil, is sent form-url-encoded.
func (c *Connection) SendRequest(ctx context.Context, method, path string, form url.Values, requestID string) (*Response, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     statusMessage(resp),
		Body:       data,
	}, nil
}

// IsSuccess returns true for 2xx statuses
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// statusMessage strips the numeric code from resp.Status
func statusMessage(resp *http.Response) string {
	msg := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return msg
}
