package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/espinput-cli/internal/logging"
	"github.com/yourusername/espinput-cli/internal/models"
)

const (
	DefaultBaseURL = "http://192.168.4.1"
	DefaultTimeout = 30 * time.Second
)

var (
	errEmptyBody     = errors.New("empty response body")
	errCountMismatch = errors.New("list count does not match number of inputs")
)

// Client is the device input API client
type Client struct {
	conn        *Connection
	strictCount bool
}

// Option configures a Client
type Option func(*Client)

// WithStrictCount rejects list responses whose count disagrees with the list length
func WithStrictCount() Option {
	return func(c *Client) {
		c.strictCount = true
	}
}

// NewClient creates a new device client
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		conn: NewConnection(baseURL, timeout),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the device base URL
func (c *Client) BaseURL() string {
	return c.conn.BaseURL()
}

// request is a helper to send a request and return the raw success body
func (c *Client) request(ctx context.Context, op, method, path string, form url.Values) ([]byte, error) {
	requestID := uuid.New().String()
	start := time.Now()

	resp, err := c.conn.SendRequest(ctx, method, path, form, requestID)
	if err != nil {
		logging.Warn().Str("op", op).Str("requestId", requestID).Err(err).Msg("request failed")
		return nil, wrapError(op, 0, err)
	}

	logging.Debug().
		Str("op", op).
		Str("requestId", requestID).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request completed")

	if !resp.IsSuccess() {
		var deviceMsg string
		if len(resp.Body) > 0 {
			// Best effort: the device usually explains failures in {"error": ...}
			var devErr models.ErrorResponse
			if json.Unmarshal(resp.Body, &devErr) == nil && devErr.IsError() {
				deviceMsg = devErr.GetError()
			}
		}
		return nil, statusError(op, resp, deviceMsg)
	}

	if len(resp.Body) == 0 {
		return nil, wrapError(op, resp.StatusCode, errEmptyBody)
	}

	return resp.Body, nil
}

// decode unmarshals a success body into an envelope.
// A body without data ("null", "{}", {"code":200}) is a failure.
func decode[T any](op string, body []byte) (T, error) {
	var zero T
	var env models.Envelope[*T]
	if err := json.Unmarshal(body, &env); err != nil {
		return zero, wrapError(op, 0, fmt.Errorf("invalid response: %w", err))
	}
	if env.Data == nil {
		return zero, wrapError(op, 0, errEmptyBody)
	}
	return *env.Data, nil
}

func inputPath(id int) string {
	return "/input/" + strconv.Itoa(id)
}

// Create posts a new input with the given message
func (c *Client) Create(ctx context.Context, message string) (models.Record, error) {
	body, err := c.request(ctx, OpCreate, http.MethodPost, "/input", url.Values{"message": {message}})
	if err != nil {
		return models.Record{}, err
	}
	return decode[models.Record](OpCreate, body)
}

// List retrieves every input stored on the device, in device order
func (c *Client) List(ctx context.Context) ([]models.Record, error) {
	body, err := c.request(ctx, OpList, http.MethodGet, "/input", nil)
	if err != nil {
		return nil, err
	}

	payload, err := decode[models.ListPayload](OpList, body)
	if err != nil {
		return nil, err
	}

	if !payload.CountMatches() {
		logging.Warn().
			Int("count", payload.Count).
			Int("inputs", len(payload.Inputs)).
			Msg("device list count mismatch")
		if c.strictCount {
			return nil, wrapError(OpList, 0, errCountMismatch)
		}
	}

	if payload.Inputs == nil {
		return []models.Record{}, nil
	}
	return payload.Inputs, nil
}

// Get retrieves a single input by ID
func (c *Client) Get(ctx context.Context, id int) (models.Record, error) {
	body, err := c.request(ctx, OpGet, http.MethodGet, inputPath(id), nil)
	if err != nil {
		return models.Record{}, err
	}
	return decode[models.Record](OpGet, body)
}

// Update replaces the message of an existing input
func (c *Client) Update(ctx context.Context, id int, message string) (models.Record, error) {
	body, err := c.request(ctx, OpUpdate, http.MethodPut, inputPath(id), url.Values{"message": {message}})
	if err != nil {
		return models.Record{}, err
	}
	return decode[models.Record](OpUpdate, body)
}

// Delete removes an input and returns the device's confirmation message
func (c *Client) Delete(ctx context.Context, id int) (string, error) {
	body, err := c.request(ctx, OpDelete, http.MethodDelete, inputPath(id), nil)
	if err != nil {
		return "", err
	}

	result, err := decode[models.MessageResult](OpDelete, body)
	if err != nil {
		return "", err
	}
	return result.Message, nil
}
