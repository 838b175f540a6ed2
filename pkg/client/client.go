package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "perfprobe/pkg/errors"
	"perfprobe/pkg/retry"
)

// ErrRequestRejected is the cause of every 4xx answer. Rejected requests are
// never retried.
var ErrRequestRejected = errors.New("request rejected")

// Client talks to a running perfprobe service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      *retry.Config
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetry retries measurements the service could not start, such as a
// busy browser slot or an open breaker.
func WithRetry(cfg retry.Config) Option {
	return func(c *Client) {
		cfg.NonRetryableErrors = append(cfg.NonRetryableErrors, ErrRequestRejected, context.Canceled)
		c.retry = &cfg
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			// covers queueing plus the longest navigation the server allows
			Timeout: 5 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MeasureRequest mirrors the POST /api/measure body. Zero values defer to
// the server defaults.
type MeasureRequest struct {
	URL      string        `json:"url"`
	Headless *bool         `json:"headless,omitempty"`
	Timeout  time.Duration `json:"-"`
}

type measureBody struct {
	MeasureRequest
	TimeoutMs int64 `json:"timeout_ms,omitempty"`
}

// Measure asks the service to measure req.URL. A page that fails to load
// is not an error here: the envelope carries it.
func (c *Client) Measure(ctx context.Context, req MeasureRequest) (*Result, error) {
	body := measureBody{MeasureRequest: req, TimeoutMs: req.Timeout.Milliseconds()}

	do := func(ctx context.Context) (*Result, error) {
		var result Result
		if err := c.post(ctx, "/api/measure", body, &result); err != nil {
			return nil, err
		}
		return &result, nil
	}

	if c.retry == nil {
		return do(ctx)
	}
	return retry.DoWithResult(ctx, *c.retry, do)
}

// Ready returns nil when the service reports every dependency healthy.
func (c *Client) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ready", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("service not ready: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return parseResponse(resp, out)
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func parseResponse(resp *http.Response, out interface{}) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var eb errorBody
		if err := json.Unmarshal(data, &eb); err != nil || eb.Error == "" {
			eb = errorBody{Error: strings.TrimSpace(string(data)), Code: string(apperrors.ErrCodeInternal)}
		}
		appErr := apperrors.NewAppError(apperrors.ErrorCode(eb.Code), eb.Error, resp.StatusCode)
		if resp.StatusCode < 500 {
			appErr.Cause = ErrRequestRejected
		}
		return appErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
