package ep

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/rs/zerolog"
)

const (
	// DefaultURL is the default EmbeddedPlatform REST endpoint
	DefaultURL = "http://localhost:29267"
	// DefaultTimeout bounds a single request; long-running jobs are polled separately
	DefaultTimeout = 30 * time.Minute
	// DefaultPollInterval is the wait between progress queries of a long-running job
	DefaultPollInterval = 2 * time.Second

	apiPrefix = "/ep/"
)

// APIError is returned for any non-2xx answer of the EP REST API
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("EP request %s %s failed with status %d", e.Method, e.Path, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Client talks to the EmbeddedPlatform REST API
type Client struct {
	baseURL      string
	http         *http.Client
	logger       zerolog.Logger
	timeout      time.Duration
	pollInterval time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The client is used as
// given; WithTimeout does not apply to it.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithPollInterval sets the wait between progress queries
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// NewClient creates a new EP client
func NewClient(baseURL string, logger zerolog.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}

	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		logger:       logger,
		timeout:      DefaultTimeout,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		c.http = cleanhttp.DefaultPooledClient()
		c.http.Timeout = c.timeout
	}
	return c
}

// BaseURL returns the server the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// IsAvailable checks if EmbeddedPlatform is running and accessible
func (c *Client) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("test"), nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Get requests path and decodes the result into out (may be nil)
func (c *Client) Get(ctx context.Context, path string, out any, message string) error {
	return c.do(ctx, http.MethodGet, path, nil, out, message)
}

// Put sends payload to path and decodes the result into out (may be nil)
func (c *Client) Put(ctx context.Context, path string, payload, out any, message string) error {
	return c.do(ctx, http.MethodPut, path, payload, out, message)
}

// Post sends payload to path and decodes the result into out (may be nil)
func (c *Client) Post(ctx context.Context, path string, payload, out any, message string) error {
	return c.do(ctx, http.MethodPost, path, payload, out, message)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any, message string) error {
	if message != "" {
		c.logger.Info().Str("method", method).Str("path", path).Msg(message)
	} else {
		c.logger.Debug().Str("method", method).Str("path", path).Msg("EP request")
	}

	status, body, err := c.send(ctx, method, path, payload)
	if err != nil {
		return err
	}

	if status == http.StatusAccepted {
		body, err = c.awaitJob(ctx, method, path, body)
		if err != nil {
			return err
		}
	}

	return decode(body, out)
}

// send performs a single request and returns status and body of a 2xx answer
func (c *Client) send(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal payload for %s: %w", path, err)
		}
		c.logger.Debug().RawJSON("payload", redact(data)).Msg("EP request payload")
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response of %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, nil, &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	return resp.StatusCode, body, nil
}

type jobResponse struct {
	JobID string `json:"jobID"`
}

// awaitJob polls the progress of a long-running operation until it completes
func (c *Client) awaitJob(ctx context.Context, method, path string, accepted []byte) ([]byte, error) {
	var job jobResponse
	if len(bytes.TrimSpace(accepted)) > 0 {
		if err := json.Unmarshal(accepted, &job); err != nil {
			return nil, fmt.Errorf("failed to parse job of %s %s: %w", method, path, err)
		}
	}
	if job.JobID == "" {
		return nil, nil
	}

	progressPath := "progress?progress-id=" + url.QueryEscape(job.JobID)
	c.logger.Debug().Str("job", job.JobID).Str("path", path).Msg("Waiting for long-running operation")

	timer := time.NewTimer(c.pollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("cancelled while waiting for %s %s: %w", method, path, ctx.Err())
		case <-timer.C:
		}

		status, body, err := c.send(ctx, http.MethodGet, progressPath, nil)
		if err != nil {
			return nil, err
		}
		if status != http.StatusAccepted {
			return body, nil
		}
		timer.Reset(c.pollInterval)
	}
}

func (c *Client) url(path string) string {
	return c.baseURL + apiPrefix + strings.TrimLeft(path, "/")
}

func decode(body []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// escapePath escapes each segment of a file system path for use in a URL path
func escapePath(p string) string {
	segments := strings.Split(strings.ReplaceAll(p, "\\", "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// redact hides credential fields of a JSON payload before it is logged
func redact(data []byte) []byte {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return data
	}
	changed := false
	for _, key := range []string{"password", "username"} {
		if _, ok := obj[key]; ok {
			obj[key] = "***"
			changed = true
		}
	}
	if !changed {
		return data
	}
	redacted, err := json.Marshal(obj)
	if err != nil {
		return []byte(`{}`)
	}
	return redacted
}
