// Package backend is the HTTP client for the job tracker backend service.
// Every call carries the shared API key in the X-API-Key header; an empty key
// sends no header, which the backend accepts only in local bypass setups.
package backend

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/jonathan/job-dashboard/internal/logger"
)

// APIKeyHeader carries the shared secret on every backend call.
const APIKeyHeader = "X-API-Key"

// APIPrefix is prepended to every backend path.
const APIPrefix = "/api/v1"

// DefaultTimeout bounds a single backend call, retries included.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is sent on every backend call.
const DefaultUserAgent = "JobDashboard/1.0"

// maxBodySize caps how much of a backend response is buffered.
const maxBodySize = 10 << 20

// Options configures the backend client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	RetryMax  int // applies to GET only
	UserAgent string
}

// Request describes one call to the backend.
type Request struct {
	Method string
	Path   string // relative to APIPrefix, e.g. "/jobs/{id}"
	Query  string // already encoded
	Body   []byte
	APIKey string
}

// Response is a fully buffered backend response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client talks to the backend. Reads and writes use separate transports so
// that automatic retries never replay a mutation.
type Client struct {
	baseURL   string
	userAgent string
	reads     *retryablehttp.Client
	writes    *retryablehttp.Client
	log       *zap.SugaredLogger
}

// NewClient creates a backend client.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	log := logger.ComponentLogger("backend")

	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		reads:     newRetryClient(opts.Timeout, opts.RetryMax, log),
		writes:    newRetryClient(opts.Timeout, 0, log),
		log:       log,
	}
}

func newRetryClient(timeout time.Duration, retryMax int, log *zap.SugaredLogger) *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	rc.HTTPClient.Timeout = timeout
	rc.RetryMax = retryMax
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = leveledLogger{log: log}
	// Hand the last response back instead of a "giving up" error so 5xx
	// bodies are relayed to the browser unchanged.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return rc
}

// BaseURL returns the backend root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends req and buffers the response. Only transport failures are
// returned as errors; any HTTP status is a valid Response.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	target := c.baseURL + APIPrefix + req.Path
	if req.Query != "" {
		target += "?" + req.Query
	}

	var body any
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, &Error{Method: req.Method, URL: target, Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.APIKey != "" {
		httpReq.Header.Set(APIKeyHeader, req.APIKey)
	}

	client := c.writes
	if req.Method == http.MethodGet {
		client = c.reads
	}

	start := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		c.log.Warnw("backend request failed",
			logger.FieldMethod, req.Method,
			logger.FieldPath, req.Path,
			logger.FieldError, err,
		)
		return nil, &Error{Method: req.Method, URL: redact(target), Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &Error{Method: req.Method, URL: redact(target), Message: "failed to read response body", Cause: err}
	}

	c.log.Debugw("backend request",
		logger.FieldMethod, req.Method,
		logger.FieldPath, req.Path,
		logger.FieldStatus, resp.StatusCode,
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// redact drops the query string so search terms do not end up in error logs.
func redact(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	u.RawQuery = ""
	return u.String()
}

// leveledLogger adapts zap to retryablehttp.LeveledLogger.
type leveledLogger struct {
	log *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, keysAndValues...)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Warnw(msg, keysAndValues...)
}
