// Package llmclient provides the resilient HTTP caller used for generative-AI providers:
// - Request marshaling
// - Retries with bounded, jitter-free exponential backoff
// - Uniform error envelopes (*CallError) parsed from provider responses
// - Compressed response decoding
package llmclient

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"agrimitra/internal/core"
	"agrimitra/internal/httpclient"
)

// StatusInvalidArgument marks requests that could not be built locally; never retried.
const StatusInvalidArgument = "INVALID_ARGUMENT"

var (
	remoteAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrimitra_remote_attempts_total",
			Help: "Total number of outbound attempts to remote AI providers, by outcome",
		},
		[]string{"provider", "outcome"},
	)
	remoteRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrimitra_remote_retries_total",
			Help: "Total number of retries scheduled after transient failures",
		},
		[]string{"provider"},
	)
)

// Config holds configuration for the client
type Config struct {
	// ProviderName identifies the provider in logs and metrics
	ProviderName string

	// BaseURL is the API base URL
	BaseURL string

	// Retry is the shared retry policy
	Retry RetryPolicy
}

// DefaultConfig returns default client configuration
func DefaultConfig(providerName, baseURL string) Config {
	return Config{
		ProviderName: providerName,
		BaseURL:      baseURL,
		Retry:        DefaultRetryPolicy(),
	}
}

// HeaderSetter is a function that sets headers on an HTTP request
type HeaderSetter func(req *http.Request)

// Client is the resilient remote caller
type Client struct {
	httpClient   *http.Client
	config       Config
	headerSetter HeaderSetter
}

// New creates a new client with the given configuration
func New(config Config, headerSetter HeaderSetter) *Client {
	return NewWithHTTPClient(httpclient.NewHTTPClient(nil), config, headerSetter)
}

// NewWithHTTPClient creates a new client with a custom HTTP client
func NewWithHTTPClient(httpClient *http.Client, config Config, headerSetter HeaderSetter) *Client {
	config.Retry = config.Retry.withDefaults()
	return &Client{
		httpClient:   httpClient,
		config:       config,
		headerSetter: headerSetter,
	}
}

// Request represents an HTTP request to be made
type Request struct {
	Method   string
	Endpoint string
	Body     interface{} // Will be JSON marshaled if not nil
	Headers  map[string]string
}

// Response represents a successful (2xx) HTTP response
type Response struct {
	StatusCode int
	Body       []byte
}

// DoRaw executes a request under the retry policy. On failure the returned error is
// always a *CallError carrying the last attempt's code, status and message.
func (c *Client) DoRaw(ctx context.Context, req Request) (*Response, error) {
	policy := c.config.Retry

	var (
		resp    *Response
		lastErr *CallError
		attempt int
	)

	operation := func() error {
		attempt++
		r, callErr := c.doRequest(ctx, req)
		if callErr == nil {
			remoteAttempts.WithLabelValues(c.config.ProviderName, "success").Inc()
			resp = r
			return nil
		}

		lastErr = callErr
		if !policy.IsTransient(callErr) {
			remoteAttempts.WithLabelValues(c.config.ProviderName, "error").Inc()
			return backoff.Permanent(callErr)
		}
		remoteAttempts.WithLabelValues(c.config.ProviderName, "transient_error").Inc()
		return callErr
	}

	notify := func(err error, wait time.Duration) {
		remoteRetries.WithLabelValues(c.config.ProviderName).Inc()
		slog.Warn("retrying remote call",
			"provider", c.config.ProviderName,
			"attempt", attempt,
			"backoff", wait,
			"error", err,
			"request_id", core.GetRequestID(ctx),
		)
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(policy.newBackOff(), ctx), notify)
	if err == nil {
		return resp, nil
	}

	// Cancellation while waiting between attempts
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, newNetworkError(err)
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, newNetworkError(err)
}

// doRequest executes a single HTTP request without retries
func (c *Client) doRequest(ctx context.Context, req Request) (*Response, *CallError) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, &CallError{Status: StatusInvalidArgument, Message: err.Error(), Err: err}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, newNetworkError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newNetworkError(err)
	}
	body = decompressBody(body, resp.Header.Get("Content-Encoding"))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseCallError(resp.StatusCode, body)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
	}, nil
}

// buildRequest creates an HTTP request from a Request
func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	url := c.config.BaseURL + req.Endpoint

	var bodyReader io.Reader
	if req.Body != nil {
		bodyBytes, err := json.Marshal(req.Body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept-Encoding", "br, gzip")

	// Apply provider-specific headers
	if c.headerSetter != nil {
		c.headerSetter(httpReq)
	}

	// Apply request-specific headers
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	return httpReq, nil
}

// decompressBody decodes a gzip or brotli body. The original bytes are returned when
// the encoding is unknown or decoding fails.
func decompressBody(body []byte, contentEncoding string) []byte {
	if len(body) == 0 || contentEncoding == "" {
		return body
	}

	encoding := strings.ToLower(strings.TrimSpace(strings.Split(contentEncoding, ",")[0]))

	const maxDecompressedSize = 16 * 1024 * 1024

	var reader io.Reader
	switch encoding {
	case "gzip":
		gz, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return body
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(bytes.NewReader(body))
	default:
		return body
	}

	decompressed, err := io.ReadAll(io.LimitReader(reader, maxDecompressedSize))
	if err != nil {
		return body
	}
	return decompressed
}
