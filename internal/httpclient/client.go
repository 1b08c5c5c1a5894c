// Package httpclient builds the outbound HTTP clients for the two upstreams: the Gemini
// API, where one multimodal call can run for over a minute, and Open-Meteo, which
// answers in well under a second and should fail fast so its circuit breaker can trip.
package httpclient

import (
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"agrimitra/internal/version"
)

// ClientConfig holds the transport and timeout settings of one upstream profile
type ClientConfig struct {
	// Name labels the profile in the User-Agent, e.g. "gemini".
	Name string

	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration

	// Timeout bounds a single attempt, body included. Retries get a fresh budget.
	Timeout               time.Duration
	DialTimeout           time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
}

// getEnvDuration reads a duration from an environment variable, returning the default if not set or invalid.
// Accepts either plain integers (interpreted as seconds) or Go duration strings (e.g., "90s", "2m").
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	return defaultVal
}

// GeminiConfig returns the profile for model calls. Overrides, in seconds or Go
// duration format:
//   - HTTP_TIMEOUT: per-attempt timeout (default: 120s)
//   - HTTP_RESPONSE_HEADER_TIMEOUT: wait for response headers (default: 120s)
func GeminiConfig() ClientConfig {
	return ClientConfig{
		Name:                  "gemini",
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		Timeout:               getEnvDuration("HTTP_TIMEOUT", 120*time.Second),
		DialTimeout:           10 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: getEnvDuration("HTTP_RESPONSE_HEADER_TIMEOUT", 120*time.Second),
	}
}

// WeatherConfig returns the profile for forecast calls. WEATHER_HTTP_TIMEOUT overrides
// the per-request timeout (default: 15s).
func WeatherConfig() ClientConfig {
	timeout := getEnvDuration("WEATHER_HTTP_TIMEOUT", 15*time.Second)
	return ClientConfig{
		Name:                  "weather",
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		Timeout:               timeout,
		DialTimeout:           5 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
}

// NewHTTPClient creates a client for the given profile.
// If config is nil, GeminiConfig() is used.
func NewHTTPClient(config *ClientConfig) *http.Client {
	if config == nil {
		cfg := GeminiConfig()
		config = &cfg
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   config.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: &userAgentTransport{base: transport, agent: userAgent(config.Name)},
		Timeout:   config.Timeout,
	}
}

// NewGeminiClient returns a client with the Gemini profile.
func NewGeminiClient() *http.Client {
	cfg := GeminiConfig()
	return NewHTTPClient(&cfg)
}

// NewWeatherClient returns a client with the Open-Meteo profile.
func NewWeatherClient() *http.Client {
	cfg := WeatherConfig()
	return NewHTTPClient(&cfg)
}

func userAgent(name string) string {
	agent := "agrimitra/" + version.Version
	if name != "" {
		agent += " (" + name + ")"
	}
	return agent
}

// userAgentTransport sets User-Agent on requests that do not carry one.
type userAgentTransport struct {
	base  http.RoundTripper
	agent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	// RoundTrippers must not modify the caller's request.
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.agent)
	return t.base.RoundTrip(clone)
}
