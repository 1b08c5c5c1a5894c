// Package weather fetches forecasts from Open-Meteo and derives rain statistics from them.
package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"
)

// DefaultBaseURL is the Open-Meteo forecast endpoint. No API key is required.
const DefaultBaseURL = "https://api.open-meteo.com/v1/forecast"

const (
	currentFields = "temperature_2m,relative_humidity_2m,apparent_temperature,precipitation,rain,weather_code,wind_speed_10m"
	hourlyFields  = "precipitation_probability,precipitation,rain"

	maxBodyBytes = 4 << 20
)

// ErrProvider is returned when the forecast could not be obtained.
var ErrProvider = errors.New("weather provider error")

var forecastRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "agrimitra_weather_requests_total",
		Help: "Total number of Open-Meteo forecast requests, by outcome",
	},
	[]string{"outcome"},
)

// Config holds the client settings.
type Config struct {
	BaseURL string

	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
	// Interval clears the breaker's failure counts while closed. Zero never clears.
	Interval time.Duration
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		BaseURL:          DefaultBaseURL,
		FailureThreshold: 5,
		OpenTimeout:      time.Minute,
		Interval:         time.Minute,
	}
}

// Client fetches forecasts from Open-Meteo behind a circuit breaker.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// New creates a Client. A nil httpClient uses http.DefaultClient.
func New(cfg Config, httpClient *http.Client) *Client {
	defaults := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = defaults.FailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = defaults.OpenTimeout
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	threshold := cfg.FailureThreshold
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openmeteo",
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
		breaker:    breaker,
	}
}

// Forecast fetches the current conditions and the hourly precipitation series for a point.
// Every failure, including an open breaker, wraps ErrProvider.
func (c *Client) Forecast(ctx context.Context, lat, lon float64) (*Forecast, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, lat, lon)
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = "rejected"
		}
		forecastRequests.WithLabelValues(outcome).Inc()
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	forecastRequests.WithLabelValues("success").Inc()
	return result.(*Forecast), nil
}

func (c *Client) fetch(ctx context.Context, lat, lon float64) (*Forecast, error) {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	values.Set("current", currentFields)
	values.Set("hourly", hourlyFields)
	values.Set("timezone", "auto")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+values.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("response is not valid JSON")
	}
	return ParseForecast(body), nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}
