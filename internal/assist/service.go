// Package assist implements the farmer-facing features on top of the model and weather providers.
package assist

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"agrimitra/internal/cache"
	"agrimitra/internal/core"
	"agrimitra/internal/guardrails"
	"agrimitra/internal/weather"
)

// Default cache lifetimes per feature.
const (
	DefaultWeatherTTL     = 10 * time.Minute
	DefaultSchemesTTL     = 60 * time.Minute
	DefaultTranslationTTL = 24 * time.Hour
)

// Generator produces model text for a prompt, optionally paired with an image.
// An empty string with a nil error means the model answered without text.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	GenerateWithImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
}

// WeatherSource fetches forecasts for a point.
type WeatherSource interface {
	Forecast(ctx context.Context, lat, lon float64) (*weather.Forecast, error)
}

// Caches groups the per-feature caches. Nil fields are created with the default TTLs.
type Caches struct {
	Weather      *cache.TTLCache[*WeatherReport]
	Schemes      *cache.TTLCache[*SchemeList]
	Translations *cache.TTLCache[*Translation]
}

// NewCaches creates the three feature caches with the given lifetimes and entry bound.
// Non-positive TTLs fall back to the defaults.
func NewCaches(weatherTTL, schemesTTL, translationTTL time.Duration, maxEntries int) Caches {
	if weatherTTL <= 0 {
		weatherTTL = DefaultWeatherTTL
	}
	if schemesTTL <= 0 {
		schemesTTL = DefaultSchemesTTL
	}
	if translationTTL <= 0 {
		translationTTL = DefaultTranslationTTL
	}
	return Caches{
		Weather:      cache.New[*WeatherReport](cache.Config{Name: "weather", TTL: weatherTTL, MaxEntries: maxEntries}),
		Schemes:      cache.New[*SchemeList](cache.Config{Name: "schemes", TTL: schemesTTL, MaxEntries: maxEntries}),
		Translations: cache.New[*Translation](cache.Config{Name: "translations", TTL: translationTTL, MaxEntries: maxEntries}),
	}
}

// Options configures a Service.
type Options struct {
	Generator Generator
	Weather   WeatherSource
	Caches    Caches
	Crisis    *guardrails.CrisisScreen
	// Now overrides the clock used to locate the current forecast hour.
	Now func() time.Time
}

// Service composes the providers, caches and extractor into the feature operations.
// It is safe for concurrent use.
type Service struct {
	gen     Generator
	weather WeatherSource
	caches  Caches
	crisis  *guardrails.CrisisScreen
	now     func() time.Time
}

// New creates a Service.
func New(opts Options) *Service {
	defaults := NewCaches(0, 0, 0, 0)
	if opts.Caches.Weather == nil {
		opts.Caches.Weather = defaults.Weather
	}
	if opts.Caches.Schemes == nil {
		opts.Caches.Schemes = defaults.Schemes
	}
	if opts.Caches.Translations == nil {
		opts.Caches.Translations = defaults.Translations
	}
	if opts.Crisis == nil {
		opts.Crisis = guardrails.NewCrisisScreen()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		gen:     opts.Generator,
		weather: opts.Weather,
		caches:  opts.Caches,
		crisis:  opts.Crisis,
		now:     opts.Now,
	}
}

// errUncacheable marks a load that produced a usable fallback which must not be stored.
var errUncacheable = errors.New("result not cacheable")

// logRemoteError records a failed model call with the request ID, if any.
func logRemoteError(ctx context.Context, feature string, err error) {
	slog.Warn("model call failed",
		"feature", feature,
		"request_id", core.GetRequestID(ctx),
		"error", err,
	)
}
