// Package app provides the main application struct for centralized dependency management
// and lifecycle control of the agrimitra server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"agrimitra/config"
	"agrimitra/internal/assist"
	"agrimitra/internal/guardrails"
	"agrimitra/internal/httpclient"
	"agrimitra/internal/pkg/llmclient"
	"agrimitra/internal/providers/gemini"
	"agrimitra/internal/server"
	"agrimitra/internal/uploads"
	"agrimitra/internal/weather"
)

// App represents the main application with all its dependencies.
// It provides centralized lifecycle management for all components.
type App struct {
	config    *config.Config
	assistant *assist.Service
	caches    assist.Caches
	uploads   *uploads.Store
	sweeper   *uploads.Sweeper
	server    *server.Server

	shutdownMu sync.Mutex
	shutdown   bool
}

// Options holds optional overrides used mainly by tests.
type Options struct {
	// HTTPClient, when set, is used for both upstreams instead of the per-upstream
	// httpclient profiles.
	HTTPClient *http.Client
}

// New creates a new App with all dependencies initialized.
// The caller must call Shutdown to release resources.
func New(cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app config is required")
	}

	geminiHTTP, weatherHTTP := opts.HTTPClient, opts.HTTPClient
	if opts.HTTPClient == nil {
		geminiHTTP = httpclient.NewGeminiClient()
		weatherHTTP = httpclient.NewWeatherClient()
	}

	retry := llmclient.DefaultRetryPolicy()
	retry.MaxAttempts = cfg.Gemini.MaxAttempts
	generator := gemini.New(gemini.Config{
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
		BaseURL: cfg.Gemini.BaseURL,
		Retry:   retry,
	}, geminiHTTP)

	weatherCfg := weather.DefaultConfig()
	weatherCfg.BaseURL = cfg.Weather.BaseURL
	weatherCfg.FailureThreshold = cfg.Weather.FailureThreshold
	weatherCfg.OpenTimeout = cfg.Weather.OpenTimeout
	forecasts := weather.New(weatherCfg, weatherHTTP)

	store, err := uploads.NewStore(cfg.Uploads.Dir, cfg.Uploads.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize upload store: %w", err)
	}

	caches := assist.NewCaches(
		cfg.Cache.WeatherTTL,
		cfg.Cache.SchemesTTL,
		cfg.Cache.TranslationTTL,
		cfg.Cache.MaxEntries,
	)

	app := &App{
		config: cfg,
		assistant: assist.New(assist.Options{
			Generator: generator,
			Weather:   forecasts,
			Caches:    caches,
			Crisis:    guardrails.NewCrisisScreen(),
		}),
		caches:  caches,
		uploads: store,
		sweeper: uploads.NewSweeper(store, cfg.Uploads.SweepInterval, cfg.Uploads.MaxAge),
	}

	app.server = server.New(app.assistant, app.uploads, &server.Config{
		MetricsEnabled:  cfg.Metrics.Enabled,
		MetricsEndpoint: cfg.Metrics.Endpoint,
		BodySizeLimit:   cfg.BodySizeLimitBytes(),
		StaticDir:       cfg.Server.StaticDir,
		AllowOrigins:    cfg.Server.AllowOrigins,
	})

	app.logStartupInfo(generator.Model())
	return app, nil
}

// Handler returns the HTTP handler, for use with httptest.
func (a *App) Handler() http.Handler {
	return a.server
}

// Start starts the upload sweeper and the HTTP server on the given address.
// This is a blocking call that returns when the server stops.
func (a *App) Start(addr string) error {
	if a.server == nil {
		return fmt.Errorf("server is not initialized")
	}
	if err := a.sweeper.Start(); err != nil {
		return fmt.Errorf("failed to start upload sweeper: %w", err)
	}
	slog.Info("starting server", "address", addr)
	if err := a.server.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server, honoring ctx, then the upload sweeper.
// It is idempotent; calls after the first are no-ops.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	a.shutdownMu.Unlock()

	slog.Info("shutting down application...")

	var errs []error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}
	if a.sweeper != nil {
		a.sweeper.Stop()
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	slog.Info("application shutdown complete")
	return nil
}

// logStartupInfo logs the application configuration on startup.
func (a *App) logStartupInfo(model string) {
	cfg := a.config

	if cfg.Gemini.APIKey == "" {
		slog.Warn("GEMINI_API_KEY not set - model-backed features will fail",
			"affected", "/analyze /chat /therapy /translate /schemes")
	}
	slog.Info("model configured", "model", model, "max_attempts", cfg.Gemini.MaxAttempts)

	for _, c := range []interface {
		Name() string
		TTL() time.Duration
	}{a.caches.Weather, a.caches.Schemes, a.caches.Translations} {
		slog.Info("cache configured", "cache", c.Name(), "ttl", c.TTL(), "max_entries", cfg.Cache.MaxEntries)
	}
	slog.Info("uploads configured", "dir", a.uploads.Dir())

	if cfg.Metrics.Enabled {
		slog.Info("prometheus metrics enabled", "endpoint", cfg.Metrics.Endpoint)
	} else {
		slog.Info("prometheus metrics disabled")
	}
	if cfg.Server.StaticDir != "" {
		slog.Info("serving static frontend", "dir", cfg.Server.StaticDir)
	}
}
