package assist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"agrimitra/internal/core"
	"agrimitra/internal/weather"
)

// WeatherReport is the aggregated weather response.
type WeatherReport struct {
	Current map[string]any    `json:"current"`
	Summary string            `json:"summary"`
	Rain    weather.RainStats `json:"rain"`
}

var errWeatherProvider = errors.New("weather provider failed")

// Weather returns current conditions, rain statistics and a model-written summary for a
// point. A failed summary yields an empty one; a failed forecast is an upstream error.
func (s *Service) Weather(ctx context.Context, lat, lon float64, lang core.Language) (*WeatherReport, error) {
	key := fmt.Sprintf("%.2f,%.2f,%s", lat, lon, lang)

	report, _, err := s.caches.Weather.GetOrLoad(ctx, key, func(ctx context.Context) (*WeatherReport, error) {
		forecast, err := s.weather.Forecast(ctx, lat, lon)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errWeatherProvider, err)
		}

		return &WeatherReport{
			Current: forecast.Current,
			Summary: s.weatherSummary(ctx, forecast.Current, lang),
			Rain:    weather.ComputeRainStats(forecast, s.now()),
		}, nil
	})
	if err != nil {
		if errors.Is(err, errWeatherProvider) {
			return nil, core.NewUpstreamError("Weather provider error", err)
		}
		return nil, core.NewInternalError("Weather failed", err)
	}
	return report, nil
}

func (s *Service) weatherSummary(ctx context.Context, current map[string]any, lang core.Language) string {
	encoded, err := json.Marshal(current)
	if err != nil {
		return ""
	}
	text, err := s.gen.GenerateText(ctx, weatherSummaryPrompt(string(encoded), lang))
	if err != nil {
		logRemoteError(ctx, "weather_summary", err)
		return ""
	}
	return text
}
