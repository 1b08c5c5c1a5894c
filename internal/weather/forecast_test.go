package weather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fp(v float64) *float64 { return &v }

func TestParseForecast(t *testing.T) {
	body := []byte(`{
		"utc_offset_seconds": 19800,
		"timezone": "Asia/Kolkata",
		"timezone_abbreviation": "IST",
		"current": {"temperature_2m": 31.4, "weather_code": 3},
		"hourly": {
			"time": ["2025-06-01T10:00", "2025-06-01T11:00"],
			"precipitation_probability": [10, null],
			"precipitation": [0.1, "n/a"],
			"rain": [0, 0]
		}
	}`)

	f := ParseForecast(body)

	assert.Equal(t, map[string]any{"temperature_2m": 31.4, "weather_code": float64(3)}, f.Current)
	assert.Equal(t, []string{"2025-06-01T10:00", "2025-06-01T11:00"}, f.Times)
	require.Len(t, f.PrecipitationProbability, 2)
	assert.Equal(t, 10.0, *f.PrecipitationProbability[0])
	assert.Nil(t, f.PrecipitationProbability[1])
	assert.Nil(t, f.Precipitation[1])

	_, offset := time.Date(2025, 6, 1, 0, 0, 0, 0, f.Location).Zone()
	assert.Equal(t, 19800, offset)
}

func TestParseForecast_CurrentWeatherFallback(t *testing.T) {
	f := ParseForecast([]byte(`{"current_weather": {"temperature": 22}}`))
	assert.Equal(t, map[string]any{"temperature": float64(22)}, f.Current)
	assert.Empty(t, f.Times)
}

func TestParseForecast_MissingBlocks(t *testing.T) {
	f := ParseForecast([]byte(`{}`))
	assert.NotNil(t, f.Current)
	assert.Empty(t, f.Current)
	assert.Nil(t, f.PrecipitationProbability)
}

func TestNowIndex(t *testing.T) {
	f := &Forecast{
		Location: time.UTC,
		Times:    []string{"2025-06-01T10:00", "2025-06-01T11:00", "2025-06-01T12:00"},
	}

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"before first", time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC), 0},
		{"exactly on hour", time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC), 1},
		{"between hours", time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC), 1},
		{"all past", time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.NowIndex(tt.now))
		})
	}

	assert.Equal(t, 0, (&Forecast{}).NowIndex(time.Now()))
}

func TestNowIndex_UsesForecastZone(t *testing.T) {
	ist := time.FixedZone("IST", 19800)
	f := &Forecast{
		Location: ist,
		Times:    []string{"2025-06-01T10:00", "2025-06-01T11:00"},
	}

	// 05:00 UTC is 10:30 IST.
	now := time.Date(2025, 6, 1, 5, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, f.NowIndex(now))
}

func TestNowIndex_SkipsUnparseableTimes(t *testing.T) {
	f := &Forecast{
		Location: time.UTC,
		Times:    []string{"garbage", "2025-06-01T11:00"},
	}
	assert.Equal(t, 1, f.NowIndex(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)))
}

func TestComputeRainStats(t *testing.T) {
	f := &Forecast{
		Location:                 time.UTC,
		Times:                    []string{"2025-06-01T10:00", "2025-06-01T11:00", "2025-06-01T12:00", "2025-06-01T13:00"},
		PrecipitationProbability: []*float64{fp(10), fp(20), fp(30), fp(40)},
		Precipitation:            []*float64{fp(5), fp(0.111), fp(0.222), nil},
	}
	now := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)

	stats := ComputeRainStats(f, now)

	require.NotNil(t, stats.NowProbability)
	assert.Equal(t, 20.0, *stats.NowProbability)
	require.NotNil(t, stats.Next3hMaxProbability)
	assert.Equal(t, 40.0, *stats.Next3hMaxProbability)
	assert.Equal(t, 40.0, *stats.Next12hMaxProbability)
	assert.Equal(t, 40.0, *stats.Next24hMaxProbability)
	assert.Equal(t, 0.33, stats.Next24hPrecipSumMM)

	require.Len(t, stats.UpcomingHours, 3)
	assert.Equal(t, "2025-06-01T11:00", stats.UpcomingHours[0].Time)
	assert.Equal(t, 20.0, *stats.UpcomingHours[0].Probability)
	assert.Nil(t, stats.UpcomingHours[2].PrecipMM)
}

func TestComputeRainStats_ClipsWindowsAndCapsUpcoming(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	f := &Forecast{Location: time.UTC}
	for i := 0; i < 30; i++ {
		f.Times = append(f.Times, start.Add(time.Duration(i)*time.Hour).Format(hourLayout))
		f.PrecipitationProbability = append(f.PrecipitationProbability, fp(float64(i)))
		f.Precipitation = append(f.Precipitation, fp(1))
	}

	stats := ComputeRainStats(f, start)

	assert.Equal(t, 0.0, *stats.NowProbability)
	assert.Equal(t, 2.0, *stats.Next3hMaxProbability)
	assert.Equal(t, 11.0, *stats.Next12hMaxProbability)
	assert.Equal(t, 23.0, *stats.Next24hMaxProbability)
	assert.Equal(t, 24.0, stats.Next24hPrecipSumMM)
	assert.Len(t, stats.UpcomingHours, 24)
}

func TestComputeRainStats_Empty(t *testing.T) {
	stats := ComputeRainStats(&Forecast{}, time.Now())

	assert.Nil(t, stats.NowProbability)
	assert.Nil(t, stats.Next3hMaxProbability)
	assert.Nil(t, stats.Next24hMaxProbability)
	assert.Equal(t, 0.0, stats.Next24hPrecipSumMM)
	assert.NotNil(t, stats.UpcomingHours)
	assert.Empty(t, stats.UpcomingHours)
}

func TestComputeRainStats_ShortProbabilitySeries(t *testing.T) {
	f := &Forecast{
		Location:                 time.UTC,
		Times:                    []string{"2025-06-01T10:00", "2025-06-01T11:00", "2025-06-01T12:00"},
		PrecipitationProbability: []*float64{fp(50)},
	}

	stats := ComputeRainStats(f, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, 50.0, *stats.Next3hMaxProbability)
	require.Len(t, stats.UpcomingHours, 3)
	assert.Nil(t, stats.UpcomingHours[1].Probability)
}
