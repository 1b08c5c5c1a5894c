package weather

import (
	"math"
	"time"

	"github.com/tidwall/gjson"
)

// hourLayout is the local-time format Open-Meteo uses with timezone=auto.
const hourLayout = "2006-01-02T15:04"

// Forecast is the subset of an Open-Meteo response the assistant uses.
// Series values are nil where the provider returned null or a non-number.
type Forecast struct {
	// Current is the provider's current-conditions block, passed through untouched.
	Current map[string]any

	// Location is the fixed zone of the forecast point, from utc_offset_seconds.
	Location *time.Location

	Times                    []string
	PrecipitationProbability []*float64
	Precipitation            []*float64
	Rain                     []*float64
}

// ParseForecast reads a forecast response body. Missing blocks yield empty values.
func ParseForecast(body []byte) *Forecast {
	root := gjson.ParseBytes(body)

	current := root.Get("current")
	if !current.IsObject() {
		current = root.Get("current_weather")
	}
	currentMap, _ := current.Value().(map[string]interface{})
	if currentMap == nil {
		currentMap = map[string]any{}
	}

	offset := int(root.Get("utc_offset_seconds").Int())
	name := root.Get("timezone_abbreviation").String()
	if name == "" {
		name = root.Get("timezone").String()
	}

	hourly := root.Get("hourly")
	f := &Forecast{
		Current:                  currentMap,
		Location:                 time.FixedZone(name, offset),
		PrecipitationProbability: numberSeries(hourly.Get("precipitation_probability")),
		Precipitation:            numberSeries(hourly.Get("precipitation")),
		Rain:                     numberSeries(hourly.Get("rain")),
	}
	if times := hourly.Get("time"); times.IsArray() {
		for _, t := range times.Array() {
			f.Times = append(f.Times, t.String())
		}
	}
	return f
}

func numberSeries(r gjson.Result) []*float64 {
	if !r.IsArray() {
		return nil
	}
	items := r.Array()
	out := make([]*float64, len(items))
	for i, item := range items {
		if item.Type == gjson.Number {
			v := item.Float()
			out[i] = &v
		}
	}
	return out
}

// hourAt parses Times[i] in the forecast's zone.
func (f *Forecast) hourAt(i int) (time.Time, bool) {
	loc := f.Location
	if loc == nil {
		loc = time.UTC
	}
	s := f.Times[i]
	if t, err := time.ParseInLocation(hourLayout, s, loc); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// NowIndex returns the index of the first hourly time at or after now. When every time is
// in the past, it returns the last index. An empty series yields 0.
func (f *Forecast) NowIndex(now time.Time) int {
	for i := range f.Times {
		if t, ok := f.hourAt(i); ok && !t.Before(now) {
			return i
		}
	}
	if len(f.Times) == 0 {
		return 0
	}
	return len(f.Times) - 1
}

// HourOutlook is one entry of the upcoming-hours list.
type HourOutlook struct {
	Time        string   `json:"time"`
	Probability *float64 `json:"probability"`
	PrecipMM    *float64 `json:"precip_mm"`
}

// RainStats summarizes precipitation chances from the current hour onwards.
type RainStats struct {
	NowProbability        *float64      `json:"now_probability"`
	Next3hMaxProbability  *float64      `json:"next_3h_max_probability"`
	Next12hMaxProbability *float64      `json:"next_12h_max_probability"`
	Next24hMaxProbability *float64      `json:"next_24h_max_probability"`
	Next24hPrecipSumMM    float64       `json:"next_24h_precip_sum_mm"`
	UpcomingHours         []HourOutlook `json:"upcoming_hours"`
}

// ComputeRainStats derives RainStats relative to now. Windows are clipped to the series length.
func ComputeRainStats(f *Forecast, now time.Time) RainStats {
	idx := f.NowIndex(now)
	n := len(f.Times)

	stats := RainStats{
		NowProbability:        at(f.PrecipitationProbability, idx),
		Next3hMaxProbability:  maxOf(window(f.PrecipitationProbability, idx, n, 3)),
		Next12hMaxProbability: maxOf(window(f.PrecipitationProbability, idx, n, 12)),
		Next24hMaxProbability: maxOf(window(f.PrecipitationProbability, idx, n, 24)),
		Next24hPrecipSumMM:    round2(sumOf(window(f.Precipitation, idx, n, 24))),
		UpcomingHours:         make([]HourOutlook, 0, 24),
	}

	end := min(n, idx+24)
	for i := idx; i < end; i++ {
		stats.UpcomingHours = append(stats.UpcomingHours, HourOutlook{
			Time:        f.Times[i],
			Probability: at(f.PrecipitationProbability, i),
			PrecipMM:    at(f.Precipitation, i),
		})
	}
	return stats
}

func at(series []*float64, i int) *float64 {
	if i < 0 || i >= len(series) {
		return nil
	}
	return series[i]
}

// window returns series[start:start+size], clipped to both the time axis and the series.
func window(series []*float64, start, timesLen, size int) []*float64 {
	end := min(timesLen, start+size, len(series))
	if start >= end {
		return nil
	}
	return series[start:end]
}

func maxOf(values []*float64) *float64 {
	var best *float64
	for _, v := range values {
		if v != nil && (best == nil || *v > *best) {
			best = v
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

func sumOf(values []*float64) float64 {
	var total float64
	for _, v := range values {
		if v != nil && !math.IsInf(*v, 0) && !math.IsNaN(*v) {
			total += *v
		}
	}
	return total
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
