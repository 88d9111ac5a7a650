// Package weather fetches forecasts from the Open-Meteo API and adapts them
// to the snapshot the risk evaluator consumes.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/codrone/flightplanner/pkg/plan"
)

// Manager handles Open-Meteo requests. It satisfies the forecast provider
// port of the risk evaluator.
type Manager struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// NewManager creates an Open-Meteo manager. baseURL points at the forecast
// endpoint, timeout bounds each request.
func NewManager(log zerolog.Logger, baseURL string, timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Manager{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     log,
	}
}

// forecastResponse mirrors the subset of the Open-Meteo hourly payload the
// planner consumes.
type forecastResponse struct {
	Hourly struct {
		Time                     []string  `json:"time"`
		WindSpeed10m             []float64 `json:"wind_speed_10m"`
		WindDirection10m         []float64 `json:"wind_direction_10m"`
		Visibility               []float64 `json:"visibility"`
		PrecipitationProbability []float64 `json:"precipitation_probability"`
	} `json:"hourly"`
}

// FetchForecast requests the hourly forecast at loc and returns the sample
// closest to the mission window start. A zero window start samples the
// current hour.
func (m *Manager) FetchForecast(ctx context.Context, loc plan.LatLng, window plan.TimeWindow) (plan.WeatherSnapshot, error) {
	at := window.Start
	if at.IsZero() {
		at = time.Now()
	}

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(loc.Lat, 'f', 6, 64))
	q.Set("longitude", strconv.FormatFloat(loc.Lng, 'f', 6, 64))
	q.Set("hourly", "wind_speed_10m,wind_direction_10m,visibility,precipitation_probability")
	q.Set("wind_speed_unit", "ms")
	q.Set("timezone", "UTC")
	q.Set("forecast_days", strconv.Itoa(forecastDays(at)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return plan.WeatherSnapshot{}, fmt.Errorf("creating forecast request: %w", err)
	}

	resp, err := m.HTTPClient.Do(req)
	if err != nil {
		return plan.WeatherSnapshot{}, fmt.Errorf("forecast request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return plan.WeatherSnapshot{}, fmt.Errorf("forecast returned status %d", resp.StatusCode)
	}

	var payload forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return plan.WeatherSnapshot{}, fmt.Errorf("decoding forecast: %w", err)
	}

	snapshot, err := m.sample(payload, loc, at)
	if err != nil {
		return plan.WeatherSnapshot{}, err
	}

	m.Logger.Debug().
		Float64("lat", loc.Lat).
		Float64("lng", loc.Lng).
		Float64("windSpeed", snapshot.WindSpeed).
		Float64("visibility", snapshot.Visibility).
		Time("at", snapshot.Time).
		Msg("Fetched forecast")
	return snapshot, nil
}

// sample picks the hourly entry closest to the requested instant.
func (m *Manager) sample(payload forecastResponse, loc plan.LatLng, at time.Time) (plan.WeatherSnapshot, error) {
	h := payload.Hourly
	if len(h.Time) == 0 {
		return plan.WeatherSnapshot{}, fmt.Errorf("forecast payload has no hourly samples")
	}

	best, bestDelta := -1, time.Duration(0)
	var bestTime time.Time
	for i, raw := range h.Time {
		ts, err := time.Parse("2006-01-02T15:04", raw)
		if err != nil {
			continue
		}
		delta := ts.Sub(at)
		if delta < 0 {
			delta = -delta
		}
		if best < 0 || delta < bestDelta {
			best, bestDelta, bestTime = i, delta, ts
		}
	}
	if best < 0 {
		return plan.WeatherSnapshot{}, fmt.Errorf("forecast payload has no parseable timestamps")
	}

	snapshot := plan.WeatherSnapshot{
		Time:     bestTime,
		Location: loc,
	}
	if best < len(h.WindSpeed10m) {
		snapshot.WindSpeed = h.WindSpeed10m[best]
	}
	if best < len(h.WindDirection10m) {
		snapshot.WindDirection = h.WindDirection10m[best]
	}
	if best < len(h.Visibility) {
		// Open-Meteo reports visibility in meters.
		snapshot.Visibility = h.Visibility[best] / 1000
	}
	if best < len(h.PrecipitationProbability) {
		snapshot.Precipitation = h.PrecipitationProbability[best]
	}
	return snapshot, nil
}

// forecastDays covers the span from now to the mission start, clamped to the
// API's 16 day horizon.
func forecastDays(at time.Time) int {
	days := int(time.Until(at).Hours()/24) + 2
	if days < 1 {
		days = 1
	}
	if days > 16 {
		days = 16
	}
	return days
}
