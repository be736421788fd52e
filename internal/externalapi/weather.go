package externalapi

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	weatherBaseURL   = "https://api.openweathermap.org/data/2.5/weather"
	weatherTimeout   = 5 * time.Second
	weatherCacheTTL  = 30 * time.Minute
	weatherMaxRetry  = 2
	weatherNeutralOK = 50
)

// owmResponse is the subset of OpenWeatherMap's current-weather response
// the risk calculations below need.
type owmResponse struct {
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Visibility int `json:"visibility"`
	Wind       struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Rain struct {
		OneHour float64 `json:"1h"`
	} `json:"rain"`
}

// WeatherClient implements analytics.WeatherProvider, fetching current
// weather for each endpoint's state centroid from OpenWeatherMap,
// cached in Redis and guarded by a circuit breaker that degrades to
// "unavailable" rather than blocking shipment processing (§5).
type WeatherClient struct {
	apiKey     string
	httpClient *http.Client
	cache      *cache
	breaker    *gobreaker.CircuitBreaker[owmResponse]
	logger     *zap.Logger
}

// NewWeatherClient wires a WeatherClient. apiKey may be empty, in which
// case WeatherRiskScore always reports ok=false (matching the original's
// "OPENWEATHER_API_KEY not configured" early return).
func NewWeatherClient(apiKey string, redisClient *redis.Client, logger *zap.Logger) *WeatherClient {
	return &WeatherClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: weatherTimeout},
		cache:      newCache(redisClient, "weather:", weatherCacheTTL),
		breaker: gobreaker.NewCircuitBreaker[owmResponse](gobreaker.Settings{
			Name:    "openweathermap",
			Timeout: 60 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 3
			},
		}),
		logger: logger.Named("externalapi.weather"),
	}
}

// WeatherRiskScore fuses source and destination weather into a single
// 0-100 risk score, taking the worst-case of each risk component
// (rain, storm, temperature, visibility) across both endpoints, exactly
// as the original's get_weather_risk does. ok is false when no API key is
// configured (score 0) or when neither endpoint's weather could be fetched
// (score 50) — a single-endpoint failure still yields a usable (if less
// precise) score.
func (w *WeatherClient) WeatherRiskScore(sourceState, destinationState string) (int, bool) {
	if w.apiKey == "" {
		return 0, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), weatherTimeout*time.Duration(weatherMaxRetry+1))
	defer cancel()

	src, srcOK := w.fetch(ctx, sourceState)
	dst, dstOK := w.fetch(ctx, destinationState)
	if !srcOK && !dstOK {
		return weatherNeutralOK, false
	}

	rain := maxFloat(rainRisk(src, srcOK), rainRisk(dst, dstOK))
	storm := maxFloat(stormRisk(src, srcOK), stormRisk(dst, dstOK))
	temp := maxFloat(temperatureRisk(src, srcOK), temperatureRisk(dst, dstOK))
	vis := maxFloat(visibilityRisk(src, srcOK), visibilityRisk(dst, dstOK))

	return weatherRiskScore(rain, storm, temp, vis), true
}

func (w *WeatherClient) fetch(ctx context.Context, state string) (owmResponse, bool) {
	c := centroidForState(state)
	cacheKey := fmt.Sprintf("%.2f_%.2f", c.Lat, c.Lon)

	var cached owmResponse
	if found, err := w.cache.get(ctx, cacheKey, &cached); err == nil && found {
		return cached, true
	}

	resp, err := w.breaker.Execute(func() (owmResponse, error) {
		return w.fetchWithRetries(ctx, c)
	})
	if err != nil {
		w.logger.Warn("weather fetch failed", zap.String("state", state), zap.Error(err))
		return owmResponse{}, false
	}

	if err := w.cache.set(ctx, cacheKey, resp); err != nil {
		w.logger.Warn("weather cache write failed", zap.Error(err))
	}
	return resp, true
}

func (w *WeatherClient) fetchWithRetries(ctx context.Context, c centroid) (owmResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= weatherMaxRetry; attempt++ {
		resp, err := w.fetchOnce(ctx, c)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return owmResponse{}, lastErr
}

func (w *WeatherClient) fetchOnce(ctx context.Context, c centroid) (owmResponse, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(c.Lat, 'f', 4, 64))
	q.Set("lon", strconv.FormatFloat(c.Lon, 'f', 4, 64))
	q.Set("appid", w.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, weatherBaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return owmResponse{}, err
	}

	httpResp, err := w.httpClient.Do(req)
	if err != nil {
		return owmResponse{}, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return owmResponse{}, fmt.Errorf("externalapi: weather API returned %d", httpResp.StatusCode)
	}

	var parsed owmResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&parsed); err != nil {
		return owmResponse{}, err
	}
	return parsed, nil
}

// ─── Risk components, ported from the original weather engine ───────────

func rainRisk(w owmResponse, ok bool) float64 {
	if !ok {
		return 0.5
	}
	risk := 0.0
	for _, cond := range w.Weather {
		switch cond.Main {
		case "Rain":
			risk = maxFloat(risk, 0.6)
		case "Drizzle":
			risk = maxFloat(risk, 0.4)
		case "Thunderstorm":
			risk = maxFloat(risk, 0.9)
		}
	}
	switch {
	case w.Rain.OneHour > 10:
		risk = maxFloat(risk, 0.8)
	case w.Rain.OneHour > 5:
		risk = maxFloat(risk, 0.6)
	case w.Rain.OneHour > 0:
		risk = maxFloat(risk, 0.3)
	}
	return minFloat(risk, 1.0)
}

func stormRisk(w owmResponse, ok bool) float64 {
	if !ok {
		return 0.5
	}
	risk := 0.0
	for _, cond := range w.Weather {
		if cond.Main == "Thunderstorm" {
			risk = maxFloat(risk, 0.9)
		} else if strings.Contains(strings.ToLower(cond.Description), "storm") {
			risk = maxFloat(risk, 0.8)
		}
	}
	switch {
	case w.Wind.Speed > 20:
		risk = maxFloat(risk, 0.9)
	case w.Wind.Speed > 15:
		risk = maxFloat(risk, 0.7)
	case w.Wind.Speed > 10:
		risk = maxFloat(risk, 0.5)
	}
	return minFloat(risk, 1.0)
}

func temperatureRisk(w owmResponse, ok bool) float64 {
	if !ok {
		return 0.5
	}
	temp := w.Main.Temp
	risk := 0.0
	switch {
	case temp < -10:
		risk = 0.9
	case temp < 0:
		risk = 0.6
	case temp < 5:
		risk = 0.3
	}
	switch {
	case temp > 45:
		risk = maxFloat(risk, 0.9)
	case temp > 40:
		risk = maxFloat(risk, 0.7)
	case temp > 35:
		risk = maxFloat(risk, 0.4)
	}
	return minFloat(risk, 1.0)
}

func visibilityRisk(w owmResponse, ok bool) float64 {
	if !ok {
		return 0.5
	}
	visibility := w.Visibility
	if visibility == 0 {
		visibility = 10000
	}
	switch {
	case visibility < 500:
		return 0.9
	case visibility < 1000:
		return 0.7
	case visibility < 2000:
		return 0.5
	case visibility < 5000:
		return 0.3
	}
	return 0.1
}

func weatherRiskScore(rain, storm, temp, vis float64) int {
	weighted := storm*0.35 + rain*0.30 + vis*0.20 + temp*0.15
	return int(math.Round(weighted * 100))
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

