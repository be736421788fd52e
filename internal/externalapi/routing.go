package externalapi

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	orsBaseURL      = "https://api.openrouteservice.org/v2/directions/driving-car"
	routingTimeout  = 10 * time.Second
	routingCacheTTL = time.Hour
	routingMaxRetry = 2
)

// fallbackSpeedsKmh mirrors the original's distance-tiered average
// speed table, used when OpenRouteService is unavailable.
var fallbackSpeedsKmh = []struct {
	maxDistanceKm float64
	speedKmh      float64
}{
	{maxDistanceKm: 50, speedKmh: 30},  // urban
	{maxDistanceKm: 200, speedKmh: 50}, // state
	{maxDistanceKm: 500, speedKmh: 60}, // national
	{maxDistanceKm: math.MaxFloat64, speedKmh: 80}, // highway
}

type orsResponse struct {
	Features []struct {
		Properties struct {
			Summary struct {
				Distance float64 `json:"distance"` // meters
				Duration float64 `json:"duration"` // seconds
			} `json:"summary"`
		} `json:"properties"`
	} `json:"features"`
}

// RouteClient implements analytics.RouteProvider over OpenRouteService,
// falling back to a haversine-distance estimate when the API is
// unavailable or unconfigured (§5 graceful degradation).
type RouteClient struct {
	apiKey     string
	httpClient *http.Client
	cache      *cache
	breaker    *gobreaker.CircuitBreaker[orsResponse]
	logger     *zap.Logger
}

// NewRouteClient wires a RouteClient. An empty apiKey goes straight to
// the haversine fallback on every call.
func NewRouteClient(apiKey string, redisClient *redis.Client, logger *zap.Logger) *RouteClient {
	return &RouteClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: routingTimeout},
		cache:      newCache(redisClient, "route:", routingCacheTTL),
		breaker: gobreaker.NewCircuitBreaker[orsResponse](gobreaker.Settings{
			Name:    "openrouteservice",
			Timeout: 60 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 3
			},
		}),
		logger: logger.Named("externalapi.routing"),
	}
}

// ETA returns the estimated travel time in hours and a route-confidence
// score (0-1), falling back to a haversine-distance estimate — never
// returning ok=false, since a distance estimate is always computable
// from the two state centroids even with no network access at all.
func (r *RouteClient) ETA(sourceState, destinationState string) (etaHours float64, routeConfidence float64, ok bool) {
	src := centroidForState(sourceState)
	dst := centroidForState(destinationState)

	if r.apiKey != "" {
		if eta, confidence, fetched := r.fetchETA(src, dst); fetched {
			return eta, confidence, true
		}
	}

	distanceKm := haversineDistanceKm(src, dst)
	speed := fallbackSpeedKmh(distanceKm)
	return distanceKm / speed, 0.5, true
}

func (r *RouteClient) fetchETA(src, dst centroid) (float64, float64, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), routingTimeout*time.Duration(routingMaxRetry+1))
	defer cancel()

	cacheKey := fmt.Sprintf("%.2f_%.2f_%.2f_%.2f", src.Lat, src.Lon, dst.Lat, dst.Lon)

	var cached orsResponse
	if found, err := r.cache.get(ctx, cacheKey, &cached); err == nil && found {
		return etaFromResponse(cached)
	}

	resp, err := r.breaker.Execute(func() (orsResponse, error) {
		return r.fetchWithRetries(ctx, src, dst)
	})
	if err != nil {
		r.logger.Warn("route fetch failed, using fallback estimate", zap.Error(err))
		return 0, 0, false
	}
	if len(resp.Features) == 0 {
		return 0, 0, false
	}

	if err := r.cache.set(ctx, cacheKey, resp); err != nil {
		r.logger.Warn("route cache write failed", zap.Error(err))
	}

	eta, confidence, ok := etaFromResponse(resp)
	return eta, confidence, ok
}

func etaFromResponse(resp orsResponse) (float64, float64, bool) {
	if len(resp.Features) == 0 {
		return 0, 0, false
	}
	summary := resp.Features[0].Properties.Summary
	return summary.Duration / 3600, 0.9, true
}

func (r *RouteClient) fetchWithRetries(ctx context.Context, src, dst centroid) (orsResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= routingMaxRetry; attempt++ {
		resp, err := r.fetchOnce(ctx, src, dst)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return orsResponse{}, lastErr
}

func (r *RouteClient) fetchOnce(ctx context.Context, src, dst centroid) (orsResponse, error) {
	body := fmt.Sprintf(`{"coordinates":[[%f,%f],[%f,%f]]}`, src.Lon, src.Lat, dst.Lon, dst.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, orsBaseURL, strings.NewReader(body))
	if err != nil {
		return orsResponse{}, err
	}
	req.Header.Set("Authorization", r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := r.httpClient.Do(req)
	if err != nil {
		return orsResponse{}, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return orsResponse{}, fmt.Errorf("externalapi: routing API returned %d", httpResp.StatusCode)
	}

	var parsed orsResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&parsed); err != nil {
		return orsResponse{}, err
	}
	return parsed, nil
}

// haversineDistanceKm returns the great-circle distance between two
// centroids, ported directly from the original's haversine_distance.
func haversineDistanceKm(a, b centroid) float64 {
	const earthRadiusKm = 6371.0

	lat1 := a.Lat * math.Pi / 180
	lon1 := a.Lon * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	lon2 := b.Lon * math.Pi / 180

	dlat := lat2 - lat1
	dlon := lon2 - lon1

	h := math.Sin(dlat/2)*math.Sin(dlat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

func fallbackSpeedKmh(distanceKm float64) float64 {
	for _, tier := range fallbackSpeedsKmh {
		if distanceKm < tier.maxDistanceKm {
			return tier.speedKmh
		}
	}
	return fallbackSpeedsKmh[len(fallbackSpeedsKmh)-1].speedKmh
}
