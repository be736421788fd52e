package externalapi

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(server.Close)
	return redis.NewClient(&redis.Options{Addr: server.Addr()})
}

func TestCacheRoundTrip(t *testing.T) {
	c := newCache(newTestRedis(t), "test:", weatherCacheTTL)
	ctx := context.Background()

	var dest owmResponse
	found, err := c.get(ctx, "19.75_75.71", &dest)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if found {
		t.Fatal("expected cache miss before any set")
	}

	want := owmResponse{Visibility: 9000}
	want.Main.Temp = 22.5
	if err := c.set(ctx, "19.75_75.71", want); err != nil {
		t.Fatalf("set: %v", err)
	}

	found, err = c.get(ctx, "19.75_75.71", &dest)
	if err != nil {
		t.Fatalf("get after set: %v", err)
	}
	if !found {
		t.Fatal("expected cache hit after set")
	}
	if dest.Main.Temp != 22.5 {
		t.Fatalf("unexpected round-tripped value: %+v", dest)
	}
}

func TestWeatherRiskScoreUnconfiguredReturnsNotOK(t *testing.T) {
	client := NewWeatherClient("", newTestRedis(t), zap.NewNop())
	score, ok := client.WeatherRiskScore("MH", "KA")
	if ok {
		t.Fatal("expected ok=false with no API key configured")
	}
	if score != 0 {
		t.Fatalf("expected zero score, got %d", score)
	}
}

func TestRouteETAFallsBackToHaversineWithoutAPIKey(t *testing.T) {
	client := NewRouteClient("", newTestRedis(t), zap.NewNop())
	eta, confidence, ok := client.ETA("MH", "KA")
	if !ok {
		t.Fatal("expected fallback ETA to always succeed")
	}
	if eta <= 0 {
		t.Fatalf("expected a positive ETA estimate, got %f", eta)
	}
	if confidence != 0.5 {
		t.Fatalf("expected fallback confidence 0.5, got %f", confidence)
	}
}

func TestHaversineDistanceIsSymmetric(t *testing.T) {
	mh := centroidForState("MH")
	ka := centroidForState("KA")
	d1 := haversineDistanceKm(mh, ka)
	d2 := haversineDistanceKm(ka, mh)
	if d1 != d2 {
		t.Fatalf("expected symmetric distance, got %f vs %f", d1, d2)
	}
	if d1 <= 0 {
		t.Fatalf("expected positive distance between distinct states, got %f", d1)
	}
}

func TestWeatherRiskScoreWeighting(t *testing.T) {
	score := weatherRiskScore(1.0, 1.0, 1.0, 1.0)
	if score != 100 {
		t.Fatalf("expected max risk to saturate at 100, got %d", score)
	}
	score = weatherRiskScore(0, 0, 0, 0)
	if score != 0 {
		t.Fatalf("expected zero risk to score 0, got %d", score)
	}
}
