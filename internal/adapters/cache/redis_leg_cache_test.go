package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"ride-pool-service/internal/ports"
)

func TestRedisLegCacheRoundTrip(t *testing.T) {
	srv := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer client.Close()

	cache := NewRedisLegCache(client, time.Hour)
	ctx := context.Background()

	legs := map[string]ports.RouteEstimate{
		"28.613900,77.209000|28.535500,77.391000": {
			DistanceKm:      21.3,
			DurationMinutes: 38.5,
			Polyline:        "abc123",
		},
		"28.613900,77.209000|28.459500,77.026600": {
			DistanceKm:      30.1,
			DurationMinutes: 52.0,
		},
	}

	if err := cache.PutMany(ctx, legs); err != nil {
		t.Fatalf("PutMany: unexpected error: %v", err)
	}

	got, err := cache.GetMany(ctx, []string{
		"28.613900,77.209000|28.535500,77.391000",
		"28.613900,77.209000|28.459500,77.026600",
		"0.000000,0.000000|1.000000,1.000000", // miss
	})
	if err != nil {
		t.Fatalf("GetMany: unexpected error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(got))
	}

	hit := got["28.613900,77.209000|28.535500,77.391000"]
	if hit.DistanceKm != 21.3 || hit.DurationMinutes != 38.5 || hit.Polyline != "abc123" {
		t.Fatalf("unexpected cached estimate: %+v", hit)
	}
}

func TestRedisLegCacheEmptyInputs(t *testing.T) {
	srv := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer client.Close()

	cache := NewRedisLegCache(client, time.Hour)
	ctx := context.Background()

	got, err := cache.GetMany(ctx, nil)
	if err != nil {
		t.Fatalf("GetMany with no keys: unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %d entries", len(got))
	}

	if err := cache.PutMany(ctx, nil); err != nil {
		t.Fatalf("PutMany with no legs: unexpected error: %v", err)
	}
}
