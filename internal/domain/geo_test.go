package domain

import (
	"math"
	"testing"
)

func TestDistanceKmSymmetryAndZero(t *testing.T) {
	delhi := Location{Latitude: 28.6139, Longitude: 77.2090}
	noida := Location{Latitude: 28.5355, Longitude: 77.3910}

	if d := DistanceKm(delhi, delhi); d != 0 {
		t.Fatalf("distance to self = %f, want 0", d)
	}

	ab := DistanceKm(delhi, noida)
	ba := DistanceKm(noida, delhi)
	if math.Abs(ab-ba) > 1e-9 {
		t.Fatalf("asymmetric distance: %f vs %f", ab, ba)
	}
	if ab <= 0 {
		t.Fatalf("distance = %f, want positive", ab)
	}
}

func TestDistanceKmKnownPair(t *testing.T) {
	delhi := Location{Latitude: 28.6139, Longitude: 77.2090}
	mumbai := Location{Latitude: 19.0760, Longitude: 72.8777}

	// Great-circle Delhi to Mumbai is roughly 1150 km.
	d := DistanceKm(delhi, mumbai)
	if d < 1100 || d > 1200 {
		t.Fatalf("Delhi-Mumbai distance = %f km, want ~1150", d)
	}
}

func TestEstimateDurationMinutes(t *testing.T) {
	// 15 km at 30 km/h is half an hour.
	if m := EstimateDurationMinutes(15, 30); math.Abs(m-30) > 1e-9 {
		t.Fatalf("duration = %f, want 30", m)
	}

	// Non-positive speed falls back to the default.
	if m := EstimateDurationMinutes(15, 0); math.Abs(m-30) > 1e-9 {
		t.Fatalf("duration with zero speed = %f, want 30", m)
	}

	if m := EstimateDurationMinutes(0, 30); m != 0 {
		t.Fatalf("zero distance duration = %f, want 0", m)
	}
}
