package ports

import (
	"context"
	"ride-pool-service/internal/domain"
)

// Road distance and travel time for an ordered sequence of locations.
type RouteEstimate struct {
	DistanceKm      float64
	DurationMinutes float64

	// Polyline is the encoded route geometry, when the provider has one.
	Polyline string
}

// Contract for an external road-routing service. Calls may block on network
// I/O and may fail; callers degrade to the straight-line estimate in
// internal/domain and never retry here (retry policy belongs to the
// adapter).
type RouteOracle interface {
	// Return metrics for driving through the locations in the given order.
	// At least two locations are required.
	GetRoute(ctx context.Context, locations []domain.Location) (RouteEstimate, error)

	// Return travel minutes from each source to each destination.
	// Entries with no road connection are -1.
	GetDurationMatrix(ctx context.Context, sources, destinations []domain.Location) ([][]float64, error)
}
