package routing

import (
	"context"
	"errors"

	"ride-pool-service/internal/domain"
	"ride-pool-service/internal/ports"
)

// HaversineOracle estimates routes with great-circle distances and a flat
// average speed. It makes no network calls, so it doubles as the offline
// fallback when no routing backend is configured.
type HaversineOracle struct {
	AvgSpeedKmh float64
}

func NewHaversineOracle(avgSpeedKmh float64) *HaversineOracle {
	if avgSpeedKmh <= 0 {
		avgSpeedKmh = domain.DefaultAverageSpeedKmh
	}
	return &HaversineOracle{AvgSpeedKmh: avgSpeedKmh}
}

func (h *HaversineOracle) GetRoute(_ context.Context, locations []domain.Location) (ports.RouteEstimate, error) {
	if len(locations) < 2 {
		return ports.RouteEstimate{}, errors.New("get route: at least 2 locations required")
	}

	var totalKm float64
	for i := 1; i < len(locations); i++ {
		totalKm += domain.DistanceKm(locations[i-1], locations[i])
	}

	return ports.RouteEstimate{
		DistanceKm:      totalKm,
		DurationMinutes: domain.EstimateDurationMinutes(totalKm, h.AvgSpeedKmh),
	}, nil
}

func (h *HaversineOracle) GetDurationMatrix(_ context.Context, sources, destinations []domain.Location) ([][]float64, error) {
	if len(sources) == 0 || len(destinations) == 0 {
		return nil, errors.New("get duration matrix: sources and destinations must be non-empty")
	}

	matrix := make([][]float64, len(sources))
	for i, src := range sources {
		matrix[i] = make([]float64, len(destinations))
		for j, dst := range destinations {
			km := domain.DistanceKm(src, dst)
			matrix[i][j] = domain.EstimateDurationMinutes(km, h.AvgSpeedKmh)
		}
	}

	return matrix, nil
}
