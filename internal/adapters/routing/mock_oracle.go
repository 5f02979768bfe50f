package routing

import (
	"context"
	"sync"

	"ride-pool-service/internal/domain"
	"ride-pool-service/internal/ports"
)

// MockOracle is a configurable test double for ports.RouteOracle.
type MockOracle struct {
	mu sync.Mutex

	RouteFn  func(locations []domain.Location) (ports.RouteEstimate, error)
	MatrixFn func(sources, destinations []domain.Location) ([][]float64, error)

	RouteCalls  int
	MatrixCalls int
}

func (m *MockOracle) GetRoute(_ context.Context, locations []domain.Location) (ports.RouteEstimate, error) {
	m.mu.Lock()
	m.RouteCalls++
	fn := m.RouteFn
	m.mu.Unlock()

	if fn != nil {
		return fn(locations)
	}
	return (&HaversineOracle{AvgSpeedKmh: domain.DefaultAverageSpeedKmh}).GetRoute(context.Background(), locations)
}

func (m *MockOracle) GetDurationMatrix(_ context.Context, sources, destinations []domain.Location) ([][]float64, error) {
	m.mu.Lock()
	m.MatrixCalls++
	fn := m.MatrixFn
	m.mu.Unlock()

	if fn != nil {
		return fn(sources, destinations)
	}
	return (&HaversineOracle{AvgSpeedKmh: domain.DefaultAverageSpeedKmh}).GetDurationMatrix(context.Background(), sources, destinations)
}
