package services

import (
	"testing"
	"time"

	"ride-pool-service/internal/domain"
)

func testSolver() *Solver {
	return NewSolver(SolverConfig{
		VehicleCapacity: 4,
		AverageSpeedKmh: 30,
		Budget:          5 * time.Second,
	})
}

func TestSolveSingleRide(t *testing.T) {
	at := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	ride := rideReq("r1", domain.Location{Latitude: 28.6139, Longitude: 77.2090}, domain.Location{Latitude: 28.5355, Longitude: 77.3910}, 3, at)

	route, err := testSolver().Solve(domain.Cluster{ride}, "vehicle-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(route.Stops) != 2 {
		t.Fatalf("expected 2 stops, got %d", len(route.Stops))
	}
	if route.Stops[0].Type != domain.StopPickup || route.Stops[1].Type != domain.StopDropoff {
		t.Fatalf("expected pickup then dropoff, got %s then %s", route.Stops[0].Type, route.Stops[1].Type)
	}
	if route.CapacityUsed != 3 {
		t.Fatalf("capacity used = %d, want 3", route.CapacityUsed)
	}
	if route.DistanceKm <= 0 || route.DurationMinutes <= 0 {
		t.Fatalf("expected positive metrics, got %.2f km / %.2f min", route.DistanceKm, route.DurationMinutes)
	}
	if err := route.Validate(4); err != nil {
		t.Fatalf("solo route fails validation: %v", err)
	}
}

func TestSolvePooledClusterInvariants(t *testing.T) {
	at := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	cluster := domain.Cluster{
		rideReq("r1", connaughtPlace, noida, 1, at),
		rideReq("r2", domain.Location{Latitude: 28.6324, Longitude: 77.2167}, noida, 2, at),
	}

	route, err := testSolver().Solve(cluster, "vehicle-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(route.Stops) != 4 {
		t.Fatalf("expected 4 stops, got %d", len(route.Stops))
	}
	if route.CapacityUsed > 4 {
		t.Fatalf("capacity used = %d exceeds vehicle capacity", route.CapacityUsed)
	}
	if err := route.Validate(4); err != nil {
		t.Fatalf("pooled route fails validation: %v", err)
	}

	for i, s := range route.Stops {
		if s.ArrivalTime == nil {
			t.Fatalf("stop %d missing arrival time", i)
		}
		if i > 0 && s.ArrivalTime.Before(*route.Stops[i-1].ArrivalTime) {
			t.Fatalf("arrival times not monotonic at stop %d", i)
		}
	}
}

func TestSolveRejectsOversizedCluster(t *testing.T) {
	at := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	cluster := domain.Cluster{
		rideReq("r1", connaughtPlace, noida, 3, at),
		rideReq("r2", connaughtPlace, noida, 3, at),
	}

	if _, err := testSolver().Solve(cluster, "vehicle-1"); err == nil {
		t.Fatal("expected error for cluster above capacity")
	}
}

func TestSolveEmptyCluster(t *testing.T) {
	if _, err := testSolver().Solve(domain.Cluster{}, "vehicle-1"); err == nil {
		t.Fatal("expected error for empty cluster")
	}
}

// failingStrategy always reports infeasibility so Solve must fall back.
type failingStrategy struct{}

func (failingStrategy) Order(domain.Cluster, SolverConfig, time.Time) ([]stopNode, error) {
	return nil, ErrNoSolution
}

func TestSolveFallsBackToNearestNeighbor(t *testing.T) {
	at := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	cluster := domain.Cluster{
		rideReq("r1", connaughtPlace, noida, 1, at),
		rideReq("r2", domain.Location{Latitude: 28.6324, Longitude: 77.2167}, gurgaon, 1, at),
	}

	solver := NewSolverWithStrategy(SolverConfig{VehicleCapacity: 4, AverageSpeedKmh: 30}, failingStrategy{})
	route, err := solver.Solve(cluster, "vehicle-1")
	if err != nil {
		t.Fatalf("fallback should not fail: %v", err)
	}

	// Fallback orders all pickups before any dropoff.
	sawDropoff := false
	for _, s := range route.Stops {
		if s.Type == domain.StopDropoff {
			sawDropoff = true
		}
		if s.Type == domain.StopPickup && sawDropoff {
			t.Fatal("fallback interleaved a pickup after a dropoff")
		}
	}
	if err := route.Validate(4); err != nil {
		t.Fatalf("fallback route fails validation: %v", err)
	}
}

func TestBranchAndBoundNeverWorseThanFallback(t *testing.T) {
	at := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	cluster := domain.Cluster{
		rideReq("r1", connaughtPlace, noida, 1, at),
		rideReq("r2", domain.Location{Latitude: 28.6324, Longitude: 77.2167}, noida, 1, at),
		rideReq("r3", domain.Location{Latitude: 28.6290, Longitude: 77.2130}, noida, 1, at),
	}

	cfg := SolverConfig{VehicleCapacity: 4, AverageSpeedKmh: 30, Budget: 5 * time.Second}

	exact, err := NewSolver(cfg).Solve(cluster, "vehicle-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	greedy, err := NewSolverWithStrategy(cfg, failingStrategy{}).Solve(cluster, "vehicle-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if exact.DistanceKm > greedy.DistanceKm+1e-9 {
		t.Fatalf("exact search produced a longer route: %f km vs %f km", exact.DistanceKm, greedy.DistanceKm)
	}
}

func TestBranchAndBoundChargesOpeningLeg(t *testing.T) {
	at := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	// On a west-east line the cheapest loop ignoring the start point would
	// open at b's pickup. The vehicle departs from a's pickup, so that order
	// pays a long opening leg and the search keeps a's pickup first.
	a := rideReq("a",
		domain.Location{Latitude: 0, Longitude: 0.05},
		domain.Location{Latitude: 0, Longitude: 0},
		1, at)
	b := rideReq("b",
		domain.Location{Latitude: 0, Longitude: 0.10},
		domain.Location{Latitude: 0, Longitude: 0.005},
		1, at)

	cfg := SolverConfig{VehicleCapacity: 4, AverageSpeedKmh: 30}
	nodes, err := branchAndBoundStrategy{}.Order(domain.Cluster{a, b}, cfg, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if nodes[0].rideID != "a" || nodes[0].kind != domain.StopPickup {
		t.Fatalf("first stop = %s/%s, want pickup of a", nodes[0].rideID, nodes[0].kind)
	}
}

func TestSolveDeterministic(t *testing.T) {
	at := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	cluster := domain.Cluster{
		rideReq("r1", connaughtPlace, noida, 1, at),
		rideReq("r2", domain.Location{Latitude: 28.6324, Longitude: 77.2167}, noida, 1, at),
		rideReq("r3", domain.Location{Latitude: 28.6290, Longitude: 77.2130}, noida, 1, at),
	}

	solver := testSolver()
	first, err := solver.Solve(cluster, "vehicle-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := solver.Solve(cluster, "vehicle-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first.Stops) != len(second.Stops) {
		t.Fatalf("stop counts differ: %d vs %d", len(first.Stops), len(second.Stops))
	}
	for i := range first.Stops {
		a, b := first.Stops[i], second.Stops[i]
		if a.RideID != b.RideID || a.Type != b.Type {
			t.Fatalf("stop %d differs between runs: %s/%s vs %s/%s", i, a.RideID, a.Type, b.RideID, b.Type)
		}
	}
	if first.DistanceKm != second.DistanceKm {
		t.Fatalf("distances differ between runs: %f vs %f", first.DistanceKm, second.DistanceKm)
	}
}
