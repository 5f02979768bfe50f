package services

import (
	"testing"
	"time"

	"ride-pool-service/internal/domain"
)

func testPoolerConfig() PoolerConfig {
	return PoolerConfig{
		VehicleCapacity:     4,
		MaxPickupDistanceKm: 2.0,
		MaxDetourMinutes:    15,
		MaxGroupSize:        4,
		AverageSpeedKmh:     30,
	}
}

func rideReq(id string, pickup, dropoff domain.Location, passengers int, preferred time.Time) domain.RideRequest {
	return domain.RideRequest{
		ID:         id,
		UserID:     "user-" + id,
		Pickup:     pickup,
		Dropoff:    dropoff,
		Window:     domain.WindowAround(preferred, 15*time.Minute, 15*time.Minute),
		Passengers: passengers,
		Status:     domain.RideRequested,
	}
}

var (
	connaughtPlace = domain.Location{Latitude: 28.6315, Longitude: 77.2167}
	noida          = domain.Location{Latitude: 28.5355, Longitude: 77.3910}
	gurgaon        = domain.Location{Latitude: 28.4595, Longitude: 77.0266}
	mumbai         = domain.Location{Latitude: 19.0760, Longitude: 72.8777}
	mumbaiAirport  = domain.Location{Latitude: 19.0896, Longitude: 72.8656}
)

func TestPoolRequestsNearbyPickupsShareCluster(t *testing.T) {
	at := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	// Pickups about 0.1 km apart, identical preferred time.
	nearCP := domain.Location{Latitude: 28.6324, Longitude: 77.2167}
	a := rideReq("r1", connaughtPlace, noida, 1, at)
	b := rideReq("r2", nearCP, noida, 1, at)

	clusters := PoolRequests([]domain.RideRequest{a, b}, testPoolerConfig())

	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	if len(clusters[0]) != 2 {
		t.Fatalf("expected 2 rides in cluster, got %d", len(clusters[0]))
	}
}

func TestPoolRequestsDistantPickupsSplit(t *testing.T) {
	at := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	a := rideReq("r1", connaughtPlace, noida, 1, at)
	b := rideReq("r2", mumbai, mumbaiAirport, 1, at)

	clusters := PoolRequests([]domain.RideRequest{a, b}, testPoolerConfig())

	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters for cross-city pickups, got %d", len(clusters))
	}
	for _, c := range clusters {
		if len(c) != 1 {
			t.Fatalf("expected singleton clusters, got size %d", len(c))
		}
	}
}

func TestPoolRequestsRespectsCapacity(t *testing.T) {
	at := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	reqs := []domain.RideRequest{
		rideReq("r1", connaughtPlace, noida, 2, at),
		rideReq("r2", connaughtPlace, noida, 2, at),
		rideReq("r3", connaughtPlace, noida, 2, at),
	}

	clusters := PoolRequests(reqs, testPoolerConfig())

	if len(clusters) < 2 {
		t.Fatalf("expected at least 2 clusters for 6 passengers, got %d", len(clusters))
	}
	for i, c := range clusters {
		if p := c.Passengers(); p > 4 {
			t.Fatalf("cluster %d carries %d passengers, capacity is 4", i, p)
		}
	}
}

func TestPoolRequestsDisjointWindowsSplit(t *testing.T) {
	morning := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)

	reqs := []domain.RideRequest{
		rideReq("r1", connaughtPlace, noida, 1, morning),
		rideReq("r2", connaughtPlace, noida, 1, evening),
	}

	clusters := PoolRequests(reqs, testPoolerConfig())
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters for disjoint windows, got %d", len(clusters))
	}
}

func TestPoolRequestsSeedDetourOverride(t *testing.T) {
	at := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	// Candidate pickup sits close to the seed's pickup but pulls the route
	// the wrong way relative to the dropoff.
	seed := rideReq("r1", connaughtPlace, noida, 1, at)
	seed.MaxDetourMinutes = 0.1
	candidate := rideReq("r2", domain.Location{Latitude: 28.6250, Longitude: 77.2100}, gurgaon, 1, at)

	clusters := PoolRequests([]domain.RideRequest{seed, candidate}, testPoolerConfig())
	if len(clusters) != 2 {
		t.Fatalf("expected detour override to split the rides, got %d clusters", len(clusters))
	}
}

func TestPoolRequestsTiedTimesSeedInInputOrder(t *testing.T) {
	at := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	// b and a cannot share a vehicle (3+3 exceeds capacity 4); c fits with
	// either. On a preferred-time tie the earlier input seeds first, so c
	// joins b, not a.
	b := rideReq("rb", connaughtPlace, noida, 3, at)
	a := rideReq("ra", connaughtPlace, noida, 3, at)
	c := rideReq("rc", connaughtPlace, noida, 1, at)

	clusters := PoolRequests([]domain.RideRequest{b, a, c}, testPoolerConfig())

	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
	if len(clusters[0]) != 2 || clusters[0][0].ID != "rb" || clusters[0][1].ID != "rc" {
		t.Fatalf("first cluster = %v, want [rb rc]", clusterIDs(clusters[0]))
	}
	if len(clusters[1]) != 1 || clusters[1][0].ID != "ra" {
		t.Fatalf("second cluster = %v, want [ra]", clusterIDs(clusters[1]))
	}
}

func clusterIDs(c domain.Cluster) []string {
	ids := make([]string, len(c))
	for i, r := range c {
		ids[i] = r.ID
	}
	return ids
}

func TestPoolRequestsEmptyInput(t *testing.T) {
	clusters := PoolRequests(nil, testPoolerConfig())
	if len(clusters) != 0 {
		t.Fatalf("expected no clusters for empty input, got %d", len(clusters))
	}
}

func TestScorePool(t *testing.T) {
	at := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	cfg := testPoolerConfig()

	full := domain.Cluster{
		rideReq("r1", connaughtPlace, noida, 2, at),
		rideReq("r2", connaughtPlace, noida, 2, at),
	}
	score := ScorePool(full, cfg)
	if score < 0 || score > 100 {
		t.Fatalf("score %f out of range", score)
	}

	// Identical pickups and windows with a full vehicle score perfectly.
	if score != 100 {
		t.Fatalf("score = %f, want 100 for identical full cluster", score)
	}

	if s := ScorePool(domain.Cluster{}, cfg); s != 0 {
		t.Fatalf("empty cluster score = %f, want 0", s)
	}

	half := domain.Cluster{rideReq("r1", connaughtPlace, noida, 2, at)}
	if s := ScorePool(half, cfg); s != 85 {
		// 0.35 + 0.35 + 0.30*(2/4), scaled to 100.
		t.Fatalf("singleton score = %f, want 85", s)
	}
}
