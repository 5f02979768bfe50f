package domain

import (
	"testing"
	"time"
)

func testRoute() VehicleRoute {
	loc := Location{Latitude: 28.6139, Longitude: 77.2090}
	w := WindowAround(time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC), 10*time.Minute, 10*time.Minute)

	return VehicleRoute{
		VehicleID: "vehicle-1",
		Stops: []Stop{
			{RideID: "r1", Location: loc, Type: StopPickup, Window: w, PassengerDelta: 2, Sequence: 0},
			{RideID: "r2", Location: loc, Type: StopPickup, Window: w, PassengerDelta: 1, Sequence: 1},
			{RideID: "r1", Location: loc, Type: StopDropoff, Window: w, PassengerDelta: -2, Sequence: 2},
			{RideID: "r2", Location: loc, Type: StopDropoff, Window: w, PassengerDelta: -1, Sequence: 3},
		},
		LoadProfile:  []int{2, 3, 1, 0},
		CapacityUsed: 3,
	}
}

func TestVehicleRouteValidateAccepts(t *testing.T) {
	if err := testRoute().Validate(4); err != nil {
		t.Fatalf("valid route rejected: %v", err)
	}
}

func TestVehicleRouteValidateRejects(t *testing.T) {
	overCapacity := testRoute()
	if err := overCapacity.Validate(2); err == nil {
		t.Fatal("load above capacity accepted")
	}

	missingDropoff := testRoute()
	missingDropoff.Stops = missingDropoff.Stops[:3]
	missingDropoff.LoadProfile = missingDropoff.LoadProfile[:3]
	if err := missingDropoff.Validate(4); err == nil {
		t.Fatal("route with pickup but no dropoff accepted")
	}

	inverted := testRoute()
	inverted.Stops[0].Type = StopDropoff
	inverted.Stops[2].Type = StopPickup
	if err := inverted.Validate(4); err == nil {
		t.Fatal("dropoff before pickup accepted")
	}

	badSequence := testRoute()
	badSequence.Stops[1].Sequence = 0
	if err := badSequence.Validate(4); err == nil {
		t.Fatal("non-increasing sequence accepted")
	}

	badProfile := testRoute()
	badProfile.LoadProfile = []int{2, 3}
	if err := badProfile.Validate(4); err == nil {
		t.Fatal("short load profile accepted")
	}
}

func TestVehicleRouteRideIDs(t *testing.T) {
	ids := testRoute().RideIDs()
	if len(ids) != 2 || ids[0] != "r1" || ids[1] != "r2" {
		t.Fatalf("ride ids = %v, want [r1 r2]", ids)
	}
}
