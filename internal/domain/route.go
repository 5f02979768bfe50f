package domain

import (
	"fmt"
	"time"
)

type StopType string

const (
	StopPickup  StopType = "pickup"
	StopDropoff StopType = "dropoff"
)

// A single stop in a vehicle route. Stops reference their ride by ID only;
// the route owns its stops as an ordered value list.
type Stop struct {
	RideID   string
	Location Location
	Type     StopType
	Window   TimeWindow

	// PassengerDelta is positive at pickups and negative at dropoffs.
	PassengerDelta int

	Sequence int

	// ArrivalTime is populated by the solver once a feasible schedule is
	// known. Nil when no schedule was computed.
	ArrivalTime *time.Time
}

// Planned route for one (possibly synthetic) vehicle.
type VehicleRoute struct {
	VehicleID       string
	Stops           []Stop
	DistanceKm      float64
	DurationMinutes float64

	// CapacityUsed is the peak of LoadProfile.
	CapacityUsed int

	// LoadProfile holds the running passenger count after each stop.
	LoadProfile []int

	// Revenue is left at zero by the solver and populated by the pricing
	// engine.
	Revenue float64

	// Polyline is the encoded road geometry when a routing oracle supplied
	// the final metrics; empty for straight-line estimates.
	Polyline string
}

// RideIDs returns the distinct ride IDs on the route in pickup order.
func (v VehicleRoute) RideIDs() []string {
	ids := make([]string, 0, len(v.Stops)/2)
	for _, s := range v.Stops {
		if s.Type == StopPickup {
			ids = append(ids, s.RideID)
		}
	}
	return ids
}

// Validate checks the structural route invariants: exactly one pickup and
// one dropoff per ride with pickup sequenced first, monotonically increasing
// sequence numbers, and a load profile within [0, capacity].
func (v VehicleRoute) Validate(capacity int) error {
	pickupSeq := make(map[string]int)
	dropoffSeq := make(map[string]int)

	for i, s := range v.Stops {
		if i > 0 && v.Stops[i-1].Sequence >= s.Sequence {
			return fmt.Errorf("route %s: stop sequence not strictly increasing at index %d", v.VehicleID, i)
		}
		switch s.Type {
		case StopPickup:
			if _, dup := pickupSeq[s.RideID]; dup {
				return fmt.Errorf("route %s: duplicate pickup for ride %s", v.VehicleID, s.RideID)
			}
			pickupSeq[s.RideID] = s.Sequence
		case StopDropoff:
			if _, dup := dropoffSeq[s.RideID]; dup {
				return fmt.Errorf("route %s: duplicate dropoff for ride %s", v.VehicleID, s.RideID)
			}
			dropoffSeq[s.RideID] = s.Sequence
		default:
			return fmt.Errorf("route %s: unknown stop type %q", v.VehicleID, s.Type)
		}
	}

	for rideID, ps := range pickupSeq {
		ds, ok := dropoffSeq[rideID]
		if !ok {
			return fmt.Errorf("route %s: ride %s has a pickup but no dropoff", v.VehicleID, rideID)
		}
		if ps >= ds {
			return fmt.Errorf("route %s: ride %s dropoff sequenced before pickup", v.VehicleID, rideID)
		}
	}
	for rideID := range dropoffSeq {
		if _, ok := pickupSeq[rideID]; !ok {
			return fmt.Errorf("route %s: ride %s has a dropoff but no pickup", v.VehicleID, rideID)
		}
	}

	if len(v.LoadProfile) != len(v.Stops) {
		return fmt.Errorf(
			"route %s: load profile length %d does not match %d stops",
			v.VehicleID, len(v.LoadProfile), len(v.Stops),
		)
	}
	for i, load := range v.LoadProfile {
		if load < 0 {
			return fmt.Errorf("route %s: negative load %d after stop %d", v.VehicleID, load, i)
		}
		if load > capacity {
			return fmt.Errorf(
				"route %s: load %d after stop %d exceeds capacity %d",
				v.VehicleID, load, i, capacity,
			)
		}
	}

	return nil
}
