package domain

import (
	"errors"
	"fmt"
)

// Lifecycle status of a ride request. Transitions are owned by the service
// layer above the optimization core; the core only reads requests.
type RideStatus string

const (
	RideRequested  RideStatus = "REQUESTED"
	RideOptimizing RideStatus = "OPTIMIZING"
	RideBidding    RideStatus = "BIDDING"
	RideConfirmed  RideStatus = "CONFIRMED"
	RideCompleted  RideStatus = "COMPLETED"
	RideCancelled  RideStatus = "CANCELLED"
)

// A single rider's request for transport. Read-only input to the
// optimization core: already geocoded and persisted by the caller.
type RideRequest struct {
	ID         string
	UserID     string
	Pickup     Location
	Dropoff    Location
	Window     TimeWindow
	Passengers int

	// MaxDetourMinutes overrides the pooler's default detour budget when
	// greater than zero.
	MaxDetourMinutes float64

	Status RideStatus
}

// Validate rejects malformed requests at the core boundary.
func (r RideRequest) Validate(vehicleCapacity int) error {
	if r.ID == "" {
		return errors.New("ride request: id must be non-empty")
	}
	if !r.Pickup.ValidCoordinates() {
		return fmt.Errorf("ride request %s: pickup coordinates out of range", r.ID)
	}
	if !r.Dropoff.ValidCoordinates() {
		return fmt.Errorf("ride request %s: dropoff coordinates out of range", r.ID)
	}
	if err := r.Window.Validate(); err != nil {
		return fmt.Errorf("ride request %s: %w", r.ID, err)
	}
	if r.Passengers < 1 || r.Passengers > vehicleCapacity {
		return fmt.Errorf(
			"ride request %s: passengers must be between 1 and %d, got %d",
			r.ID, vehicleCapacity, r.Passengers,
		)
	}
	return nil
}

// SoloDistanceKm is the straight-line pickup-to-dropoff distance, used as
// the baseline when comparing pooled routes against individual trips.
func (r RideRequest) SoloDistanceKm() float64 {
	return DistanceKm(r.Pickup, r.Dropoff)
}

// A Cluster is a set of ride requests chosen to share one vehicle.
// Transient: produced by the pooler, consumed by the solver.
type Cluster []RideRequest

// Passengers is the combined passenger count of the cluster.
func (c Cluster) Passengers() int {
	total := 0
	for _, r := range c {
		total += r.Passengers
	}
	return total
}
