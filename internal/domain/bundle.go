package domain

import (
	"time"

	"github.com/google/uuid"
)

// Economic breakdown for one bundle, consumed by the bidding and settlement
// layers above the core.
type PricingBreakdown struct {
	BaselineDriverProfit  float64
	OptimizedDriverProfit float64
	TotalRiderSavings     float64
	PlatformCommission    float64

	// PoolingEfficiency is in [0, 1].
	PoolingEfficiency float64
}

// One shared-vehicle bundle: a solved route, its pricing, and the bundle's
// effective pickup window.
type Bundle struct {
	ID          uuid.UUID
	RideIDs     []string
	Route       VehicleRoute
	Pricing     PricingBreakdown
	WindowStart time.Time
	WindowEnd   time.Time
	CreatedAt   time.Time
}

type OptimizationStatus string

const (
	StatusSuccess OptimizationStatus = "success"
	StatusPartial OptimizationStatus = "partial"
	StatusFailed  OptimizationStatus = "failed"
)

// Aggregate quality numbers for one optimization batch.
type OptimizationMetrics struct {
	RidesPooled          int
	VehiclesUsed         int
	AverageDetourMinutes float64
	PoolingEfficiency    float64
	TotalDistanceSavedKm float64
}

// Result of one optimization call.
type OptimizationOutput struct {
	BatchID      uuid.UUID
	Bundles      []Bundle
	TotalCost    float64
	TotalSavings float64

	// DroppedRideIDs lists input requests that failed validation and were
	// excluded from the batch. Non-empty means the status is at best
	// partial.
	DroppedRideIDs []string

	// ElapsedSeconds is the wall-clock time the whole batch took.
	ElapsedSeconds float64

	Status  OptimizationStatus
	Metrics OptimizationMetrics
}
