package services

import (
	"fmt"
	"math"

	"ride-pool-service/internal/config"
	"ride-pool-service/internal/domain"
)

// PricingEngine computes fares, driver earnings, and savings for solved
// routes. Pure arithmetic over its inputs; the engine performs no I/O and
// holds no state beyond its rate card.
type PricingEngine struct {
	BaseFare        float64
	PerKmRate       float64
	PerMinuteRate   float64
	PlatformFeeRate float64
	Discounts       config.DiscountSchedule

	// AverageSpeedKmh converts solo baseline distances into durations so
	// baselines are priced at the same speed as the realized routes. Zero
	// falls back to the domain default.
	AverageSpeedKmh float64
}

func NewPricingEngine(cfg config.Config) *PricingEngine {
	return &PricingEngine{
		BaseFare:        cfg.BaseFare,
		PerKmRate:       cfg.PerKmRate,
		PerMinuteRate:   cfg.PerMinuteRate,
		PlatformFeeRate: cfg.PlatformFeeRate,
		Discounts:       cfg.Discounts,
		AverageSpeedKmh: cfg.AverageSpeedKmh,
	}
}

// DriverEarnings is the per-route economics returned by Earnings.
type DriverEarnings struct {
	GrossRevenue  float64
	PlatformFee   float64
	NetEarnings   float64
	EarningsPerKm float64
	PricePerRider float64
	Riders        int
}

// round2 is applied only at the engine boundary so intermediate values keep
// full precision.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// BasePrice is the undiscounted fare for a trip of the given length.
func (p *PricingEngine) BasePrice(distanceKm, durationMinutes float64) (float64, error) {
	if distanceKm < 0 || durationMinutes < 0 {
		return 0, fmt.Errorf(
			"base price: distance and duration must be non-negative, got %.2f km / %.2f min",
			distanceKm, durationMinutes,
		)
	}
	return round2(p.BaseFare + distanceKm*p.PerKmRate + durationMinutes*p.PerMinuteRate), nil
}

// PooledPricePerRider applies the pool-size discount. Every rider in the
// same vehicle pays the same discounted price regardless of trip length.
func (p *PricingEngine) PooledPricePerRider(basePrice float64, riders int) (float64, error) {
	if basePrice < 0 {
		return 0, fmt.Errorf("pooled price: base price must be non-negative, got %.2f", basePrice)
	}
	if riders < 1 {
		return 0, fmt.Errorf("pooled price: riders must be at least 1, got %d", riders)
	}
	return round2(basePrice * (1 - p.Discounts.Rate(riders))), nil
}

// Earnings computes the driver's take for one solved route.
func (p *PricingEngine) Earnings(route domain.VehicleRoute) (DriverEarnings, error) {
	riders := len(route.RideIDs())
	if riders == 0 {
		return DriverEarnings{}, fmt.Errorf("earnings: route %s has no pickups", route.VehicleID)
	}

	base := p.BaseFare + route.DistanceKm*p.PerKmRate + route.DurationMinutes*p.PerMinuteRate
	if route.DistanceKm < 0 || route.DurationMinutes < 0 {
		return DriverEarnings{}, fmt.Errorf(
			"earnings: route %s has negative metrics: %.2f km / %.2f min",
			route.VehicleID, route.DistanceKm, route.DurationMinutes,
		)
	}

	perRider := base * (1 - p.Discounts.Rate(riders))
	gross := perRider * float64(riders)
	fee := gross * p.PlatformFeeRate
	net := gross - fee

	perKm := 0.0
	if route.DistanceKm > 0 {
		perKm = net / route.DistanceKm
	}

	return DriverEarnings{
		GrossRevenue:  round2(gross),
		PlatformFee:   round2(fee),
		NetEarnings:   round2(net),
		EarningsPerKm: round2(perKm),
		PricePerRider: round2(perRider),
		Riders:        riders,
	}, nil
}

// PoolingEfficiency saturates at 50% for clusters of four or more rides and
// is zero for singletons.
func PoolingEfficiency(clusterSize int) float64 {
	if clusterSize < 1 {
		return 0
	}
	return math.Min(0.5, float64(clusterSize-1)*0.15)
}

// FlexScore weighs a rider's willingness to depart early more heavily than
// willingness to depart late.
func FlexScore(bufferBeforeMin, bufferAfterMin float64) float64 {
	return 0.6*bufferBeforeMin + 0.4*bufferAfterMin
}

// UserSavings converts a flex score into individual rider savings, capped
// at 30% of the base ride cost.
func UserSavings(flexScore, baseRideCost float64) float64 {
	return round2(baseRideCost * math.Min(0.30, flexScore/120))
}

// EstimateSystemSavings compares hypothetical solo fares against the pooled
// gross revenue actually charged. Never negative.
func (p *PricingEngine) EstimateSystemSavings(requests []domain.RideRequest, routes []domain.VehicleRoute) float64 {
	var soloTotal float64
	for _, r := range requests {
		km := r.SoloDistanceKm()
		mins := domain.EstimateDurationMinutes(km, p.AverageSpeedKmh)
		soloTotal += p.BaseFare + km*p.PerKmRate + mins*p.PerMinuteRate
	}

	var pooledTotal float64
	for _, route := range routes {
		riders := len(route.RideIDs())
		if riders == 0 {
			continue
		}
		base := p.BaseFare + route.DistanceKm*p.PerKmRate + route.DurationMinutes*p.PerMinuteRate
		pooledTotal += base * (1 - p.Discounts.Rate(riders)) * float64(riders)
	}

	savings := soloTotal - pooledTotal
	if savings < 0 {
		savings = 0
	}
	return round2(savings)
}

// Breakdown assembles the bundle-level pricing record for one route.
func (p *PricingEngine) Breakdown(cluster domain.Cluster, route domain.VehicleRoute, earnings DriverEarnings) domain.PricingBreakdown {
	var baselineNet float64
	for _, r := range cluster {
		km := r.SoloDistanceKm()
		mins := domain.EstimateDurationMinutes(km, p.AverageSpeedKmh)
		solo := p.BaseFare + km*p.PerKmRate + mins*p.PerMinuteRate
		baselineNet += solo * (1 - p.PlatformFeeRate)
	}

	var riderSavings float64
	for _, r := range cluster {
		flex := FlexScore(r.Window.BufferBeforeMinutes(), r.Window.BufferAfterMinutes())
		riderSavings += UserSavings(flex, 100)
	}

	return domain.PricingBreakdown{
		BaselineDriverProfit:  round2(baselineNet),
		OptimizedDriverProfit: earnings.NetEarnings,
		TotalRiderSavings:     round2(riderSavings),
		PlatformCommission:    earnings.PlatformFee,
		PoolingEfficiency:     PoolingEfficiency(len(cluster)),
	}
}
