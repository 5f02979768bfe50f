package services

import (
	"math"
	"slices"

	"ride-pool-service/internal/domain"
)

// PoolerConfig bounds how aggressively ride requests are grouped.
type PoolerConfig struct {
	VehicleCapacity     int
	MaxPickupDistanceKm float64
	MaxDetourMinutes    float64
	MaxGroupSize        int
	AverageSpeedKmh     float64
}

// PoolRequests groups compatible ride requests into clusters that can share
// one vehicle.
//
// Requests are sorted by preferred pickup time and consumed greedily: each
// unassigned request seeds a new cluster, then later requests join it when
// they pass the compatibility checks against the seed. Candidates are tested
// against the seed only, not against every member already admitted; see
// CanPool for the individual checks. A request that matches nothing becomes
// a singleton cluster, so valid input always pools without error.
func PoolRequests(requests []domain.RideRequest, cfg PoolerConfig) []domain.Cluster {
	if len(requests) == 0 {
		return []domain.Cluster{}
	}

	// Stable sort: requests with identical preferred times keep their input
	// order, which decides who seeds a cluster on ties.
	sorted := make([]domain.RideRequest, len(requests))
	copy(sorted, requests)
	slices.SortStableFunc(sorted, func(a, b domain.RideRequest) int {
		if a.Window.Preferred.Before(b.Window.Preferred) {
			return -1
		}
		if b.Window.Preferred.Before(a.Window.Preferred) {
			return 1
		}
		return 0
	})

	assigned := make(map[string]bool, len(sorted))
	clusters := []domain.Cluster{}

	for i, seed := range sorted {
		if assigned[seed.ID] {
			continue
		}

		cluster := domain.Cluster{seed}
		assigned[seed.ID] = true

		for _, candidate := range sorted[i+1:] {
			if assigned[candidate.ID] {
				continue
			}
			if cfg.MaxGroupSize > 0 && len(cluster) >= cfg.MaxGroupSize {
				break
			}
			if !CanPool(seed, candidate, cluster.Passengers(), cfg) {
				continue
			}
			cluster = append(cluster, candidate)
			assigned[candidate.ID] = true
		}

		clusters = append(clusters, cluster)
	}

	return clusters
}

// CanPool reports whether a candidate request can join a cluster opened by
// seed, given the passengers already on board.
func CanPool(seed, candidate domain.RideRequest, clusterPassengers int, cfg PoolerConfig) bool {
	if clusterPassengers+candidate.Passengers > cfg.VehicleCapacity {
		return false
	}
	if !seed.Window.Overlaps(candidate.Window) {
		return false
	}
	if domain.DistanceKm(seed.Pickup, candidate.Pickup) > cfg.MaxPickupDistanceKm {
		return false
	}

	budget := cfg.MaxDetourMinutes
	if seed.MaxDetourMinutes > 0 {
		budget = seed.MaxDetourMinutes
	}

	return estimateDetourMinutes(seed, candidate, cfg.AverageSpeedKmh) <= budget
}

// estimateDetourMinutes is a cheap proxy for how much longer the seed's trip
// gets when the vehicle swings by the candidate's pickup first. No oracle
// round-trip happens during grouping.
func estimateDetourMinutes(seed, candidate domain.RideRequest, avgSpeedKmh float64) float64 {
	solo := seed.SoloDistanceKm()
	pooled := domain.DistanceKm(seed.Pickup, candidate.Pickup) +
		domain.DistanceKm(candidate.Pickup, seed.Dropoff)

	extra := pooled - solo
	if extra < 0 {
		extra = 0
	}

	return domain.EstimateDurationMinutes(extra, avgSpeedKmh)
}

// ScorePool rates cluster quality on a 0-100 scale for diagnostics. The
// score blends mean pairwise time overlap, pickup compactness, and seat
// utilization; it never influences pooling decisions.
func ScorePool(cluster domain.Cluster, cfg PoolerConfig) float64 {
	if len(cluster) == 0 {
		return 0
	}

	overlap := 1.0
	compact := 1.0

	if len(cluster) > 1 {
		var overlapSum, distSum float64
		pairs := 0
		for i := 0; i < len(cluster); i++ {
			for j := i + 1; j < len(cluster); j++ {
				overlapSum += cluster[i].Window.OverlapQuality(cluster[j].Window)
				distSum += domain.DistanceKm(cluster[i].Pickup, cluster[j].Pickup)
				pairs++
			}
		}
		overlap = overlapSum / float64(pairs)

		if cfg.MaxPickupDistanceKm > 0 {
			compact = 1 - (distSum/float64(pairs))/cfg.MaxPickupDistanceKm
			if compact < 0 {
				compact = 0
			}
		}
	}

	utilization := 0.0
	if cfg.VehicleCapacity > 0 {
		utilization = float64(cluster.Passengers()) / float64(cfg.VehicleCapacity)
		if utilization > 1 {
			utilization = 1
		}
	}

	score := (0.35*overlap + 0.35*compact + 0.30*utilization) * 100
	return math.Round(score*100) / 100
}
