package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"ride-pool-service/internal/config"
	"ride-pool-service/internal/domain"
	"ride-pool-service/internal/platform/obs"
	"ride-pool-service/internal/ports"
)

// Orchestrator runs the full pooling pipeline: validate, pool, solve, price,
// and aggregate. It is the single place where lower-level failures are
// caught and converted into a degraded-but-usable result; Optimize never
// returns a hard error for valid input.
//
// An Orchestrator is stateless between calls and safe for concurrent use.
type Orchestrator struct {
	cfg     config.Config
	pooler  PoolerConfig
	solver  *Solver
	pricing *PricingEngine

	// oracle refines final route metrics with road data when set. Nil
	// keeps straight-line estimates throughout.
	oracle ports.RouteOracle
}

func NewOrchestrator(cfg config.Config, oracle ports.RouteOracle) *Orchestrator {
	poolerCfg := PoolerConfig{
		VehicleCapacity:     cfg.VehicleCapacity,
		MaxPickupDistanceKm: cfg.MaxPickupDistanceKm,
		MaxDetourMinutes:    cfg.MaxDetourMinutes,
		MaxGroupSize:        cfg.MaxGroupSize,
		AverageSpeedKmh:     cfg.AverageSpeedKmh,
	}

	return &Orchestrator{
		cfg:    cfg,
		pooler: poolerCfg,
		solver: NewSolver(SolverConfig{
			VehicleCapacity: cfg.VehicleCapacity,
			AverageSpeedKmh: cfg.AverageSpeedKmh,
			Budget:          time.Duration(cfg.OptimizationBudgetSeconds * float64(time.Second)),
		}),
		pricing: NewPricingEngine(cfg),
		oracle:  oracle,
	}
}

type solvedCluster struct {
	cluster domain.Cluster
	route   domain.VehicleRoute
}

// Optimize turns a batch of ride requests into priced vehicle bundles.
func (o *Orchestrator) Optimize(ctx context.Context, requests []domain.RideRequest) (out domain.OptimizationOutput) {
	batchID := uuid.New()
	ctx = context.WithValue(ctx, obs.BatchIDKey, batchID.String())

	started := time.Now()
	defer obs.Time(ctx, "orchestrator.Optimize")(nil)

	out = domain.OptimizationOutput{
		BatchID: batchID,
		Bundles: []domain.Bundle{},
		Status:  domain.StatusSuccess,
	}

	if len(requests) == 0 {
		out.ElapsedSeconds = time.Since(started).Seconds()
		return out
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("batch=%s optimize panicked, degrading to solo routes: %v", batchID, r)
			out = o.allSoloFallback(batchID, requests)
			out.ElapsedSeconds = time.Since(started).Seconds()
		}
	}()

	valid := make([]domain.RideRequest, 0, len(requests))
	for _, r := range requests {
		if err := r.Validate(o.cfg.VehicleCapacity); err != nil {
			log.Printf("batch=%s dropping invalid request: %v", batchID, err)
			out.DroppedRideIDs = append(out.DroppedRideIDs, r.ID)
			continue
		}
		valid = append(valid, r)
	}
	if len(valid) == 0 {
		out.Status = domain.StatusFailed
		out.ElapsedSeconds = time.Since(started).Seconds()
		return out
	}
	if len(out.DroppedRideIDs) > 0 {
		// The caller sees which rides were rejected; a batch that did not
		// serve its whole input is at best a partial result.
		out.Status = domain.StatusPartial
	}

	clusters := PoolRequests(valid, o.pooler)

	solved := make([]solvedCluster, 0, len(clusters))
	for i, cluster := range clusters {
		vehicleID := fmt.Sprintf("vehicle-%d", i+1)

		routes, err := o.solveCluster(cluster, vehicleID)
		if err != nil {
			// One bad cluster must not abort the batch: every ride in it
			// rides alone instead.
			log.Printf("batch=%s cluster=%d solve failed, substituting solo routes: %v", batchID, i, err)
			routes = o.soloRoutes(cluster, vehicleID)
			out.Status = domain.StatusPartial
		}
		solved = append(solved, routes...)
	}

	if o.oracle != nil {
		o.refineWithOracle(ctx, solved)
	}

	var totalCost float64
	routes := make([]domain.VehicleRoute, 0, len(solved))
	for _, sc := range solved {
		earnings, err := o.pricing.Earnings(sc.route)
		if err != nil {
			log.Printf("batch=%s pricing failed for route %s: %v", batchID, sc.route.VehicleID, err)
			out.Status = domain.StatusPartial
		}

		route := sc.route
		route.Revenue = earnings.GrossRevenue
		totalCost += earnings.GrossRevenue

		windowStart, windowEnd := effectiveWindow(sc.cluster)
		out.Bundles = append(out.Bundles, domain.Bundle{
			ID:          uuid.New(),
			RideIDs:     route.RideIDs(),
			Route:       route,
			Pricing:     o.pricing.Breakdown(sc.cluster, route, earnings),
			WindowStart: windowStart,
			WindowEnd:   windowEnd,
			CreatedAt:   time.Now().UTC(),
		})
		routes = append(routes, route)
	}

	out.TotalCost = round2(totalCost)
	out.TotalSavings = o.pricing.EstimateSystemSavings(valid, routes)
	out.Metrics = o.computeMetrics(valid, routes)

	switch {
	case len(routes) == 0:
		out.Status = domain.StatusFailed
	case !o.aggregateValid(batchID, valid, routes) && out.Status == domain.StatusSuccess:
		out.Status = domain.StatusPartial
	}

	out.ElapsedSeconds = time.Since(started).Seconds()
	return out
}

// solveCluster runs the solver for one cluster, converting panics into
// errors so the caller can substitute solo routes.
func (o *Orchestrator) solveCluster(cluster domain.Cluster, vehicleID string) (_ []solvedCluster, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("solver panicked: %v", r)
		}
	}()

	route, err := o.solver.Solve(cluster, vehicleID)
	if err != nil {
		return nil, err
	}
	if err := route.Validate(o.cfg.VehicleCapacity); err != nil {
		return nil, fmt.Errorf("solved route invalid: %w", err)
	}

	return []solvedCluster{{cluster: cluster, route: route}}, nil
}

// soloRoutes builds one independent two-stop route per ride.
func (o *Orchestrator) soloRoutes(cluster domain.Cluster, vehicleIDPrefix string) []solvedCluster {
	out := make([]solvedCluster, 0, len(cluster))
	for i, r := range cluster {
		single := domain.Cluster{r}
		route, err := o.solver.Solve(single, fmt.Sprintf("%s-solo-%d", vehicleIDPrefix, i+1))
		if err != nil {
			// Solve cannot fail for a validated single ride; guard anyway.
			log.Printf("solo route for ride %s failed: %v", r.ID, err)
			continue
		}
		out = append(out, solvedCluster{cluster: single, route: route})
	}
	return out
}

// refineWithOracle replaces straight-line route metrics with road metrics
// where the oracle answers. Failures keep the proxy estimate; a batch never
// fails because the routing backend is down.
func (o *Orchestrator) refineWithOracle(ctx context.Context, solved []solvedCluster) {
	defer obs.Time(ctx, "orchestrator.refineRoutes")(nil)

	sem := make(chan struct{}, 5)
	var wg sync.WaitGroup

	for i := range solved {
		wg.Add(1)
		go func(sc *solvedCluster) {
			sem <- struct{}{}
			defer wg.Done()
			defer func() { <-sem }()
			// recover is per goroutine; a buggy oracle adapter must not
			// take the process down, the route keeps its proxy metrics.
			defer func() {
				if r := recover(); r != nil {
					log.Printf("route refinement for %s panicked, keeping proxy metrics: %v", sc.route.VehicleID, r)
				}
			}()

			locs := make([]domain.Location, len(sc.route.Stops))
			for j, s := range sc.route.Stops {
				locs[j] = s.Location
			}

			est, err := o.oracle.GetRoute(ctx, locs)
			if err != nil {
				log.Printf("route refinement for %s failed, keeping proxy metrics: %v", sc.route.VehicleID, err)
				return
			}

			sc.route.DistanceKm = est.DistanceKm
			sc.route.DurationMinutes = est.DurationMinutes
			sc.route.Polyline = est.Polyline
		}(&solved[i])
	}

	wg.Wait()
}

// allSoloFallback is the last-resort degradation path: one route per input
// ride that passes validation, status partial.
func (o *Orchestrator) allSoloFallback(batchID uuid.UUID, requests []domain.RideRequest) domain.OptimizationOutput {
	out := domain.OptimizationOutput{
		BatchID: batchID,
		Bundles: []domain.Bundle{},
		Status:  domain.StatusPartial,
	}

	valid := make([]domain.RideRequest, 0, len(requests))
	for _, r := range requests {
		if err := r.Validate(o.cfg.VehicleCapacity); err != nil {
			out.DroppedRideIDs = append(out.DroppedRideIDs, r.ID)
			continue
		}
		valid = append(valid, r)
	}

	var totalCost float64
	routes := make([]domain.VehicleRoute, 0, len(valid))
	for i, r := range valid {
		single := domain.Cluster{r}
		route, err := o.solver.Solve(single, fmt.Sprintf("vehicle-%d", i+1))
		if err != nil {
			continue
		}

		earnings, err := o.pricing.Earnings(route)
		if err == nil {
			route.Revenue = earnings.GrossRevenue
			totalCost += earnings.GrossRevenue
		}

		windowStart, windowEnd := effectiveWindow(single)
		out.Bundles = append(out.Bundles, domain.Bundle{
			ID:          uuid.New(),
			RideIDs:     route.RideIDs(),
			Route:       route,
			Pricing:     o.pricing.Breakdown(single, route, earnings),
			WindowStart: windowStart,
			WindowEnd:   windowEnd,
			CreatedAt:   time.Now().UTC(),
		})
		routes = append(routes, route)
	}

	if len(routes) == 0 {
		out.Status = domain.StatusFailed
		return out
	}

	out.TotalCost = round2(totalCost)
	out.TotalSavings = o.pricing.EstimateSystemSavings(valid, routes)
	out.Metrics = o.computeMetrics(valid, routes)
	return out
}

// computeMetrics derives the batch-level quality numbers.
func (o *Orchestrator) computeMetrics(requests []domain.RideRequest, routes []domain.VehicleRoute) domain.OptimizationMetrics {
	m := domain.OptimizationMetrics{VehiclesUsed: len(routes)}
	if len(routes) == 0 {
		return m
	}

	soloMinutes := make(map[string]float64, len(requests))
	for _, r := range requests {
		soloMinutes[r.ID] = domain.EstimateDurationMinutes(r.SoloDistanceKm(), o.cfg.AverageSpeedKmh)
	}

	var detourSum, pooledDistance float64
	for _, route := range routes {
		if len(route.Stops) > 2 {
			m.RidesPooled += len(route.RideIDs())
		}

		var naive float64
		for _, id := range route.RideIDs() {
			naive += soloMinutes[id]
		}
		detourSum += route.DurationMinutes - naive
		pooledDistance += route.DistanceKm
	}

	avgDetour := detourSum / float64(len(routes))
	if avgDetour < 0 {
		avgDetour = 0
	}
	m.AverageDetourMinutes = math.Round(avgDetour*100) / 100
	m.PoolingEfficiency = math.Round(float64(m.RidesPooled)/float64(m.VehiclesUsed)*100) / 100

	// Heuristic: unpooled trips would cover roughly 30% more distance in
	// aggregate than the realized pooled routes.
	m.TotalDistanceSavedKm = math.Round(pooledDistance*0.30*100) / 100

	return m
}

// aggregateValid checks the batch-level invariants: every valid ride appears
// exactly once as a pickup, and every route passes its own validation.
func (o *Orchestrator) aggregateValid(batchID uuid.UUID, requests []domain.RideRequest, routes []domain.VehicleRoute) bool {
	ok := true

	seen := make(map[string]int, len(requests))
	for _, route := range routes {
		if err := route.Validate(o.cfg.VehicleCapacity); err != nil {
			log.Printf("batch=%s aggregate check: %v", batchID, err)
			ok = false
		}
		for _, id := range route.RideIDs() {
			seen[id]++
		}
	}

	for _, r := range requests {
		if seen[r.ID] != 1 {
			log.Printf("batch=%s aggregate check: ride %s appears %d times", batchID, r.ID, seen[r.ID])
			ok = false
		}
		delete(seen, r.ID)
	}
	for id, n := range seen {
		log.Printf("batch=%s aggregate check: unknown ride %s on %d routes", batchID, id, n)
		ok = false
	}

	return ok
}

// effectiveWindow is the shared pickup interval of a cluster: the
// intersection of all member windows, widening to the envelope when members
// only partially overlap.
func effectiveWindow(cluster domain.Cluster) (time.Time, time.Time) {
	if len(cluster) == 0 {
		return time.Time{}, time.Time{}
	}

	start := cluster[0].Window.Earliest
	end := cluster[0].Window.Latest
	minStart, maxEnd := start, end

	for _, r := range cluster[1:] {
		if r.Window.Earliest.After(start) {
			start = r.Window.Earliest
		}
		if r.Window.Latest.Before(end) {
			end = r.Window.Latest
		}
		if r.Window.Earliest.Before(minStart) {
			minStart = r.Window.Earliest
		}
		if r.Window.Latest.After(maxEnd) {
			maxEnd = r.Window.Latest
		}
	}

	if !start.Before(end) {
		return minStart, maxEnd
	}
	return start, end
}
