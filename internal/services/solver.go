package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"ride-pool-service/internal/domain"
)

// ErrNoSolution is returned by a RouteStrategy when no feasible stop order
// exists within the constraints, or none was found before the deadline.
var ErrNoSolution = errors.New("no feasible route found")

// SolverConfig bounds the search for a stop order.
type SolverConfig struct {
	VehicleCapacity int
	AverageSpeedKmh float64

	// Budget is the wall-clock limit for the exact strategy. Zero means
	// no limit.
	Budget time.Duration
}

// Waiting at a stop before its window opens is allowed up to this long.
const maxWaitMinutes = 60.0

// Dropoffs tolerate arrivals this long past the ride window's latest pickup
// time, since the window constrains the pickup, not the full trip.
const dropoffSlackMinutes = 120.0

// RouteStrategy orders the stops of one cluster into a feasible visit
// sequence. Implementations must respect pickup-before-dropoff, capacity,
// and time windows.
type RouteStrategy interface {
	Order(cluster domain.Cluster, cfg SolverConfig, deadline time.Time) ([]stopNode, error)
}

// Solver turns clusters into vehicle routes. It runs the configured strategy
// first and falls back to a greedy nearest-neighbor ordering when the
// strategy fails or runs out of budget.
type Solver struct {
	cfg      SolverConfig
	strategy RouteStrategy
}

func NewSolver(cfg SolverConfig) *Solver {
	return &Solver{cfg: cfg, strategy: branchAndBoundStrategy{}}
}

// NewSolverWithStrategy is used by tests to force a specific strategy.
func NewSolverWithStrategy(cfg SolverConfig, strategy RouteStrategy) *Solver {
	return &Solver{cfg: cfg, strategy: strategy}
}

// Solve produces a feasible route for any non-empty cluster.
func (s *Solver) Solve(cluster domain.Cluster, vehicleID string) (domain.VehicleRoute, error) {
	if len(cluster) == 0 {
		return domain.VehicleRoute{}, errors.New("solve: cluster must be non-empty")
	}
	if p := cluster.Passengers(); p > s.cfg.VehicleCapacity {
		return domain.VehicleRoute{}, fmt.Errorf(
			"solve: cluster passengers %d exceed capacity %d", p, s.cfg.VehicleCapacity,
		)
	}

	// Single ride: pickup then dropoff, nothing to search.
	if len(cluster) == 1 {
		nodes := []stopNode{pickupNode(cluster[0]), dropoffNode(cluster[0])}
		return s.assemble(vehicleID, nodes), nil
	}

	deadline := time.Time{}
	if s.cfg.Budget > 0 {
		deadline = time.Now().Add(s.cfg.Budget)
	}

	nodes, err := s.strategy.Order(cluster, s.cfg, deadline)
	if err != nil {
		nodes = nearestNeighborOrder(cluster)
	}

	return s.assemble(vehicleID, nodes), nil
}

// stopNode is one pickup or dropoff awaiting sequencing.
type stopNode struct {
	rideID   string
	loc      domain.Location
	kind     domain.StopType
	window   domain.TimeWindow
	delta    int
	pairWith int // index of this node's counterpart in the node slice
}

func pickupNode(r domain.RideRequest) stopNode {
	return stopNode{rideID: r.ID, loc: r.Pickup, kind: domain.StopPickup, window: r.Window, delta: r.Passengers}
}

func dropoffNode(r domain.RideRequest) stopNode {
	return stopNode{rideID: r.ID, loc: r.Dropoff, kind: domain.StopDropoff, window: r.Window, delta: -r.Passengers}
}

func clusterNodes(cluster domain.Cluster) []stopNode {
	nodes := make([]stopNode, 0, 2*len(cluster))
	for _, r := range cluster {
		p := pickupNode(r)
		d := dropoffNode(r)
		p.pairWith = len(nodes) + 1
		d.pairWith = len(nodes)
		nodes = append(nodes, p, d)
	}
	return nodes
}

// assemble turns an ordered node list into a VehicleRoute with straight-line
// metrics, a load profile, and best-effort arrival times.
func (s *Solver) assemble(vehicleID string, nodes []stopNode) domain.VehicleRoute {
	stops := make([]domain.Stop, len(nodes))
	loads := make([]int, len(nodes))

	var distanceKm float64
	load := 0
	capacityUsed := 0

	clock := nodes[0].window.Earliest
	for i, n := range nodes {
		if i > 0 {
			leg := domain.DistanceKm(nodes[i-1].loc, n.loc)
			distanceKm += leg
			clock = clock.Add(minutesToDuration(domain.EstimateDurationMinutes(leg, s.cfg.AverageSpeedKmh)))
		}
		if clock.Before(n.window.Earliest) {
			clock = n.window.Earliest
		}

		load += n.delta
		loads[i] = load
		if load > capacityUsed {
			capacityUsed = load
		}

		arrival := clock
		stops[i] = domain.Stop{
			RideID:         n.rideID,
			Location:       n.loc,
			Type:           n.kind,
			Window:         n.window,
			PassengerDelta: n.delta,
			Sequence:       i,
			ArrivalTime:    &arrival,
		}
	}

	return domain.VehicleRoute{
		VehicleID:       vehicleID,
		Stops:           stops,
		DistanceKm:      distanceKm,
		DurationMinutes: domain.EstimateDurationMinutes(distanceKm, s.cfg.AverageSpeedKmh),
		CapacityUsed:    capacityUsed,
		LoadProfile:     loads,
	}
}

func minutesToDuration(minutes float64) time.Duration {
	return time.Duration(minutes * float64(time.Minute))
}

// branchAndBoundStrategy searches stop orders exhaustively with pruning.
// The vehicle starts at the first ride's pickup, so the opening leg from
// there is charged like any other. Clusters are small (at most 8 stops), so
// the full search tree is tractable inside the budget; the incumbent cost
// bounds later branches.
type branchAndBoundStrategy struct{}

func (branchAndBoundStrategy) Order(cluster domain.Cluster, cfg SolverConfig, deadline time.Time) ([]stopNode, error) {
	nodes := clusterNodes(cluster)
	n := len(nodes)

	travel := make([][]float64, n)
	for i := range nodes {
		travel[i] = make([]float64, n)
		for j := range nodes {
			km := domain.DistanceKm(nodes[i].loc, nodes[j].loc)
			travel[i][j] = domain.EstimateDurationMinutes(km, cfg.AverageSpeedKmh)
		}
	}

	base := nodes[0].window.Earliest
	for _, nd := range nodes[1:] {
		if nd.window.Earliest.Before(base) {
			base = nd.window.Earliest
		}
	}

	search := &routeSearch{
		nodes:    nodes,
		travel:   travel,
		base:     base,
		capacity: cfg.VehicleCapacity,
		deadline: deadline,
		bestCost: math.Inf(1),
	}

	order := make([]int, 0, n)
	visited := make([]bool, n)
	search.expand(order, visited, 0, 0, 0)

	if search.best == nil {
		return nil, ErrNoSolution
	}

	out := make([]stopNode, n)
	for i, idx := range search.best {
		out[i] = nodes[idx]
	}
	return out, nil
}

type routeSearch struct {
	nodes    []stopNode
	travel   [][]float64
	base     time.Time
	capacity int
	deadline time.Time

	best     []int
	bestCost float64
	expired  bool
}

// expand depth-first extends the partial order. clock is minutes since base.
func (s *routeSearch) expand(order []int, visited []bool, load int, clock, cost float64) {
	if s.expired {
		return
	}
	if !s.deadline.IsZero() && time.Now().After(s.deadline) {
		s.expired = true
		return
	}
	if cost >= s.bestCost {
		return
	}

	if len(order) == len(s.nodes) {
		s.bestCost = cost
		s.best = append([]int(nil), order...)
		return
	}

	for i, nd := range s.nodes {
		if visited[i] {
			continue
		}
		if nd.kind == domain.StopDropoff && !visited[nd.pairWith] {
			continue
		}

		newLoad := load + nd.delta
		if newLoad < 0 || newLoad > s.capacity {
			continue
		}

		// The vehicle departs from node 0's location, so the first stop
		// pays the leg from there.
		travelMin := s.travel[0][i]
		if len(order) > 0 {
			travelMin = s.travel[order[len(order)-1]][i]
		}

		arrival := clock + travelMin
		opensAt := nd.window.Earliest.Sub(s.base).Minutes()
		closesAt := nd.window.Latest.Sub(s.base).Minutes()
		if nd.kind == domain.StopDropoff {
			closesAt += dropoffSlackMinutes
		}

		if arrival < opensAt {
			if opensAt-arrival > maxWaitMinutes {
				continue
			}
			arrival = opensAt
		}
		if arrival > closesAt {
			continue
		}

		visited[i] = true
		s.expand(append(order, i), visited, newLoad, arrival, cost+travelMin)
		visited[i] = false
	}
}

// nearestNeighborOrder is the deterministic fallback: all pickups greedily
// from the first ride's pickup, then all dropoffs greedily from the last
// pickup. Pickups preceding every dropoff makes precedence hold trivially.
func nearestNeighborOrder(cluster domain.Cluster) []stopNode {
	pickups := make([]stopNode, 0, len(cluster))
	dropoffs := make([]stopNode, 0, len(cluster))
	for _, r := range cluster {
		pickups = append(pickups, pickupNode(r))
		dropoffs = append(dropoffs, dropoffNode(r))
	}

	ordered := greedyChain(pickups, pickups[0].loc)
	ordered = append(ordered, greedyChain(dropoffs, ordered[len(ordered)-1].loc)...)
	return ordered
}

func greedyChain(nodes []stopNode, from domain.Location) []stopNode {
	remaining := append([]stopNode(nil), nodes...)
	out := make([]stopNode, 0, len(nodes))
	current := from

	for len(remaining) > 0 {
		bestIdx := 0
		bestDist := math.Inf(1)
		for i, nd := range remaining {
			d := domain.DistanceKm(current, nd.loc)
			// Tie-breaker ensures deterministic ordering when distances are equal.
			if d < bestDist || (d == bestDist && nd.rideID < remaining[bestIdx].rideID) {
				bestDist = d
				bestIdx = i
			}
		}

		chosen := remaining[bestIdx]
		out = append(out, chosen)
		current = chosen.loc
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return out
}
