package routing

import (
	"context"
	"errors"
	"fmt"

	"googlemaps.github.io/maps"

	"ride-pool-service/internal/domain"
	"ride-pool-service/internal/platform/obs"
	"ride-pool-service/internal/ports"
)

// GoogleMapsOracle implements ports.RouteOracle on top of the Google Maps
// Directions and Distance Matrix APIs. Used when MAPS_API_KEY is configured
// instead of a self-hosted OSRM instance.
type GoogleMapsOracle struct {
	client *maps.Client
}

func NewGoogleMapsOracle(apiKey string) (*GoogleMapsOracle, error) {
	if apiKey == "" {
		return nil, errors.New("google maps API key is empty")
	}

	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create maps client: %w", err)
	}

	return &GoogleMapsOracle{client: client}, nil
}

func latLng(loc domain.Location) string {
	return fmt.Sprintf("%f,%f", loc.Latitude, loc.Longitude)
}

// GetRoute returns road metrics for driving through the locations in order.
// Intermediate locations become waypoints on a single directions request.
func (g *GoogleMapsOracle) GetRoute(ctx context.Context, locations []domain.Location) (_ ports.RouteEstimate, err error) {
	defer obs.Time(ctx, "googlemaps.GetRoute")(&err)

	if len(locations) < 2 {
		return ports.RouteEstimate{}, errors.New("get route: at least 2 locations required")
	}

	req := &maps.DirectionsRequest{
		Origin:      latLng(locations[0]),
		Destination: latLng(locations[len(locations)-1]),
		Mode:        maps.TravelModeDriving,
	}
	for _, loc := range locations[1 : len(locations)-1] {
		req.Waypoints = append(req.Waypoints, latLng(loc))
	}

	routes, _, err := g.client.Directions(ctx, req)
	if err != nil {
		return ports.RouteEstimate{}, fmt.Errorf("directions request failed: %w", err)
	}
	if len(routes) == 0 {
		return ports.RouteEstimate{}, errors.New("directions returned no routes")
	}

	best := routes[0]

	var est ports.RouteEstimate
	for _, leg := range best.Legs {
		est.DistanceKm += float64(leg.Distance.Meters) / 1000.0
		est.DurationMinutes += leg.Duration.Minutes()
	}
	est.Polyline = best.OverviewPolyline.Points

	return est, nil
}

// GetDurationMatrix returns travel minutes for every source/destination
// pair. Pairs the API cannot route are reported as -1.
func (g *GoogleMapsOracle) GetDurationMatrix(ctx context.Context, sources, destinations []domain.Location) (_ [][]float64, err error) {
	defer obs.Time(ctx, "googlemaps.GetDurationMatrix")(&err)

	if len(sources) == 0 || len(destinations) == 0 {
		return nil, errors.New("get duration matrix: sources and destinations must be non-empty")
	}

	req := &maps.DistanceMatrixRequest{
		Origins:      make([]string, len(sources)),
		Destinations: make([]string, len(destinations)),
		Mode:         maps.TravelModeDriving,
	}
	for i, loc := range sources {
		req.Origins[i] = latLng(loc)
	}
	for i, loc := range destinations {
		req.Destinations[i] = latLng(loc)
	}

	resp, err := g.client.DistanceMatrix(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("distance matrix request failed: %w", err)
	}
	if len(resp.Rows) != len(sources) {
		return nil, fmt.Errorf(
			"matrix rows do not match sources: rows=%d sources=%d",
			len(resp.Rows), len(sources),
		)
	}

	matrix := make([][]float64, len(resp.Rows))
	for i, row := range resp.Rows {
		if len(row.Elements) != len(destinations) {
			return nil, fmt.Errorf(
				"matrix row %d length does not match destinations: cols=%d destinations=%d",
				i, len(row.Elements), len(destinations),
			)
		}
		matrix[i] = make([]float64, len(row.Elements))
		for j, el := range row.Elements {
			if el.Status != "OK" {
				matrix[i][j] = -1
				continue
			}
			matrix[i][j] = el.Duration.Minutes()
		}
	}

	return matrix, nil
}
