package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ride-pool-service/internal/domain"
	"ride-pool-service/internal/platform/obs"
	"ride-pool-service/internal/ports"
)

// OSRMOracle implements ports.RouteOracle against an OSRM server.
//
// It coordinates:
//   - Coordinate formatting (OSRM expects lon,lat order)
//   - An optional persistent cache for single-leg estimates
//   - External API calls with retry/backoff
//
// The oracle is safe for concurrent use.
type OSRMOracle struct {
	session  *http.Client
	baseURL  string
	profile  string
	legCache ports.LegCache
}

// NewOSRMOracle builds an oracle against the given OSRM base URL. legCache
// may be nil to disable caching.
func NewOSRMOracle(baseURL string, legCache ports.LegCache) (*OSRMOracle, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("OSRM base URL is empty")
	}

	return &OSRMOracle{
		session:  &http.Client{Timeout: 10 * time.Second},
		baseURL:  strings.TrimRight(baseURL, "/"),
		profile:  "driving",
		legCache: legCache,
	}, nil
}

type osrmRouteResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		DistanceMeters  float64 `json:"distance"`
		DurationSeconds float64 `json:"duration"`
		Geometry        string  `json:"geometry"`
	} `json:"routes"`
}

type osrmTableResponse struct {
	Code      string       `json:"code"`
	Message   string       `json:"message"`
	Durations [][]*float64 `json:"durations"`
}

// GetRoute returns road metrics for driving through the locations in order.
// Two-point requests are served from the leg cache when possible.
func (o *OSRMOracle) GetRoute(ctx context.Context, locations []domain.Location) (_ ports.RouteEstimate, err error) {
	defer obs.Time(ctx, "osrm.GetRoute")(&err)

	if len(locations) < 2 {
		return ports.RouteEstimate{}, errors.New("get route: at least 2 locations required")
	}

	var cacheKey string
	if o.legCache != nil && len(locations) == 2 {
		cacheKey = legKey(locations[0], locations[1])
		hits, cerr := o.legCache.GetMany(ctx, []string{cacheKey})
		if cerr != nil {
			log.Printf("leg cache read failed: %v", cerr)
		} else if est, ok := hits[cacheKey]; ok {
			return est, nil
		}
	}

	endpoint := fmt.Sprintf("%s/route/v1/%s/%s", o.baseURL, o.profile, formatCoords(locations))

	params := url.Values{}
	params.Set("overview", "full")
	params.Set("geometries", "polyline")
	params.Set("steps", "false")

	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		return o.newRequest(ctx, http.MethodGet, endpoint+"?"+params.Encode())
	})
	if err != nil {
		return ports.RouteEstimate{}, fmt.Errorf("route request failed: %w", err)
	}
	defer resp.Body.Close()

	var rr osrmRouteResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return ports.RouteEstimate{}, fmt.Errorf("decode route response: %w", err)
	}

	if rr.Code != "Ok" {
		return ports.RouteEstimate{}, fmt.Errorf("OSRM route error code=%q: %s", rr.Code, rr.Message)
	}
	if len(rr.Routes) == 0 {
		return ports.RouteEstimate{}, errors.New("OSRM returned no routes")
	}

	best := rr.Routes[0]
	est := ports.RouteEstimate{
		DistanceKm:      best.DistanceMeters / 1000.0,
		DurationMinutes: best.DurationSeconds / 60.0,
		Polyline:        best.Geometry,
	}

	if cacheKey != "" {
		if cerr := o.legCache.PutMany(ctx, map[string]ports.RouteEstimate{cacheKey: est}); cerr != nil {
			log.Printf("leg cache write failed: %v", cerr)
		}
	}

	return est, nil
}

// GetDurationMatrix returns travel minutes from each source to each
// destination using the OSRM table endpoint. Unroutable pairs are -1.
func (o *OSRMOracle) GetDurationMatrix(ctx context.Context, sources, destinations []domain.Location) (_ [][]float64, err error) {
	defer obs.Time(ctx, "osrm.GetDurationMatrix")(&err)

	if len(sources) == 0 || len(destinations) == 0 {
		return nil, errors.New("get duration matrix: sources and destinations must be non-empty")
	}

	all := make([]domain.Location, 0, len(sources)+len(destinations))
	all = append(all, sources...)
	all = append(all, destinations...)

	endpoint := fmt.Sprintf("%s/table/v1/%s/%s", o.baseURL, o.profile, formatCoords(all))

	params := url.Values{}
	params.Set("sources", indexList(0, len(sources)))
	params.Set("destinations", indexList(len(sources), len(all)))
	params.Set("annotations", "duration")

	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		return o.newRequest(ctx, http.MethodGet, endpoint+"?"+params.Encode())
	})
	if err != nil {
		return nil, fmt.Errorf("table request failed: %w", err)
	}
	defer resp.Body.Close()

	var tr osrmTableResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decode table response: %w", err)
	}

	if tr.Code != "Ok" {
		return nil, fmt.Errorf("OSRM table error code=%q: %s", tr.Code, tr.Message)
	}
	if len(tr.Durations) != len(sources) {
		return nil, fmt.Errorf(
			"table rows do not match sources: rows=%d sources=%d",
			len(tr.Durations), len(sources),
		)
	}

	matrix := make([][]float64, len(tr.Durations))
	for i, row := range tr.Durations {
		if len(row) != len(destinations) {
			return nil, fmt.Errorf(
				"table row %d length does not match destinations: cols=%d destinations=%d",
				i, len(row), len(destinations),
			)
		}
		matrix[i] = make([]float64, len(row))
		for j, seconds := range row {
			if seconds == nil {
				matrix[i][j] = -1
				continue
			}
			matrix[i][j] = *seconds / 60.0
		}
	}

	return matrix, nil
}

// formatCoords renders locations as the semicolon-separated lon,lat list
// OSRM expects.
func formatCoords(locations []domain.Location) string {
	parts := make([]string, len(locations))
	for i, loc := range locations {
		parts[i] = fmt.Sprintf("%f,%f", loc.Longitude, loc.Latitude)
	}
	return strings.Join(parts, ";")
}

// legKey builds the canonical cache key for a directed location pair.
func legKey(from, to domain.Location) string {
	return fmt.Sprintf("%.6f,%.6f|%.6f,%.6f", from.Latitude, from.Longitude, to.Latitude, to.Longitude)
}

func indexList(start, end int) string {
	parts := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		parts = append(parts, fmt.Sprintf("%d", i))
	}
	return strings.Join(parts, ";")
}
