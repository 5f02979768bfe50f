package ports

import "context"

// Cache for single-leg route estimates, keyed by a canonical
// "lat,lon|lat,lon" pair built by the oracle adapter. Implementations must
// be safe for concurrent use; a cache miss is simply an absent key, never
// an error.
type LegCache interface {
	GetMany(ctx context.Context, keys []string) (map[string]RouteEstimate, error)
	PutMany(ctx context.Context, legs map[string]RouteEstimate) error
}
