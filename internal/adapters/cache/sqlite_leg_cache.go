package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"ride-pool-service/internal/ports"
)

// SQLite backed cache for single-leg route estimates. The default backend
// for local runs, sharing the leg_cache schema with SQLLegCache.
type SqliteLegCache struct {
	DB *sql.DB
}

func NewSqliteLegCache(db *sql.DB) *SqliteLegCache {
	return &SqliteLegCache{DB: db}
}

// Fetch cached estimates for the given leg keys.
func (s *SqliteLegCache) GetMany(ctx context.Context, keys []string) (map[string]ports.RouteEstimate, error) {
	if s.DB == nil {
		return nil, errors.New("leg cache: db is nil")
	}

	uniq := dedupeKeys(keys)
	if len(uniq) == 0 {
		return map[string]ports.RouteEstimate{}, nil
	}

	ph := make([]string, len(uniq))
	args := make([]any, len(uniq))
	for i, k := range uniq {
		ph[i] = "?"
		args[i] = k
	}

	// SQLite does not support binding slices directly in an IN (...) clause.
	// Only the placeholder structure is interpolated; all values remain
	// parameterized.
	q := fmt.Sprintf(`
	SELECT origin, destination, distance_km, duration_minutes, polyline
    FROM leg_cache
    WHERE origin || '|' || destination IN (%s);
	`, strings.Join(ph, ","))

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("get leg cache: query leg_cache table: %w", err)
	}
	defer rows.Close()

	out := make(map[string]ports.RouteEstimate, len(uniq))
	for rows.Next() {
		var origin, destination, polyline string
		var distanceKm, durationMin float64
		if err := rows.Scan(&origin, &destination, &distanceKm, &durationMin, &polyline); err != nil {
			return nil, fmt.Errorf("get leg cache: scan rows: %w", err)
		}
		out[origin+"|"+destination] = ports.RouteEstimate{
			DistanceKm:      distanceKm,
			DurationMinutes: durationMin,
			Polyline:        polyline,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get leg cache: row iteration: %w", err)
	}

	return out, nil
}

// Store many leg estimates.
func (s *SqliteLegCache) PutMany(ctx context.Context, legs map[string]ports.RouteEstimate) error {
	if s.DB == nil {
		return errors.New("leg cache: db is nil")
	}
	if len(legs) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert leg cache: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT OR REPLACE INTO leg_cache (origin, destination, distance_km, duration_minutes, polyline)
    VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("insert leg cache: db prepare: %w", err)
	}
	defer stmt.Close()

	for key, est := range legs {
		origin, destination, ok := strings.Cut(key, "|")
		if !ok || origin == "" || destination == "" {
			return fmt.Errorf("insert leg cache: malformed key %q", key)
		}

		if _, err := stmt.ExecContext(ctx, origin, destination, est.DistanceKm, est.DurationMinutes, est.Polyline); err != nil {
			return fmt.Errorf("insert leg cache key=%q: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert leg cache commit: %w", err)
	}

	return nil
}
