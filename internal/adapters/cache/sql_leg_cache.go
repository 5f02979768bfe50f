package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"ride-pool-service/internal/platform/obs"
	"ride-pool-service/internal/ports"
)

// SQLLegCache is a PostgreSQL-backed cache for single-leg route estimates.
// Keys are the canonical "origin|destination" pairs built by the oracle
// adapter.
type SQLLegCache struct {
	DB *sql.DB
}

func NewSQLLegCache(db *sql.DB) *SQLLegCache {
	return &SQLLegCache{DB: db}
}

// Fetch cached estimates for the given leg keys.
func (s *SQLLegCache) GetMany(ctx context.Context, keys []string) (_ map[string]ports.RouteEstimate, err error) {
	defer obs.Time(ctx, "legcache.sql.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("leg cache: db is nil")
	}

	uniq := dedupeKeys(keys)
	if len(uniq) == 0 {
		return map[string]ports.RouteEstimate{}, nil
	}

	q := `
	SELECT origin, destination, distance_km, duration_minutes, polyline
    FROM leg_cache
    WHERE origin || '|' || destination = ANY($1::text[]);
	`

	rows, err := s.DB.QueryContext(ctx, q, uniq)
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
func (s *SQLLegCache) PutMany(ctx context.Context, legs map[string]ports.RouteEstimate) (err error) {
	defer obs.Time(ctx, "legcache.sql.PutMany")(&err)

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
	INSERT INTO leg_cache (origin, destination, distance_km, duration_minutes, polyline)
    VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (origin, destination) DO UPDATE
	SET distance_km = EXCLUDED.distance_km,
		duration_minutes = EXCLUDED.duration_minutes,
		polyline = EXCLUDED.polyline;
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

func dedupeKeys(keys []string) []string {
	seen := map[string]struct{}{}
	uniq := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		uniq = append(uniq, k)
	}
	return uniq
}
