package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"ride-pool-service/internal/adapters/cache"
	"ride-pool-service/internal/adapters/routing"
	"ride-pool-service/internal/config"
	"ride-pool-service/internal/domain"
	"ride-pool-service/internal/platform/db"
	"ride-pool-service/internal/ports"
	"ride-pool-service/internal/services"
)

// rideRequestInput is the JSON shape accepted on stdin or as a file argument.
type rideRequestInput struct {
	ID                  string  `json:"id"`
	UserID              string  `json:"user_id"`
	Pickup              geo     `json:"pickup"`
	Dropoff             geo     `json:"dropoff"`
	PreferredTime       string  `json:"preferred_time"`
	BufferBeforeMinutes float64 `json:"buffer_before_minutes"`
	BufferAfterMinutes  float64 `json:"buffer_after_minutes"`
	Passengers          int     `json:"passengers"`
	MaxDetourMinutes    float64 `json:"max_detour_minutes"`
}

type geo struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

// main is the application composition root. It wires the routing oracle and
// leg cache behind ports, reads a batch of ride requests, and prints the
// optimization result as JSON.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfg := config.Load()

	requests, err := readRequests(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	oracle, closeFn, err := buildOracle(cfg)
	if err != nil {
		log.Fatal(err)
	}
	if closeFn != nil {
		defer closeFn()
	}

	orchestrator := services.NewOrchestrator(cfg, oracle)
	out := orchestrator.Optimize(context.Background(), requests)

	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Fatalf("encode output: %v", err)
	}
	fmt.Println(string(encoded))
}

func readRequests(args []string) ([]domain.RideRequest, error) {
	in := os.Stdin
	if len(args) > 0 {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, fmt.Errorf("open requests file: %w", err)
		}
		defer f.Close()
		in = f
	}

	var raw []rideRequestInput
	if err := json.NewDecoder(in).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode ride requests: %w", err)
	}

	requests := make([]domain.RideRequest, 0, len(raw))
	for _, r := range raw {
		preferred, err := time.Parse(time.RFC3339, r.PreferredTime)
		if err != nil {
			return nil, fmt.Errorf("request %q: parse preferred_time: %w", r.ID, err)
		}

		before := time.Duration(r.BufferBeforeMinutes * float64(time.Minute))
		after := time.Duration(r.BufferAfterMinutes * float64(time.Minute))

		requests = append(requests, domain.RideRequest{
			ID:               r.ID,
			UserID:           r.UserID,
			Pickup:           domain.Location{Latitude: r.Pickup.Latitude, Longitude: r.Pickup.Longitude, Address: r.Pickup.Address},
			Dropoff:          domain.Location{Latitude: r.Dropoff.Latitude, Longitude: r.Dropoff.Longitude, Address: r.Dropoff.Address},
			Window:           domain.WindowAround(preferred, before, after),
			Passengers:       r.Passengers,
			MaxDetourMinutes: r.MaxDetourMinutes,
			Status:           domain.RideRequested,
		})
	}

	return requests, nil
}

// buildOracle selects the routing backend, with an optional leg cache in
// front of OSRM. The haversine proxy is the default when nothing is
// configured.
func buildOracle(cfg config.Config) (ports.RouteOracle, func(), error) {
	switch cfg.RoutingProvider {
	case "osrm":
		legCache, closeFn, err := buildLegCache(cfg)
		if err != nil {
			return nil, nil, err
		}

		oracle, err := routing.NewOSRMOracle(cfg.OSRMBaseURL, legCache)
		if err != nil {
			if closeFn != nil {
				closeFn()
			}
			return nil, nil, err
		}
		return oracle, closeFn, nil

	case "googlemaps":
		oracle, err := routing.NewGoogleMapsOracle(cfg.MapsAPIKey)
		if err != nil {
			return nil, nil, err
		}
		return oracle, nil, nil

	case "":
		return routing.NewHaversineOracle(cfg.AverageSpeedKmh), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown routing provider %q", cfg.RoutingProvider)
	}
}

func buildLegCache(cfg config.Config) (ports.LegCache, func(), error) {
	switch cfg.CacheBackend {
	case "sqlite":
		sqlDB, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := cache.InitSchema(sqlDB); err != nil {
			sqlDB.Close()
			return nil, nil, fmt.Errorf("init leg cache schema: %w", err)
		}
		return cache.NewSqliteLegCache(sqlDB), func() { sqlDB.Close() }, nil

	case "postgres":
		sqlDB, err := db.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := cache.InitSchema(sqlDB); err != nil {
			sqlDB.Close()
			return nil, nil, fmt.Errorf("init leg cache schema: %w", err)
		}
		return cache.NewSQLLegCache(sqlDB), func() { sqlDB.Close() }, nil

	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return cache.NewRedisLegCache(client, 24*time.Hour), func() { client.Close() }, nil

	case "":
		return nil, nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}
