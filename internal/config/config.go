// Package config holds the tunables the optimization core honors. Values
// come from the environment (a .env file is loaded by the binaries before
// Load is called) with defaults suitable for local runs.
package config

import (
	"os"
	"strconv"
)

// Discount rate per rider count, capped at the final tier for larger pools.
type DiscountSchedule []float64

// Rate returns the discount fraction for the given rider count.
func (s DiscountSchedule) Rate(riders int) float64 {
	if len(s) == 0 || riders < 1 {
		return 0
	}
	if riders > len(s) {
		riders = len(s)
	}
	return s[riders-1]
}

type Config struct {
	// Pooling.
	VehicleCapacity     int
	MaxPickupDistanceKm float64
	MaxDetourMinutes    float64
	MaxGroupSize        int

	// Solving.
	OptimizationBudgetSeconds float64
	AverageSpeedKmh           float64

	// Pricing.
	BaseFare        float64
	PerKmRate       float64
	PerMinuteRate   float64
	PlatformFeeRate float64
	Discounts       DiscountSchedule

	// Adapters (composition root only; the core never reads these).
	RoutingProvider string // "osrm", "googlemaps", or "" for the haversine proxy
	OSRMBaseURL     string
	MapsAPIKey      string
	CacheBackend    string // "sqlite", "postgres", "redis", or "" for none
	DatabaseURL     string
	SQLitePath      string
	RedisAddr       string
}

// Load reads the configuration surface from the environment.
func Load() Config {
	return Config{
		VehicleCapacity:     envOrDefaultInt("POOL_VEHICLE_CAPACITY", 4),
		MaxPickupDistanceKm: envOrDefaultFloat("POOL_MAX_PICKUP_DISTANCE_KM", 2.0),
		MaxDetourMinutes:    envOrDefaultFloat("POOL_MAX_DETOUR_MINUTES", 15),
		MaxGroupSize:        envOrDefaultInt("POOL_MAX_GROUP_SIZE", 4),

		OptimizationBudgetSeconds: envOrDefaultFloat("SOLVER_BUDGET_SECONDS", 30),
		AverageSpeedKmh:           envOrDefaultFloat("AVERAGE_SPEED_KMH", 30),

		BaseFare:        envOrDefaultFloat("PRICING_BASE_FARE", 50),
		PerKmRate:       envOrDefaultFloat("PRICING_PER_KM_RATE", 12),
		PerMinuteRate:   envOrDefaultFloat("PRICING_PER_MINUTE_RATE", 2),
		PlatformFeeRate: envOrDefaultFloat("PRICING_PLATFORM_FEE_RATE", 0.15),
		Discounts:       DefaultDiscounts(),

		RoutingProvider: os.Getenv("ROUTING_PROVIDER"),
		OSRMBaseURL:     envOrDefault("OSRM_BASE_URL", "http://router.project-osrm.org"),
		MapsAPIKey:      os.Getenv("MAPS_API_KEY"),
		CacheBackend:    os.Getenv("CACHE_BACKEND"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		SQLitePath:      envOrDefault("SQLITE_PATH", "data/legcache.db"),
		RedisAddr:       envOrDefault("REDIS_ADDR", "localhost:6379"),
	}
}

// DefaultDiscounts is the standard pooling schedule: solo rides pay full
// price, larger pools are discounted up to 40%.
func DefaultDiscounts() DiscountSchedule {
	return DiscountSchedule{0, 0.20, 0.30, 0.40}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
