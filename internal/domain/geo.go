package domain

import "math"

const (
	// EarthRadiusKm is the mean Earth radius used by the Haversine formula.
	EarthRadiusKm = 6371.0

	// DefaultAverageSpeedKmh is the city driving speed assumed when no road
	// routing data is available.
	DefaultAverageSpeedKmh = 30.0
)

// DistanceKm returns the great-circle distance in kilometres between two
// points. Symmetric, and zero for identical points.
func DistanceKm(a, b Location) float64 {
	dLat := degreesToRadians(b.Latitude - a.Latitude)
	dLng := degreesToRadians(b.Longitude - a.Longitude)

	rLat1 := degreesToRadians(a.Latitude)
	rLat2 := degreesToRadians(b.Latitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

// EstimateDurationMinutes converts a distance to travel minutes at the given
// average speed. This is the fallback when no routing oracle is available.
func EstimateDurationMinutes(distanceKm, avgSpeedKmh float64) float64 {
	if avgSpeedKmh <= 0 {
		avgSpeedKmh = DefaultAverageSpeedKmh
	}
	return distanceKm / avgSpeedKmh * 60
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
