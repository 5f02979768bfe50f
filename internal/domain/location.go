package domain

// Immutable geographic point in decimal degrees, with an optional
// display address.
type Location struct {
	Latitude  float64
	Longitude float64
	Address   string
}

// Coordinates are valid when latitude is within [-90, 90] and longitude
// within [-180, 180].
func (l Location) ValidCoordinates() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 &&
		l.Longitude >= -180 && l.Longitude <= 180
}

// Return coordinates as [lon, lat] for routing APIs that expect
// lon-first ordering (OSRM, ORS).
func (l Location) CoordsToList() []float64 { return []float64{l.Longitude, l.Latitude} }
