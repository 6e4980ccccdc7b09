package radio

import (
	"math"
	"time"
)

// earthRadiusMeters is the mean Earth radius used by Haversine.
const earthRadiusMeters = 6371000.0

// Position is a GPS fix.
type Position struct {
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Altitude  float64   `json:"altitude"`
	Accuracy  float64   `json:"accuracy"`          // meters
	Speed     *float64  `json:"speed,omitempty"`   // m/s, nil when unknown
	Bearing   *float64  `json:"bearing,omitempty"` // degrees, nil when unknown
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// Haversine returns the great-circle distance in meters between two coordinates.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	φ1 := lat1 * math.Pi / 180
	φ2 := lat2 * math.Pi / 180
	Δφ := (lat2 - lat1) * math.Pi / 180
	Δλ := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(Δφ/2)*math.Sin(Δφ/2) + math.Cos(φ1)*math.Cos(φ2)*math.Sin(Δλ/2)*math.Sin(Δλ/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// DistanceTo returns meters between p and q.
func (p Position) DistanceTo(q Position) float64 {
	return Haversine(p.Lat, p.Lon, q.Lat, q.Lon)
}
