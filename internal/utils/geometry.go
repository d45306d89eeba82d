package utils

import "math"

const (
	// RadiusOfEarthInMeters is the spherical radius the stop list has always
	// been ranked with. Changing it changes the displayed distances.
	RadiusOfEarthInMeters = 6378137.0
)

func deg2rad(deg float64) float64 {
	return deg * math.Pi / 180
}

// Distance returns the great-circle distance in meters between two points
// using the spherical law of cosines.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	cosAngle := math.Sin(deg2rad(lat2))*math.Sin(deg2rad(lat1)) +
		math.Cos(deg2rad(lat2))*math.Cos(deg2rad(lat1))*math.Cos(deg2rad(lon1)-deg2rad(lon2))

	// Rounding can push identical points just past 1, where Acos is NaN.
	if cosAngle > 1 {
		cosAngle = 1
	} else if cosAngle < -1 {
		cosAngle = -1
	}

	return math.Acos(cosAngle) * RadiusOfEarthInMeters
}

// RoundDistance rounds meters to whole meters, then to the nearest multiple of
// granularity. Granularity is floored; anything below 1 means 1.
func RoundDistance(meters, granularity float64) int {
	step := math.Floor(granularity)
	if step < 1 || math.IsNaN(step) {
		step = 1
	}
	whole := math.Round(meters)
	return int(math.Floor(math.Round(whole/step) * step))
}

// RoundedDistance combines Distance and RoundDistance.
func RoundedDistance(lat1, lon1, lat2, lon2, granularity float64) int {
	return RoundDistance(Distance(lat1, lon1, lat2, lon2), granularity)
}

// IsValidLatLon reports whether the pair is a usable WGS84 coordinate.
func IsValidLatLon(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
