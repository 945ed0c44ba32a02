package geo

import (
	"math"
)

// EarthRadiusKm is the mean Earth radius used by the Haversine formula.
const EarthRadiusKm = 6371.0

// minCosLat floors the cosine of the latitude when deriving longitude deltas,
// so bounding boxes computed near the poles never divide by zero. Boxes built
// with a floored cosine are oversized; callers must always re-check candidates
// with Distance.
const minCosLat = 1e-6

// Point is a geographic coordinate in floating point degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point is a real coordinate within the
// latitude/longitude domain.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// BoundingBox is a rectangular latitude/longitude range used to cheaply
// pre-filter candidates before exact distance computation.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// Distance computes the great-circle distance between two points in
// kilometers using the Haversine formula. Always finite and >= 0;
// symmetric in its arguments.
func Distance(a, b Point) float64 {
	lat1 := degToRad(a.Lat)
	lat2 := degToRad(b.Lat)
	dLat := degToRad(b.Lat - a.Lat)
	dLng := degToRad(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

// BoxAround returns the bounding box enclosing the disk of radiusKm around
// center. Latitude bounds are clamped to [-90, 90]. Near the poles the
// longitude delta blows up; the cosine is floored at minCosLat and the
// longitude bounds widen to the full [-180, 180] range, making them advisory.
func BoxAround(center Point, radiusKm float64) BoundingBox {
	latDelta := (radiusKm / EarthRadiusKm) * (180 / math.Pi)

	cosLat := math.Cos(degToRad(center.Lat))
	if math.Abs(cosLat) < minCosLat {
		cosLat = minCosLat
	}
	lngDelta := latDelta / math.Abs(cosLat)

	box := BoundingBox{
		MinLat: center.Lat - latDelta,
		MaxLat: center.Lat + latDelta,
		MinLng: center.Lng - lngDelta,
		MaxLng: center.Lng + lngDelta,
	}

	if box.MinLat < -90 {
		box.MinLat = -90
	}
	if box.MaxLat > 90 {
		box.MaxLat = 90
	}
	// A delta of 180 or more covers every longitude; widen rather than wrap.
	if lngDelta >= 180 {
		box.MinLng = -180
		box.MaxLng = 180
	}

	return box
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180.0
}
