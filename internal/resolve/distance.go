package resolve

import (
	"math"

	"geoquery/internal/geocode"
)

// metersPerDegree：平面近似系数，经纬度差直接换算，不做大圆修正
const metersPerDegree = 111000.0

// DefaultCentroid：美国本土几何中心
var DefaultCentroid = geocode.LatLng{Lat: 39.8283, Lng: -98.5795}

// DefaultDistanceCapKm：默认距离上限
const DefaultDistanceCapKm = 5000.0

// PlanarDistanceMeters：度数欧氏距离 × 111000
func PlanarDistanceMeters(a, b geocode.LatLng) float64 {
	return math.Hypot(a.Lat-b.Lat, a.Lng-b.Lng) * metersPerDegree
}
