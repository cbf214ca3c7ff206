// Package geo はオフィス所在判定のための距離計算を提供する。
package geo

import "math"

// EarthRadiusKM は距離計算に使う地球の半径（km）。
const EarthRadiusKM = 6371.0

// Distance は2点間の大円距離をhaversine公式で求め、kmで返す。
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKM * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Office はオフィスの位置と、オフィス内とみなす半径を表す。
type Office struct {
	Lat      float64
	Lng      float64
	RadiusKM float64
}

// DefaultOffice は設定がない場合のオフィス位置。
var DefaultOffice = Office{Lat: 40.7589, Lng: -73.9851, RadiusKM: 0.1}

// CheckResult は位置判定の結果。
type CheckResult struct {
	InOffice   bool
	DistanceKM float64
}

// Check は指定座標からオフィスまでの距離と、半径内かどうかを返す。
// 境界上（距離が半径と等しい）はオフィス内とする。
func (o Office) Check(lat, lng float64) CheckResult {
	d := Distance(lat, lng, o.Lat, o.Lng)
	return CheckResult{InOffice: d <= o.RadiusKM, DistanceKM: d}
}

// IsInOffice は指定座標がオフィスの半径内にあるかを返す。
func (o Office) IsInOffice(lat, lng float64) bool {
	return o.Check(lat, lng).InOffice
}

// ValidCoordinates は緯度・経度が有効な範囲にあるかを返す。
func ValidCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
