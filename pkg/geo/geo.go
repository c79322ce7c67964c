// Package geo 提供签到地理围栏所需的球面距离计算。
package geo

import "math"

// EarthRadiusM 地球平均半径（米）
const EarthRadiusM = 6371000.0

// Point 经纬度坐标（度）
type Point struct {
	Lat float64
	Lon float64
}

// Distance 使用 Haversine 公式计算两点间大圆距离（米）
func Distance(a, b Point) float64 {
	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	if h > 1 {
		h = 1
	}
	return 2 * EarthRadiusM * math.Asin(math.Sqrt(h))
}

// Within 判断 p 是否位于以 center 为圆心、radius 为半径的围栏内
// 恰好落在边界上视为在范围内
func Within(center, p Point, radius float64) (float64, bool) {
	d := Distance(center, p)
	return d, d <= radius
}

// Valid 校验经纬度取值范围
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180 &&
		!math.IsNaN(p.Lat) && !math.IsNaN(p.Lon)
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
