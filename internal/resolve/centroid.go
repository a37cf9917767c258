package resolve

import (
	"net"

	"geoquery/internal/geocode"
	"geoquery/internal/logger"

	"github.com/oschwald/geoip2-golang"
)

// CentroidLocator：由客户端 IP 推断地图中心（GeoLite2-City 库）
// 约束：库未加载、IP 非法或无坐标时返回 false，调用方回退到 DefaultCentroid
type CentroidLocator struct {
	db *geoip2.Reader
}

// OpenCentroidLocator：path 为空时返回 nil 定位器（Locate 恒为未命中）
func OpenCentroidLocator(path string) (*CentroidLocator, error) {
	if path == "" {
		return nil, nil
	}
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &CentroidLocator{db: db}, nil
}

func (l *CentroidLocator) Locate(ip string) (geocode.LatLng, bool) {
	if l == nil || l.db == nil {
		return geocode.LatLng{}, false
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return geocode.LatLng{}, false
	}
	rec, err := l.db.City(parsed)
	if err != nil {
		logger.L().Debug("geoip_lookup_error", "ip", ip, "err", err)
		return geocode.LatLng{}, false
	}
	if rec.Location.Latitude == 0 && rec.Location.Longitude == 0 {
		return geocode.LatLng{}, false
	}
	return geocode.LatLng{Lat: rec.Location.Latitude, Lng: rec.Location.Longitude}, true
}

func (l *CentroidLocator) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}
