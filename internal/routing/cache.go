package routing

import (
	"context"
	"geoquery/internal/lru"
	"strconv"
	"time"

	geohash "github.com/TomiHiltunen/geohash-golang"
)

// 端点 geohash 精度：7 位约 150m 网格
const endpointPrecision = 7

// Cached：以两端 geohash 为键的路线缓存
type Cached struct {
	next Router
	mem  *lru.Cache[*Response]
}

func NewCached(next Router, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cached{next: next, mem: lru.New[*Response](1024, ttl)}
}

func routeKey(fromLng, fromLat, toLng, toLat float64, n int) string {
	return cellOf(fromLat, fromLng) + ":" + cellOf(toLat, toLng) + ":" + strconv.Itoa(n)
}

func cellOf(lat, lng float64) string {
	h := geohash.Encode(lat, lng)
	if len(h) > endpointPrecision {
		h = h[:endpointPrecision]
	}
	return h
}

func (c *Cached) Route(ctx context.Context, fromLng, fromLat, toLng, toLat float64, numRoutes int) (*Response, error) {
	key := routeKey(fromLng, fromLat, toLng, toLat, numRoutes)
	if r, ok := c.mem.Get(key); ok {
		return r, nil
	}
	r, err := c.next.Route(ctx, fromLng, fromLat, toLng, toLat, numRoutes)
	if err != nil {
		return nil, err
	}
	if len(r.Paths) > 0 {
		c.mem.Set(key, r)
	}
	return r, nil
}
