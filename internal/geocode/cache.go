package geocode

import (
	"context"
	"encoding/json"
	"geoquery/internal/logger"
	"geoquery/internal/lru"
	"geoquery/internal/metrics"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cached：地理编码结果缓存包装器
// 约束：rc 非空时走 Redis（跨进程共享），否则使用进程内 LRU；只缓存成功响应，零命中同样缓存
type Cached struct {
	next Geocoder
	rc   *redis.Client
	mem  *lru.Cache[*Result]
	ttl  time.Duration
}

func NewCached(next Geocoder, rc *redis.Client, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cached{next: next, rc: rc, mem: lru.New[*Result](4096, ttl), ttl: ttl}
}

func cacheKey(text string, limit int) string {
	return "geocode:" + strconv.Itoa(limit) + ":" + strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func (c *Cached) Geocode(ctx context.Context, text string, limit int) (*Result, error) {
	key := cacheKey(text, limit)
	if r, ok := c.lookup(ctx, key); ok {
		metrics.GeocodeCacheHitsTotal.Inc()
		return r, nil
	}
	metrics.GeocodeCacheMissesTotal.Inc()
	r, err := c.next.Geocode(ctx, text, limit)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, r)
	return r, nil
}

func (c *Cached) lookup(ctx context.Context, key string) (*Result, bool) {
	if c.rc == nil {
		return c.mem.Get(key)
	}
	s, err := c.rc.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			logger.From(ctx).Debug("geocode_cache_get_error", "err", err)
		}
		return nil, false
	}
	var r Result
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil, false
	}
	return &r, true
}

func (c *Cached) store(ctx context.Context, key string, r *Result) {
	if c.rc == nil {
		c.mem.Set(key, r)
		return
	}
	b, _ := json.Marshal(r)
	if err := c.rc.Set(ctx, key, string(b), c.ttl).Err(); err != nil {
		logger.From(ctx).Debug("geocode_cache_set_error", "err", err)
	}
}
