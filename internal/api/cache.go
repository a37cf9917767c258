package api

import (
	"context"
	"encoding/json"
	"strings"

	"geoquery/internal/geocode"
	"geoquery/internal/logger"

	geohash "github.com/TomiHiltunen/geohash-golang"
	"github.com/redis/go-redis/v9"
)

// 中心点 geohash 精度：4 位约 20km 网格，同一城市内的请求共享缓存
const centroidPrecision = 4

// queryKey：缓存键 = 中心网格 + 折叠空白后的查询文本
// 约束：保留大小写（专有名词识别依赖首字母大写）；无中心点时使用固定网格 "-"
func queryKey(c geocode.LatLng, ok bool, q string) string {
	cell := "-"
	if ok {
		cell = geohash.Encode(c.Lat, c.Lng)
		if len(cell) > centroidPrecision {
			cell = cell[:centroidPrecision]
		}
	}
	return "query:" + cell + ":" + strings.Join(strings.Fields(q), " ")
}

func (s *Server) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	if s.Redis == nil || s.CacheTTL <= 0 {
		return nil, false
	}
	b, err := s.Redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.From(ctx).Warn("query_cache_get_error", "key", key, "err", err)
		}
		return nil, false
	}
	logger.From(ctx).Debug("query_cache_hit", "key", key)
	return b, true
}

// cacheSet：写入失败只记日志，不影响响应
func (s *Server) cacheSet(ctx context.Context, key string, v any) {
	if s.Redis == nil || s.CacheTTL <= 0 {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.Redis.Set(ctx, key, b, s.CacheTTL).Err(); err != nil {
		logger.From(ctx).Warn("query_cache_set_error", "key", key, "err", err)
	}
}
