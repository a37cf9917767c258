// 包 api：集中注册 HTTP API 路由以解耦主入口，每个执行器一个薄适配端点
package api

import (
	"context"
	"net/http"
	"time"

	"geoquery/internal/compile"
	"geoquery/internal/geocode"
	"geoquery/internal/resolve"
	"geoquery/internal/store"
	"geoquery/internal/version"

	"github.com/redis/go-redis/v9"
)

// Locator：客户端 IP → 地图中心（resolve.CentroidLocator 实现）
type Locator interface {
	Locate(ip string) (geocode.LatLng, bool)
}

// Stats：执行计数（store.Store 实现）
type Stats interface {
	IncrStats(ctx context.Context, executor string) error
	GetTotals(ctx context.Context) (*store.Totals, error)
}

// Server：路由依赖
// 约束：Locator、Stats、Redis 均可为空；为空时对应功能跳过
type Server struct {
	Compiler *compile.Compiler
	Resolver *resolve.Resolver
	Locator  Locator
	Stats    Stats
	Redis    *redis.Client
	CacheTTL time.Duration
}

// BuildRoutes：构建并返回 API 路由；独立 ServeMux 便于在主入口挂载到 API_BASE 前缀
func BuildRoutes(s *Server) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "commit": version.Commit})
	})
	mux.HandleFunc("/parse", s.handleParse)
	mux.HandleFunc("/resolve", s.handleResolve)
	mux.HandleFunc("/query", s.handleQuery)
	mux.HandleFunc("/lookup", s.handleLookup)
	mux.HandleFunc("/x-in-y", s.handleXInY)
	mux.HandleFunc("/near", s.handleNear)
	mux.HandleFunc("/buffer", s.handleBuffer)
	mux.HandleFunc("/area-near", s.handleAreaNear)
	mux.HandleFunc("/between", s.handleBetween)
	mux.HandleFunc("/stats", s.handleStats)
	return mux
}
