package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"geoquery/internal/config"
	"geoquery/internal/logger"
	"geoquery/internal/metrics"
)

// 文档注释：按访问者 IP 分桶的令牌桶限流
// 背景：空间语句代价高，单个客户端的突发请求可能占满连接池；按 IP 建立独立限速器，互不影响。
// 约束：不做排队，超限直接返回 429；空闲限速器按分钟清理。
type RateLimiter struct {
	qps     int
	clients map[string]*visitor
	mu      sync.Mutex
	now     func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const visitorIdle = 3 * time.Minute

func NewRateLimiter(qps int) *RateLimiter {
	if qps <= 0 {
		qps = 50
	}
	return &RateLimiter{qps: qps, clients: make(map[string]*visitor), now: time.Now}
}

func (rl *RateLimiter) limiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	v, ok := rl.clients[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(rl.qps), rl.qps)}
		rl.clients[ip] = v
	}
	v.lastSeen = rl.now()
	return v.limiter
}

// sweep：移除空闲超过 visitorIdle 的访问者
func (rl *RateLimiter) sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	n := 0
	for ip, v := range rl.clients {
		if rl.now().Sub(v.lastSeen) > visitorIdle {
			delete(rl.clients, ip)
			n++
		}
	}
	return n
}

func (rl *RateLimiter) cleanup() {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for range t.C {
		if n := rl.sweep(); n > 0 {
			logger.L().Debug("ratelimit_sweep", "removed", n)
		}
	}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)
		if !rl.limiter(ip).Allow() {
			metrics.RateLimitedTotal.Inc()
			logger.From(r.Context()).Warn("ratelimit_reject", "ip", ip, "path", r.URL.Path, "qps", rl.qps)
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Wrap：按配置组装入口中间件（CORS 在外层，限流在内层）
// 约束：限流未开启时仅挂载 CORS；预检请求不计入限流配额
func Wrap(cfg *config.Config, next http.Handler) http.Handler {
	h := next
	if cfg.RateLimit.Enabled {
		rl := NewRateLimiter(cfg.RateLimit.QPS)
		go rl.cleanup()
		h = rl.Middleware(h)
		logger.L().Info("ratelimit_enabled", "qps", rl.qps)
	}
	return NewCORS(cfg.CORSOrigins).Handler(h)
}
