package middleware

import (
	"net"
	"net/http"
	"strings"
)

// 文档注释：获取访问者 IP（用于限流分桶与中心点推断）
// 背景：多层代理环境下，优先常见反向代理头，最后回退远端地址；限流与 GeoIP 中心点共用同一来源。
// 约束：头部存在伪造风险，部署于未经信任的代理链路时需由网关覆盖这些头。
func ClientIP(r *http.Request) string {
	h := r.Header
	if x := h.Get("x-forwarded-for"); x != "" {
		return strings.TrimSpace(strings.Split(x, ",")[0])
	}
	if x := h.Get("cf-connecting-ip"); x != "" {
		return x
	}
	if x := h.Get("x-real-ip"); x != "" {
		return x
	}
	if x := h.Get("forwarded"); x != "" {
		i := strings.Index(strings.ToLower(x), "for=")
		if i >= 0 {
			y := x[i+4:]
			if p := strings.IndexByte(y, ';'); p >= 0 {
				y = y[:p]
			}
			if p := strings.IndexByte(y, ','); p >= 0 {
				y = y[:p]
			}
			return strings.Trim(y, "\" ")
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
