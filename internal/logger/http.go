// 包 logger：http访问日志中间件，记录方法、路径、状态、耗时、字节数、远端地址与请求标识
package logger

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// statusWriter：包装 ResponseWriter 以捕获状态码与写出字节数
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// AccessMiddleware：生成访问日志中间件
// 约束：请求头 X-Request-Id 存在时沿用，否则生成 UUID；该值写回响应头并注入上下文
func AccessMiddleware(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := r.Header.Get("X-Request-Id")
			if rid == "" {
				rid = uuid.NewString()
			}
			w.Header().Set("X-Request-Id", rid)
			sw := &statusWriter{ResponseWriter: w, status: 200}
			start := time.Now()
			next.ServeHTTP(sw, r.WithContext(WithRequestID(r.Context(), rid)))
			dur := time.Since(start)
			l.Info("http_access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"bytes", sw.bytes,
				"duration_ms", dur.Milliseconds(),
				"ip", r.RemoteAddr,
				"request_id", rid,
			)
		})
	}
}
