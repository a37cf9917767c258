// 包 logger：统一初始化与获取日志器；通过环境变量控制日志级别与输出格式，并支持按请求附加 request_id
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// 默认日志器：进程级复用
var defaultLogger *slog.Logger

type ctxKey struct{}

// Setup：初始化默认日志器
// 约束：输出目标固定为标准错误；LOG_LEVEL 取 debug/info/warn/error，LOG_FORMAT=json 时输出 JSON
func Setup() *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT"))
	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	} else {
		h = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	}
	defaultLogger = slog.New(h)
	return defaultLogger
}

// L：获取默认日志器，未初始化时回退到 Setup
func L() *slog.Logger {
	if defaultLogger == nil {
		return Setup()
	}
	return defaultLogger
}

// WithRequestID：把请求标识写入上下文，供下游 From 读取
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// RequestID：读取上下文中的请求标识，不存在时返回空串
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxKey{}).(string); ok {
		return v
	}
	return ""
}

// From：返回携带 request_id 字段的日志器；上下文无请求标识时直接返回默认日志器
func From(ctx context.Context) *slog.Logger {
	if id := RequestID(ctx); id != "" {
		return L().With("request_id", id)
	}
	return L()
}
