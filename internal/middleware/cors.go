package middleware

import (
	"net/http"

	"github.com/rs/cors"

	"geoquery/internal/logger"
)

// NewCORS：跨域配置，来源列表为空时允许任意来源
// 约束：仅开放只读查询所需的方法与请求头；不携带凭据
func NewCORS(origins []string) *cors.Cors {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	methods := []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	logger.L().Debug("cors_setup", "allowed_origins", origins, "allowed_methods", methods)
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: methods,
		AllowedHeaders: []string{"Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id", "Retry-After"},
		MaxAge:         600,
	})
}
