// 包 config：集中读取环境变量，给出与部署脚本一致的默认值
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr    string
	APIBase string

	Geocoder  GeocoderConfig
	Routing   RoutingConfig
	Resolver  ResolverConfig
	Database  DatabaseConfig
	RateLimit RateLimitConfig
	Ingest    IngestConfig

	TaxonomyPath  string
	GeoIPPath     string
	CORSOrigins   []string
	QueryCacheTTL time.Duration
}

type GeocoderConfig struct {
	URL      string
	Key      string
	Timeout  time.Duration
	CacheTTL time.Duration
}

type RoutingConfig struct {
	URL     string
	Key     string
	Profile string
	Timeout time.Duration
}

type ResolverConfig struct {
	DistanceCapKm       float64
	EnableKnownCategory bool
}

type DatabaseConfig struct {
	StatementTimeout time.Duration
}

type RateLimitConfig struct {
	Enabled bool
	QPS     int
}

// IngestConfig：Source 为空时不启动周期导入
type IngestConfig struct {
	Source string
	Hour   int
}

// Load：加载 .env 与 data/env/.env 后读取环境变量
// 约束：文件缺失不视为错误；非法数值回退默认值
func Load() *Config {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	return FromEnv()
}

// FromEnv：仅读取当前进程环境变量
func FromEnv() *Config {
	c := &Config{
		Addr:    getEnv("ADDR", ":8080"),
		APIBase: getEnv("API_BASE", "/api"),
		Geocoder: GeocoderConfig{
			URL:      getEnv("GEOCODER_URL", "http://localhost:4000/v1/search"),
			Key:      os.Getenv("GEOCODER_KEY"),
			Timeout:  time.Duration(getInt("GEOCODER_TIMEOUT_MS", 4000)) * time.Millisecond,
			CacheTTL: time.Duration(getInt("GEOCODE_CACHE_TTL_S", 86400)) * time.Second,
		},
		Routing: RoutingConfig{
			URL:     getEnv("ROUTING_URL", "http://localhost:8989/route"),
			Key:     os.Getenv("ROUTING_KEY"),
			Profile: getEnv("ROUTING_PROFILE", "car"),
			Timeout: time.Duration(getInt("ROUTING_TIMEOUT_MS", 8000)) * time.Millisecond,
		},
		Resolver: ResolverConfig{
			DistanceCapKm:       getFloat("RESOLVER_DISTANCE_CAP_KM", 5000),
			EnableKnownCategory: os.Getenv("RESOLVER_KNOWN_CATEGORY") == "true",
		},
		Database: DatabaseConfig{
			StatementTimeout: time.Duration(getInt("PG_STATEMENT_TIMEOUT_MS", 15000)) * time.Millisecond,
		},
		RateLimit: RateLimitConfig{
			Enabled: os.Getenv("RATE_LIMIT_ENABLED") == "true",
			QPS:     getInt("RATE_LIMIT_QPS", 50),
		},
		Ingest: IngestConfig{
			Source: os.Getenv("INGEST_SRC"),
			Hour:   getInt("INGEST_HOUR", 3),
		},
		TaxonomyPath:  os.Getenv("CATEGORY_TAXONOMY_PATH"),
		GeoIPPath:     os.Getenv("GEOIP_PATH"),
		QueryCacheTTL: time.Duration(getInt("QUERY_CACHE_TTL_S", 300)) * time.Second,
	}
	if s := os.Getenv("CORS_ORIGINS"); s != "" {
		for _, o := range strings.Split(s, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.CORSOrigins = append(c.CORSOrigins, o)
			}
		}
	}
	return c
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return def
}
