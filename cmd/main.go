// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"geoquery/internal/api"
	"geoquery/internal/category"
	"geoquery/internal/compile"
	"geoquery/internal/config"
	"geoquery/internal/geocode"
	"geoquery/internal/ingest"
	"geoquery/internal/logger"
	"geoquery/internal/metrics"
	"geoquery/internal/middleware"
	"geoquery/internal/migrate"
	"geoquery/internal/resolve"
	"geoquery/internal/routing"
	"geoquery/internal/store"
	"geoquery/internal/utils"
	"geoquery/internal/version"
)

func main() {
	cfg := config.Load()
	// 日志初始化
	l := logger.Setup()
	l.Debug("log_init_ok", "commit", version.Commit)
	l.Debug("config_api_base", "base", cfg.APIBase)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	l.Info("db_open_ok")
	if err := db.PingContext(ctx); err != nil {
		l.Error("db_ping_error", "err", err)
	} else {
		l.Info("db_ping_ok")
	}
	if err := migrate.EnsureSchema(ctx, db); err != nil {
		l.Error("schema_error", "err", err)
		os.Exit(1)
	}
	st := store.AttachDB(db, cfg.Database.StatementTimeout)

	rc := utils.OpenRedisFromEnv()
	if rc == nil {
		l.Info("redis_disabled")
	} else if err := rc.Ping(ctx).Err(); err != nil {
		l.Error("redis_ping_error", "err", err)
	} else {
		l.Info("redis_ping_ok")
	}

	// 分类索引：未指定 CATEGORY_TAXONOMY_PATH 时使用内置分类表
	records, err := category.DefaultRecords()
	if cfg.TaxonomyPath != "" {
		records, err = category.LoadRecords(cfg.TaxonomyPath)
	}
	if err != nil {
		l.Error("taxonomy_load_error", "path", cfg.TaxonomyPath, "err", err)
		os.Exit(1)
	}
	idx := category.Build(records)
	l.Info("taxonomy_ok", "records", idx.Len())

	gc := geocode.NewCached(
		geocode.NewClient(cfg.Geocoder.URL, cfg.Geocoder.Key, &http.Client{Timeout: cfg.Geocoder.Timeout}),
		rc, cfg.Geocoder.CacheTTL)
	router := routing.NewCached(
		routing.NewClient(cfg.Routing.URL, cfg.Routing.Key, cfg.Routing.Profile, &http.Client{Timeout: cfg.Routing.Timeout}),
		time.Hour)
	resolver := resolve.New(gc, idx, resolve.Config{
		DistanceCapKm:       cfg.Resolver.DistanceCapKm,
		EnableKnownCategory: cfg.Resolver.EnableKnownCategory,
	})

	// 背景：GeoIP 库缺失不影响服务，解析器回退默认中心
	loc, err := resolve.OpenCentroidLocator(cfg.GeoIPPath)
	if err != nil {
		l.Error("geoip_open_error", "path", cfg.GeoIPPath, "err", err)
	}
	defer loc.Close()

	if cfg.Ingest.Source != "" {
		ingest.StartWeekly(ctx, st, cfg.Ingest.Source, idx, cfg.Ingest.Hour)
	}

	srv := &api.Server{
		Compiler: compile.New(resolver, idx, st, router),
		Resolver: resolver,
		Stats:    st,
		Redis:    rc,
		CacheTTL: cfg.QueryCacheTTL,
	}
	if loc != nil {
		srv.Locator = loc
	}
	base := strings.TrimRight(cfg.APIBase, "/")
	mux := http.NewServeMux()
	mux.Handle(base+"/metrics", metrics.Handler())
	mux.Handle(base+"/", http.StripPrefix(base, api.BuildRoutes(srv)))

	handler := middleware.Wrap(cfg, mux)
	handler = logger.AccessMiddleware(l)(handler)
	s := &http.Server{Addr: cfg.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.Shutdown(shutdown)
	}()
	l.Info("listening", "addr", cfg.Addr, "base", base)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("listen_error", "err", err)
		os.Exit(1)
	}
}
