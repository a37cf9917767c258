// 离线导入入口：把 OSM 导出的 GeoJSON 写入要素表
// 用法：feature-ingest <文件路径或 URL>；未给参数时读取 INGEST_SRC
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"geoquery/internal/category"
	"geoquery/internal/config"
	"geoquery/internal/ingest"
	"geoquery/internal/logger"
	"geoquery/internal/migrate"
	"geoquery/internal/store"
	"geoquery/internal/utils"
)

func main() {
	cfg := config.Load()
	l := logger.Setup()
	src := cfg.Ingest.Source
	if len(os.Args) > 1 {
		src = os.Args[1]
	}
	if src == "" {
		l.Error("ingest_no_source", "hint", "pass a path or URL, or set INGEST_SRC")
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := migrate.EnsureSchema(ctx, db); err != nil {
		l.Error("schema_error", "err", err)
		os.Exit(1)
	}

	records, err := category.DefaultRecords()
	if cfg.TaxonomyPath != "" {
		records, err = category.LoadRecords(cfg.TaxonomyPath)
	}
	if err != nil {
		l.Error("taxonomy_load_error", "path", cfg.TaxonomyPath, "err", err)
		os.Exit(1)
	}

	st := store.AttachDB(db, cfg.Database.StatementTimeout)
	n, err := ingest.FetchAndImport(ctx, st, src, category.Build(records))
	if err != nil {
		l.Error("ingest_error", "err", err, "imported", n)
		os.Exit(1)
	}
	l.Info("ingest_ok", "imported", n)
}
