package migrate

import (
	"context"
	"database/sql"

	"geoquery/internal/logger"
)

// Statements：建表与索引语句，按顺序执行
var Statements = []string{
	`CREATE EXTENSION IF NOT EXISTS postgis`,
	`CREATE EXTENSION IF NOT EXISTS pg_trgm`,
	`CREATE TABLE IF NOT EXISTS features (
            id BIGSERIAL PRIMARY KEY,
            osm_id TEXT NOT NULL,
            name TEXT,
            tags JSONB NOT NULL DEFAULT '{}'::jsonb,
            categories TEXT[] NOT NULL DEFAULT '{}',
            geom geometry(Geometry, 4326) NOT NULL,
            search TSVECTOR,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_features_osm_id ON features(osm_id)`,
	`CREATE INDEX IF NOT EXISTS idx_features_geom ON features USING GIST (geom)`,
	`CREATE INDEX IF NOT EXISTS idx_features_geog ON features USING GIST ((geom::geography))`,
	`CREATE INDEX IF NOT EXISTS idx_features_categories ON features USING GIN (categories)`,
	`CREATE INDEX IF NOT EXISTS idx_features_tags ON features USING GIN (tags jsonb_path_ops)`,
	`CREATE INDEX IF NOT EXISTS idx_features_search ON features USING GIN (search)`,
	`CREATE INDEX IF NOT EXISTS idx_features_name_trgm ON features USING GIN (name gin_trgm_ops)`,
	`CREATE TABLE IF NOT EXISTS query_stats_total (
            id INT PRIMARY KEY,
            total_queries BIGINT NOT NULL DEFAULT 0
        )`,
	`CREATE TABLE IF NOT EXISTS query_stats_daily (
            day DATE NOT NULL,
            executor TEXT NOT NULL,
            queries BIGINT NOT NULL DEFAULT 0,
            PRIMARY KEY (day, executor)
        )`,
	`INSERT INTO query_stats_total(id, total_queries)
         VALUES(1, 0)
         ON CONFLICT (id) DO NOTHING`,
}

// 背景：首次运行自动创建扩展、要素表与索引，保障后续导入与查询
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；任一语句失败立即返回
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, s := range Statements {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
