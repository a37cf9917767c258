package store

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"geoquery/internal/logger"

	"github.com/lib/pq"
	"github.com/paulmach/orb/geojson"
)

const upsertFeatureSQL = `INSERT INTO features(osm_id, name, tags, categories, geom, search)
        VALUES($1, $2, $3::jsonb, $4, ST_SetSRID(ST_GeomFromGeoJSON($5), 4326),
               to_tsvector('english', coalesce($2, '') || ' ' || $6))
        ON CONFLICT (osm_id) DO UPDATE SET name=EXCLUDED.name, tags=EXCLUDED.tags,
            categories=EXCLUDED.categories, geom=EXCLUDED.geom, search=EXCLUDED.search, updated_at=now()`

// UpsertFeatures：批量写入要素（按 osm_id 去重覆盖），单事务提交
// 约束：geometry 为空的记录跳过；返回实际写入条数
func (s *Store) UpsertFeatures(ctx context.Context, fs []Feature) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, upsertFeatureSQL)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	n := 0
	for _, f := range fs {
		if f.Geometry == nil || f.OSMID == "" {
			continue
		}
		gj, err := geojson.NewGeometry(f.Geometry).MarshalJSON()
		if err != nil {
			return n, err
		}
		tags, err := json.Marshal(f.Tags)
		if err != nil {
			return n, err
		}
		if _, err := stmt.ExecContext(ctx, f.OSMID, f.Name, string(tags), pq.Array(f.Categories), string(gj), searchText(f.Tags)); err != nil {
			return n, err
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	logger.L().Debug("features_upserted", "count", n)
	return n, nil
}

// searchText：全文检索附加文本，取标签值（下划线转空格，跳过 yes/no）
func searchText(tags map[string]string) string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var parts []string
	for _, k := range keys {
		v := tags[k]
		if v == "" || v == "yes" || v == "no" {
			continue
		}
		parts = append(parts, strings.ReplaceAll(v, "_", " "))
	}
	return strings.Join(parts, " ")
}

// IncrStats：成功执行后递增总计与当日计数
func (s *Store) IncrStats(ctx context.Context, executor string) error {
	_, _ = s.db.ExecContext(ctx, "UPDATE query_stats_total SET total_queries=total_queries+1 WHERE id=1")
	_, _ = s.db.ExecContext(ctx, `INSERT INTO query_stats_daily(day, executor, queries) VALUES(current_date, $1, 1)
        ON CONFLICT (day, executor) DO UPDATE SET queries=query_stats_daily.queries+1`, executor)
	logger.L().Debug("stats_incr", "executor", executor)
	return nil
}

// Totals：累计与当日执行次数
type Totals struct {
	Total int64            `json:"total"`
	Today int64            `json:"today"`
	ByExe map[string]int64 `json:"by_executor"`
}

// GetTotals：读取累计、当日总数及当日各执行器次数
func (s *Store) GetTotals(ctx context.Context) (*Totals, error) {
	t := Totals{ByExe: map[string]int64{}}
	row := s.db.QueryRowContext(ctx, "SELECT total_queries FROM query_stats_total WHERE id=1")
	_ = row.Scan(&t.Total)
	rows, err := s.db.QueryContext(ctx, "SELECT executor, queries FROM query_stats_daily WHERE day=current_date")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var exe string
		var n int64
		if err := rows.Scan(&exe, &n); err != nil {
			return nil, err
		}
		t.ByExe[exe] = n
		t.Today += n
	}
	logger.L().Debug("stats_totals", "total", t.Total, "today", t.Today)
	return &t, rows.Err()
}
