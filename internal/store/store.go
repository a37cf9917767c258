// 包 store：PostGIS 要素表的数据访问层，负责执行编译好的空间语句并解码为 GeoJSON 几何
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"geoquery/internal/errs"
	"geoquery/internal/logger"
	"geoquery/internal/metrics"
	"geoquery/internal/sqlb"

	"github.com/lib/pq"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// 查询取消（statement_timeout 触发时的 SQLSTATE）
const codeQueryCanceled = "57014"

// FeatureColumns：QueryFeatures 约定的列顺序（别名 f 指向 features 表）
// 背景：执行器拼出的语句只需替换 FROM/WHERE，结果列统一由此解码
var FeatureColumns = []string{
	"f.id",
	"f.osm_id",
	"f.name",
	"f.tags::text",
	"f.categories",
	"ST_AsGeoJSON(f.geom)",
}

// Feature：一条要素记录；Props 为执行器附加的计算列（面积、排名、角色等）
type Feature struct {
	ID         int64
	OSMID      string
	Name       string
	Tags       map[string]string
	Categories []string
	Geometry   orb.Geometry
	Props      map[string]any
}

// Store：数据库访问入口，持有连接池与语句时限
type Store struct {
	db      *sql.DB
	timeout time.Duration
}

func AttachDB(db *sql.DB, statementTimeout time.Duration) *Store {
	return &Store{db: db, timeout: statementTimeout}
}

// Close：关闭数据库连接
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// QueryFeatures：在只读事务中执行语句，结果列需依次为
// id, osm_id, name, tags(json 文本), categories(text[]), geojson 文本 [, props(json 文本)]
// 约束：事务内 set_config 设置 statement_timeout；超时映射为 statement_timeout 错误，不重试
func (s *Store) QueryFeatures(ctx context.Context, q sqlb.Expr) ([]Feature, error) {
	query, args, err := sqlb.Build(q)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "compose spatial statement")
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, mapError(err)
	}
	defer tx.Rollback()
	if s.timeout > 0 {
		ms := strconv.FormatInt(s.timeout.Milliseconds(), 10)
		if _, err := tx.ExecContext(ctx, "SELECT set_config('statement_timeout', $1, true)", ms); err != nil {
			return nil, mapError(err)
		}
	}
	logger.From(ctx).Debug("db_query_begin", "args", len(args))
	start := time.Now()
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, mapError(err)
	}
	var out []Feature
	for rows.Next() {
		f, err := scanFeature(rows, len(cols))
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	logger.From(ctx).Debug("db_query_done", "rows", len(out), "ms", time.Since(start).Milliseconds())
	return out, nil
}

func scanFeature(rows *sql.Rows, ncol int) (Feature, error) {
	var (
		f       Feature
		osmID   sql.NullString
		name    sql.NullString
		tags    sql.NullString
		cats    pq.StringArray
		geom    sql.NullString
		props   sql.NullString
		targets = []any{&f.ID, &osmID, &name, &tags, &cats, &geom}
	)
	if ncol > len(targets) {
		targets = append(targets, &props)
	}
	if err := rows.Scan(targets...); err != nil {
		return Feature{}, mapError(err)
	}
	f.OSMID, f.Name, f.Categories = osmID.String, name.String, []string(cats)
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &f.Tags); err != nil {
			return Feature{}, errs.Wrap(errs.KindInternal, err, "decode tags of feature %d", f.ID)
		}
	}
	if geom.Valid && geom.String != "" {
		g, err := geojson.UnmarshalGeometry([]byte(geom.String))
		if err != nil {
			return Feature{}, errs.Wrap(errs.KindInternal, err, "decode geometry of feature %d", f.ID)
		}
		f.Geometry = g.Geometry()
	}
	if props.Valid && props.String != "" {
		if err := json.Unmarshal([]byte(props.String), &f.Props); err != nil {
			return Feature{}, errs.Wrap(errs.KindInternal, err, "decode properties of feature %d", f.ID)
		}
	}
	return f, nil
}

// mapError：Postgres 查询取消 → statement_timeout；其余 → external
func mapError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == codeQueryCanceled {
		metrics.StatementTimeoutsTotal.Inc()
		return errs.Wrap(errs.KindStatementTimeout, err, "spatial statement exceeded its time budget")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		metrics.StatementTimeoutsTotal.Inc()
		return errs.Wrap(errs.KindStatementTimeout, err, "spatial statement cancelled by deadline")
	}
	return errs.Wrap(errs.KindExternal, err, "spatial database")
}
