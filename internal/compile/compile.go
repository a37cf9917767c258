// 包 compile：把解析后的实体与槽位编译为 PostGIS 语句并执行，每类关系一个执行器
package compile

import (
	"context"
	"time"

	"geoquery/internal/category"
	"geoquery/internal/errs"
	"geoquery/internal/logger"
	"geoquery/internal/metrics"
	"geoquery/internal/resolve"
	"geoquery/internal/routing"
	"geoquery/internal/sqlb"
	"geoquery/internal/store"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
)

const (
	// MinConstraints、MaxConstraints：area_near_constraint 接受的约束对数范围
	MinConstraints = 2
	MaxConstraints = 16
	// CorridorMeters：路线走廊缓冲宽度
	CorridorMeters = 200.0
	// MaxRoutes：向路径服务请求的备选路线数
	MaxRoutes = 3
	// FuzzyLimit：全文检索结果上限
	FuzzyLimit = 100
	// similarityFloor：三元组相似度下限
	similarityFloor = 0.3
)

// FeatureSource：执行编译好的语句并返回要素行（store.Store 实现；测试用假实现捕获语句）
type FeatureSource interface {
	QueryFeatures(ctx context.Context, q sqlb.Expr) ([]store.Feature, error)
}

// Response：执行器输出，返回后不再修改
type Response struct {
	Geometry *geojson.FeatureCollection `json:"geometry"`
	Entities []resolve.Entity           `json:"entities"`
}

// Compiler：执行器集合
// 约束：无请求间共享可变状态；解析器、分类索引只读
type Compiler struct {
	resolver *resolve.Resolver
	index    *category.Index
	src      FeatureSource
	router   routing.Router
}

// New：index 可为 nil（类别谓词只按 categories 列匹配）；router 为 nil 时路线类执行器返回 external 错误
func New(r *resolve.Resolver, idx *category.Index, src FeatureSource, router routing.Router) *Compiler {
	return &Compiler{resolver: r, index: idx, src: src, router: router}
}

// run：执行语句并组装响应
// 约束：除背景要素（路线走廊）外无结果时返回 empty_result；错误原样向上传播，不重试
func (c *Compiler) run(ctx context.Context, executor string, q sqlb.Expr, entities []resolve.Entity, backgroundOnly bool) (*Response, error) {
	execID := uuid.NewString()
	log := logger.From(ctx).With("executor", executor, "exec_id", execID)
	log.Debug("compile_exec_begin", "sql", q.String())
	start := time.Now()
	fs, err := c.src.QueryFeatures(ctx, q)
	metrics.QueryDurationMs.WithLabelValues(executor).Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		c.fail(ctx, executor, err)
		return nil, err
	}
	primary := 0
	for _, f := range fs {
		if !isBackground(f) {
			primary++
		}
	}
	if primary == 0 && !(backgroundOnly && len(fs) > 0) {
		err := errs.New(errs.KindEmptyResult, "no results found")
		c.fail(ctx, executor, err)
		return nil, err
	}
	metrics.QueriesTotal.WithLabelValues(executor, "ok").Inc()
	log.Info("compile_exec", "rows", len(fs), "ms", time.Since(start).Milliseconds())
	return &Response{Geometry: toCollection(fs), Entities: entities}, nil
}

// fail：记录执行器失败（含解析失败）
func (c *Compiler) fail(ctx context.Context, executor string, err error) {
	metrics.QueriesTotal.WithLabelValues(executor, string(errs.KindOf(err))).Inc()
	logger.From(ctx).Debug("compile_exec_fail", "executor", executor, "kind", errs.KindOf(err), "err", err)
}

func isBackground(f store.Feature) bool {
	role, _ := f.Props["role"].(string)
	return role == roleCorridor
}

// toCollection：要素行 → GeoJSON 要素集合
func toCollection(fs []store.Feature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range fs {
		gf := geojson.NewFeature(f.Geometry)
		gf.ID = f.ID
		gf.Properties["id"] = f.ID
		if f.OSMID != "" {
			gf.Properties["osm_id"] = f.OSMID
		}
		if f.Name != "" {
			gf.Properties["name"] = f.Name
		}
		if len(f.Tags) > 0 {
			gf.Properties["tags"] = f.Tags
		}
		if len(f.Categories) > 0 {
			gf.Properties["categories"] = f.Categories
		}
		for k, v := range f.Props {
			gf.Properties[k] = v
		}
		fc.Append(gf)
	}
	return fc
}
