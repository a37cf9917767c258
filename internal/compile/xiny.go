package compile

import (
	"context"

	"geoquery/internal/resolve"
	"geoquery/internal/sqlb"

	"github.com/lib/pq"
)

// haystackCTE：地名标识命中要素中面积最大的面（行政区/边界）
func haystackCTE(he resolve.Entity) sqlb.Expr {
	return sqlb.From("features h").
		Columns("h.geom").
		Where(sqlb.E("h.osm_id = ANY(?)", pq.Array(he.ReferentIDs))).
		Where(sqlb.E("ST_GeometryType(h.geom) IN ('ST_Polygon', 'ST_MultiPolygon')")).
		OrderBy("ST_Area(h.geom::geography) DESC").
		Limit(1).
		Expr()
}

// XInY：needle 允许类别/模糊解析，haystack 只接受命名地点；返回被 haystack 最大面包含的 needle 要素
func (c *Compiler) XInY(ctx context.Context, needle, haystack string) (*Response, error) {
	return c.containment(ctx, "x_in_y", needle, haystack, false)
}

// XNotInY：needle 要素中不被 haystack 最大面包含的部分（disjoint 关系）
func (c *Compiler) XNotInY(ctx context.Context, needle, haystack string) (*Response, error) {
	return c.containment(ctx, "x_not_in_y", needle, haystack, true)
}

func (c *Compiler) containment(ctx context.Context, executor, needle, haystack string, negate bool) (*Response, error) {
	ne, err := c.resolver.ResolveEntity(ctx, needle)
	if err != nil {
		c.fail(ctx, executor, err)
		return nil, err
	}
	he, err := c.resolver.Resolve(ctx, haystack, []resolve.MatchType{resolve.NamedPlace})
	if err != nil {
		c.fail(ctx, executor, err)
		return nil, err
	}
	on := "JOIN hay ON ST_CoveredBy(f.geom, hay.geom)"
	if negate {
		on = "JOIN hay ON NOT ST_CoveredBy(f.geom, hay.geom)"
	}
	q := featureSelect().
		With("hay", haystackCTE(he)).
		Join(on).
		Where(c.matchPredicate(ne, "f"))
	q = rank(q, ne, "f")
	return c.run(ctx, executor, q.Expr(), []resolve.Entity{ne, he}, false)
}
