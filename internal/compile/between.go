package compile

import (
	"context"

	"geoquery/internal/errs"
	"geoquery/internal/resolve"
	"geoquery/internal/sqlb"

	"github.com/lib/pq"
)

// routes：两个命名地点之间的备选路线（编码折线）
func (c *Compiler) routes(ctx context.Context, start, end string) ([]string, []resolve.Entity, error) {
	named := []resolve.MatchType{resolve.NamedPlace}
	se, err := c.resolver.Resolve(ctx, start, named)
	if err != nil {
		return nil, nil, err
	}
	ee, err := c.resolver.Resolve(ctx, end, named)
	if err != nil {
		return nil, nil, err
	}
	if c.router == nil {
		return nil, nil, errs.New(errs.KindExternal, "no routing service configured")
	}
	resp, err := c.router.Route(ctx, se.Point.Lng, se.Point.Lat, ee.Point.Lng, ee.Point.Lat, MaxRoutes)
	if err != nil {
		return nil, nil, err
	}
	var lines []string
	if resp != nil {
		for _, p := range resp.Paths {
			if p.Points != "" {
				lines = append(lines, p.Points)
			}
		}
	}
	if len(lines) == 0 {
		return nil, nil, errs.New(errs.KindNoRouteFound, "no route found from %q to %q", start, end)
	}
	return lines, []resolve.Entity{se, ee}, nil
}

// withCorridors：routes → corridors（每条路线 CorridorMeters 缓冲）→ corridor（并集）
func withCorridors(q *sqlb.Select, lines []string) *sqlb.Select {
	return q.
		With("routes", sqlb.E("SELECT r.ord, ST_LineFromEncodedPolyline(r.pts, 5) AS line"+
			" FROM unnest(?::text[]) WITH ORDINALITY AS r(pts, ord)", pq.Array(lines))).
		With("corridors", sqlb.E("SELECT ord, ST_Buffer(line::geography, ?::float8)::geometry AS g FROM routes", CorridorMeters)).
		With("corridor", sqlb.E("SELECT ST_Union(g) AS g FROM corridors"))
}

// corridorSelect：走廊作为背景要素（id 为负的路线序号）
func corridorSelect() *sqlb.Select {
	return sqlb.From("corridors").Columns(
		"-corridors.ord",
		"''::text",
		"'corridor'::text",
		"'{}'::text",
		"'{}'::text[]",
		"ST_AsGeoJSON(corridors.g)",
		"json_build_object('role', '"+roleCorridor+"', 'route', corridors.ord)::text",
	)
}

// XBetweenYAndZ：起止点之间最多 MaxRoutes 条路线的走廊内、匹配 interior 的要素，走廊本身作为背景要素一并返回
func (c *Compiler) XBetweenYAndZ(ctx context.Context, interior, start, end string) (*Response, error) {
	const executor = "x_between_y_and_z"
	ie, err := c.resolver.ResolveEntity(ctx, interior)
	if err != nil {
		c.fail(ctx, executor, err)
		return nil, err
	}
	lines, ends, err := c.routes(ctx, start, end)
	if err != nil {
		c.fail(ctx, executor, err)
		return nil, err
	}
	inner := featureSelect().
		Column("json_build_object('role', 'feature')::text").
		Join("JOIN corridor ON ST_Intersects(f.geom, corridor.g)").
		Where(c.matchPredicate(ie, "f"))
	inner = rank(inner, ie, "f")
	union := sqlb.UnionAll(sqlb.Paren(inner.Expr()), sqlb.Paren(corridorSelect().Expr()))
	q := withCorridors(sqlb.FromExpr(sqlb.Wrapf("(%s) AS u", union)), lines)
	return c.run(ctx, executor, q.Expr(), append([]resolve.Entity{ie}, ends...), false)
}

// Corridor：只返回起止点之间的路线走廊（route 关系未给出沿途目标时）
func (c *Compiler) Corridor(ctx context.Context, start, end string) (*Response, error) {
	const executor = "corridor"
	lines, ends, err := c.routes(ctx, start, end)
	if err != nil {
		c.fail(ctx, executor, err)
		return nil, err
	}
	q := withCorridors(corridorSelect(), lines)
	return c.run(ctx, executor, q.Expr(), ends, true)
}
