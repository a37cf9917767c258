package compile

import (
	"context"

	"geoquery/internal/errs"
	"geoquery/internal/logger"
	"geoquery/internal/parse"
	"geoquery/internal/resolve"
	"geoquery/internal/sqlb"
)

// Near：subject 要素中（不）在 object 任一要素 meters 米以内的部分
func (c *Compiler) Near(ctx context.Context, subject, object string, meters float64, negate bool) (*Response, error) {
	executor := "near"
	if negate {
		executor = "not_near"
	}
	se, err := c.resolver.ResolveEntity(ctx, subject)
	if err != nil {
		c.fail(ctx, executor, err)
		return nil, err
	}
	oe, err := c.resolver.ResolveEntity(ctx, object)
	if err != nil {
		c.fail(ctx, executor, err)
		return nil, err
	}
	near := sqlb.From("features o").
		Columns("1").
		Where(c.matchPredicate(oe, "o")).
		Where(sqlb.E("ST_DWithin(f.geom::geography, o.geom::geography, ?::float8)", meters))
	pred := sqlb.Wrapf("EXISTS (%s)", near.Expr())
	if negate {
		pred = sqlb.Not(pred)
	}
	q := rank(featureSelect().Where(c.matchPredicate(se, "f")).Where(pred), se, "f")
	return c.run(ctx, executor, q.Expr(), []resolve.Entity{se, oe}, false)
}

// Buffer：object 全部要素 meters 米缓冲的并集，输出一个合成要素
func (c *Compiler) Buffer(ctx context.Context, object string, meters float64) (*Response, error) {
	const executor = "buffer"
	oe, err := c.resolver.ResolveEntity(ctx, object)
	if err != nil {
		c.fail(ctx, executor, err)
		return nil, err
	}
	body := sqlb.From("features f").
		Column("ST_Union(ST_Buffer(f.geom::geography, ?::float8)::geometry) AS g", meters).
		Where(c.matchPredicate(oe, "f"))
	q := sqlb.From("b").
		With("b", body.Expr()).
		Columns(syntheticColumns("buffer", "b.g")...).
		Where(sqlb.E("b.g IS NOT NULL"))
	return c.run(ctx, executor, q.Expr(), []resolve.Entity{oe}, false)
}

// Execute：按关系种类分派到执行器
// 约束：时间类关系（within/outside_time_of、isochrone）返回 unsupported_time_constraint
func (c *Compiler) Execute(ctx context.Context, rel parse.Relation) (*Response, error) {
	text := func(p *parse.Place) string {
		if p == nil {
			return ""
		}
		return p.Text()
	}
	meters := parse.NearDefaultMeters
	if rel.Distance != nil {
		meters = rel.Distance.Meters
	}
	switch rel.Kind {
	case parse.KindCoveredBy:
		return c.XInY(ctx, text(rel.Subject), text(rel.Object))
	case parse.KindDisjoint:
		return c.XNotInY(ctx, text(rel.Subject), text(rel.Object))
	case parse.KindNear, parse.KindWithinDistanceOf:
		return c.Near(ctx, text(rel.Subject), text(rel.Object), meters, false)
	case parse.KindNotNear, parse.KindOutsideDistanceOf:
		return c.Near(ctx, text(rel.Subject), text(rel.Object), meters, true)
	case parse.KindBuffer:
		return c.Buffer(ctx, text(rel.Object), meters)
	case parse.KindRoute:
		if rel.Along != nil {
			return c.XBetweenYAndZ(ctx, rel.Along.Text(), text(rel.Start), text(rel.End))
		}
		return c.Corridor(ctx, text(rel.Start), text(rel.End))
	case parse.KindSearch:
		return c.RawLookup(ctx, text(rel.Subject))
	case parse.KindWithinTimeOf, parse.KindOutsideTimeOf, parse.KindIsochrone:
		err := errs.New(errs.KindUnsupportedTime, "%s relations are not supported", rel.Kind)
		c.fail(ctx, string(rel.Kind), err)
		return nil, err
	default:
		return nil, errs.New(errs.KindValidation, "unknown relation %q", rel.Kind)
	}
}

// QueryResult：端到端查询的解析结果与执行结果
type QueryResult struct {
	Parse  parse.Result `json:"parse"`
	Result *Response    `json:"result"`
}

// Query：模式策略解析，失败时回退到正则策略，再分派执行
func (c *Compiler) Query(ctx context.Context, text string) (*QueryResult, error) {
	res, err := parse.Parse(text)
	if err != nil {
		if !errs.Is(err, errs.KindQueryParse) {
			return nil, err
		}
		logger.From(ctx).Debug("parse_fallback_regex", "text", text, "err", err)
		if res, err = parse.ParseRegex(text); err != nil {
			return nil, err
		}
	}
	out, err := c.Execute(ctx, res.Relation)
	if err != nil {
		return nil, err
	}
	return &QueryResult{Parse: res, Result: out}, nil
}
