package compile

import (
	"context"

	"geoquery/internal/resolve"
)

// RawLookup：直接返回短语匹配到的全部要素，不做几何组合
func (c *Compiler) RawLookup(ctx context.Context, term string) (*Response, error) {
	e, err := c.resolver.ResolveEntity(ctx, term)
	if err != nil {
		c.fail(ctx, "raw_lookup", err)
		return nil, err
	}
	q := rank(featureSelect().Where(c.matchPredicate(e, "f")), e, "f")
	return c.run(ctx, "raw_lookup", q.Expr(), []resolve.Entity{e}, false)
}
