package compile

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"geoquery/internal/errs"
	"geoquery/internal/parse"
	"geoquery/internal/resolve"
	"geoquery/internal/sqlb"
)

const (
	placeKeyPrefix    = "named_place_or_amenity_"
	distanceKeyPrefix = "distance_or_time_"
)

// AreaConstraint：一个“距离某物不超过 d 米”的约束
type AreaConstraint struct {
	Entity         resolve.Entity `json:"entity"`
	DistanceMeters float64        `json:"distance_in_meters"`
}

type pair struct {
	place  string
	meters float64
}

// validatePairs：参数须为 (地点, 距离) 交替排列
// 约束：全部校验在任何解析与查询之前完成；时间约束一律拒绝
func validatePairs(args []string) ([]pair, error) {
	if len(args) == 0 || len(args)%2 != 0 {
		return nil, errs.New(errs.KindArgumentCountMismatch,
			"expected interleaved place/distance pairs, got %d arguments", len(args))
	}
	n := len(args) / 2
	if n < MinConstraints {
		return nil, errs.New(errs.KindArgumentCountMismatch,
			"%d constraint given, at least %d are required", n, MinConstraints)
	}
	if n > MaxConstraints {
		return nil, errs.New(errs.KindTooManyConstraints,
			"%d constraints given, at most %d are supported", n, MaxConstraints)
	}
	out := make([]pair, 0, n)
	for i := 0; i < n; i++ {
		place, token := strings.TrimSpace(args[2*i]), strings.TrimSpace(args[2*i+1])
		if place == "" {
			return nil, errs.New(errs.KindValidation, "constraint %d has an empty place", i)
		}
		if parse.IsDuration(token) {
			return nil, errs.New(errs.KindUnsupportedTime,
				"constraint %d (%q): time-based constraint %q is not supported", i, place, token)
		}
		d, err := parse.ParseDistance(token)
		if err != nil {
			return nil, errs.Wrap(errs.KindQueryParse, err, "constraint %d (%q)", i, place)
		}
		out = append(out, pair{place: place, meters: d.Meters})
	}
	return out, nil
}

// AreaNearConstraint：同时满足每个 (地点, 距离) 约束的区域
// args 形如 "San Francisco", "25 mi", "Antioch CA", "25 mi"
func (c *Compiler) AreaNearConstraint(ctx context.Context, args []string) (*Response, error) {
	const executor = "area_near_constraint"
	pairs, err := validatePairs(args)
	if err != nil {
		c.fail(ctx, executor, err)
		return nil, err
	}
	cs := make([]AreaConstraint, 0, len(pairs))
	entities := make([]resolve.Entity, 0, len(pairs))
	for i, p := range pairs {
		e, err := c.resolver.ResolveEntity(ctx, p.place)
		if err != nil {
			err = errs.Wrap(errs.KindOf(err), err, "constraint %d (%q)", i, p.place)
			c.fail(ctx, executor, err)
			return nil, err
		}
		cs = append(cs, AreaConstraint{Entity: e, DistanceMeters: p.meters})
		entities = append(entities, e)
	}
	return c.run(ctx, executor, c.areaStatement(cs), entities, false)
}

// AreaNearConstraintMap：按位置命名的键 named_place_or_amenity_<i> / distance_or_time_<i>
func (c *Compiler) AreaNearConstraintMap(ctx context.Context, m map[string]string) (*Response, error) {
	args, err := pairsFromKeys(m)
	if err != nil {
		c.fail(ctx, "area_near_constraint", err)
		return nil, err
	}
	return c.AreaNearConstraint(ctx, args)
}

func pairsFromKeys(m map[string]string) ([]string, error) {
	places, dists := map[int]string{}, map[int]string{}
	for k, v := range m {
		var target map[int]string
		var suffix string
		switch {
		case strings.HasPrefix(k, placeKeyPrefix):
			target, suffix = places, strings.TrimPrefix(k, placeKeyPrefix)
		case strings.HasPrefix(k, distanceKeyPrefix):
			target, suffix = dists, strings.TrimPrefix(k, distanceKeyPrefix)
		default:
			return nil, errs.New(errs.KindValidation, "unexpected argument %q", k)
		}
		i, err := strconv.Atoi(suffix)
		if err != nil || i < 0 {
			return nil, errs.New(errs.KindValidation, "argument %q has no positional index", k)
		}
		target[i] = v
	}
	if len(places) != len(dists) {
		return nil, errs.New(errs.KindArgumentCountMismatch,
			"%d places but %d distances", len(places), len(dists))
	}
	idx := make([]int, 0, len(places))
	for i := range places {
		if _, ok := dists[i]; !ok {
			return nil, errs.New(errs.KindArgumentCountMismatch, "place %d has no matching distance", i)
		}
		idx = append(idx, i)
	}
	sort.Ints(idx)
	args := make([]string, 0, 2*len(idx))
	for _, i := range idx {
		args = append(args, places[i], dists[i])
	}
	return args, nil
}

// areaStatement：每个约束一个缓冲并集 c_i；
// ring = ∪c_i − ∪_{i≠j}(c_i − c_j)，等于全部 c_i 的交集；任一 c_i 为空时无结果
func (c *Compiler) areaStatement(cs []AreaConstraint) sqlb.Expr {
	q := sqlb.From("ring")
	names := make([]string, len(cs))
	for i, ac := range cs {
		names[i] = fmt.Sprintf("c%d", i)
		body := sqlb.From("features f").
			Column("ST_Union(ST_Buffer(f.geom::geography, ?::float8)::geometry) AS g", ac.DistanceMeters).
			Where(c.matchPredicate(ac.Entity, "f"))
		q.With(names[i], body.Expr())
	}

	all := make([]sqlb.Expr, 0, len(cs))
	for _, n := range names {
		all = append(all, sqlb.E("SELECT g FROM "+n))
	}
	q.With("everything", sqlb.Wrapf("SELECT ST_Union(g) AS g FROM (%s) u", sqlb.UnionAll(all...)))

	if len(cs) > 1 {
		var diffs []sqlb.Expr
		for i, a := range names {
			for j, b := range names {
				if i == j {
					continue
				}
				diffs = append(diffs, sqlb.E(fmt.Sprintf("SELECT ST_Difference(%s.g, %s.g) AS d FROM %s, %s", a, b, a, b)))
			}
		}
		q.With("hollow", sqlb.Wrapf("SELECT ST_Union(d) AS g FROM (%s) p", sqlb.UnionAll(diffs...)))
	} else {
		q.With("hollow", sqlb.E("SELECT NULL::geometry AS g"))
	}

	present := make([]string, len(names))
	for i, n := range names {
		present[i] = n + ".g IS NOT NULL"
	}
	q.With("ring", sqlb.E(
		"SELECT ST_Difference(e.g, COALESCE(h.g, ST_SetSRID('GEOMETRYCOLLECTION EMPTY'::geometry, 4326))) AS g"+
			" FROM everything e, hollow h, "+strings.Join(names, ", ")+
			" WHERE "+strings.Join(present, " AND ")))

	return q.Columns(syntheticColumns("area", "ring.g")...).
		Where(sqlb.E("NOT ST_IsEmpty(ring.g)")).
		Expr()
}

// syntheticColumns：合成要素（id = -1）的列，与 store.FeatureColumns 同序并附带面积
func syntheticColumns(name, geom string) []string {
	return []string{
		"-1::bigint",
		"''::text",
		"'" + name + "'::text",
		"'{}'::text",
		"'{}'::text[]",
		"ST_AsGeoJSON(" + geom + ")",
		"json_build_object('area', ST_Area(" + geom + "::geography))::text",
	}
}
