package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"geoquery/internal/category"
	"geoquery/internal/errs"
	"geoquery/internal/geocode"
	"geoquery/internal/logger"
	"geoquery/internal/metrics"
)

// Config：解析器参数
type Config struct {
	DistanceCapKm       float64
	EnableKnownCategory bool
}

// Resolver：按固定优先级尝试各解析策略
// 约束：无共享可变状态，可被多个请求并发使用；索引只读
type Resolver struct {
	geocoder geocode.Geocoder
	index    *category.Index
	cfg      Config
}

func New(g geocode.Geocoder, idx *category.Index, cfg Config) *Resolver {
	if cfg.DistanceCapKm <= 0 {
		cfg.DistanceCapKm = DefaultDistanceCapKm
	}
	return &Resolver{geocoder: g, index: idx, cfg: cfg}
}

type callOpts struct {
	centroid *geocode.LatLng
	capKm    float64
}

// Option：单次调用参数
type Option func(*callOpts)

// WithCentroid：覆盖地图中心
func WithCentroid(c geocode.LatLng) Option {
	return func(o *callOpts) { o.centroid = &c }
}

// WithDistanceCapKm：覆盖距离上限
func WithDistanceCapKm(km float64) Option {
	return func(o *callOpts) {
		if km > 0 {
			o.capKm = km
		}
	}
}

type centroidKey struct{}

// ContextWithCentroid：把地图中心挂到请求上下文，执行器内部的解析调用会读取它
func ContextWithCentroid(ctx context.Context, c geocode.LatLng) context.Context {
	return context.WithValue(ctx, centroidKey{}, c)
}

func (r *Resolver) options(ctx context.Context, opts []Option) callOpts {
	o := callOpts{capKm: r.cfg.DistanceCapKm}
	if c, ok := ctx.Value(centroidKey{}).(geocode.LatLng); ok {
		o.centroid = &c
	}
	for _, fn := range opts {
		fn(&o)
	}
	if o.centroid == nil {
		c := DefaultCentroid
		o.centroid = &c
	}
	return o
}

// NamedPlace：取地理编码最佳命中，并校验与地图中心的平面距离
func (r *Resolver) NamedPlace(ctx context.Context, phrase string, opts ...Option) (Entity, error) {
	o := r.options(ctx, opts)
	res, err := r.geocoder.Geocode(ctx, phrase, 1)
	if err != nil {
		return Entity{}, err
	}
	if res == nil || len(res.Hits) == 0 {
		return Entity{}, errs.New(errs.KindNoGeocodeResult, "no geocode result for %q", phrase)
	}
	hit := res.Hits[0]
	d := PlanarDistanceMeters(hit.Point, *o.centroid)
	if d > o.capKm*1000 {
		return Entity{}, errs.New(errs.KindTooFarFromCentroid,
			"%q resolved %.0f km from the map centroid, limit is %.0f km", phrase, d/1000, o.capKm)
	}
	pt := hit.Point
	return Entity{
		Lookup:      phrase,
		MatchType:   NamedPlace,
		ReferentIDs: []string{hit.ReferentID},
		Point:       &pt,
	}, nil
}

// KnownCategory：类别解析扩展点
// 约束：未开启 EnableKnownCategory 时总是失败（错误中携带索引候选，便于诊断）
func (r *Resolver) KnownCategory(ctx context.Context, phrase string) (Entity, error) {
	var keys []string
	if r.index != nil {
		keys = r.index.Query(phrase)
	}
	if !r.cfg.EnableKnownCategory {
		return Entity{}, errs.New(errs.KindKnownCategoryUnsupported,
			"known category resolution is not enabled for %q (index candidates: %s)", phrase, strings.Join(keys, ","))
	}
	if len(keys) == 0 {
		return Entity{}, errs.New(errs.KindNoCategoryMatch, "no category matches %q", phrase)
	}
	return Entity{
		Lookup:      phrase,
		MatchType:   KnownCategory,
		ReferentIDs: []string{},
		Categories:  keys,
	}, nil
}

// FuzzyText：兜底策略，总是成功
func (r *Resolver) FuzzyText(phrase string) Entity {
	return Entity{Lookup: phrase, MatchType: FuzzyText, ReferentIDs: []string{}}
}

type strategy struct {
	kind MatchType
	run  func(ctx context.Context, phrase string, opts []Option) (Entity, error)
}

func (r *Resolver) strategies() []strategy {
	return []strategy{
		{NamedPlace, func(ctx context.Context, p string, opts []Option) (Entity, error) { return r.NamedPlace(ctx, p, opts...) }},
		{KnownCategory, func(ctx context.Context, p string, _ []Option) (Entity, error) { return r.KnownCategory(ctx, p) }},
		{FuzzyText, func(_ context.Context, p string, _ []Option) (Entity, error) { return r.FuzzyText(p), nil }},
	}
}

// Resolve：按 named_place → known_category → fuzzy_text 的顺序尝试 kinds 中启用的策略，返回首个成功
// 约束：全部失败时返回各策略错误的合并；最后一个失败策略的错误种类决定 errs.KindOf
func (r *Resolver) Resolve(ctx context.Context, phrase string, kinds []MatchType, opts ...Option) (Entity, error) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return Entity{}, errs.New(errs.KindValidation, "empty place phrase")
	}
	enabled := map[MatchType]bool{}
	for _, k := range kinds {
		enabled[k] = true
	}
	var failures []error
	for _, s := range r.strategies() {
		if !enabled[s.kind] {
			continue
		}
		e, err := s.run(ctx, phrase, opts)
		if err == nil {
			metrics.ResolutionsTotal.WithLabelValues(string(e.MatchType)).Inc()
			logger.From(ctx).Debug("resolve_ok", "phrase", phrase, "match_type", e.MatchType, "referents", e.ReferentIDs)
			return e, nil
		}
		logger.From(ctx).Debug("resolve_fallback", "phrase", phrase, "kind", s.kind, "err", err)
		failures = append(failures, err)
	}
	if len(failures) == 0 {
		return Entity{}, errs.New(errs.KindValidation, "no resolution kind enabled for %q", phrase)
	}
	last := failures[len(failures)-1]
	if len(failures) == 1 {
		return Entity{}, last
	}
	return Entity{}, &errs.Error{Kind: errs.KindOf(last), Message: fmt.Sprintf("could not resolve %q", phrase), Err: errors.Join(failures...)}
}

// ResolveEntity：默认入口，依次尝试全部策略，最终总会落到模糊文本
func (r *Resolver) ResolveEntity(ctx context.Context, phrase string, opts ...Option) (Entity, error) {
	return r.Resolve(ctx, phrase, AllKinds, opts...)
}
