package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"geoquery/internal/compile"
	"geoquery/internal/errs"
	"geoquery/internal/geocode"
	"geoquery/internal/logger"
	"geoquery/internal/middleware"
	"geoquery/internal/parse"
	"geoquery/internal/resolve"
)

const maxBody = 1 << 20

// 文档注释：合并请求参数
// 背景：端点同时服务浏览器 GET 与脚本 POST；JSON 体中的字符串、数值、布尔与字符串数组统一折叠为 url.Values。
// 约束：嵌套对象忽略；JSON 体上限 1MB。
func args(r *http.Request) (url.Values, error) {
	v := r.URL.Query()
	if r.Method != http.MethodPost {
		return v, nil
	}
	if strings.HasPrefix(r.Header.Get("content-type"), "application/json") {
		var body map[string]any
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&body); err != nil && err != io.EOF {
			return nil, errs.Wrap(errs.KindValidation, err, "invalid json body")
		}
		for k, x := range body {
			switch t := x.(type) {
			case string:
				v.Add(k, t)
			case float64:
				v.Add(k, strconv.FormatFloat(t, 'f', -1, 64))
			case bool:
				v.Add(k, strconv.FormatBool(t))
			case []any:
				for _, e := range t {
					if s, ok := e.(string); ok {
						v.Add(k, s)
					}
				}
			}
		}
		return v, nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, errs.Wrap(errs.KindValidation, err, "invalid form body")
	}
	for k, vs := range r.PostForm {
		v[k] = append(v[k], vs...)
	}
	return v, nil
}

func required(v url.Values, key string) (string, error) {
	s := strings.TrimSpace(v.Get(key))
	if s == "" {
		return "", errs.New(errs.KindValidation, "missing parameter %q", key)
	}
	return s, nil
}

// centroid：显式 lat/lng 参数优先，其次客户端 IP 的 GeoIP 坐标；都没有时返回 false，由解析器回退默认中心
func (s *Server) centroid(r *http.Request, v url.Values) (geocode.LatLng, bool) {
	if v.Get("lat") != "" && v.Get("lng") != "" {
		lat, e1 := strconv.ParseFloat(v.Get("lat"), 64)
		lng, e2 := strconv.ParseFloat(v.Get("lng"), 64)
		if e1 == nil && e2 == nil && lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180 {
			return geocode.LatLng{Lat: lat, Lng: lng}, true
		}
	}
	if s.Locator != nil {
		if c, ok := s.Locator.Locate(middleware.ClientIP(r)); ok {
			return c, true
		}
	}
	return geocode.LatLng{}, false
}

// prepare：解析参数并把地图中心挂到上下文
func (s *Server) prepare(w http.ResponseWriter, r *http.Request) (context.Context, url.Values, bool) {
	v, err := args(r)
	if err != nil {
		s.fail(w, r, err)
		return nil, nil, false
	}
	ctx := r.Context()
	if c, ok := s.centroid(r, v); ok {
		ctx = resolve.ContextWithCentroid(ctx, c)
		logger.From(ctx).Debug("api_centroid", "lat", c.Lat, "lng", c.Lng)
	}
	return ctx, v, true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := errs.KindOf(err)
	if status := statusOf(kind); status >= 500 {
		logger.From(r.Context()).Error("api_error", "path", r.URL.Path, "kind", kind, "err", err)
	} else {
		logger.From(r.Context()).Debug("api_reject", "path", r.URL.Path, "kind", kind, "err", err)
	}
	writeError(w, r, err)
}

// done：写出执行器结果并计数
// 约束：同一访问者窗口内的重复请求不重复计数
func (s *Server) done(ctx context.Context, w http.ResponseWriter, r *http.Request, executor, request string, v any) {
	if s.Stats != nil && firstInWindow(ctx, s.Redis, middleware.ClientIP(r), executor, request, time.Now()) {
		_ = s.Stats.IncrStats(ctx, executor)
	}
	writeJSON(w, http.StatusOK, v)
}

// handleParse：只解析不执行；strategy=regex 时强制使用正则策略
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	_, v, ok := s.prepare(w, r)
	if !ok {
		return
	}
	q, err := required(v, "q")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	strategy := "pattern"
	var res parse.Result
	if v.Get("strategy") == "regex" {
		strategy = "regex"
		res, err = parse.ParseRegex(q)
	} else if res, err = parse.Parse(q); errs.Is(err, errs.KindQueryParse) {
		strategy = "regex"
		res, err = parse.ParseRegex(q)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"strategy": strategy, "parse": res})
}

// handleResolve：kinds 为逗号分隔的匹配种类；cap_km 覆盖距离上限
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	ctx, v, ok := s.prepare(w, r)
	if !ok {
		return
	}
	q, err := required(v, "q")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	kinds := resolve.AllKinds
	if k := v.Get("kinds"); k != "" {
		kinds = nil
		for _, part := range strings.Split(k, ",") {
			mt := resolve.MatchType(strings.TrimSpace(part))
			switch mt {
			case resolve.NamedPlace, resolve.KnownCategory, resolve.FuzzyText:
				kinds = append(kinds, mt)
			default:
				s.fail(w, r, errs.New(errs.KindValidation, "unknown match type %q", part))
				return
			}
		}
	}
	var opts []resolve.Option
	if c := v.Get("cap_km"); c != "" {
		km, err := strconv.ParseFloat(c, 64)
		if err != nil || km <= 0 {
			s.fail(w, r, errs.New(errs.KindValidation, "cap_km must be a positive number"))
			return
		}
		opts = append(opts, resolve.WithDistanceCapKm(km))
	}
	e, err := s.Resolver.Resolve(ctx, q, kinds, opts...)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// handleQuery：端到端自然语言查询，结果按（中心网格, 归一化文本）缓存
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	ctx, v, ok := s.prepare(w, r)
	if !ok {
		return
	}
	q, err := required(v, "q")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	c, hasCentroid := s.centroid(r, v)
	key := queryKey(c, hasCentroid, q)
	if b, ok := s.cacheGet(ctx, key); ok {
		w.Header().Set("content-type", "application/json; charset=utf-8")
		w.Header().Set("cache-control", "no-store")
		w.Header().Set("x-cache", "hit")
		_, _ = w.Write(b)
		return
	}
	res, err := s.Compiler.Query(ctx, q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.cacheSet(ctx, key, res)
	s.done(ctx, w, r, string(res.Parse.Relation.Kind), v.Encode(), res)
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	ctx, v, ok := s.prepare(w, r)
	if !ok {
		return
	}
	q, err := required(v, "q")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.Compiler.RawLookup(ctx, q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.done(ctx, w, r, "raw_lookup", v.Encode(), res)
}

// handleXInY：negate=true 时取不在 haystack 内的 needle
func (s *Server) handleXInY(w http.ResponseWriter, r *http.Request) {
	ctx, v, ok := s.prepare(w, r)
	if !ok {
		return
	}
	needle, err := required(v, "needle")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	haystack, err := required(v, "haystack")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	executor, run := "x_in_y", s.Compiler.XInY
	if v.Get("negate") == "true" {
		executor, run = "x_not_in_y", s.Compiler.XNotInY
	}
	res, err := run(ctx, needle, haystack)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.done(ctx, w, r, executor, v.Encode(), res)
}

// meters：distance 参数形如 "2 miles"；缺省为 near 默认距离
func meters(v url.Values) (float64, error) {
	d := strings.TrimSpace(v.Get("distance"))
	if d == "" {
		return parse.NearDefaultMeters, nil
	}
	if parse.IsDuration(d) {
		return 0, errs.New(errs.KindUnsupportedTime, "time-based distance %q is not supported", d)
	}
	dist, err := parse.ParseDistance(d)
	if err != nil {
		return 0, err
	}
	return dist.Meters, nil
}

func (s *Server) handleNear(w http.ResponseWriter, r *http.Request) {
	ctx, v, ok := s.prepare(w, r)
	if !ok {
		return
	}
	subject, err := required(v, "subject")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	object, err := required(v, "object")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := meters(v)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	negate := v.Get("negate") == "true"
	res, err := s.Compiler.Near(ctx, subject, object, m, negate)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	executor := "near"
	if negate {
		executor = "not_near"
	}
	s.done(ctx, w, r, executor, v.Encode(), res)
}

func (s *Server) handleBuffer(w http.ResponseWriter, r *http.Request) {
	ctx, v, ok := s.prepare(w, r)
	if !ok {
		return
	}
	object, err := required(v, "object")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := meters(v)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.Compiler.Buffer(ctx, object, m)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.done(ctx, w, r, "buffer", v.Encode(), res)
}

// areaBody：POST JSON 体，args 为交替的（地点, 距离）列表，constraints 为 地点→距离 映射，二选一
type areaBody struct {
	Args        []string          `json:"args"`
	Constraints map[string]string `json:"constraints"`
}

func (b areaBody) key() string {
	if len(b.Constraints) > 0 {
		keys := make([]string, 0, len(b.Constraints))
		for k, d := range b.Constraints {
			keys = append(keys, k+"="+d)
		}
		sort.Strings(keys)
		return strings.Join(keys, "&")
	}
	return strings.Join(b.Args, "&")
}

// handleAreaNear：GET 使用重复的 arg 参数；POST JSON 支持列表与映射两种形式
func (s *Server) handleAreaNear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body areaBody
	if r.Method == http.MethodPost && strings.HasPrefix(r.Header.Get("content-type"), "application/json") {
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&body); err != nil {
			s.fail(w, r, errs.Wrap(errs.KindValidation, err, "invalid json body"))
			return
		}
	} else {
		body.Args = r.URL.Query()["arg"]
	}
	if c, ok := s.centroid(r, r.URL.Query()); ok {
		ctx = resolve.ContextWithCentroid(ctx, c)
	}
	var (
		res *compile.Response
		err error
	)
	if len(body.Constraints) > 0 {
		res, err = s.Compiler.AreaNearConstraintMap(ctx, body.Constraints)
	} else {
		res, err = s.Compiler.AreaNearConstraint(ctx, body.Args)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.done(ctx, w, r, "area_near_constraint", body.key(), res)
}

// handleBetween：interior 为空时只返回路线走廊
func (s *Server) handleBetween(w http.ResponseWriter, r *http.Request) {
	ctx, v, ok := s.prepare(w, r)
	if !ok {
		return
	}
	start, err := required(v, "start")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	end, err := required(v, "end")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var res *compile.Response
	executor := "x_between_y_and_z"
	if interior := strings.TrimSpace(v.Get("interior")); interior != "" {
		res, err = s.Compiler.XBetweenYAndZ(ctx, interior, start, end)
	} else {
		executor = "corridor"
		res, err = s.Compiler.Corridor(ctx, start, end)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.done(ctx, w, r, executor, v.Encode(), res)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.Stats == nil {
		writeJSON(w, http.StatusOK, map[string]any{"total": 0, "today": 0})
		return
	}
	t, err := s.Stats.GetTotals(r.Context())
	if err != nil {
		s.fail(w, r, errs.Wrap(errs.KindExternal, err, "read stats"))
		return
	}
	writeJSON(w, http.StatusOK, t)
}
