package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"geoquery/internal/category"
	"geoquery/internal/compile"
	"geoquery/internal/errs"
	"geoquery/internal/geocode"
	"geoquery/internal/parse"
	"geoquery/internal/resolve"
	"geoquery/internal/sqlb"
	"geoquery/internal/store"

	"github.com/paulmach/orb"
)

type fakeSource struct {
	rows  []store.Feature
	err   error
	calls int
}

func (f *fakeSource) QueryFeatures(ctx context.Context, q sqlb.Expr) ([]store.Feature, error) {
	f.calls++
	if _, _, err := sqlb.Build(q); err != nil {
		return nil, err
	}
	return f.rows, f.err
}

type fakeGeocoder struct{}

func (fakeGeocoder) Geocode(ctx context.Context, text string, limit int) (*geocode.Result, error) {
	if strings.EqualFold(text, "San Francisco") {
		return &geocode.Result{Hits: []geocode.Hit{{ReferentID: "111968", Name: "San Francisco", Point: geocode.LatLng{Lat: 37.7749, Lng: -122.4194}}}}, nil
	}
	return &geocode.Result{}, nil
}

type fakeStats struct {
	byExe map[string]int64
}

func (f *fakeStats) IncrStats(ctx context.Context, executor string) error {
	f.byExe[executor]++
	return nil
}

func (f *fakeStats) GetTotals(ctx context.Context) (*store.Totals, error) {
	t := &store.Totals{ByExe: f.byExe}
	for _, n := range f.byExe {
		t.Total += n
		t.Today += n
	}
	return t, nil
}

type fakeLocator struct {
	calls int
}

func (l *fakeLocator) Locate(ip string) (geocode.LatLng, bool) {
	l.calls++
	if ip == "203.0.113.9" {
		return geocode.LatLng{Lat: 51.5, Lng: -0.12}, true
	}
	return geocode.LatLng{}, false
}

var pubRow = store.Feature{
	ID:         7,
	OSMID:      "node/7",
	Name:       "Irish Bank",
	Tags:       map[string]string{"amenity": "pub"},
	Categories: []string{"amenity/pub"},
	Geometry:   orb.Point{-122.4036, 37.7911},
}

func newServer(t *testing.T, src *fakeSource) (*Server, *fakeStats) {
	t.Helper()
	rs, err := category.DefaultRecords()
	if err != nil {
		t.Fatal(err)
	}
	idx := category.Build(rs)
	r := resolve.New(fakeGeocoder{}, idx, resolve.Config{})
	st := &fakeStats{byExe: map[string]int64{}}
	return &Server{
		Compiler: compile.New(r, idx, src, nil),
		Resolver: r,
		Stats:    st,
	}, st
}

func do(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %s: %v (%s)", req.URL, err, w.Body.String())
	}
	return w, body
}

func get(path string, q url.Values) *http.Request {
	return httptest.NewRequest(http.MethodGet, path+"?"+q.Encode(), nil)
}

func TestHealthz(t *testing.T) {
	s, _ := newServer(t, &fakeSource{})
	w, body := do(t, BuildRoutes(s), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK || body["ok"] != true {
		t.Fatalf("healthz = %d %v", w.Code, body)
	}
}

func TestParseEndpoint(t *testing.T) {
	s, _ := newServer(t, &fakeSource{})
	mux := BuildRoutes(s)

	w, body := do(t, mux, get("/parse", url.Values{"q": {"coffee shops in San Francisco"}}))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %v", w.Code, body)
	}
	if body["strategy"] != "pattern" {
		t.Errorf("strategy = %v", body["strategy"])
	}
	rel := body["parse"].(map[string]any)["relation"].(map[string]any)
	if rel["kind"] != "covered_by" {
		t.Errorf("kind = %v", rel["kind"])
	}

	w, body = do(t, mux, get("/parse", url.Values{"q": {"pubs not in Berkeley"}, "strategy": {"regex"}}))
	if w.Code != http.StatusOK || body["strategy"] != "regex" {
		t.Fatalf("regex parse = %d %v", w.Code, body)
	}
	rel = body["parse"].(map[string]any)["relation"].(map[string]any)
	if rel["kind"] != "disjoint" {
		t.Errorf("regex kind = %v", rel["kind"])
	}
}

func TestQueryEndpoint(t *testing.T) {
	src := &fakeSource{rows: []store.Feature{pubRow}}
	s, st := newServer(t, src)
	mux := BuildRoutes(s)

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"q":"pubs in San Francisco"}`))
	req.Header.Set("content-type", "application/json")
	w, body := do(t, mux, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %v", w.Code, body)
	}
	fc := body["result"].(map[string]any)["geometry"].(map[string]any)
	if fc["type"] != "FeatureCollection" || len(fc["features"].([]any)) != 1 {
		t.Errorf("geometry = %v", fc)
	}
	if st.byExe["covered_by"] != 1 {
		t.Errorf("stats = %v", st.byExe)
	}

	w, body = do(t, mux, get("/stats", nil))
	if w.Code != http.StatusOK || body["total"].(float64) != 1 {
		t.Errorf("stats endpoint = %d %v", w.Code, body)
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		src    *fakeSource
		req    *http.Request
		status int
		kind   errs.Kind
	}{
		{"missing_q", &fakeSource{}, get("/query", nil), http.StatusBadRequest, errs.KindValidation},
		{"empty_result", &fakeSource{}, get("/x-in-y", url.Values{"needle": {"pubs"}, "haystack": {"San Francisco"}}), http.StatusNotFound, errs.KindEmptyResult},
		{"timeout", &fakeSource{err: errs.New(errs.KindStatementTimeout, "canceling statement")}, get("/lookup", url.Values{"q": {"tacos"}}), http.StatusGatewayTimeout, errs.KindStatementTimeout},
		{"odd_args", &fakeSource{}, get("/area-near", url.Values{"arg": {"San Francisco"}}), http.StatusBadRequest, errs.KindArgumentCountMismatch},
		{"bad_distance", &fakeSource{}, get("/near", url.Values{"subject": {"pubs"}, "object": {"San Francisco"}, "distance": {"2 parsecs"}}), http.StatusBadRequest, errs.KindQueryParse},
		{"time_distance", &fakeSource{}, get("/buffer", url.Values{"object": {"San Francisco"}, "distance": {"20 minutes"}}), http.StatusBadRequest, errs.KindUnsupportedTime},
		{"no_router", &fakeSource{}, get("/between", url.Values{"start": {"San Francisco"}, "end": {"San Francisco"}}), http.StatusBadGateway, errs.KindExternal},
		{"unknown_kind", &fakeSource{}, get("/resolve", url.Values{"q": {"pubs"}, "kinds": {"nearby"}}), http.StatusBadRequest, errs.KindValidation},
		{"no_geocode", &fakeSource{}, get("/resolve", url.Values{"q": {"Atlantis"}, "kinds": {"named_place"}}), http.StatusNotFound, errs.KindNoGeocodeResult},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, st := newServer(t, tt.src)
			w, body := do(t, BuildRoutes(s), tt.req)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (%v)", w.Code, tt.status, body)
			}
			if body["kind"] != string(tt.kind) {
				t.Errorf("kind = %v, want %s", body["kind"], tt.kind)
			}
			if len(st.byExe) != 0 {
				t.Errorf("failed request counted: %v", st.byExe)
			}
		})
	}
}

func TestAreaNearMapBody(t *testing.T) {
	src := &fakeSource{}
	s, _ := newServer(t, src)
	req := httptest.NewRequest(http.MethodPost, "/area-near", strings.NewReader(`{"constraints":{
		"named_place_or_amenity_0":"San Francisco","distance_or_time_0":"20 minutes",
		"named_place_or_amenity_1":"Oakland","distance_or_time_1":"1 km"}}`))
	req.Header.Set("content-type", "application/json")
	w, body := do(t, BuildRoutes(s), req)
	if w.Code != http.StatusBadRequest || body["kind"] != string(errs.KindUnsupportedTime) {
		t.Fatalf("area-near = %d %v", w.Code, body)
	}
	if src.calls != 0 {
		t.Errorf("statement executed before validation: %d", src.calls)
	}
}

func TestCentroid(t *testing.T) {
	loc := &fakeLocator{}
	s := &Server{Locator: loc}

	r := httptest.NewRequest(http.MethodGet, "/query", nil)
	c, ok := s.centroid(r, url.Values{"lat": {"40.7"}, "lng": {"-74"}})
	if !ok || c.Lat != 40.7 || c.Lng != -74 || loc.calls != 0 {
		t.Fatalf("explicit centroid = %v %v (locator calls %d)", c, ok, loc.calls)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.9")
	c, ok = s.centroid(r, url.Values{"lat": {"91"}, "lng": {"0"}})
	if !ok || c.Lat != 51.5 {
		t.Fatalf("geoip centroid = %v %v", c, ok)
	}

	r.Header.Set("X-Forwarded-For", "198.51.100.1")
	if _, ok := s.centroid(r, url.Values{}); ok {
		t.Fatal("unknown ip should give no centroid")
	}
}

func TestQueryKey(t *testing.T) {
	sf := geocode.LatLng{Lat: 37.7749, Lng: -122.4194}
	a := queryKey(sf, true, " pubs  in San Francisco ")
	b := queryKey(geocode.LatLng{Lat: 37.7751, Lng: -122.4190}, true, "pubs in San Francisco")
	if a != b {
		t.Errorf("keys differ: %q vs %q", a, b)
	}
	if c := queryKey(sf, false, "pubs in San Francisco"); c != "query:-:pubs in San Francisco" {
		t.Errorf("no centroid key = %q", c)
	}
}

func TestQueryKeyKeepsCase(t *testing.T) {
	upper, lower := "San Francisco coffee shops", "san francisco coffee shops"
	pu, err := parse.Parse(upper)
	if err != nil {
		t.Fatal(err)
	}
	pl, err := parse.Parse(lower)
	if err != nil {
		t.Fatal(err)
	}
	if pu.Relation.Kind == pl.Relation.Kind {
		t.Fatalf("case variants parse alike (%s); pick sentences that differ", pu.Relation.Kind)
	}
	if queryKey(geocode.LatLng{}, false, upper) == queryKey(geocode.LatLng{}, false, lower) {
		t.Error("case variants share a cache key")
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		kind errs.Kind
		want int
	}{
		{errs.KindQueryParse, http.StatusBadRequest},
		{errs.KindTooManyConstraints, http.StatusBadRequest},
		{errs.KindNoRouteFound, http.StatusNotFound},
		{errs.KindTooFarFromCentroid, http.StatusUnprocessableEntity},
		{errs.KindStatementTimeout, http.StatusGatewayTimeout},
		{errs.KindExternal, http.StatusBadGateway},
		{errs.KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusOf(tt.kind); got != tt.want {
			t.Errorf("statusOf(%s) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestBloomPositions(t *testing.T) {
	a := bloomPositions([]byte("203.0.113.9|near|q=pubs"), bloomBits, bloomHashes)
	b := bloomPositions([]byte("203.0.113.9|near|q=pubs"), bloomBits, bloomHashes)
	if len(a) != bloomHashes {
		t.Fatalf("positions = %v", a)
	}
	for i := range a {
		if a[i] != b[i] || a[i] < 0 || a[i] >= bloomBits {
			t.Fatalf("positions not stable or out of range: %v %v", a, b)
		}
	}
}
