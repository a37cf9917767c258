package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"geoquery/internal/errs"
)

const sfResponse = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-122.4194, 37.7749]},
     "properties": {"id": "111968", "name": "San Francisco", "layer": "locality"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-58.5, -34.6]},
     "properties": {"id": 2257, "name": "San Francisco", "layer": "locality"}}
  ]
}`

func TestClientGeocode(t *testing.T) {
	var gotText, gotSize, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotText = r.URL.Query().Get("text")
		gotSize = r.URL.Query().Get("size")
		gotKey = r.URL.Query().Get("api_key")
		w.Header().Set("content-type", "application/json")
		_, _ = w.Write([]byte(sfResponse))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", nil)
	res, err := c.Geocode(context.Background(), "San Francisco", 2)
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if gotText != "San Francisco" || gotSize != "2" || gotKey != "secret" {
		t.Errorf("query params text=%q size=%q key=%q", gotText, gotSize, gotKey)
	}
	if len(res.Hits) != 2 {
		t.Fatalf("hits = %d, want 2", len(res.Hits))
	}
	h := res.Hits[0]
	if h.ReferentID != "111968" || h.Name != "San Francisco" || h.Layer != "locality" {
		t.Errorf("first hit = %+v", h)
	}
	if h.Point.Lat != 37.7749 || h.Point.Lng != -122.4194 {
		t.Errorf("point = %+v", h.Point)
	}
	if res.Hits[1].ReferentID != "2257" {
		t.Errorf("numeric id = %q, want 2257", res.Hits[1].ReferentID)
	}
}

func TestClientGeocodeRespectsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sfResponse))
	}))
	defer srv.Close()
	res, err := NewClient(srv.URL, "", nil).Geocode(context.Background(), "sf", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Hits) != 1 {
		t.Errorf("hits = %d, want 1", len(res.Hits))
	}
}

func TestClientGeocodeHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	_, err := NewClient(srv.URL, "", nil).Geocode(context.Background(), "sf", 1)
	if !errs.Is(err, errs.KindExternal) {
		t.Errorf("err = %v, want external kind", err)
	}
}

func TestCachedUsesMemoryWithoutRedis(t *testing.T) {
	calls := 0
	next := GeocoderFunc(func(ctx context.Context, text string, limit int) (*Result, error) {
		calls++
		return &Result{Hits: []Hit{{ReferentID: "1"}}}, nil
	})
	c := NewCached(next, nil, time.Minute)
	for i := 0; i < 3; i++ {
		r, err := c.Geocode(context.Background(), "  San   FRANCISCO ", 1)
		if err != nil || len(r.Hits) != 1 {
			t.Fatalf("Geocode: %v %v", r, err)
		}
	}
	if _, err := c.Geocode(context.Background(), "san francisco", 1); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("upstream calls = %d, want 1", calls)
	}
	if _, err := c.Geocode(context.Background(), "san francisco", 5); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("different limit should miss, calls = %d", calls)
	}
}

func TestCachedDoesNotCacheErrors(t *testing.T) {
	calls := 0
	next := GeocoderFunc(func(ctx context.Context, text string, limit int) (*Result, error) {
		calls++
		return nil, errs.New(errs.KindExternal, "down")
	})
	c := NewCached(next, nil, time.Minute)
	_, _ = c.Geocode(context.Background(), "x", 1)
	_, _ = c.Geocode(context.Background(), "x", 1)
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}
