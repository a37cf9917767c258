package geocode

import (
	"context"
	"fmt"
	"geoquery/internal/errs"
	"geoquery/internal/logger"
	"geoquery/internal/metrics"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Client：Pelias 风格的 /search 接口客户端
// 约束：响应为 GeoJSON FeatureCollection，几何为 Point；标识取 properties.id，缺失时退回 feature.id
type Client struct {
	endpoint string
	key      string
	client   *http.Client
}

// NewClient：client 为空时使用 5s 超时的默认客户端
func NewClient(endpoint, key string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{endpoint: endpoint, key: key, client: client}
}

// Geocode：查询短语，最多返回 limit 个命中
// 约束：HTTP 或解码失败返回 external 类错误；零命中不是错误，由解析层判定
func (c *Client) Geocode(ctx context.Context, text string, limit int) (*Result, error) {
	if limit <= 0 {
		limit = 1
	}
	q := url.Values{}
	q.Set("text", text)
	q.Set("size", strconv.Itoa(limit))
	if c.key != "" {
		q.Set("api_key", c.key)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	t0 := time.Now()
	metrics.GeocodeRequestsTotal.Inc()
	logger.From(ctx).Debug("geocode_req", "text", text, "limit", limit)
	resp, err := c.client.Do(req)
	if err != nil {
		logger.From(ctx).Error("geocode_http_error", "err", err)
		metrics.GeocodeFailTotal.Inc()
		return nil, errs.Wrap(errs.KindExternal, err, "geocoder request for %q failed", text)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		metrics.GeocodeFailTotal.Inc()
		return nil, errs.Wrap(errs.KindExternal, err, "geocoder response for %q unreadable", text)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.GeocodeFailTotal.Inc()
		return nil, errs.New(errs.KindExternal, "geocoder returned status %d for %q", resp.StatusCode, text)
	}
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		logger.From(ctx).Error("geocode_decode_error", "err", err)
		metrics.GeocodeFailTotal.Inc()
		return nil, errs.Wrap(errs.KindExternal, err, "geocoder response for %q malformed", text)
	}
	out := &Result{}
	for _, f := range fc.Features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}
		h := Hit{
			ReferentID: referentID(f),
			Name:       f.Properties.MustString("name", ""),
			Layer:      f.Properties.MustString("layer", ""),
			Point:      LatLng{Lat: pt.Lat(), Lng: pt.Lon()},
		}
		if h.ReferentID == "" {
			continue
		}
		out.Hits = append(out.Hits, h)
		if len(out.Hits) == limit {
			break
		}
	}
	dur := time.Since(t0).Milliseconds()
	metrics.GeocodeDurationMs.Observe(float64(dur))
	logger.From(ctx).Debug("geocode_resp", "text", text, "hits", len(out.Hits), "duration_ms", dur)
	return out, nil
}

func referentID(f *geojson.Feature) string {
	switch v := f.Properties["id"].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	if f.ID != nil {
		return fmt.Sprint(f.ID)
	}
	return ""
}
