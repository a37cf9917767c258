// 包 routing：外部路径规划服务客户端（GraphHopper 风格，返回编码折线）
package routing

import (
	"context"
	"encoding/json"
	"geoquery/internal/errs"
	"geoquery/internal/logger"
	"geoquery/internal/metrics"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Path：一条备选路线；Points 为 precision 5 的 Google 编码折线
type Path struct {
	Points   string  `json:"points"`
	Distance float64 `json:"distance"`
	TimeMs   int64   `json:"time"`
}

type Response struct {
	Paths []Path `json:"paths"`
}

// Router：路径规划契约
type Router interface {
	Route(ctx context.Context, fromLng, fromLat, toLng, toLat float64, numRoutes int) (*Response, error)
}

type RouterFunc func(ctx context.Context, fromLng, fromLat, toLng, toLat float64, numRoutes int) (*Response, error)

func (f RouterFunc) Route(ctx context.Context, fromLng, fromLat, toLng, toLat float64, numRoutes int) (*Response, error) {
	return f(ctx, fromLng, fromLat, toLng, toLat, numRoutes)
}

type Client struct {
	endpoint string
	key      string
	profile  string
	client   *http.Client
}

// NewClient：profile 为空时使用 car
func NewClient(endpoint, key, profile string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 8 * time.Second}
	}
	if profile == "" {
		profile = "car"
	}
	return &Client{endpoint: endpoint, key: key, profile: profile, client: client}
}

// Route：请求最多 numRoutes 条备选路线
// 约束：numRoutes > 1 时开启 alternative_route；服务端错误返回 external 类错误，零路径交由调用方判定
func (c *Client) Route(ctx context.Context, fromLng, fromLat, toLng, toLat float64, numRoutes int) (*Response, error) {
	q := url.Values{}
	q.Add("point", formatPoint(fromLat, fromLng))
	q.Add("point", formatPoint(toLat, toLng))
	q.Set("profile", c.profile)
	q.Set("points_encoded", "true")
	q.Set("instructions", "false")
	if numRoutes > 1 {
		q.Set("algorithm", "alternative_route")
		q.Set("alternative_route.max_paths", strconv.Itoa(numRoutes))
	}
	if c.key != "" {
		q.Set("key", c.key)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	t0 := time.Now()
	metrics.RoutingRequestsTotal.Inc()
	resp, err := c.client.Do(req)
	if err != nil {
		logger.From(ctx).Error("routing_http_error", "err", err)
		metrics.RoutingFailTotal.Inc()
		return nil, errs.Wrap(errs.KindExternal, err, "routing request failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		metrics.RoutingFailTotal.Inc()
		return nil, errs.New(errs.KindExternal, "routing service returned status %d", resp.StatusCode)
	}
	var r Response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		logger.From(ctx).Error("routing_decode_error", "err", err)
		metrics.RoutingFailTotal.Inc()
		return nil, errs.Wrap(errs.KindExternal, err, "routing response malformed")
	}
	if numRoutes > 0 && len(r.Paths) > numRoutes {
		r.Paths = r.Paths[:numRoutes]
	}
	dur := time.Since(t0).Milliseconds()
	metrics.RoutingDurationMs.Observe(float64(dur))
	logger.From(ctx).Debug("routing_resp", "paths", len(r.Paths), "duration_ms", dur)
	return &r, nil
}

func formatPoint(lat, lng float64) string {
	return strconv.FormatFloat(lat, 'f', 6, 64) + "," + strconv.FormatFloat(lng, 'f', 6, 64)
}
