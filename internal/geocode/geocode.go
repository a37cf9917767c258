// 包 geocode：外部地理编码服务客户端（短语 → 坐标 + 稳定标识）及其缓存
package geocode

import "context"

// LatLng：WGS84 坐标
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Hit：一次命中；ReferentID 为地理编码服务给出的稳定标识（如 OSM relation id）
type Hit struct {
	ReferentID string `json:"referent_id"`
	Name       string `json:"name,omitempty"`
	Layer      string `json:"layer,omitempty"`
	Point      LatLng `json:"point"`
}

// Result：按相关度降序排列的命中列表
type Result struct {
	Hits []Hit `json:"hits"`
}

// Geocoder：地理编码契约
type Geocoder interface {
	Geocode(ctx context.Context, text string, limit int) (*Result, error)
}

// GeocoderFunc：函数适配器，便于测试与组合
type GeocoderFunc func(ctx context.Context, text string, limit int) (*Result, error)

func (f GeocoderFunc) Geocode(ctx context.Context, text string, limit int) (*Result, error) {
	return f(ctx, text, limit)
}
