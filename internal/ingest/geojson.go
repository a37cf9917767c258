// 包 ingest：把 OSM 导出的 GeoJSON 转换为要素行并批量写入，作为离线数据通道
package ingest

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"geoquery/internal/category"
	"geoquery/internal/logger"
	"geoquery/internal/store"

	"github.com/paulmach/orb/geojson"
)

// 文档注释：解析 GeoJSON 输入
// 背景：支持 osmtogeojson 的 FeatureCollection 与 osmium 的逐行 Feature（GeoJSON Text Sequence）两种导出。
// 约束：缺少几何或无法确定 osm_id 的要素跳过并计数；类别由分类索引按标签推断。
func Decode(r io.Reader, idx *category.Index) ([]store.Feature, int, error) {
	br := bufio.NewReaderSize(r, 1<<16)
	head, err := br.Peek(512)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, 0, err
	}
	if isCollection(head) {
		b, err := io.ReadAll(br)
		if err != nil {
			return nil, 0, err
		}
		fc, err := geojson.UnmarshalFeatureCollection(b)
		if err != nil {
			return nil, 0, fmt.Errorf("decode feature collection: %w", err)
		}
		return convertAll(fc.Features, idx)
	}
	return decodeSeq(br, idx)
}

// isCollection：序列格式的单行要素不会出现 FeatureCollection 字样
func isCollection(head []byte) bool {
	return bytes.Contains(head, []byte("FeatureCollection"))
}

// decodeSeq：逐行解析；行首的 RS 分隔符（0x1e）去除
func decodeSeq(r io.Reader, idx *category.Index) ([]store.Feature, int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1024), 64*1024*1024)
	var out []store.Feature
	skipped, line := 0, 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(bytes.TrimLeft(sc.Bytes(), "\x1e"))
		if len(b) == 0 {
			continue
		}
		f, err := geojson.UnmarshalFeature(b)
		if err != nil {
			return nil, skipped, fmt.Errorf("line %d: %w", line, err)
		}
		if sf, ok := Convert(f, idx); ok {
			out = append(out, sf)
		} else {
			skipped++
		}
	}
	return out, skipped, sc.Err()
}

func convertAll(fs []*geojson.Feature, idx *category.Index) ([]store.Feature, int, error) {
	out := make([]store.Feature, 0, len(fs))
	skipped := 0
	for _, f := range fs {
		if sf, ok := Convert(f, idx); ok {
			out = append(out, sf)
		} else {
			skipped++
		}
	}
	return out, skipped, nil
}

// Convert：单个 GeoJSON 要素 → 要素行
func Convert(f *geojson.Feature, idx *category.Index) (store.Feature, bool) {
	if f == nil || f.Geometry == nil {
		return store.Feature{}, false
	}
	id := osmID(f)
	if id == "" {
		logger.L().Debug("ingest_skip", "reason", "no_osm_id")
		return store.Feature{}, false
	}
	tags := tagsOf(f.Properties)
	sf := store.Feature{
		OSMID:    id,
		Name:     tags["name"],
		Tags:     tags,
		Geometry: f.Geometry,
	}
	if idx != nil {
		sf.Categories = idx.Classify(tags)
	}
	return sf, true
}

// osmID：依次取要素 id、properties.@type + @id、properties.osm_id
func osmID(f *geojson.Feature) string {
	if s := scalar(f.ID); s != "" {
		return s
	}
	p := f.Properties
	if t, id := scalar(p["@type"]), scalar(p["@id"]); id != "" {
		if t != "" && !strings.Contains(id, "/") {
			return t + "/" + id
		}
		return id
	}
	return scalar(p["osm_id"])
}

// tagsOf：properties.tags 对象优先，否则取扁平属性（跳过 @ 前缀与标识字段）
func tagsOf(p geojson.Properties) map[string]string {
	tags := map[string]string{}
	if nested, ok := p["tags"].(map[string]any); ok {
		for k, v := range nested {
			if s := scalar(v); s != "" {
				tags[k] = s
			}
		}
		return tags
	}
	for k, v := range p {
		if strings.HasPrefix(k, "@") || k == "id" || k == "osm_id" || k == "tags" {
			continue
		}
		if s := scalar(v); s != "" {
			tags[k] = s
		}
	}
	return tags
}

func scalar(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}
