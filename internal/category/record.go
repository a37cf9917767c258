package category

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
)

// Record：分类表中的一项要素类别
// 约束：Key 全局唯一；Tags 为 OSM 风格的 key=value，值 yes/no/* 表示存在性占位
type Record struct {
	Key     string            `json:"key"`
	Name    string            `json:"name"`
	Aliases []string          `json:"aliases"`
	Terms   []string          `json:"terms"`
	Tags    map[string]string `json:"tags"`
}

//go:embed taxonomy.json
var defaultTaxonomy []byte

// DefaultRecords：返回内置分类表
func DefaultRecords() ([]Record, error) {
	return decodeRecords(defaultTaxonomy)
}

// LoadRecords：从 JSON 文件读取分类表；path 为空时使用内置分类表
func LoadRecords(path string) ([]Record, error) {
	if path == "" {
		return DefaultRecords()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy %s: %w", path, err)
	}
	return decodeRecords(b)
}

func decodeRecords(b []byte) ([]Record, error) {
	var rs []Record
	if err := json.Unmarshal(b, &rs); err != nil {
		return nil, fmt.Errorf("decode taxonomy: %w", err)
	}
	seen := make(map[string]bool, len(rs))
	for i, r := range rs {
		if r.Key == "" {
			return nil, fmt.Errorf("taxonomy entry %d has empty key", i)
		}
		if seen[r.Key] {
			return nil, fmt.Errorf("taxonomy key %q is duplicated", r.Key)
		}
		seen[r.Key] = true
	}
	return rs, nil
}

// ConcreteTags：去掉 yes/no/* 占位值后的标签，可直接用于 jsonb 包含查询
func (r Record) ConcreteTags() map[string]string {
	out := make(map[string]string, len(r.Tags))
	for k, v := range r.Tags {
		if !isPlaceholder(v) {
			out[k] = v
		}
	}
	return out
}
