package compile

import (
	"encoding/json"

	"geoquery/internal/resolve"
	"geoquery/internal/sqlb"
	"geoquery/internal/store"

	"github.com/lib/pq"
)

const roleCorridor = "corridor"

// matchPredicate：按解析种类生成要素匹配谓词（alias 为 features 表别名）
//   - named_place：osm_id 等于地理编码标识
//   - known_category：categories 列重叠，或标签 jsonb 包含类别的具体标签
//   - fuzzy_text：全文检索命中或名称三元组相似
func (c *Compiler) matchPredicate(e resolve.Entity, alias string) sqlb.Expr {
	switch e.MatchType {
	case resolve.NamedPlace:
		return sqlb.E(alias+".osm_id = ANY(?)", pq.Array(e.ReferentIDs))
	case resolve.KnownCategory:
		preds := []sqlb.Expr{sqlb.E(alias+".categories && ?", pq.Array(e.Categories))}
		for _, key := range e.Categories {
			if tags := c.categoryTags(key); tags != "" {
				preds = append(preds, sqlb.E(alias+".tags @> ?::jsonb", tags))
			}
		}
		return sqlb.Or(preds...)
	default:
		return sqlb.Or(
			sqlb.E(alias+".search @@ plainto_tsquery('english', ?)", e.Lookup),
			sqlb.E("similarity("+alias+".name, ?) > ?::float8", e.Lookup, similarityFloor),
		)
	}
}

// categoryTags：类别的具体标签（JSON 文本）；无索引或仅有占位标签时返回空串
func (c *Compiler) categoryTags(key string) string {
	if c.index == nil {
		return ""
	}
	rec, ok := c.index.Record(key)
	if !ok {
		return ""
	}
	tags := rec.ConcreteTags()
	if len(tags) == 0 {
		return ""
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return ""
	}
	return string(b)
}

// rank：模糊文本按全文相关度 + 名称相似度排序并截断
func rank(q *sqlb.Select, e resolve.Entity, alias string) *sqlb.Select {
	if e.MatchType != resolve.FuzzyText {
		return q
	}
	return q.OrderBy("ts_rank("+alias+".search, plainto_tsquery('english', ?)) + similarity("+alias+".name, ?) DESC", e.Lookup, e.Lookup).
		Limit(FuzzyLimit)
}

// featureSelect：features f 上的标准列查询
func featureSelect() *sqlb.Select {
	return sqlb.From("features f").Columns(store.FeatureColumns...)
}
