// 包 resolve：把短语解析为地理指代物（命名地点 / 已知类别 / 模糊文本）
package resolve

import (
	"geoquery/internal/geocode"
)

// MatchType：解析结果的种类
type MatchType string

const (
	NamedPlace    MatchType = "named_place"
	KnownCategory MatchType = "known_category"
	FuzzyText     MatchType = "fuzzy_text"
)

// AllKinds：默认优先级顺序
var AllKinds = []MatchType{NamedPlace, KnownCategory, FuzzyText}

// Entity：一次解析的结果，构造后不再修改
// 约束：NamedPlace ⇒ ReferentIDs 恰为最佳命中的标识；KnownCategory ⇒ ReferentIDs 可为空，类别成员关系由编译层按 Categories 求取；
// FuzzyText ⇒ 两者均为空，编译层改走全文/三元组检索
type Entity struct {
	Lookup      string          `json:"lookup"`
	MatchType   MatchType       `json:"match_type"`
	ReferentIDs []string        `json:"referent_ids"`
	Categories  []string        `json:"categories,omitempty"`
	Point       *geocode.LatLng `json:"point,omitempty"`
}

// SameReferent：匹配种类与指代标识相同（忽略坐标）
func (e Entity) SameReferent(o Entity) bool {
	if e.MatchType != o.MatchType || len(e.ReferentIDs) != len(o.ReferentIDs) {
		return false
	}
	for i := range e.ReferentIDs {
		if e.ReferentIDs[i] != o.ReferentIDs[i] {
			return false
		}
	}
	return true
}
