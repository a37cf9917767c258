// 包 parse：把一句自然语言查询解析为带类型槽位的空间关系
package parse

import "strings"

// Kind：关系种类
type Kind string

const (
	KindCoveredBy         Kind = "covered_by"
	KindDisjoint          Kind = "disjoint"
	KindNear              Kind = "near"
	KindNotNear           Kind = "not_near"
	KindWithinDistanceOf  Kind = "within_distance_of"
	KindOutsideDistanceOf Kind = "outside_distance_of"
	KindWithinTimeOf      Kind = "within_time_of"
	KindOutsideTimeOf     Kind = "outside_time_of"
	KindBuffer            Kind = "buffer"
	KindIsochrone         Kind = "isochrone"
	KindRoute             Kind = "route"
	KindSearch            Kind = "search"
)

// NearDefaultMeters：near/not_near 未给出距离时使用的默认半径
const NearDefaultMeters = 1000.0

// DefaultMethod：时间类关系未指明出行方式时的默认值
const DefaultMethod = "drive"

// Place：名词短语；Named 表示含专有名词（NamedPlace），应按地名解析
type Place struct {
	Value []string `json:"value"`
	Named bool     `json:"named"`
}

// Text：短语原文（词之间单空格）
func (p Place) Text() string { return strings.Join(p.Value, " ") }

// Distance：距离槽位
type Distance struct {
	Magnitude float64 `json:"magnitude"`
	Unit      string  `json:"unit"`
	Meters    float64 `json:"meters"`
}

// Duration：时长槽位
type Duration struct {
	Magnitude float64 `json:"magnitude"`
	Unit      string  `json:"unit"`
	Seconds   float64 `json:"seconds"`
}

// Relation：扁平的带标签联合体，Kind 决定哪些字段有效
//   - 介词类：Subject、Object
//   - 距离/时长类：另有 Distance 或 Duration（within_*/outside_* 必有）
//   - buffer/isochrone：Object + Distance/Duration
//   - route：Start、End，可选 Along
//   - search：Subject
type Relation struct {
	Kind     Kind      `json:"kind"`
	Subject  *Place    `json:"subject,omitempty"`
	Object   *Place    `json:"object,omitempty"`
	Start    *Place    `json:"start,omitempty"`
	End      *Place    `json:"end,omitempty"`
	Along    *Place    `json:"along,omitempty"`
	Distance *Distance `json:"distance,omitempty"`
	Duration *Duration `json:"duration,omitempty"`
	Method   string    `json:"method,omitempty"`
}

// Result：解析结果
type Result struct {
	Relation Relation `json:"relation"`
	Tokens   []string `json:"tokens"`
}
