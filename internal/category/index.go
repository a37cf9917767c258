// 包 category：要素分类表的多级词法索引，回答“这个短语指哪些类别”
package category

import (
	"sort"
	"strings"

	"geoquery/internal/metrics"

	"github.com/agnivade/levenshtein"
)

// FuzzyThreshold：归一化编辑距离阈值，严格小于才算命中
const FuzzyThreshold = 0.33

// Tier：命中的匹配层级
type Tier int

const (
	TierNone Tier = iota
	TierName
	TierTerm
	TierTag
	TierFuzzyName
	TierFuzzyTerm
)

func (t Tier) String() string {
	switch t {
	case TierName:
		return "name"
	case TierTerm:
		return "term"
	case TierTag:
		return "tag"
	case TierFuzzyName:
		return "fuzzy_name"
	case TierFuzzyTerm:
		return "fuzzy_term"
	default:
		return "none"
	}
}

type postings map[string][]string

// Index：名称/别名、检索词、标签值三张倒排表
// 约束：Build 之后只读，可被多个请求协程无锁并发读取
type Index struct {
	names    postings
	terms    postings
	tags     postings
	nameKeys []string
	termKeys []string
	records  map[string]Record
}

// Build：由全部分类记录构建索引
func Build(records []Record) *Index {
	names := map[string]map[string]struct{}{}
	terms := map[string]map[string]struct{}{}
	tags := map[string]map[string]struct{}{}
	idx := &Index{records: make(map[string]Record, len(records))}
	for _, r := range records {
		idx.records[r.Key] = r
		n := Normalize(r.Name)
		add(names, n, r.Key)
		if stripped, ok := strings.CutSuffix(n, " feature"); ok {
			add(names, stripped, r.Key)
		}
		for _, a := range r.Aliases {
			add(names, Normalize(a), r.Key)
		}
		for _, t := range r.Terms {
			add(terms, Normalize(t), r.Key)
		}
		for _, v := range r.Tags {
			if isPlaceholder(v) {
				continue
			}
			add(tags, Normalize(strings.ReplaceAll(v, "_", " ")), r.Key)
		}
	}
	idx.names = freeze(names)
	idx.terms = freeze(terms)
	idx.tags = freeze(tags)
	idx.nameKeys = sortedKeys(idx.names)
	idx.termKeys = sortedKeys(idx.terms)
	return idx
}

// Query：返回短语最可能指代的类别键；无命中返回空切片
func (idx *Index) Query(phrase string) []string {
	keys, tier := idx.QueryTier(phrase)
	metrics.CategoryTierTotal.WithLabelValues(tier.String()).Inc()
	return keys
}

// QueryTier：按层级顺序匹配，首个非空层级即返回
// 顺序：名称最长连续窗口 → 检索词窗口 → 标签值窗口 → 名称模糊 → 检索词模糊
func (idx *Index) QueryTier(phrase string) ([]string, Tier) {
	q := Normalize(phrase)
	if q == "" {
		return []string{}, TierNone
	}
	words := strings.Fields(q)
	if ks := longestWindow(idx.names, words); ks != nil {
		return ks, TierName
	}
	if ks := longestWindow(idx.terms, words); ks != nil {
		return ks, TierTerm
	}
	if ks := longestWindow(idx.tags, words); ks != nil {
		return ks, TierTag
	}
	if ks := fuzzy(idx.names, idx.nameKeys, q); len(ks) > 0 {
		return ks, TierFuzzyName
	}
	if ks := fuzzy(idx.terms, idx.termKeys, q); len(ks) > 0 {
		return ks, TierFuzzyTerm
	}
	return []string{}, TierNone
}

// Record：按键取分类记录
func (idx *Index) Record(key string) (Record, bool) {
	r, ok := idx.records[key]
	return r, ok
}

// Len：索引中的类别数
func (idx *Index) Len() int { return len(idx.records) }

// longestWindow：窗口长度从词数递减到 1，每个长度尝试所有起点
func longestWindow(p postings, words []string) []string {
	for n := len(words); n >= 1; n-- {
		for i := 0; i+n <= len(words); i++ {
			if ks, ok := p[strings.Join(words[i:i+n], " ")]; ok {
				return append([]string(nil), ks...)
			}
		}
	}
	return nil
}

// fuzzy：所有归一化编辑距离低于阈值的索引键贡献其类别（并集，而非单个最优）
func fuzzy(p postings, keys []string, q string) []string {
	set := map[string]struct{}{}
	for _, k := range keys {
		if Ratio(q, k) < FuzzyThreshold {
			for _, c := range p[k] {
				set[c] = struct{}{}
			}
		}
	}
	return setToSorted(set)
}

// Ratio：编辑距离除以较长串的字符数；两个空串视为 0
func Ratio(a, b string) float64 {
	aLen, bLen := len([]rune(a)), len([]rune(b))
	longest := aLen
	if bLen > longest {
		longest = bLen
	}
	if longest == 0 {
		return 0
	}
	return float64(levenshtein.ComputeDistance(a, b)) / float64(longest)
}

func isPlaceholder(v string) bool {
	switch strings.ToLower(v) {
	case "yes", "no", "*":
		return true
	}
	return false
}

func add(m map[string]map[string]struct{}, phrase, key string) {
	if phrase == "" {
		return
	}
	s, ok := m[phrase]
	if !ok {
		s = map[string]struct{}{}
		m[phrase] = s
	}
	s[key] = struct{}{}
}

func freeze(m map[string]map[string]struct{}) postings {
	out := make(postings, len(m))
	for k, s := range m {
		out[k] = setToSorted(s)
	}
	return out
}

func setToSorted(s map[string]struct{}) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedKeys(p postings) []string {
	out := make([]string, 0, len(p))
	for k := range p {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
