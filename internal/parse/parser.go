package parse

import (
	"strings"

	"geoquery/internal/errs"
	"geoquery/internal/logger"
	"geoquery/internal/metrics"
)

// Parse：模式/依存策略
// 流程：分词标注 → 名词块 → 依存树 → 模式匹配 → 过滤重叠 span → 按标签抽取论元；无命中走默认解析
func Parse(text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		metrics.ParseTotal.WithLabelValues("pattern", "error").Inc()
		return Result{}, errs.New(errs.KindQueryParse, "empty query")
	}
	s := analyze(text)
	rel, err := s.relation()
	if err != nil {
		metrics.ParseTotal.WithLabelValues("pattern", "error").Inc()
		logger.L().Debug("parse_fail", "strategy", "pattern", "text", text, "err", err)
		return Result{}, err
	}
	metrics.ParseTotal.WithLabelValues("pattern", string(rel.Kind)).Inc()
	logger.L().Debug("parse_ok", "strategy", "pattern", "relation", rel.Kind)
	return Result{Relation: rel, Tokens: s.Words}, nil
}

func (s *Sentence) relation() (Relation, error) {
	spans := filterSpans(matchSpans(s.Tokens, Rules))
	if len(spans) == 0 {
		return s.defaultParse()
	}
	sp, err := s.polarity(spans[0])
	if err != nil {
		return Relation{}, err
	}
	return s.extract(sp)
}

// negations：紧邻 span 之前的否定词翻转的关系
var negations = map[Kind]Kind{
	KindCoveredBy:         KindDisjoint,
	KindDisjoint:          KindCoveredBy,
	KindNear:              KindNotNear,
	KindNotNear:           KindNear,
	KindWithinDistanceOf:  KindOutsideDistanceOf,
	KindOutsideDistanceOf: KindWithinDistanceOf,
	KindWithinTimeOf:      KindOutsideTimeOf,
	KindOutsideTimeOf:     KindWithinTimeOf,
}

// polarity：更长的无否定 span 会吞掉与之重叠的 "not ..." 规则，此处把紧邻的否定词补回
// 约束：无对应反关系（buffer、isochrone、route）时报 query_parse，不返回相反的几何
func (s *Sentence) polarity(sp span) (span, error) {
	if sp.Start == 0 || !notWord(s.Tokens[sp.Start-1]) || notWord(s.Tokens[sp.Start]) {
		return sp, nil
	}
	k, ok := negations[sp.Label]
	if !ok {
		return span{}, errs.New(errs.KindQueryParse, "cannot negate %s in %q", sp.Label, s.Text)
	}
	logger.L().Debug("parse_negated", "from", sp.Label, "to", k)
	sp.Label = k
	return sp, nil
}
