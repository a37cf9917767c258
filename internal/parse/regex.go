package parse

import (
	"regexp"
	"strings"

	"geoquery/internal/errs"
	"geoquery/internal/logger"
	"geoquery/internal/metrics"
)

// 单一锚定模式：subject [ (not )?in object ]
var regexQuery = regexp.MustCompile(`(?i)^\s*(?:(?:find|show(?:\s+me)?|list|get)\s+)?(.+?)(?:\s+(not\s+in|in)\s+(.+?))?\s*[.?!]?\s*$`)

// ParseRegex：廉价回退策略，只识别 in / not in，从不抽取距离、时长或多地点关系
func ParseRegex(text string) (Result, error) {
	m := regexQuery.FindStringSubmatch(text)
	if m == nil || strings.TrimSpace(m[1]) == "" {
		metrics.ParseTotal.WithLabelValues("regex", "error").Inc()
		return Result{}, errs.New(errs.KindQueryParse, "could not parse %q", text)
	}
	rel := Relation{Kind: KindSearch, Subject: regexPlace(m[1])}
	if m[2] != "" {
		rel.Kind = KindCoveredBy
		if strings.Contains(strings.ToLower(m[2]), "not") {
			rel.Kind = KindDisjoint
		}
		rel.Object = regexPlace(m[3])
	}
	metrics.ParseTotal.WithLabelValues("regex", string(rel.Kind)).Inc()
	logger.L().Debug("parse_ok", "strategy", "regex", "relation", rel.Kind)
	return Result{Relation: rel, Tokens: strings.Fields(text)}, nil
}

func regexPlace(s string) *Place {
	p := &Place{Value: strings.Fields(s)}
	for _, w := range p.Value {
		if capitalized(w) {
			p.Named = true
			break
		}
	}
	return p
}
