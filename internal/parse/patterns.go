package parse

import "sort"

// TokenPred：单个词的匹配条件
type TokenPred func(Token) bool

// PatternRule：带标签的词条件序列；在标注后的词序列上做确定性的有限扫描
type PatternRule struct {
	Label Kind
	Preds []TokenPred
}

type span struct {
	Start int
	End   int
	Label Kind
	rule  int
}

func (sp span) overlaps(start, end int) bool {
	return start < sp.End && sp.Start < end
}

func (sp span) length() int { return sp.End - sp.Start }

// Lit：小写原文属于给定词之一
func Lit(words ...string) TokenPred {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return func(t Token) bool { return set[t.Lower] }
}

// TagIs：词性为给定标签
func TagIs(tag Tag) TokenPred {
	return func(t Token) bool { return t.Tag == tag }
}

// Method：出行方式词
func Method() TokenPred {
	return func(t Token) bool {
		_, ok := methodWords[t.Lower]
		return ok
	}
}

func rule(label Kind, preds ...TokenPred) PatternRule {
	return PatternRule{Label: label, Preds: preds}
}

var (
	dist      = TagIs(TagDistance)
	dur       = TagIs(TagDuration)
	ofFrom    = Lit("of", "from")
	by        = Lit("by", "on")
	notWord   = Lit("not", "n't")
	inWord    = Lit("in", "inside", "within")
	isoNoun   = Lit("isochrone", "isochrones")
	routeWord = Lit("route", "routes", "directions", "path", "way")
)

// Rules：关系模式词典
// 约束：同长同起点时按词典顺序取先出现的规则
var Rules = []PatternRule{
	rule(KindCoveredBy, inWord),
	rule(KindDisjoint, notWord, inWord),
	rule(KindDisjoint, Lit("outside")),
	rule(KindDisjoint, Lit("outside"), Lit("of")),

	rule(KindNear, Lit("near", "nearby", "around")),
	rule(KindNear, Lit("close", "next"), Lit("to")),
	rule(KindNear, Lit("within"), Lit("walking", "driving", "biking"), Lit("distance"), Lit("of", "from", "to")),
	rule(KindNotNear, notWord, Lit("near")),
	rule(KindNotNear, notWord, Lit("close", "next"), Lit("to")),
	rule(KindNotNear, Lit("far", "away"), Lit("from")),

	rule(KindWithinDistanceOf, Lit("within"), dist, ofFrom),
	rule(KindWithinDistanceOf, dist, ofFrom),
	rule(KindWithinDistanceOf, Lit("less", "fewer"), Lit("than"), dist, ofFrom),
	rule(KindWithinDistanceOf, Lit("under"), dist, ofFrom),
	rule(KindWithinDistanceOf, dist, Lit("away"), Lit("from")),
	rule(KindOutsideDistanceOf, Lit("more", "further", "farther"), Lit("than"), dist, ofFrom),
	rule(KindOutsideDistanceOf, Lit("more", "further", "farther"), Lit("than"), dist, Lit("away"), Lit("from")),
	rule(KindOutsideDistanceOf, Lit("at"), Lit("least"), dist, ofFrom),
	rule(KindOutsideDistanceOf, Lit("at"), Lit("least"), dist, Lit("away"), Lit("from")),
	rule(KindOutsideDistanceOf, Lit("beyond", "over"), dist, ofFrom),

	rule(KindWithinTimeOf, Lit("within"), dur, ofFrom),
	rule(KindWithinTimeOf, Lit("within"), dur, Method(), ofFrom),
	rule(KindWithinTimeOf, Lit("within"), Lit("a", "an"), dur, Method(), ofFrom),
	rule(KindWithinTimeOf, Lit("within"), dur, by, Method(), ofFrom),
	rule(KindWithinTimeOf, dur, ofFrom),
	rule(KindWithinTimeOf, dur, Method(), ofFrom),
	rule(KindWithinTimeOf, dur, by, Method(), ofFrom),
	rule(KindWithinTimeOf, Lit("less", "fewer"), Lit("than"), dur, ofFrom),
	rule(KindWithinTimeOf, Lit("less", "fewer"), Lit("than"), dur, Method(), ofFrom),
	rule(KindWithinTimeOf, Lit("less", "fewer"), Lit("than"), dur, by, Method(), ofFrom),
	rule(KindWithinTimeOf, Lit("under"), dur, ofFrom),
	rule(KindWithinTimeOf, Lit("under"), dur, by, Method(), ofFrom),
	rule(KindOutsideTimeOf, Lit("more", "further", "farther"), Lit("than"), dur, ofFrom),
	rule(KindOutsideTimeOf, Lit("more", "further", "farther"), Lit("than"), dur, Method(), ofFrom),
	rule(KindOutsideTimeOf, Lit("more", "further", "farther"), Lit("than"), dur, by, Method(), ofFrom),
	rule(KindOutsideTimeOf, Lit("at"), Lit("least"), dur, ofFrom),
	rule(KindOutsideTimeOf, Lit("at"), Lit("least"), dur, Method(), ofFrom),
	rule(KindOutsideTimeOf, Lit("at"), Lit("least"), dur, by, Method(), ofFrom),
	rule(KindOutsideTimeOf, Lit("beyond", "over"), dur, ofFrom),

	rule(KindBuffer, Lit("buffer", "buffers")),
	rule(KindBuffer, dist, Lit("buffer"), Lit("around", "of", "on")),
	rule(KindBuffer, Lit("buffer"), Lit("of"), dist, Lit("around", "of", "on")),
	rule(KindBuffer, dist, Lit("around")),

	rule(KindIsochrone, isoNoun),
	rule(KindIsochrone, dur, Method(), isoNoun),
	rule(KindIsochrone, dur, isoNoun),
	rule(KindIsochrone, Lit("reachable"), Lit("within", "in"), dur, ofFrom),
	rule(KindIsochrone, Lit("reachable"), Lit("within", "in"), dur, Method(), ofFrom),

	rule(KindRoute, routeWord),
	rule(KindRoute, routeWord, Lit("from", "to", "between")),
	rule(KindRoute, Lit("between")),
}

// matchSpans：所有规则在所有起点上的命中
func matchSpans(toks []Token, rules []PatternRule) []span {
	var out []span
	for ri, r := range rules {
		for start := 0; start+len(r.Preds) <= len(toks); start++ {
			ok := true
			for k, p := range r.Preds {
				if !p(toks[start+k]) {
					ok = false
					break
				}
			}
			if ok {
				out = append(out, span{Start: start, End: start + len(r.Preds), Label: r.Label, rule: ri})
			}
		}
	}
	return out
}

// filterSpans：先长后短、同长先左，贪心保留互不重叠的 span
func filterSpans(spans []span) []span {
	sorted := append([]span(nil), spans...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.length() != b.length() {
			return a.length() > b.length()
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.rule < b.rule
	})
	var kept []span
	for _, sp := range sorted {
		clash := false
		for _, k := range kept {
			if k.overlaps(sp.Start, sp.End) {
				clash = true
				break
			}
		}
		if !clash {
			kept = append(kept, sp)
		}
	}
	return kept
}
