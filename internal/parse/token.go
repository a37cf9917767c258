package parse

import (
	"regexp"
	"strings"
	"unicode"
)

// Tag：词性标签；DISTANCE/DURATION 为合并后的数量实体
type Tag string

const (
	TagNoun     Tag = "NOUN"
	TagPropn    Tag = "PROPN"
	TagAdj      Tag = "ADJ"
	TagAdv      Tag = "ADV"
	TagAdp      Tag = "ADP"
	TagDet      Tag = "DET"
	TagVerb     Tag = "VERB"
	TagPart     Tag = "PART"
	TagPron     Tag = "PRON"
	TagCconj    Tag = "CCONJ"
	TagNum      Tag = "NUM"
	TagPunct    Tag = "PUNCT"
	TagDistance Tag = "DISTANCE"
	TagDuration Tag = "DURATION"
)

// Token：标注后的词
// Head 为依存父节点下标（根为 -1），Chunk 为所在名词块下标（不在块内为 -1）
type Token struct {
	Text  string
	Lower string
	Tag   Tag
	Head  int
	Dep   string
	Chunk int
}

var closedClass = map[string]Tag{}

func init() {
	for tag, words := range map[Tag][]string{
		TagAdp: {"in", "inside", "within", "near", "of", "from", "to", "outside", "around", "along",
			"between", "at", "by", "on", "than", "beyond", "under", "over", "across", "into", "for",
			"with", "through", "toward", "towards", "past", "behind", "via", "about"},
		TagDet:   {"a", "an", "the", "some", "any", "all", "every", "this", "that", "these", "those", "each"},
		TagVerb:  {"find", "show", "get", "give", "list", "are", "is", "be", "want", "need", "search", "locate", "display", "looking", "look", "can", "could", "map"},
		TagPart:  {"not", "n't"},
		TagAdj:   {"close", "closest", "next", "far", "less", "more", "least", "most", "further", "farther", "reachable", "nearest"},
		TagAdv:   {"away", "nearby", "where", "how", "there"},
		TagPron:  {"i", "me", "we", "us", "you", "my", "our", "what", "which", "it"},
		TagCconj: {"and", "or", "but"},
	} {
		for _, w := range words {
			closedClass[w] = tag
		}
	}
	for _, w := range []string{"drive", "driving", "walk", "walking", "bike", "biking", "cycle", "cycling"} {
		closedClass[w] = TagVerb
	}
}

var numberWords = map[string]string{
	"one": "1", "two": "2", "three": "3", "four": "4", "five": "5", "six": "6", "seven": "7",
	"eight": "8", "nine": "9", "ten": "10", "fifteen": "15", "twenty": "20", "thirty": "30",
	"forty": "40", "fifty": "50", "sixty": "60", "hundred": "100",
}

var (
	numberRe   = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
	compoundRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)-?([a-z]+)$`)
)

const leadingPunct = `"'(`
const trailingPunct = `,.;:!?)"'`

// tokenize：按空白切分，首尾标点拆成独立词
func tokenize(text string) []string {
	var out []string
	for _, w := range strings.Fields(text) {
		for len(w) > 0 && strings.ContainsRune(leadingPunct, rune(w[0])) {
			out = append(out, w[:1])
			w = w[1:]
		}
		var tail []string
		for len(w) > 0 && strings.ContainsRune(trailingPunct, rune(w[len(w)-1])) {
			tail = append([]string{w[len(w)-1:]}, tail...)
			w = w[:len(w)-1]
		}
		if w != "" {
			out = append(out, w)
		}
		out = append(out, tail...)
	}
	return out
}

// tag：词典标注 + 数量实体合并
// 约束：数字后跟长度单位合并为 DISTANCE，后跟时间单位合并为 DURATION；"500m"、"20-minute" 整词识别
func tag(words []string) []Token {
	toks := make([]Token, 0, len(words))
	for i := 0; i < len(words); i++ {
		w := words[i]
		lw := strings.ToLower(w)
		num, isNum := lw, numberRe.MatchString(lw)
		if d, ok := numberWords[lw]; ok {
			num, isNum = d, true
		}
		if isNum && i+1 < len(words) {
			next := strings.ToLower(words[i+1])
			if isDistanceUnit(next) || isDurationUnit(next) {
				t := TagDistance
				if isDurationUnit(next) {
					t = TagDuration
				}
				text := num + " " + next
				toks = append(toks, Token{Text: text, Lower: text, Tag: t})
				i++
				continue
			}
		}
		if m := compoundRe.FindStringSubmatch(lw); m != nil {
			switch {
			case isDistanceUnit(m[2]):
				toks = append(toks, Token{Text: lw, Lower: lw, Tag: TagDistance})
				continue
			case isDurationUnit(m[2]):
				toks = append(toks, Token{Text: lw, Lower: lw, Tag: TagDuration})
				continue
			}
		}
		toks = append(toks, Token{Text: w, Lower: lw, Tag: wordTag(words, i, lw, isNum)})
	}
	for i := range toks {
		toks[i].Head = -1
		toks[i].Chunk = -1
	}
	return toks
}

func wordTag(words []string, i int, lw string, isNum bool) Tag {
	w := words[i]
	switch {
	case isNum:
		return TagNum
	case isPunct(w):
		return TagPunct
	}
	if t, ok := closedClass[lw]; ok {
		if _, method := methodWords[lw]; method && t == TagVerb && beforeNoun(words, i) {
			return TagNoun
		}
		return t
	}
	if capitalized(w) {
		if i > 0 {
			return TagPropn
		}
		if i+1 < len(words) && capitalized(words[i+1]) {
			if _, ok := closedClass[strings.ToLower(words[i+1])]; !ok {
				return TagPropn
			}
		}
	}
	return TagNoun
}

// beforeNoun："bike shops" 中的方式词作名词修饰语
func beforeNoun(words []string, i int) bool {
	if i+1 >= len(words) {
		return false
	}
	next := strings.ToLower(words[i+1])
	if _, ok := closedClass[next]; ok || isPunct(next) || numberRe.MatchString(next) {
		return false
	}
	return true
}

func capitalized(w string) bool {
	for _, r := range w {
		return unicode.IsUpper(r)
	}
	return false
}

func isPunct(w string) bool {
	for _, r := range w {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			return false
		}
	}
	return w != ""
}

func isFunction(t Token) bool {
	switch t.Tag {
	case TagAdp, TagPart, TagAdj, TagAdv:
		return true
	case TagVerb:
		_, ok := methodWords[t.Lower]
		return ok
	}
	return false
}
