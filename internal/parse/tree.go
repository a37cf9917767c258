package parse

// Chunk：名词块 [Start, End)，Head 为末词
type Chunk struct {
	Start int
	End   int
	Head  int
}

// Sentence：标注、分块并建好依存树的句子
type Sentence struct {
	Text     string
	Words    []string
	Tokens   []Token
	Chunks   []Chunk
	Root     int
	children [][]int
}

func analyze(text string) *Sentence {
	words := tokenize(text)
	s := &Sentence{Text: text, Words: words, Tokens: tag(words), Root: -1}
	s.Chunks = nounChunks(s.Tokens)
	s.buildTree()
	return s
}

func isNominal(t Tag) bool { return t == TagNoun || t == TagPropn }

// nounChunks：DET? ADJ* (NOUN|PROPN)+
func nounChunks(toks []Token) []Chunk {
	var out []Chunk
	for i := 0; i < len(toks); {
		j := i
		if toks[j].Tag == TagDet {
			j++
		}
		for j < len(toks) && toks[j].Tag == TagAdj {
			j++
		}
		k := j
		for k < len(toks) && isNominal(toks[k].Tag) {
			k++
		}
		if k > j {
			out = append(out, Chunk{Start: i, End: k, Head: k - 1})
			i = k
			continue
		}
		i++
	}
	return out
}

// buildTree：启发式依存分析
//   - 块内词挂到块头
//   - 根：第一个非方式动词，否则第一个块头
//   - 介词/副词/否定等功能词：紧跟功能词时串成链，否则挂到最近的实词（块头、动词、数量实体）
//   - 数量实体与块头：紧跟功能词时作其宾语，否则挂到最近实词或根
//
// 约束：非根节点的父节点总在其左侧或为根，树无环
func (s *Sentence) buildTree() {
	toks := s.Tokens
	if len(toks) == 0 {
		return
	}
	for ci, c := range s.Chunks {
		for i := c.Start; i < c.End; i++ {
			toks[i].Chunk = ci
			if i == c.Head {
				continue
			}
			toks[i].Head = c.Head
			switch toks[i].Tag {
			case TagDet:
				toks[i].Dep = "det"
			case TagAdj:
				toks[i].Dep = "amod"
			default:
				toks[i].Dep = "compound"
			}
		}
	}

	root := -1
	for i, t := range toks {
		if t.Tag == TagVerb && !isFunction(t) {
			root = i
			break
		}
	}
	if root < 0 && len(s.Chunks) > 0 {
		root = s.Chunks[0].Head
	}
	if root < 0 {
		root = 0
	}
	s.Root = root
	toks[root].Head = -1
	toks[root].Dep = "ROOT"
	rootIsVerb := toks[root].Tag == TagVerb

	anchor, prev := -1, -1
	fallback := func() int {
		if anchor >= 0 {
			return anchor
		}
		return root
	}
	for i := 0; i < len(toks); i++ {
		t := &toks[i]
		if t.Chunk >= 0 && i != s.Chunks[t.Chunk].Head {
			continue
		}
		switch {
		case i == root:
		case isFunction(*t):
			if prev >= 0 && isFunction(toks[prev]) {
				t.Head = prev
			} else {
				t.Head = fallback()
			}
			t.Dep = "prep"
		case t.Tag == TagDistance || t.Tag == TagDuration:
			if prev >= 0 && isFunction(toks[prev]) {
				t.Head, t.Dep = prev, "pobj"
			} else {
				t.Head, t.Dep = fallback(), "npadvmod"
			}
		case t.Chunk >= 0:
			switch {
			case prev >= 0 && isFunction(toks[prev]):
				t.Head, t.Dep = prev, "pobj"
			case prev >= 0 && toks[prev].Tag == TagCconj && anchor >= 0 && toks[anchor].Chunk >= 0:
				t.Head, t.Dep = anchor, "conj"
			case rootIsVerb && i < root:
				t.Head, t.Dep = root, "nsubj"
			case rootIsVerb:
				t.Head, t.Dep = root, "dobj"
			default:
				t.Head, t.Dep = root, "dep"
			}
		default:
			t.Head = fallback()
			switch t.Tag {
			case TagPunct:
				t.Dep = "punct"
			case TagCconj:
				t.Dep = "cc"
			default:
				t.Dep = "dep"
			}
		}
		if t.Head == i {
			t.Head = -1
		}
		if i == root || t.Chunk >= 0 || t.Tag == TagDistance || t.Tag == TagDuration ||
			(t.Tag == TagVerb && !isFunction(*t)) {
			anchor = i
		}
		prev = i
	}

	s.children = make([][]int, len(toks))
	for i, t := range toks {
		if t.Head >= 0 {
			s.children[t.Head] = append(s.children[t.Head], i)
		}
	}
}

// chunkOf：以 i 为块头的名词块
func (s *Sentence) chunkOf(i int) (Chunk, bool) {
	if i < 0 || i >= len(s.Tokens) {
		return Chunk{}, false
	}
	ci := s.Tokens[i].Chunk
	if ci < 0 || s.Chunks[ci].Head != i {
		return Chunk{}, false
	}
	return s.Chunks[ci], true
}

// place：名词块去掉限定词后的短语
func (s *Sentence) place(c Chunk) *Place {
	p := &Place{}
	for i := c.Start; i < c.End; i++ {
		t := s.Tokens[i]
		if t.Tag == TagDet {
			continue
		}
		p.Value = append(p.Value, t.Text)
		if t.Tag == TagPropn {
			p.Named = true
		}
	}
	return p
}

// ancestorChunk：沿祖先链向上找最近的名词块；遇到动词时取其主语
func (s *Sentence) ancestorChunk(from int, sp span) (Chunk, bool) {
	seen := map[int]bool{}
	for p := s.Tokens[from].Head; p >= 0 && !seen[p]; p = s.Tokens[p].Head {
		seen[p] = true
		if c, ok := s.chunkOf(p); ok && !sp.overlaps(c.Start, c.End) {
			return c, true
		}
		if s.Tokens[p].Tag == TagVerb {
			for _, ch := range s.children[p] {
				if s.Tokens[ch].Dep != "nsubj" {
					continue
				}
				if c, ok := s.chunkOf(ch); ok {
					return c, true
				}
			}
		}
	}
	return Chunk{}, false
}

// descendantChunk：先序遍历子树，返回第一个落在 span 之外的名词块
func (s *Sentence) descendantChunk(from int, sp span) (Chunk, bool) {
	stack := []int{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n != from {
			if c, ok := s.chunkOf(n); ok && !sp.overlaps(c.Start, c.End) {
				return c, true
			}
		}
		kids := s.children[n]
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
	return Chunk{}, false
}

// chunkAfter：位置 i 及之后第一个不与 span 重叠的名词块
func (s *Sentence) chunkAfter(i int, sp span) (Chunk, bool) {
	for _, c := range s.Chunks {
		if c.Start >= i && !sp.overlaps(c.Start, c.End) {
			return c, true
		}
	}
	return Chunk{}, false
}

// chunkBefore：span 之前最近的名词块
func (s *Sentence) chunkBefore(sp span) (Chunk, bool) {
	for i := len(s.Chunks) - 1; i >= 0; i-- {
		if s.Chunks[i].End <= sp.Start {
			return s.Chunks[i], true
		}
	}
	return Chunk{}, false
}

// spanRoot：span 内父节点在 span 之外的第一个词
func (s *Sentence) spanRoot(sp span) int {
	for i := sp.Start; i < sp.End; i++ {
		h := s.Tokens[i].Head
		if h < sp.Start || h >= sp.End {
			return i
		}
	}
	return sp.Start
}
