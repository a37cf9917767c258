package parse

import (
	"geoquery/internal/errs"
)

func (s *Sentence) missing(what string) error {
	return errs.New(errs.KindQueryParse, "could not find %s in %q", what, s.Text)
}

// extract：按关系标签抽取论元
func (s *Sentence) extract(sp span) (Relation, error) {
	rel := Relation{Kind: sp.Label}
	var err error
	switch sp.Label {
	case KindCoveredBy, KindDisjoint, KindNear, KindNotNear:
		rel.Subject, rel.Object, err = s.subjectObject(sp)
		if err == nil && (sp.Label == KindNear || sp.Label == KindNotNear) {
			rel.Distance = &Distance{Magnitude: NearDefaultMeters, Unit: "m", Meters: NearDefaultMeters}
			if d, ok := s.quantity(sp, TagDistance, true); ok {
				if v, perr := ParseDistance(d); perr == nil {
					rel.Distance = &v
				}
			}
		}
	case KindWithinDistanceOf, KindOutsideDistanceOf:
		if rel.Subject, rel.Object, err = s.subjectObject(sp); err != nil {
			break
		}
		rel.Distance, err = s.distance(sp, false)
	case KindWithinTimeOf, KindOutsideTimeOf:
		if rel.Subject, rel.Object, err = s.subjectObject(sp); err != nil {
			break
		}
		rel.Duration, err = s.duration(sp, false)
		rel.Method = s.method()
	case KindBuffer:
		if rel.Object, err = s.object(sp); err != nil {
			break
		}
		rel.Distance, err = s.distance(sp, true)
	case KindIsochrone:
		if rel.Object, err = s.object(sp); err != nil {
			break
		}
		rel.Duration, err = s.duration(sp, true)
		rel.Method = s.method()
	case KindRoute:
		err = s.route(sp, &rel)
		rel.Method = s.method()
	default:
		err = errs.New(errs.KindQueryParse, "no extractor for %s in %q", sp.Label, s.Text)
	}
	if err != nil {
		return Relation{}, err
	}
	return rel, nil
}

// subjectObject：主语取 span 根的最近祖先名词块，宾语取 span 子树中第一个 span 外名词块
func (s *Sentence) subjectObject(sp span) (*Place, *Place, error) {
	root := s.spanRoot(sp)
	subj, ok := s.ancestorChunk(root, sp)
	if !ok {
		if subj, ok = s.chunkBefore(sp); !ok {
			return nil, nil, s.missing("a subject")
		}
	}
	obj, ok := s.descendantChunk(root, sp)
	if !ok || obj == subj {
		if obj, ok = s.chunkAfter(sp.End, sp); !ok {
			return nil, nil, s.missing("an object")
		}
	}
	return s.place(subj), s.place(obj), nil
}

func (s *Sentence) object(sp span) (*Place, error) {
	obj, ok := s.descendantChunk(s.spanRoot(sp), sp)
	if !ok {
		if obj, ok = s.chunkAfter(sp.End, sp); !ok {
			return nil, s.missing("an object")
		}
	}
	return s.place(obj), nil
}

// quantity：先在 span 内找数量实体，anywhere 为真时再扫整句
func (s *Sentence) quantity(sp span, t Tag, anywhere bool) (string, bool) {
	for i := sp.Start; i < sp.End; i++ {
		if s.Tokens[i].Tag == t {
			return s.Tokens[i].Text, true
		}
	}
	if anywhere {
		for _, tok := range s.Tokens {
			if tok.Tag == t {
				return tok.Text, true
			}
		}
	}
	return "", false
}

func (s *Sentence) distance(sp span, anywhere bool) (*Distance, error) {
	text, ok := s.quantity(sp, TagDistance, anywhere)
	if !ok {
		return nil, s.missing("a distance")
	}
	d, err := ParseDistance(text)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Sentence) duration(sp span, anywhere bool) (*Duration, error) {
	text, ok := s.quantity(sp, TagDuration, anywhere)
	if !ok {
		return nil, s.missing("a duration")
	}
	d, err := ParseDuration(text)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// method：整句中第一个出行方式词，缺省 drive
func (s *Sentence) method() string {
	for _, t := range s.Tokens {
		if m, ok := methodWords[t.Lower]; ok {
			return m
		}
	}
	return DefaultMethod
}

// route：优先 from X / to Y；否则取 span 后的前两个名词块；along 所挂的名词块为沿途目标
func (s *Sentence) route(sp span, rel *Relation) error {
	none := span{}
	var start, end *Chunk
	for i := sp.Start; i < len(s.Tokens); i++ {
		switch s.Tokens[i].Lower {
		case "from":
			if c, ok := s.chunkAfter(i+1, none); ok && start == nil && !s.isRouteWord(c) {
				start = &c
			}
		case "to":
			if c, ok := s.chunkAfter(i+1, none); ok && end == nil && !s.isRouteWord(c) {
				end = &c
			}
		}
	}
	if start == nil || end == nil {
		first, ok := s.chunkAfter(sp.End, sp)
		if !ok {
			return s.missing("a route start")
		}
		second, ok := s.chunkAfter(first.End, sp)
		if !ok {
			return s.missing("a route end")
		}
		start, end = &first, &second
	}
	rel.Start, rel.End = s.place(*start), s.place(*end)

	taken := func(c Chunk) bool { return c == *start || c == *end || s.isRouteWord(c) }
	for i, t := range s.Tokens {
		if t.Lower != "along" {
			continue
		}
		if c, ok := s.chunkOf(t.Head); ok && !taken(c) {
			rel.Along = s.place(c)
			return nil
		}
		if c, ok := s.descendantChunk(i, span{Start: i, End: i + 1}); ok && !taken(c) {
			rel.Along = s.place(c)
			return nil
		}
	}
	if c, ok := s.ancestorChunk(s.spanRoot(sp), sp); ok && !taken(c) && c.End <= sp.Start {
		rel.Along = s.place(c)
	} else if c, ok := s.chunkBefore(sp); ok && !taken(c) {
		rel.Along = s.place(c)
	}
	return nil
}

func (s *Sentence) isRouteWord(c Chunk) bool {
	return routeWord(s.Tokens[c.Head])
}

// defaultParse：无模式命中时，以主名词块为主语；块内或句中另有专有名词短语时视为隐含的 covered_by
func (s *Sentence) defaultParse() (Relation, error) {
	if len(s.Chunks) == 0 {
		return Relation{}, errs.New(errs.KindQueryParse, "no noun phrase in %q", s.Text)
	}
	main := s.mainChunk()

	if subj, obj, ok := s.splitProperRun(main); ok {
		return Relation{Kind: KindCoveredBy, Subject: subj, Object: obj}, nil
	}
	mp := s.place(main)
	if !mp.Named {
		for _, c := range s.Chunks {
			if c == main {
				continue
			}
			if p := s.place(c); p.Named {
				return Relation{Kind: KindCoveredBy, Subject: mp, Object: p}, nil
			}
		}
	}
	return Relation{Kind: KindSearch, Subject: mp}, nil
}

func (s *Sentence) mainChunk() Chunk {
	if c, ok := s.chunkOf(s.Root); ok {
		return c
	}
	for _, ch := range s.children[s.Root] {
		if s.Tokens[ch].Dep != "dobj" {
			continue
		}
		if c, ok := s.chunkOf(ch); ok {
			return c
		}
	}
	return s.Chunks[0]
}

// splitProperRun："San Francisco coffee shops" → 主语 coffee shops，宾语 San Francisco
func (s *Sentence) splitProperRun(c Chunk) (*Place, *Place, bool) {
	runStart, runEnd := -1, -1
	for i := c.Start; i < c.End; i++ {
		if s.Tokens[i].Tag != TagPropn {
			if runStart >= 0 {
				break
			}
			continue
		}
		if runStart < 0 {
			runStart = i
		}
		runEnd = i + 1
	}
	if runStart < 0 {
		return nil, nil, false
	}
	subj := &Place{}
	obj := &Place{Named: true}
	for i := c.Start; i < c.End; i++ {
		t := s.Tokens[i]
		switch {
		case i >= runStart && i < runEnd:
			obj.Value = append(obj.Value, t.Text)
		case t.Tag != TagDet:
			subj.Value = append(subj.Value, t.Text)
		}
	}
	if len(subj.Value) == 0 {
		return nil, nil, false
	}
	return subj, obj, true
}
