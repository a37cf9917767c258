package parse

import (
	"math"
	"reflect"
	"testing"

	"geoquery/internal/errs"
)

func TestParseScenarios(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		kind    Kind
		subject []string
		object  []string
		named   bool
	}{
		{"covered_by", "coffee shops in San Francisco", KindCoveredBy, []string{"coffee", "shops"}, []string{"San", "Francisco"}, true},
		{"disjoint", "cafes not in Oakland", KindDisjoint, []string{"cafes"}, []string{"Oakland"}, true},
		{"near", "parks near the river", KindNear, []string{"parks"}, []string{"river"}, false},
		{"not near", "schools far from the highway", KindNotNear, []string{"schools"}, []string{"highway"}, false},
		{"verb rooted", "which restaurants are near the station?", KindNear, []string{"restaurants"}, []string{"station"}, false},
		{"within distance", "restaurants within 500m of the school", KindWithinDistanceOf, []string{"restaurants"}, []string{"school"}, false},
		{"outside distance", "hotels more than 2 km from the airport", KindOutsideDistanceOf, []string{"hotels"}, []string{"airport"}, false},
		{"within time", "bars within 20 minutes of Alamo Square Park", KindWithinTimeOf, []string{"bars"}, []string{"Alamo", "Square", "Park"}, true},
		{"negated within distance", "hospitals not within 5 km of a fire station", KindOutsideDistanceOf, []string{"hospitals"}, []string{"fire", "station"}, false},
		{"negated outside distance", "hotels not more than 2 km from the airport", KindWithinDistanceOf, []string{"hotels"}, []string{"airport"}, false},
		{"negated walking distance", "cafes not within walking distance of the park", KindNotNear, []string{"cafes"}, []string{"park"}, false},
		{"negated within time", "bars not within 20 minutes of Alamo Square Park", KindOutsideTimeOf, []string{"bars"}, []string{"Alamo", "Square", "Park"}, true},
		{"time by method", "homes less than 15 minutes by bike from downtown", KindWithinTimeOf, []string{"homes"}, []string{"downtown"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Parse(tt.text)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.text, err)
			}
			rel := res.Relation
			if rel.Kind != tt.kind {
				t.Fatalf("kind = %q, want %q", rel.Kind, tt.kind)
			}
			if rel.Subject == nil || !reflect.DeepEqual(rel.Subject.Value, tt.subject) {
				t.Errorf("subject = %+v, want %v", rel.Subject, tt.subject)
			}
			if rel.Object == nil || !reflect.DeepEqual(rel.Object.Value, tt.object) {
				t.Errorf("object = %+v, want %v", rel.Object, tt.object)
			}
			if rel.Object != nil && rel.Object.Named != tt.named {
				t.Errorf("object named = %v, want %v", rel.Object.Named, tt.named)
			}
		})
	}
}

func TestParseSlots(t *testing.T) {
	res, err := Parse("bars within 20 minutes of Alamo Square Park")
	if err != nil {
		t.Fatal(err)
	}
	d := res.Relation.Duration
	if d == nil || d.Magnitude != 20 || d.Unit != "min" || d.Seconds != 1200 {
		t.Errorf("duration = %+v, want 20 min", d)
	}
	if res.Relation.Method != "drive" {
		t.Errorf("method = %q, want drive", res.Relation.Method)
	}

	res, err = Parse("cafes within 10 minutes walk of the station")
	if err != nil {
		t.Fatal(err)
	}
	if res.Relation.Kind != KindWithinTimeOf || res.Relation.Method != "walk" {
		t.Errorf("relation = %+v, want within_time_of by walk", res.Relation)
	}

	res, err = Parse("hotels more than 2 km from the airport")
	if err != nil {
		t.Fatal(err)
	}
	if res.Relation.Distance == nil || res.Relation.Distance.Meters != 2000 {
		t.Errorf("distance = %+v, want 2000 m", res.Relation.Distance)
	}

	res, err = Parse("parks near the river")
	if err != nil {
		t.Fatal(err)
	}
	if res.Relation.Distance == nil || res.Relation.Distance.Meters != NearDefaultMeters {
		t.Errorf("near distance = %+v, want default", res.Relation.Distance)
	}
}

func TestParseNegation(t *testing.T) {
	tests := []struct {
		text string
		want Kind
	}{
		{"cafes not in Oakland", KindDisjoint},
		{"cafes not near the park", KindNotNear},
		{"cafes not within walking distance of the park", KindNotNear},
		{"hospitals not within 5 km of a fire station", KindOutsideDistanceOf},
		{"hotels not more than 2 km from the airport", KindWithinDistanceOf},
		{"bars not within 20 minutes of Alamo Square Park", KindOutsideTimeOf},
		{"bars not more than 20 minutes from Alamo Square Park", KindWithinTimeOf},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			res, err := Parse(tt.text)
			if err != nil {
				t.Fatal(err)
			}
			if res.Relation.Kind != tt.want {
				t.Errorf("kind = %q, want %q", res.Relation.Kind, tt.want)
			}
		})
	}

	if _, err := Parse("coffee shops not between Oakland and Berkeley"); !errs.Is(err, errs.KindQueryParse) {
		t.Errorf("negated route err = %v, want query_parse", err)
	}
}

func TestParseTimeByMethod(t *testing.T) {
	res, err := Parse("homes less than 15 minutes by bike from downtown")
	if err != nil {
		t.Fatal(err)
	}
	rel := res.Relation
	if rel.Kind != KindWithinTimeOf || rel.Method != "bike" {
		t.Fatalf("relation = %+v, want within_time_of by bike", rel)
	}
	if rel.Duration == nil || rel.Duration.Seconds != 900 {
		t.Errorf("duration = %+v, want 900 s", rel.Duration)
	}

	res, err = Parse("offices at least 30 minutes by car from the airport")
	if err != nil {
		t.Fatal(err)
	}
	if res.Relation.Kind != KindOutsideTimeOf || res.Relation.Method != "drive" {
		t.Errorf("relation = %+v, want outside_time_of by drive", res.Relation)
	}
}

func TestParseBufferAndIsochrone(t *testing.T) {
	res, err := Parse("500m buffer around the river")
	if err != nil {
		t.Fatal(err)
	}
	rel := res.Relation
	if rel.Kind != KindBuffer || rel.Object == nil || rel.Object.Text() != "river" || rel.Distance.Meters != 500 {
		t.Errorf("buffer relation = %+v", rel)
	}
	if rel.Subject != nil {
		t.Errorf("buffer should have no subject, got %+v", rel.Subject)
	}

	res, err = Parse("15 minute walk isochrone from Union Square")
	if err != nil {
		t.Fatal(err)
	}
	rel = res.Relation
	if rel.Kind != KindIsochrone || rel.Object == nil || rel.Object.Text() != "Union Square" {
		t.Fatalf("isochrone relation = %+v", rel)
	}
	if rel.Duration.Seconds != 900 || rel.Method != "walk" {
		t.Errorf("isochrone slots = %+v method %q", rel.Duration, rel.Method)
	}
}

func TestParseRoute(t *testing.T) {
	tests := []struct {
		text  string
		start string
		end   string
		along string
	}{
		{"route from Oakland to Berkeley", "Oakland", "Berkeley", ""},
		{"gas stations along the route from Oakland to Berkeley", "Oakland", "Berkeley", "gas stations"},
		{"coffee shops between Oakland and Berkeley", "Oakland", "Berkeley", "coffee shops"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			res, err := Parse(tt.text)
			if err != nil {
				t.Fatal(err)
			}
			rel := res.Relation
			if rel.Kind != KindRoute {
				t.Fatalf("kind = %q, want route", rel.Kind)
			}
			if rel.Start.Text() != tt.start || rel.End.Text() != tt.end {
				t.Errorf("start/end = %q/%q", rel.Start.Text(), rel.End.Text())
			}
			along := ""
			if rel.Along != nil {
				along = rel.Along.Text()
			}
			if along != tt.along {
				t.Errorf("along = %q, want %q", along, tt.along)
			}
		})
	}
}

func TestParseDefault(t *testing.T) {
	res, err := Parse("San Francisco coffee shops")
	if err != nil {
		t.Fatal(err)
	}
	rel := res.Relation
	if rel.Kind != KindCoveredBy || rel.Subject.Text() != "coffee shops" || rel.Object.Text() != "San Francisco" || !rel.Object.Named {
		t.Errorf("implicit covered_by = %+v", rel)
	}

	res, err = Parse("Golden Gate Park")
	if err != nil {
		t.Fatal(err)
	}
	if res.Relation.Kind != KindSearch || !res.Relation.Subject.Named {
		t.Errorf("named search = %+v", res.Relation)
	}

	res, err = Parse("libraries")
	if err != nil {
		t.Fatal(err)
	}
	if res.Relation.Kind != KindSearch || res.Relation.Subject.Named || res.Relation.Subject.Text() != "libraries" {
		t.Errorf("plain search = %+v", res.Relation)
	}
}

func TestParseErrors(t *testing.T) {
	for _, text := range []string{"", "   ", "within", "near the", "500m of"} {
		if _, err := Parse(text); !errs.Is(err, errs.KindQueryParse) {
			t.Errorf("Parse(%q) err = %v, want query_parse", text, err)
		}
	}
}

func TestParseTokens(t *testing.T) {
	res, err := Parse("Find cafes, near the park?")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Find", "cafes", ",", "near", "the", "park", "?"}
	if !reflect.DeepEqual(res.Tokens, want) {
		t.Errorf("tokens = %v, want %v", res.Tokens, want)
	}
}

func TestTagMergesQuantities(t *testing.T) {
	tests := []struct {
		text string
		want Tag
		word string
	}{
		{"500m", TagDistance, "500m"},
		{"25 mi", TagDistance, "25 mi"},
		{"20-minute", TagDuration, "20-minute"},
		{"five miles", TagDistance, "5 miles"},
		{"3 hours", TagDuration, "3 hours"},
	}
	for _, tt := range tests {
		toks := tag(tokenize(tt.text))
		if len(toks) != 1 || toks[0].Tag != tt.want || toks[0].Text != tt.word {
			t.Errorf("tag(%q) = %+v", tt.text, toks)
		}
	}
}

func TestFilterSpansPrefersLongest(t *testing.T) {
	s := analyze("cafes not in Oakland")
	spans := filterSpans(matchSpans(s.Tokens, Rules))
	if len(spans) == 0 || spans[0].Label != KindDisjoint || spans[0].Start != 1 || spans[0].End != 3 {
		t.Fatalf("spans = %+v", spans)
	}
	for i := range spans {
		for j := i + 1; j < len(spans); j++ {
			if spans[i].overlaps(spans[j].Start, spans[j].End) {
				t.Errorf("kept spans overlap: %+v %+v", spans[i], spans[j])
			}
		}
	}
}

func TestParseDistance(t *testing.T) {
	tests := []struct {
		in     string
		meters float64
	}{
		{"500m", 500},
		{"25 mi", 40233.6},
		{"1.5 km", 1500},
		{"100 feet", 30.48},
		{"10 yards", 9.144},
	}
	for _, tt := range tests {
		d, err := ParseDistance(tt.in)
		if err != nil {
			t.Errorf("ParseDistance(%q): %v", tt.in, err)
			continue
		}
		if math.Abs(d.Meters-tt.meters) > 1e-6 {
			t.Errorf("ParseDistance(%q) = %v m, want %v", tt.in, d.Meters, tt.meters)
		}
	}
	for _, bad := range []string{"3 parsecs", "500", "far", "20 minutes"} {
		if _, err := ParseDistance(bad); !errs.Is(err, errs.KindQueryParse) {
			t.Errorf("ParseDistance(%q) err = %v, want query_parse", bad, err)
		}
	}
}

func TestParseDurationAndIsDuration(t *testing.T) {
	d, err := ParseDuration("20 minutes")
	if err != nil || d.Seconds != 1200 {
		t.Errorf("ParseDuration = %+v, %v", d, err)
	}
	if !IsDuration("2h") || IsDuration("2 km") || IsDuration("soon") {
		t.Error("IsDuration misclassified a token")
	}
}

func TestParseRegex(t *testing.T) {
	tests := []struct {
		text    string
		kind    Kind
		subject string
		object  string
	}{
		{"coffee shops in San Francisco", KindCoveredBy, "coffee shops", "San Francisco"},
		{"bars not in Oakland.", KindDisjoint, "bars", "Oakland"},
		{"show me pizza", KindSearch, "pizza", ""},
		{"cafes within 5 km of Oakland", KindSearch, "cafes within 5 km of Oakland", ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			res, err := ParseRegex(tt.text)
			if err != nil {
				t.Fatal(err)
			}
			rel := res.Relation
			if rel.Kind != tt.kind || rel.Subject.Text() != tt.subject {
				t.Errorf("relation = %+v", rel)
			}
			if rel.Distance != nil || rel.Duration != nil {
				t.Error("regex strategy must not extract slots")
			}
			obj := ""
			if rel.Object != nil {
				obj = rel.Object.Text()
			}
			if obj != tt.object {
				t.Errorf("object = %q, want %q", obj, tt.object)
			}
		})
	}
	if _, err := ParseRegex("   "); !errs.Is(err, errs.KindQueryParse) {
		t.Errorf("blank regex parse err = %v", err)
	}
}
