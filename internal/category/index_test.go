package category

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"golang.org/x/text/unicode/norm"
)

func defaultIndex(t *testing.T) *Index {
	t.Helper()
	rs, err := DefaultRecords()
	if err != nil {
		t.Fatalf("DefaultRecords: %v", err)
	}
	return Build(rs)
}

func contains(xs []string, want string) bool {
	for _, x := range xs {
		if x == want {
			return true
		}
	}
	return false
}

func TestQueryExactNameReturnsOwnKey(t *testing.T) {
	rs, err := DefaultRecords()
	if err != nil {
		t.Fatal(err)
	}
	idx := Build(rs)
	for _, r := range rs {
		t.Run(r.Key, func(t *testing.T) {
			got := idx.Query(r.Name)
			if !contains(got, r.Key) {
				t.Errorf("Query(%q) = %v, want it to contain %q", r.Name, got, r.Key)
			}
		})
	}
}

func TestQueryTiers(t *testing.T) {
	idx := defaultIndex(t)
	tests := []struct {
		name     string
		phrase   string
		wantTier Tier
		wantKeys []string
	}{
		{"alias and stripped feature suffix", "coffee shop", TierName, []string{"amenity/cafe", "amenity/cafe/coffee_shop"}},
		{"longest window beats shorter", "dog park", TierName, []string{"leisure/dog_park"}},
		{"single word inside sentence", "irish pub", TierName, []string{"amenity/pub"}},
		{"case folded", "SUPERMARKET", TierName, []string{"shop/supermarket"}},
		{"term tier", "coffee shops in san francisco", TierTerm, []string{"amenity/cafe"}},
		{"tag value tier", "fitness centre", TierTag, []string{"leisure/fitness_centre"}},
		{"fuzzy name", "libary", TierFuzzyName, []string{"amenity/library"}},
		{"fuzzy term", "expresso", TierFuzzyTerm, []string{"amenity/cafe"}},
		{"no match", "xyzzyq", TierNone, []string{}},
		{"empty", "   ", TierNone, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, tier := idx.QueryTier(tt.phrase)
			if tier != tt.wantTier {
				t.Errorf("QueryTier(%q) tier = %v, want %v", tt.phrase, tier, tt.wantTier)
			}
			if len(got) != len(tt.wantKeys) {
				t.Fatalf("QueryTier(%q) = %v, want %v", tt.phrase, got, tt.wantKeys)
			}
			for i := range got {
				if got[i] != tt.wantKeys[i] {
					t.Errorf("QueryTier(%q)[%d] = %q, want %q", tt.phrase, i, got[i], tt.wantKeys[i])
				}
			}
		})
	}
}

func TestQueryDecomposedAccentFallsToFuzzy(t *testing.T) {
	idx := defaultIndex(t)
	got, tier := idx.QueryTier("  Café ")
	if tier != TierFuzzyName {
		t.Errorf("tier = %v, want fuzzy_name", tier)
	}
	if !contains(got, "amenity/cafe") {
		t.Errorf("got %v, want amenity/cafe", got)
	}
}

func TestFuzzyThresholdIsStrict(t *testing.T) {
	idx := Build([]Record{{Key: "k", Name: "abc"}})
	// 一次编辑 / 3 个字符 = 0.333...，不低于阈值
	if got := idx.Query("abd"); len(got) != 0 {
		t.Errorf("Query(abd) = %v, want empty", got)
	}
	idx = Build([]Record{{Key: "k", Name: "abcdefg"}})
	if got := idx.Query("abcdefx"); !contains(got, "k") {
		t.Errorf("Query(abcdefx) = %v, want [k]", got)
	}
}

func TestFuzzyUnionsAllCandidates(t *testing.T) {
	idx := Build([]Record{
		{Key: "a", Name: "tavern"},
		{Key: "b", Name: "taverns"},
		{Key: "c", Name: "lantern"},
	})
	got := idx.Query("tavernx")
	if !contains(got, "a") || !contains(got, "b") {
		t.Errorf("Query(tavernx) = %v, want both a and b", got)
	}
	if contains(got, "c") {
		t.Errorf("Query(tavernx) = %v, did not expect c", got)
	}
}

func TestTagPlaceholdersAreNotIndexed(t *testing.T) {
	idx := Build([]Record{{Key: "building/yes", Name: "Building", Tags: map[string]string{"building": "yes"}}})
	if got := idx.Query("yes"); len(got) != 0 {
		t.Errorf("Query(yes) = %v, want empty", got)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Coffee   SHOP ", "coffee shop"},
		{"Crème\tBrûlée", norm.NFD.String("crème brûlée")},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConcurrentReaders(t *testing.T) {
	idx := defaultIndex(t)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if got := idx.Query("park"); !contains(got, "leisure/park") {
					t.Errorf("Query(park) = %v", got)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestClassify(t *testing.T) {
	idx := defaultIndex(t)
	tests := []struct {
		name string
		tags map[string]string
		want []string
	}{
		{"specific and general", map[string]string{"amenity": "cafe", "cuisine": "coffee_shop"}, []string{"amenity/cafe", "amenity/cafe/coffee_shop"}},
		{"placeholder yes", map[string]string{"building": "retail"}, []string{"building/yes"}},
		{"placeholder rejects no", map[string]string{"building": "no"}, nil},
		{"partial tags", map[string]string{"boundary": "administrative"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := idx.Classify(tt.tags)
			if len(got) != len(tt.want) {
				t.Fatalf("Classify() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Classify()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLoadRecordsRejectsDuplicates(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tax.json")
	if err := os.WriteFile(p, []byte(`[{"key":"a","name":"A"},{"key":"a","name":"B"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRecords(p); err == nil {
		t.Error("expected duplicate key error")
	}
}
