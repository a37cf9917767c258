package store

import "testing"

func TestSearchText(t *testing.T) {
	tests := []struct {
		tags map[string]string
		want string
	}{
		{nil, ""},
		{map[string]string{"amenity": "pub", "cuisine": "irish_food"}, "pub irish food"},
		{map[string]string{"building": "yes", "name": "Ferry Building"}, "Ferry Building"},
	}
	for _, tt := range tests {
		if got := searchText(tt.tags); got != tt.want {
			t.Errorf("searchText(%v) = %q, want %q", tt.tags, got, tt.want)
		}
	}
}
