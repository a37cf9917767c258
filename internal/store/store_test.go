package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"geoquery/internal/errs"

	"github.com/lib/pq"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errs.Kind
	}{
		{"query canceled", &pq.Error{Code: "57014", Message: "canceling statement due to statement timeout"}, errs.KindStatementTimeout},
		{"wrapped cancel", fmt.Errorf("scan: %w", &pq.Error{Code: "57014"}), errs.KindStatementTimeout},
		{"deadline", context.DeadlineExceeded, errs.KindStatementTimeout},
		{"syntax", &pq.Error{Code: "42601"}, errs.KindExternal},
		{"other", errors.New("connection reset"), errs.KindExternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err)
			if errs.KindOf(got) != tt.want {
				t.Errorf("KindOf = %q, want %q", errs.KindOf(got), tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Error("mapped error should wrap the cause")
			}
		})
	}
}
