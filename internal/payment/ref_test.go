package payment

import (
	"strings"
	"testing"
	"time"
)

func TestRefPrefixMatchesDate(t *testing.T) {
	fixed := time.Date(2026, 8, 28, 10, 30, 0, 0, time.UTC)
	gen := &RefGenerator{Now: func() time.Time { return fixed }}
	ref := gen.Next()
	if !strings.HasPrefix(ref, "260828_") {
		t.Fatalf("expected date prefix 260828_, got %q", ref)
	}
}

func TestRefUniqueness(t *testing.T) {
	gen := &RefGenerator{}
	seen := make(map[string]struct{}, 10_000)
	for i := 0; i < 10_000; i++ {
		ref := gen.Next()
		if _, dup := seen[ref]; dup {
			t.Fatalf("duplicate reference after %d iterations: %q", i, ref)
		}
		seen[ref] = struct{}{}
	}
}
