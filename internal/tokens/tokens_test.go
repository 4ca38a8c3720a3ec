package tokens

import (
	"strings"
	"testing"
)

func TestEstimator_Count(t *testing.T) {
	e := NewEstimator()

	count, estimated, err := e.Count("inconnu", strings.Repeat("a", 400))
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if !estimated {
		t.Error("estimated = false, want true")
	}
	if count != 100 {
		t.Errorf("count = %d, want 100", count)
	}
}

func TestTiktokenCounter_SupportsModel(t *testing.T) {
	c := NewTiktokenCounter()

	tests := []struct {
		model string
		want  bool
	}{
		{"gpt-4o", true},
		{"gpt-3.5-turbo", true},
		{"o1-mini", true},
		{"mistral-large", false},
		{"claude-sonnet-4", false},
	}
	for _, tt := range tests {
		if got := c.SupportsModel(tt.model); got != tt.want {
			t.Errorf("SupportsModel(%q) = %v, want %v", tt.model, got, tt.want)
		}
	}
}

func TestTiktokenCounter_Count(t *testing.T) {
	c := NewTiktokenCounter()

	count, estimated, err := c.Count("gpt-4o", "Contrat de bail d'habitation entre les soussignés.")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if estimated {
		t.Error("estimated = true, want false")
	}
	if count == 0 {
		t.Error("count = 0, want > 0")
	}
}

func TestRegistry_FallsBackToEstimator(t *testing.T) {
	r := NewRegistry()
	r.Register(NewTiktokenCounter())

	// Unknown model lands on the estimator.
	count, estimated, err := r.Count("mistral-large", strings.Repeat("x", 40))
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if !estimated {
		t.Error("estimated = false, want true for unknown model")
	}
	if count != 10 {
		t.Errorf("count = %d, want 10", count)
	}

	// Known model uses the exact counter.
	_, estimated, err = r.Count("gpt-4o", "Bonjour")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if estimated {
		t.Error("estimated = true, want false for gpt model")
	}
}
