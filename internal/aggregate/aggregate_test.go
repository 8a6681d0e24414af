package aggregate

import (
	"math"
	"testing"

	"github.com/xtxerr/rebin/internal/errors"
)

func TestParseMethod(t *testing.T) {
	for _, name := range MethodNames() {
		m, err := ParseMethod(name)
		if err != nil {
			t.Errorf("ParseMethod(%q): %v", name, err)
		}
		if m.String() != name {
			t.Errorf("ParseMethod(%q) round-trip gave %q", name, m.String())
		}
	}

	if _, err := ParseMethod("median"); !errors.Is(err, errors.ErrUnknownMethod) {
		t.Errorf("ParseMethod(median): expected ErrUnknownMethod, got %v", err)
	}
}

func TestReduce(t *testing.T) {
	known := []float64{4, -2, 10, 1}

	tests := []struct {
		method Method
		want   float64
	}{
		{MethodAverage, 3.25},
		{MethodSum, 13},
		{MethodLast, 1},
		{MethodMax, 10},
		{MethodMin, -2},
		{MethodAbsMax, 10},
		{MethodAbsMin, 1},
	}

	for _, tt := range tests {
		got, err := Reduce(tt.method, known, len(known))
		if err != nil {
			t.Errorf("Reduce(%s): %v", tt.method, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Reduce(%s)=%g, want %g", tt.method, got, tt.want)
		}
	}
}

func TestReduce_AvgZero(t *testing.T) {
	// Two present values in a five-slot bucket: missing slots count as zeros.
	got, err := Reduce(MethodAvgZero, []float64{10, 20}, 5)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if got != 6 {
		t.Errorf("avg_zero=%g, want 6", got)
	}
}

func TestReduce_EmptyBucket(t *testing.T) {
	if _, err := Reduce(MethodAverage, nil, 5); err == nil {
		t.Error("expected error for empty bucket")
	}
}

func TestReduce_Percentile(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i + 1)
	}

	p50, err := Reduce(MethodP50, values, len(values))
	if err != nil {
		t.Fatalf("Reduce(p50): %v", err)
	}
	if math.Abs(p50-50) > 2 {
		t.Errorf("p50=%g, want ~50", p50)
	}

	p99, err := Reduce(MethodP99, values, len(values))
	if err != nil {
		t.Fatalf("Reduce(p99): %v", err)
	}
	if math.Abs(p99-99) > 2.5 {
		t.Errorf("p99=%g, want ~99", p99)
	}
}
