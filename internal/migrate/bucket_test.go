package migrate

import (
	"testing"

	"github.com/xtxerr/rebin/internal/aggregate"
	"github.com/xtxerr/rebin/internal/store"
)

func present(v float64) store.Sample { return store.Sample{Value: v, Valid: true} }

func missing() store.Sample { return store.Sample{} }

func TestRebucket_ThresholdPerBucket(t *testing.T) {
	// Ten 60s samples ending on a 300s boundary: two 5-sample buckets.
	// The newest has 3/5 present (0.6 >= 0.5), the oldest 2/5 (0.4 < 0.5).
	end := int64(3000)
	values := []store.Sample{
		present(100), missing(), present(200), missing(), missing(),
		present(10), present(20), present(30), missing(), missing(),
	}

	start, out, err := rebucket(values, end, 60, 300, 0.5, aggregate.MethodAverage)
	if err != nil {
		t.Fatalf("rebucket: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("len(out)=%d, want 2", len(out))
	}
	if start != end-600 {
		t.Errorf("start=%d, want %d", start, end-600)
	}
	if out[0].Valid {
		t.Errorf("sparse bucket aggregated to %g, want missing", out[0].Value)
	}
	if !out[1].Valid || out[1].Value != 20 {
		t.Errorf("out[1]=%+v, want average 20", out[1])
	}
}

func TestRebucket_BoundaryInclusive(t *testing.T) {
	// Exactly at the threshold the bucket still aggregates.
	end := int64(3000)
	values := []store.Sample{
		missing(), missing(), present(5), present(10), present(15),
	}

	_, out, err := rebucket(values, end, 60, 300, 0.6, aggregate.MethodSum)
	if err != nil {
		t.Fatalf("rebucket: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("len(out)=%d, want 1", len(out))
	}
	if !out[0].Valid || out[0].Value != 30 {
		t.Errorf("out[0]=%+v, want sum 30 at 3/5 == 0.6", out[0])
	}
}

func TestRebucket_NewestAlignment(t *testing.T) {
	// The input ends off the 300s grid; the output must still end on it,
	// within one new-precision step of the input's end.
	end := int64(3180) // newest sample at 3120, 3120 % 300 = 120
	values := make([]store.Sample, 8)
	for i := range values {
		values[i] = present(float64(i))
	}

	start, out, err := rebucket(values, end, 60, 300, 0.0, aggregate.MethodAverage)
	if err != nil {
		t.Fatalf("rebucket: %v", err)
	}

	outEnd := start + int64(len(out))*300
	if outEnd%300 != 0 {
		t.Errorf("output end %d not aligned to 300", outEnd)
	}
	if diff := outEnd - end; diff < 0 || diff >= 300 {
		t.Errorf("output end %d drifts %d from input end %d", outEnd, diff, end)
	}

	// 3120 % 300 = 120, so the newest bucket takes 120/60+1 = 3 samples
	// and the remaining 5 fill one full bucket.
	if len(out) != 2 {
		t.Fatalf("len(out)=%d, want 2", len(out))
	}
	if !out[1].Valid || out[1].Value != 6 { // average of 5, 6, 7
		t.Errorf("newest bucket=%+v, want average 6", out[1])
	}
	if !out[0].Valid || out[0].Value != 2 { // average of 0..4
		t.Errorf("oldest bucket=%+v, want average 2", out[0])
	}
}

func TestRebucket_ShortOldestBucketRatedAgainstFullSize(t *testing.T) {
	// Seven samples ending on the grid: newest bucket takes 5, the oldest
	// bucket holds only 2 samples but is rated against 5 slots, so 2/5
	// fails a 0.5 threshold even with both present.
	end := int64(3000)
	values := []store.Sample{
		present(1), present(2),
		present(3), present(4), present(5), present(6), present(7),
	}

	_, out, err := rebucket(values, end, 60, 300, 0.5, aggregate.MethodAverage)
	if err != nil {
		t.Fatalf("rebucket: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("len(out)=%d, want 2", len(out))
	}
	if out[0].Valid {
		t.Errorf("short oldest bucket aggregated to %g, want missing", out[0].Value)
	}
	if !out[1].Valid || out[1].Value != 5 {
		t.Errorf("newest bucket=%+v, want average 5", out[1])
	}
}

func TestRebucket_Empty(t *testing.T) {
	start, out, err := rebucket(nil, 3000, 60, 300, 0.5, aggregate.MethodAverage)
	if err != nil {
		t.Fatalf("rebucket: %v", err)
	}
	if start != 0 || out != nil {
		t.Errorf("empty input: start=%d out=%v", start, out)
	}
}

func TestRebucket_IndivisibleSteps(t *testing.T) {
	if _, _, err := rebucket([]store.Sample{present(1)}, 3000, 60, 90, 0.5, aggregate.MethodAverage); err == nil {
		t.Error("expected error for 90 % 60 != 0")
	}
}
