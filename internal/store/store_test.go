package store

import (
	"path/filepath"
	"testing"

	"github.com/xtxerr/rebin/internal/aggregate"
	"github.com/xtxerr/rebin/internal/errors"
	"github.com/xtxerr/rebin/internal/schema"
)

// testNow is divisible by both 60 and 300 so interval math stays readable.
const testNow = int64(999999900)

func createStore(t *testing.T, s schema.Schema, xff float64, method aggregate.Method) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.rbn")
	if err := Create(path, s, xff, method); err != nil {
		t.Fatalf("Create: %v", err)
	}
	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestCreateOpen_RoundTrip(t *testing.T) {
	s := schema.Schema{{SecondsPerPoint: 60, Points: 1440}, {SecondsPerPoint: 3600, Points: 168}}
	st := createStore(t, s, 0.5, aggregate.MethodAverage)

	info := st.Info()
	if !info.Schema.Equal(s) {
		t.Errorf("schema %s, want %s", info.Schema, s)
	}
	if info.XFilesFactor != 0.5 {
		t.Errorf("xff=%g, want 0.5", info.XFilesFactor)
	}
	if info.Method != aggregate.MethodAverage {
		t.Errorf("method=%s, want average", info.Method)
	}
	if st.MaxRetention() != 3600*168 {
		t.Errorf("MaxRetention=%d, want %d", st.MaxRetention(), 3600*168)
	}
}

func TestCreate_Existing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.rbn")
	s := schema.Schema{{SecondsPerPoint: 60, Points: 60}}
	if err := Create(path, s, 0.5, aggregate.MethodAverage); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := Create(path, s, 0.5, aggregate.MethodAverage); !errors.Is(err, errors.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCreate_InvalidSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.rbn")
	bad := schema.Schema{{SecondsPerPoint: 60, Points: 60}, {SecondsPerPoint: 60, Points: 120}}
	if err := Create(path, bad, 0.5, aggregate.MethodAverage); !errors.Is(err, errors.ErrInvalidSchema) {
		t.Errorf("expected ErrInvalidSchema, got %v", err)
	}
	if err := Create(path, schema.Schema{{SecondsPerPoint: 60, Points: 60}}, 1.5, aggregate.MethodAverage); !errors.Is(err, errors.ErrInvalidSchema) {
		t.Errorf("expected ErrInvalidSchema for bad xff, got %v", err)
	}
}

func TestOpen_Missing(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "absent.rbn")); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateFetch_RoundTrip(t *testing.T) {
	st := createStore(t, schema.Schema{{SecondsPerPoint: 60, Points: 60}}, 0.5, aggregate.MethodAverage)

	var points []Point
	for i := 1; i <= 10; i++ {
		points = append(points, Point{Timestamp: testNow - int64(60*i), Value: float64(i)})
	}
	if err := st.UpdateMany(points, testNow); err != nil {
		t.Fatalf("UpdateMany: %v", err)
	}

	series, err := st.Fetch(testNow-600, testNow, testNow)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if series.Step != 60 {
		t.Fatalf("step=%d, want 60", series.Step)
	}
	if got := int64(len(series.Values)); got != (series.End-series.Start)/series.Step {
		t.Fatalf("len(values)=%d does not match time range %d..%d", got, series.Start, series.End)
	}

	// Slots run from testNow-540 through testNow; the last one is empty.
	for i := 0; i < 9; i++ {
		interval := series.Start + int64(i)*60
		want := float64((testNow - interval) / 60)
		if !series.Values[i].Valid {
			t.Errorf("slot %d (ts %d): missing, want %g", i, interval, want)
			continue
		}
		if series.Values[i].Value != want {
			t.Errorf("slot %d (ts %d): value=%g, want %g", i, interval, series.Values[i].Value, want)
		}
	}
	if series.Values[9].Valid {
		t.Error("slot 9 should be empty")
	}
}

func TestUpdateMany_Propagation(t *testing.T) {
	s := schema.Schema{{SecondsPerPoint: 60, Points: 60}, {SecondsPerPoint: 300, Points: 24}}
	st := createStore(t, s, 0.5, aggregate.MethodAverage)

	// Three of five slots present in the bucket starting at testNow-600:
	// 3/5 = 0.6 >= 0.5, so the coarse slot aggregates to the average.
	bucket := testNow - 600
	points := []Point{
		{Timestamp: bucket, Value: 10},
		{Timestamp: bucket + 60, Value: 20},
		{Timestamp: bucket + 120, Value: 30},
	}
	// Two of five in the bucket before it: 0.4 < 0.5, stays missing.
	sparse := bucket - 300
	points = append(points,
		Point{Timestamp: sparse, Value: 100},
		Point{Timestamp: sparse + 60, Value: 200},
	)
	if err := st.UpdateMany(points, testNow); err != nil {
		t.Fatalf("UpdateMany: %v", err)
	}

	// Fetching past the fine archive's retention serves from the 300s archive.
	series, err := st.Fetch(testNow-7200, testNow, testNow)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if series.Step != 300 {
		t.Fatalf("step=%d, want 300", series.Step)
	}

	idx := int((bucket - series.Start) / 300)
	if !series.Values[idx].Valid {
		t.Fatalf("aggregated slot missing")
	}
	if series.Values[idx].Value != 20 {
		t.Errorf("aggregated value=%g, want 20", series.Values[idx].Value)
	}

	sparseIdx := int((sparse - series.Start) / 300)
	if series.Values[sparseIdx].Valid {
		t.Errorf("sparse bucket should stay missing, got %g", series.Values[sparseIdx].Value)
	}
}

func TestUpdateMany_IgnoresOutOfRetention(t *testing.T) {
	st := createStore(t, schema.Schema{{SecondsPerPoint: 60, Points: 60}}, 0.5, aggregate.MethodAverage)

	points := []Point{
		{Timestamp: testNow + 600, Value: 1},          // future
		{Timestamp: testNow - 2*3600, Value: 2},       // older than retention
		{Timestamp: testNow - 60, Value: 3},           // kept
	}
	if err := st.UpdateMany(points, testNow); err != nil {
		t.Fatalf("UpdateMany: %v", err)
	}

	series, err := st.Fetch(testNow-3600, testNow, testNow)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	var present int
	for _, v := range series.Values {
		if v.Valid {
			present++
		}
	}
	if present != 1 {
		t.Errorf("present=%d, want 1", present)
	}
}

func TestFetch_OutOfRange(t *testing.T) {
	st := createStore(t, schema.Schema{{SecondsPerPoint: 60, Points: 60}}, 0.5, aggregate.MethodAverage)

	if _, err := st.Fetch(testNow, testNow-600, testNow); !errors.Is(err, errors.ErrOutOfRange) {
		t.Errorf("inverted range: expected ErrOutOfRange, got %v", err)
	}
	if _, err := st.Fetch(testNow-9000, testNow-7200, testNow); !errors.Is(err, errors.ErrOutOfRange) {
		t.Errorf("expired range: expected ErrOutOfRange, got %v", err)
	}
}

func TestSeriesPoints(t *testing.T) {
	s := &Series{
		Start: 600,
		End:   900,
		Step:  60,
		Values: []Sample{
			{Value: 1, Valid: true},
			{},
			{Value: 3, Valid: true},
			{},
			{},
		},
	}
	points := s.Points()
	if len(points) != 2 {
		t.Fatalf("len(points)=%d, want 2", len(points))
	}
	if points[0] != (Point{Timestamp: 600, Value: 1}) {
		t.Errorf("points[0]=%+v", points[0])
	}
	if points[1] != (Point{Timestamp: 720, Value: 3}) {
		t.Errorf("points[1]=%+v", points[1])
	}
}
