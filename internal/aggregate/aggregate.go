// Package aggregate implements the named reduction functions used when
// rolling datapoints from a fine archive into a coarser one.
package aggregate

import (
	"fmt"
	"math"

	"github.com/DataDog/sketches-go/ddsketch"

	"github.com/xtxerr/rebin/internal/errors"
)

// Method identifies an aggregation function.
type Method int

const (
	MethodAverage Method = iota + 1
	MethodSum
	MethodLast
	MethodMax
	MethodMin
	MethodAvgZero
	MethodAbsMax
	MethodAbsMin
	MethodP50
	MethodP90
	MethodP95
	MethodP99
)

// ddsketchAccuracy is the relative accuracy used for percentile methods.
const ddsketchAccuracy = 0.01

// String returns the method's canonical name.
func (m Method) String() string {
	switch m {
	case MethodAverage:
		return "average"
	case MethodSum:
		return "sum"
	case MethodLast:
		return "last"
	case MethodMax:
		return "max"
	case MethodMin:
		return "min"
	case MethodAvgZero:
		return "avg_zero"
	case MethodAbsMax:
		return "absmax"
	case MethodAbsMin:
		return "absmin"
	case MethodP50:
		return "p50"
	case MethodP90:
		return "p90"
	case MethodP95:
		return "p95"
	case MethodP99:
		return "p99"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// ParseMethod parses a method name.
func ParseMethod(s string) (Method, error) {
	for _, m := range Methods() {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%q: %w", s, errors.ErrUnknownMethod)
}

// Methods returns all supported methods in display order.
func Methods() []Method {
	return []Method{
		MethodAverage, MethodSum, MethodLast, MethodMax, MethodMin,
		MethodAvgZero, MethodAbsMax, MethodAbsMin,
		MethodP50, MethodP90, MethodP95, MethodP99,
	}
}

// MethodNames returns the names of all supported methods.
func MethodNames() []string {
	methods := Methods()
	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = m.String()
	}
	return names
}

// quantile returns the quantile for percentile methods, or -1.
func (m Method) quantile() float64 {
	switch m {
	case MethodP50:
		return 0.50
	case MethodP90:
		return 0.90
	case MethodP95:
		return 0.95
	case MethodP99:
		return 0.99
	default:
		return -1
	}
}

// Reduce reduces the present values of one bucket to a single value.
// known holds the present samples in chronological order; total is the
// bucket's slot count including missing slots (avg_zero treats missing
// slots as zeros).
func Reduce(m Method, known []float64, total int) (float64, error) {
	if len(known) == 0 {
		return 0, fmt.Errorf("%s: empty bucket", m)
	}

	switch m {
	case MethodAverage:
		return sum(known) / float64(len(known)), nil
	case MethodSum:
		return sum(known), nil
	case MethodLast:
		return known[len(known)-1], nil
	case MethodMax:
		max := known[0]
		for _, v := range known[1:] {
			if v > max {
				max = v
			}
		}
		return max, nil
	case MethodMin:
		min := known[0]
		for _, v := range known[1:] {
			if v < min {
				min = v
			}
		}
		return min, nil
	case MethodAvgZero:
		if total < len(known) {
			total = len(known)
		}
		return sum(known) / float64(total), nil
	case MethodAbsMax:
		max := known[0]
		for _, v := range known[1:] {
			if math.Abs(v) > math.Abs(max) {
				max = v
			}
		}
		return max, nil
	case MethodAbsMin:
		min := known[0]
		for _, v := range known[1:] {
			if math.Abs(v) < math.Abs(min) {
				min = v
			}
		}
		return min, nil
	case MethodP50, MethodP90, MethodP95, MethodP99:
		return reduceQuantile(m.quantile(), known)
	}

	return 0, fmt.Errorf("%s: %w", m, errors.ErrUnknownMethod)
}

// reduceQuantile computes a quantile over the bucket with a DDSketch.
func reduceQuantile(q float64, known []float64) (float64, error) {
	sketch, err := ddsketch.NewDefaultDDSketch(ddsketchAccuracy)
	if err != nil {
		return 0, errors.Wrap(err, "create sketch")
	}
	for _, v := range known {
		if err := sketch.Add(v); err != nil {
			return 0, errors.Wrapf(err, "sketch add %g", v)
		}
	}
	value, err := sketch.GetValueAtQuantile(q)
	if err != nil {
		return 0, errors.Wrapf(err, "quantile %g", q)
	}
	return value, nil
}

func sum(values []float64) float64 {
	var s float64
	for _, v := range values {
		s += v
	}
	return s
}
