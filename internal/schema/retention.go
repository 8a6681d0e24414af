// Package schema describes the retention layout of an archive store: an
// ordered list of fixed-precision, fixed-size circular archives.
//
// Retentions are written as "precision:points" strings. Both sides accept
// time-unit suffixes:
//
//	60:1440    60 seconds per datapoint, 1440 datapoints = 1 day
//	15m:8      15 minutes per datapoint, 8 datapoints = 2 hours
//	1h:7d      1 hour per datapoint, 7 days of retention
//	12h:2y     12 hours per datapoint, 2 years of retention
package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/xtxerr/rebin/internal/errors"
)

// Retention describes one archive: how many seconds each datapoint covers
// and how many datapoints the archive holds.
type Retention struct {
	SecondsPerPoint int
	Points          int
}

// MaxRetention returns the total time span the archive covers, in seconds.
func (r Retention) MaxRetention() int {
	return r.SecondsPerPoint * r.Points
}

// String renders the retention in "precision:points" form.
func (r Retention) String() string {
	return fmt.Sprintf("%d:%d", r.SecondsPerPoint, r.Points)
}

// unitMultiplier returns the number of seconds for a unit suffix.
func unitMultiplier(unit string) (int, error) {
	switch unit {
	case "", "s":
		return 1, nil
	case "m":
		return 60, nil
	case "h":
		return 3600, nil
	case "d":
		return 86400, nil
	case "w":
		return 7 * 86400, nil
	case "y":
		return 365 * 86400, nil
	}
	return 0, fmt.Errorf("unknown time unit %q", unit)
}

// parseSeconds parses a value with an optional unit suffix into seconds.
func parseSeconds(s string) (int, error) {
	i := len(s)
	for i > 0 && s[i-1] >= 'a' && s[i-1] <= 'z' {
		i--
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s[:i])
	}
	mult, err := unitMultiplier(s[i:])
	if err != nil {
		return 0, err
	}
	return n * mult, nil
}

// ParseRetention parses one "precision:points" definition. The points side
// may be given as a duration ("7d"), in which case the point count is the
// duration divided by the precision.
func ParseRetention(def string) (Retention, error) {
	parts := strings.Split(def, ":")
	if len(parts) != 2 {
		return Retention{}, errors.NewInvalidRetention(def, "expected precision:points")
	}

	precision, err := parseSeconds(parts[0])
	if err != nil {
		return Retention{}, errors.NewInvalidRetention(def, err.Error())
	}
	if precision <= 0 {
		return Retention{}, errors.NewInvalidRetention(def, "precision must be positive")
	}

	var points int
	if p, err := strconv.Atoi(parts[1]); err == nil {
		points = p
	} else {
		span, err := parseSeconds(parts[1])
		if err != nil {
			return Retention{}, errors.NewInvalidRetention(def, err.Error())
		}
		points = span / precision
	}
	if points <= 0 {
		return Retention{}, errors.NewInvalidRetention(def, "point count must be positive")
	}

	return Retention{SecondsPerPoint: precision, Points: points}, nil
}

// Schema is an ordered list of retentions, finest precision first.
type Schema []Retention

// Parse parses and validates a list of retention definitions into a schema,
// sorted finest precision first.
func Parse(defs []string) (Schema, error) {
	if len(defs) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidSchema, "no retentions given")
	}

	s := make(Schema, 0, len(defs))
	for _, def := range defs {
		r, err := ParseRetention(def)
		if err != nil {
			return nil, err
		}
		s = append(s, r)
	}

	s.Sort()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Sort orders the schema by precision ascending (finest first).
func (s Schema) Sort() {
	sort.Slice(s, func(i, j int) bool {
		return s[i].SecondsPerPoint < s[j].SecondsPerPoint
	})
}

// Validate checks the schema invariants. The schema must be sorted finest
// first; no two archives may share a precision; each coarser archive's
// precision must be divisible by the previous one and its retention must
// grow strictly.
func (s Schema) Validate() error {
	if len(s) == 0 {
		return errors.Wrap(errors.ErrInvalidSchema, "empty schema")
	}
	for i, r := range s {
		if r.SecondsPerPoint <= 0 || r.Points <= 0 {
			return errors.Wrapf(errors.ErrInvalidSchema, "archive %s", r)
		}
		if i == 0 {
			continue
		}
		prev := s[i-1]
		if r.SecondsPerPoint == prev.SecondsPerPoint {
			return errors.Wrapf(errors.ErrInvalidSchema, "duplicate precision %ds", r.SecondsPerPoint)
		}
		if r.SecondsPerPoint < prev.SecondsPerPoint {
			return errors.Wrap(errors.ErrInvalidSchema, "archives not sorted by precision")
		}
		if r.SecondsPerPoint%prev.SecondsPerPoint != 0 {
			return errors.Wrapf(errors.ErrInvalidSchema,
				"precision %ds not divisible by %ds", r.SecondsPerPoint, prev.SecondsPerPoint)
		}
		if r.MaxRetention() <= prev.MaxRetention() {
			return errors.Wrapf(errors.ErrInvalidSchema,
				"archive %s does not retain longer than %s", r, prev)
		}
	}
	return nil
}

// Equal reports whether two schemas describe the same archives. Both sides
// are compared in sorted order, so definition order does not matter.
func (s Schema) Equal(other Schema) bool {
	if len(s) != len(other) {
		return false
	}
	a := append(Schema(nil), s...)
	b := append(Schema(nil), other...)
	a.Sort()
	b.Sort()
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// MaxRetention returns the span of the longest archive, in seconds.
func (s Schema) MaxRetention() int {
	max := 0
	for _, r := range s {
		if r.MaxRetention() > max {
			max = r.MaxRetention()
		}
	}
	return max
}

// String renders the schema as comma-separated retention definitions.
func (s Schema) String() string {
	parts := make([]string, len(s))
	for i, r := range s {
		parts[i] = r.String()
	}
	return strings.Join(parts, ",")
}
