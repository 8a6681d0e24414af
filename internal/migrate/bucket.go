package migrate

import (
	"github.com/xtxerr/rebin/internal/aggregate"
	"github.com/xtxerr/rebin/internal/errors"
	"github.com/xtxerr/rebin/internal/store"
)

// rebucket aggregates a chronological run of samples at oldStep resolution
// into buckets of newStep resolution, anchored so that every output bucket
// ends on a multiple of newStep. end is the exclusive end timestamp of the
// input run; newStep must be a multiple of oldStep.
//
// Buckets are formed from the newest sample backward: the timestamp of the
// newest sample decides how many trailing samples fall into one irregular
// newest bucket, then full buckets of newStep/oldStep samples follow, and
// the oldest bucket may run short. A bucket yields a value only when its
// present-sample ratio meets xff (the short oldest bucket is still rated
// against a full bucket's slot count). The returned start is the timestamp
// of the oldest output bucket; outputs are in chronological order.
func rebucket(values []store.Sample, end, oldStep, newStep int64, xff float64, method aggregate.Method) (int64, []store.Sample, error) {
	if newStep <= 0 || oldStep <= 0 || newStep%oldStep != 0 {
		return 0, nil, errors.Wrapf(errors.ErrInvalidSchema,
			"cannot bucket %ds data into %ds", oldStep, newStep)
	}
	if len(values) == 0 {
		return 0, nil, nil
	}

	perBucket := int(newStep / oldStep)
	newest := end - oldStep
	offset := newest % newStep

	// Trailing samples sharing the newest, partially covered bucket.
	align := int(offset/oldStep) + 1
	if align > len(values) {
		align = len(values)
	}

	buckets := 1
	if rest := len(values) - align; rest > 0 {
		buckets += (rest + perBucket - 1) / perBucket
	}

	out := make([]store.Sample, buckets)
	hi := len(values)
	for b := 0; b < buckets; b++ {
		size := perBucket
		if b == 0 {
			size = align
		}
		lo := hi - size
		if lo < 0 {
			lo = 0
		}

		var known []float64
		for i := lo; i < hi; i++ {
			if values[i].Valid {
				known = append(known, values[i].Value)
			}
		}

		if len(known) > 0 && float64(len(known))/float64(size) >= xff {
			value, err := aggregate.Reduce(method, known, size)
			if err != nil {
				return 0, nil, err
			}
			out[buckets-1-b] = store.Sample{Value: value, Valid: true}
		}
		hi = lo
	}

	alignedEnd := newest - offset + newStep
	start := alignedEnd - int64(buckets)*newStep
	return start, out, nil
}
