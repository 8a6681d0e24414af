package store

import (
	"github.com/xtxerr/rebin/internal/errors"
)

// Fetch reads samples for [from, until) as seen at time now. The finest
// archive whose retention still covers from serves the request; the series
// comes back at that archive's precision with one sample per slot, missing
// slots included. The range must overlap the store's retention.
func (st *Store) Fetch(from, until, now int64) (*Series, error) {
	if from > until {
		return nil, errors.Wrapf(errors.ErrOutOfRange, "from %d after until %d", from, until)
	}
	oldest := now - st.MaxRetention()
	if until > now {
		until = now
	}
	if until <= oldest {
		return nil, errors.Wrapf(errors.ErrOutOfRange, "[%d, %d) is older than %d", from, until, oldest)
	}
	if from < oldest {
		from = oldest
	}
	if from > until {
		return nil, errors.Wrapf(errors.ErrOutOfRange, "[%d, %d) is in the future", from, until)
	}

	// Finest archive still covering the start of the range.
	arc := st.archives[len(st.archives)-1]
	for _, a := range st.archives {
		if now-from <= int64(a.retention.MaxRetention()) {
			arc = a
			break
		}
	}

	step := arc.step()
	fromInterval := from - from%step + step
	untilInterval := until - until%step + step
	if fromInterval == untilInterval {
		untilInterval += step
	}

	n := (untilInterval - fromInterval) / step
	values := make([]Sample, n)

	base, err := st.baseInterval(arc)
	if err != nil {
		return nil, err
	}
	if base != 0 {
		slots, err := st.readSlots(arc)
		if err != nil {
			return nil, err
		}
		for i := int64(0); i < n; i++ {
			interval := fromInterval + i*step
			ts, v := decodeSlot(slots, arc.slotIndex(base, interval))
			if ts == interval {
				values[i] = Sample{Value: v, Valid: true}
			}
		}
	}

	return &Series{Start: fromInterval, End: untilInterval, Step: step, Values: values}, nil
}
