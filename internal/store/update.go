package store

import (
	"github.com/xtxerr/rebin/internal/aggregate"
)

// UpdateMany writes datapoints into the store. Each point lands in the
// finest archive whose retention covers its age relative to now, aligned
// to that archive's precision; aggregates then propagate into coarser
// archives while the completeness threshold holds. Points in the future
// or older than every archive are silently ignored.
func (st *Store) UpdateMany(points []Point, now int64) error {
	for _, p := range points {
		age := now - p.Timestamp
		if age < 0 || age >= st.MaxRetention() {
			continue
		}

		idx := -1
		for i, a := range st.archives {
			if age < int64(a.retention.MaxRetention()) {
				idx = i
				break
			}
		}
		if idx < 0 {
			continue
		}

		a := st.archives[idx]
		interval := p.Timestamp - p.Timestamp%a.step()
		if err := st.writeSlot(a, interval, p.Value); err != nil {
			return err
		}

		higher := a
		for _, lower := range st.archives[idx+1:] {
			ok, err := st.propagate(higher, lower, interval)
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			higher = lower
		}
	}
	return nil
}

// propagate recomputes the lower-archive slot covering ts from the higher
// archive's slots. Returns false without writing when the bucket does not
// meet the store's x-files-factor.
func (st *Store) propagate(higher, lower archive, ts int64) (bool, error) {
	lowerStart := ts - ts%lower.step()
	n := int(lower.step() / higher.step())

	base, err := st.baseInterval(higher)
	if err != nil {
		return false, err
	}
	if base == 0 {
		return false, nil
	}
	slots, err := st.readSlots(higher)
	if err != nil {
		return false, err
	}

	known := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		interval := lowerStart + int64(i)*higher.step()
		slotTs, v := decodeSlot(slots, higher.slotIndex(base, interval))
		if slotTs == interval {
			known = append(known, v)
		}
	}

	if len(known) == 0 || float64(len(known))/float64(n) < st.xff {
		return false, nil
	}

	value, err := aggregate.Reduce(st.method, known, n)
	if err != nil {
		return false, err
	}
	if err := st.writeSlot(lower, lowerStart, value); err != nil {
		return false, err
	}
	return true, nil
}
