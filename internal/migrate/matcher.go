// Package migrate implements the retention-migration engine: it re-bins
// the datapoints of an existing store into a new retention schema, copying
// where precisions are compatible and aggregating where the new schema is
// coarser.
package migrate

import (
	"github.com/xtxerr/rebin/internal/schema"
)

// refines reports whether new-archive data at cand's precision can hold
// old-archive data without aggregation.
func refines(cand, old schema.Retention) bool {
	return cand.SecondsPerPoint <= old.SecondsPerPoint &&
		old.SecondsPerPoint%cand.SecondsPerPoint == 0
}

// coarsens reports whether old-archive data must be aggregated to land in
// cand's precision.
func coarsens(cand, old schema.Retention) bool {
	return cand.SecondsPerPoint > old.SecondsPerPoint &&
		cand.SecondsPerPoint%old.SecondsPerPoint == 0
}

// match pairs one old archive with the new archives that receive its data.
//
// remaining is scanned in ascending-precision order. bestFit tracks the
// refine target with the closest precision at or below the old archive's;
// exactFit is the coarsen target that absorbs whatever bestFit does not.
// A refine candidate is consumed once its span fits inside the old
// archive's; a coarsen candidate is consumed when the spans are equal.
// The scan stops at the first candidate whose span reaches the old
// archive's, since that candidate absorbs all remaining old data.
//
// When several coarsen candidates divide the old precision, the one the
// scan stops on wins; finer coarsen targets stay in remaining for coarser
// source archives. Both fits may be nil when nothing in remaining is
// compatible; the force policy for that case belongs to the driver.
func match(old schema.Retention, remaining []schema.Retention) (bestFit, exactFit *schema.Retention, rest []schema.Retention) {
	rest = make([]schema.Retention, 0, len(remaining))

	for i, cand := range remaining {
		var stop bool
		switch {
		case refines(cand, old):
			c := cand
			bestFit = &c
			if cand.MaxRetention() > old.MaxRetention() {
				rest = append(rest, cand)
			}
			stop = cand.MaxRetention() >= old.MaxRetention()
		case coarsens(cand, old):
			c := cand
			exactFit = &c
			if cand.MaxRetention() != old.MaxRetention() {
				rest = append(rest, cand)
			}
			stop = cand.MaxRetention() >= old.MaxRetention()
		default:
			// Incompatible precision; may still match a coarser old archive.
			rest = append(rest, cand)
		}
		if stop {
			rest = append(rest, remaining[i+1:]...)
			return bestFit, exactFit, rest
		}
	}
	return bestFit, exactFit, rest
}
