package migrate

import (
	"log/slog"

	"github.com/xtxerr/rebin/internal/aggregate"
	"github.com/xtxerr/rebin/internal/errors"
	"github.com/xtxerr/rebin/internal/logging"
	"github.com/xtxerr/rebin/internal/schema"
	"github.com/xtxerr/rebin/internal/store"
)

// Source is the read side of a store.
type Source interface {
	Schema() schema.Schema
	Fetch(from, until, now int64) (*store.Series, error)
}

// Target is the write side of a store. Implementations route each point to
// the archive covering its age and are expected to ignore points outside
// every archive's retention.
type Target interface {
	UpdateMany(points []store.Point, now int64) error
}

// Driver migrates every archive of a source store into a target store
// created with a different retention schema.
type Driver struct {
	Source       Source
	Target       Target
	XFilesFactor float64
	Method       aggregate.Method

	// Force permits destructive migrations: old archives with no
	// compatible new archive are dropped instead of failing.
	Force bool

	Log *slog.Logger
}

// Stats summarizes one migration run.
type Stats struct {
	ArchivesMigrated int
	ArchivesDropped  int
	PointsCopied     int
	PointsAggregated int
}

// Run migrates all source archives, finest precision first, as seen at
// time now. Each archive is fetched over its exclusive time window (the
// running cursor keeps windows disjoint), matched against the not yet
// satisfied new archives, and written out either verbatim (refine) or
// re-bucketed (coarsen). Absent samples are never written.
func (d *Driver) Run(newSchema schema.Schema, now int64) (Stats, error) {
	log := d.Log
	if log == nil {
		log = logging.Component("migrate")
	}

	oldSchema := d.Source.Schema()
	oldSchema.Sort()
	remaining := append(schema.Schema(nil), newSchema...)
	remaining.Sort()

	var stats Stats
	cursor := now
	for i, old := range oldSchema {
		from := now - int64(old.MaxRetention())
		series, err := d.Source.Fetch(from, cursor, now)
		if err != nil {
			return stats, errors.Wrapf(err, "fetch archive %s", old)
		}

		var bestFit, exactFit *schema.Retention
		bestFit, exactFit, remaining = match(old, remaining)

		if bestFit == nil && exactFit == nil {
			if !d.Force {
				return stats, errors.NewUnfittable(old.SecondsPerPoint, old.MaxRetention())
			}
			// Coarser archives are, by construction, also unmatchable.
			dropped := len(oldSchema) - i
			log.Warn("dropping unmatched archives",
				"precision", old.SecondsPerPoint, "archives", dropped)
			stats.ArchivesDropped += dropped
			return stats, nil
		}

		covered := 0
		if bestFit != nil {
			covered = bestFit.MaxRetention()
		}
		if exactFit != nil && exactFit.MaxRetention() > covered {
			covered = exactFit.MaxRetention()
		}
		if covered < old.MaxRetention() {
			fit := exactFit
			if bestFit != nil {
				fit = bestFit
			}
			if !d.Force {
				return stats, errors.NewInsufficientRetention(
					old.SecondsPerPoint, old.MaxRetention(),
					fit.SecondsPerPoint, fit.MaxRetention())
			}
			log.Warn("truncating archive data",
				"from", old.String(), "into", fit.String(),
				"seconds_lost", old.MaxRetention()-covered)
		}

		values := series.Values
		end := series.End
		step := series.Step

		if bestFit != nil {
			// Verbatim copy, truncated newest-first to what fits.
			budget := int64(bestFit.MaxRetention()) / step
			kept := values
			if int64(len(kept)) > budget {
				kept = kept[int64(len(kept))-budget:]
			}
			keptStart := end - int64(len(kept))*step
			points := (&store.Series{Start: keptStart, End: end, Step: step, Values: kept}).Points()
			if err := d.Target.UpdateMany(points, now); err != nil {
				return stats, errors.Wrapf(err, "copy into %s", bestFit)
			}
			stats.PointsCopied += len(points)
			log.Info("copied archive data",
				"from", old.String(), "into", bestFit.String(), "points", len(points))

			values = values[:len(values)-len(kept)]
			end = keptStart
		}

		if exactFit != nil && len(values) > 0 {
			start, bucketed, err := rebucket(values, end, step,
				int64(exactFit.SecondsPerPoint), d.XFilesFactor, d.Method)
			if err != nil {
				return stats, errors.Wrapf(err, "aggregate into %s", exactFit)
			}
			points := (&store.Series{
				Start:  start,
				End:    start + int64(len(bucketed))*int64(exactFit.SecondsPerPoint),
				Step:   int64(exactFit.SecondsPerPoint),
				Values: bucketed,
			}).Points()
			if err := d.Target.UpdateMany(points, now); err != nil {
				return stats, errors.Wrapf(err, "aggregate into %s", exactFit)
			}
			stats.PointsAggregated += len(points)
			log.Info("aggregated archive data",
				"from", old.String(), "into", exactFit.String(), "points", len(points))
		}

		stats.ArchivesMigrated++
		cursor = from
	}
	return stats, nil
}
