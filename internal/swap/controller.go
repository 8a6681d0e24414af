// Package swap sequences a full resize: create the target store, migrate
// every archive into it, then atomically replace the original file,
// keeping it as a backup and restoring it if the replacement fails.
package swap

import (
	"log/slog"
	"os"
	"time"

	"github.com/xtxerr/rebin/internal/aggregate"
	"github.com/xtxerr/rebin/internal/errors"
	"github.com/xtxerr/rebin/internal/logging"
	"github.com/xtxerr/rebin/internal/migrate"
	"github.com/xtxerr/rebin/internal/schema"
	"github.com/xtxerr/rebin/internal/store"
)

// Options control one resize run.
type Options struct {
	// Path of the store to resize.
	Path string

	// Schema is the new retention schema.
	Schema schema.Schema

	// XFilesFactor and Method override the store's stored policy when
	// non-nil; otherwise the old store's values carry over.
	XFilesFactor *float64
	Method       *aggregate.Method

	// Force permits migrations that drop data.
	Force bool

	// NewPath, when set, writes the migrated store there and leaves the
	// original in place, skipping the swap entirely.
	NewPath string

	// NoBackup deletes the backup file after a successful swap.
	NoBackup bool

	// Now fixes the migration reference time; zero means wall clock.
	Now int64

	Log *slog.Logger
}

// Run resizes the store at opts.Path into opts.Schema. On any failure the
// original store is left untouched; a partially written target is removed.
func Run(opts Options) (migrate.Stats, error) {
	log := opts.Log
	if log == nil {
		log = logging.Component("swap")
	}
	now := opts.Now
	if now == 0 {
		now = time.Now().Unix()
	}

	var stats migrate.Stats

	src, err := store.Open(opts.Path)
	if err != nil {
		return stats, err
	}
	defer src.Close()

	if src.Schema().Equal(opts.Schema) {
		return stats, errors.Wrap(errors.ErrUnchangedSchema, opts.Schema.String())
	}

	xff := src.XFilesFactor()
	if opts.XFilesFactor != nil {
		xff = *opts.XFilesFactor
	}
	method := src.Method()
	if opts.Method != nil {
		method = *opts.Method
	}

	dest := opts.NewPath
	swapBack := dest == ""
	if swapBack {
		dest = opts.Path + ".tmp"
		if _, err := os.Stat(dest); err == nil {
			log.Info("removing stale temporary store", "path", dest)
			if err := os.Remove(dest); err != nil {
				return stats, errors.Wrapf(err, "remove %s", dest)
			}
		}
	}

	log.Info("creating store", "path", dest, "schema", opts.Schema.String(),
		"xff", xff, "method", method.String())
	if err := store.Create(dest, opts.Schema, xff, method); err != nil {
		return stats, err
	}
	dst, err := store.Open(dest)
	if err != nil {
		os.Remove(dest)
		return stats, err
	}

	driver := &migrate.Driver{
		Source:       src,
		Target:       dst,
		XFilesFactor: xff,
		Method:       method,
		Force:        opts.Force,
		Log:          log.With("component", "migrate"),
	}
	stats, err = driver.Run(opts.Schema, now)
	dst.Close()
	if err != nil {
		os.Remove(dest)
		return stats, err
	}

	if !swapBack {
		log.Info("migrated store written", "path", dest)
		return stats, nil
	}

	backup := opts.Path + ".bak"
	log.Info("renaming old store", "path", opts.Path, "backup", backup)
	if err := os.Rename(opts.Path, backup); err != nil {
		os.Remove(dest)
		return stats, errors.Wrapf(errors.ErrSwapFailed, "backup %s: %v", opts.Path, err)
	}

	if err := os.Rename(dest, opts.Path); err != nil {
		log.Error("swap failed, restoring original", "path", opts.Path, "error", err)
		if rerr := os.Rename(backup, opts.Path); rerr != nil {
			log.Error("restore from backup failed", "backup", backup, "error", rerr)
		}
		os.Remove(dest)
		return stats, errors.Wrapf(errors.ErrSwapFailed, "replace %s: %v", opts.Path, err)
	}

	if opts.NoBackup {
		log.Info("unlinking backup", "path", backup)
		if err := os.Remove(backup); err != nil {
			log.Warn("unlink backup failed", "path", backup, "error", err)
		}
	}
	return stats, nil
}
