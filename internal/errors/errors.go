// Package errors consolidates error definitions for the rebin tool.
//
// It provides:
// - Sentinel errors for all failure conditions
// - Error category checking functions
// - Error wrapping utilities and constructors with context
package errors

import (
	"errors"
	"fmt"
)

// ============================================================================
// Sentinel errors
// ============================================================================

var (
	// Retention / schema errors
	ErrInvalidRetention = errors.New("invalid retention definition")
	ErrInvalidSchema    = errors.New("invalid schema")
	ErrUnchangedSchema  = errors.New("new retention is equal to the old retention")
	ErrUnknownMethod    = errors.New("unknown aggregation method")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")

	// Migration errors
	ErrUnfittableArchive     = errors.New("no compatible archive in the new schema")
	ErrInsufficientRetention = errors.New("new archive retention is smaller than the source archive")

	// Store errors
	ErrNotFound      = errors.New("store file not found")
	ErrAlreadyExists = errors.New("store file already exists")
	ErrCorruptStore  = errors.New("corrupt store file")
	ErrOutOfRange    = errors.New("time range outside stored retention")

	// Swap errors
	ErrSwapFailed = errors.New("store swap failed")
)

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// IsUsage returns true if err should be reported as a usage error
// (bad arguments, nothing was mutated).
func IsUsage(err error) bool {
	return errors.Is(err, ErrInvalidRetention) ||
		errors.Is(err, ErrInvalidSchema) ||
		errors.Is(err, ErrUnknownMethod) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrNotFound)
}

// IsMigrationFatal returns true if err aborted a migration before the swap.
// The original store is untouched in all of these cases.
func IsMigrationFatal(err error) bool {
	return errors.Is(err, ErrUnfittableArchive) ||
		errors.Is(err, ErrInsufficientRetention)
}

// ============================================================================
// Error wrapping utilities
// ============================================================================

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ============================================================================
// Error constructors with context
// ============================================================================

// NewInvalidRetention creates an invalid-retention error for a definition string.
func NewInvalidRetention(def, reason string) error {
	return fmt.Errorf("%q: %s: %w", def, reason, ErrInvalidRetention)
}

// NewUnfittable creates an unfittable-archive error carrying the offending
// archive's precision and retention.
func NewUnfittable(precisionSeconds, retentionSeconds int) error {
	return fmt.Errorf("archive %ds/%ds: %w", precisionSeconds, retentionSeconds, ErrUnfittableArchive)
}

// NewInsufficientRetention creates an insufficient-retention error naming both
// the source archive and the best target found for it.
func NewInsufficientRetention(oldPrecision, oldRetention, newPrecision, newRetention int) error {
	return fmt.Errorf("archive %ds/%ds only fits %ds/%ds: %w",
		oldPrecision, oldRetention, newPrecision, newRetention, ErrInsufficientRetention)
}
