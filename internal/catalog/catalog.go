// Package catalog stores brand assets and compositing images in a hash/set
// key-value store. Each record is one primary hash plus list keys for its
// list fields; secondary index sets map a dimension value (type, tag,
// emotion, all) to record ids.
//
// Reads never fail: missing records, index entries without a backing
// record and an unavailable store all resolve to not-found or empty
// results. Writes return storage errors to the caller. Every index change
// of a save or delete is applied in one atomic batch.
package catalog

import (
	"errors"
	"log/slog"
	"time"

	"github.com/starford/brandvault/internal/apperr"
)

// DefaultBrand is used for assets saved without a brand.
const DefaultBrand = "find"

// Option configures a repository.
type Option func(*options)

type options struct {
	now          func() time.Time
	defaultBrand string
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, defaultBrand: DefaultBrand}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithDefaultBrand sets the brand given to assets saved without one.
func WithDefaultBrand(brand string) Option {
	return func(o *options) {
		if brand != "" {
			o.defaultBrand = brand
		}
	}
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}

func isNotFound(err error) bool { return errors.Is(err, apperr.ErrNotFound) }
