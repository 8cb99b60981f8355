package sync

import (
	"time"

	"github.com/agentstation/utc"

	"github.com/caremesh/calsync/internal/allowlist"
	"github.com/caremesh/calsync/pkg/constants"
)

// Options controls one reconciliation run.
type Options struct {
	// Window control
	Lookback        time.Duration // how far back changed-since queries reach
	OccurringWindow time.Duration // forward window for carecal's occurring query
	OrphanWindow    time.Duration // forward window orphan cleanup walks

	// Consistency control
	Skew time.Duration // forward bias applied to LastSyncAt stamps

	// Owner filtering
	Allow *allowlist.List

	// Clock injection for tests; defaults to utc.Now.
	Now func() utc.Time
}

// Option configures a run.
type Option func(*Options)

// Apply applies the given options.
func (o *Options) Apply(opts ...Option) *Options {
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Defaults returns the default run options.
func Defaults() *Options {
	return &Options{
		Lookback:        constants.DefaultLookback,
		OccurringWindow: constants.DefaultOccurringWindow,
		OrphanWindow:    constants.DefaultOrphanWindow,
		Skew:            constants.EventualConsistencySkew,
		Now:             utc.Now,
	}
}

// WithLookback sets how far back the changed-since queries reach.
func WithLookback(d time.Duration) Option {
	return func(o *Options) { o.Lookback = d }
}

// WithOccurringWindow sets the forward window for carecal's occurring query.
func WithOccurringWindow(d time.Duration) Option {
	return func(o *Options) { o.OccurringWindow = d }
}

// WithOrphanWindow sets the forward window orphan cleanup walks.
func WithOrphanWindow(d time.Duration) Option {
	return func(o *Options) { o.OrphanWindow = d }
}

// WithSkew sets the forward bias applied to LastSyncAt stamps.
func WithSkew(d time.Duration) Option {
	return func(o *Options) { o.Skew = d }
}

// WithAllowList restricts the run to the listed owners.
func WithAllowList(l *allowlist.List) Option {
	return func(o *Options) { o.Allow = l }
}

// WithClock injects the run's clock.
func WithClock(now func() utc.Time) Option {
	return func(o *Options) { o.Now = now }
}
