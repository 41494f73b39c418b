// Package timeouts provides the timeout values handlers and jobs use with
// context.WithTimeout.
//
//   - Ping: health checks
//   - Short: single-document reads and lookups
//   - Medium: list queries and simple writes
//   - Long: writes touching several collections (role negotiation, admission)
//   - Batch: one page of a background job
//
// Values are set once at startup from app config via Configure.
package timeouts

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Config holds timeout values. Zero fields keep the defaults.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
	Batch  time.Duration
}

// Defaults is used until Configure is called.
var Defaults = Config{
	Ping:   2 * time.Second,
	Short:  5 * time.Second,
	Medium: 10 * time.Second,
	Long:   30 * time.Second,
	Batch:  2 * time.Minute,
}

var current atomic.Pointer[Config]

func init() {
	d := Defaults
	current.Store(&d)
}

func Ping() time.Duration   { return current.Load().Ping }
func Short() time.Duration  { return current.Load().Short }
func Medium() time.Duration { return current.Load().Medium }
func Long() time.Duration   { return current.Load().Long }
func Batch() time.Duration  { return current.Load().Batch }

// Configure replaces the non-zero values of cfg and returns the resulting
// configuration.
func Configure(cfg Config) Config {
	next := Defaults
	merge := func(dst *time.Duration, v time.Duration) {
		if v > 0 {
			*dst = v
		}
	}
	merge(&next.Ping, cfg.Ping)
	merge(&next.Short, cfg.Short)
	merge(&next.Medium, cfg.Medium)
	merge(&next.Long, cfg.Long)
	merge(&next.Batch, cfg.Batch)
	current.Store(&next)
	return next
}

// Current returns the active configuration.
func Current() Config {
	return *current.Load()
}

// Reset restores the defaults. Useful for testing.
func Reset() {
	d := Defaults
	current.Store(&d)
}

// WithTimeout creates a context with timeout and returns a cancel function
// that logs a warning if the deadline was hit.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "apply org decisions")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
