package interpreter

import (
	"context"

	"golang.org/x/time/rate"
)

// WithSendRateLimit returns an Option that guards SendEvent against event
// floods from a misbehaving host, grounded on the teacher's
// gemini.RateLimiter (a golang.org/x/time/rate wrapper gating outbound
// calls). Unlike that multi-bucket limiter, SendEvent only needs one
// bucket: a cap on events accepted per second.
func WithSendRateLimit(eventsPerSecond rate.Limit, burst int) Option {
	return func(o *Options) {
		o.sendLimiter = rate.NewLimiter(eventsPerSecond, burst)
	}
}

// Option configures Initialize/SendEvent beyond the Options struct's plain
// fields (logging adapter, tracer).
type Option func(*Options)

// Apply folds opts into o, returning the result.
func (o Options) Apply(opts ...Option) Options {
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// waitForSend blocks on the configured rate limiter, if any, before the
// synchronous macrostep begins — never inside it, preserving spec.md §5's
// no-internal-suspension-points guarantee for the microstep algorithm
// itself (spec_full §5 expansion).
func (c *StateChart) waitForSend(ctx context.Context) error {
	if c.sendLimiter == nil {
		return nil
	}
	return c.sendLimiter.Wait(ctx)
}
