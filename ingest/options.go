package ingest

import (
	"log/slog"
	"time"

	"github.com/fwojciec/fastlane"
)

// Option configures a Session or a Dispatcher.
type Option func(*config)

type config struct {
	trigger   fastlane.TriggerFunc
	final     fastlane.FinalFunc
	complete  fastlane.AllCompleteFunc
	readiness fastlane.Readiness
	handlers  []func(fastlane.Event)
	now       func() time.Time
	logger    *slog.Logger
	id        string
}

func newConfig(opts []Option) config {
	cfg := config{
		readiness: fastlane.RequireAll(),
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	return cfg
}

// WithTrigger sets the early-trigger callback. Without one, the trigger
// still fires (and is reported) but no job runs.
func WithTrigger(fn fastlane.TriggerFunc) Option {
	return func(c *config) { c.trigger = fn }
}

// WithFinal sets the final-completion callback.
func WithFinal(fn fastlane.FinalFunc) Option {
	return func(c *config) { c.final = fn }
}

// WithAllComplete sets a callback notified once when every declared field
// is complete before the stream ends.
func WithAllComplete(fn fastlane.AllCompleteFunc) Option {
	return func(c *config) { c.complete = fn }
}

// WithReadiness replaces the default RequireAll readiness.
func WithReadiness(r fastlane.Readiness) Option {
	return func(c *config) {
		if r != nil {
			c.readiness = r
		}
	}
}

// WithEventHandler adds a callback that receives every event as it is
// emitted. Handlers run on the dispatching goroutine and must not block.
// May be given more than once.
func WithEventHandler(h func(fastlane.Event)) Option {
	return func(c *config) {
		if h != nil {
			c.handlers = append(c.handlers, h)
		}
	}
}

// WithClock replaces time.Now for elapsed-time measurement.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// WithLogger sets the session logger. Default discards.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithID sets the session ID. Default is a random UUID.
func WithID(id string) Option {
	return func(c *config) { c.id = id }
}
