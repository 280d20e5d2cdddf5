package subscription

import (
	"time"

	"planpass/internal/events"
)

type options struct {
	now        func() time.Time
	publisher  events.Publisher
	runOnStart bool
}

func defaultOptions() options {
	return options{
		now:        time.Now,
		publisher:  events.NoopPublisher{},
		runOnStart: true,
	}
}

type Option func(*options)

// WithClock replaces the wall clock used for every lifecycle decision.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithPublisher sets where lifecycle events go. Publishing is best-effort.
func WithPublisher(p events.Publisher) Option {
	return func(o *options) {
		if p != nil {
			o.publisher = p
		}
	}
}

// WithRunOnStart controls whether the sweeper runs immediately when started.
func WithRunOnStart(enabled bool) Option {
	return func(o *options) {
		o.runOnStart = enabled
	}
}
