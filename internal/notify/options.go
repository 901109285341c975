package notify

import (
	"time"

	"go.uber.org/zap"
)

// Option configures a scheduler backend.
type Option func(*options)

type options struct {
	horizon time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

func defaultOptions() options {
	return options{
		horizon: DefaultHorizon,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  zap.NewNop(),
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithHorizon sets how far ahead reminders are materialized.
func WithHorizon(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.horizon = d
		}
	}
}

// WithNow sets the clock used as the start of the reminder window.
func WithNow(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithLogger sets the backend logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
