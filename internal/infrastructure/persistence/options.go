package persistence

import (
	"time"
)

// Option configures a todo repository.
type Option func(*options)

type options struct {
	now             func() time.Time
	serializeWrites bool
}

func defaultOptions() options {
	return options{
		now: func() time.Time { return time.Now().UTC() },
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()

	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// WithClock replaces the time source used for createdAt/updatedAt.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = func() time.Time { return now().UTC() }
	}
}

// WithSerializedWrites makes the JSON file repository run each mutating
// call's load/modify/save cycle under one mutex. Without it two concurrent
// mutations race and the last writer wins.
func WithSerializedWrites() Option {
	return func(o *options) {
		o.serializeWrites = true
	}
}
