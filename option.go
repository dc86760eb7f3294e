package bptree

// Options configures tree behavior.
type Options struct {
	logger         Logger
	hotKeyCapacity uint32
}

func defaultOptions() Options {
	return Options{
		logger: DiscardLogger{},
	}
}

// Option configures tree options using the functional options pattern.
type Option func(*Options)

// WithLogger sets the logger used for snapshot events and structural
// corruption errors.
// The default logger discards everything.
//
//goland:noinspection GoUnusedExportedFunction
func WithLogger(l Logger) Option {
	return func(opts *Options) {
		opts.logger = l
	}
}

// WithHotKeyTracking enables the access-frequency tracker with the given
// capacity. Tracking records how often each key is successfully looked up;
// the least recently touched keys are evicted once capacity is reached.
//
//goland:noinspection GoUnusedExportedFunction
func WithHotKeyTracking(capacity uint32) Option {
	return func(opts *Options) {
		opts.hotKeyCapacity = capacity
	}
}
