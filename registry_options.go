package libreg

type (
	options struct {
		logger Logger
	}

	// Option configures a Registry.
	Option func(*options)
)

// WithLogger sets the logger the registry reports final/clear activity to. Defaults to a no-op logger.
func WithLogger(l Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func newOptions(opts ...Option) options {
	o := options{logger: NewNoopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
