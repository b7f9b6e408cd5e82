package serial

import (
	"github.com/conduit-lang/rtti/pkg/rtti"
	"go.uber.org/zap"
)

// Option configures an Encoder or a Decoder
type Option func(*options)

type options struct {
	logger   *zap.Logger
	registry *rtti.Registry
	hooks    hookSet
}

func newOptions(opts []Option) *options {
	o := &options{
		logger:   zap.NewNop(),
		registry: rtti.Default(),
		hooks:    make(hookSet),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger used for phase transitions. The default logs nothing.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRegistry sets the registry used to resolve type ids. The default is rtti.Default().
func WithRegistry(registry *rtti.Registry) Option {
	return func(o *options) {
		if registry != nil {
			o.registry = registry
		}
	}
}

// WithHook adds a hook run for every instance after the type's own hooks
func WithHook(hookType HookType, fn rtti.HookFunc) Option {
	return func(o *options) {
		o.hooks[hookType] = append(o.hooks[hookType], fn)
	}
}
