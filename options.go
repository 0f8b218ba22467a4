package offheap

import (
	"log/slog"

	"github.com/hupe1980/offheap/codec"
	"github.com/hupe1980/offheap/resource"
)

// DefaultCapacity is the arena size used when WithCapacity is not given.
const DefaultCapacity = 16 << 20

type options struct {
	capacity         int
	codec            codec.Codec
	metricsCollector MetricsCollector
	logger           *Logger
	resources        *resource.Controller
}

// Option configures Open.
type Option func(*options)

// WithCapacity sets the arena size in bytes. The arena never grows.
func WithCapacity(bytes int) Option {
	return func(o *options) {
		o.capacity = bytes
	}
}

// WithCodec configures the codec used to encode stored objects.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &offheap.BasicMetricsCollector{}
//	a, _ := offheap.Open(ctx, offheap.WithMetricsCollector(metrics))
//	// ... use a ...
//	stats := metrics.GetStats()
//	fmt.Printf("Stores: %d, GC collected: %d\n", stats.StoreCount, stats.GCCollected)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := offheap.NewJSONLogger(slog.LevelInfo)
//	a, _ := offheap.Open(ctx, offheap.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithResourceController charges the arena against a shared memory budget
// and throttles report exports.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		capacity:         DefaultCapacity,
		codec:            codec.Default,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
