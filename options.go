package scalareval

import (
	"log/slog"

	"github.com/hupe1980/scalareval/gpu"
	"github.com/hupe1980/scalareval/internal/backend"
	"github.com/hupe1980/scalareval/internal/resource"
)

// BackendKind selects the execution backend of an Engine.
type BackendKind = backend.Kind

const (
	// BackendCPU evaluates on a bounded worker pool.
	BackendCPU = backend.KindCPU
	// BackendGPU evaluates with the kernels of a gpu.Device.
	BackendGPU = backend.KindGPU
)

// ParseBackend parses "cpu" or "gpu".
func ParseBackend(s string) (BackendKind, error) {
	return backend.ParseKind(s)
}

// DefaultGPUChunks is the chunk count used by the GPU backend when none is
// configured. A device works best on few large launches.
const DefaultGPUChunks = 1

type options struct {
	backend          BackendKind
	workers          int
	chunks           int
	device           *gpu.Device
	cpuFallback      bool
	memoryLimit      int64
	resources        *resource.Controller
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures an Engine.
type Option func(*options)

// WithBackend selects the execution backend. Defaults to BackendCPU.
func WithBackend(kind BackendKind) Option {
	return func(o *options) {
		o.backend = kind
	}
}

// WithWorkers sets the size of the CPU worker pool.
// Values below 1 select runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithChunks sets the number of chunks a query's domain is split into.
//
// The CPU backend defaults to the worker count so that every worker gets one
// chunk; the GPU backend defaults to DefaultGPUChunks. Results never depend
// on the chunk count.
func WithChunks(n int) Option {
	return func(o *options) {
		o.chunks = n
	}
}

// WithDevice sets the device used by the GPU backend. The caller keeps
// ownership of dev and closes it after every engine using it.
func WithDevice(dev *gpu.Device) Option {
	return func(o *options) {
		o.device = dev
	}
}

// WithCPUFallback lets New fall back to the CPU backend when the GPU backend
// is unavailable. The fallback is logged and reported in Stats.Backend.
func WithCPUFallback(enabled bool) Option {
	return func(o *options) {
		o.cpuFallback = enabled
	}
}

// WithMemoryLimit bounds the bytes all concurrent queries of the engine may
// reserve for intermediate and result buffers. Zero means unlimited.
// Ignored when WithResourceController is set.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithResourceController shares a resource controller between engines.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &scalareval.BasicMetricsCollector{}
//	eng, _ := scalareval.New(catalog, scalareval.WithMetricsCollector(metrics))
//	// ... use eng ...
//	stats := metrics.GetStats()
//	fmt.Printf("Queries: %d, Avg latency: %dns\n", stats.EvaluateCount, stats.EvaluateAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := scalareval.NewJSONLogger(slog.LevelInfo)
//	eng, _ := scalareval.New(catalog, scalareval.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
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

func applyOptions(optFns []Option) options {
	o := options{
		backend:          BackendCPU,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}
