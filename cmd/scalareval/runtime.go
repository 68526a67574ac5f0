package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/scalareval"
	"github.com/hupe1980/scalareval/gpu"
	"github.com/hupe1980/scalareval/internal/cache"
	"github.com/hupe1980/scalareval/internal/resource"
	"github.com/hupe1980/scalareval/metric"
	"github.com/hupe1980/scalareval/scalar"
	"github.com/hupe1980/scalareval/setview"
)

// runtime holds the process-wide pieces shared by every engine a command
// builds: logger, resource controller, metrics and an optional device.
type runtime struct {
	cfg     Config
	logger  *scalareval.Logger
	rc      *resource.Controller
	metrics scalareval.MetricsCollector
	device  *gpu.Device
	cache   *cache.Sharded
	server  *http.Server
}

func newRuntime(cfg Config) (*runtime, error) {
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}

	rt := &runtime{
		cfg:     cfg,
		logger:  NewLogger(&cfg),
		metrics: scalareval.NoopMetricsCollector{},
		rc: resource.NewController(resource.Config{
			MemoryLimitBytes:     cfg.MemoryLimit,
			MaxBackgroundWorkers: 2,
			IOLimitBytesPerSec:   cfg.IOLimit,
		}),
	}

	if cfg.CacheSize > 0 {
		rt.cache = cache.NewSharded(cfg.CacheSize, rt.rc)
	}

	if cfg.MetricsAddr != "" {
		if err := rt.serveMetrics(cfg.MetricsAddr); err != nil {
			return nil, err
		}
	}

	if kind, _ := scalareval.ParseBackend(cfg.Backend); kind == scalareval.BackendGPU {
		devKind, _ := gpu.ParseKind(cfg.Device)
		dev, err := gpu.Open(gpu.Config{
			Kind:    devKind,
			Ordinal: cfg.DeviceOrdinal,
			Logger:  rt.logger.Logger,
		})
		switch {
		case err == nil:
			rt.device = dev
		case cfg.CPUFallback:
			// New falls back to CPU when the device is missing.
			rt.logger.Warn("gpu device unavailable", "device", cfg.Device, "error", err)
		default:
			_ = rt.Close()
			return nil, err
		}
	}
	return rt, nil
}

func (rt *runtime) serveMetrics(addr string) error {
	reg := prometheus.NewRegistry()
	rt.metrics = metric.NewPrometheusCollector(reg, "scalareval")

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	rt.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		rt.logger.Info("Starting metrics server", "address", lis.Addr().String())
		if err := rt.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.logger.Error("Metrics server failed", "error", err)
		}
	}()
	return nil
}

func (rt *runtime) engineOptions() []scalareval.Option {
	kind, _ := scalareval.ParseBackend(rt.cfg.Backend)
	opts := []scalareval.Option{
		scalareval.WithBackend(kind),
		scalareval.WithCPUFallback(rt.cfg.CPUFallback),
		scalareval.WithResourceController(rt.rc),
		scalareval.WithMetricsCollector(rt.metrics),
		scalareval.WithLogger(rt.logger),
	}
	if rt.device != nil {
		opts = append(opts, scalareval.WithDevice(rt.device))
	}
	if rt.cfg.Workers > 0 {
		opts = append(opts, scalareval.WithWorkers(rt.cfg.Workers))
	}
	if rt.cfg.Chunks > 0 {
		opts = append(opts, scalareval.WithChunks(rt.cfg.Chunks))
	}
	return opts
}

func newEngine[T scalar.Value](rt *runtime, cat *setview.Catalog[T], extra ...scalareval.Option) (*scalareval.Engine[T], error) {
	return scalareval.New(cat, append(rt.engineOptions(), extra...)...)
}

func (rt *runtime) Close() error {
	var errs []error
	if rt.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = append(errs, rt.server.Shutdown(ctx))
		cancel()
	}
	if rt.device != nil {
		errs = append(errs, rt.device.Close())
	}
	return errors.Join(errs...)
}
