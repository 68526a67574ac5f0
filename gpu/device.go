package gpu

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Kind selects a driver.
type Kind string

const (
	// KindEmulator is the software device.
	KindEmulator Kind = "emulator"
	// KindOpenCL is an OpenCL device.
	KindOpenCL Kind = "opencl"
)

// ParseKind parses a driver name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindEmulator, KindOpenCL:
		return k, nil
	case "":
		return KindEmulator, nil
	default:
		return "", fmt.Errorf("%w: unknown device kind %q", ErrUnavailable, s)
	}
}

// DefaultWindowSize is the number of elements one emulator work item covers.
const DefaultWindowSize = 4096

// Config configures Open.
type Config struct {
	// Kind selects the driver. Defaults to KindEmulator.
	Kind Kind
	// Ordinal selects the device when a platform exposes several.
	Ordinal int
	// WindowSize is the emulator's work-item size, rounded up to a multiple of 64.
	WindowSize int
	// Workers bounds the emulator's parallelism. Defaults to GOMAXPROCS.
	Workers int
	// FaultHook, if set, is called before every dispatch with the kernel
	// name. A non-nil result fails the dispatch.
	FaultHook func(op string) error
	// Logger receives device lifecycle events.
	Logger *slog.Logger
}

// Device is a process-wide handle to one accelerator.
type Device struct {
	cfg    Config
	drv    Driver
	queue  *semaphore.Weighted
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// Open opens the device described by cfg.
func Open(cfg Config) (*Device, error) {
	if cfg.Kind == "" {
		cfg.Kind = KindEmulator
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = DefaultWindowSize
	}
	cfg.WindowSize = (cfg.WindowSize + 63) &^ 63
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var (
		drv Driver
		err error
	)
	switch cfg.Kind {
	case KindEmulator:
		drv = newEmulator(cfg.WindowSize, cfg.Workers)
	case KindOpenCL:
		drv, err = openCL(cfg.Ordinal)
	default:
		err = fmt.Errorf("%w: unknown device kind %q", ErrUnavailable, cfg.Kind)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("gpu device opened", "kind", string(cfg.Kind), "device", drv.Name())
	return &Device{
		cfg:    cfg,
		drv:    drv,
		queue:  semaphore.NewWeighted(1),
		logger: logger,
	}, nil
}

// Kind returns the driver kind.
func (d *Device) Kind() Kind { return d.cfg.Kind }

// Name describes the device.
func (d *Device) Name() string { return d.drv.Name() }

// Acquire waits for the device queue and returns a session that owns it
// until Close. Waiting is cancelled with ctx.
func (d *Device) Acquire(ctx context.Context) (*Session, error) {
	if d.isClosed() {
		return nil, ErrClosed
	}
	if err := d.queue.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	if d.isClosed() {
		d.queue.Release(1)
		return nil, ErrClosed
	}
	return &Session{dev: d}, nil
}

func (d *Device) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Close waits for the running session, if any, and frees the device.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	_ = d.queue.Acquire(context.Background(), 1)
	defer d.queue.Release(1)

	d.logger.Info("gpu device closed", "kind", string(d.cfg.Kind))
	return d.drv.Close()
}
