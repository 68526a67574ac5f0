// Command scalareval generates, inspects and benchmarks multi-set files.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	cfg, err := LoadConfig(".env")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = newRootCmd(&cfg).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Flag defaults come from cfg, so flags
// override the environment.
func newRootCmd(cfg *Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "scalareval",
		Short:         "Scalar set evaluator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfg.Backend, "backend", cfg.Backend, "Execution backend: cpu or gpu")
	flags.StringVar(&cfg.Device, "device", cfg.Device, "GPU device driver: emulator or opencl")
	flags.IntVar(&cfg.DeviceOrdinal, "device-ordinal", cfg.DeviceOrdinal, "GPU device index")
	flags.IntVar(&cfg.Workers, "workers", cfg.Workers, "CPU worker count (0 = GOMAXPROCS)")
	flags.IntVar(&cfg.Chunks, "chunks", cfg.Chunks, "Chunks per query (0 = backend default)")
	flags.BoolVar(&cfg.CPUFallback, "cpu-fallback", cfg.CPUFallback, "Fall back to the CPU backend when no device is available")
	flags.Int64Var(&cfg.MemoryLimit, "memory-limit", cfg.MemoryLimit, "Query memory limit in bytes (0 = unlimited)")
	flags.Int64Var(&cfg.IOLimit, "io-limit", cfg.IOLimit, "Remote preload throughput in bytes/s (0 = unlimited)")
	flags.Int64Var(&cfg.CacheSize, "cache-size", cfg.CacheSize, "Block cache for remote set files in bytes (0 = off)")
	flags.BoolVar(&cfg.Verify, "verify", cfg.Verify, "Verify checksums and ordering when opening set files")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	flags.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text or json")
	flags.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Serve Prometheus metrics on this address")

	root.AddCommand(
		newGenerateCmd(cfg),
		newEvalCmd(cfg),
		newQueryCmd(cfg),
		newBenchCmd(cfg),
	)
	return root
}

func parseInt32(name, s string) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return int32(v), nil
}

func parseCount(name, s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return v, nil
}
