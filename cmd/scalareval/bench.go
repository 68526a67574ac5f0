package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/scalareval"
	"github.com/hupe1980/scalareval/scalar"
	"github.com/hupe1980/scalareval/setview"
)

// benchMatrix is the parameter grid of a bench run.
type benchMatrix struct {
	SetSizes   []int
	SetCounts  []int
	ProbeSizes []int
	MaxWorkers int
	Min, Max   int32
	Dir        string
	Floats     bool
	Seed       int64
}

// benchResult is one measured cell of the grid.
type benchResult struct {
	SetSize   int
	SetCount  int
	ProbeSize int
	Workers   int
	Preload   bool
	Matches   int
	Duration  time.Duration
}

func newBenchCmd(cfg *Config) *cobra.Command {
	m := benchMatrix{
		SetSizes:   []int{10, 100, 1000, 10000},
		SetCounts:  []int{10, 100, 1000, 10000, 100000},
		ProbeSizes: []int{10, 100, 1000, 10000},
		MaxWorkers: goruntime.GOMAXPROCS(0),
		Seed:       1,
	}
	cmd := &cobra.Command{
		Use:   "bench <report> <min> <max>",
		Short: "Run the benchmark matrix and write a Markdown report",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if m.Min, err = parseInt32("min", args[1]); err != nil {
				return err
			}
			if m.Max, err = parseInt32("max", args[2]); err != nil {
				return err
			}

			rt, err := newRuntime(*cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			var results []benchResult
			if m.Floats {
				results, err = runBench[float32](cmd.Context(), rt, cmd.OutOrStdout(), m)
			} else {
				results, err = runBench[int32](cmd.Context(), rt, cmd.OutOrStdout(), m)
			}
			if err != nil {
				return err
			}

			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			if err := writeReport(f, results); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&m.Floats, "floats", false, "Benchmark float32 sets instead of int32")
	flags.IntSliceVar(&m.SetSizes, "set-sizes", m.SetSizes, "Values per set")
	flags.IntSliceVar(&m.SetCounts, "set-counts", m.SetCounts, "Sets per file")
	flags.IntSliceVar(&m.ProbeSizes, "probe-sizes", m.ProbeSizes, "Values per probe set")
	flags.IntVar(&m.MaxWorkers, "max-workers", m.MaxWorkers, "Largest worker count; counts double from 1")
	flags.StringVar(&m.Dir, "dir", ".", "Directory for generated set files, reused across runs")
	flags.Int64Var(&m.Seed, "seed", m.Seed, "Random seed")
	return cmd
}

// workerCounts returns 1, 2, 4, ... up to and including limit.
func workerCounts(limit int) []int {
	var out []int
	for w := 1; w < limit; w *= 2 {
		out = append(out, w)
	}
	return append(out, max(limit, 1))
}

func benchFileName(m benchMatrix, count, size int) string {
	prefix := "i32"
	if m.Floats {
		prefix = "f32"
	}
	return filepath.Join(m.Dir, fmt.Sprintf("%s_%d_sets_with_%d_values.bin", prefix, count, size))
}

func runBench[T scalar.Value](ctx context.Context, rt *runtime, log io.Writer, m benchMatrix) ([]benchResult, error) {
	for _, size := range m.SetSizes {
		for _, count := range m.SetCounts {
			name := benchFileName(m, count, size)
			if _, err := os.Stat(name); err == nil {
				continue
			}
			fmt.Fprintf(log, "Generating test set %s...\n", name)
			if err := generate[T](ctx, &rt.cfg, name, m.Min, m.Max, size, count, m.Seed); err != nil {
				return nil, err
			}
		}
	}

	workers := workerCounts(m.MaxWorkers)
	var results []benchResult
	for _, size := range m.SetSizes {
		for _, count := range m.SetCounts {
			name := benchFileName(m, count, size)
			for _, preload := range []bool{false, true} {
				fmt.Fprintf(log, "Running test set %s (preload=%t)...\n", name, preload)
				cells, err := benchFile[T](ctx, rt, m, name, preload, workers)
				if err != nil {
					return nil, err
				}
				for i := range cells {
					cells[i].SetSize = size
					cells[i].SetCount = count
				}
				results = append(results, cells...)
			}
		}
	}
	return results, nil
}

func benchFile[T scalar.Value](ctx context.Context, rt *runtime, m benchMatrix, name string, preload bool, workers []int) ([]benchResult, error) {
	cat := setview.NewCatalog[T]()
	defer cat.Close()

	handles, err := openSets(ctx, rt, cat, name, preload)
	if err != nil {
		return nil, err
	}

	var out []benchResult
	for _, w := range workers {
		eng, err := newEngine(rt, cat, scalareval.WithWorkers(w))
		if err != nil {
			return nil, err
		}
		for _, probeSize := range m.ProbeSizes {
			probe := randomValues[T](rand.New(rand.NewSource(m.Seed+int64(probeSize))), probeSize, m.Min, m.Max)
			res, err := eng.MatchAny(ctx, probe, handles)
			if err != nil {
				_ = eng.Close()
				return nil, err
			}
			out = append(out, benchResult{
				ProbeSize: probeSize,
				Workers:   w,
				Preload:   preload,
				Matches:   res.Count,
				Duration:  res.Stats.TotalTime,
			})
		}
		if err := eng.Close(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// writeReport writes one Markdown table per set size.
func writeReport(w io.Writer, results []benchResult) error {
	bw := bufio.NewWriterSize(w, 1<<20)

	current := -1
	for _, r := range results {
		if r.SetSize != current {
			current = r.SetSize
			fmt.Fprintf(bw, "\nNumber of values in a set: %d\n\n", current)
			fmt.Fprintf(bw, "|%14s|%14s|%8s|%8s|%14s|%16s|\n", "Sets", "Test set size", "Workers", "Preload", "Matching sets", "Duration")
			fmt.Fprintf(bw, "|%s:|%s:|%s:|%s:|%s:|%s:|\n", strings.Repeat("-", 13), strings.Repeat("-", 13), strings.Repeat("-", 7), strings.Repeat("-", 7), strings.Repeat("-", 13), strings.Repeat("-", 15))
		}
		fmt.Fprintf(bw, "|%14d|%14d|%8d|%8t|%14d|%16s|\n", r.SetCount, r.ProbeSize, r.Workers, r.Preload, r.Matches, formatDuration(r.Duration))
	}
	return bw.Flush()
}
