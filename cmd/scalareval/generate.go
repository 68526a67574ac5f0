package main

import (
	"context"
	"fmt"
	"math/rand"
	goruntime "runtime"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/scalareval/scalar"
	"github.com/hupe1980/scalareval/setview"
)

func newGenerateCmd(cfg *Config) *cobra.Command {
	var (
		floats bool
		seed   int64
	)
	cmd := &cobra.Command{
		Use:   "generate <file> <min> <max> <values> <sets>",
		Short: "Write a set file of random sets",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			lo, err := parseInt32("min", args[1])
			if err != nil {
				return err
			}
			hi, err := parseInt32("max", args[2])
			if err != nil {
				return err
			}
			values, err := parseCount("values", args[3])
			if err != nil {
				return err
			}
			sets, err := parseCount("sets", args[4])
			if err != nil {
				return err
			}
			if seed == 0 {
				seed = time.Now().UnixNano()
			}

			start := time.Now()
			fmt.Fprintf(cmd.OutOrStdout(), "Generating %d sets to %s...\n", sets, args[0])
			if floats {
				err = generate[float32](cmd.Context(), cfg, args[0], lo, hi, values, sets, seed)
			} else {
				err = generate[int32](cmd.Context(), cfg, args[0], lo, hi, values, sets, seed)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Operation took %s.\n", formatDuration(time.Since(start)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&floats, "floats", false, "Generate float32 sets instead of int32")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 = time based)")
	return cmd
}

func generate[T scalar.Value](ctx context.Context, cfg *Config, dst string, lo, hi int32, values, count int, seed int64) error {
	sets := make([][]T, count)

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(goruntime.GOMAXPROCS(0))
	for i := range sets {
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seed + int64(i)))
			sets[i] = randomValues[T](rng, values, lo, hi)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return writeSets(ctx, cfg, dst, sets)
}

// randomValues draws n distinct values from [lo, hi). n is capped at the
// size of the range.
func randomValues[T scalar.Value](rng *rand.Rand, n int, lo, hi int32) []T {
	span := int64(hi) - int64(lo)
	if span <= 0 {
		return nil
	}
	n = int(min(int64(n), span))

	seen := make(map[int64]struct{}, n)
	out := make([]T, 0, n)
	for len(out) < n {
		v := int64(lo) + rng.Int63n(span)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, T(v))
	}
	return setview.Normalize(out)
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%d.%06d s", int64(d/time.Second), int64(d%time.Second/time.Microsecond))
}
