package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/hupe1980/scalareval"
	"github.com/hupe1980/scalareval/expr"
	"github.com/hupe1980/scalareval/scalar"
	"github.com/hupe1980/scalareval/setview"
)

func newEvalCmd(cfg *Config) *cobra.Command {
	var (
		floats  bool
		preload bool
		seed    int64
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "eval <file> <min> <max> <values>",
		Short: "Match a random probe set against every set of a file",
		Args:  cobra.ExactArgs(4),
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
			if seed == 0 {
				seed = time.Now().UnixNano()
			}

			rt, err := newRuntime(*cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			start := time.Now()
			var res *scalareval.MatchResult
			if floats {
				res, err = evaluate[float32](cmd.Context(), rt, args[0], lo, hi, values, seed, preload)
			} else {
				res, err = evaluate[int32](cmd.Context(), rt, args[0], lo, hi, values, seed, preload)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, map[string]any{
					"matches": res.Handles(),
					"count":   res.Count,
					"stats":   res.Stats,
				})
			}
			fmt.Fprintf(out, "Found %d matches in %s\n", res.Count, formatDuration(res.Stats.TotalTime))
			fmt.Fprintf(out, "Operation took %s.\n", formatDuration(time.Since(start)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&floats, "floats", false, "Read float32 sets instead of int32")
	cmd.Flags().BoolVar(&preload, "preload", false, "Fault the mapped file into memory before matching")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed for the probe set (0 = time based)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the result as JSON")
	return cmd
}

func evaluate[T scalar.Value](ctx context.Context, rt *runtime, src string, lo, hi int32, values int, seed int64, preload bool) (*scalareval.MatchResult, error) {
	cat := setview.NewCatalog[T]()
	defer cat.Close()

	handles, err := openSets(ctx, rt, cat, src, preload)
	if err != nil {
		return nil, err
	}

	eng, err := newEngine(rt, cat)
	if err != nil {
		return nil, err
	}
	defer eng.Close()

	probe := randomValues[T](rand.New(rand.NewSource(seed)), values, lo, hi)
	return eng.MatchAny(ctx, probe, handles)
}

func newQueryCmd(cfg *Config) *cobra.Command {
	var (
		floats  bool
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "query <file> <expression>",
		Short: "Evaluate a set expression over the sets of a file",
		Long: `Evaluate a set expression. Handles are set positions in the file:

  scalareval query sets.bin 'and(#0, or(#1, range(#2, [10, 20))))'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(*cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			if floats {
				return query[float32](cmd.Context(), rt, cmd.OutOrStdout(), args[0], args[1], jsonOut)
			}
			return query[int32](cmd.Context(), rt, cmd.OutOrStdout(), args[0], args[1], jsonOut)
		},
	}
	cmd.Flags().BoolVar(&floats, "floats", false, "Read float32 sets instead of int32")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print values and stats as JSON")
	return cmd
}

func query[T scalar.Value](ctx context.Context, rt *runtime, w io.Writer, src, text string, jsonOut bool) error {
	n, err := expr.Parse[T](text)
	if err != nil {
		return err
	}

	cat := setview.NewCatalog[T]()
	defer cat.Close()
	if _, err := openSets(ctx, rt, cat, src, false); err != nil {
		return err
	}

	eng, err := newEngine(rt, cat)
	if err != nil {
		return err
	}
	defer eng.Close()

	res, err := eng.Evaluate(ctx, n)
	if err != nil {
		return err
	}

	if jsonOut {
		values := res.Values
		if values == nil {
			values = []T{}
		}
		return writeJSON(w, map[string]any{
			"expression": n.String(),
			"values":     values,
			"stats":      res.Stats,
		})
	}

	parts := make([]string, len(res.Values))
	for i, v := range res.Values {
		parts[i] = scalar.Format(v)
	}
	fmt.Fprintln(w, strings.Join(parts, " "))
	fmt.Fprintf(w, "%d values in %s\n", res.Len(), formatDuration(res.Stats.TotalTime))
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
