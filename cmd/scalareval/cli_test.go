package main

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/scalareval/setview"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	cfg := DefaultConfig()
	cfg.LogLevel = "error"

	var out bytes.Buffer
	root := newRootCmd(&cfg)
	root.SetOut(&out)
	root.SetArgs(args)
	require.NoError(t, root.ExecuteContext(t.Context()), "args: %v", args)
	return out.String()
}

func fileSets(t *testing.T, path string) [][]int32 {
	t.Helper()
	cat := setview.NewCatalog[int32]()
	defer cat.Close()
	handles, err := cat.OpenFile(path, setview.WithVerify())
	require.NoError(t, err)

	out := make([][]int32, len(handles))
	for i, h := range handles {
		s, ok := cat.Set(h)
		require.True(t, ok)
		out[i] = append([]int32(nil), s.Values()...)
	}
	return out
}

func TestGenerateAndQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sets.bin")

	out := run(t, "generate", "--seed", "7", path, "0", "100", "20", "4")
	assert.Contains(t, out, "Generating 4 sets")

	sets := fileSets(t, path)
	require.Len(t, sets, 4)
	for _, s := range sets {
		assert.Len(t, s, 20)
	}

	for _, backend := range []string{"cpu", "gpu"} {
		t.Run(backend, func(t *testing.T) {
			out := run(t, "--backend", backend, "--chunks", "3", "query", "--json", path, "diff(#0, #0)")
			var res struct {
				Values []int32 `json:"values"`
			}
			require.NoError(t, json.Unmarshal([]byte(out), &res))
			assert.Empty(t, res.Values)

			out = run(t, "--backend", backend, "query", "--json", path, "or(#1, diff(#2, #2))")
			require.NoError(t, json.Unmarshal([]byte(out), &res))
			assert.Equal(t, sets[1], res.Values)
		})
	}
}

func TestQueryPlainOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sets.bin")
	run(t, "generate", "--seed", "1", path, "0", "10", "3", "1")

	out := run(t, "query", path, "#0")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Len(t, strings.Fields(lines[0]), 3)
	assert.Contains(t, lines[1], "3 values in")
}

func TestGenerateCompressed(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"sets.bin.zst", "sets.bin.lz4"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			run(t, "generate", "--floats", "--seed", "3", path, "-50", "50", "10", "3")

			out := run(t, "--verify", "query", "--floats", "--json", path, "and(#0, #0)")
			var res struct {
				Values []float32 `json:"values"`
			}
			require.NoError(t, json.Unmarshal([]byte(out), &res))
			assert.Len(t, res.Values, 10)
		})
	}
}

func TestEval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sets.bin")
	run(t, "generate", "--seed", "11", path, "0", "200", "30", "8")
	sets := fileSets(t, path)

	probe := randomValues[int32](rand.New(rand.NewSource(5)), 10, 0, 200)
	want := 0
	for _, s := range sets {
		if slices.ContainsFunc(probe, setview.FromValues(s).Contains) {
			want++
		}
	}

	for _, backend := range []string{"cpu", "gpu"} {
		t.Run(backend, func(t *testing.T) {
			out := run(t, "--backend", backend, "eval", "--json", "--seed", "5", "--preload", path, "0", "200", "10")
			var res struct {
				Count   int      `json:"count"`
				Matches []uint32 `json:"matches"`
			}
			require.NoError(t, json.Unmarshal([]byte(out), &res))
			assert.Equal(t, want, res.Count)
			assert.Len(t, res.Matches, want)
		})
	}

	out := run(t, "eval", "--seed", "5", path, "0", "200", "10")
	assert.Contains(t, out, "Found ")
	assert.Contains(t, out, "Operation took")
}

func TestBench(t *testing.T) {
	dir := t.TempDir()
	report := filepath.Join(dir, "report.md")

	run(t, "bench",
		"--dir", dir,
		"--set-sizes", "10,20",
		"--set-counts", "3",
		"--probe-sizes", "5",
		"--max-workers", "2",
		report, "0", "1000",
	)

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "Number of values in a set: 10")
	assert.Contains(t, text, "Number of values in a set: 20")

	rows := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "|") && !strings.Contains(line, "Sets") && !strings.Contains(line, "---") {
			rows++
		}
	}
	// 2 set sizes x 1 set count x 2 preload modes x 2 worker counts x 1 probe size
	assert.Equal(t, 8, rows)

	_, err = os.Stat(filepath.Join(dir, "i32_3_sets_with_10_values.bin"))
	assert.NoError(t, err)
}

func TestMetricsServer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sets.bin")
	run(t, "generate", path, "0", "100", "5", "2")
	out := run(t, "--metrics-addr", "127.0.0.1:0", "query", path, "or(#0, #1)")
	assert.Contains(t, out, "values in")
}

func TestInvalidArgs(t *testing.T) {
	for _, args := range [][]string{
		{"generate", "f.bin", "x", "10", "5", "2"},
		{"query", "missing.bin", "#0"},
		{"--backend", "tpu", "query", "missing.bin", "#0"},
	} {
		cfg := DefaultConfig()
		root := newRootCmd(&cfg)
		root.SetOut(&bytes.Buffer{})
		root.SetArgs(args)
		assert.Error(t, root.Execute(), "args: %v", args)
	}
}
