package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSource(t *testing.T) {
	tests := []struct {
		in   string
		want source
	}{
		{"data/sets.bin", source{kind: sourceLocal, dir: "data", key: "sets.bin"}},
		{"sets.bin.zst", source{kind: sourceLocal, dir: ".", key: "sets.bin.zst"}},
		{"s3://bucket/path/to/sets.bin", source{kind: sourceS3, bucket: "bucket", key: "path/to/sets.bin"}},
		{"minio://localhost:9000/bucket/sets.bin.lz4", source{kind: sourceMinio, endpoint: "localhost:9000", bucket: "bucket", key: "sets.bin.lz4"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseSource(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSource_Invalid(t *testing.T) {
	for _, in := range []string{
		"s3://bucket",
		"s3:///key",
		"minio://localhost:9000/bucket",
		"minio://localhost:9000",
		"gs://bucket/key",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := parseSource(in)
			assert.Error(t, err)
		})
	}
}

func TestSourceString(t *testing.T) {
	for _, in := range []string{
		"s3://bucket/a/b.bin",
		"minio://host:9000/bucket/b.bin",
	} {
		s, err := parseSource(in)
		require.NoError(t, err)
		assert.Equal(t, in, s.String())
	}
}

func TestWorkerCounts(t *testing.T) {
	assert.Equal(t, []int{1}, workerCounts(1))
	assert.Equal(t, []int{1}, workerCounts(0))
	assert.Equal(t, []int{1, 2, 4, 8}, workerCounts(8))
	assert.Equal(t, []int{1, 2, 4, 6}, workerCounts(6))
}
