package main

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/hupe1980/scalareval/blobstore"
	miniostore "github.com/hupe1980/scalareval/blobstore/minio"
	s3store "github.com/hupe1980/scalareval/blobstore/s3"
	"github.com/hupe1980/scalareval/scalar"
	"github.com/hupe1980/scalareval/setfile"
	"github.com/hupe1980/scalareval/setview"
)

type sourceKind int

const (
	sourceLocal sourceKind = iota
	sourceS3
	sourceMinio
)

// source is a parsed set-file location.
type source struct {
	kind     sourceKind
	endpoint string // minio only
	bucket   string
	key      string // object key, or the base name for local files
	dir      string // local only
}

// parseSource accepts a local path, s3://bucket/key or
// minio://endpoint/bucket/key.
func parseSource(s string) (source, error) {
	if !strings.Contains(s, "://") {
		return source{kind: sourceLocal, dir: filepath.Dir(s), key: filepath.Base(s)}, nil
	}

	u, err := url.Parse(s)
	if err != nil {
		return source{}, fmt.Errorf("invalid source %q: %w", s, err)
	}
	path := strings.TrimPrefix(u.Path, "/")

	switch u.Scheme {
	case "s3":
		if u.Host == "" || path == "" {
			return source{}, fmt.Errorf("invalid source %q: want s3://bucket/key", s)
		}
		return source{kind: sourceS3, bucket: u.Host, key: path}, nil
	case "minio":
		bucket, key, ok := strings.Cut(path, "/")
		if u.Host == "" || !ok || bucket == "" || key == "" {
			return source{}, fmt.Errorf("invalid source %q: want minio://endpoint/bucket/key", s)
		}
		return source{kind: sourceMinio, endpoint: u.Host, bucket: bucket, key: key}, nil
	default:
		return source{}, fmt.Errorf("invalid source %q: unsupported scheme %q", s, u.Scheme)
	}
}

func (s source) String() string {
	switch s.kind {
	case sourceS3:
		return "s3://" + s.bucket + "/" + s.key
	case sourceMinio:
		return "minio://" + s.endpoint + "/" + s.bucket + "/" + s.key
	default:
		return filepath.Join(s.dir, s.key)
	}
}

// store returns the blob store holding the source.
func (s source) store(ctx context.Context, cfg *Config) (blobstore.BlobStore, error) {
	switch s.kind {
	case sourceS3:
		var opts []s3store.Option
		if cfg.S3Region != "" {
			opts = append(opts, s3store.WithRegion(cfg.S3Region))
		}
		if cfg.S3Endpoint != "" {
			opts = append(opts, s3store.WithEndpoint(cfg.S3Endpoint, cfg.S3PathStyle))
		}
		return s3store.New(ctx, s.bucket, opts...)
	case sourceMinio:
		return miniostore.Dial(s.endpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioSecure, s.bucket, "")
	default:
		return blobstore.NewLocalStore(s.dir), nil
	}
}

// openSets registers every set of src with cat. Uncompressed local files are
// mapped; everything else goes through the blob store and is preloaded.
func openSets[T scalar.Value](ctx context.Context, rt *runtime, cat *setview.Catalog[T], src string, preload bool) ([]setview.Handle, error) {
	s, err := parseSource(src)
	if err != nil {
		return nil, err
	}

	opts := []setview.OpenOption{setview.WithResources(rt.rc)}
	if rt.cfg.Verify {
		opts = append(opts, setview.WithVerify())
	}

	if s.kind == sourceLocal && setfile.CompressionFor(s.key) == setfile.CompressionNone {
		if preload {
			opts = append(opts, setview.WithPreload())
		}
		return cat.OpenFile(s.String(), opts...)
	}

	store, err := s.store(ctx, &rt.cfg)
	if err != nil {
		return nil, err
	}
	if rt.cache != nil && s.kind != sourceLocal {
		store = blobstore.NewCachingStore(store, rt.cache, 0)
	}
	return cat.OpenBlob(ctx, store, s.key, opts...)
}

// writeSets encodes sets, compresses them according to the name suffix and
// stores them at dst.
func writeSets[T scalar.Value](ctx context.Context, cfg *Config, dst string, sets [][]T) error {
	s, err := parseSource(dst)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := setfile.Encode(&buf, sets); err != nil {
		return err
	}
	data, err := setfile.Compress(buf.Bytes(), setfile.CompressionFor(s.key))
	if err != nil {
		return err
	}

	store, err := s.store(ctx, cfg)
	if err != nil {
		return err
	}
	return store.Put(ctx, s.key, data)
}
