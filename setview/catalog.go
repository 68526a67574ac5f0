package setview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/scalareval/blobstore"
	"github.com/hupe1980/scalareval/internal/mmap"
	"github.com/hupe1980/scalareval/internal/resource"
	"github.com/hupe1980/scalareval/scalar"
	"github.com/hupe1980/scalareval/setfile"
)

// ErrClosed is returned when using a closed Catalog.
var ErrClosed = errors.New("setview: catalog is closed")

// Handle identifies an open set within one Catalog. Handles are assigned in
// increasing order starting at zero and are never reused.
type Handle uint32

// Catalog owns the open sets of one value type and the resources that back
// them.
type Catalog[T scalar.Value] struct {
	mu      sync.RWMutex
	sets    map[Handle]*Set[T]
	names   map[Handle]string
	closers []io.Closer
	next    Handle
	closed  bool
}

// NewCatalog creates an empty catalog.
func NewCatalog[T scalar.Value]() *Catalog[T] {
	return &Catalog[T]{
		sets:  make(map[Handle]*Set[T]),
		names: make(map[Handle]string),
	}
}

// Add registers s and returns its handle.
func (c *Catalog[T]) Add(s *Set[T]) (Handle, error) {
	hs, err := c.add([]*Set[T]{s}, nil, "")
	if err != nil {
		return 0, err
	}
	return hs[0], nil
}

// AddValues normalizes values into a new Set and registers it.
func (c *Catalog[T]) AddValues(values []T) (Handle, error) {
	return c.Add(FromValues(values))
}

func (c *Catalog[T]) add(sets []*Set[T], closer io.Closer, name string) ([]Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	out := make([]Handle, len(sets))
	for i, s := range sets {
		h := c.next
		c.next++
		c.sets[h] = s
		if name != "" {
			c.names[h] = fmt.Sprintf("%s#%d", name, i)
		}
		out[i] = h
	}
	if closer != nil {
		c.closers = append(c.closers, closer)
	}
	return out, nil
}

// Set returns the set for h.
func (c *Catalog[T]) Set(h Handle) (*Set[T], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sets[h]
	return s, ok
}

// Has reports whether h refers to an open set.
func (c *Catalog[T]) Has(h Handle) bool {
	_, ok := c.Set(h)
	return ok
}

// Span returns the key span of set h; ok is false for unknown or empty sets.
func (c *Catalog[T]) Span(h Handle) (lo, hi uint64, ok bool) {
	s, found := c.Set(h)
	if !found {
		return 0, 0, false
	}
	return s.Span()
}

// Name returns the source of h ("file#index"), or "" for sets added directly.
func (c *Catalog[T]) Name(h Handle) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.names[h]
}

// Handles returns all open handles in increasing order.
func (c *Catalog[T]) Handles() []Handle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Handle, 0, len(c.sets))
	for h := range c.sets {
		out = append(out, h)
	}
	slices.Sort(out)
	return out
}

// Len returns the number of open sets.
func (c *Catalog[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sets)
}

// Close releases every mapping owned by the catalog. Sets obtained from it
// must not be used afterwards.
func (c *Catalog[T]) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	var errs []error
	for _, cl := range c.closers {
		errs = append(errs, cl.Close())
	}
	c.closers = nil
	c.sets = map[Handle]*Set[T]{}
	return errors.Join(errs...)
}

// OpenOptions configures how set files are opened.
type OpenOptions struct {
	// Verify checks record checksums and value order before the sets are registered.
	Verify bool
	// Preload faults every page of a mapped file into memory.
	Preload bool
	// Advice is the access hint applied to mapped files.
	Advice mmap.AccessPattern
	// Resources limits preloading concurrency and remote read throughput.
	Resources *resource.Controller
	// VerifyWorkers bounds parallel record verification. Defaults to 4.
	VerifyWorkers int
}

// OpenOption configures OpenFile and OpenBlob.
type OpenOption func(*OpenOptions)

// WithVerify enables checksum and order verification.
func WithVerify() OpenOption {
	return func(o *OpenOptions) { o.Verify = true }
}

// WithPreload populates the mapping before returning.
func WithPreload() OpenOption {
	return func(o *OpenOptions) { o.Preload = true }
}

// WithAdvice sets the access hint applied to mapped files.
func WithAdvice(p mmap.AccessPattern) OpenOption {
	return func(o *OpenOptions) { o.Advice = p }
}

// WithResources sets the resource controller used while opening.
func WithResources(rc *resource.Controller) OpenOption {
	return func(o *OpenOptions) { o.Resources = rc }
}

func openOptions(optFns []OpenOption) OpenOptions {
	o := OpenOptions{Advice: mmap.AccessRandom, VerifyWorkers: 4}
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}

// OpenFile maps a set file and registers every set it contains, in file order.
func (c *Catalog[T]) OpenFile(path string, optFns ...OpenOption) ([]Handle, error) {
	o := openOptions(optFns)
	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	if err := m.Advise(o.Advice); err != nil {
		_ = m.Close()
		return nil, err
	}
	if o.Preload {
		if _, err := m.Populate(); err != nil {
			_ = m.Close()
			return nil, err
		}
	} else if err := adviseIndexes(m); err != nil {
		_ = m.Close()
		return nil, err
	}
	handles, err := c.Attach(m.Bytes(), m, path, optFns...)
	if err != nil {
		_ = m.Close()
		return nil, err
	}
	return handles, nil
}

// adviseIndexes asks the kernel to keep every bucket index resident; they are
// consulted on every lookup while the values are touched at random.
func adviseIndexes(m *mmap.Mapping) error {
	f, err := setfile.Parse(m.Bytes())
	if err != nil {
		// Attach reports the same error with the file name.
		return nil
	}
	for i := range f.Len() {
		off, size := f.IndexSpan(i)
		if size == 0 {
			continue
		}
		r, err := m.Region(off, size)
		if err != nil {
			return err
		}
		if err := r.Advise(mmap.AccessWillNeed); err != nil {
			return err
		}
	}
	return nil
}

// OpenBlob opens name from store. Mappable blobs are viewed in place;
// anything else is read fully (rate limited by the resource controller) and
// decompressed according to the name suffix.
func (c *Catalog[T]) OpenBlob(ctx context.Context, store blobstore.BlobStore, name string, optFns ...OpenOption) ([]Handle, error) {
	o := openOptions(optFns)
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}

	comp := setfile.CompressionFor(name)
	if mp, ok := blob.(blobstore.Mappable); ok && comp == setfile.CompressionNone {
		data, err := mp.Bytes()
		if err != nil {
			_ = blob.Close()
			return nil, err
		}
		handles, err := c.Attach(data, blob, name, optFns...)
		if err != nil {
			_ = blob.Close()
		}
		return handles, err
	}
	defer blob.Close()

	if err := o.Resources.AcquireBackground(ctx); err != nil {
		return nil, err
	}
	defer o.Resources.ReleaseBackground()

	r := resource.NewRateLimitedReader(ctx, blobstore.NewReader(ctx, blob), o.Resources)
	data, err := setfile.ReadAll(r, comp)
	if err != nil {
		return nil, fmt.Errorf("setview: preload %s: %w", name, err)
	}
	return c.Attach(data, nil, name, optFns...)
}

// Attach registers every set of an encoded set file held in data. closer, if
// not nil, is closed together with the catalog and owns data.
func (c *Catalog[T]) Attach(data []byte, closer io.Closer, name string, optFns ...OpenOption) ([]Handle, error) {
	o := openOptions(optFns)
	f, err := setfile.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("setview: %s: %w", name, err)
	}
	sets := make([]*Set[T], f.Len())
	for i := range sets {
		r, err := f.Record(i)
		if err != nil {
			return nil, err
		}
		values, b, err := setfile.Values[T](r, f.Kind())
		if err != nil {
			return nil, fmt.Errorf("setview: %s: %w", name, err)
		}
		sets[i] = newIndexed(values, b)
	}
	if o.Verify {
		if err := verify(f, sets, o.VerifyWorkers); err != nil {
			return nil, fmt.Errorf("setview: %s: %w", name, err)
		}
	}
	return c.add(sets, closer, name)
}

func verify[T scalar.Value](f *setfile.File, sets []*Set[T], workers int) error {
	var g errgroup.Group
	g.SetLimit(max(1, workers))
	for i, s := range sets {
		g.Go(func() error {
			if err := f.Verify(i); err != nil {
				return err
			}
			if err := checkValues(s.values); err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
			return nil
		})
	}
	return g.Wait()
}
