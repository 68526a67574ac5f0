package cache

// Key identifies one block of a blob.
type Key struct {
	Name  string
	Block int64
}

// BlockCache is a byte-oriented cache for immutable blocks.
// Returned slices must be treated as read-only.
type BlockCache interface {
	// Get returns a cached block. ok=false if missing.
	Get(key Key) (b []byte, ok bool)
	// Set caches a block. The cache retains b; callers must not modify it.
	Set(key Key, b []byte)
	// Invalidate drops every block of the named blob.
	Invalidate(name string)
	// Stats returns hit and miss counts.
	Stats() (hits, misses int64)
}
