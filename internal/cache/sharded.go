package cache

import (
	"hash/maphash"

	"github.com/hupe1980/scalareval/internal/resource"
)

const numShards = 16

// Sharded spreads blocks over independent LRUs by key hash.
type Sharded struct {
	shards [numShards]*LRU
	seed   maphash.Seed
}

// NewSharded creates a sharded cache. capacity is divided evenly across shards.
func NewSharded(capacity int64, rc *resource.Controller) *Sharded {
	s := &Sharded{seed: maphash.MakeSeed()}
	per := max(capacity/numShards, 1)
	for i := range s.shards {
		s.shards[i] = NewLRU(per, rc)
	}
	return s
}

func (s *Sharded) shard(key Key) *LRU {
	return s.shards[maphash.Comparable(s.seed, key)%numShards]
}

// Get implements BlockCache.
func (s *Sharded) Get(key Key) ([]byte, bool) { return s.shard(key).Get(key) }

// Set implements BlockCache.
func (s *Sharded) Set(key Key, b []byte) { s.shard(key).Set(key, b) }

// Invalidate implements BlockCache.
func (s *Sharded) Invalidate(name string) {
	for _, sh := range s.shards {
		sh.Invalidate(name)
	}
}

// Stats implements BlockCache.
func (s *Sharded) Stats() (hits, misses int64) {
	for _, sh := range s.shards {
		h, m := sh.Stats()
		hits += h
		misses += m
	}
	return hits, misses
}

// Size returns the cached bytes over all shards.
func (s *Sharded) Size() int64 {
	var n int64
	for _, sh := range s.shards {
		n += sh.Size()
	}
	return n
}
