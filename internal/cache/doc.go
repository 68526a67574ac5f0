// Package cache provides an in-memory LRU cache for immutable blob blocks.
//
// Blocks are keyed by blob name and block index. LRU bounds a single cache by
// bytes; Sharded spreads keys over independent LRUs to reduce lock contention.
// Both charge cached bytes to an optional resource.Controller and skip caching
// when it refuses.
package cache
