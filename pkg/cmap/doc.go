// Package cmap provides the concurrent map used by the activity tracker.
//
// It implements a sharded concurrent map optimized for a high-rate
// stream of per-key updates:
//
//   - Sharding: configurable power-of-2 shard count
//   - Fine-grained locking: per-shard RWMutex, so writes to unrelated
//     keys never contend on one lock
//   - Atomic read-modify-write: Update runs a callback under the
//     shard write lock
//   - Iteration: Range walks shards under read locks without stopping
//     writers to other shards
//
// Usage:
//
//	m := cmap.New[uint64, int](cmap.WithShards[uint64, int](32))
//	m.Set(7, 1)
//	val, ok := m.Get(7)
//
// Thread safety:
//
// All operations are safe for concurrent use. Read operations (Get,
// Has, Range) take RLock; write operations (Set, Delete, Update) take
// Lock on a single shard.
package cmap
