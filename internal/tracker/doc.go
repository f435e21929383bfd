// Package tracker implements the in-memory activity store: the
// concurrent record of per-member message counts and cooldown
// timestamps, and the threshold decision logic that turns message
// events into role-grant decisions.
//
// The tracker exclusively owns all mutable activity state. Mutation
// goes through RecordMessage and Load only; Snapshot hands out value
// copies. Per-member updates are serialized by the shard lock of the
// member's key, so unrelated members never contend on one lock and a
// grant decision is emitted on exactly one call.
package tracker
