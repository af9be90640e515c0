// Package cache implements the per-user task list cache.
//
// Each user has at most three entries, one per domain.TaskFilter, keyed
// "<prefix>tasks:<user id>:<filter>". Entries expire a fixed TTL after they
// are written; reads do not extend them. Any change to a user's tasks
// deletes all three entries, because a single change can move a task
// between the completed and pending lists.
//
// Entries are not versioned. A listing that reads the store just before a
// concurrent change commits, and writes its result just after that
// change's invalidation, leaves a stale entry in place for up to one TTL.
// Callers that need read-your-writes across that race must read the store.
//
// Storage is pluggable through Provider: an in-process map, ristretto,
// bigcache, or a shared redis. Values are serialized with a Codec (JSON,
// msgpack or CBOR). Entries that fail to decode are deleted and treated
// as misses.
package cache
