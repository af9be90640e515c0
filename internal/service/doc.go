// Package service contains the application use cases. It sits between the
// HTTP handlers and the store, and is the only layer that knows about the
// task list cache.
//
// TaskService owns the consistency rules between the two:
//
//   - Reads are cache-aside. A hit is returned as-is; a miss (or a cache
//     failure) reads the store and repopulates the entry for one TTL.
//   - Writes go to the store first. Only after the store reports success is
//     the user's cache invalidated, all three filter entries at once.
//     An invalidation failure is logged and does not fail the write.
//
// Every operation takes the caller's user ID, which the API layer has
// already authenticated. The services never look at tokens.
//
// UserService registers accounts and checks credentials for login.
package service
