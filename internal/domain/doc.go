// Package domain contains the core business entities, value objects, and
// domain logic of the todo service: tasks, the filters used to list them,
// partial task updates, and the users who own them. It is independent of
// any specific storage, cache, or delivery mechanism.
package domain
