// Package objects implements the object/state tree the admin core edits.
//
// The tree follows the automation-platform model:
//
//   - An Object is a definition addressed by a dotted id
//     ("hue.0.kitchen.on"). Its type is one of state, channel, device,
//     instance, folder, enum and so on. Its "common" section holds
//     user-visible metadata such as name, role and smartName. Its "native"
//     section holds adapter-private data.
//   - A State is the current value of a state object: val, ack flag,
//     timestamp of the write (ts) and of the last value change (lc).
//
// # Architecture
//
// The package follows a layered design:
//
//   - Repository: persistence interface (SQLite implementation provided)
//   - Registry: cache, listener fan-out and optional bus publishing
//
// Callers always receive deep copies. A read-modify-write cycle therefore
// looks like:
//
//	obj, err := registry.GetObject(ctx, id)
//	// mutate obj.Common ...
//	err = registry.SetObject(ctx, obj)
//
// There is no optimistic concurrency check: the last writer wins.
//
// # Subscriptions
//
// Listeners register for exact ids or for prefix patterns ending in "*".
// They are notified synchronously after a successful write, outside any
// registry lock, so a listener may call back into the registry.
package objects
