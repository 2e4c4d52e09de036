// internal/store/store.go
package store

import "context"

// Change is emitted when a key is written or removed, so in-memory state
// can resync from the store. Delivery is best-effort: writers never block
// on slow watchers.
type Change struct {
	Key string
}

// PersistentStore is a synchronous key-value interface over a durable
// per-origin store. Writes are last-write-wins; there is no cross-process
// coordination beyond the optional change notification.
type PersistentStore interface {
	// Get returns the raw value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes the value, overwriting any prior one.
	Set(ctx context.Context, key, value string) error
	// Remove deletes the key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
	// Watch returns a channel of change notifications. The channel is
	// closed when ctx is cancelled.
	Watch(ctx context.Context) (<-chan Change, error)
}
