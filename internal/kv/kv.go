// Package kv provides the persisted key-value blob store used for client
// state that must survive process restarts (the saved session, most
// importantly). Values are opaque JSON blobs keyed by namespace.
package kv

// Store is a synchronous get/set/remove blob store. Implementations must be
// safe for use from multiple goroutines.
type Store interface {
	// Get returns the blob stored under name. The second return value is
	// false when no value exists.
	Get(name string) ([]byte, bool, error)
	// Set stores value under name, replacing any previous value.
	Set(name string, value []byte) error
	// Remove deletes the value stored under name. Removing a missing name
	// is not an error.
	Remove(name string) error
}
