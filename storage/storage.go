package storage

import "context"

// Store is the backend that holds encoded artifacts.
//
// Names are resolved by the Store; callers pass what the user typed and get
// back where the artifact actually lives. All Store implementations must be
// safe for concurrent use from multiple goroutines.
type Store interface {
	// Put writes data under name, replacing any previous artifact atomically,
	// and returns the resolved location.
	Put(ctx context.Context, name string, data []byte) (string, error)

	// Get returns the artifact stored under name.
	Get(ctx context.Context, name string) ([]byte, error)

	// List returns the names of stored artifacts in lexicographic order.
	List(ctx context.Context) ([]string, error)
}
