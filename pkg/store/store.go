// Package store defines the persistence contract consumed by the annotation
// engine. The engine only depends on a keyed put/get surface plus one
// secondary lookup ("all records whose index field equals v", used for
// by-book indexing); the storage engine behind it is a collaborator, not part
// of this core.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotInitialized is returned when a store is used before its backend
	// is ready. It must surface before any read or write is attempted.
	ErrNotInitialized = errors.New("store not initialized")

	// ErrKeyNotFound is returned by Get for an absent key.
	ErrKeyNotFound = errors.New("key not found")
)

// Store is the persistent-store contract. Values are opaque bytes; index is
// an optional secondary-lookup value (empty means unindexed).
type Store interface {
	Put(ctx context.Context, key string, value []byte, index string) error
	Get(ctx context.Context, key string) ([]byte, error)
	GetAll(ctx context.Context) (map[string][]byte, error)
	Delete(ctx context.Context, key string) error

	// FindByIndex returns every record whose index value equals index.
	FindByIndex(ctx context.Context, index string) (map[string][]byte, error)
}
