// Package storage defines the durable key-value contract shared by the
// session store and the profile cache.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound indicates a requested key is missing.
var ErrNotFound = errors.New("record not found")

// Bucket names used by the client core. Each component owns exactly one
// bucket and is the only writer to it.
const (
	BucketSession  = "session"
	BucketProfiles = "profiles"
)

// KV persists string keys and values grouped into buckets.
type KV interface {
	// Get fetches one value. Returns ErrNotFound when the key is absent.
	Get(ctx context.Context, bucket, key string) (string, error)
	// Put stores or overwrites one value.
	Put(ctx context.Context, bucket, key, value string) error
	// Delete removes one key. Deleting an absent key is not an error.
	Delete(ctx context.Context, bucket, key string) error
	// Purge removes every key in the bucket.
	Purge(ctx context.Context, bucket string) error
	// Close releases the underlying database handle.
	Close() error
}
