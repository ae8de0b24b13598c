// Package bbolt provides a BoltDB-backed durable key-value store.
package bbolt

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/repasse/repasse-go/internal/platform/timeouts"
	"github.com/repasse/repasse-go/internal/storage"
	"go.etcd.io/bbolt"
)

var buckets = []string{storage.BucketSession, storage.BucketProfiles}

// Store provides a BoltDB-backed KV store.
type Store struct {
	db *bbolt.DB
}

// Open opens a BoltDB-backed store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: timeouts.StorageOpen})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get fetches one value by bucket and key.
func (s *Store) Get(ctx context.Context, bucket, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s == nil || s.db == nil {
		return "", fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("key is required")
	}

	var value string
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("bucket %q is missing", bucket)
		}
		payload := b.Get([]byte(key))
		if payload == nil {
			return storage.ErrNotFound
		}
		value = string(payload)
		return nil
	})
	if err != nil {
		return "", err
	}
	return value, nil
}

// Put stores one value by bucket and key.
func (s *Store) Put(ctx context.Context, bucket, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("key is required")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("bucket %q is missing", bucket)
		}
		return b.Put([]byte(key), []byte(value))
	})
}

// Delete removes one key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("bucket %q is missing", bucket)
		}
		return b.Delete([]byte(key))
	})
}

// Purge removes every key in the bucket.
func (s *Store) Purge(ctx context.Context, bucket string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucket)); err != nil {
			return fmt.Errorf("delete bucket %q: %w", bucket, err)
		}
		_, err := tx.CreateBucket([]byte(bucket))
		if err != nil {
			return fmt.Errorf("recreate bucket %q: %w", bucket, err)
		}
		return nil
	})
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		return nil
	})
}
