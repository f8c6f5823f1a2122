package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("cache: key not found")

// Cache is a byte-valued key/value store.
type Cache interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// JSON stores values of type T as JSON in an underlying Cache.
type JSON[T any] struct {
	c Cache
}

// NewJSON wraps c with typed JSON access.
func NewJSON[T any](c Cache) JSON[T] {
	return JSON[T]{c: c}
}

// Get decodes the value stored under key. A missing key returns ErrNotFound.
func (j JSON[T]) Get(ctx context.Context, key string) (*T, error) {
	raw, err := j.c.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	v := new(T)
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, fmt.Errorf("decoding cached %s: %w", key, err)
	}
	return v, nil
}

// Set encodes v and stores it under key. A nil v deletes the key.
func (j JSON[T]) Set(ctx context.Context, key string, v *T) error {
	if v == nil {
		return j.c.Delete(ctx, key)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s for cache: %w", key, err)
	}
	return j.c.Set(ctx, key, raw)
}
