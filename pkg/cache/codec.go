// Package cache provides durable api.Cache backends for the execution
// context: Redis, SQLite, PostgreSQL and MongoDB.
//
// Values are stored as JSON. A value read back from a backend is whatever
// encoding/json produces for an untyped target (map[string]any, []any,
// float64, string, bool), so callers that need a concrete type should read
// through Load.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/petrijr/echo/pkg/api"
)

var ErrEmptyKey = errors.New("cache key is empty")

// EncodeValue serializes v as JSON.
func EncodeValue(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode cache value: %w", err)
	}
	return data, nil
}

// DecodeValue deserializes a stored payload into an untyped value.
func DecodeValue(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode cache value: %w", err)
	}
	return v, nil
}

// Load reads key from c and converts it to T. Values already of type T (as
// stored by api.MemoryCache) are returned as-is; anything else is converted
// through a JSON round trip.
func Load[T any](ctx context.Context, c api.Cache, key string) (T, bool, error) {
	var zero T
	v, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return zero, ok, err
	}
	if typed, match := v.(T); match {
		return typed, true, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return zero, true, fmt.Errorf("convert cache value %q: %w", key, err)
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, true, fmt.Errorf("convert cache value %q: %w", key, err)
	}
	return out, true, nil
}

func checkKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return nil
}
