// Package kv defines the hash/set key-value store the catalog is persisted in,
// with Redis, SQLite and unconfigured backends.
package kv

import (
	"context"
	"fmt"

	"github.com/starford/brandvault/internal/apperr"
)

// Backend drivers.
const (
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
	DriverNone   = "none"
)

// ErrUnconfigured is returned by every operation of the unconfigured backend.
var ErrUnconfigured = fmt.Errorf("kv: %w", apperr.ErrUnconfigured)

// Reader is the read side of the store. Missing keys read as empty values.
type Reader interface {
	// HGetAll returns every field of the hash at key.
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	// SMembers returns the members of the set at key.
	SMembers(ctx context.Context, key string) ([]string, error)
	// SUnion returns the de-duplicated union of the sets at keys.
	SUnion(ctx context.Context, keys ...string) ([]string, error)
	// LRange returns the whole list at key, in push order.
	LRange(ctx context.Context, key string) ([]string, error)
}

// Writer is the write side of the store. Calls with no fields, members or
// keys are no-ops.
type Writer interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	Del(ctx context.Context, keys ...string) error
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	RPush(ctx context.Context, key string, values ...string) error
}

// Store is a hash/set key-value store.
type Store interface {
	Reader
	Writer
	// Atomic applies every write issued through w as one unit: either all of
	// them land or none do. Reads are not available inside fn.
	Atomic(ctx context.Context, fn func(w Writer) error) error
	Ping(ctx context.Context) error
	Close() error
}

func toArgs(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
