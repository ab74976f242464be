// Package testutil provides shared test helpers for setting up metadata
// stores and object directories.
package testutil

import (
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/starford/brandvault/internal/kv"
	"github.com/starford/brandvault/internal/storage"
)

// SQLiteStore creates a temporary SQLite-backed store that is automatically cleaned up.
func SQLiteStore(t *testing.T) *kv.SQLite {
	t.Helper()
	dbFile, err := os.CreateTemp("", "brandvault-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	s, err := kv.OpenSQLite(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// RedisStore starts an in-process Redis and returns a store on it.
func RedisStore(t *testing.T) (*kv.Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := kv.NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "brandvault:")
	t.Cleanup(func() { s.Close() })
	return s, mr
}

// EachStore runs fn as a subtest against every real backend.
func EachStore(t *testing.T, fn func(t *testing.T, s kv.Store)) {
	t.Helper()
	t.Run("sqlite", func(t *testing.T) { fn(t, SQLiteStore(t)) })
	t.Run("redis", func(t *testing.T) {
		s, _ := RedisStore(t)
		fn(t, s)
	})
}

// ObjectDir creates a temporary object root with an fs storage.Provider.
func ObjectDir(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	objects, err := storage.NewFS(dir, "/files")
	if err != nil {
		t.Fatal(err)
	}
	return dir, objects
}
