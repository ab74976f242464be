package kv

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchemaSQL = `
CREATE TABLE IF NOT EXISTS kv_hash (
	key   TEXT NOT NULL,
	field TEXT NOT NULL,
	value TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (key, field)
);

CREATE TABLE IF NOT EXISTS kv_set (
	key    TEXT NOT NULL,
	member TEXT NOT NULL,
	PRIMARY KEY (key, member)
);

CREATE TABLE IF NOT EXISTS kv_list (
	key   TEXT    NOT NULL,
	pos   INTEGER NOT NULL,
	value TEXT    NOT NULL DEFAULT '',
	PRIMARY KEY (key, pos)
);

CREATE INDEX IF NOT EXISTS idx_kv_set_member ON kv_set(member);
`

// SQLite implements Store on an embedded SQLite database, for single-node
// deployments without a Redis server.
type SQLite struct {
	conn *sql.DB
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (or creates) the database file and applies the schema.
func OpenSQLite(dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("kv: open sqlite: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("kv: ping sqlite: %w", err)
	}
	if _, err := conn.Exec(sqliteSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("kv: apply schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// HGetAll returns every field of a hash.
func (s *SQLite) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT field, value FROM kv_hash WHERE key = ?`, key)
	if err != nil {
		return nil, fmt.Errorf("kv: hgetall %s: %w", key, err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var f, v string
		if err := rows.Scan(&f, &v); err != nil {
			return nil, err
		}
		out[f] = v
	}
	return out, rows.Err()
}

// SMembers returns set members in insertion order.
func (s *SQLite) SMembers(ctx context.Context, key string) ([]string, error) {
	return s.queryStrings(ctx, `SELECT member FROM kv_set WHERE key = ? ORDER BY rowid`, key)
}

// SUnion returns the union of several sets, each member once.
func (s *SQLite) SUnion(ctx context.Context, keys ...string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	return s.queryStrings(ctx, `
		SELECT member FROM kv_set
		WHERE key IN (`+placeholders+`)
		GROUP BY member
		ORDER BY MIN(rowid)
	`, args...)
}

// LRange returns a whole list in push order.
func (s *SQLite) LRange(ctx context.Context, key string) ([]string, error) {
	return s.queryStrings(ctx, `SELECT value FROM kv_list WHERE key = ? ORDER BY pos`, key)
}

func (s *SQLite) HSet(ctx context.Context, key string, fields map[string]string) error {
	return s.Atomic(ctx, func(w Writer) error { return w.HSet(ctx, key, fields) })
}

func (s *SQLite) Del(ctx context.Context, keys ...string) error {
	return s.Atomic(ctx, func(w Writer) error { return w.Del(ctx, keys...) })
}

func (s *SQLite) SAdd(ctx context.Context, key string, members ...string) error {
	return s.Atomic(ctx, func(w Writer) error { return w.SAdd(ctx, key, members...) })
}

func (s *SQLite) SRem(ctx context.Context, key string, members ...string) error {
	return s.Atomic(ctx, func(w Writer) error { return w.SRem(ctx, key, members...) })
}

func (s *SQLite) RPush(ctx context.Context, key string, values ...string) error {
	return s.Atomic(ctx, func(w Writer) error { return w.RPush(ctx, key, values...) })
}

// Atomic runs fn inside a single database transaction.
func (s *SQLite) Atomic(ctx context.Context, fn func(w Writer) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("kv: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(&sqliteWriter{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("kv: commit: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

func (s *SQLite) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("kv: query: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

type sqliteWriter struct {
	tx *sql.Tx
}

func (w *sqliteWriter) HSet(ctx context.Context, key string, fields map[string]string) error {
	for f, v := range fields {
		_, err := w.tx.ExecContext(ctx, `
			INSERT INTO kv_hash (key, field, value) VALUES (?, ?, ?)
			ON CONFLICT(key, field) DO UPDATE SET value = excluded.value
		`, key, f, v)
		if err != nil {
			return fmt.Errorf("kv: hset %s: %w", key, err)
		}
	}
	return nil
}

func (w *sqliteWriter) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		for _, table := range []string{"kv_hash", "kv_set", "kv_list"} {
			if _, err := w.tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE key = ?`, k); err != nil {
				return fmt.Errorf("kv: del %s: %w", k, err)
			}
		}
	}
	return nil
}

func (w *sqliteWriter) SAdd(ctx context.Context, key string, members ...string) error {
	for _, m := range members {
		if _, err := w.tx.ExecContext(ctx, `INSERT OR IGNORE INTO kv_set (key, member) VALUES (?, ?)`, key, m); err != nil {
			return fmt.Errorf("kv: sadd %s: %w", key, err)
		}
	}
	return nil
}

func (w *sqliteWriter) SRem(ctx context.Context, key string, members ...string) error {
	for _, m := range members {
		if _, err := w.tx.ExecContext(ctx, `DELETE FROM kv_set WHERE key = ? AND member = ?`, key, m); err != nil {
			return fmt.Errorf("kv: srem %s: %w", key, err)
		}
	}
	return nil
}

func (w *sqliteWriter) RPush(ctx context.Context, key string, values ...string) error {
	for _, v := range values {
		_, err := w.tx.ExecContext(ctx, `
			INSERT INTO kv_list (key, pos, value)
			VALUES (?, (SELECT COALESCE(MAX(pos), -1) + 1 FROM kv_list WHERE key = ?), ?)
		`, key, key, v)
		if err != nil {
			return fmt.Errorf("kv: rpush %s: %w", key, err)
		}
	}
	return nil
}
