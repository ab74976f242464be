package kv

import (
	"context"
	"fmt"
)

// Options selects and configures a backend.
type Options struct {
	Driver     string
	RedisURL   string
	KeyPrefix  string
	SQLitePath string
}

// Open builds the store for opts.Driver. An empty driver or DriverNone
// yields Disabled.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case DriverRedis:
		return OpenRedis(ctx, opts.RedisURL, opts.KeyPrefix)
	case DriverSQLite:
		return OpenSQLite(opts.SQLitePath)
	case DriverNone, "":
		return Disabled{}, nil
	default:
		return nil, fmt.Errorf("kv: unknown driver %q", opts.Driver)
	}
}
