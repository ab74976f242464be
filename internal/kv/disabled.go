package kv

import "context"

// Disabled is the store used when no backend is configured. Every call
// fails with ErrUnconfigured; the catalog turns that into empty reads and
// failed writes.
type Disabled struct{}

var _ Store = Disabled{}

func (Disabled) HGetAll(context.Context, string) (map[string]string, error) {
	return nil, ErrUnconfigured
}

func (Disabled) SMembers(context.Context, string) ([]string, error) { return nil, ErrUnconfigured }

func (Disabled) SUnion(context.Context, ...string) ([]string, error) { return nil, ErrUnconfigured }

func (Disabled) LRange(context.Context, string) ([]string, error) { return nil, ErrUnconfigured }

func (Disabled) HSet(context.Context, string, map[string]string) error { return ErrUnconfigured }

func (Disabled) Del(context.Context, ...string) error { return ErrUnconfigured }

func (Disabled) SAdd(context.Context, string, ...string) error { return ErrUnconfigured }

func (Disabled) SRem(context.Context, string, ...string) error { return ErrUnconfigured }

func (Disabled) RPush(context.Context, string, ...string) error { return ErrUnconfigured }

func (Disabled) Atomic(context.Context, func(Writer) error) error { return ErrUnconfigured }

func (Disabled) Ping(context.Context) error { return ErrUnconfigured }

func (Disabled) Close() error { return nil }
