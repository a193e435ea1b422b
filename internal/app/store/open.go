package store

import (
	"context"
	"fmt"
)

// Options selects and tunes the message backend.
type Options struct {
	Driver      string // memory, sqlite or postgres
	SQLitePath  string
	DatabaseURL string
	Retry       RetryPolicy
}

// Open builds the configured backend wrapped with retry and tracing.
func Open(ctx context.Context, opts Options) (Store, error) {
	var (
		backend Store
		err     error
	)

	switch opts.Driver {
	case "memory":
		backend = NewMemory()
	case "sqlite":
		backend, err = OpenSQLite(ctx, opts.SQLitePath)
	case "postgres":
		backend, err = OpenPostgres(ctx, opts.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", opts.Driver, err)
	}

	return WithTracing(WithRetry(backend, opts.Retry), opts.Driver), nil
}
