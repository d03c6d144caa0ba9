package sqldb

import (
	"context"
)

type Client interface {
	Init() error
	Close() error
	Handle // Methods required for Handle are also required, so, promote it
	GetConf() *Conf
	GetDSN() string
	Ping(ctx context.Context) error
	// RawStore holds the embedded statements converted to this client's placeholder style
	RawStore() *RawStore
}

// Handle is the query surface shared by every implementation
type Handle interface {
	// Exec executes SQL statement like INSERT, UPDATE, DELETE.
	Exec(ctx context.Context, query string, args ...any) (Result, error)

	QueryRows(ctx context.Context, query string, args ...any) (Rows, error) // Eager. Fail upfront on statement execution
	QueryRow(ctx context.Context, query string, args ...any) Row            // Lazy. only fails at Scan()

	// Listen streams notifications on channel until ctx is done.
	// Backends without server push return ErrNotSupported.
	Listen(ctx context.Context, channel string) (<-chan Notification, error)
}
