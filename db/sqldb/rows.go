package sqldb

import "errors"

var (
	ErrNoRows       = errors.New("sqldb: no rows in result set")
	ErrNotSupported = errors.New("sqldb: operation not supported")
)

type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}

type Row interface {
	Scan(dest ...any) error
}

type Result interface {
	RowsAffected() (int64, error)
	LastInsertId() (int64, error)
}
