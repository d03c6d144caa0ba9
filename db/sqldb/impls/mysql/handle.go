package mysql

import (
	"context"
	"database/sql"

	"github.com/zeptools/gw-impose/db/sqldb"
)

type Handle struct {
	*sql.DB // [Embedded]
}

// Ensure mysql.Handle implements sqldb.Handle interface
var _ sqldb.Handle = (*Handle)(nil)

func (h *Handle) Exec(ctx context.Context, query string, args ...any) (sqldb.Result, error) {
	result, err := h.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &Result{result: result}, nil
}

func (h *Handle) QueryRows(ctx context.Context, query string, args ...any) (sqldb.Rows, error) {
	rows, err := h.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &Rows{rows: rows}, nil
}

func (h *Handle) QueryRow(ctx context.Context, query string, args ...any) sqldb.Row {
	row := h.DB.QueryRowContext(ctx, query, args...)
	return &Row{row: row}
}

// Listen - MySQL has no server push. Callers fall back to polling.
func (h *Handle) Listen(_ context.Context, _ string) (<-chan sqldb.Notification, error) {
	return nil, sqldb.ErrNotSupported
}
