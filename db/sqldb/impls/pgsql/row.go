package pgsql

import (
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/zeptools/gw-impose/db/sqldb"
)

type Row struct {
	row pgx.Row
}

// Ensure pgsql.Row implements sqldb.Row interface
var _ sqldb.Row = (*Row)(nil)

func (r *Row) Scan(dest ...any) error {
	raw, restore := smallintBools(dest)
	if err := r.row.Scan(raw...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return sqldb.ErrNoRows
		}
		return err
	}
	restore()
	return nil
}
