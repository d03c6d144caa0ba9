package pgsql

import (
	"github.com/jackc/pgx/v5"

	"github.com/zeptools/gw-impose/db/sqldb"
)

type Rows struct {
	current pgx.Rows
}

// Ensure pgsql.Rows implements sqldb.Rows
var _ sqldb.Rows = (*Rows)(nil)

func (r *Rows) Next() bool {
	return r.current.Next()
}

func (r *Rows) Scan(dest ...any) error {
	raw, restore := smallintBools(dest)
	if err := r.current.Scan(raw...); err != nil {
		return err
	}
	restore()
	return nil
}

func (r *Rows) Close() error {
	r.current.Close()
	return nil
}

func (r *Rows) Err() error {
	return r.current.Err()
}

// smallintBools swaps each *bool for a temporary *int16, as flags are SMALLINT
// columns shared with MySQL. restore copies the scanned values back.
func smallintBools(dest []any) (raw []any, restore func()) {
	raw = make([]any, len(dest))
	for i, d := range dest {
		switch d.(type) {
		case *bool:
			raw[i] = new(int16)
		default:
			raw[i] = d
		}
	}
	return raw, func() {
		for i, d := range dest {
			if v, ok := d.(*bool); ok {
				*v = *(raw[i].(*int16)) != 0
			}
		}
	}
}
