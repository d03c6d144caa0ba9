// Package nullable holds SQL-scannable values that read and write JSON null.
package nullable

import (
	"database/sql"
	"encoding/json/jsontext"
	"encoding/json/v2"
)

// Value implements sql.Scanner by embedding sql.Null[T],
// and json/v2.MarshalerTo and json/v2.UnmarshalerFrom
type Value[T any] struct {
	sql.Null[T]
}

type (
	Int    = Value[int64]
	String = Value[string]
)

// From wraps v as a valid Value
func From[T any](v T) Value[T] {
	return Value[T]{sql.Null[T]{V: v, Valid: true}}
}

// IntFrom wraps an int64 as a valid nullable.Int
func IntFrom(i int64) Int {
	return From(i)
}

func (n Value[T]) MarshalJSONTo(enc *jsontext.Encoder) error {
	if !n.Valid {
		return enc.WriteToken(jsontext.Null)
	}
	return json.MarshalEncode(enc, n.V)
}

func (n *Value[T]) UnmarshalJSONFrom(dec *jsontext.Decoder) error {
	if dec.PeekKind() == 'n' {
		*n = Value[T]{}
		_, err := dec.ReadToken()
		return err
	}
	var v T
	if err := json.UnmarshalDecode(dec, &v); err != nil {
		return err
	}
	*n = From(v)
	return nil
}

// ForceValue returns the zero T when null
func (n Value[T]) ForceValue() T {
	if !n.Valid {
		var zero T
		return zero
	}
	return n.V
}

func (n Value[T]) IsNil() bool {
	return !n.Valid
}
