package nullable

import (
	"database/sql"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"time"
)

// Time is written as RFC 3339 and read from RFC 3339 or a bare date, e.g. due dates
type Time struct {
	sql.NullTime
}

// TimeFrom wraps a time.Time as a valid nullable.Time
func TimeFrom(t time.Time) Time {
	return Time{sql.NullTime{Time: t, Valid: true}}
}

func (n Time) MarshalJSONTo(enc *jsontext.Encoder) error {
	if !n.Valid {
		return enc.WriteToken(jsontext.Null)
	}
	return enc.WriteToken(jsontext.String(n.Time.Format(time.RFC3339)))
}

func (n *Time) UnmarshalJSONFrom(dec *jsontext.Decoder) error {
	if dec.PeekKind() == 'n' {
		*n = Time{}
		_, err := dec.ReadToken()
		return err
	}
	var str string
	if err := json.UnmarshalDecode(dec, &str); err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339, str)
	if err != nil {
		var dateErr error
		if t, dateErr = time.Parse(time.DateOnly, str); dateErr != nil {
			return err
		}
	}
	*n = TimeFrom(t)
	return nil
}

func (n Time) ForceValue() time.Time {
	if !n.Valid {
		return time.Time{}
	}
	return n.Time
}

func (n Time) IsNil() bool {
	return !n.Valid
}
