package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// sqliteDatetimeFormat matches the text CURRENT_TIMESTAMP produces, so that
// explicit and store-assigned timestamps sort and compare the same way.
const sqliteDatetimeFormat = time.DateTime

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && cErr != sql.ErrTxDone && *err == nil {
		*err = cErr
	}
}

// toSQLTime converts an optional timestamp into a bind value; nil lets the
// COALESCE in the statement fall back to CURRENT_TIMESTAMP.
func toSQLTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(sqliteDatetimeFormat)
}

// sqliteTime scans DATETIME columns. The driver returns time.Time for declared
// DATETIME columns but plain text for aggregates such as MIN() and MAX().
type sqliteTime struct {
	Time time.Time
}

var sqliteTimeLayouts = []string{
	time.DateTime,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	time.RFC3339Nano,
}

func (st *sqliteTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		st.Time = time.Time{}
		return nil

	case time.Time:
		st.Time = v.UTC()
		return nil

	case []byte:
		return st.parse(string(v))

	case string:
		return st.parse(v)

	default:
		return fmt.Errorf("unsupported datetime type %T", src)
	}
}

func (st *sqliteTime) parse(s string) error {
	s = strings.TrimSpace(s)
	for _, layout := range sqliteTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			st.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("parsing datetime %q", s)
}
