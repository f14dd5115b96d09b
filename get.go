package rowmap

import (
	"context"
	"database/sql"
)

// Get executes the SQL query and maps the first row into a value of type T.
//
// It returns [sql.ErrNoRows] if the query yields no rows and does not enforce
// "exactly one row" beyond the first; if more rows exist, they are ignored.
// You should use LIMIT 1 (or an equivalent WHERE clause) when you require
// at-most-one row.
//
// T must be a struct. Its schema is the one registered with [Register], or
// one derived from `db` tags. Every field of the schema must have a column in
// the result; mapping failures are returned as [*MappingError].
//
// Example:
//
//	// Given a *sql.DB (or *sql.Tx, *sql.Conn) in variable `db`:
//	type User struct {
//	    ID    int64   `db:"id"`
//	    Email *string `db:"email"`
//	}
//
//	ctx := context.Background()
//	u, err := rowmap.Get[User](ctx, db, `SELECT id, email FROM users WHERE id = $1`, 42)
//	var me *rowmap.MappingError
//	switch {
//	case errors.Is(err, sql.ErrNoRows):
//	    // handle not found
//	case errors.As(err, &me):
//	    // schema drift: me.Column, me.Kind
//	case err != nil:
//	    // driver error
//	}
//	// use u
func Get[T any](ctx context.Context, q Querier, query string, args ...any) (out T, err error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return out, err
	}
	// Ensure Close error is propagated if no earlier error occurred.
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if !rows.Next() {
		if ne := rows.Err(); ne != nil {
			return out, ne
		}
		return out, sql.ErrNoRows
	}
	return ScanRow[T](rows)
}

// ScanRow maps the current row of rows into a T. The cursor is neither
// advanced nor closed, so ScanRow fits inside a caller-driven rows.Next loop.
func ScanRow[T any](rows *sql.Rows) (T, error) {
	var zero T
	s, err := SchemaFor[T]()
	if err != nil {
		return zero, err
	}
	row, err := NewSQLRow(rows)
	if err != nil {
		return zero, err
	}
	return s.TryFromRow(row)
}
