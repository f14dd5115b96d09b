package rowmap

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"reflect"
	"testing"
)

// result is what a DBHandler returns for one query.
type result struct {
	cols  []string
	types []reflect.Type // optional; reported through ColumnTypeScanType
	data  [][]driver.Value
}

type DBHandler func(query string, args []driver.NamedValue) (result, error)

type testConnector struct {
	h DBHandler
}

func (c *testConnector) Connect(context.Context) (driver.Conn, error) { return &testConn{h: c.h}, nil }
func (c *testConnector) Driver() driver.Driver                        { return testDriver{} }

type testDriver struct{}

func (testDriver) Open(name string) (driver.Conn, error) {
	return nil, errors.New("testDriver.Open should not be called; use sql.OpenDB with connector")
}

type testConn struct {
	h DBHandler
}

func (c *testConn) Prepare(string) (driver.Stmt, error) { return nil, driver.ErrSkip }
func (c *testConn) Close() error                        { return nil }
func (c *testConn) Begin() (driver.Tx, error)           { return nil, driver.ErrSkip }

func (c *testConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	res, err := c.h(query, args)
	if err != nil {
		return nil, err
	}
	return &testRows{res: res}, nil
}

type testRows struct {
	res result
	i   int
}

func (r *testRows) Columns() []string { return append([]string(nil), r.res.cols...) }
func (r *testRows) Close() error      { return nil }
func (r *testRows) Next(dest []driver.Value) error {
	if r.i >= len(r.res.data) {
		return io.EOF
	}
	row := r.res.data[r.i]
	for i := range dest {
		if i < len(row) {
			dest[i] = row[i]
		} else {
			dest[i] = nil
		}
	}
	r.i++
	return nil
}

func (r *testRows) ColumnTypeScanType(i int) reflect.Type {
	if i < len(r.res.types) && r.res.types[i] != nil {
		return r.res.types[i]
	}
	return reflect.TypeFor[any]()
}

// newTestDB creates a *sql.DB backed by the in-memory test driver.
func newTestDB(t *testing.T, h DBHandler) *sql.DB {
	t.Helper()
	db := sql.OpenDB(&testConnector{h: h})
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// staticDB serves the same result for every query.
func staticDB(t *testing.T, res result) *sql.DB {
	t.Helper()
	return newTestDB(t, func(string, []driver.NamedValue) (result, error) { return res, nil })
}

// firstRow runs a query against db and snapshots its first row.
func firstRow(t *testing.T, db *sql.DB) *SQLRow {
	t.Helper()
	rows, err := db.QueryContext(context.Background(), "q")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		t.Fatalf("no row: %v", rows.Err())
	}
	row, err := NewSQLRow(rows)
	if err != nil {
		t.Fatalf("NewSQLRow: %v", err)
	}
	return row
}
