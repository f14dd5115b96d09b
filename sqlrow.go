package rowmap

import (
	"database/sql"
	"errors"
	"fmt"
	"reflect"
)

// SQLRow is a Row holding a snapshot of the current row of a *sql.Rows.
// Column lookup ignores ASCII case and surrounding identifier quotes ("x",
// `x`, [x]), matching how drivers report column names. When a result has
// several columns with the same name, the first one wins.
//
// Closing an SQLRow drops the snapshot; it does not touch the *sql.Rows.
type SQLRow struct {
	cols   []string       // normalized
	vals   []any          // driver values, []byte copied
	types  []reflect.Type // driver scan types; nil when unknown
	closed bool
}

// NewSQLRow scans the current row of rows. The caller must have called
// rows.Next; the cursor is neither advanced nor closed.
func NewSQLRow(rows *sql.Rows) (*SQLRow, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, errors.New("rowmap: query returned zero columns")
	}

	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	r := &SQLRow{cols: cols, vals: vals, types: make([]reflect.Type, len(cols))}
	for i := range r.cols {
		r.cols[i] = normalizeColASCII(r.cols[i])
	}
	if cts, err := rows.ColumnTypes(); err == nil && len(cts) == len(cols) {
		for i, ct := range cts {
			if st := ct.ScanType(); st != nil && isBasicScanType(st) {
				r.types[i] = st
			}
		}
	}
	return r, nil
}

func (r *SQLRow) Get(column string, dst any) error {
	if r.closed {
		return ErrRowClosed
	}
	i := r.index(column)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrColumnNotFound, column)
	}
	if st := r.types[i]; st != nil {
		if err := checkScanType(st, dst); err != nil {
			return err
		}
	}
	return Decode(dst, r.vals[i])
}

// Columns returns the normalized column names of the snapshot.
func (r *SQLRow) Columns() []string { return append([]string(nil), r.cols...) }

// Close releases the snapshot. Get on a closed row returns ErrRowClosed.
func (r *SQLRow) Close() error {
	r.closed = true
	r.vals = nil
	return nil
}

func (r *SQLRow) index(column string) int {
	c := normalizeColASCII(column)
	for i := range r.cols {
		if r.cols[i] == c {
			return i
		}
	}
	return -1
}

// checkScanType rejects dst when no value of the driver's declared scan type
// could ever decode into it. Scanner destinations accept anything.
func checkScanType(st reflect.Type, dst any) error {
	dt := reflect.TypeOf(dst)
	if dt == nil || dt.Kind() != reflect.Pointer {
		return nil
	}
	if implementsScanner(derefPtr(dt)) {
		return nil
	}
	probe := reflect.New(dt.Elem()).Interface()
	var te *TypeError
	if err := Decode(probe, reflect.Zero(st).Interface()); errors.As(err, &te) {
		return err
	}
	return nil
}

// isBasicScanType reports whether st is a plain driver value type whose zero
// value is a meaningful probe.
func isBasicScanType(st reflect.Type) bool {
	if st == timeType {
		return true
	}
	switch st.Kind() {
	case reflect.Bool, reflect.String, reflect.Float32, reflect.Float64:
		return true
	case reflect.Slice:
		return st.Elem().Kind() == reflect.Uint8
	}
	return isInt(st.Kind()) || isUint(st.Kind())
}

// ---------------- Column normalization (ASCII fast-path) ----------------

func normalizeColASCII(s string) string {
	if l := len(s); l >= 2 {
		switch s[0] {
		case '"':
			if s[l-1] == '"' {
				s = s[1 : l-1]
			}
		case '`':
			if s[l-1] == '`' {
				s = s[1 : l-1]
			}
		case '[':
			if s[l-1] == ']' {
				s = s[1 : l-1]
			}
		}
	}
	return toLowerASCII(s)
}

func toLowerASCII(s string) string {
	var need bool
	for i := 0; i < len(s); i++ {
		c := s[i]
		if 'A' <= c && c <= 'Z' {
			need = true
			break
		}
	}
	if !need {
		return s
	}
	b := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if 'A' <= c && c <= 'Z' {
			c = c + ('a' - 'A')
		}
		b[i] = c
	}
	return string(b)
}
