package rowmap

import (
	"io"
	"log/slog"
)

// Row is the capability the mapper reads from: one row of named,
// dynamically typed values.
//
// Get decodes the value stored under column into dst, a non-nil pointer to
// the field's type. Failures are reported as:
//   - an error matching ErrColumnNotFound when the column does not exist;
//   - a *TypeError when the stored type can never represent dst's type;
//   - any other error when decoding failed (parse error, overflow, NULL, ...).
//
// MapRow, SQLRow and bsonrow.Row are the bundled implementations. A Row that
// also implements io.Closer is closed by the consuming entry points.
type Row interface {
	Get(column string, dst any) error
}

// TryFromRowRef maps row into a new T without consuming it. Fields are read
// in declaration order; the first failing field stops the mapping and is
// reported as a *MappingError. On failure the zero T is returned.
func (s *Schema[T]) TryFromRowRef(row Row) (T, error) {
	var rec T
	for i := range s.fields {
		f := &s.fields[i]
		if err := row.Get(f.Name, f.ptr(&rec)); err != nil {
			me := classify(f.Name, f.Type, err)
			s.logger().Debug("rowmap: mapping failed",
				slog.String("record", recordName[T]()),
				slog.String("column", f.Name),
				slog.String("kind", me.Kind.String()),
				slog.Any("err", err),
			)
			var zero T
			return zero, me
		}
	}
	return rec, nil
}

// TryFromRow is TryFromRowRef followed by closing row when it implements
// io.Closer. The row is closed whether or not mapping succeeds; close errors
// are ignored.
func (s *Schema[T]) TryFromRow(row Row) (T, error) {
	defer closeRow(row)
	return s.TryFromRowRef(row)
}

// FromRowRef is like TryFromRowRef but panics with the *MappingError.
// Use it where the row shape is known to match the schema.
func (s *Schema[T]) FromRowRef(row Row) T {
	rec, err := s.TryFromRowRef(row)
	if err != nil {
		s.fail(err)
	}
	return rec
}

// FromRow is like TryFromRow but panics with the *MappingError.
func (s *Schema[T]) FromRow(row Row) T {
	rec, err := s.TryFromRow(row)
	if err != nil {
		s.fail(err)
	}
	return rec
}

func (s *Schema[T]) fail(err error) {
	s.logger().Error("rowmap: panicking on mapping failure",
		slog.String("record", recordName[T]()),
		slog.Any("err", err),
	)
	panic(err)
}

func closeRow(row Row) {
	if c, ok := row.(io.Closer); ok {
		_ = c.Close()
	}
}

// The package-level entry points use the schema registered for T with
// Register, or one derived from T's `db` tags. If T cannot be described
// (not a struct, duplicate columns) the schema error is returned, or
// panicked with, before row is read.

// TryFromRow maps row into a T and closes row if it is an io.Closer.
func TryFromRow[T any](row Row) (T, error) {
	s, err := SchemaFor[T]()
	if err != nil {
		closeRow(row)
		var zero T
		return zero, err
	}
	return s.TryFromRow(row)
}

// TryFromRowRef maps row into a T, leaving row open.
func TryFromRowRef[T any](row Row) (T, error) {
	s, err := SchemaFor[T]()
	if err != nil {
		var zero T
		return zero, err
	}
	return s.TryFromRowRef(row)
}

// FromRow maps row into a T, closes row if it is an io.Closer, and panics on failure.
func FromRow[T any](row Row) T {
	return MustSchema(SchemaFor[T]()).FromRow(row)
}

// FromRowRef maps row into a T, leaving row open, and panics on failure.
func FromRowRef[T any](row Row) T {
	return MustSchema(SchemaFor[T]()).FromRowRef(row)
}
