package rowmap

import (
	"fmt"
	"log/slog"
	"reflect"
)

// Tabler may be implemented by record types to name the table they are read
// from. The name is informational; rowmap never builds SQL with it.
type Tabler interface {
	TableName() string
}

// Schema is the ordered, immutable field list of record type T. A Schema is
// safe for concurrent use.
type Schema[T any] struct {
	table  string
	fields []Field[T]
	log    *slog.Logger
}

// NewSchema builds a schema from an explicit field list. Column names must be
// non-empty and unique; fields are attempted in the order given.
//
// Example:
//
//	type User struct {
//	    ID    int64
//	    Name  string
//	    Email *string
//	}
//
//	var users = rowmap.MustSchema(rowmap.NewSchema("users",
//	    rowmap.Col("id", func(u *User) *int64 { return &u.ID }),
//	    rowmap.Col("name", func(u *User) *string { return &u.Name }),
//	    rowmap.Col("email", func(u *User) **string { return &u.Email }),
//	))
func NewSchema[T any](table string, fields ...Field[T]) (*Schema[T], error) {
	seen := make(map[string]struct{}, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%w (field %d of %s)", ErrEmptyColumn, i, reflect.TypeFor[T]())
		}
		if f.Type == nil || f.ptr == nil {
			return nil, fmt.Errorf("rowmap: field %q of %s was not built with Col", f.Name, reflect.TypeFor[T]())
		}
		if _, dup := seen[f.Name]; dup {
			return nil, fmt.Errorf("%w: %q in %s", ErrDuplicateColumn, f.Name, reflect.TypeFor[T]())
		}
		seen[f.Name] = struct{}{}
	}
	return &Schema[T]{
		table:  table,
		fields: append([]Field[T](nil), fields...),
	}, nil
}

// Reflect derives the schema of struct type T from its `db` tags. The table
// name comes from T's TableName method when T implements Tabler.
func Reflect[T any]() (*Schema[T], error) {
	fields, err := reflectFields[T]()
	if err != nil {
		return nil, err
	}
	var table string
	var zero T
	if t, ok := any(zero).(Tabler); ok {
		table = t.TableName()
	} else if t, ok := any(&zero).(Tabler); ok {
		table = t.TableName()
	}
	return NewSchema(table, fields...)
}

// MustSchema panics if err is non-nil. It is meant for package-level schema
// declarations.
func MustSchema[T any](s *Schema[T], err error) *Schema[T] {
	if err != nil {
		panic(err)
	}
	return s
}

// WithLogger returns a copy of s that reports failed mappings to l: debug
// level for returned errors, error level before panicking.
func (s *Schema[T]) WithLogger(l *slog.Logger) *Schema[T] {
	c := *s
	c.log = l
	return &c
}

// Table returns the table name, possibly empty.
func (s *Schema[T]) Table() string { return s.table }

// Fields returns a copy of the field list in declaration order.
func (s *Schema[T]) Fields() []Field[T] { return append([]Field[T](nil), s.fields...) }

// Columns returns the column names in declaration order.
func (s *Schema[T]) Columns() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Name
	}
	return out
}

// QualifiedColumns returns the column names prefixed with the table name
// ("users.id"). Without a table name it is the same as Columns.
func (s *Schema[T]) QualifiedColumns() []string {
	out := s.Columns()
	if s.table == "" {
		return out
	}
	for i, c := range out {
		out[i] = s.table + "." + c
	}
	return out
}

func (s *Schema[T]) logger() *slog.Logger {
	if s.log == nil {
		return discard
	}
	return s.log
}

var discard = slog.New(slog.DiscardHandler)
