/*
Package rowmap converts one row of tabular data (column name → driver value)
into one statically typed Go struct. It removes per-field extraction code
while letting the caller choose between a path that panics on failure and one
that returns a structured error.

# Overview

A record type T is described by a [Schema]: an ordered list of (column, Go
type) fields. Schemas are declared explicitly with [NewSchema] and [Col], or
derived from `db` struct tags with [Reflect]. [Register] makes a schema the
one used for T by the package-level entry points; unregistered types are
reflected once and cached.

A row is anything implementing [Row]: fallible lookup-by-name with
type-directed decoding. [MapRow], [SQLRow] and the bsonrow subpackage are
provided; drivers with their own row types implement Row directly.

# Entry points

  - TryFromRow / TryFromRowRef return (T, error). Failures are always a [*MappingError].
  - FromRow / FromRowRef panic with the *MappingError.
  - The non-Ref variants consume the row: a row implementing io.Closer is closed.
    The Ref variants borrow it, so it can be read again.

# Mapping rules

  - Fields are read in declaration order. The first failing field stops the
    mapping; no partial record is returned.
  - A missing column is [ColumnNotFound]. A stored type that can never represent
    the field is [ColumnTypeMismatch]. Any other decode failure (bad text,
    overflow, NULL into a non-pointer) is [ConversionFailed].
  - Nullable columns map to pointer fields or sql.Null* / sql.Scanner types.
  - Column names are an explicit list. Untagged fields use the Go field name
    verbatim; nothing is inferred from naming conventions. [SQLRow] compares
    names case-insensitively because SQL identifiers are.

# Error handling

[*MappingError] carries the kind, the column and the row source's underlying
error. It works with errors.Is and errors.As through any amount of wrapping:

	u, err := rowmap.TryFromRow[User](row)
	if errors.Is(err, rowmap.ErrColumnNotFound) {
	    // schema drift
	}

# Concurrency

Mapping is synchronous, performs no I/O and holds no shared mutable state.
Schemas and registries are safe for concurrent use; a borrowed row may be
mapped from several goroutines when its Get method is read-only, as it is for
the bundled row sources.
*/
package rowmap
