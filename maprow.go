package rowmap

import "fmt"

// MapRow is a Row backed by a map of column name to driver value. Column
// names are matched exactly. A present key with a nil value is a NULL.
type MapRow map[string]any

func (r MapRow) Get(column string, dst any) error {
	v, ok := r[column]
	if !ok {
		return fmt.Errorf("%w: %q", ErrColumnNotFound, column)
	}
	return Decode(dst, v)
}
