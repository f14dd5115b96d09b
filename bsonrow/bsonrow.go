// Package bsonrow exposes MongoDB documents as rowmap rows, so the same
// record schemas can be filled from SQL results and from documents.
//
// Top-level keys are columns. Values are normalized before decoding:
// bson.DateTime becomes a UTC time.Time, bson.Binary its data bytes and
// bson.Decimal128 its decimal text. Everything else (int32, int64, string,
// bson.ObjectID, nested bson.D, ...) is passed to rowmap.Decode as is.
package bsonrow

import (
	"fmt"

	"github.com/go-mizu/rowmap"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Row is a rowmap.Row over one document.
type Row struct {
	values map[string]any
}

// FromD builds a Row from an ordered document. On duplicate keys the first
// occurrence wins.
func FromD(d bson.D) *Row {
	r := &Row{values: make(map[string]any, len(d))}
	for _, e := range d {
		if _, dup := r.values[e.Key]; !dup {
			r.values[e.Key] = e.Value
		}
	}
	return r
}

// FromM builds a Row from an unordered document.
func FromM(m bson.M) *Row {
	r := &Row{values: make(map[string]any, len(m))}
	for k, v := range m {
		r.values[k] = v
	}
	return r
}

// FromRaw decodes a raw BSON document, e.g. cursor.Current.
func FromRaw(raw bson.Raw) (*Row, error) {
	var d bson.D
	if err := bson.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("bsonrow: unmarshal document: %w", err)
	}
	return FromD(d), nil
}

func (r *Row) Get(column string, dst any) error {
	v, ok := r.values[column]
	if !ok {
		return fmt.Errorf("%w: %q", rowmap.ErrColumnNotFound, column)
	}
	return rowmap.Decode(dst, normalize(v))
}

func normalize(v any) any {
	switch x := v.(type) {
	case bson.DateTime:
		return x.Time().UTC()
	case bson.Binary:
		return x.Data
	case bson.Decimal128:
		return x.String()
	}
	return v
}
