package rowmap

import (
	"fmt"
	"reflect"
)

// Field describes one member of the record type T: the column it is read
// from, the Go type it decodes into, and how to reach its storage in a *T.
type Field[T any] struct {
	Name string
	Type reflect.Type

	ptr func(rec *T) any // returns a pointer to the field inside rec
}

// Col declares a field explicitly. ptr must return the address of the field
// inside rec; it is called once per mapping.
//
//	rowmap.Col("email", func(u *User) **string { return &u.Email })
func Col[T, V any](name string, ptr func(rec *T) *V) Field[T] {
	return Field[T]{
		Name: name,
		Type: reflect.TypeFor[V](),
		ptr:  func(rec *T) any { return ptr(rec) },
	}
}

// reflectFields lists the mapped fields of struct type T in declaration
// order. Rules:
//   - `db:"name"` sets the column; untagged exported fields use the Go field name verbatim.
//   - `db:"-"` skips a field; unexported non-embedded fields are skipped.
//   - embedded structs, and fields tagged `db:",inline"`, are flattened.
func reflectFields[T any]() ([]Field[T], error) {
	rt := reflect.TypeFor[T]()
	if rt.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s", ErrNotStruct, rt)
	}

	var out []Field[T]
	var walk func(t reflect.Type, base []int, forceInline bool)
	walk = func(t reflect.Type, base []int, forceInline bool) {
		t = derefPtr(t)
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if sf.PkgPath != "" && !sf.Anonymous { // unexported, non-anonymous
				continue
			}
			tag := sf.Tag.Get("db")
			name, inline, omit := parseTag(tag)
			if omit {
				continue
			}
			path := append(append([]int(nil), base...), i)

			if inline || (sf.Anonymous && (forceInline || tag == "")) {
				if isStruct(sf.Type) && !implementsScanner(sf.Type) && derefPtr(sf.Type) != timeType {
					// Unexported embedded pointers cannot be allocated through reflection.
					if sf.Type.Kind() == reflect.Pointer && sf.PkgPath != "" {
						continue
					}
					walk(sf.Type, path, inline)
					continue
				}
			}
			if sf.PkgPath != "" {
				continue
			}
			if name == "" {
				name = sf.Name
			}
			out = append(out, Field[T]{
				Name: name,
				Type: sf.Type,
				ptr: func(rec *T) any {
					return fieldByPathAlloc(reflect.ValueOf(rec).Elem(), path).Addr().Interface()
				},
			})
		}
	}
	walk(rt, nil, false)
	return out, nil
}

// parseTag supports: "-", "col", ",inline", "col,inline", "inline,col".
func parseTag(tag string) (name string, inline bool, omit bool) {
	if tag == "-" {
		return "", false, true
	}
	if tag == "" {
		return "", false, false
	}
	start := 0
	for i := 0; i <= len(tag); i++ {
		if i == len(tag) || tag[i] == ',' {
			part := tag[start:i]
			if part == "inline" {
				inline = true
			} else if part != "" && name == "" {
				name = part
			}
			start = i + 1
		}
	}
	return name, inline, false
}

func isStruct(t reflect.Type) bool { return derefPtr(t).Kind() == reflect.Struct }

func derefPtr(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func implementsScanner(t reflect.Type) bool {
	return t.Implements(scannerType) || reflect.PointerTo(t).Implements(scannerType)
}

// fieldByPathAlloc walks fpath, allocating nil embedded struct pointers on
// the way. The final field itself is left untouched.
func fieldByPathAlloc(root reflect.Value, fpath []int) reflect.Value {
	v := root
	for _, i := range fpath {
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(i)
	}
	return v
}
