package rowmap

import (
	"bytes"
	"database/sql"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

var (
	scannerType = reflect.TypeFor[sql.Scanner]()
	timeType    = reflect.TypeFor[time.Time]()
)

// Decode stores the driver value src into dst, which must be a non-nil
// pointer. It is the decoder behind the bundled row sources and follows
// database/sql conventions:
//   - a dst implementing sql.Scanner receives src unchanged;
//   - NULL (nil) sets pointers, slices, maps and interfaces to nil, and fails with ErrNullValue otherwise;
//   - pointer destinations are allocated and decoded into;
//   - numbers convert between integer and float kinds with range checks (ErrOutOfRange);
//   - text ([]byte or string) parses into numbers, bools and time.Time;
//   - numbers, bools and times format into strings;
//   - named types decode like their underlying kind.
//
// A source whose type can never represent dst (a bool into a time.Time, a
// float into an int) yields a *TypeError.
func Decode(dst, src any) error {
	if s, ok := dst.(sql.Scanner); ok {
		return s.Scan(src)
	}
	dv := reflect.ValueOf(dst)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return fmt.Errorf("rowmap: decode destination must be a non-nil pointer, got %T", dst)
	}
	return decodeValue(dv.Elem(), src)
}

func decodeValue(dv reflect.Value, src any) error {
	dt := dv.Type()

	if reflect.PointerTo(dt).Implements(scannerType) {
		return dv.Addr().Interface().(sql.Scanner).Scan(src)
	}

	if src == nil {
		switch dt.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
			dv.SetZero()
			return nil
		}
		return fmt.Errorf("%w (%s)", ErrNullValue, dt)
	}

	if dt.Kind() == reflect.Pointer {
		nv := reflect.New(dt.Elem())
		if err := decodeValue(nv.Elem(), src); err != nil {
			return err
		}
		dv.Set(nv)
		return nil
	}

	sv := reflect.ValueOf(src)
	if sv.Type().AssignableTo(dt) {
		if b, ok := src.([]byte); ok {
			src = bytes.Clone(b)
			sv = reflect.ValueOf(src)
		}
		dv.Set(sv)
		return nil
	}

	if dt == timeType {
		return decodeTime(dv, src, sv)
	}

	text, isText := asText(src)
	switch dt.Kind() {
	case reflect.Bool:
		switch {
		case isText:
			b, err := cast.ToBoolE(strings.TrimSpace(text))
			if err != nil {
				return parseErr(text, dt, err)
			}
			dv.SetBool(b)
			return nil
		case sv.Kind() == reflect.Bool:
			dv.SetBool(sv.Bool())
			return nil
		case isInt(sv.Kind()):
			dv.SetBool(sv.Int() != 0)
			return nil
		case isUint(sv.Kind()):
			dv.SetBool(sv.Uint() != 0)
			return nil
		}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch {
		case isInt(sv.Kind()):
			return setInt(dv, sv.Int())
		case isUint(sv.Kind()):
			u := sv.Uint()
			if u > math.MaxInt64 {
				return rangeErr(u, dt)
			}
			return setInt(dv, int64(u))
		case isText:
			n, err := strconv.ParseInt(strings.TrimSpace(text), 10, dt.Bits())
			if err != nil {
				return parseErr(text, dt, err)
			}
			dv.SetInt(n)
			return nil
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		switch {
		case isUint(sv.Kind()):
			return setUint(dv, sv.Uint())
		case isInt(sv.Kind()):
			n := sv.Int()
			if n < 0 {
				return rangeErr(n, dt)
			}
			return setUint(dv, uint64(n))
		case isText:
			u, err := strconv.ParseUint(strings.TrimSpace(text), 10, dt.Bits())
			if err != nil {
				return parseErr(text, dt, err)
			}
			dv.SetUint(u)
			return nil
		}

	case reflect.Float32, reflect.Float64:
		switch {
		case sv.Kind() == reflect.Float32 || sv.Kind() == reflect.Float64:
			f := sv.Float()
			if dv.OverflowFloat(f) {
				return rangeErr(f, dt)
			}
			dv.SetFloat(f)
			return nil
		case isInt(sv.Kind()):
			dv.SetFloat(float64(sv.Int()))
			return nil
		case isUint(sv.Kind()):
			dv.SetFloat(float64(sv.Uint()))
			return nil
		case isText:
			f, err := strconv.ParseFloat(strings.TrimSpace(text), dt.Bits())
			if err != nil {
				return parseErr(text, dt, err)
			}
			dv.SetFloat(f)
			return nil
		}

	case reflect.String:
		switch {
		case isText:
			dv.SetString(text)
			return nil
		case sv.Type() == timeType:
			dv.SetString(src.(time.Time).Format(time.RFC3339Nano))
			return nil
		case isInt(sv.Kind()), isUint(sv.Kind()), sv.Kind() == reflect.Float32,
			sv.Kind() == reflect.Float64, sv.Kind() == reflect.Bool:
			s, err := cast.ToStringE(baseValue(sv))
			if err != nil {
				return err
			}
			dv.SetString(s)
			return nil
		}

	case reflect.Slice:
		if dt.Elem().Kind() == reflect.Uint8 && isText {
			dv.SetBytes([]byte(text))
			return nil
		}
	}

	if sv.Kind() == dt.Kind() && sv.Type().ConvertibleTo(dt) {
		dv.Set(sv.Convert(dt))
		return nil
	}
	return &TypeError{Want: dt, Got: sv.Type()}
}

func decodeTime(dv reflect.Value, src any, sv reflect.Value) error {
	var t time.Time
	var err error
	if text, ok := asText(src); ok {
		t, err = cast.ToTimeE(strings.TrimSpace(text))
		if err != nil {
			return parseErr(text, timeType, err)
		}
	} else if isInt(sv.Kind()) {
		t = time.Unix(sv.Int(), 0).UTC() // seconds since the epoch
	} else {
		return &TypeError{Want: timeType, Got: sv.Type()}
	}
	dv.Set(reflect.ValueOf(t))
	return nil
}

// asText reports src as a string when it is textual ([]byte or string kinds).
func asText(src any) (string, bool) {
	switch v := src.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	}
	sv := reflect.ValueOf(src)
	switch {
	case sv.Kind() == reflect.String:
		return sv.String(), true
	case sv.Kind() == reflect.Slice && sv.Type().Elem().Kind() == reflect.Uint8:
		return string(sv.Bytes()), true
	}
	return "", false
}

// baseValue strips a named type down to its builtin kind.
func baseValue(sv reflect.Value) any {
	switch {
	case isInt(sv.Kind()):
		return sv.Int()
	case isUint(sv.Kind()):
		return sv.Uint()
	case sv.Kind() == reflect.Float32 || sv.Kind() == reflect.Float64:
		return sv.Float()
	case sv.Kind() == reflect.Bool:
		return sv.Bool()
	}
	return sv.Interface()
}

func setInt(dv reflect.Value, n int64) error {
	if dv.OverflowInt(n) {
		return rangeErr(n, dv.Type())
	}
	dv.SetInt(n)
	return nil
}

func setUint(dv reflect.Value, u uint64) error {
	if dv.OverflowUint(u) {
		return rangeErr(u, dv.Type())
	}
	dv.SetUint(u)
	return nil
}

func isInt(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUint(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

func rangeErr(v any, dt reflect.Type) error {
	return fmt.Errorf("%w: %v overflows %s", ErrOutOfRange, v, dt)
}

func parseErr(text string, dt reflect.Type, err error) error {
	return fmt.Errorf("rowmap: parse %q as %s: %w", text, dt, err)
}
