package schema

import (
	"cmp"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/google/uuid"
)

// Assign stores src into dst, converting between the representations a
// driver or another schema may produce. A nil src stores the zero value.
func Assign(dst reflect.Value, src any) error {
	if src == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	if dst.Kind() == reflect.Pointer {
		p := reflect.New(dst.Type().Elem())
		if err := Assign(p.Elem(), src); err != nil {
			return err
		}
		dst.Set(p)
		return nil
	}

	sv := reflect.ValueOf(src)
	for sv.Kind() == reflect.Pointer {
		if sv.IsNil() {
			dst.Set(reflect.Zero(dst.Type()))
			return nil
		}
		sv = sv.Elem()
	}
	if sv.Type() == dst.Type() {
		dst.Set(sv)
		return nil
	}

	if dst.Type() == uuidType {
		id, err := toUUID(sv)
		if err != nil {
			return err
		}
		dst.Set(reflect.ValueOf(id))
		return nil
	}

	switch dst.Kind() {
	case reflect.String:
		switch {
		case sv.Kind() == reflect.String:
			dst.SetString(sv.String())
		case sv.Kind() == reflect.Slice && sv.Type().Elem().Kind() == reflect.Uint8:
			dst.SetString(string(sv.Bytes()))
		case sv.Type() == uuidType:
			dst.SetString(sv.Interface().(uuid.UUID).String())
		default:
			return conversionError(sv, dst)
		}
	case reflect.Bool:
		b, ok := toBool(sv)
		if !ok {
			return conversionError(sv, dst)
		}
		dst.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := toInt64(sv)
		if !ok || dst.OverflowInt(n) {
			return conversionError(sv, dst)
		}
		dst.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, ok := toInt64(sv)
		if !ok || n < 0 || dst.OverflowUint(uint64(n)) {
			return conversionError(sv, dst)
		}
		dst.SetUint(uint64(n))
	case reflect.Float32, reflect.Float64:
		f, ok := toFloat64(sv)
		if !ok || dst.OverflowFloat(f) {
			return conversionError(sv, dst)
		}
		dst.SetFloat(f)
	default:
		if sv.Type().ConvertibleTo(dst.Type()) {
			dst.Set(sv.Convert(dst.Type()))
			return nil
		}
		return conversionError(sv, dst)
	}
	return nil
}

func conversionError(src, dst reflect.Value) error {
	return fmt.Errorf("%w: %s (%v) to %s", ErrConversion, src.Type(), src.Interface(), dst.Type())
}

func toUUID(sv reflect.Value) (uuid.UUID, error) {
	switch {
	case sv.Kind() == reflect.String:
		return uuid.Parse(sv.String())
	case sv.Kind() == reflect.Slice && sv.Type().Elem().Kind() == reflect.Uint8:
		b := sv.Bytes()
		if len(b) == 16 {
			return uuid.FromBytes(b)
		}
		return uuid.ParseBytes(b)
	case sv.Kind() == reflect.Array && sv.Len() == 16 && sv.Type().Elem().Kind() == reflect.Uint8:
		var id uuid.UUID
		reflect.Copy(reflect.ValueOf(&id).Elem(), sv)
		return id, nil
	}
	return uuid.Nil, fmt.Errorf("%w: %s to uuid", ErrConversion, sv.Type())
}

func toBool(sv reflect.Value) (bool, bool) {
	switch sv.Kind() {
	case reflect.Bool:
		return sv.Bool(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return sv.Int() != 0, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return sv.Uint() != 0, true
	case reflect.String:
		b, err := strconv.ParseBool(sv.String())
		return b, err == nil
	case reflect.Slice:
		if sv.Type().Elem().Kind() == reflect.Uint8 {
			b, err := strconv.ParseBool(string(sv.Bytes()))
			return b, err == nil
		}
	}
	return false, false
}

func toInt64(sv reflect.Value) (int64, bool) {
	switch sv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return sv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := sv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	case reflect.Float32, reflect.Float64:
		f := sv.Float()
		if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
			return 0, false
		}
		return int64(f), true
	case reflect.Bool:
		if sv.Bool() {
			return 1, true
		}
		return 0, true
	case reflect.String:
		n, err := strconv.ParseInt(sv.String(), 10, 64)
		return n, err == nil
	case reflect.Slice:
		if sv.Type().Elem().Kind() == reflect.Uint8 {
			n, err := strconv.ParseInt(string(sv.Bytes()), 10, 64)
			return n, err == nil
		}
	}
	return 0, false
}

func toFloat64(sv reflect.Value) (float64, bool) {
	switch sv.Kind() {
	case reflect.Float32, reflect.Float64:
		return sv.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(sv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(sv.Uint()), true
	case reflect.String:
		f, err := strconv.ParseFloat(sv.String(), 64)
		return f, err == nil
	case reflect.Slice:
		if sv.Type().Elem().Kind() == reflect.Uint8 {
			f, err := strconv.ParseFloat(string(sv.Bytes()), 64)
			return f, err == nil
		}
	}
	return 0, false
}

// Text returns the text form of a column value used for substring search.
func Text(v any) string {
	if v == nil {
		return ""
	}
	if id, ok := v.(uuid.UUID); ok {
		return id.String()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64)
	}
	return fmt.Sprint(v)
}

// Compare orders two column values. nil sorts before every value; numbers
// compare numerically across widths, false sorts before true, uuids and
// strings compare byte-wise.
func Compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if ia, ok := a.(uuid.UUID); ok {
		if ib, ok := b.(uuid.UUID); ok {
			return cmp.Compare(ia.String(), ib.String())
		}
	}

	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	switch {
	case av.Kind() == reflect.String && bv.Kind() == reflect.String:
		return cmp.Compare(av.String(), bv.String())
	case av.Kind() == reflect.Bool && bv.Kind() == reflect.Bool:
		return cmp.Compare(boolRank(av.Bool()), boolRank(bv.Bool()))
	}
	if isInteger(av) && isInteger(bv) {
		ai, aok := toInt64(av)
		bi, bok := toInt64(bv)
		if aok && bok {
			return cmp.Compare(ai, bi)
		}
	}
	af, aok := toFloat64(av)
	bf, bok := toFloat64(bv)
	if aok && bok {
		return cmp.Compare(af, bf)
	}
	return cmp.Compare(Text(a), Text(b))
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isInteger(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// Convert builds a T from the columns of src that T declares, the way a
// read schema is turned into its create or update counterpart.
func Convert[T any](src any) (T, error) {
	var zero T
	dst, err := LayoutOf(reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	from, err := LayoutOf(reflect.TypeOf(src))
	if err != nil {
		return zero, err
	}
	values := from.Values(src)
	for col := range values {
		if !dst.Has(col) {
			delete(values, col)
		}
	}
	rv, err := dst.Build(values)
	if err != nil {
		return zero, err
	}
	return rv.Interface().(T), nil
}

// MustConvert is Convert for statically known schema pairs.
func MustConvert[T any](src any) T {
	out, err := Convert[T](src)
	if err != nil {
		panic(err)
	}
	return out
}
