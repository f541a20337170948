package schema

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var uuidType = reflect.TypeFor[uuid.UUID]()

// Field maps one struct field to a storage column.
type Field struct {
	Column   string
	Index    []int
	Type     reflect.Type // underlying value type, pointer stripped
	Optional bool         // declared as a pointer; nil means absent
	Size     int          // declared column length, 0 when unbounded
}

// Layout is the column mapping of one schema struct type. Embedded structs
// without a tag are flattened in declaration order.
type Layout struct {
	Type     reflect.Type
	Fields   []Field
	byColumn map[string]int
}

var layouts sync.Map // reflect.Type -> *Layout

// LayoutOf returns the cached layout of t, computing it on first use.
func LayoutOf(t reflect.Type) (*Layout, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := layouts.Load(t); ok {
		return cached.(*Layout), nil
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", ErrInvalidSchema, t)
	}
	l := &Layout{Type: t, byColumn: make(map[string]int)}
	if err := l.collect(t, nil); err != nil {
		return nil, err
	}
	actual, _ := layouts.LoadOrStore(t, l)
	return actual.(*Layout), nil
}

func (l *Layout) collect(t reflect.Type, prefix []int) error {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		index := append(append([]int(nil), prefix...), i)
		tag, tagged := sf.Tag.Lookup("db")
		if tag == "-" {
			continue
		}
		if sf.Anonymous && !tagged && sf.Type.Kind() == reflect.Struct {
			if err := l.collect(sf.Type, index); err != nil {
				return err
			}
			continue
		}
		if !tagged || !sf.IsExported() {
			continue
		}

		name, size, err := parseTag(tag)
		if err != nil {
			return fmt.Errorf("%w: %s.%s: %v", ErrInvalidSchema, l.Type, sf.Name, err)
		}
		if name == Discriminator {
			return fmt.Errorf("%w: %s.%s uses reserved column %q", ErrInvalidSchema, l.Type, sf.Name, name)
		}
		if _, dup := l.byColumn[name]; dup {
			return fmt.Errorf("%w: %s declares column %q twice", ErrInvalidSchema, l.Type, name)
		}

		ft := sf.Type
		optional := false
		if ft.Kind() == reflect.Pointer {
			optional = true
			ft = ft.Elem()
		}
		if !supported(ft) {
			return fmt.Errorf("%w: %s.%s has unsupported type %s", ErrInvalidSchema, l.Type, sf.Name, sf.Type)
		}

		l.byColumn[name] = len(l.Fields)
		l.Fields = append(l.Fields, Field{
			Column:   name,
			Index:    index,
			Type:     ft,
			Optional: optional,
			Size:     size,
		})
	}
	return nil
}

func parseTag(tag string) (name string, size int, err error) {
	parts := strings.Split(tag, ",")
	name = strings.TrimSpace(parts[0])
	if name == "" {
		return "", 0, fmt.Errorf("empty column name")
	}
	for _, opt := range parts[1:] {
		key, value, _ := strings.Cut(strings.TrimSpace(opt), "=")
		switch key {
		case "size":
			size, err = strconv.Atoi(value)
			if err != nil || size <= 0 {
				return "", 0, fmt.Errorf("invalid size %q", value)
			}
		default:
			return "", 0, fmt.Errorf("unknown tag option %q", key)
		}
	}
	return name, size, nil
}

func supported(t reflect.Type) bool {
	if t == uuidType {
		return true
	}
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// Field returns the field mapped to column.
func (l *Layout) Field(column string) (Field, bool) {
	i, ok := l.byColumn[column]
	if !ok {
		return Field{}, false
	}
	return l.Fields[i], true
}

// Has reports whether the layout maps column.
func (l *Layout) Has(column string) bool {
	_, ok := l.byColumn[column]
	return ok
}

// Columns returns the column names in declaration order.
func (l *Layout) Columns() []string {
	cols := make([]string, len(l.Fields))
	for i, f := range l.Fields {
		cols[i] = f.Column
	}
	return cols
}

// Values extracts the column values of v. Optional fields holding nil are
// omitted; pointers are dereferenced.
func (l *Layout) Values(v any) map[string]any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	out := make(map[string]any, len(l.Fields))
	for _, f := range l.Fields {
		fv := rv.FieldByIndex(f.Index)
		if f.Optional {
			if fv.IsNil() {
				continue
			}
			fv = fv.Elem()
		}
		out[f.Column] = fv.Interface()
	}
	return out
}

// Build constructs a struct value of the layout's type from column values.
// Columns absent from values keep their zero value.
func (l *Layout) Build(values map[string]any) (reflect.Value, error) {
	rv := reflect.New(l.Type).Elem()
	for _, f := range l.Fields {
		src, ok := values[f.Column]
		if !ok {
			continue
		}
		if err := Assign(rv.FieldByIndex(f.Index), src); err != nil {
			return reflect.Value{}, fmt.Errorf("column %q: %w", f.Column, err)
		}
	}
	return rv, nil
}
