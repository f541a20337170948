package schema

import (
	"math"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssign(t *testing.T) {
	id := uuid.MustParse("0190b7a2-3c4d-7e5f-8a9b-0c1d2e3f4a5b")

	tests := []struct {
		name string
		dst  any // pointer to the destination
		src  any
		want any
	}{
		{"same type", new(string), "x", "x"},
		{"bytes to string", new(string), []byte("x"), "x"},
		{"uuid to string", new(string), id, id.String()},
		{"string to uuid", new(uuid.UUID), id.String(), id},
		{"raw bytes to uuid", new(uuid.UUID), id[:], id},
		{"text bytes to uuid", new(uuid.UUID), []byte(id.String()), id},
		{"int64 to int", new(int), int64(7), 7},
		{"int64 to uint8", new(uint8), int64(200), uint8(200)},
		{"integral float to int", new(int64), 3.0, int64(3)},
		{"int64 to bool", new(bool), int64(1), true},
		{"string to bool", new(bool), "false", false},
		{"int to float", new(float64), int64(2), 2.0},
		{"bytes to float", new(float64), []byte("0.5"), 0.5},
		{"float32 widening", new(float64), float32(1.5), 1.5},
		{"nil zeroes", new(int), nil, 0},
		{"into optional", new(*int), int64(4), ptr(4)},
		{"nil into optional", new(*int), nil, (*int)(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := reflect.ValueOf(tt.dst).Elem()
			require.NoError(t, Assign(dst, tt.src))
			assert.Equal(t, tt.want, dst.Interface())
		})
	}
}

func TestAssignRejects(t *testing.T) {
	tests := []struct {
		name string
		dst  any
		src  any
	}{
		{"overflow", new(int8), int64(300)},
		{"negative to unsigned", new(uint), int64(-1)},
		{"fractional to int", new(int), 1.5},
		{"huge uint to int", new(int64), uint64(math.MaxUint64)},
		{"text to int", new(int), "seven"},
		{"bool to string", new(string), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Assign(reflect.ValueOf(tt.dst).Elem(), tt.src)
			assert.ErrorIs(t, err, ErrConversion)
		})
	}

	err := Assign(reflect.ValueOf(new(uuid.UUID)).Elem(), "not-a-uuid")
	assert.Error(t, err)
}

func TestText(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, "", Text(nil))
	assert.Equal(t, id.String(), Text(id))
	assert.Equal(t, "abc", Text("abc"))
	assert.Equal(t, "true", Text(true))
	assert.Equal(t, "-12", Text(int32(-12)))
	assert.Equal(t, "12", Text(uint16(12)))
	assert.Equal(t, "0.5", Text(0.5))
	assert.Equal(t, "1000.5", Text(1000.5))
}

func TestCompare(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	b := uuid.MustParse("00000000-0000-0000-0000-00000000000b")

	tests := []struct {
		name string
		a, b any
		want int
	}{
		{"nil equal", nil, nil, 0},
		{"nil first", nil, 1, -1},
		{"nil first reversed", "a", nil, 1},
		{"strings", "child a", "child b", -1},
		{"strings are byte-wise", "Z", "a", -1},
		{"ints across widths", int64(3), int8(3), 0},
		{"ints", int64(-1), uint8(1), -1},
		{"floats", 0.5, 0.25, 1},
		{"int against float", int64(1), 1.5, -1},
		{"false before true", false, true, -1},
		{"uuids", b, a, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.a, tt.b))
		})
	}
}

func TestConvert(t *testing.T) {
	c := cat{animal: animal{ID: uuid.New(), Name: "tom", Legs: 4}, Lives: 9, Mass: 4.2}

	create, err := Convert[catCreate](c)
	require.NoError(t, err)
	assert.Equal(t, catCreate{animalCreate: animalCreate{ID: c.ID, Name: "tom", Legs: 4}, Lives: 9, Mass: 4.2}, create)

	update := MustConvert[catUpdate](c)
	require.NotNil(t, update.Name)
	assert.Equal(t, "tom", *update.Name)
	require.NotNil(t, update.Lives)
	assert.Equal(t, uint8(9), *update.Lives)

	parent := MustConvert[animalCreate](c)
	assert.Equal(t, animalCreate{ID: c.ID, Name: "tom", Legs: 4}, parent)

	_, err = Convert[int](c)
	assert.ErrorIs(t, err, ErrInvalidSchema)
}

func ptr[T any](v T) *T { return &v }
