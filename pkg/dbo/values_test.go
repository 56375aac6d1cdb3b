package dbo

import (
	"database/sql"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/dbo/pkg/types"
)

func TestCoerceID(t *testing.T) {
	tests := []struct {
		name    string
		id      any
		want    int64
		wantErr bool
	}{
		{name: "int", id: 7, want: 7},
		{name: "int64", id: int64(9), want: 9},
		{name: "uint32", id: uint32(3), want: 3},
		{name: "string", id: "12", want: 12},
		{name: "padded string", id: " 012 ", want: 12},
		{name: "zero", id: 0, wantErr: true},
		{name: "negative", id: -4, wantErr: true},
		{name: "non-numeric", id: "abc", wantErr: true},
		{name: "float", id: 1.5, wantErr: true},
		{name: "nil", id: nil, wantErr: true},
		{name: "huge uint64", id: uint64(1 << 63), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := coerceID(tt.id)
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type assignTarget struct {
	S    string
	B    bool
	I    int
	I8   int8
	U    uint16
	F    float64
	T    time.Time
	D    time.Duration
	P    *string
	Raw  []byte
	Null sql.NullString
}

func field(t *testing.T, v *assignTarget, name string) reflect.Value {
	t.Helper()
	f := reflect.ValueOf(v).Elem().FieldByName(name)
	require.True(t, f.IsValid(), name)
	return f
}

func TestAssign(t *testing.T) {
	var v assignTarget

	require.NoError(t, assign(field(t, &v, "S"), []byte("text")))
	assert.Equal(t, "text", v.S)

	require.NoError(t, assign(field(t, &v, "S"), int64(5)))
	assert.Equal(t, "5", v.S)

	require.NoError(t, assign(field(t, &v, "B"), int64(1)))
	assert.True(t, v.B)

	require.NoError(t, assign(field(t, &v, "I"), "0042"))
	assert.Equal(t, 42, v.I)

	require.NoError(t, assign(field(t, &v, "I"), []byte("17")))
	assert.Equal(t, 17, v.I)

	assert.ErrorIs(t, assign(field(t, &v, "I8"), int64(300)), types.ErrInvalidArgument)

	require.NoError(t, assign(field(t, &v, "U"), int64(8)))
	assert.Equal(t, uint16(8), v.U)

	require.NoError(t, assign(field(t, &v, "F"), "2.5"))
	assert.Equal(t, 2.5, v.F)

	require.NoError(t, assign(field(t, &v, "T"), int64(86400)))
	assert.Equal(t, int64(86400), v.T.Unix())

	now := time.Now().Truncate(time.Second)
	require.NoError(t, assign(field(t, &v, "T"), now))
	assert.True(t, now.Equal(v.T))

	require.NoError(t, assign(field(t, &v, "D"), int64(90)))
	assert.Equal(t, 90*time.Second, v.D)

	require.NoError(t, assign(field(t, &v, "P"), "x"))
	require.NotNil(t, v.P)
	assert.Equal(t, "x", *v.P)

	require.NoError(t, assign(field(t, &v, "Raw"), []byte{1, 2}))
	assert.Equal(t, []byte{1, 2}, v.Raw)

	require.NoError(t, assign(field(t, &v, "Null"), "n"))
	assert.Equal(t, sql.NullString{String: "n", Valid: true}, v.Null)

	require.NoError(t, assign(field(t, &v, "S"), nil))
	assert.Equal(t, "", v.S)
	require.NoError(t, assign(field(t, &v, "P"), nil))
	assert.Nil(t, v.P)

	assert.ErrorIs(t, assign(field(t, &v, "I"), "seven"), types.ErrInvalidArgument)
}

func TestBindValue(t *testing.T) {
	plain := &Column{Name: "plain"}
	date := &Column{Name: "d", Type: &types.ColumnType{Name: ColumnTypeDate}}
	tod := &Column{Name: "t", Type: &types.ColumnType{Name: ColumnTypeTime}}

	when := time.Date(2024, 3, 1, 10, 30, 15, 0, time.UTC)

	assert.Equal(t, "x", bindValue(plain, reflect.ValueOf("x")))
	assert.Equal(t, when, bindValue(plain, reflect.ValueOf(when)))
	assert.Equal(t, when.Unix(), bindValue(date, reflect.ValueOf(when)))
	assert.Nil(t, bindValue(date, reflect.ValueOf(time.Time{})))
	assert.Equal(t, int64(10*3600+30*60+15), bindValue(tod, reflect.ValueOf(when)))
	assert.Equal(t, int64(90), bindValue(tod, reflect.ValueOf(90*time.Second)))

	var nilPtr *string
	assert.Nil(t, bindValue(plain, reflect.ValueOf(nilPtr)))
	s := "y"
	assert.Equal(t, "y", bindValue(plain, reflect.ValueOf(&s)))
}
