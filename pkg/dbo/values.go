package dbo

import (
	"database/sql"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/mesh-intelligence/dbo/pkg/types"
)

// Column type names understood without a dialect.
const (
	ColumnTypeDate     = "date"
	ColumnTypeDateTime = "datetime"
	ColumnTypeTime     = "time"
)

// defaultColumnTypes are the MySQL wrappers. Dates travel as unix
// timestamps and times of day as seconds.
var defaultColumnTypes = map[string]types.ColumnType{
	ColumnTypeDate: {
		Name:  ColumnTypeDate,
		Read:  "UNIX_TIMESTAMP({col})",
		Write: "FROM_UNIXTIME({bind})",
	},
	ColumnTypeDateTime: {
		Name:  ColumnTypeDateTime,
		Read:  "UNIX_TIMESTAMP({col})",
		Write: "FROM_UNIXTIME({bind})",
	},
	ColumnTypeTime: {
		Name:  ColumnTypeTime,
		Read:  "TIME_TO_SEC({col})",
		Write: "SEC_TO_TIME({bind})",
	},
}

var (
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
	scannerType  = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
)

// coerceID converts a caller-supplied id to a positive int64.
func coerceID(id any) (int64, error) {
	var n int64
	switch v := id.(type) {
	case int:
		n = int64(v)
	case int8:
		n = int64(v)
	case int16:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case uint:
		n = int64(v)
	case uint8:
		n = int64(v)
	case uint16:
		n = int64(v)
	case uint32:
		n = int64(v)
	case uint64:
		if v > 1<<63-1 {
			return 0, fmt.Errorf("%w: id %d out of range", types.ErrInvalidArgument, v)
		}
		n = int64(v)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: id %q is not an integer", types.ErrInvalidArgument, v)
		}
		n = parsed
	default:
		return 0, fmt.Errorf("%w: id of type %T", types.ErrInvalidArgument, id)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: id %d is not positive", types.ErrInvalidArgument, n)
	}
	return n, nil
}

// bindValue converts a field value into the form bound to its column.
// Typed columns take epoch seconds for times (seconds since midnight for
// time columns). Durations are always bound as whole seconds.
func bindValue(col *Column, v reflect.Value) any {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}

	switch {
	case v.Type() == durationType:
		return int64(time.Duration(v.Int()) / time.Second)
	case v.Type() == timeType && col.Type != nil:
		t := v.Interface().(time.Time)
		if t.IsZero() {
			return nil
		}
		if col.Type.Name == ColumnTypeTime {
			return int64(t.Hour()*3600 + t.Minute()*60 + t.Second())
		}
		return t.Unix()
	}
	return v.Interface()
}

// assign stores a fetched or deserialized value in a field.
func assign(dst reflect.Value, v any) error {
	if v == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	if dst.CanAddr() && reflect.PointerTo(dst.Type()).Implements(scannerType) {
		return dst.Addr().Interface().(sql.Scanner).Scan(v)
	}

	if dst.Kind() == reflect.Pointer {
		elem := reflect.New(dst.Type().Elem())
		if err := assign(elem.Elem(), v); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}

	if b, ok := v.([]byte); ok && !(dst.Kind() == reflect.Slice && dst.Type().Elem().Kind() == reflect.Uint8) {
		v = string(b)
	}

	src := reflect.ValueOf(v)
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}

	if dst.Type() == durationType {
		secs, err := toInt64(v)
		if err != nil {
			return err
		}
		dst.SetInt(int64(time.Duration(secs) * time.Second))
		return nil
	}
	if dst.Type() == timeType {
		t, err := cast.ToTimeE(v)
		if err != nil {
			return fmt.Errorf("%w: %v", types.ErrInvalidArgument, err)
		}
		dst.Set(reflect.ValueOf(t))
		return nil
	}

	switch dst.Kind() {
	case reflect.String:
		s, err := cast.ToStringE(v)
		if err != nil {
			return fmt.Errorf("%w: %v", types.ErrInvalidArgument, err)
		}
		dst.SetString(s)
	case reflect.Bool:
		b, err := cast.ToBoolE(v)
		if err != nil {
			return fmt.Errorf("%w: %v", types.ErrInvalidArgument, err)
		}
		dst.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt64(v)
		if err != nil {
			return err
		}
		if dst.OverflowInt(n) {
			return fmt.Errorf("%w: %d overflows %s", types.ErrInvalidArgument, n, dst.Type())
		}
		dst.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := cast.ToUint64E(v)
		if err != nil {
			return fmt.Errorf("%w: %v", types.ErrInvalidArgument, err)
		}
		if dst.OverflowUint(n) {
			return fmt.Errorf("%w: %d overflows %s", types.ErrInvalidArgument, n, dst.Type())
		}
		dst.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return fmt.Errorf("%w: %v", types.ErrInvalidArgument, err)
		}
		dst.SetFloat(f)
	case reflect.Slice:
		if dst.Type().Elem().Kind() != reflect.Uint8 {
			return fmt.Errorf("%w: cannot assign %T to %s", types.ErrInvalidArgument, v, dst.Type())
		}
		s, err := cast.ToStringE(v)
		if err != nil {
			return fmt.Errorf("%w: %v", types.ErrInvalidArgument, err)
		}
		dst.SetBytes([]byte(s))
	default:
		if src.Type().ConvertibleTo(dst.Type()) {
			dst.Set(src.Convert(dst.Type()))
			return nil
		}
		return fmt.Errorf("%w: cannot assign %T to %s", types.ErrInvalidArgument, v, dst.Type())
	}
	return nil
}

// toInt64 parses decimal strings as base 10 so zero-padded values are not
// read as octal.
func toInt64(v any) (int64, error) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f), nil
		}
		return 0, fmt.Errorf("%w: %q is not an integer", types.ErrInvalidArgument, s)
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", types.ErrInvalidArgument, err)
	}
	return n, nil
}
