package mapping

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"

	"github.com/syssam/quarry/schema/field"
)

// ConvertError is returned when a column value cannot be assigned to a field.
type ConvertError struct {
	Column string
	From   reflect.Type
	To     reflect.Type
	Err    error
}

// Error returns the error string.
func (e *ConvertError) Error() string {
	msg := fmt.Sprintf("mapping: cannot convert %s to %s", e.From, e.To)
	if e.Column != "" {
		msg = fmt.Sprintf("mapping: column %q: cannot convert %s to %s", e.Column, e.From, e.To)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ConvertError) Unwrap() error { return e.Err }

// timeLayouts are the text formats accepted for time.Time fields.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	field.DateLayout,
}

// Bind assigns the named column of the row to dst. Missing columns and
// NULL values leave dst untouched. Precompiled mappers and the fallback
// mapper both assign through Bind.
func Bind(r Row, column string, dst any) error {
	v, ok := r.Get(column)
	if !ok || v == nil {
		return nil
	}
	if err := Assign(dst, v); err != nil {
		var ce *ConvertError
		if errors.As(err, &ce) {
			ce.Column = column
			return ce
		}
		return &ConvertError{Column: column, From: reflect.TypeOf(v), To: reflect.TypeOf(dst), Err: err}
	}
	return nil
}

// Assign stores src into the value dst points to, widening src to the type
// of dst when needed:
//
//   - time.Time into field.Date drops the time of day in the location of
//     the value; field.Date into time.Time is midnight UTC.
//   - integers and floats convert between sizes with an overflow check.
//   - []byte and string convert to string, []byte, uuid.UUID, apd.Decimal,
//     time.Time, field.Date, numbers and bool.
//   - integers convert to bool (non-zero is true).
//
// Pointer destinations are allocated. A nil src is a no-op.
func Assign(dst any, src any) error {
	if src == nil {
		return nil
	}
	dv := reflect.ValueOf(dst)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return fmt.Errorf("mapping: destination must be a non-nil pointer, got %T", dst)
	}
	return assign(dv.Elem(), src)
}

func assign(dv reflect.Value, src any) error {
	if dv.Kind() == reflect.Pointer {
		elem := reflect.New(dv.Type().Elem())
		if err := assign(elem.Elem(), src); err != nil {
			return err
		}
		dv.Set(elem)
		return nil
	}
	switch d := dv.Addr().Interface().(type) {
	case *time.Time:
		return assignTime(d, src)
	case *field.Date:
		return assignDate(d, src)
	case *uuid.UUID:
		return assignUUID(d, src)
	case *apd.Decimal:
		return assignDecimal(d, src)
	}
	sv := reflect.ValueOf(src)
	if sv.Type().AssignableTo(dv.Type()) {
		dv.Set(sv)
		return nil
	}
	if s, ok := dv.Addr().Interface().(sql.Scanner); ok {
		if err := s.Scan(src); err != nil {
			return convertError(src, dv, err)
		}
		return nil
	}
	switch dv.Kind() {
	case reflect.String:
		switch s := src.(type) {
		case string:
			dv.SetString(s)
		case []byte:
			dv.SetString(string(s))
		default:
			return convertError(src, dv, nil)
		}
	case reflect.Bool:
		b, err := toBool(src)
		if err != nil {
			return convertError(src, dv, err)
		}
		dv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := toInt(src)
		if err != nil {
			return convertError(src, dv, err)
		}
		if dv.OverflowInt(i) {
			return convertError(src, dv, fmt.Errorf("value %d overflows", i))
		}
		dv.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := toUint(src)
		if err != nil {
			return convertError(src, dv, err)
		}
		if dv.OverflowUint(u) {
			return convertError(src, dv, fmt.Errorf("value %d overflows", u))
		}
		dv.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := toFloat(src)
		if err != nil {
			return convertError(src, dv, err)
		}
		if dv.OverflowFloat(f) {
			return convertError(src, dv, fmt.Errorf("value %g overflows", f))
		}
		dv.SetFloat(f)
	case reflect.Slice:
		if dv.Type().Elem().Kind() != reflect.Uint8 {
			return convertError(src, dv, nil)
		}
		var b []byte
		switch s := src.(type) {
		case []byte:
			b = append([]byte(nil), s...)
		case string:
			b = []byte(s)
		default:
			return convertError(src, dv, nil)
		}
		dv.SetBytes(b)
	default:
		if sv.Type().ConvertibleTo(dv.Type()) && sv.Kind() == dv.Kind() {
			dv.Set(sv.Convert(dv.Type()))
			return nil
		}
		return convertError(src, dv, nil)
	}
	return nil
}

func convertError(src any, dv reflect.Value, err error) error {
	return &ConvertError{From: reflect.TypeOf(src), To: dv.Type(), Err: err}
}

func assignTime(d *time.Time, src any) error {
	switch s := src.(type) {
	case time.Time:
		*d = s
	case field.Date:
		*d = s.Time()
	case string:
		return parseTime(d, s)
	case []byte:
		return parseTime(d, string(s))
	default:
		return &ConvertError{From: reflect.TypeOf(src), To: reflect.TypeOf(*d)}
	}
	return nil
}

func parseTime(d *time.Time, s string) error {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*d = t
			return nil
		}
	}
	return &ConvertError{From: reflect.TypeOf(s), To: reflect.TypeOf(*d), Err: fmt.Errorf("unrecognized time format %q", s)}
}

func assignDate(d *field.Date, src any) error {
	switch s := src.(type) {
	case field.Date:
		*d = s
		return nil
	case time.Time, string, []byte:
		if err := d.Scan(src); err != nil {
			return &ConvertError{From: reflect.TypeOf(src), To: reflect.TypeOf(*d), Err: err}
		}
		return nil
	default:
		return &ConvertError{From: reflect.TypeOf(src), To: reflect.TypeOf(*d)}
	}
}

func assignUUID(d *uuid.UUID, src any) error {
	var err error
	switch s := src.(type) {
	case uuid.UUID:
		*d = s
	case [16]byte:
		*d = s
	case string:
		*d, err = uuid.Parse(s)
	case []byte:
		if len(s) == 16 {
			*d, err = uuid.FromBytes(s)
		} else {
			*d, err = uuid.ParseBytes(s)
		}
	default:
		return &ConvertError{From: reflect.TypeOf(src), To: reflect.TypeOf(*d)}
	}
	if err != nil {
		return &ConvertError{From: reflect.TypeOf(src), To: reflect.TypeOf(*d), Err: err}
	}
	return nil
}

func assignDecimal(d *apd.Decimal, src any) error {
	var err error
	switch s := src.(type) {
	case apd.Decimal:
		d.Set(&s)
	case *apd.Decimal:
		d.Set(s)
	case string:
		_, _, err = d.SetString(s)
	case []byte:
		_, _, err = d.SetString(string(s))
	case float64:
		_, err = d.SetFloat64(s)
	case float32:
		_, err = d.SetFloat64(float64(s))
	default:
		i, ierr := toInt(src)
		if ierr != nil {
			return &ConvertError{From: reflect.TypeOf(src), To: reflect.TypeOf(*d), Err: ierr}
		}
		d.SetInt64(i)
	}
	if err != nil {
		return &ConvertError{From: reflect.TypeOf(src), To: reflect.TypeOf(*d), Err: err}
	}
	return nil
}

func toInt(src any) (int64, error) {
	sv := reflect.ValueOf(src)
	switch sv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return sv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := sv.Uint()
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		f := sv.Float()
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, fmt.Errorf("value %g is not an integer", f)
		}
		return int64(f), nil
	case reflect.Bool:
		if sv.Bool() {
			return 1, nil
		}
		return 0, nil
	case reflect.String:
		return strconv.ParseInt(strings.TrimSpace(sv.String()), 10, 64)
	case reflect.Slice:
		if b, ok := src.([]byte); ok {
			return strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
		}
	}
	return 0, fmt.Errorf("unsupported source type %T", src)
}

func toUint(src any) (uint64, error) {
	sv := reflect.ValueOf(src)
	switch sv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return sv.Uint(), nil
	case reflect.String:
		return strconv.ParseUint(strings.TrimSpace(sv.String()), 10, 64)
	case reflect.Slice:
		if b, ok := src.([]byte); ok {
			return strconv.ParseUint(strings.TrimSpace(string(b)), 10, 64)
		}
	}
	i, err := toInt(src)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		return 0, fmt.Errorf("negative value %d", i)
	}
	return uint64(i), nil
}

func toFloat(src any) (float64, error) {
	sv := reflect.ValueOf(src)
	switch sv.Kind() {
	case reflect.Float32, reflect.Float64:
		return sv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(sv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(sv.Uint()), nil
	case reflect.String:
		return strconv.ParseFloat(strings.TrimSpace(sv.String()), 64)
	case reflect.Slice:
		if b, ok := src.([]byte); ok {
			return strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
		}
	}
	return 0, fmt.Errorf("unsupported source type %T", src)
}

func toBool(src any) (bool, error) {
	switch s := src.(type) {
	case bool:
		return s, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(s))
	case []byte:
		return strconv.ParseBool(strings.TrimSpace(string(s)))
	}
	i, err := toInt(src)
	if err != nil {
		return false, err
	}
	return i != 0, nil
}
