package field

import (
	"database/sql"
	"math/big"
	"reflect"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
)

// A Type represents the semantic scalar type of a field or a bound parameter.
type Type uint8

// List of semantic types.
const (
	TypeInvalid Type = iota
	TypeBool
	TypeTime
	TypeDate
	TypeUUID
	TypeBytes
	TypeString
	TypeDecimal
	TypeInt8
	TypeInt16
	TypeInt32
	TypeInt
	TypeInt64
	TypeUint8
	TypeUint16
	TypeUint32
	TypeUint
	TypeUint64
	TypeFloat32
	TypeFloat64
	TypeOther
	endTypes
)

var (
	typeNames = [...]string{
		TypeInvalid: "invalid",
		TypeBool:    "bool",
		TypeTime:    "time.Time",
		TypeDate:    "field.Date",
		TypeUUID:    "uuid.UUID",
		TypeBytes:   "[]byte",
		TypeString:  "string",
		TypeDecimal: "apd.Decimal",
		TypeInt8:    "int8",
		TypeInt16:   "int16",
		TypeInt32:   "int32",
		TypeInt:     "int",
		TypeInt64:   "int64",
		TypeUint8:   "uint8",
		TypeUint16:  "uint16",
		TypeUint32:  "uint32",
		TypeUint:    "uint",
		TypeUint64:  "uint64",
		TypeFloat32: "float32",
		TypeFloat64: "float64",
		TypeOther:   "other",
	}
	constNames = [...]string{
		TypeBool:    "TypeBool",
		TypeTime:    "TypeTime",
		TypeDate:    "TypeDate",
		TypeUUID:    "TypeUUID",
		TypeBytes:   "TypeBytes",
		TypeString:  "TypeString",
		TypeDecimal: "TypeDecimal",
		TypeInt8:    "TypeInt8",
		TypeInt16:   "TypeInt16",
		TypeInt32:   "TypeInt32",
		TypeInt:     "TypeInt",
		TypeInt64:   "TypeInt64",
		TypeUint8:   "TypeUint8",
		TypeUint16:  "TypeUint16",
		TypeUint32:  "TypeUint32",
		TypeUint:    "TypeUint",
		TypeUint64:  "TypeUint64",
		TypeFloat32: "TypeFloat32",
		TypeFloat64: "TypeFloat64",
		TypeOther:   "TypeOther",
	}
)

// String returns the string representation of a type.
func (t Type) String() string {
	if t < endTypes {
		return typeNames[t]
	}
	return typeNames[TypeInvalid]
}

// Numeric reports if the given type is a numeric type.
func (t Type) Numeric() bool {
	return t >= TypeDecimal && t < TypeOther
}

// Integer reports if the given type is a signed or unsigned integer.
func (t Type) Integer() bool {
	return t >= TypeInt8 && t <= TypeUint64
}

// Temporal reports if the given type is a date-only or date-with-time type.
func (t Type) Temporal() bool {
	return t == TypeTime || t == TypeDate
}

// Valid reports if the given type if known type.
func (t Type) Valid() bool {
	return t > TypeInvalid && t < endTypes
}

// ConstName returns the constant name of an info type.
// It's used by the mapper generator.
func (t Type) ConstName() string {
	if !t.Valid() {
		return typeNames[TypeInvalid]
	}
	return constNames[t]
}

var (
	timeType    = reflect.TypeOf(time.Time{})
	dateType    = reflect.TypeOf(Date{})
	uuidType    = reflect.TypeOf(uuid.UUID{})
	decimalType = reflect.TypeOf(apd.Decimal{})
	bigRatType  = reflect.TypeOf(big.Rat{})
	bigFltType  = reflect.TypeOf(big.Float{})

	nullTypes = map[reflect.Type]Type{
		reflect.TypeOf(sql.NullBool{}):    TypeBool,
		reflect.TypeOf(sql.NullByte{}):    TypeUint8,
		reflect.TypeOf(sql.NullInt16{}):   TypeInt16,
		reflect.TypeOf(sql.NullInt32{}):   TypeInt32,
		reflect.TypeOf(sql.NullInt64{}):   TypeInt64,
		reflect.TypeOf(sql.NullFloat64{}): TypeFloat64,
		reflect.TypeOf(sql.NullString{}):  TypeString,
		reflect.TypeOf(sql.NullTime{}):    TypeTime,
	}
)

// TypeOf returns the semantic type of the given value's dynamic type.
// A nil interface yields TypeOther.
func TypeOf(v any) Type {
	if v == nil {
		return TypeOther
	}
	return TypeFor(reflect.TypeOf(v))
}

// TypeFor returns the semantic type of a Go type. Pointers and the nullable
// wrappers of database/sql (including sql.Null[T]) are unwrapped to their
// underlying type. Types that are not recognized map to TypeOther.
func TypeFor(t reflect.Type) Type {
	if t == nil {
		return TypeOther
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if nt, ok := nullTypes[t]; ok {
		return nt
	}
	switch t {
	case timeType:
		return TypeTime
	case dateType:
		return TypeDate
	case uuidType:
		return TypeUUID
	case decimalType, bigRatType, bigFltType:
		return TypeDecimal
	}
	if vt, ok := genericNull(t); ok {
		return TypeFor(vt)
	}
	switch t.Kind() {
	case reflect.Bool:
		return TypeBool
	case reflect.String:
		return TypeString
	case reflect.Int:
		return TypeInt
	case reflect.Int8:
		return TypeInt8
	case reflect.Int16:
		return TypeInt16
	case reflect.Int32:
		return TypeInt32
	case reflect.Int64:
		return TypeInt64
	case reflect.Uint:
		return TypeUint
	case reflect.Uint8:
		return TypeUint8
	case reflect.Uint16:
		return TypeUint16
	case reflect.Uint32:
		return TypeUint32
	case reflect.Uint64:
		return TypeUint64
	case reflect.Float32:
		return TypeFloat32
	case reflect.Float64:
		return TypeFloat64
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return TypeBytes
		}
	}
	return TypeOther
}

// genericNull detects sql.Null[T] and returns T.
func genericNull(t reflect.Type) (reflect.Type, bool) {
	if t.Kind() != reflect.Struct || t.PkgPath() != "database/sql" || !strings.HasPrefix(t.Name(), "Null[") {
		return nil, false
	}
	f, ok := t.FieldByName("V")
	if !ok {
		return nil, false
	}
	return f.Type, true
}
