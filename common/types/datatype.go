package types

import (
	"fmt"
	"reflect"
)

// DataType is the element type of a variable.
type DataType uint8

// NOTE changing the order is a breaking change for the pattern documents.
const (
	TypeUnknown DataType = iota
	TypeInt8
	TypeInt16
	TypeInt32
	TypeInt64
	TypeUint8
	TypeUint16
	TypeUint32
	TypeUint64
	TypeFloat32
	TypeFloat64
	TypeComplex64
	TypeComplex128
	TypeChar
)

var dataTypeNames = [...]string{
	"unknown",
	"int8", "int16", "int32", "int64",
	"uint8", "uint16", "uint32", "uint64",
	"float", "double",
	"float complex", "double complex",
	"char",
}

var dataTypeSizes = [...]uint64{0, 1, 2, 4, 8, 1, 2, 4, 8, 4, 8, 8, 16, 1}

func (t DataType) String() string {
	if int(t) < len(dataTypeNames) {
		return dataTypeNames[t]
	}
	return fmt.Sprintf("dtype(%d)", uint8(t))
}

// Size returns size of a single element in bytes. Zero for unknown types.
func (t DataType) Size() uint64 {
	if int(t) < len(dataTypeSizes) {
		return dataTypeSizes[t]
	}
	return 0
}

// Valid is true for every type except TypeUnknown and out of range values.
func (t DataType) Valid() bool {
	return t > TypeUnknown && int(t) < len(dataTypeNames)
}

// MarshalText implements encoding.TextMarshaler.
func (t DataType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("marshal %s", t)
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *DataType) UnmarshalText(text []byte) error {
	parsed, err := ParseDataType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseDataType parses name as written in pattern documents.
func ParseDataType(name string) (DataType, error) {
	for i := 1; i < len(dataTypeNames); i++ {
		if dataTypeNames[i] == name {
			return DataType(i), nil
		}
	}
	return TypeUnknown, fmt.Errorf("unknown dtype %q", name)
}

// Compatible reports whether data of type t can be read into a destination of type other.
// Char is interchangeable with both single byte integer types.
func (t DataType) Compatible(other DataType) bool {
	if t == other {
		return true
	}
	isByte := func(dt DataType) bool {
		return dt == TypeChar || dt == TypeInt8 || dt == TypeUint8
	}
	return isByte(t) && isByte(other)
}

// Element is a set of fixed size types that can be read from a stream.
type Element interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64 |
		~complex64 | ~complex128
}

// TypeOf returns DataType for the element type T.
func TypeOf[T Element]() DataType {
	switch reflect.TypeFor[T]().Kind() {
	case reflect.Int8:
		return TypeInt8
	case reflect.Int16:
		return TypeInt16
	case reflect.Int32:
		return TypeInt32
	case reflect.Int64:
		return TypeInt64
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
	case reflect.Complex64:
		return TypeComplex64
	case reflect.Complex128:
		return TypeComplex128
	}
	return TypeUnknown
}
