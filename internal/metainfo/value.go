package metainfo

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gridfield/serialbox/pkg/errors"
)

// Kind tags the scalar type carried by a Value. The ordering of the
// constants mirrors the cross-tag comparison ladder required by the
// offset table's total order: bool < int < float < double < string.
type Kind int

const (
	KindBool Kind = iota
	KindInt
	KindFloat
	KindDouble
	KindString
)

// Value is a tagged scalar: exactly one of the typed fields is
// meaningful, selected by Kind. This replaces the reference
// implementation's boost::any with a closed sum type.
type Value struct {
	kind   Kind
	bval   bool
	ival   int32
	fval   float32
	dval   float64
	sval   string
}

func Bool(v bool) Value    { return Value{kind: KindBool, bval: v} }
func Int(v int32) Value    { return Value{kind: KindInt, ival: v} }
func Float(v float32) Value { return Value{kind: KindFloat, fval: v} }
func Double(v float64) Value { return Value{kind: KindDouble, dval: v} }
func String(v string) Value { return Value{kind: KindString, sval: v} }

// Kind reports which scalar tag this value carries.
func (v Value) Kind() Kind { return v.kind }

// TypeCode returns the integer code used by Set.Types(): -1 bool,
// -2 int, -3 float, -4 double, and for strings the length of the value.
func (v Value) TypeCode() int {
	switch v.kind {
	case KindBool:
		return -1
	case KindInt:
		return -2
	case KindFloat:
		return -3
	case KindDouble:
		return -4
	default:
		return len(v.sval)
	}
}

// Equal reports structural equality, comparing floats by bit-equivalent
// value rather than numeric proximity.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.bval == other.bval
	case KindInt:
		return v.ival == other.ival
	case KindFloat:
		return math.Float32bits(v.fval) == math.Float32bits(other.fval)
	case KindDouble:
		return math.Float64bits(v.dval) == math.Float64bits(other.dval)
	default:
		return v.sval == other.sval
	}
}

// Compare orders two values for the total order required by the
// savepoint key ladder: different kinds order by kind, same kinds order
// by value (strings lexicographically).
func (v Value) Compare(other Value) int {
	if v.kind != other.kind {
		if v.kind < other.kind {
			return -1
		}
		return 1
	}

	switch v.kind {
	case KindBool:
		return compareBool(v.bval, other.bval)
	case KindInt:
		return compareOrdered(v.ival, other.ival)
	case KindFloat:
		return compareOrdered(v.fval, other.fval)
	case KindDouble:
		return compareOrdered(v.dval, other.dval)
	default:
		return strings.Compare(v.sval, other.sval)
	}
}

func compareBool(a, b bool) int {
	if a == b {
		return 0
	}
	if !a && b {
		return -1
	}
	return 1
}

func compareOrdered[T int32 | float32 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// AsBool coerces the value to bool: for numeric kinds, non-zero is true.
func (v Value) AsBool() (bool, error) {
	switch v.kind {
	case KindBool:
		return v.bval, nil
	case KindInt:
		return v.ival != 0, nil
	case KindFloat:
		return v.fval != 0, nil
	case KindDouble:
		return v.dval != 0, nil
	case KindString:
		b, err := strconv.ParseBool(v.sval)
		if err != nil {
			return false, errors.New(errors.ParseError, "metainfo value is not parseable as bool").WithDetail("value", v.sval)
		}
		return b, nil
	}
	return false, errors.New(errors.TypeMismatch, "unsupported metainfo kind")
}

// AsInt coerces the value to int32. Floating point kinds succeed only
// when the stored value has no fractional part.
func (v Value) AsInt() (int32, error) {
	switch v.kind {
	case KindBool:
		if v.bval {
			return 1, nil
		}
		return 0, nil
	case KindInt:
		return v.ival, nil
	case KindFloat:
		if v.fval != float32(int32(v.fval)) {
			return 0, errors.New(errors.NotExact, "float metainfo value has a fractional part").WithDetail("value", v.fval)
		}
		return int32(v.fval), nil
	case KindDouble:
		if v.dval != float64(int32(v.dval)) {
			return 0, errors.New(errors.NotExact, "double metainfo value has a fractional part").WithDetail("value", v.dval)
		}
		return int32(v.dval), nil
	case KindString:
		n, err := strconv.ParseInt(strings.TrimSpace(v.sval), 10, 32)
		if err != nil {
			return 0, errors.New(errors.ParseError, "metainfo value is not parseable as int").WithDetail("value", v.sval)
		}
		return int32(n), nil
	}
	return 0, errors.New(errors.TypeMismatch, "unsupported metainfo kind")
}

// AsFloat coerces the value to float32.
func (v Value) AsFloat() (float32, error) {
	switch v.kind {
	case KindBool:
		if v.bval {
			return 1, nil
		}
		return 0, nil
	case KindInt:
		return float32(v.ival), nil
	case KindFloat:
		return v.fval, nil
	case KindDouble:
		return float32(v.dval), nil
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.sval), 32)
		if err != nil {
			return 0, errors.New(errors.ParseError, "metainfo value is not parseable as float").WithDetail("value", v.sval)
		}
		return float32(f), nil
	}
	return 0, errors.New(errors.TypeMismatch, "unsupported metainfo kind")
}

// AsDouble coerces the value to float64.
func (v Value) AsDouble() (float64, error) {
	switch v.kind {
	case KindBool:
		if v.bval {
			return 1, nil
		}
		return 0, nil
	case KindInt:
		return float64(v.ival), nil
	case KindFloat:
		return float64(v.fval), nil
	case KindDouble:
		return v.dval, nil
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.sval), 64)
		if err != nil {
			return 0, errors.New(errors.ParseError, "metainfo value is not parseable as double").WithDetail("value", v.sval)
		}
		return f, nil
	}
	return 0, errors.New(errors.TypeMismatch, "unsupported metainfo kind")
}

// AsString renders the canonical textual form of the value: "true"/
// "false" for bool, default decimal for numbers, verbatim for strings.
func (v Value) AsString() string {
	switch v.kind {
	case KindBool:
		if v.bval {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(int64(v.ival), 10)
	case KindFloat:
		return strconv.FormatFloat(float64(v.fval), 'g', -1, 32)
	case KindDouble:
		return strconv.FormatFloat(v.dval, 'g', -1, 64)
	default:
		return v.sval
	}
}

func (v Value) String() string {
	if v.kind == KindString {
		return fmt.Sprintf("%q", v.sval)
	}
	return v.AsString()
}
