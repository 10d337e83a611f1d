package value

import (
	"math"
	"strconv"
	"strings"
)

// Type represents the tag in the Value tagged union.
type Type uint8

const (
	TypeVoid Type = iota
	TypeFloat
	TypeBool
)

func (t Type) String() string {
	switch t {
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	default:
		return "none"
	}
}

// Value is a tagged union of the scalar kinds an expression can produce.
// The zero Value is None.
type Value struct {
	Type Type
	Data uint32 // float32 bits or 0/1, interpreted based on Type
}

// Float wraps a float32.
func Float(f float32) Value {
	return Value{Type: TypeFloat, Data: math.Float32bits(f)}
}

// Bool wraps a bool.
func Bool(b bool) Value {
	v := Value{Type: TypeBool}
	if b {
		v.Data = 1
	}
	return v
}

// None is the result of a pipeline that stopped before producing a value.
func None() Value {
	return Value{}
}

// IsNone reports whether v carries no payload.
func (v Value) IsNone() bool {
	return v.Type == TypeVoid
}

// Float returns the value as float32. Only meaningful for TypeFloat.
func (v Value) Float() float32 {
	return math.Float32frombits(v.Data)
}

// Bool returns the value as bool. Only meaningful for TypeBool.
func (v Value) Bool() bool {
	return v.Data != 0
}

// Format returns a string representation of the value.
func (v Value) Format() string {
	switch v.Type {
	case TypeFloat:
		s := strconv.FormatFloat(float64(v.Float()), 'g', -1, 32)
		if f := v.Float(); !math.IsInf(float64(f), 0) && !math.IsNaN(float64(f)) && !strings.ContainsAny(s, ".e") {
			s += ".0"
		}
		return s
	case TypeBool:
		if v.Bool() {
			return "true"
		}
		return "false"
	default:
		return "none"
	}
}

func (v Value) String() string {
	return v.Format()
}
