// Package builtin holds the compiled-in function and constant registries
// shared by the emitter (name resolution) and the vm (call dispatch).
package builtin

import "math"

// Function is a unary float function callable from expression source.
type Function struct {
	Name string
	Fn   func(float32) float32
}

// Constant is a named float literal.
type Constant struct {
	Name  string
	Value float32
}

// Functions is indexed by the CALL immediate. Append only: reordering
// invalidates previously emitted bytecode.
var Functions = []Function{
	{"sin", func(x float32) float32 { return float32(math.Sin(float64(x))) }},
	{"cos", func(x float32) float32 { return float32(math.Cos(float64(x))) }},
}

var Constants = []Constant{
	{"PI", math.Pi},
	{"E", math.E},
	{"TAU", 2 * math.Pi},
}

// LookupFunction returns the index of the named function.
func LookupFunction(name []byte) (int, bool) {
	for i, f := range Functions {
		if f.Name == string(name) {
			return i, true
		}
	}
	return -1, false
}

// LookupConstant returns the value of the named constant.
func LookupConstant(name []byte) (float32, bool) {
	for _, c := range Constants {
		if c.Name == string(name) {
			return c.Value, true
		}
	}
	return 0, false
}

// Call applies function idx to x. idx must come from LookupFunction.
func Call(idx int, x float32) float32 {
	return Functions[idx].Fn(x)
}
