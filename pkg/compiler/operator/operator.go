// Package operator holds the static descriptor table shared by the postfix
// reorderer (precedence) and the emitter (arity, typing, opcode).
package operator

import (
	"github.com/agenthands/nexpr/pkg/core/value"
	"github.com/agenthands/nexpr/pkg/vm"
)

// Kind identifies an operator.
type Kind uint8

const (
	Add Kind = iota
	Subtract
	Multiply
	Divide
	UnaryMinus
	LessThan
	GreaterThan
	And
	Or
)

// FunctionPrecedence is the level at which builtin calls bind: tighter than
// add/subtract, looser than multiply.
const FunctionPrecedence = 3

// Descriptor records the static properties of an operator.
// Operands lists the required types bottom-up, so the last entry is checked
// against the top of the type stack.
type Descriptor struct {
	Symbol     string
	Precedence int
	Operands   []value.Type
	Result     value.Type
	Opcode     uint8
	Prefix     bool
}

// Arity is the number of operands the operator consumes.
func (d Descriptor) Arity() int {
	return len(d.Operands)
}

var (
	floats2 = []value.Type{value.TypeFloat, value.TypeFloat}
	bools2  = []value.Type{value.TypeBool, value.TypeBool}
)

// Descriptors is indexed by Kind.
var Descriptors = [...]Descriptor{
	Add:         {"+", 3, floats2, value.TypeFloat, vm.OP_ADD, false},
	Subtract:    {"-", 3, floats2, value.TypeFloat, vm.OP_SUB, false},
	Multiply:    {"*", 4, floats2, value.TypeFloat, vm.OP_MUL, false},
	Divide:      {"/", 4, floats2, value.TypeFloat, vm.OP_DIV, false},
	UnaryMinus:  {"-", 4, []value.Type{value.TypeFloat}, value.TypeFloat, vm.OP_NEG, true},
	LessThan:    {"<", 2, floats2, value.TypeBool, vm.OP_LT, false},
	GreaterThan: {">", 2, floats2, value.TypeBool, vm.OP_GT, false},
	And:         {"and", 1, bools2, value.TypeBool, vm.OP_AND, false},
	Or:          {"or", 0, bools2, value.TypeBool, vm.OP_OR, false},
}

// Lookup returns the descriptor of k.
func (k Kind) Lookup() Descriptor {
	return Descriptors[k]
}

// Precedence returns the binding level of k.
func (k Kind) Precedence() int {
	return Descriptors[k].Precedence
}

func (k Kind) String() string {
	if k == UnaryMinus {
		return "unary -"
	}
	if int(k) < len(Descriptors) {
		return Descriptors[k].Symbol
	}
	return "?"
}

// Symbols is the lexer's operator table, scanned for the longest match.
// Subtract is absent: '-' is disambiguated by the lexer.
var Symbols = []struct {
	Text string
	Kind Kind
}{
	{"and", And},
	{"or", Or},
	{"*", Multiply},
	{"+", Add},
	{"/", Divide},
	{"<", LessThan},
	{">", GreaterThan},
}
