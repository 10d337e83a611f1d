package vm

import (
	"encoding/binary"
	"errors"
	"sync"

	"github.com/agenthands/nexpr/pkg/core/builtin"
	"github.com/agenthands/nexpr/pkg/core/value"
)

var (
	ErrStackOverflow  = errors.New("vm: stack overflow")
	ErrStackUnderflow = errors.New("vm: stack underflow")
	ErrUnknownOpcode  = errors.New("vm: unknown opcode")
)

// StackDepth is the capacity of pooled machines.
const StackDepth = 64

// Machine evaluates bytecode produced by the emitter.
// The stack has a fixed capacity chosen at construction and never grows.
//
// Evaluate trusts its input: stack shape and operand tags were proven by the
// emitter's type check, so release builds perform no bounds or tag checks.
// Malformed bytecode panics.
type Machine struct {
	Stack []value.Value
	SP    int // Stack Pointer
	IP    int // Instruction Pointer
}

// NewMachine creates a machine whose stack holds depth values.
func NewMachine(depth int) *Machine {
	return &Machine{Stack: make([]value.Value, depth)}
}

var pool = sync.Pool{
	New: func() any { return NewMachine(StackDepth) },
}

// GetMachine returns a reset machine of StackDepth capacity from the pool.
func GetMachine() *Machine {
	m := pool.Get().(*Machine)
	m.Reset()
	return m
}

// PutMachine returns m to the pool.
func PutMachine(m *Machine) {
	if len(m.Stack) != StackDepth {
		return
	}
	m.Reset()
	pool.Put(m)
}

// Reset clears the machine state for reuse (sync.Pool compliant).
func (m *Machine) Reset() {
	m.SP = 0
	m.IP = 0
	for i := range m.Stack {
		m.Stack[i] = value.Value{}
	}
}

// Push adds a value to the stack. Panics on overflow.
func (m *Machine) Push(v value.Value) {
	if m.SP >= len(m.Stack) {
		panic(ErrStackOverflow)
	}
	m.Stack[m.SP] = v
	m.SP++
}

// Pop removes and returns the top value from the stack. Panics on underflow.
func (m *Machine) Pop() value.Value {
	if m.SP <= 0 {
		panic(ErrStackUnderflow)
	}
	m.SP--
	return m.Stack[m.SP]
}

// Evaluate runs code from offset zero until a return opcode and yields the
// returned value.
func (m *Machine) Evaluate(code []byte) value.Value {
	m.SP = 0
	m.IP = 0

	// Cache hot fields in local variables for register allocation
	ip := 0
	sp := 0
	stack := m.Stack

	for {
		op := code[ip]
		ip++

		switch op {
		case OP_PUSH_FLOAT:
			stack[sp] = value.Value{Type: value.TypeFloat, Data: binary.LittleEndian.Uint32(code[ip:])}
			sp++
			ip += FloatWidth

		case OP_ADD:
			b := stack[sp-1].Float()
			a := stack[sp-2].Float()
			assertTags(stack[sp-2:sp], value.TypeFloat)
			stack[sp-2] = value.Float(a + b)
			sp--

		case OP_SUB:
			b := stack[sp-1].Float()
			a := stack[sp-2].Float()
			assertTags(stack[sp-2:sp], value.TypeFloat)
			stack[sp-2] = value.Float(a - b)
			sp--

		case OP_MUL:
			b := stack[sp-1].Float()
			a := stack[sp-2].Float()
			assertTags(stack[sp-2:sp], value.TypeFloat)
			stack[sp-2] = value.Float(a * b)
			sp--

		case OP_DIV:
			// IEEE-754: x/0 yields ±Inf or NaN
			b := stack[sp-1].Float()
			a := stack[sp-2].Float()
			assertTags(stack[sp-2:sp], value.TypeFloat)
			stack[sp-2] = value.Float(a / b)
			sp--

		case OP_NEG:
			assertTags(stack[sp-1:sp], value.TypeFloat)
			stack[sp-1] = value.Float(-stack[sp-1].Float())

		case OP_LT:
			b := stack[sp-1].Float()
			a := stack[sp-2].Float()
			assertTags(stack[sp-2:sp], value.TypeFloat)
			stack[sp-2] = value.Bool(a < b)
			sp--

		case OP_GT:
			b := stack[sp-1].Float()
			a := stack[sp-2].Float()
			assertTags(stack[sp-2:sp], value.TypeFloat)
			stack[sp-2] = value.Bool(a > b)
			sp--

		case OP_AND:
			b := stack[sp-1].Bool()
			a := stack[sp-2].Bool()
			assertTags(stack[sp-2:sp], value.TypeBool)
			stack[sp-2] = value.Bool(a && b)
			sp--

		case OP_OR:
			b := stack[sp-1].Bool()
			a := stack[sp-2].Bool()
			assertTags(stack[sp-2:sp], value.TypeBool)
			stack[sp-2] = value.Bool(a || b)
			sp--

		case OP_CALL:
			idx := int(binary.LittleEndian.Uint16(code[ip:]))
			ip += IndexWidth
			assertTags(stack[sp-1:sp], value.TypeFloat)
			stack[sp-1] = value.Float(builtin.Call(idx, stack[sp-1].Float()))

		case OP_RET_FLOAT, OP_RET_BOOL:
			sp--
			ret := stack[sp]
			if op == OP_RET_FLOAT {
				assertTags(stack[sp:sp+1], value.TypeFloat)
			} else {
				assertTags(stack[sp:sp+1], value.TypeBool)
			}
			assertEmpty(sp)
			m.IP = ip
			m.SP = sp
			return ret

		default:
			m.IP = ip - 1
			m.SP = sp
			panic(ErrUnknownOpcode)
		}
	}
}
