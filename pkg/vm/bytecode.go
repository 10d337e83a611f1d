package vm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/agenthands/nexpr/pkg/core/builtin"
)

var ErrTruncated = errors.New("vm: truncated instruction")

// Instruction is one decoded opcode with its immediate, if any.
type Instruction struct {
	Offset int
	Op     uint8
	Float  float32 // OP_PUSH_FLOAT
	Index  uint16  // OP_CALL
}

var opNames = map[uint8]string{
	OP_PUSH_FLOAT: "PUSH_FLOAT",
	OP_ADD:        "ADD",
	OP_SUB:        "SUB",
	OP_MUL:        "MUL",
	OP_DIV:        "DIV",
	OP_NEG:        "NEG",
	OP_LT:         "LT",
	OP_GT:         "GT",
	OP_AND:        "AND",
	OP_OR:         "OR",
	OP_CALL:       "CALL",
	OP_RET_FLOAT:  "RET_FLOAT",
	OP_RET_BOOL:   "RET_BOOL",
}

// OpName returns the mnemonic of op.
func OpName(op uint8) string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("OP_%#02x", op)
}

// ImmediateWidth returns the number of immediate bytes following op.
func ImmediateWidth(op uint8) int {
	switch op {
	case OP_PUSH_FLOAT:
		return FloatWidth
	case OP_CALL:
		return IndexWidth
	}
	return 0
}

func (i Instruction) String() string {
	name := OpName(i.Op)
	switch i.Op {
	case OP_PUSH_FLOAT:
		return fmt.Sprintf("%04d %s %s", i.Offset, name, strconv.FormatFloat(float64(i.Float), 'g', -1, 32))
	case OP_CALL:
		fn := "?"
		if int(i.Index) < len(builtin.Functions) {
			fn = builtin.Functions[i.Index].Name
		}
		return fmt.Sprintf("%04d %s %d (%s)", i.Offset, name, i.Index, fn)
	}
	return fmt.Sprintf("%04d %s", i.Offset, name)
}

// AppendFloat encodes a PUSH_FLOAT instruction.
func AppendFloat(code []byte, f float32) []byte {
	code = append(code, OP_PUSH_FLOAT)
	return binary.LittleEndian.AppendUint32(code, math.Float32bits(f))
}

// AppendCall encodes a CALL instruction.
func AppendCall(code []byte, idx uint16) []byte {
	code = append(code, OP_CALL)
	return binary.LittleEndian.AppendUint16(code, idx)
}

// Disassemble decodes code up to and including the first return opcode.
func Disassemble(code []byte) ([]Instruction, error) {
	var out []Instruction
	for ip := 0; ip < len(code); {
		ins := Instruction{Offset: ip, Op: code[ip]}
		if _, ok := opNames[ins.Op]; !ok {
			return out, fmt.Errorf("vm: unknown opcode %#02x at %d", ins.Op, ip)
		}
		w := ImmediateWidth(ins.Op)
		if ip+1+w > len(code) {
			return out, fmt.Errorf("%w at %d", ErrTruncated, ip)
		}
		switch ins.Op {
		case OP_PUSH_FLOAT:
			ins.Float = math.Float32frombits(binary.LittleEndian.Uint32(code[ip+1:]))
		case OP_CALL:
			ins.Index = binary.LittleEndian.Uint16(code[ip+1:])
		}
		out = append(out, ins)
		ip += 1 + w
		if ins.Op == OP_RET_FLOAT || ins.Op == OP_RET_BOOL {
			break
		}
	}
	return out, nil
}
