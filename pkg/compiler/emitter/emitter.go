package emitter

import (
	"github.com/agenthands/nexpr/pkg/compiler/diag"
	"github.com/agenthands/nexpr/pkg/compiler/lexer"
	"github.com/agenthands/nexpr/pkg/core/builtin"
	"github.com/agenthands/nexpr/pkg/core/value"
	"github.com/agenthands/nexpr/pkg/vm"
)

// Bytecode is the output of a successful compile.
type Bytecode struct {
	Code     []byte
	Result   value.Type
	MaxDepth int // deepest stack the code reaches
}

// typed is one type stack entry: the static type of a value the machine will
// hold, with the source span that produces it.
type typed struct {
	typ        value.Type
	start, end uint32
}

// Emitter type-checks a postfix token stream and generates bytecode.
//
// StackDepth, when positive, is the capacity of the machine the code will run
// on; a program that would need more raises BufferCapacityExceeded.
type Emitter struct {
	StackDepth int

	src      []byte
	code     []byte
	limit    int
	types    []typed
	maxDepth int
}

// NewEmitter creates an emitter that resolves identifiers against src.
func NewEmitter(src []byte) *Emitter {
	return &Emitter{src: src}
}

// Compile emits bytecode for postfix into out and returns the byte count.
// len(out) is the capacity.
func Compile(src []byte, postfix []lexer.Token, out []byte) (int, error) {
	bc, err := NewEmitter(src).Emit(postfix, out)
	if err != nil {
		return 0, err
	}
	return len(bc.Code), nil
}

// Emit walks postfix once, writing into out. The returned Bytecode aliases out.
func (e *Emitter) Emit(postfix []lexer.Token, out []byte) (*Bytecode, error) {
	e.code = out[:0]
	e.limit = len(out)
	e.types = e.types[:0]
	e.maxDepth = 0

	for _, tok := range postfix {
		var err error
		switch tok.Kind {
		case lexer.KindNumber:
			err = e.emitFloat(tok, tok.Number)
		case lexer.KindOperator:
			err = e.emitOperator(tok)
		case lexer.KindIdentifier:
			err = e.emitIdentifier(tok)
		}
		if err != nil {
			return nil, err
		}
	}

	switch len(e.types) {
	case 0:
		return nil, diag.New(diag.NotEnoughParameters, len(e.src), 0)
	case 1:
	default:
		// two values and nothing to join them, as in "1 2"
		extra := e.types[1]
		return nil, diag.New(diag.MissingBinaryOperand, int(extra.start), int(extra.end-extra.start))
	}

	result := e.types[0]
	op := vm.OP_RET_FLOAT
	if result.typ == value.TypeBool {
		op = vm.OP_RET_BOOL
	}
	if err := e.reserve(1, result.end, 0); err != nil {
		return nil, err
	}
	e.code = append(e.code, op)

	return &Bytecode{Code: e.code, Result: result.typ, MaxDepth: e.maxDepth}, nil
}

func (e *Emitter) emitOperator(tok lexer.Token) error {
	d := tok.Op.Lookup()
	arity := d.Arity()
	if len(e.types) < arity {
		return diag.New(diag.NotEnoughParameters, int(tok.Offset), int(tok.Length))
	}

	operands := e.types[len(e.types)-arity:]
	for i := arity - 1; i >= 0; i-- {
		if operands[i].typ != d.Operands[i] {
			return diag.New(diag.IncorrectTypeArguments, int(operands[i].start), int(operands[i].end-operands[i].start))
		}
	}

	if err := e.reserve(1, tok.Offset, tok.Length); err != nil {
		return err
	}
	e.code = append(e.code, d.Opcode)

	span := typed{typ: d.Result, start: operands[0].start, end: operands[arity-1].end}
	if d.Prefix {
		span.start = tok.Offset
	}
	e.types = append(e.types[:len(e.types)-arity], span)
	return nil
}

func (e *Emitter) emitIdentifier(tok lexer.Token) error {
	name := tok.Text(e.src)

	if idx, ok := builtin.LookupFunction(name); ok {
		if len(e.types) == 0 {
			return diag.New(diag.NotEnoughParameters, int(tok.Offset), int(tok.Length))
		}
		arg := &e.types[len(e.types)-1]
		if arg.typ != value.TypeFloat {
			return diag.New(diag.IncorrectTypeArguments, int(arg.start), int(arg.end-arg.start))
		}
		if err := e.reserve(1+vm.IndexWidth, tok.Offset, tok.Length); err != nil {
			return err
		}
		e.code = vm.AppendCall(e.code, uint16(idx))
		if tok.Offset < arg.start {
			arg.start = tok.Offset
		}
		return nil
	}

	if f, ok := builtin.LookupConstant(name); ok {
		return e.emitFloat(tok, f)
	}

	return diag.New(diag.UnknownIdentifier, int(tok.Offset), int(tok.Length))
}

func (e *Emitter) emitFloat(tok lexer.Token, f float32) error {
	if err := e.reserve(1+vm.FloatWidth, tok.Offset, tok.Length); err != nil {
		return err
	}
	if e.StackDepth > 0 && len(e.types) >= e.StackDepth {
		return diag.New(diag.BufferCapacityExceeded, int(tok.Offset), int(tok.Length))
	}
	e.code = vm.AppendFloat(e.code, f)
	e.types = append(e.types, typed{typ: value.TypeFloat, start: tok.Offset, end: tok.End()})
	if len(e.types) > e.maxDepth {
		e.maxDepth = len(e.types)
	}
	return nil
}

// reserve fails unless n more bytes fit in the output buffer.
func (e *Emitter) reserve(n int, offset, length uint32) error {
	if len(e.code)+n > e.limit {
		return diag.New(diag.BufferCapacityExceeded, int(offset), int(length))
	}
	return nil
}
