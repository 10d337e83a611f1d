// Package diag defines the compile errors raised by the lexer, the postfix
// reorderer and the emitter.
package diag

import (
	"bytes"
	"fmt"
	"strings"
)

// Code identifies a class of compile error. Codes are comparable errors so
// callers can match them with errors.Is.
type Code uint8

const (
	UnknownIdentifier Code = iota + 1
	MissingLeftParenthesis
	MissingRightParenthesis
	UnexpectedChar
	BufferCapacityExceeded
	MissingBinaryOperand
	NotEnoughParameters
	IncorrectTypeArguments
)

var codeNames = [...]string{
	UnknownIdentifier:       "unknown identifier",
	MissingLeftParenthesis:  "missing left parenthesis",
	MissingRightParenthesis: "missing right parenthesis",
	UnexpectedChar:          "unexpected character",
	BufferCapacityExceeded:  "buffer capacity exceeded",
	MissingBinaryOperand:    "missing binary operand",
	NotEnoughParameters:     "not enough parameters",
	IncorrectTypeArguments:  "incorrect type arguments",
}

func (c Code) Error() string {
	if int(c) < len(codeNames) && codeNames[c] != "" {
		return codeNames[c]
	}
	return fmt.Sprintf("diag code %d", uint8(c))
}

// Error is a compile error positioned at a byte span of the source.
type Error struct {
	Code   Code
	Offset int
	Length int
}

// New creates an error at offset covering length bytes.
func New(code Code, offset, length int) *Error {
	return &Error{Code: code, Offset: offset, Length: length}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at offset %d", e.Code.Error(), e.Offset)
}

func (e *Error) Unwrap() error {
	return e.Code
}

// Caret renders the source line holding the error with a marker under the span.
func (e *Error) Caret(src []byte) string {
	off := e.Offset
	if off > len(src) {
		off = len(src)
	}
	start := bytes.LastIndexByte(src[:off], '\n') + 1
	end := bytes.IndexByte(src[off:], '\n')
	if end < 0 {
		end = len(src)
	} else {
		end += off
	}

	n := e.Length
	if n < 1 {
		n = 1
	}
	if off+n > end {
		n = end - off
		if n < 1 {
			n = 1
		}
	}

	var b strings.Builder
	b.Write(src[start:end])
	b.WriteByte('\n')
	b.WriteString(strings.Repeat(" ", off-start))
	b.WriteByte('^')
	if n > 1 {
		b.WriteString(strings.Repeat("~", n-1))
	}
	return b.String()
}
