package lexer

import "github.com/agenthands/nexpr/pkg/compiler/operator"

// Kind represents the type of token identified by the scanner.
type Kind uint8

const (
	KindEOF Kind = iota
	KindNumber
	KindOperator
	KindIdentifier
	KindLParen // (
	KindRParen // )
)

var kindNames = [...]string{
	KindEOF:        "EOF",
	KindNumber:     "Number",
	KindOperator:   "Operator",
	KindIdentifier: "Identifier",
	KindLParen:     "LeftParen",
	KindRParen:     "RightParen",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Token represents a lexical unit pointing back to the source.
// Number is set for KindNumber, Op for KindOperator.
type Token struct {
	Kind   Kind
	Op     operator.Kind
	Number float32
	Offset uint32
	Length uint32
}

// Text returns the source bytes the token was scanned from.
func (t Token) Text(src []byte) []byte {
	return src[t.Offset : t.Offset+t.Length]
}

// End is the offset one past the token.
func (t Token) End() uint32 {
	return t.Offset + t.Length
}
