package lexer

import (
	"strconv"
	"unsafe"

	"github.com/agenthands/nexpr/pkg/compiler/diag"
	"github.com/agenthands/nexpr/pkg/compiler/operator"
)

// Scanner performs lexical analysis on expression source.
type Scanner struct {
	source []byte
	cursor int

	// valuePrecedes is true when a binary operator may appear next:
	// after a number, an identifier or ')'.
	valuePrecedes bool
}

// NewScanner creates a new scanner for the given source.
func NewScanner(source []byte) *Scanner {
	return &Scanner{source: source}
}

// Reset re-initializes the scanner with new source for pool reuse.
func (s *Scanner) Reset(source []byte) {
	s.source = source
	s.cursor = 0
	s.valuePrecedes = false
}

// Next returns the next token from the source. At the end of input it
// returns a KindEOF token positioned at len(source).
func (s *Scanner) Next() (Token, error) {
	s.skipWhitespace()

	if s.cursor >= len(s.source) {
		return Token{Kind: KindEOF, Offset: uint32(s.cursor)}, nil
	}

	start := s.cursor
	ch := s.source[s.cursor]

	// 1. Operator table, longest match
	if kind, n, ok := s.matchOperator(); ok {
		if !s.valuePrecedes {
			return Token{}, diag.New(diag.MissingBinaryOperand, start, n)
		}
		s.cursor += n
		s.valuePrecedes = false
		return Token{Kind: KindOperator, Op: kind, Offset: uint32(start), Length: uint32(n)}, nil
	}

	// 2. Identifiers
	if isIdentChar(ch) {
		return s.scanIdentifier(), nil
	}

	// 3. Parentheses
	switch ch {
	case '(':
		s.cursor++
		s.valuePrecedes = false
		return Token{Kind: KindLParen, Offset: uint32(start), Length: 1}, nil
	case ')':
		s.cursor++
		s.valuePrecedes = true
		return Token{Kind: KindRParen, Offset: uint32(start), Length: 1}, nil
	}

	// 4. Numbers
	if isDigit(ch) || (ch == '.' && isDigit(s.peek())) {
		return s.scanNumber()
	}

	// 5. Minus, by context
	if ch == '-' {
		s.cursor++
		op := operator.UnaryMinus
		if s.valuePrecedes {
			op = operator.Subtract
		}
		s.valuePrecedes = false
		return Token{Kind: KindOperator, Op: op, Offset: uint32(start), Length: 1}, nil
	}

	return Token{}, diag.New(diag.UnexpectedChar, start, 1)
}

// Tokenize scans all of src into out. len(out) is the capacity; running out
// of room is an error and no partial count is returned.
func Tokenize(src []byte, out []Token) (int, error) {
	s := NewScanner(src)
	n := 0
	for {
		tok, err := s.Next()
		if err != nil {
			return 0, err
		}
		if tok.Kind == KindEOF {
			return n, nil
		}
		if n >= len(out) {
			return 0, diag.New(diag.BufferCapacityExceeded, int(tok.Offset), int(tok.Length))
		}
		out[n] = tok
		n++
	}
}

func (s *Scanner) matchOperator() (operator.Kind, int, bool) {
	rest := s.source[s.cursor:]
	best, bestLen := operator.Kind(0), 0
	for _, sym := range operator.Symbols {
		n := len(sym.Text)
		if n <= bestLen || n > len(rest) || string(rest[:n]) != sym.Text {
			continue
		}
		// keyword operators must not run into an identifier: "orbit" is a name
		if isIdentChar(sym.Text[0]) && n < len(rest) && isIdentChar(rest[n]) {
			continue
		}
		best, bestLen = sym.Kind, n
	}
	return best, bestLen, bestLen > 0
}

func (s *Scanner) skipWhitespace() {
	for s.cursor < len(s.source) {
		ch := s.source[s.cursor]
		if ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' {
			s.cursor++
		} else {
			break
		}
	}
}

func (s *Scanner) scanIdentifier() Token {
	start := s.cursor
	for s.cursor < len(s.source) && isIdentChar(s.source[s.cursor]) {
		s.cursor++
	}
	s.valuePrecedes = true
	return Token{Kind: KindIdentifier, Offset: uint32(start), Length: uint32(s.cursor - start)}
}

func (s *Scanner) scanNumber() (Token, error) {
	start := s.cursor
	s.skipDigits()
	if s.cursor < len(s.source) && s.source[s.cursor] == '.' {
		s.cursor++
		s.skipDigits()
	}
	// exponent only when digits follow, so "2e" is a number then an identifier
	if s.cursor < len(s.source) && (s.source[s.cursor] == 'e' || s.source[s.cursor] == 'E') {
		i := s.cursor + 1
		if i < len(s.source) && (s.source[i] == '+' || s.source[i] == '-') {
			i++
		}
		if i < len(s.source) && isDigit(s.source[i]) {
			s.cursor = i
			s.skipDigits()
		}
	}

	lit := s.source[start:s.cursor]
	f, err := strconv.ParseFloat(unsafe.String(&lit[0], len(lit)), 32)
	if err != nil && !isRangeErr(err) {
		return Token{}, diag.New(diag.UnexpectedChar, start, len(lit))
	}
	s.valuePrecedes = true
	return Token{Kind: KindNumber, Number: float32(f), Offset: uint32(start), Length: uint32(len(lit))}, nil
}

func (s *Scanner) skipDigits() {
	for s.cursor < len(s.source) && isDigit(s.source[s.cursor]) {
		s.cursor++
	}
}

func (s *Scanner) peek() byte {
	if s.cursor+1 >= len(s.source) {
		return 0
	}
	return s.source[s.cursor+1]
}

// overflow to ±Inf follows float-literal semantics
func isRangeErr(err error) bool {
	ne, ok := err.(*strconv.NumError)
	return ok && ne.Err == strconv.ErrRange
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentChar(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}
