// Package postfix reorders an infix token stream into postfix order with the
// shunting-yard algorithm.
package postfix

import (
	"github.com/edwingeng/deque"

	"github.com/agenthands/nexpr/pkg/compiler/diag"
	"github.com/agenthands/nexpr/pkg/compiler/lexer"
	"github.com/agenthands/nexpr/pkg/compiler/operator"
)

// parenPrecedence keeps '(' below every operator so nothing pops past it.
const parenPrecedence = -1

// Convert writes tokens to out in postfix order and returns the count.
// len(out) is the capacity. Parentheses never reach the output.
//
// Numbers and constant identifiers are operands and emit immediately. An
// identifier directly followed by '(' is a function call: it waits on the
// operator stack and emits as soon as its closing parenthesis is reached.
// A binary operator first emits the stacked operators that bind at least as
// tightly, which gives left associativity; prefix operators emit nothing on
// arrival.
//
// A value that starts right after another value, as in "1 2 +", raises
// MissingBinaryOperand. Parenthesis errors found later in the stream take
// precedence over it.
func Convert(tokens []lexer.Token, out []lexer.Token) (int, error) {
	c := converter{out: out, stack: deque.NewDeque()}
	if err := c.run(tokens); err != nil {
		return 0, err
	}
	if c.juxtaposed != nil {
		return 0, c.juxtaposed
	}
	return c.n, nil
}

type converter struct {
	out   []lexer.Token
	n     int
	stack deque.Deque

	valuePrecedes bool        // last token was an operand or ')'
	juxtaposed    *diag.Error // first value with no operator before it
}

// startValue is called for every token that begins an operand.
func (c *converter) startValue(tok lexer.Token) {
	if c.valuePrecedes && c.juxtaposed == nil {
		c.juxtaposed = diag.New(diag.MissingBinaryOperand, int(tok.Offset), int(tok.Length))
	}
}

func (c *converter) run(tokens []lexer.Token) error {
	for i, tok := range tokens {
		switch tok.Kind {
		case lexer.KindNumber, lexer.KindIdentifier, lexer.KindLParen:
			c.startValue(tok)
		}
		c.valuePrecedes = tok.Kind == lexer.KindNumber || tok.Kind == lexer.KindRParen ||
			(tok.Kind == lexer.KindIdentifier && !(i+1 < len(tokens) && tokens[i+1].Kind == lexer.KindLParen))

		switch tok.Kind {
		case lexer.KindNumber:
			if err := c.emit(tok); err != nil {
				return err
			}

		case lexer.KindIdentifier:
			if i+1 < len(tokens) && tokens[i+1].Kind == lexer.KindLParen {
				c.stack.PushBack(tok)
				continue
			}
			if err := c.emit(tok); err != nil {
				return err
			}

		case lexer.KindLParen:
			c.stack.PushBack(tok)

		case lexer.KindRParen:
			if err := c.closeParen(tok); err != nil {
				return err
			}

		case lexer.KindOperator:
			d := tok.Op.Lookup()
			if !d.Prefix {
				// >= rather than >: equal precedence pops, so "10 - 2 - 3" is (10 - 2) - 3
				for !c.stack.Empty() && precedence(c.top()) >= d.Precedence {
					if err := c.emit(c.pop()); err != nil {
						return err
					}
				}
			}
			c.stack.PushBack(tok)
		}
	}

	for !c.stack.Empty() {
		top := c.pop()
		if top.Kind == lexer.KindLParen {
			return diag.New(diag.MissingRightParenthesis, int(top.Offset), int(top.Length))
		}
		if err := c.emit(top); err != nil {
			return err
		}
	}
	return nil
}

func (c *converter) closeParen(tok lexer.Token) error {
	for {
		if c.stack.Empty() {
			return diag.New(diag.MissingLeftParenthesis, int(tok.Offset), int(tok.Length))
		}
		top := c.pop()
		if top.Kind == lexer.KindLParen {
			break
		}
		if err := c.emit(top); err != nil {
			return err
		}
	}
	if !c.stack.Empty() && c.top().Kind == lexer.KindIdentifier {
		return c.emit(c.pop())
	}
	return nil
}

func (c *converter) emit(tok lexer.Token) error {
	if c.n >= len(c.out) {
		return diag.New(diag.BufferCapacityExceeded, int(tok.Offset), int(tok.Length))
	}
	c.out[c.n] = tok
	c.n++
	return nil
}

func (c *converter) top() lexer.Token {
	return c.stack.Back().(lexer.Token)
}

func (c *converter) pop() lexer.Token {
	return c.stack.PopBack().(lexer.Token)
}

func precedence(tok lexer.Token) int {
	switch tok.Kind {
	case lexer.KindOperator:
		return tok.Op.Precedence()
	case lexer.KindIdentifier:
		return operator.FunctionPrecedence
	}
	return parenPrecedence
}
