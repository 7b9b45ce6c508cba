package tool

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// Calculator evaluates arithmetic expressions: + - * / and parentheses over
// decimal numbers. It exists so reasoning models can delegate exact
// arithmetic instead of hallucinating it.
type Calculator struct{}

func (Calculator) Name() string { return "calculator" }

func (Calculator) Schema() string {
	return "arithmetic expression, e.g. 12*(3+4); operators + - * / and parentheses"
}

func (Calculator) Execute(_ context.Context, args string) (string, error) {
	v, err := evalExpr(args)
	if err != nil {
		return "", ErrExecution("calculator", err)
	}
	return strconv.FormatFloat(v, 'f', -1, 64), nil
}

// evalExpr is a small recursive-descent evaluator.
//
//	expr   = term { (+|-) term }
//	term   = factor { (*|/) factor }
//	factor = number | ( expr ) | - factor
type exprParser struct {
	s   string
	pos int
}

func evalExpr(s string) (float64, error) {
	p := &exprParser{s: s}
	v, err := p.expr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return 0, fmt.Errorf("unexpected %q at position %d", p.s[p.pos], p.pos)
	}
	return v, nil
}

func (p *exprParser) expr() (float64, error) {
	v, err := p.term()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		switch {
		case p.peek('+'):
			p.pos++
			r, err := p.term()
			if err != nil {
				return 0, err
			}
			v += r
		case p.peek('-'):
			p.pos++
			r, err := p.term()
			if err != nil {
				return 0, err
			}
			v -= r
		default:
			return v, nil
		}
	}
}

func (p *exprParser) term() (float64, error) {
	v, err := p.factor()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		switch {
		case p.peek('*'):
			p.pos++
			r, err := p.factor()
			if err != nil {
				return 0, err
			}
			v *= r
		case p.peek('/'):
			p.pos++
			r, err := p.factor()
			if err != nil {
				return 0, err
			}
			if r == 0 {
				return 0, errors.New("division by zero")
			}
			v /= r
		default:
			return v, nil
		}
	}
}

func (p *exprParser) factor() (float64, error) {
	p.skipSpace()
	if p.peek('-') {
		p.pos++
		v, err := p.factor()
		return -v, err
	}
	if p.peek('(') {
		p.pos++
		v, err := p.expr()
		if err != nil {
			return 0, err
		}
		p.skipSpace()
		if !p.peek(')') {
			return 0, errors.New("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	}
	start := p.pos
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		if (c >= '0' && c <= '9') || c == '.' {
			p.pos++
			continue
		}
		break
	}
	if start == p.pos {
		return 0, fmt.Errorf("expected number at position %d", start)
	}
	v, err := strconv.ParseFloat(p.s[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", p.s[start:p.pos])
	}
	return v, nil
}

func (p *exprParser) peek(c byte) bool {
	return p.pos < len(p.s) && p.s[p.pos] == c
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.s) && (p.s[p.pos] == ' ' || p.s[p.pos] == '\t') {
		p.pos++
	}
}
