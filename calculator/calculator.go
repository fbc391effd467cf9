// Arithmetic expressions of aperture macros.
// Operators: + - x X / with the usual precedence, unary + and -, parentheses,
// decimal constants and variables $n.
package calculator

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	. "github.com/MakerPnP/gerber-viewer/gerberbasetypes"
)

var ErrDivisionByZero = errors.New("calculator: division by zero")

// Env binds macro variables $n to values.
type Env map[int]float64

// Clone returns a copy which may be modified independently.
func (env Env) Clone() Env {
	retVal := make(Env, len(env))
	for k, v := range env {
		retVal[k] = v
	}
	return retVal
}

// Expr is a node of the expression tree
type Expr interface {
	Eval(env Env) (float64, error)
	String() string
}

type Constant float64

func (c Constant) Eval(Env) (float64, error) {
	return float64(c), nil
}

func (c Constant) String() string {
	return strconv.FormatFloat(float64(c), 'f', -1, 64)
}

// Variable is a reference to $n
type Variable int

func (v Variable) Eval(env Env) (float64, error) {
	val, ok := env[int(v)]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnboundVariable, v.String())
	}
	return val, nil
}

func (v Variable) String() string {
	return "$" + strconv.Itoa(int(v))
}

type OpCode int

const (
	Nop OpCode = iota
	Add OpCode = iota + 1
	Sub
	Mul
	Div
	Neg
	Plus
)

func (oc OpCode) String() string {
	switch oc {
	case Add, Plus:
		return "+"
	case Sub, Neg:
		return "-"
	case Mul:
		return "x"
	case Div:
		return "/"
	case Nop:
		return "<nop>"
	default:
	}
	return "bad OpCode"
}

// Operation is a unary (Neg, Plus) or binary operation.
// Right is nil for unary operations.
type Operation struct {
	Op    OpCode
	Left  Expr
	Right Expr
}

func (op *Operation) Eval(env Env) (float64, error) {
	if op.Left == nil {
		return 0, errors.New("calculator: first operand = nil")
	}
	a, err := op.Left.Eval(env)
	if err != nil {
		return 0, err
	}
	switch op.Op {
	case Neg:
		return -a, nil
	case Plus, Nop:
		return a, nil
	}
	if op.Right == nil {
		return 0, errors.New("calculator: second operand = nil")
	}
	b, err := op.Right.Eval(env)
	if err != nil {
		return 0, err
	}
	switch op.Op {
	case Add:
		return a + b, nil
	case Sub:
		return a - b, nil
	case Mul:
		return a * b, nil
	case Div:
		if b == 0 {
			return 0, ErrDivisionByZero
		}
		return a / b, nil
	}
	return 0, errors.New("calculator: bad opcode " + strconv.Itoa(int(op.Op)))
}

func (op *Operation) String() string {
	switch op.Op {
	case Neg, Plus:
		return op.Op.String() + op.Left.String()
	}
	return "(" + op.Left.String() + op.Op.String() + op.Right.String() + ")"
}

/*
################################# parser ###################################
*/

type parser struct {
	src string
	pos int
}

// Parse builds the expression tree of str.
func Parse(str string) (Expr, error) {
	p := &parser{src: strings.Join(strings.Fields(str), "")}
	if len(p.src) == 0 {
		return nil, errors.New("calculator: empty expression")
	}
	e, err := p.sum()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected symbol")
	}
	return e, nil
}

// CalcExpression evaluates a constant expression
func CalcExpression(str string) (float64, error) {
	e, err := Parse(str)
	if err != nil {
		return 0, err
	}
	return e.Eval(nil)
}

func (p *parser) errorf(msg string) error {
	return fmt.Errorf("calculator: %s at %d in \"%s\"", msg, p.pos, p.src)
}

func (p *parser) peek() byte {
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

// sum = term {("+"|"-") term}
func (p *parser) sum() (Expr, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for {
		var op OpCode
		switch p.peek() {
		case '+':
			op = Add
		case '-':
			op = Sub
		default:
			return left, nil
		}
		p.pos++
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = &Operation{Op: op, Left: left, Right: right}
	}
}

// term = factor {("x"|"X"|"/") factor}
func (p *parser) term() (Expr, error) {
	left, err := p.factor()
	if err != nil {
		return nil, err
	}
	for {
		var op OpCode
		switch p.peek() {
		case 'x', 'X':
			op = Mul
		case '/':
			op = Div
		default:
			return left, nil
		}
		p.pos++
		right, err := p.factor()
		if err != nil {
			return nil, err
		}
		left = &Operation{Op: op, Left: left, Right: right}
	}
}

// factor = ("+"|"-") factor | "(" sum ")" | "$" digits | number
func (p *parser) factor() (Expr, error) {
	switch c := p.peek(); {
	case c == '-' || c == '+':
		p.pos++
		f, err := p.factor()
		if err != nil {
			return nil, err
		}
		if c == '-' {
			return &Operation{Op: Neg, Left: f}, nil
		}
		return &Operation{Op: Plus, Left: f}, nil
	case c == '(':
		p.pos++
		e, err := p.sum()
		if err != nil {
			return nil, err
		}
		if p.peek() != ')' {
			return nil, p.errorf("missing )")
		}
		p.pos++
		return e, nil
	case c == '$':
		p.pos++
		start := p.pos
		for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
		}
		n, err := strconv.Atoi(p.src[start:p.pos])
		if err != nil || n < 1 {
			return nil, p.errorf("bad variable")
		}
		return Variable(n), nil
	case isDigit(c) || c == '.':
		start := p.pos
		for p.pos < len(p.src) && (isDigit(p.src[p.pos]) || p.src[p.pos] == '.') {
			p.pos++
		}
		v, err := strconv.ParseFloat(p.src[start:p.pos], 64)
		if err != nil {
			return nil, p.errorf("bad number")
		}
		return Constant(v), nil
	case c == 0:
		return nil, p.errorf("unexpected end")
	}
	return nil, p.errorf("unexpected symbol")
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
