package formcalc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Node is an element of a parsed formula.
type Node interface {
	Pos() int
	String() string
}

// Literal is a number or a single-quoted string.
type Literal struct {
	Value *Value
	At    int
}

// Ref is a double-quoted field reference.
type Ref struct {
	Label string
	At    int
}

// Unary is -x, +x or !x.
type Unary struct {
	Op string
	X  Node
	At int
}

// Binary is an infix operation.
type Binary struct {
	Op          string
	Left, Right Node
	At          int
}

// Call is a function call. Name is upper case.
type Call struct {
	Name string
	Args []Node
	At   int
}

// Cond is IF(Test, Then, Else). Only one of Then and Else is ever evaluated.
type Cond struct {
	Test, Then, Else Node
	At               int
}

func (n *Literal) Pos() int { return n.At }
func (n *Ref) Pos() int     { return n.At }
func (n *Unary) Pos() int   { return n.At }
func (n *Binary) Pos() int  { return n.At }
func (n *Call) Pos() int    { return n.At }
func (n *Cond) Pos() int    { return n.At }

func (n *Literal) String() string {
	if n.Value.DataType() == DTstring {
		return "'" + n.Value.AsString() + "'"
	}

	return n.Value.AsString()
}

func (n *Ref) String() string   { return `"` + n.Label + `"` }
func (n *Unary) String() string { return n.Op + n.X.String() }
func (n *Binary) String() string {
	return "(" + n.Left.String() + " " + n.Op + " " + n.Right.String() + ")"
}

func (n *Call) String() string {
	var args []string
	for _, a := range n.Args {
		args = append(args, a.String())
	}

	return n.Name + "(" + strings.Join(args, ", ") + ")"
}

func (n *Cond) String() string {
	return "IF(" + n.Test.String() + ", " + n.Then.String() + ", " + n.Else.String() + ")"
}

// Program is a parsed formula.
type Program struct {
	Formula string
	Root    Node
}

// References lists the distinct field labels the program refers to, in order.
func (p *Program) References() []string {
	var refs []string
	Walk(p.Root, func(n Node) {
		if r, ok := n.(*Ref); ok && !has(r.Label, refs) {
			refs = append(refs, r.Label)
		}
	})

	return refs
}

// Calls lists every function call in the program, outermost first.
func (p *Program) Calls() []*Call {
	var calls []*Call
	Walk(p.Root, func(n Node) {
		if c, ok := n.(*Call); ok {
			calls = append(calls, c)
		}
	})

	return calls
}

// Walk visits n and its descendants depth-first, parents before children.
func Walk(n Node, visit func(Node)) {
	if n == nil {
		return
	}

	visit(n)
	switch x := n.(type) {
	case *Unary:
		Walk(x.X, visit)
	case *Binary:
		Walk(x.Left, visit)
		Walk(x.Right, visit)
	case *Call:
		for _, a := range x.Args {
			Walk(a, visit)
		}
	case *Cond:
		Walk(x.Test, visit)
		Walk(x.Then, visit)
		Walk(x.Else, visit)
	}
}

// Parse builds the Program for formula.
//
// Grammar, loosest binding first:
//
//	||
//	&&
//	== = != > >= < <=
//	+ -
//	* / %
//	unary - + !
//	^ (right associative)
//	number, 'text', "Field", NAME(args), IF(test, then, else), ( expr )
func Parse(formula string) (*Program, error) {
	var (
		tokens []Token
		e      error
	)

	if tokens, e = Tokenize(formula); e != nil {
		return nil, withFormula(e, formula)
	}

	if len(tokens) == 1 {
		return nil, withFormula(newEvalError(EKparse, 0, "empty formula"), formula)
	}

	p := &parser{tokens: tokens, ops: newOperations()}

	var root Node
	if root, e = p.expr(0); e != nil {
		return nil, withFormula(e, formula)
	}

	if tok := p.peek(); tok.Type != TKeof {
		return nil, withFormula(p.unexpected(tok), formula)
	}

	return &Program{Formula: formula, Root: root}, nil
}

func withFormula(e error, formula string) error {
	var ee *EvalError
	if errors.As(e, &ee) {
		ee.Formula = formula
	}

	return e
}

type operations map[string]int

// newOperations gives each binary operator its binding strength; higher binds tighter.
func newOperations() operations {
	const (
		l1 = "||"
		l2 = "&&"
		l3 = "==,=,!=,>=,>,<=,<"
		l4 = "+,-"
		l5 = "*,/,%"
		l6 = "^"
	)

	order := make(operations)
	for ind, level := range []string{l1, l2, l3, l4, l5, l6} {
		for _, op := range strings.Split(level, ",") {
			order[op] = ind + 1
		}
	}

	return order
}

const powerLevel = 6

type parser struct {
	tokens []Token
	pos    int
	ops    operations
}

func (p *parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *parser) next() Token {
	tok := p.tokens[p.pos]
	if tok.Type != TKeof {
		p.pos++
	}

	return tok
}

func (p *parser) unexpected(tok Token) error {
	if tok.Type == TKeof {
		return newEvalError(EKparse, tok.Pos, "unexpected end of formula")
	}

	return newEvalError(EKparse, tok.Pos, "unexpected %s %q", tok.Type, tok.Text)
}

// expr parses operators binding at least as tightly as minLevel.
func (p *parser) expr(minLevel int) (Node, error) {
	var (
		left Node
		e    error
	)

	if left, e = p.unary(); e != nil {
		return nil, e
	}

	for {
		tok := p.peek()
		if tok.Type != TKop {
			return left, nil
		}

		level, ok := p.ops[tok.Text]
		if !ok || level < minLevel {
			return left, nil
		}

		p.next()

		// ^ is right associative
		nextLevel := level + 1
		if tok.Text == "^" {
			nextLevel = level
		}

		var right Node
		if right, e = p.expr(nextLevel); e != nil {
			return nil, e
		}

		left = &Binary{Op: tok.Text, Left: left, Right: right, At: tok.Pos}
	}
}

func (p *parser) unary() (Node, error) {
	tok := p.peek()
	if tok.Type == TKop && (tok.Text == "-" || tok.Text == "+" || tok.Text == "!") {
		p.next()

		x, e := p.unaryOperand()
		if e != nil {
			return nil, e
		}

		if tok.Text == "+" {
			return x, nil
		}

		return &Unary{Op: tok.Text, X: x, At: tok.Pos}, nil
	}

	return p.primary()
}

// unaryOperand parses what follows a prefix operator: another prefix, or a power expression.
func (p *parser) unaryOperand() (Node, error) {
	if tok := p.peek(); tok.Type == TKop && (tok.Text == "-" || tok.Text == "+" || tok.Text == "!") {
		return p.unary()
	}

	var (
		base Node
		e    error
	)
	if base, e = p.primary(); e != nil {
		return nil, e
	}

	if tok := p.peek(); tok.Type == TKop && tok.Text == "^" {
		p.next()

		var exp Node
		if exp, e = p.expr(powerLevel); e != nil {
			return nil, e
		}

		return &Binary{Op: "^", Left: base, Right: exp, At: tok.Pos}, nil
	}

	return base, nil
}

func (p *parser) primary() (Node, error) {
	tok := p.next()

	switch tok.Type {
	case TKnumber:
		f, e := strconv.ParseFloat(tok.Text, 64)
		if e != nil {
			return nil, newEvalError(EKparse, tok.Pos, "bad number %s", tok.Text)
		}

		return &Literal{Value: NewFloat(f), At: tok.Pos}, nil
	case TKstring:
		return &Literal{Value: NewString(tok.Text), At: tok.Pos}, nil
	case TKfield:
		return &Ref{Label: tok.Text, At: tok.Pos}, nil
	case TKlparen:
		x, e := p.expr(0)
		if e != nil {
			return nil, e
		}

		if closing := p.next(); closing.Type != TKrparen {
			if closing.Type == TKeof {
				return nil, newEvalError(EKparse, tok.Pos, "unmatched opening parenthesis")
			}

			return nil, p.unexpected(closing)
		}

		return x, nil
	case TKident:
		if p.peek().Type != TKlparen {
			return nil, newEvalError(EKparse, tok.Pos, "unexpected name %s", tok.Text)
		}

		return p.call(tok)
	case TKrparen:
		return nil, newEvalError(EKparse, tok.Pos, "unmatched closing parenthesis")
	}

	return nil, p.unexpected(tok)
}

// call parses the argument list of NAME( ... ).
func (p *parser) call(name Token) (Node, error) {
	open := p.next()

	var args []Node
	if p.peek().Type == TKrparen {
		p.next()
	} else {
		for {
			arg, e := p.expr(0)
			if e != nil {
				return nil, e
			}

			args = append(args, arg)

			tok := p.next()
			if tok.Type == TKcomma {
				continue
			}

			if tok.Type == TKrparen {
				break
			}

			if tok.Type == TKeof {
				return nil, newEvalError(EKparse, open.Pos, "unmatched opening parenthesis")
			}

			return nil, p.unexpected(tok)
		}
	}

	fnName := strings.ToUpper(name.Text)
	if fnName == "IF" {
		if len(args) != 3 {
			return nil, newEvalError(EKarity, name.Pos, "IF needs 3 arguments, got %d", len(args))
		}

		return &Cond{Test: args[0], Then: args[1], Else: args[2], At: name.Pos}, nil
	}

	return &Call{Name: fnName, Args: args, At: name.Pos}, nil
}

// MustParse is Parse that panics on error. For formulas fixed at compile time.
func MustParse(formula string) *Program {
	prog, e := Parse(formula)
	if e != nil {
		panic(fmt.Errorf("MustParse: %w", e))
	}

	return prog
}
