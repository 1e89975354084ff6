// Package expr compiles and evaluates story conditions: string comparisons
// with == and != joined by && and ||.
//
// There is no operator precedence. Each && or || combines everything parsed
// so far with the single comparison that follows it, so
//
//	a==1 && b==2 || c==3
//
// groups as ((a==1 && b==2) || c==3).
package expr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nathoo/holoroom/engine/state"
	"github.com/nathoo/holoroom/engine/template"
)

// Unmatched is the condition that marks a last-resort fallback action.
const Unmatched = "unmatched"

// Sentinels for errors.Is.
var (
	ErrMalformed  = errors.New("malformed expression")
	ErrUnresolved = errors.New("unresolved template")
)

// MalformedExpressionError reports a condition that could not be parsed.
type MalformedExpressionError struct {
	Source string
	Pos    int // byte offset into Source, -1 when not positional
	Reason string
}

func (e *MalformedExpressionError) Error() string {
	if e.Pos < 0 {
		return fmt.Sprintf("expression [%s]: %s", e.Source, e.Reason)
	}
	return fmt.Sprintf("expression [%s] at %d: %s", e.Source, e.Pos, e.Reason)
}

func (e *MalformedExpressionError) Unwrap() error { return ErrMalformed }

// UnresolvedTemplateError reports an operand that still holds a { after
// substitution, which usually means it names a key the store lacks.
type UnresolvedTemplateError struct {
	Operand string
}

func (e *UnresolvedTemplateError) Error() string {
	return fmt.Sprintf("unable to satisfy all template vars in expression, remaining: %s", e.Operand)
}

func (e *UnresolvedTemplateError) Unwrap() error { return ErrUnresolved }

// Op is a comparison or logical operator.
type Op int

const (
	OpEq Op = iota
	OpNe
	OpAnd
	OpOr
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	}
	return "?"
}

// Expr is a compiled condition tree. Trees are immutable; evaluation works
// on a substituted copy.
type Expr interface {
	eval() bool
	substitute(s *state.Store, ctx template.Context) (Expr, error)
	String() string
}

// Comparison is a single == or != test between two operands.
type Comparison struct {
	Left  string
	Op    Op
	Right string
}

func (c *Comparison) eval() bool {
	if c.Op == OpNe {
		return c.Left != c.Right
	}
	return c.Left == c.Right
}

func (c *Comparison) substitute(s *state.Store, ctx template.Context) (Expr, error) {
	left := template.Operand(s, c.Left, ctx)
	if strings.Contains(left, "{") {
		return nil, &UnresolvedTemplateError{Operand: left}
	}
	right := template.Operand(s, c.Right, ctx)
	if strings.Contains(right, "{") {
		return nil, &UnresolvedTemplateError{Operand: right}
	}
	return &Comparison{Left: left, Op: c.Op, Right: right}, nil
}

func (c *Comparison) String() string {
	return fmt.Sprintf("%q %s %q", c.Left, c.Op, c.Right)
}

// Logical joins two expressions with && or ||.
type Logical struct {
	Op    Op
	Left  Expr
	Right Expr
}

// eval always evaluates both sides; operands are pure.
func (l *Logical) eval() bool {
	a, b := l.Left.eval(), l.Right.eval()
	if l.Op == OpOr {
		return a || b
	}
	return a && b
}

func (l *Logical) substitute(s *state.Store, ctx template.Context) (Expr, error) {
	left, err := l.Left.substitute(s, ctx)
	if err != nil {
		return nil, err
	}
	right, err := l.Right.substitute(s, ctx)
	if err != nil {
		return nil, err
	}
	return &Logical{Op: l.Op, Left: left, Right: right}, nil
}

func (l *Logical) String() string {
	return fmt.Sprintf("(%s %s %s)", l.Left, l.Op, l.Right)
}

// IsUnmatched reports whether cond is the fallback marker.
func IsUnmatched(cond string) bool {
	return strings.TrimSpace(cond) == Unmatched
}

// Substitute returns a copy of e with every operand resolved against s and
// ctx. It fails with an *UnresolvedTemplateError if any operand still
// contains a {.
func Substitute(e Expr, s *state.Store, ctx template.Context) (Expr, error) {
	if e == nil {
		return nil, &MalformedExpressionError{Pos: -1, Reason: "nil expression"}
	}
	return e.substitute(s, ctx)
}

// Eval substitutes e and evaluates the result.
func Eval(e Expr, s *state.Store, ctx template.Context) (bool, error) {
	sub, err := Substitute(e, s, ctx)
	if err != nil {
		return false, err
	}
	return sub.eval(), nil
}

// Evaluate compiles and evaluates cond in one step. The fallback marker
// always evaluates true.
func Evaluate(cond string, s *state.Store, ctx template.Context) (bool, error) {
	if IsUnmatched(cond) {
		return true, nil
	}
	e, err := Compile(cond)
	if err != nil {
		return false, err
	}
	return Eval(e, s, ctx)
}
