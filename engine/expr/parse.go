package expr

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokOp
)

type token struct {
	kind tokenKind
	text string // operand text for tokWord
	op   Op
	pos  int
}

// Compile parses cond into an expression tree.
func Compile(cond string) (Expr, error) {
	src := strings.TrimSpace(cond)
	if src == "" {
		return nil, &MalformedExpressionError{Source: src, Pos: -1, Reason: "empty expression"}
	}
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := parser{src: src, toks: toks}
	return p.parse()
}

// MustCompile is like Compile but panics on error. For tests and constants.
func MustCompile(cond string) Expr {
	e, err := Compile(cond)
	if err != nil {
		panic(err)
	}
	return e
}

// tokenize splits src on spaces and operators. Quoted runs (single or
// double) may contain spaces and operator characters; the quotes are dropped.
func tokenize(src string) ([]token, error) {
	var (
		toks  []token
		word  strings.Builder
		inTok bool
		start int
	)
	flush := func() {
		if inTok {
			toks = append(toks, token{kind: tokWord, text: word.String(), pos: start})
			word.Reset()
			inTok = false
		}
	}
	begin := func(i int) {
		if !inTok {
			inTok = true
			start = i
		}
	}
	malformed := func(pos int, format string, args ...any) error {
		return &MalformedExpressionError{Source: src, Pos: pos, Reason: fmt.Sprintf(format, args...)}
	}

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch c {
		case ' ', '\t':
			flush()

		case '"', '\'':
			begin(i)
			end := strings.IndexByte(src[i+1:], c)
			if end < 0 {
				return nil, malformed(i, "unbalanced quote, still inside quoted string at end of expression")
			}
			word.WriteString(src[i+1 : i+1+end])
			i += end + 1

		case '=', '!', '&', '|':
			flush()
			want := byte('=')
			if c == '&' || c == '|' {
				want = c
			}
			if i+1 >= len(src) {
				return nil, malformed(i, "unmatched %c at end of expression", c)
			}
			if src[i+1] != want {
				return nil, malformed(i, "used %c but not %c%c, found '%c'", c, c, want, src[i+1])
			}
			toks = append(toks, token{kind: tokOp, op: opFor(c), pos: i})
			i++

		default:
			begin(i)
			word.WriteByte(c)
		}
	}
	flush()
	return toks, nil
}

func opFor(c byte) Op {
	switch c {
	case '!':
		return OpNe
	case '&':
		return OpAnd
	case '|':
		return OpOr
	}
	return OpEq
}

type parser struct {
	src  string
	toks []token
	pos  int
}

func (p *parser) malformed(pos int, format string, args ...any) error {
	return &MalformedExpressionError{Source: p.src, Pos: pos, Reason: fmt.Sprintf(format, args...)}
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

// parse builds the left-leaning chain: comparison { (&&|||) comparison }.
func (p *parser) parse() (Expr, error) {
	first, err := p.comparison()
	if err != nil {
		return nil, err
	}
	var result Expr = first
	for {
		t, ok := p.peek()
		if !ok {
			return result, nil
		}
		if t.kind != tokOp || (t.op != OpAnd && t.op != OpOr) {
			if l, isLogical := result.(*Logical); isLogical {
				return nil, p.malformed(t.pos, "unexpected evaluation after %s, you can't do 'a==b %s c==d e==f'", l.Op, l.Op)
			}
			return nil, p.malformed(t.pos, "you can't do 'a==1 b==2'")
		}
		p.pos++
		if _, ok := p.peek(); !ok {
			return nil, p.malformed(t.pos, "unmatched %s at end of expression", t.op)
		}
		next, err := p.comparison()
		if err != nil {
			return nil, err
		}
		result = &Logical{Op: t.op, Left: result, Right: next}
	}
}

// comparison parses operand (==|!=) operand.
func (p *parser) comparison() (*Comparison, error) {
	lhs, ok := p.peek()
	if !ok {
		return nil, p.malformed(len(p.src), "expected comparison")
	}
	if lhs.kind != tokWord {
		if lhs.op == OpAnd || lhs.op == OpOr {
			return nil, p.malformed(lhs.pos, "missing lhs for %s, you cannot do '%s a==b'", lhs.op, lhs.op)
		}
		return nil, p.malformed(lhs.pos, "missing lhs for %s, you cannot do '%sb'", lhs.op, lhs.op)
	}
	p.pos++

	op, ok := p.peek()
	if !ok {
		return nil, p.malformed(lhs.pos, "operand %q has no comparison", lhs.text)
	}
	if op.kind != tokOp || (op.op != OpEq && op.op != OpNe) {
		if op.kind == tokWord {
			return nil, p.malformed(op.pos, "you can't do 'a==1 b==2'")
		}
		return nil, p.malformed(op.pos, "expected == or != after %q, found %s", lhs.text, op.op)
	}
	p.pos++

	rhs, ok := p.peek()
	if !ok {
		return nil, p.malformed(op.pos, "unmatched %s at end of expression, use \"\" to compare with empty", op.op)
	}
	if rhs.kind != tokWord {
		return nil, p.malformed(rhs.pos, "missing rhs for %s", op.op)
	}
	p.pos++
	return &Comparison{Left: lhs.text, Op: op.op, Right: rhs.text}, nil
}
