package queryir

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SyntaxError reports a WHERE clause ParseWhere could not read.
type SyntaxError struct {
	Offset  int // Byte offset of the offending token
	Message string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("where: offset %d: %s", e.Offset, e.Message)
}

// ParseWhere reads a textual WHERE clause into an Expr tree:
//
//	expr    = conj { OR conj }
//	conj    = term { AND term }
//	term    = "(" expr ")" | operand op operand
//	operand = identifier | integer | 'text'
//	op      = < | > | <= | >= | = | <> | !=
//
// Keywords are case-insensitive. Integers become IntConst and quoted text
// becomes TextConst, so Extract decides later whether a literal is usable.
// A single-argument AND or OR collapses to its argument.
func ParseWhere(text string) (Expr, error) {
	toks, err := lex(text)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, end: len(text)}
	e, err := p.disjunction()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, &SyntaxError{Offset: t.pos, Message: fmt.Sprintf("unexpected %q", t.text)}
	}
	return e, nil
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokInt
	tokText
	tokOp
	tokAnd
	tokOr
	tokLParen
	tokRParen
)

type token struct {
	kind tokKind
	text string
	pos  int
}

func lex(s string) ([]token, error) {
	var toks []token
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case c == '<' || c == '>' || c == '=' || c == '!':
			j := i + 1
			if j < len(s) && ((s[j] == '=' && c != '=') || (c == '<' && s[j] == '>')) {
				j++
			}
			op := s[i:j]
			if op == "!" {
				return nil, &SyntaxError{Offset: i, Message: fmt.Sprintf("unknown operator %q", op)}
			}
			toks = append(toks, token{tokOp, op, i})
			i = j
		case c == '\'':
			j := strings.IndexByte(s[i+1:], '\'')
			if j < 0 {
				return nil, &SyntaxError{Offset: i, Message: "unterminated text literal"}
			}
			toks = append(toks, token{tokText, s[i+1 : i+1+j], i})
			i += j + 2
		case c == '-' || (c >= '0' && c <= '9'):
			j := i + 1
			for j < len(s) && s[j] >= '0' && s[j] <= '9' {
				j++
			}
			if s[i:j] == "-" {
				return nil, &SyntaxError{Offset: i, Message: "expected digits after '-'"}
			}
			toks = append(toks, token{tokInt, s[i:j], i})
			i = j
		case c == '_' || startsLetter(s[i:]):
			j := i + identLen(s[i:])
			word := s[i:j]
			switch strings.ToUpper(word) {
			case "AND":
				toks = append(toks, token{tokAnd, word, i})
			case "OR":
				toks = append(toks, token{tokOr, word, i})
			default:
				toks = append(toks, token{tokIdent, word, i})
			}
			i = j
		default:
			r, size := utf8.DecodeRuneInString(s[i:])
			if r == utf8.RuneError && size == 1 {
				return nil, &SyntaxError{Offset: i, Message: fmt.Sprintf("invalid UTF-8 byte %#x", c)}
			}
			return nil, &SyntaxError{Offset: i, Message: fmt.Sprintf("unexpected character %q", r)}
		}
	}
	return toks, nil
}

func startsLetter(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsLetter(r)
}

// identLen returns the byte length of the identifier at the start of s.
func identLen(s string) int {
	n := 0
	for n < len(s) {
		r, size := utf8.DecodeRuneInString(s[n:])
		ok := r == '_' || unicode.IsLetter(r)
		if n > 0 {
			ok = ok || r == '.' || unicode.IsDigit(r)
		}
		if !ok {
			break
		}
		n += size
	}
	return n
}

type parser struct {
	toks []token
	i    int
	end  int
}

func (p *parser) peek() token {
	if p.i < len(p.toks) {
		return p.toks[p.i]
	}
	return token{kind: tokEOF, pos: p.end}
}

func (p *parser) next() token {
	t := p.peek()
	if p.i < len(p.toks) {
		p.i++
	}
	return t
}

func (p *parser) disjunction() (Expr, error) {
	first, err := p.conjunction()
	if err != nil {
		return nil, err
	}
	args := []Expr{first}
	for p.peek().kind == tokOr {
		p.next()
		e, err := p.conjunction()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
	}
	if len(args) == 1 {
		return first, nil
	}
	return &Or{Args: args}, nil
}

func (p *parser) conjunction() (Expr, error) {
	first, err := p.term()
	if err != nil {
		return nil, err
	}
	args := []Expr{first}
	for p.peek().kind == tokAnd {
		p.next()
		e, err := p.term()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
	}
	if len(args) == 1 {
		return first, nil
	}
	return &And{Args: args}, nil
}

func (p *parser) term() (Expr, error) {
	if p.peek().kind == tokLParen {
		open := p.next()
		e, err := p.disjunction()
		if err != nil {
			return nil, err
		}
		if t := p.next(); t.kind != tokRParen {
			return nil, &SyntaxError{Offset: open.pos, Message: "unbalanced parenthesis"}
		}
		return e, nil
	}

	left, err := p.operand()
	if err != nil {
		return nil, err
	}
	op := p.next()
	if op.kind != tokOp {
		return nil, &SyntaxError{Offset: op.pos, Message: "expected comparison operator"}
	}
	right, err := p.operand()
	if err != nil {
		return nil, err
	}
	return &OpExpr{Op: op.text, Left: left, Right: right}, nil
}

func (p *parser) operand() (Expr, error) {
	t := p.next()
	switch t.kind {
	case tokIdent:
		return &VarRef{Name: t.text}, nil
	case tokInt:
		n, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			// Out of range for int64; Extract reports it as a bad constant.
			return &TextConst{Text: t.text}, nil
		}
		return &IntConst{Value: n}, nil
	case tokText:
		return &TextConst{Text: t.text}, nil
	case tokEOF:
		return nil, &SyntaxError{Offset: t.pos, Message: "expected operand, found end of input"}
	default:
		return nil, &SyntaxError{Offset: t.pos, Message: fmt.Sprintf("expected operand, found %q", t.text)}
	}
}
