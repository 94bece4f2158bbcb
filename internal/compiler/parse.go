package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/implied/internal/ir"
)

// ParsePredicate parses canonical predicate text such as "x < y" or
// "y >= -3". Spacing around the operator is optional and either operand
// may be the constant ("5 < x" is normalized to "x > 5").
//
// This is the inverse of ir.Predicate.Format: for any valid predicate p,
// ParsePredicate(p.Format()) yields an equal predicate.
func ParsePredicate(text string) (*ir.Predicate, error) {
	i, op, err := findOperator(text)
	if err != nil {
		return nil, err
	}

	left := strings.TrimSpace(text[:i])
	right := strings.TrimSpace(text[i+len(op):])
	if left == "" {
		return nil, &SyntaxError{Input: text, Offset: i, Message: "missing left operand"}
	}
	if right == "" {
		return nil, &SyntaxError{Input: text, Offset: len(text), Message: "missing right operand"}
	}

	p, err := ParseOperands(left, op, right)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", text, err)
	}
	return p, nil
}

// ParseOperands builds a predicate from already separated parts. Operands
// that look numeric are constants; anything else must be a valid name.
func ParseOperands(left, op, right string) (*ir.Predicate, error) {
	cond := ir.ParseCondition(op)
	if cond == ir.NoRelation {
		return nil, &SyntaxError{Input: op, Offset: -1, Message: "operator must be one of <, >, <=, >="}
	}
	l, err := parseOperand(left)
	if err != nil {
		return nil, err
	}
	r, err := parseOperand(right)
	if err != nil {
		return nil, err
	}
	return ir.MakePredicate(l, cond, r)
}

// ParseAll parses each line in order. All failures are reported, keyed by
// line index; successfully parsed predicates are still returned.
func ParseAll(lines []string) ([]*ir.Predicate, []error) {
	var (
		preds []*ir.Predicate
		errs  []error
	)
	for i, line := range lines {
		p, err := ParsePredicate(line)
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", i+1, err))
			continue
		}
		preds = append(preds, p)
	}
	return preds, errs
}

func parseOperand(s string) (ir.Value, error) {
	if ir.IsNumeric(s) {
		return ir.ValueFromStringConstant(s)
	}
	return ir.ValueFromString(s)
}

// findOperator locates the single comparison operator in text.
func findOperator(text string) (int, string, error) {
	at, op := -1, ""
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch c {
		case '<', '>':
		case '=', '!':
			return 0, "", &SyntaxError{Input: text, Offset: i, Message: "only <, >, <= and >= are supported"}
		default:
			continue
		}
		if at >= 0 {
			return 0, "", &SyntaxError{Input: text, Offset: i, Message: "more than one comparison operator"}
		}
		at, op = i, string(c)
		if i+1 < len(text) && text[i+1] == '=' {
			op += "="
			i++
		} else if i+1 < len(text) && (text[i+1] == '<' || text[i+1] == '>') {
			return 0, "", &SyntaxError{Input: text, Offset: i, Message: "only <, >, <= and >= are supported"}
		}
	}
	if at < 0 {
		return 0, "", &SyntaxError{Input: text, Offset: -1, Message: "no comparison operator"}
	}
	return at, op, nil
}
