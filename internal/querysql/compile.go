package querysql

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/roach88/implied/internal/ir"
	"github.com/roach88/implied/internal/queryir"
)

// DefaultOrderKey is the column every compiled SELECT is ordered by.
const DefaultOrderKey = "id"

// SQLCompiler renders predicates and expression trees as parameterized SQL
// for SQLite.
//
// CRITICAL: Every SELECT includes ORDER BY for deterministic results.
// CRITICAL: All constants are parameterized (never interpolated).
type SQLCompiler struct {
	// OrderKey is the column used to order SELECT results.
	OrderKey string
}

// NewSQLCompiler creates a new SQLCompiler ordering by DefaultOrderKey.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{
		OrderKey: DefaultOrderKey,
	}
}

// sqlOperators lists the operator tokens CompileExpr will emit.
var sqlOperators = map[string]string{
	"<":  "<",
	">":  ">",
	"<=": "<=",
	">=": ">=",
	"=":  "=",
	"<>": "<>",
	"!=": "<>",
	"+":  "+",
	"-":  "-",
	"*":  "*",
	"/":  "/",
}

// CompileWhere renders predicates as a conjunction.
// Returns (sql, params, error). An empty list renders "1 = 1".
func (c *SQLCompiler) CompileWhere(preds []*ir.Predicate) (string, []any, error) {
	if len(preds) == 0 {
		return "1 = 1", nil, nil
	}

	var parts []string
	var params []any
	for i, p := range preds {
		sql, ps, err := c.compilePredicate(p)
		if err != nil {
			return "", nil, fmt.Errorf("predicate %d: %w", i, err)
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	return strings.Join(parts, " AND "), params, nil
}

// CompileExpr renders a WHERE tree. Unlike Extract it accepts every node
// type, including OR and equality, so the host's original filter can be
// rendered unchanged.
func (c *SQLCompiler) CompileExpr(e queryir.Expr) (string, []any, error) {
	if e == nil {
		return "1 = 1", nil, nil
	}
	return c.compileExpr(e, false)
}

// CompileSelect renders sel with derived predicates appended to its filter.
//
// MANDATORY: Includes ORDER BY <OrderKey> COLLATE BINARY ASC.
func (c *SQLCompiler) CompileSelect(sel queryir.Select, derived []*ir.Predicate) (string, []any, error) {
	if err := checkIdent(sel.From); err != nil {
		return "", nil, fmt.Errorf("table: %w", err)
	}

	cols := "*"
	if len(sel.Columns) > 0 {
		for _, col := range sel.Columns {
			if err := checkIdent(col); err != nil {
				return "", nil, fmt.Errorf("column: %w", err)
			}
		}
		cols = strings.Join(sel.Columns, ", ")
	}

	var whereClause string
	var params []any
	filter := queryir.Augment(sel.Filter, derived)
	if len(filter.Args) > 0 {
		sql, ps, err := c.compileExpr(filter, false)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		whereClause = " WHERE " + sql
		params = ps
	}

	sql := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s",
		cols,
		sel.From,
		whereClause,
		c.stableOrderKey())
	return sql, params, nil
}

// stableOrderKey returns the ORDER BY clause body.
// Uses COLLATE BINARY for deterministic text ordering.
func (c *SQLCompiler) stableOrderKey() string {
	key := c.OrderKey
	if key == "" {
		key = DefaultOrderKey
	}
	return key + " COLLATE BINARY ASC"
}

// compilePredicate renders one predicate. Constants become ? parameters.
func (c *SQLCompiler) compilePredicate(p *ir.Predicate) (string, []any, error) {
	if p == nil {
		return "", nil, fmt.Errorf("nil predicate")
	}
	tok, err := p.Cond.Token()
	if err != nil {
		return "", nil, err
	}
	left, lp, err := c.compileValue(p.Left)
	if err != nil {
		return "", nil, err
	}
	right, rp, err := c.compileValue(p.Right)
	if err != nil {
		return "", nil, err
	}
	return left + " " + tok + " " + right, append(lp, rp...), nil
}

func (c *SQLCompiler) compileValue(v ir.Value) (string, []any, error) {
	if v.IsConstant() {
		return "?", []any{v.Int()}, nil
	}
	name := v.Name().String()
	if err := checkIdent(name); err != nil {
		return "", nil, err
	}
	return name, nil, nil
}

// compileExpr renders e. nested marks e as an operand of an enclosing
// node, where composite expressions need parentheses.
func (c *SQLCompiler) compileExpr(e queryir.Expr, nested bool) (string, []any, error) {
	switch n := e.(type) {
	case queryir.VarRef:
		return c.compileVar(n.Name)
	case *queryir.VarRef:
		return c.compileVar(n.Name)
	case queryir.IntConst:
		return "?", []any{n.Value}, nil
	case *queryir.IntConst:
		return "?", []any{n.Value}, nil
	case queryir.TextConst:
		return "?", []any{n.Text}, nil
	case *queryir.TextConst:
		return "?", []any{n.Text}, nil
	case queryir.OpExpr:
		return c.compileOp(n, nested)
	case *queryir.OpExpr:
		return c.compileOp(*n, nested)
	case queryir.And:
		return c.compileList(n.Args, " AND ", "1 = 1", nested)
	case *queryir.And:
		return c.compileList(n.Args, " AND ", "1 = 1", nested)
	case queryir.Or:
		return c.compileList(n.Args, " OR ", "1 = 0", true)
	case *queryir.Or:
		return c.compileList(n.Args, " OR ", "1 = 0", true)
	default:
		return "", nil, fmt.Errorf("unsupported expression type: %T", e)
	}
}

func (c *SQLCompiler) compileVar(name string) (string, []any, error) {
	if err := checkIdent(name); err != nil {
		return "", nil, err
	}
	return name, nil, nil
}

func (c *SQLCompiler) compileOp(op queryir.OpExpr, nested bool) (string, []any, error) {
	tok, ok := sqlOperators[op.Op]
	if !ok {
		return "", nil, fmt.Errorf("unsupported operator %q", op.Op)
	}
	if op.Left == nil || op.Right == nil {
		return "", nil, fmt.Errorf("operator %q is missing an operand", op.Op)
	}
	left, lp, err := c.compileExpr(op.Left, true)
	if err != nil {
		return "", nil, err
	}
	right, rp, err := c.compileExpr(op.Right, true)
	if err != nil {
		return "", nil, err
	}
	sql := left + " " + tok + " " + right
	if nested {
		sql = "(" + sql + ")"
	}
	return sql, append(lp, rp...), nil
}

func (c *SQLCompiler) compileList(args []queryir.Expr, sep, empty string, nested bool) (string, []any, error) {
	if len(args) == 0 {
		return empty, nil, nil
	}

	var parts []string
	var params []any
	for _, a := range args {
		sql, ps, err := c.compileExpr(a, len(args) > 1 && isList(a))
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}

	sql := strings.Join(parts, sep)
	if nested && len(args) > 1 {
		sql = "(" + sql + ")"
	}
	return sql, params, nil
}

func isList(e queryir.Expr) bool {
	switch e.(type) {
	case queryir.And, *queryir.And, queryir.Or, *queryir.Or:
		return true
	}
	return false
}

// checkIdent rejects anything that is not a plain (optionally qualified)
// identifier, so names can be placed in SQL text without quoting.
func checkIdent(name string) error {
	if name == "" {
		return fmt.Errorf("empty identifier")
	}
	for i, r := range name {
		ok := r == '_' || unicode.IsLetter(r)
		if i > 0 {
			ok = ok || r == '.' || unicode.IsDigit(r)
		}
		if !ok {
			return fmt.Errorf("identifier %q: invalid character %q", name, r)
		}
	}
	return nil
}
