package rules

import (
	"fmt"
	"strconv"
	"strings"
)

// ==========================================
// TEXTUAL RENDERER
// ==========================================

// RenderSQL renders an expression tree as a raw boolean predicate suitable
// for direct interpolation into a WHERE clause.
//
// Safety rests on two structural guarantees rather than caller discipline:
// Compare leaves only carry Field tokens that passed the allowlist, and
// every value goes through quoting here. Numeric values are emitted unquoted
// only after re-confirming they parse as numbers.
//
// A nil expression (empty rule-group set) renders as the empty string; the
// caller decides what that means and must not append it to a WHERE clause.
func RenderSQL(e Expr) (string, error) {
	if e == nil {
		return "", nil
	}
	return renderSQL(e)
}

func renderSQL(e Expr) (string, error) {
	switch n := e.(type) {
	case Nothing:
		return "1=0", nil

	case Compare:
		return renderCompare(n)

	case And:
		return renderJoin(n.Exprs, " AND ")

	case Or:
		return renderJoin(n.Exprs, " OR ")

	default:
		return "", fmt.Errorf("unsupported expression node %T", e)
	}
}

func renderJoin(exprs []Expr, sep string) (string, error) {
	parts := make([]string, 0, len(exprs))
	for _, sub := range exprs {
		s, err := renderSQL(sub)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func renderCompare(c Compare) (string, error) {
	switch c.Op {
	case OpGt, OpGte, OpLt, OpLte:
		n, ok := c.Value.Number()
		if !ok {
			return "", &ValidationError{Msg: fmt.Sprintf(
				"operator %s requires a numeric value, got %q", c.Op, c.Value.String())}
		}
		return fmt.Sprintf("%s %s %s", c.Field, c.Op, formatNumber(n)), nil

	case OpEq, OpNeq:
		if n, ok := c.Value.Number(); ok && c.Field.Numeric() {
			return fmt.Sprintf("%s %s %s", c.Field, c.Op, formatNumber(n)), nil
		}
		return fmt.Sprintf("%s %s %s", c.Field, c.Op, quote(c.Value.String())), nil

	case OpContains:
		return fmt.Sprintf("%s ILIKE %s", c.Field, quote("%"+c.Value.String()+"%")), nil
	case OpNotContains:
		return fmt.Sprintf("%s NOT ILIKE %s", c.Field, quote("%"+c.Value.String()+"%")), nil
	case OpStartsWith:
		return fmt.Sprintf("%s ILIKE %s", c.Field, quote(c.Value.String()+"%")), nil
	case OpEndsWith:
		return fmt.Sprintf("%s ILIKE %s", c.Field, quote("%"+c.Value.String())), nil

	default:
		return "", &ValidationError{Msg: fmt.Sprintf("unknown operator: %q", c.Op)}
	}
}

// quote single-quotes a string literal, doubling embedded quotes.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
