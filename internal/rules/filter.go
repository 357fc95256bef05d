package rules

import (
	"fmt"
	"strings"
)

// ==========================================
// STRUCTURED RENDERER
// ==========================================

// Filter is the structured compilation target: a tree of field-scoped
// comparison nodes. It can be evaluated in memory against any Record, or
// bound to a parameterized WHERE fragment for push-down to the store.
type Filter interface {
	// Match evaluates the filter against a single record.
	Match(rec Record) bool
	bind(b *binder) string
}

// RenderFilter renders an expression tree as a structured filter. A nil
// expression (empty rule-group set) returns a nil Filter; callers must
// treat that as matching nothing.
func RenderFilter(e Expr) (Filter, error) {
	if e == nil {
		return nil, nil
	}
	switch n := e.(type) {
	case Nothing:
		return nothingFilter{}, nil

	case Compare:
		return newComparison(n)

	case And:
		subs, err := renderChildren(n.Exprs)
		if err != nil {
			return nil, err
		}
		return andFilter(subs), nil

	case Or:
		subs, err := renderChildren(n.Exprs)
		if err != nil {
			return nil, err
		}
		return orFilter(subs), nil

	default:
		return nil, fmt.Errorf("unsupported expression node %T", e)
	}
}

func renderChildren(exprs []Expr) ([]Filter, error) {
	out := make([]Filter, 0, len(exprs))
	for _, sub := range exprs {
		f, err := RenderFilter(sub)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// BindSQL flattens a filter into a parameterized WHERE fragment and its
// positional arguments ($1, $2, ...).
func BindSQL(f Filter) (string, []interface{}) {
	if f == nil {
		return "1=0", nil
	}
	b := &binder{}
	return f.bind(b), b.args
}

// binder accumulates positional query arguments.
type binder struct {
	args []interface{}
}

func (b *binder) next(v interface{}) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// ==========================================
// NODES
// ==========================================

type andFilter []Filter

func (f andFilter) Match(rec Record) bool {
	for _, sub := range f {
		if !sub.Match(rec) {
			return false
		}
	}
	return true
}

func (f andFilter) bind(b *binder) string { return bindJoin(f, b, " AND ") }

type orFilter []Filter

func (f orFilter) Match(rec Record) bool {
	for _, sub := range f {
		if sub.Match(rec) {
			return true
		}
	}
	return false
}

func (f orFilter) bind(b *binder) string { return bindJoin(f, b, " OR ") }

func bindJoin(subs []Filter, b *binder, sep string) string {
	parts := make([]string, 0, len(subs))
	for _, sub := range subs {
		parts = append(parts, sub.bind(b))
	}
	return "(" + strings.Join(parts, sep) + ")"
}

type nothingFilter struct{}

func (nothingFilter) Match(Record) bool     { return false }
func (nothingFilter) bind(b *binder) string { return "1=0" }

// comparison is a single field-scoped comparison.
type comparison struct {
	field   Field
	op      Operator
	num     float64 // set when numeric is true
	str     string
	numeric bool
}

func newComparison(c Compare) (Filter, error) {
	cmp := comparison{field: c.Field, op: c.Op, str: c.Value.String()}

	switch {
	case c.Op.NumericOnly():
		n, ok := c.Value.Number()
		if !ok {
			return nil, &ValidationError{Msg: fmt.Sprintf(
				"operator %s requires a numeric value, got %q", c.Op, c.Value.String())}
		}
		cmp.num, cmp.numeric = n, true

	case c.Op == OpEq || c.Op == OpNeq:
		// Equality coerces to numeric only on numeric fields.
		if c.Field.Numeric() {
			n, ok := c.Value.Number()
			if !ok {
				return nil, &ValidationError{Msg: fmt.Sprintf(
					"field %s requires a numeric value for %s, got %q",
					c.Field, c.Op, c.Value.String())}
			}
			cmp.num, cmp.numeric = n, true
		}

	case c.Op.stringOnly():
		// Substring operators always compare text.

	default:
		return nil, &ValidationError{Msg: fmt.Sprintf("unknown operator: %q", c.Op)}
	}

	return cmp, nil
}

func (c comparison) Match(rec Record) bool {
	switch c.op {
	case OpGt:
		return rec.RuleNumber(c.field) > c.num
	case OpGte:
		return rec.RuleNumber(c.field) >= c.num
	case OpLt:
		return rec.RuleNumber(c.field) < c.num
	case OpLte:
		return rec.RuleNumber(c.field) <= c.num

	case OpEq:
		if c.numeric {
			return rec.RuleNumber(c.field) == c.num
		}
		return rec.RuleString(c.field) == c.str
	case OpNeq:
		if c.numeric {
			return rec.RuleNumber(c.field) != c.num
		}
		return rec.RuleString(c.field) != c.str

	case OpContains:
		return containsFold(rec.RuleString(c.field), c.str)
	case OpNotContains:
		return !containsFold(rec.RuleString(c.field), c.str)
	case OpStartsWith:
		return strings.HasPrefix(strings.ToLower(rec.RuleString(c.field)), strings.ToLower(c.str))
	case OpEndsWith:
		return strings.HasSuffix(strings.ToLower(rec.RuleString(c.field)), strings.ToLower(c.str))
	}
	return false
}

func (c comparison) bind(b *binder) string {
	switch c.op {
	case OpGt, OpGte, OpLt, OpLte:
		return fmt.Sprintf("%s %s %s", c.field, c.op, b.next(c.num))

	case OpEq, OpNeq:
		if c.numeric {
			return fmt.Sprintf("%s %s %s", c.field, c.op, b.next(c.num))
		}
		return fmt.Sprintf("%s %s %s", c.field, c.op, b.next(c.str))

	case OpContains:
		return fmt.Sprintf("%s ILIKE %s", c.field, b.next("%"+c.str+"%"))
	case OpNotContains:
		return fmt.Sprintf("%s NOT ILIKE %s", c.field, b.next("%"+c.str+"%"))
	case OpStartsWith:
		return fmt.Sprintf("%s ILIKE %s", c.field, b.next(c.str+"%"))
	case OpEndsWith:
		return fmt.Sprintf("%s ILIKE %s", c.field, b.next("%"+c.str))
	}
	return "1=0"
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
