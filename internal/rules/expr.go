package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// ==========================================
// INTERMEDIATE REPRESENTATION
// ==========================================

// Expr is the compiled form of a rule set: a tagged boolean expression tree.
// Both renderers (SQL text and structured filter) consume the same tree, so
// a rule set can never mean different things on the two query surfaces.
type Expr interface {
	isExpr()
}

// Compare is a single field comparison leaf. Its Field has already passed
// the allowlist and its Value has passed operator/type validation.
type Compare struct {
	Field Field
	Op    Operator
	Value Value
}

// And joins sub-expressions conjunctively.
type And struct {
	Exprs []Expr
}

// Or joins sub-expressions disjunctively.
type Or struct {
	Exprs []Expr
}

// Nothing matches no customer. An empty rule group compiles to this.
type Nothing struct{}

func (Compare) isExpr() {}
func (And) isExpr()     {}
func (Or) isExpr()      {}
func (Nothing) isExpr() {}

// Compile validates a rule set and builds its expression tree.
//
// An empty rule-group set returns a nil Expr: the "no predicate" sentinel.
// Callers treat it as matching nothing (the audience resolver short-circuits
// to zero rather than querying). A group that exists but has no rules
// compiles to Nothing, which renders as a contradiction (1=0).
func Compile(groups []RuleGroup) (Expr, error) {
	if err := Validate(groups); err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, nil
	}

	parts := make([]Expr, 0, len(groups))
	for _, g := range groups {
		parts = append(parts, compileGroup(g))
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return Or{Exprs: parts}, nil
}

func compileGroup(g RuleGroup) Expr {
	if len(g.Rules) == 0 {
		return Nothing{}
	}

	leaves := make([]Expr, 0, len(g.Rules))
	for _, r := range g.Rules {
		// Validate has already run; the parse cannot fail here.
		f, _ := ParseField(r.Field)
		leaves = append(leaves, Compare{Field: f, Op: r.Operator, Value: r.Value})
	}
	if len(leaves) == 1 {
		return leaves[0]
	}
	if g.Operator == LogicOr {
		return Or{Exprs: leaves}
	}
	return And{Exprs: leaves}
}

// Hash returns a deterministic digest of a rule set, used as the preview
// count cache key.
func Hash(groups []RuleGroup) string {
	data, _ := json.Marshal(groups)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
