// Package rules provides the segment rule model and its compilation into
// query predicates. A segment's targeting logic is a set of rule groups:
// groups combine with OR at the top level, rules within a group combine
// with the group's own AND/OR operator.
//
// Compilation goes through a single intermediate expression tree with two
// independent renderers (a structured filter tree and a raw escaped SQL
// predicate), so the two query surfaces stay equivalent by construction.
package rules

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ==========================================
// OPERATORS
// ==========================================

// Operator represents a rule comparison operator.
type Operator string

const (
	// Numeric operators
	OpGt  Operator = ">"
	OpGte Operator = ">="
	OpLt  Operator = "<"
	OpLte Operator = "<="

	// Equality operators (numeric or string depending on field)
	OpEq  Operator = "="
	OpNeq Operator = "!="

	// String operators (case-insensitive)
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpStartsWith  Operator = "starts_with"
	OpEndsWith    Operator = "ends_with"
)

// operatorSet is the closed set of supported operators. Lookup failure is a
// hard validation error, never a fallback to equality.
var operatorSet = map[Operator]struct{}{
	OpGt: {}, OpGte: {}, OpLt: {}, OpLte: {},
	OpEq: {}, OpNeq: {},
	OpContains: {}, OpNotContains: {}, OpStartsWith: {}, OpEndsWith: {},
}

// ParseOperator validates an operator token.
func ParseOperator(s string) (Operator, error) {
	op := Operator(s)
	if _, ok := operatorSet[op]; !ok {
		return "", &ValidationError{Msg: fmt.Sprintf("unknown operator: %q", s)}
	}
	return op, nil
}

// NumericOnly reports whether the operator requires a numeric value.
func (op Operator) NumericOnly() bool {
	switch op {
	case OpGt, OpGte, OpLt, OpLte:
		return true
	}
	return false
}

// stringOnly operators always compare text, regardless of field type.
func (op Operator) stringOnly() bool {
	switch op {
	case OpContains, OpNotContains, OpStartsWith, OpEndsWith:
		return true
	}
	return false
}

// ==========================================
// FIELDS
// ==========================================

// Field is a validated customer attribute token. The only way to obtain a
// Field is through ParseField, which enforces the column allowlist, so a
// Field can be interpolated into a query without further checks.
type Field string

const (
	FieldTotalSpend         Field = "total_spend"
	FieldTotalVisits        Field = "total_visits"
	FieldTotalOrders        Field = "total_orders"
	FieldDaysSinceLastOrder Field = "days_since_last_order"
	FieldStatus             Field = "status"
	FieldName               Field = "name"
	FieldEmail              Field = "email"
)

var fieldNumeric = map[Field]bool{
	FieldTotalSpend:         true,
	FieldTotalVisits:        true,
	FieldTotalOrders:        true,
	FieldDaysSinceLastOrder: true,
	FieldStatus:             false,
	FieldName:               false,
	FieldEmail:              false,
}

// ParseField validates a field name against the allowlist.
func ParseField(s string) (Field, error) {
	f := Field(s)
	if _, ok := fieldNumeric[f]; !ok {
		return "", &ValidationError{Msg: fmt.Sprintf("invalid field: %q", s)}
	}
	return f, nil
}

// Numeric reports whether the field holds a numeric customer attribute.
func (f Field) Numeric() bool { return fieldNumeric[f] }

// Record is the read surface a structured filter evaluates against.
// domain.Customer implements it.
type Record interface {
	RuleNumber(f Field) float64
	RuleString(f Field) string
}

// ==========================================
// VALUES
// ==========================================

// Value holds a rule comparison value, which arrives over the wire as either
// a JSON string or a JSON number.
type Value struct {
	raw      string
	isNumber bool // JSON literal was a number
}

// StringValue builds a Value from a string literal.
func StringValue(s string) Value { return Value{raw: s} }

// NumberValue builds a Value from a numeric literal.
func NumberValue(n float64) Value {
	return Value{raw: strconv.FormatFloat(n, 'f', -1, 64), isNumber: true}
}

// String returns the textual form of the value.
func (v Value) String() string { return v.raw }

// Number parses the value as a float. Works for both numeric literals and
// numeric strings ("1000").
func (v Value) Number() (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(v.raw), 64)
	return n, err == nil
}

// UnmarshalJSON accepts either a JSON string or a JSON number.
func (v *Value) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = Value{raw: s}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*v = Value{raw: n.String(), isNumber: true}
		return nil
	}
	return fmt.Errorf("rule value must be a string or number, got %s", string(data))
}

// MarshalJSON round-trips numeric literals as numbers.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.isNumber {
		return []byte(v.raw), nil
	}
	return json.Marshal(v.raw)
}

// ==========================================
// RULE MODEL
// ==========================================

// LogicOperator combines rules within a group.
type LogicOperator string

const (
	LogicAnd LogicOperator = "AND"
	LogicOr  LogicOperator = "OR"
)

// Rule is a single field comparison.
type Rule struct {
	ID       string   `json:"id,omitempty"`
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    Value    `json:"value"`
}

// RuleGroup is an ordered set of rules combined by one boolean operator.
// A group with zero rules matches nothing.
type RuleGroup struct {
	ID       string        `json:"id,omitempty"`
	Operator LogicOperator `json:"operator"`
	Rules    []Rule        `json:"rules"`
}

// ValidationError reports a rule that fails the model's invariants: unknown
// field, unknown operator, or a numeric operator with a non-numeric value.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// validate checks a single rule and returns its parsed field token.
func (r Rule) validate() (Field, error) {
	f, err := ParseField(r.Field)
	if err != nil {
		return "", err
	}
	if _, err := ParseOperator(string(r.Operator)); err != nil {
		return "", err
	}
	needsNumber := r.Operator.NumericOnly() ||
		(f.Numeric() && (r.Operator == OpEq || r.Operator == OpNeq))
	if needsNumber {
		if _, ok := r.Value.Number(); !ok {
			return "", &ValidationError{Msg: fmt.Sprintf(
				"operator %s on field %s requires a numeric value, got %q",
				r.Operator, r.Field, r.Value.String())}
		}
	}
	return f, nil
}

// Validate checks every rule in every group. Group operators other than
// AND/OR are rejected.
func Validate(groups []RuleGroup) error {
	for _, g := range groups {
		if g.Operator != LogicAnd && g.Operator != LogicOr {
			return &ValidationError{Msg: fmt.Sprintf("unknown group operator: %q", g.Operator)}
		}
		for _, r := range g.Rules {
			if _, err := r.validate(); err != nil {
				return err
			}
		}
	}
	return nil
}
