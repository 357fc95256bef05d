package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderGroups(t *testing.T, groups []RuleGroup) string {
	t.Helper()
	expr, err := Compile(groups)
	require.NoError(t, err)
	sql, err := RenderSQL(expr)
	require.NoError(t, err)
	return sql
}

func TestRenderSQL(t *testing.T) {
	tests := []struct {
		name   string
		groups []RuleGroup
		want   string
	}{
		{
			name: "single numeric comparison",
			groups: []RuleGroup{group(LogicAnd,
				Rule{Field: "total_spend", Operator: ">", Value: NumberValue(1000)})},
			want: "total_spend > 1000",
		},
		{
			name: "and group",
			groups: []RuleGroup{group(LogicAnd,
				Rule{Field: "total_spend", Operator: ">", Value: NumberValue(1000)},
				Rule{Field: "status", Operator: "=", Value: StringValue("ACTIVE")})},
			want: "(total_spend > 1000 AND status = 'ACTIVE')",
		},
		{
			name: "or group",
			groups: []RuleGroup{group(LogicOr,
				Rule{Field: "total_visits", Operator: "<", Value: NumberValue(3)},
				Rule{Field: "days_since_last_order", Operator: ">=", Value: NumberValue(90)})},
			want: "(total_visits < 3 OR days_since_last_order >= 90)",
		},
		{
			name: "groups joined disjunctively",
			groups: []RuleGroup{
				group(LogicAnd, Rule{Field: "total_spend", Operator: ">", Value: NumberValue(1000)}),
				group(LogicAnd, Rule{Field: "status", Operator: "=", Value: StringValue("CHURNED")}),
			},
			want: "(total_spend > 1000 OR status = 'CHURNED')",
		},
		{
			name: "numeric equality on numeric field stays unquoted",
			groups: []RuleGroup{group(LogicAnd,
				Rule{Field: "total_orders", Operator: "=", Value: NumberValue(0)})},
			want: "total_orders = 0",
		},
		{
			name: "string equality quotes",
			groups: []RuleGroup{group(LogicAnd,
				Rule{Field: "name", Operator: "!=", Value: StringValue("Asha")})},
			want: "name != 'Asha'",
		},
		{
			name: "contains renders ILIKE with wildcards",
			groups: []RuleGroup{group(LogicAnd,
				Rule{Field: "email", Operator: "contains", Value: StringValue("gmail")})},
			want: "email ILIKE '%gmail%'",
		},
		{
			name: "starts_with anchors the prefix",
			groups: []RuleGroup{group(LogicAnd,
				Rule{Field: "name", Operator: "starts_with", Value: StringValue("A")})},
			want: "name ILIKE 'A%'",
		},
		{
			name: "ends_with anchors the suffix",
			groups: []RuleGroup{group(LogicAnd,
				Rule{Field: "email", Operator: "ends_with", Value: StringValue("@gmail.com")})},
			want: "email ILIKE '%@gmail.com'",
		},
		{
			name: "not_contains renders NOT ILIKE",
			groups: []RuleGroup{group(LogicAnd,
				Rule{Field: "email", Operator: "not_contains", Value: StringValue("spam")})},
			want: "email NOT ILIKE '%spam%'",
		},
		{
			name: "embedded quotes are doubled",
			groups: []RuleGroup{group(LogicAnd,
				Rule{Field: "name", Operator: "contains", Value: StringValue("O'Brien")})},
			want: "name ILIKE '%O''Brien%'",
		},
		{
			name: "injection attempt stays inside the literal",
			groups: []RuleGroup{group(LogicAnd,
				Rule{Field: "name", Operator: "=", Value: StringValue("x'; DROP TABLE customers_mv; --")})},
			want: "name = 'x''; DROP TABLE customers_mv; --'",
		},
		{
			name:   "empty group is a contradiction",
			groups: []RuleGroup{group(LogicAnd)},
			want:   "1=0",
		},
		{
			name: "mixed empty and real groups",
			groups: []RuleGroup{
				group(LogicAnd),
				group(LogicAnd, Rule{Field: "status", Operator: "=", Value: StringValue("ACTIVE")}),
			},
			want: "(1=0 OR status = 'ACTIVE')",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, renderGroups(t, tt.groups))
		})
	}
}

func TestRenderSQLEmptyRuleSet(t *testing.T) {
	expr, err := Compile(nil)
	require.NoError(t, err)
	require.Nil(t, expr)

	sql, err := RenderSQL(expr)
	require.NoError(t, err)
	assert.Equal(t, "", sql)
}

func TestRenderSQLNumberFormatting(t *testing.T) {
	// No trailing zeros, no scientific notation.
	assert.Equal(t, "total_spend > 250.5", renderGroups(t, []RuleGroup{group(LogicAnd,
		Rule{Field: "total_spend", Operator: ">", Value: NumberValue(250.5)})}))
	assert.Equal(t, "total_spend > 1000000", renderGroups(t, []RuleGroup{group(LogicAnd,
		Rule{Field: "total_spend", Operator: ">", Value: NumberValue(1e6)})}))
}
