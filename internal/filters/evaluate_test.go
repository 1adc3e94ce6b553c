package filters

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var article = map[string]string{
	"title":       "Go 1.23 Released",
	"description": "Range over function iterators",
	"author":      "gopher",
}

func TestEvaluate_Relational(t *testing.T) {
	tests := []struct {
		name string
		expr Expression
		want bool
	}{
		{name: "eq match", expr: Condition(OpEq, "author", "gopher"), want: true},
		{name: "eq is case sensitive", expr: Condition(OpEq, "author", "Gopher"), want: false},
		{name: "contains ignores case", expr: Condition(OpContains, "title", "released"), want: true},
		{name: "contains miss", expr: Condition(OpContains, "title", "rust"), want: false},
		{name: "not contain", expr: Condition(OpNotContain, "title", "rust"), want: true},
		{name: "not contain present", expr: Condition(OpNotContain, "title", "go"), want: false},
		{name: "matches", expr: Condition(OpMatches, "title", `^go \d+\.\d+`), want: true},
		{name: "matches miss", expr: Condition(OpMatches, "title", `^rust`), want: false},
		{name: "invalid regex does not match", expr: Condition(OpMatches, "title", `(`), want: false},
		{name: "negate flips", expr: Condition(OpContains, "title", "rust").Negate(), want: true},
		{name: "negate flips match", expr: Condition(OpEq, "author", "gopher").Negate(), want: false},
		{name: "missing placeholder", expr: Condition(OpEq, "summary", ""), want: false},
		{name: "missing placeholder ignores negate", expr: Condition(OpContains, "summary", "x").Negate(), want: false},
		{
			name: "placeholder on the right",
			expr: &RelationalExpression{
				Op:    OpContains,
				Left:  Operand{Type: OperandString, Value: "Go 1.23 Released today"},
				Right: Operand{Type: OperandArticle, Value: "title"},
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.expr, article))
		})
	}
}

func TestEvaluate_Logical(t *testing.T) {
	pass := Condition(OpContains, "title", "go")
	fail := Condition(OpContains, "title", "rust")

	tests := []struct {
		name string
		expr Expression
		want bool
	}{
		{name: "nil passes", expr: nil, want: true},
		{name: "and all pass", expr: And(pass, pass), want: true},
		{name: "and one fails", expr: And(pass, fail), want: false},
		{name: "or first passes", expr: Or(pass, fail), want: true},
		{name: "or second passes", expr: Or(fail, pass), want: true},
		{name: "or none pass", expr: Or(fail, fail), want: false},
		{name: "nested", expr: And(Or(fail, pass), pass.Negate().Negate()), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.expr, article))
		})
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	expr := Or(Condition(OpMatches, "title", "released$"), Condition(OpEq, "author", "x"))
	for i := 0; i < 3; i++ {
		assert.True(t, Evaluate(expr, article))
	}
}

func TestExplain(t *testing.T) {
	res := Explain(And(Condition(OpContains, "title", "go"), Condition(OpEq, "author", "someone")), article)

	assert.False(t, res.Passed)
	require.Len(t, res.ExplainBlocked, 1)
	assert.Equal(t, "Reference value does not match filter input", res.ExplainBlocked[0].Message)
	require.NotNil(t, res.ExplainBlocked[0].ReferenceValue)
	assert.Equal(t, "gopher", *res.ExplainBlocked[0].ReferenceValue)
	assert.Equal(t, "someone", res.ExplainBlocked[0].FilterInput)
}

func TestExplain_PassingOrDropsChildExplanations(t *testing.T) {
	expr := And(
		Or(Condition(OpEq, "author", "nobody"), Condition(OpEq, "author", "gopher")),
		Condition(OpContains, "title", "rust"),
	)

	res := Explain(expr, article)

	assert.False(t, res.Passed)
	require.Len(t, res.ExplainBlocked, 1)
	assert.Equal(t, "rust", res.ExplainBlocked[0].FilterInput)
}

func TestExplain_MissingReference(t *testing.T) {
	res := Explain(Condition(OpEq, "missing", "x"), article)

	require.Len(t, res.ExplainBlocked, 1)
	assert.Equal(t, "Reference value does not exist", res.ExplainBlocked[0].Message)
	assert.Nil(t, res.ExplainBlocked[0].ReferenceValue)
}

func TestExplain_Passed(t *testing.T) {
	res := Explain(nil, article)
	assert.True(t, res.Passed)
	assert.Empty(t, res.ExplainBlocked)
}

func TestCompileCached_IsBounded(t *testing.T) {
	for i := 0; i < regexCacheSize+50; i++ {
		_, err := compileCached(fmt.Sprintf("^title %d$", i))
		require.NoError(t, err)
	}
	assert.Equal(t, regexCacheSize, regexCache.Len())

	re, err := compileCached("^GO")
	require.NoError(t, err)
	assert.True(t, re.MatchString("go 1.23"), "patterns are case-insensitive")
}
