package filters

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monitorss/internal/logger"
	"monitorss/pkg/cel"
)

func newChecker(t *testing.T) *Checker {
	t.Helper()
	eval, err := cel.NewEvaluator()
	require.NoError(t, err)
	return NewChecker(eval, logger.NopLogger())
}

func TestChecker_Check(t *testing.T) {
	c := newChecker(t)
	ctx := context.Background()

	tests := []struct {
		name string
		p    Predicate
		want bool
	}{
		{name: "empty predicate passes", p: Predicate{}, want: true},
		{name: "expression blocks", p: Predicate{Expression: Condition(OpEq, "author", "x")}, want: false},
		{name: "cel passes", p: Predicate{CEL: `article["title"].contains("Go")`}, want: true},
		{name: "cel blocks", p: Predicate{CEL: `feed_id == "other"`}, want: false},
		{name: "cel runtime error blocks", p: Predicate{CEL: `article["missing"] == "x"`}, want: false},
		{name: "both pass", p: Predicate{Expression: Condition(OpContains, "title", "go"), CEL: `destination_id == "d1"`}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := c.Check(ctx, tt.p, article, "f1", "d1")
			assert.Equal(t, tt.want, res.Passed)
			if !tt.want {
				assert.NotEmpty(t, res.ExplainBlocked)
			}
		})
	}
}

func TestChecker_Validate(t *testing.T) {
	c := newChecker(t)

	assert.NoError(t, c.Validate(Predicate{CEL: `feed_id == "a"`}))
	assert.Error(t, c.Validate(Predicate{CEL: `feed_id`}))
	assert.Error(t, c.Validate(Predicate{Expression: Or()}))

	noCEL := NewChecker(nil, logger.NopLogger())
	assert.Error(t, noCEL.Validate(Predicate{CEL: `feed_id == "a"`}))
}
