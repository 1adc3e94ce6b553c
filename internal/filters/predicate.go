package filters

import (
	"context"

	"monitorss/internal/logger"
	"monitorss/pkg/cel"
	"monitorss/pkg/metrics"
)

// Predicate is the complete filter configuration of a destination or mention
// target: an expression tree plus an optional CEL expression over the same
// placeholders. Both must pass.
type Predicate struct {
	Expression Expression `json:"expression,omitempty"`
	CEL        string     `json:"cel,omitempty"`
}

// IsEmpty reports whether the predicate lets everything through.
func (p Predicate) IsEmpty() bool {
	return p.Expression == nil && p.CEL == ""
}

// Checker evaluates predicates.
type Checker struct {
	cel    *cel.Evaluator
	logger logger.Logger
}

// NewChecker creates a Checker. eval may be nil when CEL predicates are not used.
func NewChecker(eval *cel.Evaluator, log logger.Logger) *Checker {
	return &Checker{cel: eval, logger: log}
}

// Validate checks both parts of p.
func (c *Checker) Validate(p Predicate) error {
	if err := Validate(p.Expression); err != nil {
		return err
	}
	if p.CEL == "" {
		return nil
	}
	if c.cel == nil {
		return errCELUnavailable
	}
	if err := c.cel.ValidateFilterExpression(p.CEL); err != nil {
		return errInvalidCEL.WithCause(err)
	}
	return nil
}

// Check evaluates p. A CEL runtime error blocks the article.
func (c *Checker) Check(ctx context.Context, p Predicate, placeholders map[string]string, feedID, destinationID string) Result {
	res := Explain(p.Expression, placeholders)
	if !res.Passed || p.CEL == "" {
		c.observe(res.Passed)
		return res
	}

	if c.cel == nil {
		res = blockedBy("Advanced filter is not available", p.CEL)
		c.observe(false)
		return res
	}

	passed, err := c.cel.EvaluateFilter(ctx, p.CEL, cel.Vars{
		Article:       placeholders,
		FeedID:        feedID,
		DestinationID: destinationID,
	})
	if err != nil {
		c.logger.WarnwCtx(ctx, "Advanced filter evaluation failed, blocking article",
			"expression", p.CEL,
			"error", err,
		)
		res = blockedBy("Advanced filter failed to evaluate", p.CEL)
	} else if !passed {
		res = blockedBy("Advanced filter did not match", p.CEL)
	}

	c.observe(res.Passed)
	return res
}

func (c *Checker) observe(passed bool) {
	status := "passed"
	if !passed {
		status = "blocked"
	}
	metrics.FilterEvaluationsTotal.WithLabelValues(status).Inc()
}

func blockedBy(message, input string) Result {
	return Result{
		Passed:         false,
		ExplainBlocked: []ExplainBlocked{{Message: message, FilterInput: input}},
	}
}
