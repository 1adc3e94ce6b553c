package placeholders

import (
	"context"
	"fmt"
	"strings"

	"monitorss/internal/article"
	"monitorss/internal/logger"
	apperrors "monitorss/pkg/errors"
	"monitorss/pkg/metrics"
)

// Engine renders custom placeholders.
type Engine struct {
	logger logger.Logger
}

// NewEngine creates an Engine.
func NewEngine(log logger.Logger) *Engine {
	return &Engine{logger: log}
}

// Render computes every custom placeholder for a delivery. A step that fails
// yields an empty value for that placeholder only.
func (e *Engine) Render(ctx context.Context, a *article.Article, defs []CustomPlaceholder) Result {
	res, _ := e.render(ctx, a.Flattened, defs, false)
	return res
}

// RenderValues is Render over an already formatted placeholder map.
func (e *Engine) RenderValues(ctx context.Context, values map[string]string, defs []CustomPlaceholder) Result {
	res, _ := e.render(ctx, values, defs, false)
	return res
}

// Preview renders like Render but returns an ErrRegexEval error instead of
// degrading when a regex step cannot be evaluated.
func (e *Engine) Preview(ctx context.Context, values map[string]string, defs []CustomPlaceholder) (Result, error) {
	return e.render(ctx, values, defs, true)
}

func (e *Engine) render(ctx context.Context, values map[string]string, defs []CustomPlaceholder, strict bool) (Result, error) {
	working := make(map[string]string, len(values)+len(defs))
	for k, v := range values {
		working[k] = v
	}

	res := Result{
		Values:   make(map[string]string, len(defs)),
		Previews: make([]Preview, 0, len(defs)),
	}

	for _, def := range defs {
		source := working[def.SourcePlaceholder]
		preview := Preview{ReferenceName: def.ReferenceName, Outputs: []string{source}}

		value := ""
		if source != "" {
			out, outputs, err := e.runSteps(source, def.Steps)
			if err != nil {
				metrics.CustomPlaceholderErrorsTotal.WithLabelValues(string(StepRegex)).Inc()
				if strict {
					return Result{}, apperrors.ErrRegexEval.
						WithCause(err).
						WithDetail("referenceName", def.ReferenceName).
						WithDetail("input", outputs[len(outputs)-1])
				}
				e.logger.WarnwCtx(ctx, "Custom placeholder evaluation failed, using empty value",
					"reference_name", def.ReferenceName,
					"error", err,
				)
			} else {
				value = out
			}
			preview.Outputs = outputs
		}

		working[def.Key()] = value
		res.Values[def.Key()] = value
		res.Previews = append(res.Previews, preview)
	}

	return res, nil
}

// runSteps applies steps in order. outputs starts with the input and gains one
// entry per completed step.
func (e *Engine) runSteps(input string, steps Steps) (string, []string, error) {
	outputs := make([]string, 0, len(steps)+1)
	outputs = append(outputs, input)

	current := input
	for i, step := range steps {
		next, err := applyStep(current, step)
		if err != nil {
			return "", outputs, fmt.Errorf("step %d (%s) on %q: %w", i, step.StepType(), current, err)
		}
		current = next
		outputs = append(outputs, current)
	}
	return current, outputs, nil
}

func applyStep(input string, step Step) (string, error) {
	switch s := step.(type) {
	case RegexStep:
		return applyRegex(input, s)
	case *RegexStep:
		return applyRegex(input, *s)
	case DateFormatStep:
		return applyDateFormat(input, s), nil
	case *DateFormatStep:
		return applyDateFormat(input, *s), nil
	case URLEncodeStep, *URLEncodeStep:
		return encodeURIComponent(input), nil
	case UppercaseStep, *UppercaseStep:
		return strings.ToUpper(input), nil
	case LowercaseStep, *LowercaseStep:
		return strings.ToLower(input), nil
	default:
		return "", fmt.Errorf("unknown step type %T", step)
	}
}
