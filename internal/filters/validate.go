package filters

import (
	"fmt"
	"regexp"

	apperrors "monitorss/pkg/errors"
)

// MaxDepth is the deepest nesting of logical nodes accepted below the root.
const MaxDepth = 9

// Validate checks a tree before it is stored or evaluated. A nil expression
// is valid and always passes.
func Validate(expr Expression) error {
	if expr == nil {
		return nil
	}

	if problems := Problems(expr); len(problems) > 0 {
		return apperrors.ErrInvalidExpression.WithDetail("errors", problems)
	}
	return nil
}

// Problems lists every validation failure with its path from the root.
func Problems(expr Expression) []string {
	if expr == nil {
		return nil
	}
	return validateNode(expr, "root.", 0)
}

func validateNode(expr Expression, path string, depth int) []string {
	switch e := expr.(type) {
	case *LogicalExpression:
		return validateLogical(e, path, depth)
	case *RelationalExpression:
		return validateRelational(e, path)
	case nil:
		return []string{fmt.Sprintf("Expected %s to be an expression but got null", path)}
	default:
		return []string{fmt.Sprintf("Expected %stype to be one of %s,%s but got %T", path, TypeLogical, TypeRelational, expr)}
	}
}

func validateLogical(e *LogicalExpression, path string, depth int) []string {
	if e == nil {
		return []string{fmt.Sprintf("Expected %s to be an expression but got null", path)}
	}
	if depth > MaxDepth {
		return []string{"Depth of logical expression is too deep."}
	}

	switch e.Op {
	case OpAnd, OpOr:
	default:
		return []string{fmt.Sprintf("Expected %sop to be one of %s,%s but got %s", path, OpAnd, OpOr, e.Op)}
	}

	if len(e.Children) == 0 {
		return []string{fmt.Sprintf("Expected %schildren to contain at least one expression", path)}
	}

	var problems []string
	for i, child := range e.Children {
		problems = append(problems, validateNode(child, fmt.Sprintf("%schildren[%d].", path, i), depth+1)...)
	}
	return problems
}

func validateRelational(e *RelationalExpression, path string) []string {
	if e == nil {
		return []string{fmt.Sprintf("Expected %s to be an expression but got null", path)}
	}

	switch e.Op {
	case OpEq, OpContains, OpMatches, OpNotContain:
	default:
		return []string{fmt.Sprintf("Expected %sop to be one of %s,%s,%s,%s but got %s",
			path, OpEq, OpContains, OpMatches, OpNotContain, e.Op)}
	}

	var problems []string
	problems = append(problems, validateOperand(e.Left, path+"left.")...)
	problems = append(problems, validateOperand(e.Right, path+"right.")...)

	if e.Op == OpMatches && e.Right.Type == OperandString {
		if _, err := regexp.Compile(e.Right.Value); err != nil {
			problems = append(problems, fmt.Sprintf("Expected %sright.value to be a valid regex: %v", path, err))
		}
	}
	return problems
}

func validateOperand(o Operand, path string) []string {
	switch o.Type {
	case OperandArticle:
		if o.Value == "" {
			return []string{fmt.Sprintf("Expected %svalue to name a placeholder", path)}
		}
	case OperandString:
	default:
		return []string{fmt.Sprintf("Expected %stype to be one of %s,%s but got %s", path, OperandArticle, OperandString, o.Type)}
	}
	return nil
}
