package filters

import (
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ExplainBlocked describes one condition that failed.
type ExplainBlocked struct {
	Message        string  `json:"message"`
	ReferenceValue *string `json:"referenceValue"`
	FilterInput    string  `json:"filterInput"`
}

// Result is the outcome of Explain.
type Result struct {
	Passed         bool             `json:"result"`
	ExplainBlocked []ExplainBlocked `json:"explainBlocked"`
}

// Evaluate reports whether placeholders pass expr. A nil expression passes.
// Trees are assumed to have passed Validate.
func Evaluate(expr Expression, placeholders map[string]string) bool {
	return evaluate(expr, placeholders, nil)
}

// Explain evaluates expr and collects the conditions responsible for a block.
func Explain(expr Expression, placeholders map[string]string) Result {
	var blocked []ExplainBlocked
	passed := evaluate(expr, placeholders, &blocked)
	if passed {
		blocked = nil
	}
	if blocked == nil {
		blocked = []ExplainBlocked{}
	}
	return Result{Passed: passed, ExplainBlocked: blocked}
}

func evaluate(expr Expression, placeholders map[string]string, explain *[]ExplainBlocked) bool {
	switch e := expr.(type) {
	case nil:
		return true
	case *LogicalExpression:
		if e == nil {
			return true
		}
		return evaluateLogical(e, placeholders, explain)
	case *RelationalExpression:
		if e == nil {
			return true
		}
		return evaluateRelational(e, placeholders, explain)
	default:
		return false
	}
}

func evaluateLogical(e *LogicalExpression, placeholders map[string]string, explain *[]ExplainBlocked) bool {
	switch e.Op {
	case OpAnd:
		for _, child := range e.Children {
			if !evaluate(child, placeholders, explain) {
				return false
			}
		}
		return true
	case OpOr:
		if len(e.Children) == 0 {
			return true
		}
		mark := 0
		if explain != nil {
			mark = len(*explain)
		}
		for _, child := range e.Children {
			if evaluate(child, placeholders, explain) {
				if explain != nil {
					*explain = (*explain)[:mark]
				}
				return true
			}
		}
		return false
	default:
		return false
	}
}

func evaluateRelational(e *RelationalExpression, placeholders map[string]string, explain *[]ExplainBlocked) bool {
	left, leftOK := resolve(e.Left, placeholders)
	right, rightOK := resolve(e.Right, placeholders)

	if !leftOK || !rightOK {
		record(explain, "Reference value does not exist", nil, right)
		return false
	}

	var matched bool
	var message string
	switch e.Op {
	case OpEq:
		matched = left == right
		message = "Reference value does not match filter input"
	case OpContains:
		matched = containsFold(left, right)
		message = "Reference value does not contain filter input"
	case OpNotContain:
		matched = !containsFold(left, right)
		message = "Reference value contains filter input"
	case OpMatches:
		re, err := compileCached(right)
		if err != nil {
			record(explain, "Filter input is not a valid regex", &left, right)
			return false
		}
		matched = re.MatchString(left)
		message = "Reference value does not match regex"
	default:
		return false
	}

	result := matched != e.Not
	if !result {
		if e.Not {
			message = "Negated condition matched"
		}
		record(explain, message, &left, right)
	}
	return result
}

func resolve(o Operand, placeholders map[string]string) (string, bool) {
	switch o.Type {
	case OperandArticle:
		v, ok := placeholders[o.Value]
		return v, ok
	case OperandString:
		return o.Value, true
	default:
		return "", false
	}
}

func record(explain *[]ExplainBlocked, message string, reference *string, input string) {
	if explain == nil {
		return
	}
	*explain = append(*explain, ExplainBlocked{
		Message:        message,
		ReferenceValue: reference,
		FilterInput:    input,
	})
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// regexCacheSize bounds the compiled MATCHES patterns kept between
// evaluations. Patterns come from user configuration.
const regexCacheSize = 512

var regexCache = mustRegexCache(regexCacheSize)

func mustRegexCache(size int) *lru.Cache[string, *regexp.Regexp] {
	c, err := lru.New[string, *regexp.Regexp](size)
	if err != nil {
		panic(err)
	}
	return c
}

func compileCached(pattern string) (*regexp.Regexp, error) {
	if re, ok := regexCache.Get(pattern); ok {
		return re, nil
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, err
	}
	regexCache.Add(pattern, re)
	return re, nil
}
