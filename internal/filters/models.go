// Package filters evaluates user-defined boolean filter expressions against
// article placeholders.
package filters

import (
	"encoding/json"
	"fmt"
)

type ExpressionType string

const (
	TypeRelational ExpressionType = "RELATIONAL"
	TypeLogical    ExpressionType = "LOGICAL"
)

type LogicalOperator string

const (
	OpAnd LogicalOperator = "AND"
	OpOr  LogicalOperator = "OR"
)

type RelationalOperator string

const (
	OpEq         RelationalOperator = "EQ"
	OpContains   RelationalOperator = "CONTAINS"
	OpMatches    RelationalOperator = "MATCHES"
	OpNotContain RelationalOperator = "NOT_CONTAIN"
)

// OperandType says whether an operand names a placeholder or is a literal.
type OperandType string

const (
	OperandArticle OperandType = "ARTICLE"
	OperandString  OperandType = "STRING"
)

type Operand struct {
	Type  OperandType `json:"type"`
	Value string      `json:"value"`
}

// Expression is either *LogicalExpression or *RelationalExpression.
type Expression interface {
	ExpressionType() ExpressionType
}

type LogicalExpression struct {
	Op       LogicalOperator `json:"op"`
	Children []Expression    `json:"children"`
}

type RelationalExpression struct {
	Op    RelationalOperator `json:"op"`
	Not   bool               `json:"not,omitempty"`
	Left  Operand            `json:"left"`
	Right Operand            `json:"right"`
}

func (*LogicalExpression) ExpressionType() ExpressionType    { return TypeLogical }
func (*RelationalExpression) ExpressionType() ExpressionType { return TypeRelational }

// And builds a LOGICAL AND node.
func And(children ...Expression) *LogicalExpression {
	return &LogicalExpression{Op: OpAnd, Children: children}
}

// Or builds a LOGICAL OR node.
func Or(children ...Expression) *LogicalExpression {
	return &LogicalExpression{Op: OpOr, Children: children}
}

// Condition builds a relational node comparing a placeholder with a literal.
func Condition(op RelationalOperator, placeholder, value string) *RelationalExpression {
	return &RelationalExpression{
		Op:    op,
		Left:  Operand{Type: OperandArticle, Value: placeholder},
		Right: Operand{Type: OperandString, Value: value},
	}
}

// Negate returns a copy of r with the Not flag flipped.
func (r *RelationalExpression) Negate() *RelationalExpression {
	cp := *r
	cp.Not = !cp.Not
	return &cp
}

func (l *LogicalExpression) MarshalJSON() ([]byte, error) {
	children := l.Children
	if children == nil {
		children = []Expression{}
	}
	return json.Marshal(struct {
		Type     ExpressionType  `json:"type"`
		Op       LogicalOperator `json:"op"`
		Children []Expression    `json:"children"`
	}{TypeLogical, l.Op, children})
}

func (r *RelationalExpression) MarshalJSON() ([]byte, error) {
	type plain RelationalExpression
	return json.Marshal(struct {
		Type ExpressionType `json:"type"`
		*plain
	}{TypeRelational, (*plain)(r)})
}

// Parse decodes a JSON expression tree. It checks structure only; call
// Validate before evaluating user input.
func Parse(data []byte) (Expression, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	var exprType ExpressionType
	if t, ok := raw["type"]; ok {
		if err := json.Unmarshal(t, &exprType); err != nil {
			return nil, fmt.Errorf("type: %w", err)
		}
	}

	switch exprType {
	case TypeLogical:
		var node struct {
			Op       LogicalOperator   `json:"op"`
			Children []json.RawMessage `json:"children"`
		}
		if err := json.Unmarshal(data, &node); err != nil {
			return nil, err
		}

		expr := &LogicalExpression{Op: node.Op, Children: make([]Expression, 0, len(node.Children))}
		for i, c := range node.Children {
			child, err := Parse(c)
			if err != nil {
				return nil, fmt.Errorf("children[%d]: %w", i, err)
			}
			if child == nil {
				return nil, fmt.Errorf("children[%d]: null expression", i)
			}
			expr.Children = append(expr.Children, child)
		}
		return expr, nil
	case TypeRelational:
		var expr RelationalExpression
		if err := json.Unmarshal(data, &expr); err != nil {
			return nil, err
		}
		return &expr, nil
	default:
		return nil, fmt.Errorf("unknown expression type %q", exprType)
	}
}
