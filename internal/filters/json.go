package filters

import (
	"encoding/json"

	apperrors "monitorss/pkg/errors"
)

var (
	errCELUnavailable = apperrors.ErrInvalidExpression.WithDetail("reason", "advanced filters are disabled")
	errInvalidCEL     = apperrors.ErrInvalidExpression.WithDetail("reason", "advanced filter does not compile")
)

func (p *Predicate) UnmarshalJSON(data []byte) error {
	var raw struct {
		Expression json.RawMessage `json:"expression"`
		CEL        string          `json:"cel"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	expr, err := Parse(raw.Expression)
	if err != nil {
		return apperrors.ErrInvalidExpression.WithCause(err)
	}

	p.Expression = expr
	p.CEL = raw.CEL
	return nil
}
