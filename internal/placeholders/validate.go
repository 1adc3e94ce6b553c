package placeholders

import (
	"fmt"
	"strings"

	apperrors "monitorss/pkg/errors"
)

// Validate rejects definitions that cannot be rendered: missing names, empty
// step lists, duplicate reference names and regex steps that do not compile.
func Validate(defs []CustomPlaceholder) error {
	seen := make(map[string]struct{}, len(defs))

	for i, def := range defs {
		path := fmt.Sprintf("customPlaceholders[%d]", i)

		if strings.TrimSpace(def.ReferenceName) == "" {
			return apperrors.ErrValidation.WithDetail("field", path+".referenceName")
		}
		if _, dup := seen[def.ReferenceName]; dup {
			return apperrors.ErrValidation.
				WithDetail("field", path+".referenceName").
				WithDetail("reason", "duplicate reference name")
		}
		seen[def.ReferenceName] = struct{}{}

		if strings.TrimSpace(def.SourcePlaceholder) == "" {
			return apperrors.ErrValidation.WithDetail("field", path+".sourcePlaceholder")
		}
		if len(def.Steps) == 0 {
			return apperrors.ErrValidation.
				WithDetail("field", path+".steps").
				WithDetail("reason", "at least one step is required")
		}

		for j, step := range def.Steps {
			r, ok := step.(RegexStep)
			if !ok {
				continue
			}
			if _, _, err := compileRegex(r.Search, r.Flags); err != nil {
				return apperrors.ErrRegexEval.
					WithCause(err).
					WithDetail("field", fmt.Sprintf("%s.steps[%d].regexSearch", path, j))
			}
		}
	}

	return nil
}
