// Package placeholders derives custom placeholders from article values by
// running ordered transformation steps.
package placeholders

import (
	"encoding/json"
	"fmt"
)

// KeyPrefix is prepended to a custom placeholder's reference name.
const KeyPrefix = "custom::"

// StepType identifies a transformation step.
type StepType string

const (
	StepRegex      StepType = "REGEX"
	StepDateFormat StepType = "DATE_FORMAT"
	StepURLEncode  StepType = "URL_ENCODE"
	StepUppercase  StepType = "UPPERCASE"
	StepLowercase  StepType = "LOWERCASE"
)

// Step is one transformation. The concrete types are RegexStep,
// DateFormatStep, URLEncodeStep, UppercaseStep and LowercaseStep.
type Step interface {
	StepType() StepType
}

// RegexStep replaces matches of Search in the input.
type RegexStep struct {
	Search string `json:"regexSearch"`
	// Flags follow the g/i/m/s convention. Empty means "gmi".
	Flags       string  `json:"regexSearchFlags,omitempty"`
	Replacement *string `json:"replacementString,omitempty"`
	// FallbackOnNoMatch is emitted when nothing matches.
	FallbackOnNoMatch *string `json:"fallbackOnNoMatch,omitempty"`
	// MatchIndex and GroupNum extract one match instead of replacing.
	MatchIndex *int `json:"matchIndex,omitempty"`
	GroupNum   *int `json:"groupNum,omitempty"`
}

// DateFormatStep reformats a date string.
type DateFormatStep struct {
	Format   string `json:"format"`
	Timezone string `json:"timezone,omitempty"`
	Locale   string `json:"locale,omitempty"`
}

type URLEncodeStep struct{}

type UppercaseStep struct{}

type LowercaseStep struct{}

func (RegexStep) StepType() StepType      { return StepRegex }
func (DateFormatStep) StepType() StepType { return StepDateFormat }
func (URLEncodeStep) StepType() StepType  { return StepURLEncode }
func (UppercaseStep) StepType() StepType  { return StepUppercase }
func (LowercaseStep) StepType() StepType  { return StepLowercase }

// Steps is an ordered step list with a type-tagged JSON form.
type Steps []Step

func (s Steps) MarshalJSON() ([]byte, error) {
	out := make([]json.RawMessage, 0, len(s))
	for _, step := range s {
		body, err := json.Marshal(step)
		if err != nil {
			return nil, err
		}

		var fields map[string]interface{}
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, err
		}
		if fields == nil {
			fields = make(map[string]interface{}, 1)
		}
		fields["type"] = step.StepType()

		tagged, err := json.Marshal(fields)
		if err != nil {
			return nil, err
		}
		out = append(out, tagged)
	}
	return json.Marshal(out)
}

func (s *Steps) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	steps := make(Steps, 0, len(raw))
	for i, item := range raw {
		var head struct {
			Type StepType `json:"type"`
		}
		if err := json.Unmarshal(item, &head); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}

		var step Step
		switch head.Type {
		case StepRegex:
			var r RegexStep
			if err := json.Unmarshal(item, &r); err != nil {
				return fmt.Errorf("step %d: %w", i, err)
			}
			step = r
		case StepDateFormat:
			var d DateFormatStep
			if err := json.Unmarshal(item, &d); err != nil {
				return fmt.Errorf("step %d: %w", i, err)
			}
			step = d
		case StepURLEncode:
			step = URLEncodeStep{}
		case StepUppercase:
			step = UppercaseStep{}
		case StepLowercase:
			step = LowercaseStep{}
		default:
			return fmt.Errorf("step %d: unknown step type %q", i, head.Type)
		}
		steps = append(steps, step)
	}

	*s = steps
	return nil
}

// CustomPlaceholder is a user-defined placeholder derived from another one.
type CustomPlaceholder struct {
	ID                string `json:"id,omitempty"`
	ReferenceName     string `json:"referenceName"`
	SourcePlaceholder string `json:"sourcePlaceholder"`
	Steps             Steps  `json:"steps"`
}

// Key is the placeholder name templates use, e.g. custom::title-short.
func (c CustomPlaceholder) Key() string {
	return KeyPrefix + c.ReferenceName
}

// Preview lists the value before the first step and after every step.
type Preview struct {
	ReferenceName string   `json:"referenceName"`
	Outputs       []string `json:"outputs"`
}

// Result holds the rendered custom placeholders of one article.
type Result struct {
	// Values maps custom::<name> to the final value.
	Values   map[string]string `json:"values"`
	Previews []Preview         `json:"previews"`
}
