// Package form defines the self-appraisal project form: its required fields,
// their descriptions and the completeness rules applied to them.
package form

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/eino-contrib/jsonschema"
	"github.com/tbxark/appraisalagent/types"
)

type Field string

const (
	Delivery        Field = "delivery"
	Accomplishments Field = "accomplishments"
	Approach        Field = "approach"
	Improvement     Field = "improvement"
	Timeframe       Field = "timeframe"
)

// requiredFields is the canonical order; missing fields are always reported in it.
var requiredFields = []Field{Delivery, Accomplishments, Approach, Improvement, Timeframe}

var descriptions = map[Field]string{
	Delivery:        "Delivery Details - What was delivered/completed in this project?",
	Accomplishments: "Highlight of Accomplishments - What were your key achievements?",
	Approach:        "Approach/Solution taken - What methods or strategies did you use?",
	Improvement:     "Improvement possibilities - What could be done better next time?",
	Timeframe:       "Time frame of the project/Job - When did this project take place?",
}

var displayNames = map[Field]string{
	Delivery:        "Delivery Details",
	Accomplishments: "Highlight of Accomplishments",
	Approach:        "Approach/Solution taken",
	Improvement:     "Improvement possibilities",
	Timeframe:       "Time frame",
}

// RequiredFields returns the required fields in schema order.
func RequiredFields() []Field {
	out := make([]Field, len(requiredFields))
	copy(out, requiredFields)
	return out
}

// Descriptions returns a fresh name -> description mapping.
func Descriptions() map[Field]string {
	out := make(map[Field]string, len(descriptions))
	for k, v := range descriptions {
		out[k] = v
	}
	return out
}

func Describe(f Field) string {
	return descriptions[f]
}

func (f Field) Valid() bool {
	_, ok := descriptions[f]
	return ok
}

func (f Field) Pointer() string {
	return "/" + string(f)
}

func (f Field) Info() types.FieldInfo {
	return types.FieldInfo{
		Name:        string(f),
		JSONPointer: f.Pointer(),
		DisplayName: displayNames[f],
		Description: descriptions[f],
		Required:    true,
	}
}

// Pointers lists the JSON pointers an extraction patch may touch.
func Pointers() map[string]bool {
	out := make(map[string]bool, len(requiredFields))
	for _, f := range requiredFields {
		out[f.Pointer()] = true
	}
	return out
}

// Project holds the five appraisal fields. Unfilled fields are empty strings.
type Project struct {
	Delivery        string `json:"delivery" jsonschema:"description=Delivery Details - What was delivered/completed in this project?"`
	Accomplishments string `json:"accomplishments" jsonschema:"description=Highlight of Accomplishments - What were your key achievements?"`
	Approach        string `json:"approach" jsonschema:"description=Approach/Solution taken - What methods or strategies did you use?"`
	Improvement     string `json:"improvement" jsonschema:"description=Improvement possibilities - What could be done better next time?"`
	Timeframe       string `json:"timeframe" jsonschema:"description=Time frame of the project/Job - When did this project take place?"`
}

func (p Project) Get(f Field) string {
	switch f {
	case Delivery:
		return p.Delivery
	case Accomplishments:
		return p.Accomplishments
	case Approach:
		return p.Approach
	case Improvement:
		return p.Improvement
	case Timeframe:
		return p.Timeframe
	default:
		return ""
	}
}

func (p *Project) Set(f Field, v string) {
	switch f {
	case Delivery:
		p.Delivery = v
	case Accomplishments:
		p.Accomplishments = v
	case Approach:
		p.Approach = v
	case Improvement:
		p.Improvement = v
	case Timeframe:
		p.Timeframe = v
	}
}

// Map returns all five keys, including empty ones.
func (p Project) Map() map[string]string {
	out := make(map[string]string, len(requiredFields))
	for _, f := range requiredFields {
		out[string(f)] = p.Get(f)
	}
	return out
}

// ProjectFromMap builds a Project from loosely typed input. Absent keys and
// non-string values become empty strings; unknown keys are ignored.
func ProjectFromMap(m map[string]any) Project {
	var p Project
	for _, f := range requiredFields {
		if s, ok := m[string(f)].(string); ok {
			p.Set(f, s)
		}
	}
	return p
}

func JSONSchema() (string, error) {
	schema := jsonschema.Reflect(&Project{})
	schema.Title = "Self-appraisal project entry"
	schema.Description = "One project of an employee self-appraisal. Every field is free text."
	b, err := sonic.Marshal(schema)
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON schema: %w", err)
	}
	return string(b), nil
}
