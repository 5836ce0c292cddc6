package patch

import (
	"fmt"
	"strings"

	"github.com/tbxark/appraisalagent/form"
)

// Merge computes the operations that fold newly extracted values into prior.
// Content is only ever added: a blank extraction leaves the field alone, a
// value already contained in the field is skipped, and anything else is
// appended on a new line. An extraction that already contains the prior
// value replaces it. Every replace is preceded by a test of the prior value.
func Merge(prior, extracted form.Project) []Operation {
	var ops []Operation
	for _, f := range form.RequiredFields() {
		next := strings.TrimSpace(extracted.Get(f))
		if form.IsBlank(next) {
			continue
		}
		old := prior.Get(f)
		cur := strings.TrimSpace(old)
		var value string
		switch {
		case form.IsBlank(cur):
			value = next
		case strings.Contains(cur, next):
			continue
		case strings.Contains(next, cur):
			value = next
		default:
			value = cur + "\n" + next
		}
		ops = append(ops,
			Operation{Op: OperationTest, Path: f.Pointer(), Value: old},
			Operation{Op: OperationReplace, Path: f.Pointer(), Value: value},
		)
	}
	return ops
}

// Apply validates ops against the form's field pointers and applies them.
// On any failure the project is returned unchanged with the error.
func Apply(p form.Project, ops []Operation) (form.Project, error) {
	if err := ValidatePatchOperations(ops, form.Pointers()); err != nil {
		return p, fmt.Errorf("invalid patch: %w", err)
	}
	return applyProject(p, ops)
}
