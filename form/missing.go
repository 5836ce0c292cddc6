package form

import (
	"strings"

	"github.com/tbxark/appraisalagent/types"
)

var nullEquivalents = map[string]struct{}{
	"":              {},
	"n/a":           {},
	"none":          {},
	"not specified": {},
}

// IsBlank reports whether v carries no usable content: empty after trimming,
// or one of the recognized placeholders, case-insensitively.
func IsBlank(v string) bool {
	_, ok := nullEquivalents[strings.ToLower(strings.TrimSpace(v))]
	return ok
}

// Missing returns the unfilled required fields in schema order.
func Missing(p Project) []Field {
	missing := make([]Field, 0, len(requiredFields))
	for _, f := range requiredFields {
		if IsBlank(p.Get(f)) {
			missing = append(missing, f)
		}
	}
	return missing
}

func MissingFacts(p Project) []types.FieldInfo {
	missing := Missing(p)
	out := make([]types.FieldInfo, 0, len(missing))
	for _, f := range missing {
		out = append(out, f.Info())
	}
	return out
}

// Summary renders every field with its description, used when the form completes.
func Summary(p Project) string {
	rows := make([][]string, 0, len(requiredFields))
	for _, f := range requiredFields {
		v := strings.TrimSpace(p.Get(f))
		if v == "" {
			v = "N/A"
		}
		rows = append(rows, []string{descriptions[f], strings.ReplaceAll(v, "\n", " / ")})
	}
	return types.FormatTable([]string{"Field", "Value"}, rows)
}
