package types

import (
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
)

// FormatHistory renders turns as "User: ..." / "Assistant: ..." lines.
func FormatHistory(turns []Turn) string {
	if len(turns) == 0 {
		return ""
	}
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, speakerLabel(t.Speaker)+": "+t.Text)
	}
	return strings.Join(lines, "\n")
}

// LastTurns returns at most n trailing turns without copying the backing array.
func LastTurns(turns []Turn, n int) []Turn {
	if n <= 0 {
		return nil
	}
	if len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}

func speakerLabel(s Speaker) string {
	switch s {
	case SpeakerUser:
		return "User"
	case SpeakerAssistant:
		return "Assistant"
	default:
		if s == "" {
			return "Unknown"
		}
		return strings.ToUpper(string(s[:1])) + string(s[1:])
	}
}

func FormatMissingFields(fields []FieldInfo) string {
	if len(fields) == 0 {
		return ""
	}
	rows := make([][]string, 0, len(fields))
	for _, f := range fields {
		rows = append(rows, []string{f.DisplayName, f.JSONPointer, f.Description})
	}
	return "# Missing required fields:\n" + FormatTable([]string{"Field", "Pointer", "Description"}, rows)
}

// FormatTable renders a markdown table.
func FormatTable(header []string, rows [][]string) string {
	var buf strings.Builder
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header(toAny(header)...)
	for _, row := range rows {
		_ = table.Append(toAny(row)...)
	}
	_ = table.Render()
	return buf.String()
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
