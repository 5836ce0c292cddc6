package form

import (
	"reflect"
	"strings"
	"testing"
)

func TestMissing(t *testing.T) {
	tests := []struct {
		name    string
		project Project
		want    []Field
	}{
		{
			name:    "empty project",
			project: Project{},
			want:    []Field{Delivery, Accomplishments, Approach, Improvement, Timeframe},
		},
		{
			name: "null equivalents are missing",
			project: Project{
				Delivery:        "n/a",
				Accomplishments: "NONE",
				Approach:        "  Not Specified  ",
				Improvement:     "   ",
				Timeframe:       "Q2 2024",
			},
			want: []Field{Delivery, Accomplishments, Approach, Improvement},
		},
		{
			name: "schema order is kept",
			project: Project{
				Delivery: "a reporting dashboard",
				Approach: "Python",
			},
			want: []Field{Accomplishments, Improvement, Timeframe},
		},
		{
			name: "complete",
			project: Project{
				Delivery:        "dashboard",
				Accomplishments: "cut report time in half",
				Approach:        "Python",
				Improvement:     "more tests",
				Timeframe:       "June",
			},
			want: []Field{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Missing(tt.project)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Missing() = %v, want %v", got, tt.want)
			}
			if again := Missing(tt.project); !reflect.DeepEqual(got, again) {
				t.Errorf("Missing() is not idempotent: %v then %v", got, again)
			}
		})
	}
}

func TestIsBlank(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"", true},
		{"n/a", true},
		{"N/A", true},
		{"NONE", true},
		{"none", true},
		{"Not Specified", true},
		{" not specified\t", true},
		{"no", false},
		{"nothing much", false},
		{"n/a yet", false},
	}
	for _, tt := range tests {
		if got := IsBlank(tt.value); got != tt.want {
			t.Errorf("IsBlank(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestProjectFromMap(t *testing.T) {
	p := ProjectFromMap(map[string]any{
		"delivery":  "dashboard",
		"approach":  42,
		"timeframe": nil,
		"unknown":   "ignored",
	})
	if want := (Project{Delivery: "dashboard"}); p != want {
		t.Errorf("ProjectFromMap() = %+v, want %+v", p, want)
	}
	if n := len(p.Map()); n != 5 {
		t.Errorf("Map() has %d keys, want 5", n)
	}
}

func TestMissingFacts(t *testing.T) {
	facts := MissingFacts(Project{Delivery: "x", Accomplishments: "y", Approach: "z", Improvement: "w"})
	if len(facts) != 1 {
		t.Fatalf("MissingFacts() returned %d facts, want 1", len(facts))
	}
	f := facts[0]
	if f.JSONPointer != "/timeframe" || f.Description != Describe(Timeframe) || !f.Required {
		t.Errorf("MissingFacts()[0] = %+v", f)
	}
}

func TestJSONSchemaCarriesDescriptions(t *testing.T) {
	schema, err := JSONSchema()
	if err != nil {
		t.Fatalf("JSONSchema() error: %v", err)
	}
	for _, f := range RequiredFields() {
		if !strings.Contains(schema, Describe(f)) {
			t.Errorf("schema lacks the description of %s", f)
		}
	}
}

func TestSummaryRendersValues(t *testing.T) {
	s := Summary(Project{Delivery: "dashboard\nand API", Timeframe: "June"})
	for _, want := range []string{"dashboard / and API", "June", "N/A"} {
		if !strings.Contains(s, want) {
			t.Errorf("summary lacks %q:\n%s", want, s)
		}
	}
	if strings.Contains(s, "dashboard\nand") {
		t.Errorf("summary kept a raw newline:\n%s", s)
	}
}
