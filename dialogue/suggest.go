package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tbxark/appraisalagent/llm"
)

var ErrNoResponses = errors.New("no questionnaire answers to reflect on")

const suggestionPromptTemplate = `You are an AI assistant helping an employee reflect on their work.
Summarize the following answers into strengths, weaknesses, goals, and performance rating out of 5:

%s`

// Suggester turns questionnaire answers into reflection notes for the employee.
type Suggester struct {
	generator llm.Generator
}

func NewSuggester(generator llm.Generator) *Suggester {
	return &Suggester{generator: generator}
}

func (s *Suggester) Suggest(ctx context.Context, responses []string) (string, error) {
	var b strings.Builder
	n := 0
	for _, r := range responses {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		n++
		fmt.Fprintf(&b, "Q%d: %s\n", n, r)
	}
	if n == 0 {
		return "", ErrNoResponses
	}
	text, err := s.generator.Generate(ctx, fmt.Sprintf(suggestionPromptTemplate, b.String()))
	if err != nil {
		return "", fmt.Errorf("%w: self-appraisal suggestions: %v", llm.ErrGeneration, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: self-appraisal suggestions: %v", llm.ErrGeneration, llm.ErrEmptyResponse)
	}
	return text, nil
}
