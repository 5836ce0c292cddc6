package intent

import (
	"context"
	"fmt"
	"strings"

	"github.com/tbxark/appraisalagent/llm"
	"github.com/tbxark/appraisalagent/types"
)

// DefaultHistoryWindow is how many trailing turns the classifier prompt sees.
const DefaultHistoryWindow = 5

const employeePromptTemplate = `You are a message classifier for an appraisal assistant. The user is an EMPLOYEE.
The conversation so far:
%s
User message: %q

Classify the intent into ONLY one of these:
- "self_appraisal_input": the employee is describing a project, its results, approach, improvements or dates for their self-appraisal.
- "prev_summary_query": the employee wants to see or understand their own past appraisal summary.
- "general_question": anything else.
Respond with just the category name.`

const reviewerPromptTemplate = `You are an intelligent message classifier for an HR appraisal assistant.
The user is an HR LEAD. Their role is to review employee appraisals, generate summaries, and predict performance scores.

The conversation so far:
%s

User message: %q

Classify their intent into ONLY one of the following categories:
- "prev_summary_query": asking for a summary of a past appraisal for a specific employee. (e.g., "Show me last year's summary for employee 1042")
- "self_appraisal_summary": wants a summary of an employee's recent self-appraisal. (e.g., "Summarize the self-appraisal of 101")
- "score_predicter": asking for a predicted performance score for a competency. (e.g., "What score would you give for this teamwork description?")
- "general_question": anything that doesn't fit the other categories. (e.g., "How does this tool work?")

Respond with only the category name and nothing else.`

type LLMRecognizer struct {
	generator     llm.Generator
	historyWindow int
}

type Option func(*LLMRecognizer)

func WithHistoryWindow(n int) Option {
	return func(r *LLMRecognizer) {
		r.historyWindow = n
	}
}

func NewLLMRecognizer(generator llm.Generator, opts ...Option) *LLMRecognizer {
	r := &LLMRecognizer{generator: generator, historyWindow: DefaultHistoryWindow}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *LLMRecognizer) RecognizeIntent(ctx context.Context, req *Request) (types.Intent, error) {
	if !req.Role.Valid() {
		return "", fmt.Errorf("unsupported role %q", req.Role)
	}
	template := employeePromptTemplate
	if req.Role.IsReviewer() {
		template = reviewerPromptTemplate
	}
	history := types.FormatHistory(types.LastTurns(req.History, r.historyWindow))
	if history == "" {
		history = "(no previous messages)"
	}

	text, err := r.generator.Generate(ctx, fmt.Sprintf(template, history, req.Message))
	if err != nil {
		return "", fmt.Errorf("classify intent failed: %w", err)
	}
	in := Normalize(text)
	if !IsAllowed(req.Role, in) {
		return in, fmt.Errorf("%w: %q for role %s", ErrUnknownIntent, in, req.Role)
	}
	return in, nil
}

// Normalize strips the decoration models tend to put around a bare label.
func Normalize(text string) types.Intent {
	s := strings.ToLower(strings.TrimSpace(text))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.Trim(s, " \t\"'`.*")
	return types.Intent(s)
}
