package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tbxark/appraisalagent/llm"
	"github.com/tbxark/appraisalagent/types"
)

const employeeAnswerPromptTemplate = `You are an assistant that helps employees:
1. Fill out their self-appraisal form
2. View or understand their past appraisal summaries

The employee just asked: %q
The previous conversation history is:
%s
You may use relevant information from the conversation history to answer.
Politely state your purpose and gently guide them back to one of your functions. Be friendly and brief.`

const reviewerAnswerPromptTemplate = `You are an assistant that helps HR and Team Leads review past appraisal summaries of their employees.
The user just asked: %q
The previous conversation history is:
%s
You may use relevant information from the conversation history to answer.
If their question is unrelated to performance reviews, gently remind them of your purpose.
Suggest valid questions like "Show me the last appraisal summary for employee 1042", "Summarize the self-appraisal of 101" or "Predict a teamwork score for this description".
Keep the tone professional and brief.`

type LLMResponder struct {
	generator llm.Generator
}

func NewLLMResponder(generator llm.Generator) *LLMResponder {
	return &LLMResponder{generator: generator}
}

func (r *LLMResponder) Answer(ctx context.Context, req *QuestionRequest) (string, error) {
	template := employeeAnswerPromptTemplate
	if req.Role.IsReviewer() {
		template = reviewerAnswerPromptTemplate
	}
	history := types.FormatHistory(req.History)
	if history == "" {
		history = "(none)"
	}
	text, err := r.generator.Generate(ctx, fmt.Sprintf(template, req.Message, history))
	if err != nil {
		return "", fmt.Errorf("answer general question failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}

const (
	employeeRedirect = "I'm here to help you fill out your self-appraisal and to look up your past appraisal summaries. " +
		"Tell me about a project you worked on, or ask for your previous summary."
	reviewerRedirect = "I help HR and team leads review appraisals. You can ask things like " +
		"\"Show me the last appraisal summary for employee 1042\", \"Summarize the self-appraisal of 101\" " +
		"or describe someone's performance in a competency to get a predicted score."
)

// LocalResponder returns a fixed role-specific redirect.
type LocalResponder struct{}

func (LocalResponder) Answer(ctx context.Context, req *QuestionRequest) (string, error) {
	if req.Role.IsReviewer() {
		return reviewerRedirect, nil
	}
	return employeeRedirect, nil
}

type FailbackResponder struct {
	responders []Responder
}

func NewFailbackResponder(responders ...Responder) *FailbackResponder {
	return &FailbackResponder{responders: responders}
}

func (r *FailbackResponder) Answer(ctx context.Context, req *QuestionRequest) (string, error) {
	lastErr := errors.New("no responders configured")
	for _, responder := range r.responders {
		text, err := responder.Answer(ctx, req)
		if err == nil && text != "" {
			return text, nil
		}
		if err != nil {
			lastErr = err
		}
	}
	return "", fmt.Errorf("all responders failed: %w", lastErr)
}
