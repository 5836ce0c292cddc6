package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tbxark/appraisalagent/form"
	"github.com/tbxark/appraisalagent/llm"
	"github.com/tbxark/appraisalagent/types"
)

var ErrNothingMissing = errors.New("no missing field to ask about")

// DefaultFollowUpHistory bounds the history shown to the follow-up prompt.
const DefaultFollowUpHistory = 4

const followUpPromptTemplate = `You are a friendly HR assistant helping an employee with their self-appraisal.
You have asked some questions and now you need to ask for the next piece of missing information.
%s
%s
The field you need to ask about is: %q
The description for this is: %q
Generate ONE short, friendly, conversational follow-up question asking the user for this specific information.
Reply with the question only.`

type LLMGenerator struct {
	generator llm.Generator
	history   int
}

func NewLLMGenerator(generator llm.Generator) *LLMGenerator {
	return &LLMGenerator{generator: generator, history: DefaultFollowUpHistory}
}

func (g *LLMGenerator) GenerateFollowUp(ctx context.Context, req *FollowUpRequest) (string, error) {
	if len(req.Missing) == 0 {
		return "", ErrNothingMissing
	}
	first := req.Missing[0]
	history := ""
	if h := types.FormatHistory(types.LastTurns(req.History, g.history)); h != "" {
		history = "Recent conversation:\n" + h
	}
	outstanding := types.FormatMissingFields(form.MissingFacts(req.Project))
	text, err := g.generator.Generate(ctx, fmt.Sprintf(followUpPromptTemplate, history, outstanding, first, first.Info().Description))
	if err != nil {
		return "", fmt.Errorf("generate follow-up failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// LocalGenerator asks about the first missing field using its description verbatim.
type LocalGenerator struct{}

func (LocalGenerator) GenerateFollowUp(ctx context.Context, req *FollowUpRequest) (string, error) {
	if len(req.Missing) == 0 {
		return "", ErrNothingMissing
	}
	return fmt.Sprintf("That's helpful, thank you. Now, could you please tell me about this: %s", req.Missing[0].Info().Description), nil
}

type FailbackGenerator struct {
	generators []Generator
}

func NewFailbackGenerator(generators ...Generator) *FailbackGenerator {
	return &FailbackGenerator{generators: generators}
}

func (g *FailbackGenerator) GenerateFollowUp(ctx context.Context, req *FollowUpRequest) (string, error) {
	lastErr := errors.New("no follow-up generators configured")
	for _, generator := range g.generators {
		text, err := generator.GenerateFollowUp(ctx, req)
		if err == nil && text != "" {
			return text, nil
		}
		if err != nil {
			lastErr = err
		}
	}
	return "", fmt.Errorf("all follow-up generators failed: %w", lastErr)
}
