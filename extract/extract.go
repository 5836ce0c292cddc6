// Package extract turns free-form employee messages into appraisal field values.
package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/tbxark/appraisalagent/form"
	"github.com/tbxark/appraisalagent/llm"
	"github.com/tbxark/appraisalagent/logger"
	"github.com/tbxark/appraisalagent/patch"
	"github.com/tbxark/appraisalagent/structured"
	"github.com/tbxark/appraisalagent/types"
)

type Request struct {
	Current form.Project
	Message string
	History []types.Turn
}

// Extractor returns the updated project. It must not fail: on any problem the
// current project is returned unchanged.
type Extractor interface {
	Extract(ctx context.Context, req *Request) form.Project
}

const extractionPromptTemplate = `You are helping an employee complete their self-appraisal.
%s
The employee just said: %q

Extract ONLY the information the message (read together with the conversation) actually states, for the fields below.
Rules:
- Never invent, guess or paraphrase beyond what was said. If the message has no information for a field, return an empty string for it.
- Return only NEW information from this message; do not repeat the current values.
- Keep the employee's wording where possible.

Fields (JSON schema):
%s

%s
Return ONLY a valid JSON object with all five keys:
{"delivery": "", "accomplishments": "", "approach": "", "improvement": "", "timeframe": ""}`

type LLMExtractor struct {
	chain *structured.Chain[*Request, map[string]any]
	log   *logger.Logger
}

func NewLLMExtractor(generator llm.Generator, log *logger.Logger) (*LLMExtractor, error) {
	schema, err := form.JSONSchema()
	if err != nil {
		return nil, err
	}
	chain := structured.NewChain[*Request, map[string]any](generator, func(ctx context.Context, req *Request) (string, error) {
		return buildPrompt(schema, req)
	})
	return &LLMExtractor{chain: chain, log: logger.OrNop(log)}, nil
}

func buildPrompt(schema string, req *Request) (string, error) {
	contextText := "The employee is starting a new self-appraisal entry."
	if len(form.Missing(req.Current)) < len(form.RequiredFields()) {
		current, err := sonic.MarshalIndent(req.Current, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal current project: %w", err)
		}
		contextText = "The employee is updating their self-appraisal.\nCurrent project data:\n" + string(current)
	}
	history := ""
	if h := types.FormatHistory(req.History); h != "" {
		history = "Conversation so far:\n" + h + "\n"
	}
	return fmt.Sprintf(extractionPromptTemplate, contextText, req.Message, schema, history), nil
}

func (e *LLMExtractor) Extract(ctx context.Context, req *Request) form.Project {
	out, err := e.chain.Invoke(ctx, req)
	if err != nil {
		e.log.Warn("extraction failed, keeping fields", "component", "extract", "error", err)
		return req.Current
	}
	extracted := form.ProjectFromMap(*out)
	updated, err := patch.Apply(req.Current, patch.Merge(req.Current, extracted))
	if err != nil {
		e.log.Warn("merge failed, keeping fields", "component", "extract", "error", err)
		return req.Current
	}
	e.log.Debug("fields extracted", "component", "extract", "filled", filled(updated))
	return updated
}

func filled(p form.Project) string {
	var names []string
	for _, f := range form.RequiredFields() {
		if !form.IsBlank(p.Get(f)) {
			names = append(names, string(f))
		}
	}
	return strings.Join(names, ",")
}
