// Package score predicts a 1-10 competency score from a performance description.
package score

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/tbxark/appraisalagent/llm"
	"github.com/tbxark/appraisalagent/logger"
	"github.com/tbxark/appraisalagent/structured"
)

var Competencies = []string{
	"Technical",
	"Functional",
	"Communication",
	"Energy & Drive",
	"Responsibilites & Trust",
	"Teamwork",
	"Managing Processes & Work",
}

var ErrInvalidPrediction = errors.New("invalid score prediction")

const FallbackMessage = "I'm sorry, I encountered an error while trying to predict the score. " +
	"Please ensure your message clearly mentions a competency and describes performance."

const promptTemplate = `You are a senior HR Manager, an expert in performance evaluation. Analyze an employee's performance description, identify the single most relevant competency from a given list, and predict a performance score on a scale of 1 to 10.

Step 1: Identify the Competency
Determine which one of these competencies the message refers to:
%s

Step 2: Use the Scoring Rubric
- 1-2 (Significant Improvement Needs): Major gaps in skill or execution.
- 3-4 (Improvement Needs): Performance is inconsistent and below expectations.
- 5-6 (Meets Expectations): A capable performer who generally meets requirements.
- 7-8 (Exceeds Expectations): A strong performer who consistently exceeds expectations.
- 9-10 (Exceptional): A role model who far exceeds expectations; an expert.

Message to analyze:
%q
%s
Respond with a single JSON object with three keys:
1. "competency": MUST be exactly one of the strings from the list.
2. "score": an integer between 1 and 10.
3. "reasoning": a brief, one-sentence explanation for the score.

Example: {"competency": "Technical", "score": 8, "reasoning": "Exceptional skill in modern technologies with a noted weakness in a key legacy area."}`

type Prediction struct {
	Competency string  `json:"competency"`
	Score      float64 `json:"score"`
	Reasoning  string  `json:"reasoning"`
}

// Validate checks the prediction against the competency list and the 1-10 integer range.
func (p *Prediction) Validate() error {
	if !isCompetency(p.Competency) {
		return fmt.Errorf("%w: competency %q is not in the list", ErrInvalidPrediction, p.Competency)
	}
	if p.Score != math.Trunc(p.Score) || p.Score < 1 || p.Score > 10 {
		return fmt.Errorf("%w: score %v is not an integer between 1 and 10", ErrInvalidPrediction, p.Score)
	}
	if strings.TrimSpace(p.Reasoning) == "" {
		return fmt.Errorf("%w: reasoning is empty", ErrInvalidPrediction)
	}
	return nil
}

func (p *Prediction) Format() string {
	return fmt.Sprintf("**Prediction for %s**\n\n**Predicted Score:** %d/10\n**Reasoning:** %s",
		p.Competency, int(p.Score), strings.TrimSpace(p.Reasoning))
}

func isCompetency(s string) bool {
	for _, c := range Competencies {
		if c == s {
			return true
		}
	}
	return false
}

type predictInput struct {
	message  string
	previous error
}

// Predictor makes at most two model calls: the second one carries the
// validation error of the first.
type Predictor struct {
	chain *structured.Chain[*predictInput, Prediction]
	log   *logger.Logger
}

func NewPredictor(generator llm.Generator, log *logger.Logger) *Predictor {
	list := "- " + strings.Join(Competencies, "\n- ")
	chain := structured.NewChain[*predictInput, Prediction](generator, func(ctx context.Context, in *predictInput) (string, error) {
		retry := ""
		if in.previous != nil {
			retry = fmt.Sprintf("\nYour previous answer was rejected (%v). Follow the format exactly.\n", in.previous)
		}
		return fmt.Sprintf(promptTemplate, list, in.message, retry), nil
	})
	return &Predictor{chain: chain, log: logger.OrNop(log)}
}

func (p *Predictor) Predict(ctx context.Context, message string) (*Prediction, error) {
	in := &predictInput{message: message}
	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		pred, err := p.chain.Invoke(ctx, in)
		if err == nil {
			err = pred.Validate()
		}
		if err == nil {
			return pred, nil
		}
		p.log.Warn("score prediction rejected", "component", "score", "attempt", attempt, "error", err)
		lastErr = err
		in = &predictInput{message: message, previous: err}
	}
	return nil, lastErr
}

// Reply returns the formatted prediction or the fallback apology.
func (p *Predictor) Reply(ctx context.Context, message string) (string, error) {
	pred, err := p.Predict(ctx, message)
	if err != nil {
		return FallbackMessage, err
	}
	return pred.Format(), nil
}
