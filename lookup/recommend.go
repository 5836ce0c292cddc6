package lookup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tbxark/appraisalagent/backend"
	"github.com/tbxark/appraisalagent/llm"
)

var ErrNoSubject = errors.New("employee id is required")

const recommendationPromptTemplate = `You are an AI HR assistant analyzing appraisal feedback from employees over time.
Based on strengths and improvement areas, suggest:
- Workshops
- Upskilling sessions
- Coaching topics
- General HR interventions

Here is the input appraisal data:
%s`

// Recommendations proposes development actions from every appraisal on
// record for the employee. Fetch errors are returned as is so callers can
// tell a missing record from an unavailable backend.
func (s *Service) Recommendations(ctx context.Context, employeeID string) (string, error) {
	id := strings.TrimSpace(employeeID)
	if id == "" {
		return "", ErrNoSubject
	}
	log := s.log.With("component", "lookup", "kind", backend.KindAll, "employee_id", id)

	rec, err := s.fetcher.Fetch(ctx, backend.KindAll, id)
	if err != nil {
		log.Warn("backend fetch failed", "error", err)
		return "", err
	}

	text, err := s.generator.Generate(ctx, fmt.Sprintf(recommendationPromptTemplate, rec.Pretty()))
	if err != nil {
		log.Warn("recommendation generation failed", "error", err)
		return "", fmt.Errorf("%w: recommendations for %s: %v", llm.ErrGeneration, id, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: recommendations for %s: %v", llm.ErrGeneration, id, llm.ErrEmptyResponse)
	}
	return text, nil
}
