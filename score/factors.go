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

var (
	ErrNoFactors       = errors.New("no performance factors to rate")
	ErrDuplicateFactor = errors.New("performance factor listed twice")
)

const factorPromptTemplate = `You are an HR expert AI assistant. Given a list of performance competencies with strengths and improvement needs, assign a score from 1 to 10 for each. Also provide a short reason for your score.
Rate every competency exactly once and keep its name as given.

Here is the input:
%s%s
Respond with a single JSON object like:
{"ratings": [{"competency": "Communication", "score": 8, "reason": "Excellent clarity, but slight delays in escalation."}]}`

// Factor is one competency of an appraisal with the reviewer's notes.
type Factor struct {
	Competency   string `json:"competency" validate:"required"`
	Strengths    string `json:"strengths"`
	Improvements string `json:"improvements"`
}

type FactorRating struct {
	Competency string `json:"competency"`
	Score      int    `json:"score"`
	Reason     string `json:"reason"`
}

type rawRating struct {
	Competency string  `json:"competency"`
	Score      float64 `json:"score"`
	Reason     string  `json:"reason"`
}

type factorReply struct {
	Ratings []rawRating `json:"ratings"`
}

type factorInput struct {
	factors  []Factor
	previous error
}

// FactorRater scores a batch of competencies in one model call, retrying
// once with the rejection reason.
type FactorRater struct {
	chain *structured.Chain[*factorInput, factorReply]
	log   *logger.Logger
}

func NewFactorRater(generator llm.Generator, log *logger.Logger) *FactorRater {
	chain := structured.NewChain[*factorInput, factorReply](generator, func(ctx context.Context, in *factorInput) (string, error) {
		var b strings.Builder
		for _, f := range in.factors {
			fmt.Fprintf(&b, "\nCompetency: %s\nStrengths: %s\nImprovement Needs: %s\n", f.Competency, f.Strengths, f.Improvements)
		}
		retry := ""
		if in.previous != nil {
			retry = fmt.Sprintf("\nYour previous answer was rejected (%v). Follow the format exactly.\n", in.previous)
		}
		return fmt.Sprintf(factorPromptTemplate, b.String(), retry), nil
	})
	return &FactorRater{chain: chain, log: logger.OrNop(log)}
}

// Rate returns one rating per factor, in input order.
func (r *FactorRater) Rate(ctx context.Context, factors []Factor) ([]FactorRating, error) {
	if len(factors) == 0 {
		return nil, ErrNoFactors
	}
	seen := make(map[string]bool, len(factors))
	for _, f := range factors {
		key := normalizeCompetency(f.Competency)
		if seen[key] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateFactor, f.Competency)
		}
		seen[key] = true
	}
	in := &factorInput{factors: factors}
	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		reply, err := r.chain.Invoke(ctx, in)
		var ratings []FactorRating
		if err == nil {
			ratings, err = matchRatings(factors, reply.Ratings)
		}
		if err == nil {
			return ratings, nil
		}
		r.log.Warn("factor ratings rejected", "component", "score", "attempt", attempt, "factors", len(factors), "error", err)
		lastErr = err
		in = &factorInput{factors: factors, previous: err}
	}
	return nil, fmt.Errorf("%w: %w", llm.ErrGeneration, lastErr)
}

// matchRatings pairs ratings with factors by competency name, ignoring case
// and surrounding space. Every factor must be rated exactly once.
func matchRatings(factors []Factor, ratings []rawRating) ([]FactorRating, error) {
	byName := make(map[string]rawRating, len(ratings))
	for _, rt := range ratings {
		key := normalizeCompetency(rt.Competency)
		if _, dup := byName[key]; dup {
			return nil, fmt.Errorf("%w: competency %q rated twice", ErrInvalidPrediction, rt.Competency)
		}
		byName[key] = rt
	}
	out := make([]FactorRating, 0, len(factors))
	for _, f := range factors {
		rt, ok := byName[normalizeCompetency(f.Competency)]
		if !ok {
			return nil, fmt.Errorf("%w: competency %q was not rated", ErrInvalidPrediction, f.Competency)
		}
		if rt.Score != math.Trunc(rt.Score) || rt.Score < 1 || rt.Score > 10 {
			return nil, fmt.Errorf("%w: score %v for %q is not an integer between 1 and 10", ErrInvalidPrediction, rt.Score, f.Competency)
		}
		if strings.TrimSpace(rt.Reason) == "" {
			return nil, fmt.Errorf("%w: reason for %q is empty", ErrInvalidPrediction, f.Competency)
		}
		out = append(out, FactorRating{Competency: f.Competency, Score: int(rt.Score), Reason: strings.TrimSpace(rt.Reason)})
	}
	if len(byName) != len(factors) {
		return nil, fmt.Errorf("%w: got %d ratings for %d competencies", ErrInvalidPrediction, len(byName), len(factors))
	}
	return out, nil
}

func normalizeCompetency(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
