// Package lookup answers history questions by fetching appraisal records and
// summarizing them.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tbxark/appraisalagent/backend"
	"github.com/tbxark/appraisalagent/llm"
	"github.com/tbxark/appraisalagent/logger"
	"github.com/tbxark/appraisalagent/types"
)

type Request struct {
	SessionID string
	Role      types.Role
	Message   string
}

// Result is always usable as a reply. Err keeps the underlying failure for logs and metadata.
type Result struct {
	Message   string
	SubjectID string
	Found     bool
	Err       error
}

const pastSummaryPromptTemplate = `Based on the following appraisal data, write a concise, professional summary for a %s.
Data:
%s
Generate a friendly, human-readable summary. Start by addressing the user (e.g., "Here is the summary for...").`

const selfSummaryPromptTemplate = `You are an expert HR Analyst. Summarize an employee's self-appraisal into a structured, professional summary.
Focus on key achievements, stated areas for improvement, and future goals. Use clear bullet points.

Here is the raw self-appraisal data:
---
%s
---`

const (
	askPastSubject = "I'm sorry, I need to know which employee's summary you'd like to see. Please specify their ID."
	askSelfSubject = "I'm sorry, I need to know whose self-appraisal you'd like to summarize. Please specify their ID (e.g., 'summarize for employee 101')."
)

type Service struct {
	fetcher   backend.Fetcher
	generator llm.Generator
	subjects  *SubjectResolver
	log       *logger.Logger
}

func NewService(fetcher backend.Fetcher, generator llm.Generator, log *logger.Logger) *Service {
	return &Service{
		fetcher:   fetcher,
		generator: generator,
		subjects:  NewSubjectResolver(generator),
		log:       logger.OrNop(log),
	}
}

// PastSummary summarizes completed appraisals of the subject.
func (s *Service) PastSummary(ctx context.Context, req *Request) *Result {
	return s.summarize(ctx, req, backend.KindPastByID, askPastSubject, func(rec *backend.Record) string {
		return fmt.Sprintf(pastSummaryPromptTemplate, req.Role, rec.Pretty())
	}, func(id, text string) string {
		return text
	}, func(id string, rec *backend.Record) string {
		return "I found the data but couldn't create a summary. Raw info:\n" + rec.Pretty()
	})
}

// SelfAppraisalSummary summarizes the subject's in-progress self-appraisal.
func (s *Service) SelfAppraisalSummary(ctx context.Context, req *Request) *Result {
	return s.summarize(ctx, req, backend.KindSelfByID, askSelfSubject, func(rec *backend.Record) string {
		return fmt.Sprintf(selfSummaryPromptTemplate, rec.Pretty())
	}, func(id, text string) string {
		return fmt.Sprintf("Here is the summary for employee %s:\n\n%s", id, text)
	}, func(id string, rec *backend.Record) string {
		return fmt.Sprintf("I was able to retrieve the self-appraisal for employee %s, but couldn't summarize it. Raw info:\n%s", id, rec.Pretty())
	})
}

func (s *Service) summarize(
	ctx context.Context,
	req *Request,
	kind backend.Kind,
	askSubject string,
	prompt func(rec *backend.Record) string,
	present func(id, text string) string,
	fallback func(id string, rec *backend.Record) string,
) *Result {
	log := s.log.With("component", "lookup", "kind", kind, "role", req.Role)

	id, err := s.subjects.Resolve(ctx, req)
	if err != nil {
		log.Warn("employee id extraction failed", "error", err, "fallback_id", id)
	}
	if id == "" {
		return &Result{Message: askSubject, Err: err}
	}

	rec, err := s.fetcher.Fetch(ctx, kind, id)
	if err != nil {
		log.Warn("backend fetch failed", "employee_id", id, "error", err)
		return &Result{Message: backend.UserMessage(err, id), SubjectID: id, Err: err}
	}

	text, err := s.generator.Generate(ctx, prompt(rec))
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("empty summary")
	}
	if err != nil {
		log.Warn("summary generation failed, returning raw record", "employee_id", id, "error", err)
		return &Result{Message: fallback(id, rec), SubjectID: id, Found: true, Err: err}
	}
	return &Result{Message: present(id, strings.TrimSpace(text)), SubjectID: id, Found: true}
}
