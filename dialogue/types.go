// Package dialogue produces the assistant's replies: follow-up questions for
// missing appraisal fields, answers to general questions and the completion summary.
package dialogue

import (
	"context"

	"github.com/tbxark/appraisalagent/form"
	"github.com/tbxark/appraisalagent/types"
)

type FollowUpRequest struct {
	Missing []form.Field
	Project form.Project
	History []types.Turn
}

type Generator interface {
	GenerateFollowUp(ctx context.Context, req *FollowUpRequest) (string, error)
}

type QuestionRequest struct {
	Role    types.Role
	Message string
	History []types.Turn
}

type Responder interface {
	Answer(ctx context.Context, req *QuestionRequest) (string, error)
}
