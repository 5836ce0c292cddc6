package agent

import (
	"context"

	"github.com/tbxark/appraisalagent/form"
	"github.com/tbxark/appraisalagent/logger"
)

// Submission is handed to a Submitter once a session's form completes.
type Submission struct {
	SessionID string       `json:"session_id"`
	Project   form.Project `json:"project"`
}

type Submitter interface {
	Submit(ctx context.Context, sub *Submission) error
}

// LogSubmitter only records completions in the log.
type LogSubmitter struct {
	Log *logger.Logger
}

func (s LogSubmitter) Submit(ctx context.Context, sub *Submission) error {
	logger.OrNop(s.Log).Info("appraisal entry completed", "session_id", sub.SessionID, "project", sub.Project.Map())
	return nil
}
