package intent

import (
	"context"

	"github.com/tbxark/appraisalagent/logger"
	"github.com/tbxark/appraisalagent/types"
)

// Classifier never fails: any recognizer error or out-of-vocabulary answer
// becomes general_question.
type Classifier struct {
	recognizer Recognizer
	log        *logger.Logger
}

func NewClassifier(recognizer Recognizer, log *logger.Logger) *Classifier {
	return &Classifier{recognizer: recognizer, log: logger.OrNop(log)}
}

func (c *Classifier) Classify(ctx context.Context, req *Request) types.Intent {
	in, err := c.recognizer.RecognizeIntent(ctx, req)
	if err != nil {
		c.log.Warn("intent classification failed, using general_question",
			"component", "intent", "role", req.Role, "error", err)
		return types.IntentGeneralQuestion
	}
	if !IsAllowed(req.Role, in) {
		c.log.Warn("intent outside role vocabulary, using general_question",
			"component", "intent", "role", req.Role, "intent", in)
		return types.IntentGeneralQuestion
	}
	return in
}
