package intent

import (
	"context"
	"errors"

	"github.com/tbxark/appraisalagent/types"
)

var ErrUnknownIntent = errors.New("intent outside the role vocabulary")

// Request carries what a recognizer may look at for one turn.
type Request struct {
	Role    types.Role
	Message string
	History []types.Turn
}

type Recognizer interface {
	RecognizeIntent(ctx context.Context, req *Request) (types.Intent, error)
}

var vocabulary = map[types.Role][]types.Intent{
	types.RoleEmployee: {
		types.IntentSelfAppraisalInput,
		types.IntentPrevSummaryQuery,
		types.IntentGeneralQuestion,
	},
	types.RoleHR: {
		types.IntentPrevSummaryQuery,
		types.IntentSelfAppraisalSummary,
		types.IntentScorePredicter,
		types.IntentGeneralQuestion,
	},
}

func init() {
	vocabulary[types.RoleLead] = vocabulary[types.RoleHR]
}

// Allowed returns the intents a role may be routed with. Unknown roles get none.
func Allowed(role types.Role) []types.Intent {
	out := make([]types.Intent, len(vocabulary[role]))
	copy(out, vocabulary[role])
	return out
}

func IsAllowed(role types.Role, in types.Intent) bool {
	for _, a := range vocabulary[role] {
		if a == in {
			return true
		}
	}
	return false
}
