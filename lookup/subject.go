package lookup

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/tbxark/appraisalagent/llm"
	"github.com/tbxark/appraisalagent/types"
)

const subjectPromptTemplate = `From the message: %q, extract the employee ID (e.g., 1, 2, 8632, E7890).
If no specific employee ID is mentioned, respond with NONE.
Respond with the ID only.`

var (
	validID  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)
	idInText = regexp.MustCompile(`\b[A-Za-z]?\d+\b`)
)

const idPadding = " \t\r\n\"'`.,:;"

// SubjectResolver decides whose record a request is about.
type SubjectResolver struct {
	generator llm.Generator
}

func NewSubjectResolver(generator llm.Generator) *SubjectResolver {
	return &SubjectResolver{generator: generator}
}

// Resolve returns the subject id, or "" when none can be determined.
// Employees always resolve to their own session id.
func (r *SubjectResolver) Resolve(ctx context.Context, req *Request) (string, error) {
	if req.Role == types.RoleEmployee {
		return req.SessionID, nil
	}
	if !req.Role.IsReviewer() {
		return "", fmt.Errorf("unsupported role %q", req.Role)
	}

	text, err := r.generator.Generate(ctx, fmt.Sprintf(subjectPromptTemplate, req.Message))
	if err != nil {
		return idFromText(req.Message), fmt.Errorf("extract employee id failed: %w", err)
	}
	id := strings.Trim(strings.TrimSpace(text), idPadding)
	if strings.EqualFold(id, "NONE") {
		return "", nil
	}
	if validID.MatchString(id) {
		return id, nil
	}
	return idFromText(req.Message), nil
}

func idFromText(message string) string {
	return idInText.FindString(message)
}
