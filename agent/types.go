package agent

import (
	"errors"
	"time"

	"github.com/tbxark/appraisalagent/form"
	"github.com/tbxark/appraisalagent/types"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrRoleMismatch    = errors.New("role does not match the session")
)

// Session is the persisted state of one conversation.
type Session struct {
	ID        string       `json:"session_id"`
	Role      types.Role   `json:"role"`
	Message   string       `json:"message"`
	Project   form.Project `json:"project"`
	Missing   []form.Field `json:"missing"`
	FollowUp  string       `json:"followup"`
	History   []types.Turn `json:"conversation_history"`
	Phase     types.Phase  `json:"phase"`
	Intent    types.Intent `json:"intent,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func NewSession(id string, role types.Role, now time.Time) *Session {
	return &Session{
		ID:        id,
		Role:      role,
		Missing:   form.Missing(form.Project{}),
		Phase:     types.PhaseInitial,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a copy that shares no slices with s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Missing = append([]form.Field(nil), s.Missing...)
	c.History = append([]types.Turn(nil), s.History...)
	return &c
}

type Request struct {
	SessionID string     `json:"session_id"`
	Role      types.Role `json:"role"`
	Message   string     `json:"message"`
}

type Response struct {
	Message  string            `json:"message"`
	Session  *Session          `json:"session"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
