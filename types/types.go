package types

import (
	"strings"
	"time"
)

type Role string

const (
	RoleEmployee Role = "employee"
	RoleHR       Role = "hr"
	RoleLead     Role = "lead"
)

// ParseRole normalizes a transport-supplied role. The second value is false
// for anything outside employee, hr and lead.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleHR, RoleLead:
		return true
	default:
		return false
	}
}

// IsReviewer reports whether the role reviews other people's appraisals.
func (r Role) IsReviewer() bool {
	return r == RoleHR || r == RoleLead
}

type Intent string

const (
	IntentSelfAppraisalInput   Intent = "self_appraisal_input"
	IntentPrevSummaryQuery     Intent = "prev_summary_query"
	IntentGeneralQuestion      Intent = "general_question"
	IntentSelfAppraisalSummary Intent = "self_appraisal_summary"
	IntentScorePredicter       Intent = "score_predicter"
)

type Phase string

const (
	PhaseInitial      Phase = "initial"
	PhaseExtracting   Phase = "extracting"
	PhaseFilling      Phase = "filling"
	PhaseReadyForNext Phase = "ready_for_next"
	PhaseComplete     Phase = "complete"
)

type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Turn is one entry of a conversation history. Order in the history is significant.
type Turn struct {
	ID      string    `json:"id"`
	Speaker Speaker   `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

type FieldInfo struct {
	Name        string `json:"name"`
	JSONPointer string `json:"json_pointer"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}
