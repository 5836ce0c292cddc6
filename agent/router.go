package agent

import (
	"github.com/tbxark/appraisalagent/form"
	"github.com/tbxark/appraisalagent/types"
)

// Step is a node of the per-turn dialogue graph.
type Step string

const (
	StepStart                Step = "start"
	StepClassify             Step = "classify"
	StepExtractAndCheck      Step = "extract_and_check"
	StepHistoryLookup        Step = "history_lookup"
	StepGeneralAnswer        Step = "general_answer"
	StepSelfAppraisalSummary Step = "self_appraisal_summary"
	StepScorePrediction      Step = "score_predicter"
	StepAskFollowUp          Step = "ask_followup"
	StepAskSubject           Step = "ask_subject"
	StepComplete             Step = "complete"
	StepEnd                  Step = "end"
)

// Route picks the branch taken after classification. The appraisal-input
// path is employee only and the review actions are hr/lead only; any other
// pairing answers as a general question.
func Route(role types.Role, intent types.Intent) Step {
	switch intent {
	case types.IntentSelfAppraisalInput:
		if role == types.RoleEmployee {
			return StepExtractAndCheck
		}
	case types.IntentPrevSummaryQuery:
		if role.Valid() {
			return StepHistoryLookup
		}
	case types.IntentSelfAppraisalSummary:
		if role.IsReviewer() {
			return StepSelfAppraisalSummary
		}
	case types.IntentScorePredicter:
		if role.IsReviewer() {
			return StepScorePrediction
		}
	case types.IntentGeneralQuestion:
	}
	return StepGeneralAnswer
}

// AfterExtract decides between another follow-up and completion.
func AfterExtract(missing []form.Field) Step {
	if len(missing) == 0 {
		return StepComplete
	}
	return StepAskFollowUp
}

// PhaseAfter is the dialogue phase a session ends the turn in after step.
// The second value is false when the step leaves the phase untouched, which
// includes asking a reviewer which employee they mean.
func PhaseAfter(step Step) (types.Phase, bool) {
	switch step {
	case StepAskFollowUp:
		return types.PhaseFilling, true
	case StepComplete, StepHistoryLookup:
		return types.PhaseComplete, true
	case StepSelfAppraisalSummary, StepScorePrediction:
		return types.PhaseReadyForNext, true
	case StepExtractAndCheck:
		return types.PhaseExtracting, true
	default:
		return "", false
	}
}
