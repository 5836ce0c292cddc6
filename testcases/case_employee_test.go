package testcases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbxark/appraisalagent/form"
	"github.com/tbxark/appraisalagent/types"
)

func TestEmployeeFillsEntryToCompletion(t *testing.T) {
	t.Parallel()
	flow := NewTestFlow(t)

	resp := say(t, flow, "live-emp-1", types.RoleEmployee,
		"I built a reporting dashboard using Python, finished in June")
	assert.Equal(t, types.IntentSelfAppraisalInput, resp.Session.Intent)
	assert.Equal(t, types.PhaseFilling, resp.Session.Phase)
	assert.NotEmpty(t, resp.Session.Project.Delivery)
	assert.Contains(t, resp.Session.Missing, form.Accomplishments)

	say(t, flow, "live-emp-1", types.RoleEmployee,
		"It cut the weekly reporting time from two days to one hour for the finance team")
	resp = say(t, flow, "live-emp-1", types.RoleEmployee,
		"Next time I would write automated tests earlier, the late bugs slowed us down")

	if resp.Session.Phase != types.PhaseComplete {
		t.Logf("still missing: %v", resp.Session.Missing)
		return
	}
	assert.Contains(t, resp.Message, "captured successfully")
	_, err := flow.Session(context.Background(), "live-emp-1")
	require.Error(t, err)
}

func TestEmployeeOffTopicQuestion(t *testing.T) {
	t.Parallel()
	flow := NewTestFlow(t)

	resp := say(t, flow, "live-emp-2", types.RoleEmployee, "what's the weather today")
	assert.Equal(t, types.IntentGeneralQuestion, resp.Session.Intent)
	assert.Equal(t, types.PhaseInitial, resp.Session.Phase)
	assert.Equal(t, form.Project{}, resp.Session.Project)
}
