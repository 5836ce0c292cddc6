package dialogue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbxark/appraisalagent/form"
	"github.com/tbxark/appraisalagent/llm/llmtest"
	"github.com/tbxark/appraisalagent/types"
)

func TestFollowUpTargetsFirstMissingField(t *testing.T) {
	fake := llmtest.New().On("accomplishments", "  What were your key achievements on the dashboard?  ")
	g := NewFailbackGenerator(NewLLMGenerator(fake), LocalGenerator{})

	got, err := g.GenerateFollowUp(context.Background(), &FollowUpRequest{
		Missing: []form.Field{form.Accomplishments, form.Improvement},
		Project: form.Project{Delivery: "dashboard", Approach: "Python", Timeframe: "June"},
		History: []types.Turn{{Speaker: types.SpeakerUser, Text: "I built a dashboard"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "What were your key achievements on the dashboard?", got)

	prompt := fake.Calls()[0]
	assert.Contains(t, prompt, `The field you need to ask about is: "accomplishments"`)
	assert.Contains(t, prompt, "# Missing required fields:")
	assert.Contains(t, prompt, "/improvement")
	assert.NotContains(t, prompt, "/timeframe")
	assert.Contains(t, prompt, "User: I built a dashboard")
}

func TestFollowUpFallsBackToTemplate(t *testing.T) {
	fake := llmtest.New().Fail("", errors.New("quota exceeded"))
	g := NewFailbackGenerator(NewLLMGenerator(fake), LocalGenerator{})

	got, err := g.GenerateFollowUp(context.Background(), &FollowUpRequest{
		Missing: []form.Field{form.Timeframe},
	})
	require.NoError(t, err)
	assert.Contains(t, got, form.Describe(form.Timeframe))
}

func TestFollowUpNothingMissing(t *testing.T) {
	_, err := LocalGenerator{}.GenerateFollowUp(context.Background(), &FollowUpRequest{})
	assert.ErrorIs(t, err, ErrNothingMissing)

	_, err = NewFailbackGenerator(LocalGenerator{}).GenerateFollowUp(context.Background(), &FollowUpRequest{})
	assert.ErrorIs(t, err, ErrNothingMissing)
}

func TestResponderRolePrompts(t *testing.T) {
	fake := llmtest.New().On("helps employees", "I can help with your appraisal.").On("HR and Team Leads", "Try asking for a summary.")
	r := NewLLMResponder(fake)

	got, err := r.Answer(context.Background(), &QuestionRequest{Role: types.RoleEmployee, Message: "what's the weather today"})
	require.NoError(t, err)
	assert.Equal(t, "I can help with your appraisal.", got)

	got, err = r.Answer(context.Background(), &QuestionRequest{Role: types.RoleLead, Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Try asking for a summary.", got)
}

func TestResponderFallback(t *testing.T) {
	fake := llmtest.New().Fail("", errors.New("down"))
	r := NewFailbackResponder(NewLLMResponder(fake), LocalResponder{})

	got, err := r.Answer(context.Background(), &QuestionRequest{Role: types.RoleEmployee, Message: "weather?"})
	require.NoError(t, err)
	assert.Equal(t, employeeRedirect, got)

	got, err = r.Answer(context.Background(), &QuestionRequest{Role: types.RoleHR, Message: "weather?"})
	require.NoError(t, err)
	assert.Equal(t, reviewerRedirect, got)
}

func TestCompletionMessageListsEveryField(t *testing.T) {
	p := form.Project{Delivery: "dashboard", Accomplishments: "fast", Approach: "Go", Improvement: "tests", Timeframe: "Q2"}
	msg := CompletionMessage(p)
	for _, f := range form.RequiredFields() {
		assert.Contains(t, msg, form.Describe(f))
		assert.Contains(t, msg, p.Get(f))
	}
}
