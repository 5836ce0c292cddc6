package dialogue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbxark/appraisalagent/llm"
	"github.com/tbxark/appraisalagent/llm/llmtest"
)

func TestSuggestNumbersAnswers(t *testing.T) {
	fake := llmtest.New().On("reflect on their work", "\n**Strengths:** delivery\n**Rating:** 4/5\n")
	got, err := NewSuggester(fake).Suggest(context.Background(), []string{
		"Shipped the billing dashboard",
		"   ",
		"Would write tests earlier",
	})
	require.NoError(t, err)
	assert.Equal(t, "**Strengths:** delivery\n**Rating:** 4/5", got)

	prompt := fake.Calls()[0]
	assert.Contains(t, prompt, "Q1: Shipped the billing dashboard\nQ2: Would write tests earlier\n")
	assert.Contains(t, prompt, "performance rating out of 5")
}

func TestSuggestErrors(t *testing.T) {
	fake := llmtest.New()
	_, err := NewSuggester(fake).Suggest(context.Background(), []string{"", " "})
	assert.ErrorIs(t, err, ErrNoResponses)
	assert.Empty(t, fake.Calls())

	_, err = NewSuggester(llmtest.New().Fail("", errors.New("quota"))).Suggest(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, llm.ErrGeneration)

	_, err = NewSuggester(llmtest.New().On("", "  ")).Suggest(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, llm.ErrGeneration)
}
