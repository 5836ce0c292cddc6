package lookup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbxark/appraisalagent/backend"
	"github.com/tbxark/appraisalagent/llm/llmtest"
	"github.com/tbxark/appraisalagent/types"
)

type fetchCall struct {
	kind backend.Kind
	id   string
}

type stubFetcher struct {
	calls []fetchCall
	rec   *backend.Record
	err   error
}

func (f *stubFetcher) Fetch(ctx context.Context, kind backend.Kind, id string) (*backend.Record, error) {
	f.calls = append(f.calls, fetchCall{kind, id})
	return f.rec, f.err
}

func record() *backend.Record {
	return &backend.Record{
		Raw:  []byte(`{"employee":{"name":"Ada"},"rating":"exceeds"}`),
		Data: map[string]any{"employee": map[string]any{"name": "Ada"}, "rating": "exceeds"},
	}
}

func TestEmployeeQueriesOwnHistory(t *testing.T) {
	fetcher := &stubFetcher{rec: record()}
	fake := llmtest.New().On("appraisal data", "Here is the summary for Ada: exceeds expectations.")
	s := NewService(fetcher, fake, nil)

	res := s.PastSummary(context.Background(), &Request{
		SessionID: "emp-77",
		Role:      types.RoleEmployee,
		Message:   "show me the summary for employee 1042",
	})

	require.True(t, res.Found)
	assert.Equal(t, "emp-77", res.SubjectID)
	assert.Equal(t, []fetchCall{{backend.KindPastByID, "emp-77"}}, fetcher.calls)
	assert.Equal(t, "Here is the summary for Ada: exceeds expectations.", res.Message)
	assert.Zero(t, fake.CallsContaining("extract the employee ID"))
}

func TestReviewerNotFound(t *testing.T) {
	fetcher := &stubFetcher{err: &backend.FetchError{Kind: backend.KindPastByID, ID: "1042", Status: 404, Err: backend.ErrNotFound}}
	fake := llmtest.New().On("extract the employee ID", "1042")
	s := NewService(fetcher, fake, nil)

	res := s.PastSummary(context.Background(), &Request{
		SessionID: "hr-session",
		Role:      types.RoleHR,
		Message:   "show me the summary for employee 1042",
	})

	assert.False(t, res.Found)
	assert.ErrorIs(t, res.Err, backend.ErrNotFound)
	assert.Contains(t, res.Message, "not found")
	assert.Equal(t, []fetchCall{{backend.KindPastByID, "1042"}}, fetcher.calls)
}

func TestReviewerWithoutIDGetsClarification(t *testing.T) {
	fetcher := &stubFetcher{rec: record()}
	fake := llmtest.New().On("extract the employee ID", "NONE")
	s := NewService(fetcher, fake, nil)

	res := s.PastSummary(context.Background(), &Request{Role: types.RoleLead, Message: "show me last year's summary"})
	assert.Equal(t, askPastSubject, res.Message)
	assert.Empty(t, fetcher.calls)

	res = s.SelfAppraisalSummary(context.Background(), &Request{Role: types.RoleLead, Message: "summarize it"})
	assert.Equal(t, askSelfSubject, res.Message)
	assert.Empty(t, fetcher.calls)
}

func TestSubjectFallsBackToPattern(t *testing.T) {
	r := NewSubjectResolver(llmtest.New().Fail("", errors.New("down")))
	id, err := r.Resolve(context.Background(), &Request{Role: types.RoleHR, Message: "pull up E7890 please"})
	assert.Error(t, err)
	assert.Equal(t, "E7890", id)

	r = NewSubjectResolver(llmtest.New().On("", "The employee ID is 1042"))
	id, err = r.Resolve(context.Background(), &Request{Role: types.RoleHR, Message: "summary for 1042"})
	require.NoError(t, err)
	assert.Equal(t, "1042", id)

	r = NewSubjectResolver(llmtest.New().On("", "\"E7890\"."))
	id, err = r.Resolve(context.Background(), &Request{Role: types.RoleLead, Message: "E7890"})
	require.NoError(t, err)
	assert.Equal(t, "E7890", id)
}

func TestSummaryFailureReturnsRawData(t *testing.T) {
	fetcher := &stubFetcher{rec: record()}
	fake := llmtest.New().Fail("appraisal data", errors.New("quota"))
	s := NewService(fetcher, fake, nil)

	res := s.PastSummary(context.Background(), &Request{SessionID: "emp-1", Role: types.RoleEmployee, Message: "my summary"})
	assert.True(t, res.Found)
	assert.Error(t, res.Err)
	assert.Contains(t, res.Message, "Raw info")
	assert.Contains(t, res.Message, `"rating": "exceeds"`)
}

func TestSelfAppraisalSummary(t *testing.T) {
	fetcher := &stubFetcher{rec: record()}
	fake := llmtest.New().
		On("extract the employee ID", "101").
		On("self-appraisal data", "- Strong delivery\n- Improve testing")
	s := NewService(fetcher, fake, nil)

	res := s.SelfAppraisalSummary(context.Background(), &Request{Role: types.RoleHR, Message: "summarize the self-appraisal of 101"})
	require.True(t, res.Found)
	assert.Equal(t, []fetchCall{{backend.KindSelfByID, "101"}}, fetcher.calls)
	assert.Equal(t, "Here is the summary for employee 101:\n\n- Strong delivery\n- Improve testing", res.Message)
}
