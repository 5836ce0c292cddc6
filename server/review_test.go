package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbxark/appraisalagent/backend"
	"github.com/tbxark/appraisalagent/dialogue"
	"github.com/tbxark/appraisalagent/llm/llmtest"
	"github.com/tbxark/appraisalagent/lookup"
	"github.com/tbxark/appraisalagent/score"
)

type stubFetcher struct {
	calls []string
	rec   *backend.Record
	err   error
}

func (f *stubFetcher) Fetch(ctx context.Context, kind backend.Kind, id string) (*backend.Record, error) {
	f.calls = append(f.calls, string(kind)+":"+id)
	return f.rec, f.err
}

func reviewRouter(t *testing.T, fake *llmtest.Fake, fetcher backend.Fetcher) http.Handler {
	t.Helper()
	return NewRouter(brokenFlow{}, nil, Options{Services: Services{
		Recommender: lookup.NewService(fetcher, fake, nil),
		FactorRater: score.NewFactorRater(fake, nil),
		Suggester:   dialogue.NewSuggester(fake),
	}})
}

func TestRecommendationsRoute(t *testing.T) {
	fetcher := &stubFetcher{rec: &backend.Record{
		Raw:  []byte(`{"employee":{"name":"Ada"}}`),
		Data: map[string]any{"employee": map[string]any{"name": "Ada"}},
	}}
	fake := llmtest.New().On("Upskilling sessions", "- Coaching: delegation")
	router := reviewRouter(t, fake, fetcher)

	rec := do(t, router, http.MethodGet, "/employees/42/recommendations", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp recommendationsResponse
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, recommendationsResponse{EmployeeID: "42", Recommendations: "- Coaching: delegation"}, resp)
	assert.Equal(t, []string{"all:42"}, fetcher.calls)
}

func TestRecommendationsBackendFailures(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		fetcher := &stubFetcher{err: &backend.FetchError{Kind: backend.KindAll, ID: "42", Status: http.StatusNotFound, Err: backend.ErrNotFound}}
		rec := do(t, reviewRouter(t, llmtest.New(), fetcher), http.MethodGet, "/employees/42/recommendations", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		apiErr := decodeError(t, rec)
		assert.Equal(t, CodeNotFound, apiErr.Code)
		assert.Contains(t, apiErr.Message, "'42' was not found")
	})

	t.Run("unreachable", func(t *testing.T) {
		fetcher := &stubFetcher{err: &backend.FetchError{
			Kind:  backend.KindAll,
			ID:    "42",
			Cause: "the connection was refused",
			Err:   fmt.Errorf("%w: dial tcp 10.0.0.5:3000: connect: connection refused", backend.ErrUnreachable),
		}}
		rec := do(t, reviewRouter(t, llmtest.New(), fetcher), http.MethodGet, "/employees/42/recommendations", "")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		apiErr := decodeError(t, rec)
		assert.Equal(t, CodeUpstream, apiErr.Code)
		assert.Contains(t, apiErr.Message, "the connection was refused")
		assert.NotContains(t, apiErr.Message, "10.0.0.5")
	})
}

func TestScoreFactorsRoute(t *testing.T) {
	fake := llmtest.New().On("HR expert AI assistant",
		`{"ratings": [{"competency": "Teamwork", "score": 8, "reason": "Mentors juniors."}, {"competency": "Technical", "score": 6, "reason": "Solid but narrow."}]}`)
	router := reviewRouter(t, fake, &stubFetcher{})

	rec := do(t, router, http.MethodPost, "/performance-factors/score", `{"factors": [
		{"competency": "Technical", "strengths": "Go", "improvements": "breadth"},
		{"competency": "Teamwork", "strengths": "mentoring", "improvements": ""}
	]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp factorsResponse
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []score.FactorRating{
		{Competency: "Technical", Score: 6, Reason: "Solid but narrow."},
		{Competency: "Teamwork", Score: 8, Reason: "Mentors juniors."},
	}, resp.Ratings)
}

func TestScoreFactorsRejectsBadInput(t *testing.T) {
	fake := llmtest.New()
	router := reviewRouter(t, fake, &stubFetcher{})
	cases := map[string]string{
		"no factors":         `{"factors": []}`,
		"missing competency": `{"factors": [{"strengths": "x"}]}`,
		"duplicate":          `{"factors": [{"competency": "Teamwork"}, {"competency": "teamwork "}]}`,
		"malformed":          `{"factors": [`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/performance-factors/score", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, CodeInvalidRequest, decodeError(t, rec).Code)
		})
	}
	assert.Empty(t, fake.Calls())
}

func TestScoreFactorsUnusableModelReply(t *testing.T) {
	fake := llmtest.New().On("HR expert AI assistant", `{"ratings": []}`)
	rec := do(t, reviewRouter(t, fake, &stubFetcher{}), http.MethodPost, "/performance-factors/score",
		`{"factors": [{"competency": "Teamwork"}]}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, CodeUpstream, decodeError(t, rec).Code)
}

func TestSuggestionsRoute(t *testing.T) {
	fake := llmtest.New().On("reflect on their work", "Strengths: ownership. Rating: 4/5")
	router := reviewRouter(t, fake, &stubFetcher{})

	rec := do(t, router, http.MethodPost, "/self-appraisal/suggestions", `{"responses": ["Led the migration", "Would plan testing earlier"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp suggestionsResponse
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Strengths: ownership. Rating: 4/5", resp.Summary)

	for _, body := range []string{`{"responses": []}`, `{"responses": [""]}`, `{"responses": ["   "]}`} {
		rec = do(t, router, http.MethodPost, "/self-appraisal/suggestions", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestSuggestionsModelFailure(t *testing.T) {
	fake := llmtest.New().Fail("", errors.New("quota"))
	rec := do(t, reviewRouter(t, fake, &stubFetcher{}), http.MethodPost, "/self-appraisal/suggestions", `{"responses": ["a"]}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, CodeUpstream, decodeError(t, rec).Code)
}

func TestReviewRoutesNeedServices(t *testing.T) {
	router := NewRouter(brokenFlow{}, nil, Options{})
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/employees/42/recommendations", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodPost, "/performance-factors/score", `{}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodPost, "/self-appraisal/suggestions", `{}`).Code)
}
