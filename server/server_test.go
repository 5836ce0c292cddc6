package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbxark/appraisalagent/agent"
	"github.com/tbxark/appraisalagent/backend"
	"github.com/tbxark/appraisalagent/dialogue"
	"github.com/tbxark/appraisalagent/extract"
	"github.com/tbxark/appraisalagent/form"
	"github.com/tbxark/appraisalagent/intent"
	"github.com/tbxark/appraisalagent/llm/llmtest"
	"github.com/tbxark/appraisalagent/lookup"
	"github.com/tbxark/appraisalagent/score"
	"github.com/tbxark/appraisalagent/types"
)

type notFoundFetcher struct{}

func (notFoundFetcher) Fetch(ctx context.Context, kind backend.Kind, id string) (*backend.Record, error) {
	return nil, &backend.FetchError{Kind: kind, ID: id, Status: http.StatusNotFound, Err: backend.ErrNotFound}
}

func newFlow(t *testing.T, fake *llmtest.Fake) *agent.Flow {
	t.Helper()
	extractor, err := extract.NewLLMExtractor(fake, nil)
	require.NoError(t, err)
	flow, err := agent.NewFlow(agent.NewMemorySessionStore(), agent.Components{
		Classifier: intent.NewClassifier(intent.NewLLMRecognizer(fake), nil),
		Extractor:  extractor,
		FollowUps:  dialogue.NewFailbackGenerator(dialogue.NewLLMGenerator(fake), dialogue.LocalGenerator{}),
		Responder:  dialogue.NewFailbackResponder(dialogue.NewLLMResponder(fake), dialogue.LocalResponder{}),
		Lookup:     lookup.NewService(notFoundFetcher{}, fake, nil),
		Scorer:     score.NewPredictor(fake, nil),
	})
	require.NoError(t, err)
	return flow
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error
}

func TestChatFillsFormAndExposesSession(t *testing.T) {
	fake := llmtest.New().
		On("The user is an EMPLOYEE", "self_appraisal_input").
		On("Extract ONLY the information", `{"delivery":"reporting dashboard","approach":"Python","timeframe":"June"}`).
		On("next piece of missing information", "What did the dashboard achieve?")
	router := NewRouter(newFlow(t, fake), nil, Options{})

	rec := do(t, router, http.MethodPost, "/chat",
		`{"session_id":"emp-1","role":"Employee","message":"I built a reporting dashboard using Python, finished in June"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp agent.Response
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "What did the dashboard achieve?", resp.Message)
	require.NotNil(t, resp.Session)
	assert.Equal(t, types.PhaseFilling, resp.Session.Phase)
	assert.Equal(t, []form.Field{form.Accomplishments, form.Improvement}, resp.Session.Missing)
	assert.Equal(t, "self_appraisal_input", resp.Metadata["intent"])

	rec = do(t, router, http.MethodGet, "/sessions/emp-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sess agent.Session
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &sess))
	assert.Equal(t, "Python", sess.Project.Approach)
	assert.Len(t, sess.History, 2)

	rec = do(t, router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","sessions":1}`, rec.Body.String())

	rec = do(t, router, http.MethodDelete, "/sessions/emp-1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, router, http.MethodDelete, "/sessions/emp-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, decodeError(t, rec).Code)
}

func TestChatReviewerLookupNotFound(t *testing.T) {
	fake := llmtest.New().
		On("The user is an HR LEAD", "prev_summary_query").
		On("extract the employee ID", "1042")
	router := NewRouter(newFlow(t, fake), nil, Options{})

	rec := do(t, router, http.MethodPost, "/chat",
		`{"session_id":"hr-1","role":"hr","message":"show me the summary for employee 1042"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp agent.Response
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Message, "not found")
	assert.Equal(t, types.PhaseComplete, resp.Session.Phase)

	rec = do(t, router, http.MethodGet, "/sessions/hr-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatRejectsBadRequests(t *testing.T) {
	router := NewRouter(newFlow(t, llmtest.New()), nil, Options{})
	cases := map[string]string{
		"malformed json":  `{"session_id":`,
		"missing session": `{"role":"employee","message":"hi"}`,
		"unknown role":    `{"session_id":"a","role":"manager","message":"hi"}`,
		"empty message":   `{"session_id":"a","role":"employee","message":""}`,
		"blank message":   `{"session_id":"a","role":"employee","message":"   "}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/chat", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, CodeInvalidRequest, decodeError(t, rec).Code)
		})
	}
}

func TestChatRoleMismatchConflicts(t *testing.T) {
	fake := llmtest.New().
		On("The user is an EMPLOYEE", "general_question").
		On("Politely state your purpose", "Let's work on your self-appraisal.")
	router := NewRouter(newFlow(t, fake), nil, Options{})

	rec := do(t, router, http.MethodPost, "/chat", `{"session_id":"s-1","role":"employee","message":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodPost, "/chat", `{"session_id":"s-1","role":"lead","message":"hello"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, CodeRoleMismatch, decodeError(t, rec).Code)
}

type brokenFlow struct {
	panicOnInvoke bool
}

func (b brokenFlow) Invoke(ctx context.Context, req *agent.Request) (*agent.Response, error) {
	if b.panicOnInvoke {
		panic("boom")
	}
	return nil, errors.New("redis unavailable")
}

func (brokenFlow) Session(ctx context.Context, id string) (*agent.Session, error) {
	return nil, errors.New("redis unavailable")
}

func (brokenFlow) DeleteSession(ctx context.Context, id string) error {
	return errors.New("redis unavailable")
}

func (brokenFlow) SessionCount(ctx context.Context) (int, error) {
	return 0, errors.New("redis unavailable")
}

func TestStoreFailuresAreInternalErrors(t *testing.T) {
	router := NewRouter(brokenFlow{}, nil, Options{})

	rec := do(t, router, http.MethodPost, "/chat", `{"session_id":"a","role":"employee","message":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, CodeInternal, decodeError(t, rec).Code)

	rec = do(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRecovererConvertsPanics(t *testing.T) {
	router := NewRouter(brokenFlow{panicOnInvoke: true}, nil, Options{})

	rec := do(t, router, http.MethodPost, "/chat", `{"session_id":"a","role":"employee","message":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decodeError(t, rec).Message)
}

func TestCORSPreflight(t *testing.T) {
	router := NewRouter(brokenFlow{}, nil, Options{CORSOrigins: []string{"https://hr.example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "https://hr.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "https://hr.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
