// Package testcases runs the appraisal flow against a live model.
package testcases

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/tbxark/appraisalagent/agent"
	"github.com/tbxark/appraisalagent/app"
	"github.com/tbxark/appraisalagent/config"
	"github.com/tbxark/appraisalagent/types"
)

// Records served by the stand-in appraisal backend, keyed by request path.
var backendRecords = map[string]string{
	"/appraisal/past-appraisals/1042": `{"employee_id":"1042","year":2024,"rating":"Exceeds","notes":"Led the billing migration, mentored two juniors."}`,
	"/self-appraisal/1042":            `{"employee_id":"1042","projects":[{"delivery":"billing migration","accomplishments":"cut invoice errors by 40%","improvement":"earlier load testing"}]}`,
}

func newBackend(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := backendRecords[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// NewTestFlow builds a flow on the configured live model. It skips unless
// APPRAISAL_RUN_LIVE_TESTS=1 and ../config.json (or the environment) carries an API key.
func NewTestFlow(t *testing.T) *agent.Flow {
	t.Helper()
	if os.Getenv("APPRAISAL_RUN_LIVE_TESTS") != "1" {
		t.Skip("set APPRAISAL_RUN_LIVE_TESTS=1 to run live LLM tests")
	}
	conf, err := config.Load("../config.json")
	if err != nil {
		t.Skipf("failed to load config: %v", err)
	}
	if strings.TrimSpace(conf.LLM.APIKey) == "" {
		t.Skip("llm api_key is empty")
	}
	conf.Backend.BaseURL = newBackend(t).URL
	conf.Session.Store = "memory"
	conf.Events.NATSURL = ""

	a, err := app.New(context.Background(), conf, nil, nil)
	if err != nil {
		t.Fatalf("build flow: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a.Flow
}

func say(t *testing.T, flow *agent.Flow, id string, role types.Role, msg string) *agent.Response {
	t.Helper()
	resp, err := flow.Invoke(context.Background(), &agent.Request{SessionID: id, Role: role, Message: msg})
	if err != nil {
		t.Fatalf("invoke %q: %v", msg, err)
	}
	t.Logf("user: %s\nassistant: %s\nphase: %s intent: %s", msg, resp.Message, resp.Session.Phase, resp.Session.Intent)
	return resp
}
