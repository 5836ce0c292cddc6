package agent

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbxark/appraisalagent/dialogue"
	"github.com/tbxark/appraisalagent/extract"
	"github.com/tbxark/appraisalagent/form"
	"github.com/tbxark/appraisalagent/intent"
	"github.com/tbxark/appraisalagent/logger"
	"github.com/tbxark/appraisalagent/lookup"
	"github.com/tbxark/appraisalagent/types"
)

// DefaultHistoryLimit bounds the persisted conversation history.
const DefaultHistoryLimit = 50

const processingErrorMessage = "Sorry, something went wrong while processing your message. Please try again."

type Classifier interface {
	Classify(ctx context.Context, req *intent.Request) types.Intent
}

type Lookup interface {
	PastSummary(ctx context.Context, req *lookup.Request) *lookup.Result
	SelfAppraisalSummary(ctx context.Context, req *lookup.Request) *lookup.Result
}

type Scorer interface {
	Reply(ctx context.Context, message string) (string, error)
}

// Components are the collaborators a turn may call.
type Components struct {
	Classifier Classifier
	Extractor  extract.Extractor
	FollowUps  dialogue.Generator
	Responder  dialogue.Responder
	Lookup     Lookup
	Scorer     Scorer
}

func (c Components) validate() error {
	switch {
	case c.Classifier == nil:
		return errors.New("classifier is required")
	case c.Extractor == nil:
		return errors.New("extractor is required")
	case c.FollowUps == nil:
		return errors.New("follow-up generator is required")
	case c.Responder == nil:
		return errors.New("responder is required")
	case c.Lookup == nil:
		return errors.New("lookup is required")
	case c.Scorer == nil:
		return errors.New("scorer is required")
	}
	return nil
}

// Flow runs one pass of the dialogue graph per inbound message.
type Flow struct {
	store      *SessionStore
	components Components
	submitter  Submitter
	trimmer    Trimmer
	locks      *keyedMutex
	log        *logger.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

type Option func(*Flow)

func WithSubmitter(s Submitter) Option {
	return func(f *Flow) {
		f.submitter = s
	}
}

func WithTrimmer(t Trimmer) Option {
	return func(f *Flow) {
		f.trimmer = t
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(f *Flow) {
		f.log = logger.OrNop(l)
	}
}

func WithClock(now func() time.Time) Option {
	return func(f *Flow) {
		f.now = now
	}
}

func NewFlow(store *SessionStore, components Components, opts ...Option) (*Flow, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if err := components.validate(); err != nil {
		return nil, err
	}
	f := &Flow{
		store:      store,
		components: components,
		trimmer:    KeepLastNTrimmer{N: DefaultHistoryLimit},
		locks:      newKeyedMutex(),
		log:        logger.Nop(),
		tracer:     otel.Tracer("github.com/tbxark/appraisalagent/agent"),
		now:        time.Now,
	}
	for _, o := range opts {
		o(f)
	}
	if f.submitter == nil {
		f.submitter = LogSubmitter{Log: f.log}
	}
	return f, nil
}

func validateRequest(req *Request) error {
	if req == nil {
		return fmt.Errorf("%w: empty request", ErrInvalidRequest)
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	if req.SessionID == "" {
		return fmt.Errorf("%w: session_id is required", ErrInvalidRequest)
	}
	role, ok := types.ParseRole(string(req.Role))
	if !ok {
		return fmt.Errorf("%w: unsupported role %q", ErrInvalidRequest, req.Role)
	}
	req.Role = role
	if strings.TrimSpace(req.Message) == "" {
		return fmt.Errorf("%w: message is required", ErrInvalidRequest)
	}
	return nil
}

// Invoke processes one message. Failures inside the dialogue graph never
// surface as errors: they produce a processing-error reply and leave the
// stored session as it was. Errors are returned for invalid requests, role
// mismatches and session store failures.
func (f *Flow) Invoke(ctx context.Context, req *Request) (*Response, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	unlock := f.locks.Lock(req.SessionID)
	defer unlock()

	ctx, span := f.tracer.Start(ctx, "agent.Turn", trace.WithAttributes(
		attribute.String("session.id", req.SessionID),
		attribute.String("session.role", string(req.Role)),
	))
	defer span.End()

	ctx = callbacks.EnsureRunInfo(ctx, "AppraisalFlow", "Agent")
	ctx = callbacks.OnStart(ctx, map[string]any{
		"session_id": req.SessionID,
		"role":       string(req.Role),
		"message":    req.Message,
	})

	resp, err := f.invoke(ctx, req)
	if err != nil {
		callbacks.OnError(ctx, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("turn.intent", string(resp.Session.Intent)),
		attribute.String("turn.phase", string(resp.Session.Phase)),
	)
	callbacks.OnEnd(ctx, map[string]any{
		"message": resp.Message,
		"phase":   string(resp.Session.Phase),
		"intent":  string(resp.Session.Intent),
	})
	return resp, nil
}

func (f *Flow) invoke(ctx context.Context, req *Request) (*Response, error) {
	log := f.log.With("session_id", req.SessionID, "role", req.Role)

	sess, found, err := f.store.Get(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", req.SessionID, err)
	}
	if found && sess.Role != req.Role {
		return nil, fmt.Errorf("%w: session %s belongs to role %s", ErrRoleMismatch, req.SessionID, sess.Role)
	}
	if !found {
		sess = NewSession(req.SessionID, req.Role, f.now())
	}
	snapshot := sess.Clone()

	resp, path, err := f.runTurn(ctx, sess, req.Message)
	if err != nil {
		log.Error("turn failed, keeping previous session", "error", err, "path", joinSteps(path))
		return f.handleError(err, snapshot), nil
	}

	if err := f.persist(ctx, sess, snapshot, path); err != nil {
		return nil, err
	}

	log.Info("turn finished",
		"intent", sess.Intent,
		"phase", sess.Phase,
		"path", joinSteps(path),
		"missing", len(sess.Missing),
	)
	return resp, nil
}

func (f *Flow) runTurn(ctx context.Context, sess *Session, message string) (resp *Response, path []Step, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in turn: %v", r)
		}
	}()

	c := f.components
	now := f.now()
	userTurn := types.Turn{ID: uuid.NewString(), Speaker: types.SpeakerUser, Text: message, At: now}
	sess.Message = message

	path = []Step{StepStart, StepClassify}
	sess.Intent = c.Classifier.Classify(ctx, &intent.Request{
		Role:    sess.Role,
		Message: message,
		History: sess.History,
	})
	step := Route(sess.Role, sess.Intent)
	path = append(path, step)
	metadata := map[string]string{"intent": string(sess.Intent)}

	var reply string
	switch step {
	case StepExtractAndCheck:
		sess.Phase = types.PhaseExtracting
		sess.Project = c.Extractor.Extract(ctx, &extract.Request{
			Current: sess.Project,
			Message: message,
			History: sess.History,
		})
		sess.Missing = form.Missing(sess.Project)
		next := AfterExtract(sess.Missing)
		path = append(path, next)
		if next == StepComplete {
			reply = dialogue.CompletionMessage(sess.Project)
			sess.FollowUp = ""
			break
		}
		reply, err = c.FollowUps.GenerateFollowUp(ctx, &dialogue.FollowUpRequest{
			Missing: sess.Missing,
			Project: sess.Project,
			History: append(append([]types.Turn(nil), sess.History...), userTurn),
		})
		if err != nil {
			return nil, path, err
		}
		sess.FollowUp = reply

	case StepHistoryLookup, StepSelfAppraisalSummary:
		lreq := &lookup.Request{SessionID: sess.ID, Role: sess.Role, Message: message}
		var res *lookup.Result
		if step == StepHistoryLookup {
			res = c.Lookup.PastSummary(ctx, lreq)
		} else {
			res = c.Lookup.SelfAppraisalSummary(ctx, lreq)
		}
		reply = res.Message
		if res.SubjectID == "" {
			path = append(path, StepAskSubject)
		} else {
			metadata["employee_id"] = res.SubjectID
			metadata["record_found"] = strconv.FormatBool(res.Found)
		}
		if res.Err != nil {
			metadata["lookup_error"] = res.Err.Error()
		}

	case StepScorePrediction:
		var serr error
		reply, serr = c.Scorer.Reply(ctx, message)
		if serr != nil {
			metadata["score_error"] = serr.Error()
		}

	default:
		reply, err = c.Responder.Answer(ctx, &dialogue.QuestionRequest{
			Role:    sess.Role,
			Message: message,
			History: sess.History,
		})
		if err != nil {
			return nil, path, err
		}
	}

	if phase, ok := PhaseAfter(path[len(path)-1]); ok {
		sess.Phase = phase
	}

	assistantTurn := types.Turn{ID: uuid.NewString(), Speaker: types.SpeakerAssistant, Text: reply, At: f.now()}
	sess.History = append(sess.History, userTurn, assistantTurn)
	if f.trimmer != nil {
		sess.History = f.trimmer.Trim(sess.History)
	}
	sess.UpdatedAt = f.now()

	metadata["phase"] = string(sess.Phase)
	metadata["path"] = joinSteps(path)
	metadata["turn_id"] = userTurn.ID
	return &Response{Message: reply, Session: sess, Metadata: metadata}, path, nil
}

// persist commits the turn. A completed form is submitted and removed. A
// completed lookup removes the session unless it carries a half-filled form,
// which is kept in its pre-turn phase so the employee can continue it.
func (f *Flow) persist(ctx context.Context, sess, snapshot *Session, path []Step) error {
	if sess.Phase != types.PhaseComplete {
		if err := f.store.Put(ctx, sess); err != nil {
			return fmt.Errorf("save session %s: %w", sess.ID, err)
		}
		return nil
	}
	if containsStep(path, StepComplete) {
		if err := f.submitter.Submit(ctx, &Submission{SessionID: sess.ID, Project: sess.Project}); err != nil {
			f.log.Warn("submit completed appraisal failed", "session_id", sess.ID, "error", err)
		}
	} else if hasProgress(sess.Project) {
		kept := sess.Clone()
		kept.Phase = snapshot.Phase
		if err := f.store.Put(ctx, kept); err != nil {
			return fmt.Errorf("save session %s: %w", sess.ID, err)
		}
		return nil
	}
	if err := f.store.Delete(ctx, sess.ID); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return fmt.Errorf("delete completed session %s: %w", sess.ID, err)
	}
	return nil
}

func hasProgress(p form.Project) bool {
	return len(form.Missing(p)) < len(form.RequiredFields())
}

func (f *Flow) handleError(err error, snapshot *Session) *Response {
	return &Response{
		Message: processingErrorMessage,
		Session: snapshot,
		Metadata: map[string]string{
			"error": err.Error(),
		},
	}
}

// Session returns the stored session.
func (f *Flow) Session(ctx context.Context, id string) (*Session, error) {
	sess, ok, err := f.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// DeleteSession waits for any in-flight turn of the session before deleting it.
func (f *Flow) DeleteSession(ctx context.Context, id string) error {
	unlock := f.locks.Lock(id)
	defer unlock()
	return f.store.Delete(ctx, id)
}

func (f *Flow) SessionCount(ctx context.Context) (int, error) {
	return f.store.Count(ctx)
}

func containsStep(path []Step, s Step) bool {
	for _, p := range path {
		if p == s {
			return true
		}
	}
	return false
}

func joinSteps(path []Step) string {
	parts := make([]string, len(path))
	for i, s := range path {
		parts[i] = string(s)
	}
	return strings.Join(parts, ">")
}
