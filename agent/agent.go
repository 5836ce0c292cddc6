package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/appraisalagent/types"
)

var _ adk.Agent = (*Agent)(nil)

type sessionContextKey struct{}

type sessionRef struct {
	id   string
	role types.Role
}

// WithSession routes adk runs on ctx to the given session and role.
func WithSession(ctx context.Context, id string, role types.Role) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sessionRef{id: id, role: role})
}

func SessionFromContext(ctx context.Context) (string, types.Role, bool) {
	ref, ok := ctx.Value(sessionContextKey{}).(sessionRef)
	if !ok || ref.id == "" {
		return "", "", false
	}
	return ref.id, ref.role, true
}

// Agent exposes a Flow as an adk.Agent. The session comes from the run context.
type Agent struct {
	name        string
	description string
	flow        *Flow
}

func NewAgent(name, description string, flow *Flow) *Agent {
	return &Agent{
		name:        name,
		description: description,
		flow:        flow,
	}
}

func (a *Agent) Name(ctx context.Context) string {
	return a.name
}

func (a *Agent) Description(ctx context.Context) string {
	return a.description
}

func (a *Agent) Run(ctx context.Context, input *adk.AgentInput, options ...adk.AgentRunOption) *adk.AsyncIterator[*adk.AgentEvent] {
	iter, gen := adk.NewAsyncIteratorPair[*adk.AgentEvent]()
	go func() {
		defer func() {
			if e := recover(); e != nil {
				gen.Send(&adk.AgentEvent{
					Err: fmt.Errorf("recover from panic: %v", e),
				})
			}
			gen.Close()
		}()
		if input == nil || len(input.Messages) == 0 {
			gen.Send(&adk.AgentEvent{
				Err: errors.New("no messages in input"),
			})
			return
		}
		id, role, ok := SessionFromContext(ctx)
		if !ok {
			gen.Send(&adk.AgentEvent{
				Err: fmt.Errorf("%w: no session in context", ErrInvalidRequest),
			})
			return
		}
		resp, err := a.flow.Invoke(ctx, &Request{
			SessionID: id,
			Role:      role,
			Message:   input.Messages[len(input.Messages)-1].Content,
		})
		if err != nil {
			gen.Send(&adk.AgentEvent{
				Err: fmt.Errorf("flow invoke failed: %w", err),
			})
			return
		}
		gen.Send(&adk.AgentEvent{
			AgentName: a.name,
			Output: &adk.AgentOutput{
				MessageOutput: &adk.MessageVariant{
					IsStreaming: false,
					Message:     schema.AssistantMessage(resp.Message, nil),
					Role:        schema.Assistant,
				},
				CustomizedOutput: resp,
			},
		})
	}()
	return iter
}
