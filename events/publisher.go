// Package events publishes completed appraisal entries to NATS.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/tbxark/appraisalagent/agent"
	"github.com/tbxark/appraisalagent/logger"
)

const (
	DefaultSubject        = "appraisal.completed"
	TypeAppraisalComplete = "APPRAISAL_COMPLETED"
)

type Event struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	SessionID  string            `json:"session_id"`
	Project    map[string]string `json:"project"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// conn is the part of *nats.Conn the publisher needs.
type conn interface {
	Publish(subject string, data []byte) error
}

var _ agent.Submitter = (*NATSPublisher)(nil)

type NATSPublisher struct {
	nc      conn
	subject string
	log     *logger.Logger
	close   func()
}

// NewNATSPublisher connects to url and publishes on subject.
func NewNATSPublisher(url, subject string, log *logger.Logger) (*NATSPublisher, error) {
	l := logger.OrNop(log)
	nc, err := nats.Connect(url,
		nats.Name("appraisal-agent"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				l.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			l.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	p := newPublisher(nc, subject, l)
	p.close = nc.Close
	return p, nil
}

func newPublisher(nc conn, subject string, log *logger.Logger) *NATSPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSPublisher{nc: nc, subject: subject, log: logger.OrNop(log), close: func() {}}
}

func (p *NATSPublisher) Submit(ctx context.Context, sub *agent.Submission) error {
	evt := Event{
		ID:         uuid.NewString(),
		Type:       TypeAppraisalComplete,
		SessionID:  sub.SessionID,
		Project:    sub.Project.Map(),
		OccurredAt: time.Now().UTC(),
	}
	b, err := sonic.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", evt.Type, err)
	}
	if err := p.nc.Publish(p.subject, b); err != nil {
		return fmt.Errorf("publish %s on %s: %w", evt.Type, p.subject, err)
	}
	p.log.Debug("published event", "type", evt.Type, "id", evt.ID, "session_id", sub.SessionID)
	return nil
}

func (p *NATSPublisher) Close() {
	p.close()
}
