// Package backend fetches appraisal records from the HR backend service.
package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Kind string

const (
	KindAll      Kind = "all"
	KindPastByID Kind = "past-by-id"
	KindSelfByID Kind = "self-by-id"
)

const defaultTimeout = 10 * time.Second

// Record is a fetched payload. Raw keeps the exact bytes for fallbacks.
type Record struct {
	Raw  []byte
	Data any
}

// Pretty renders the record as indented JSON.
func (r *Record) Pretty() string {
	b, err := sonic.ConfigStd.MarshalIndent(r.Data, "", "  ")
	if err != nil {
		return string(r.Raw)
	}
	return string(b)
}

type Fetcher interface {
	Fetch(ctx context.Context, kind Kind, id string) (*Record, error)
}

type HTTPClient struct {
	baseURL string
	client  *http.Client
	tracer  trace.Tracer
}

type Option func(*HTTPClient)

func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) {
		h.client = c
	}
}

func WithTimeout(d time.Duration) Option {
	return func(h *HTTPClient) {
		h.client = &http.Client{Timeout: d}
	}
}

func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	h := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
		tracer:  otel.Tracer("github.com/tbxark/appraisalagent/backend"),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *HTTPClient) path(kind Kind, id string) (string, error) {
	switch kind {
	case KindAll:
		if id == "" {
			return "/appraisal", nil
		}
		return "/appraisal/" + url.PathEscape(id), nil
	case KindPastByID:
		if id == "" {
			return "", fmt.Errorf("kind %s requires an id", kind)
		}
		return "/appraisal/past-appraisals/" + url.PathEscape(id), nil
	case KindSelfByID:
		if id == "" {
			return "", fmt.Errorf("kind %s requires an id", kind)
		}
		return "/self-appraisal/" + url.PathEscape(id), nil
	default:
		return "", fmt.Errorf("unknown fetch kind %q", kind)
	}
}

func (h *HTTPClient) Fetch(ctx context.Context, kind Kind, id string) (*Record, error) {
	ctx, span := h.tracer.Start(ctx, "backend.Fetch", trace.WithAttributes(
		attribute.String("appraisal.kind", string(kind)),
		attribute.String("appraisal.id", id),
	))
	defer span.End()

	rec, err := h.fetch(ctx, kind, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return rec, nil
}

func (h *HTTPClient) fetch(ctx context.Context, kind Kind, id string) (*Record, error) {
	p, err := h.path(kind, id)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+p, nil)
	if err != nil {
		return nil, fmt.Errorf("build backend request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: kind, ID: id, Cause: transportCause(err), Err: fmt.Errorf("%w: %v", ErrUnreachable, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Kind: kind, ID: id, Status: resp.StatusCode, Cause: "the response was cut off", Err: fmt.Errorf("%w: read body: %v", ErrUnreachable, err)}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &FetchError{Kind: kind, ID: id, Status: resp.StatusCode, Err: ErrNotFound}
	case resp.StatusCode >= 300:
		return nil, &FetchError{Kind: kind, ID: id, Status: resp.StatusCode, Err: ErrServer}
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, &FetchError{Kind: kind, ID: id, Status: resp.StatusCode, Err: ErrNotFound}
	}
	var data any
	if err := sonic.Unmarshal(trimmed, &data); err != nil {
		cause := fmt.Sprintf("status %d, the response is not JSON", resp.StatusCode)
		return nil, &FetchError{Kind: kind, ID: id, Status: resp.StatusCode, Cause: cause, Err: fmt.Errorf("%w: %v", ErrBadPayload, err)}
	}
	if isEmpty(data) {
		return nil, &FetchError{Kind: kind, ID: id, Status: resp.StatusCode, Err: ErrNotFound}
	}
	return &Record{Raw: trimmed, Data: data}, nil
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}
