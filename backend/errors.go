package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

var (
	ErrNotFound    = errors.New("appraisal record not found")
	ErrServer      = errors.New("appraisal backend returned an error")
	ErrUnreachable = errors.New("appraisal backend unreachable")
	ErrBadPayload  = errors.New("appraisal backend returned a non-JSON payload")
)

// FetchError describes a failed fetch. It unwraps to exactly one of the sentinels above.
// Cause is a short phrase safe to show to users.
type FetchError struct {
	Kind   Kind
	ID     string
	Status int
	Cause  string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s %q: status %d: %v", e.Kind, e.ID, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s %q: %v", e.Kind, e.ID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// transportCause names a transport failure without leaking addresses.
func transportCause(err error) string {
	var (
		ne  net.Error
		dns *net.DNSError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return "the request was cancelled"
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &ne) && ne.Timeout():
		return "the request timed out"
	case errors.Is(err, syscall.ECONNREFUSED):
		return "the connection was refused"
	case errors.As(err, &dns):
		return "the host name could not be resolved"
	default:
		return "a network error occurred"
	}
}

func causeOf(err error) string {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Cause
	}
	return ""
}

// UserMessage maps a fetch error to the sentence shown to the user.
func UserMessage(err error, id string) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return fmt.Sprintf("Sorry, the appraisal record for '%s' was not found.", id)
	case errors.Is(err, ErrUnreachable):
		if cause := causeOf(err); cause != "" {
			return fmt.Sprintf("Sorry, I could not reach the appraisal system to look up '%s': %s. Please try again later.", id, cause)
		}
		return fmt.Sprintf("Sorry, I could not reach the appraisal system to look up '%s'. Please try again later.", id)
	case errors.Is(err, ErrBadPayload):
		if cause := causeOf(err); cause != "" {
			return fmt.Sprintf("Sorry, the appraisal system sent back data I could not read for '%s' (%s).", id, cause)
		}
		return fmt.Sprintf("Sorry, the appraisal system sent back data I could not read for '%s'.", id)
	case errors.Is(err, ErrServer):
		var fe *FetchError
		if errors.As(err, &fe) && fe.Status != 0 {
			return fmt.Sprintf("Sorry, I could not retrieve the record for '%s'. The system reported status %d.", id, fe.Status)
		}
		return fmt.Sprintf("Sorry, I could not retrieve the record for '%s'. The system reported an error.", id)
	default:
		return fmt.Sprintf("Sorry, I could not retrieve the record for '%s': %v.", id, err)
	}
}
