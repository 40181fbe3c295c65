package chatbot

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindBlocked
	KindServiceError
	KindTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindBlocked:
		return "blocked"
	case KindServiceError:
		return "service_error"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error is the only error type the Gemini client returns for a failed call.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a client error. Errors that did not come from the
// client are Unknown.
func KindOf(err error) ErrorKind {
	var chatErr *Error
	if errors.As(err, &chatErr) {
		return chatErr.Kind
	}
	return KindUnknown
}

func blockedError(reason string) *Error {
	return &Error{Kind: KindBlocked, Message: reason}
}

func statusError(statusCode int, body []byte) *Error {
	kind := KindServiceError
	if statusCode == http.StatusGatewayTimeout || statusCode == http.StatusRequestTimeout {
		kind = KindTimeout
	}
	return &Error{
		Kind:       kind,
		StatusCode: statusCode,
		Message:    apiErrorMessage(body),
	}
}

// transportError classifies failures that happen before a response arrives.
func transportError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Err: err}
	}
	return &Error{Kind: KindUnknown, Err: err}
}
