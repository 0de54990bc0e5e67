package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a provider call failure.
type Kind string

const (
	// KindAuth means invalid or missing credentials. Never retried.
	KindAuth Kind = "auth"
	// KindTransient means rate limit, timeout, or server error. Retried with backoff.
	KindTransient Kind = "transient"
	// KindMalformed means the provider returned unparseable or empty content. Not retried.
	KindMalformed Kind = "malformed_response"
	// KindConfig means an invalid request or selection. Fatal, not retried.
	KindConfig Kind = "configuration"
)

// Error is a classified provider call failure.
type Error struct {
	Kind     Kind     `json:"kind"`
	Provider Provider `json:"provider,omitempty"`
	Status   int      `json:"status,omitempty"`
	Message  string   `json:"message"`
	Cause    error    `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: [%s] %s: %v", e.Provider, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: [%s] %s", e.Provider, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Retryable reports whether the failure may succeed on a later attempt.
func (e *Error) Retryable() bool { return e.Kind == KindTransient }

// Classify maps an HTTP error status to a classified Error.
func Classify(provider Provider, status int, body string) *Error {
	kind := KindConfig
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = KindAuth
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500:
		kind = KindTransient
	}
	return &Error{
		Kind:     kind,
		Provider: provider,
		Status:   status,
		Message:  fmt.Sprintf("unexpected status %d: %s", status, body),
	}
}

// ErrorKind extracts the classification from err, or KindTransient for
// plain transport errors (connection reset, timeout) that carry no status.
func ErrorKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransient
}

// IsRetryable reports whether err should be retried.
func IsRetryable(err error) bool {
	return ErrorKind(err) == KindTransient
}
