package ai

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a completion failure.
type ErrorKind int

const (
	KindTransport  ErrorKind = iota + 1 // network or connection failure (retried)
	KindHTTPStatus                      // non-2xx response (retried)
	KindDecode                          // 2xx body that does not match the contract (not retried)
	KindNoChoices                       // 2xx body with an empty result array (not retried)
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindHTTPStatus:
		return "http_status"
	case KindDecode:
		return "decode"
	case KindNoChoices:
		return "no_choices"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching against a *CompletionError of the same kind.
var (
	ErrTransport  = errors.New("completion transport error")
	ErrHTTPStatus = errors.New("completion http status error")
	ErrDecode     = errors.New("completion decode error")
	ErrNoChoices  = errors.New("completion returned no choices")
)

// CompletionError is the failure half of a completion result.
type CompletionError struct {
	Kind       ErrorKind
	Message    string
	StatusCode int   // set for KindHTTPStatus
	Err        error // underlying cause, if any
}

func (e *CompletionError) Error() string {
	msg := e.Message
	if e.Kind == KindHTTPStatus {
		msg = fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrHTTPStatus) and friends match by kind.
func (e *CompletionError) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrHTTPStatus:
		return e.Kind == KindHTTPStatus
	case ErrDecode:
		return e.Kind == KindDecode
	case ErrNoChoices:
		return e.Kind == KindNoChoices
	}
	return false
}

// Retriable reports whether another attempt could plausibly succeed.
func (e *CompletionError) Retriable() bool {
	return e.Kind == KindTransport || e.Kind == KindHTTPStatus
}
