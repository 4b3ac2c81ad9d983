// Package ragErrors classifies failures of the ingestion and query pipelines.
//
// Every error produced at a pipeline or provider boundary is an *Error with a
// Kind. Kinds are matched with errors.Is against the Err* sentinels and the
// match walks the whole chain, so a ChatFailure caused by a Timeout satisfies
// both errors.Is(err, ErrChatFailure) and errors.Is(err, ErrTimeout).
package ragErrors

import (
	"context"
	"errors"
	"fmt"
)

type Kind string

const (
	Configuration       Kind = "ConfigurationError"
	InvalidInput        Kind = "InvalidInput"
	ProviderUnavailable Kind = "ProviderUnavailable"
	Timeout             Kind = "Timeout"
	ChatFailure         Kind = "ChatFailure"
)

var (
	ErrConfiguration       = &Error{Kind: Configuration}
	ErrInvalidInput        = &Error{Kind: InvalidInput}
	ErrProviderUnavailable = &Error{Kind: ProviderUnavailable}
	ErrTimeout             = &Error{Kind: Timeout}
	ErrChatFailure         = &Error{Kind: ChatFailure}

	// ErrInvalidTopic is the InvalidInput raised for a topic that is not configured.
	ErrInvalidTopic = &Error{Kind: InvalidInput, Step: "topic", Err: errors.New("unknown topic")}
)

type Error struct {
	Kind  Kind
	Step  string
	Topic string
	Err   error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Step != "" {
		msg += " [" + e.Step + "]"
	}
	if e.Topic != "" {
		msg += " topic=" + e.Topic
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind only, which lets the sentinels stand in for any error of
// the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	if t == ErrInvalidTopic {
		return e == ErrInvalidTopic || (e.Kind == InvalidInput && errors.Is(e.Err, ErrInvalidTopic))
	}
	return e.Kind == t.Kind
}

func New(kind Kind, step string, err error) *Error {
	return &Error{Kind: kind, Step: step, Err: err}
}

func Newf(kind Kind, step string, format string, args ...any) *Error {
	return &Error{Kind: kind, Step: step, Err: fmt.Errorf(format, args...)}
}

func (e *Error) WithTopic(topic string) *Error {
	e.Topic = topic
	return e
}

// KindOf returns the kind of the outermost classified error, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// FromProvider classifies an error returned by an external call. Already
// classified errors are returned as-is, context errors become Timeout and
// everything else is ProviderUnavailable.
func FromProvider(step string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return New(Timeout, step, err)
	}
	return New(ProviderUnavailable, step, err)
}

// FromStatusCode classifies an HTTP API error. A 400 or 422 means the request
// itself was rejected, anything else (auth, throttling, 5xx) is treated as the
// provider being unavailable.
func FromStatusCode(step string, status int, err error) error {
	switch status {
	case 400, 422:
		return New(InvalidInput, step, err)
	case 408, 504:
		return New(Timeout, step, err)
	}
	return New(ProviderUnavailable, step, err)
}
