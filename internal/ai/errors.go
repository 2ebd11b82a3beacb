package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrEmptyReply means the API answered but nothing usable could be parsed.
var ErrEmptyReply = errors.New("empty or unusable generated text")

// StatusError is a non-200 answer from the generation API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("generation api status=%d body=%s", e.Code, e.Body)
}

// StatusCode lets the retry limiter classify the error.
func (e *StatusError) StatusCode() int { return e.Code }

// FailureKind selects the fallback phrase family.
type FailureKind string

const (
	FailureNone      FailureKind = ""
	FailureEmpty     FailureKind = "empty"
	FailureStatus    FailureKind = "status"
	FailureTimeout   FailureKind = "timeout"
	FailureException FailureKind = "exception"
)

// ClassifyFailure maps a Generate error onto its fallback family.
func ClassifyFailure(err error) FailureKind {
	if err == nil {
		return FailureNone
	}
	var se *StatusError
	switch {
	case errors.Is(err, ErrEmptyReply):
		return FailureEmpty
	case errors.As(err, &se):
		return FailureStatus
	case errors.Is(err, context.DeadlineExceeded):
		return FailureTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return FailureTimeout
	}
	return FailureException
}
