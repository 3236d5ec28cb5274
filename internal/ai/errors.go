package ai

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/sashabaranov/go-openai"
)

// ErrorKind distinguishes client mistakes from transient and permanent
// upstream failures.
type ErrorKind int

const (
	KindInvalidInput ErrorKind = iota
	KindTimeout
	KindNetwork
	KindUpstream
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network"
	case KindUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// Error is returned by Analyzer. Status and Body are set for upstream
// failures that carried an HTTP response.
type Error struct {
	Kind   ErrorKind
	Status int
	Body   string
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindUpstream:
		if e.Status != 0 {
			return fmt.Sprintf("upstream error: status %d: %s", e.Status, e.Body)
		}
		return "upstream error: " + e.Msg
	case KindNetwork:
		return "network error: " + e.Msg
	default:
		return e.Msg
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Detail returns the underlying cause for debug output.
func (e *Error) Detail() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Error()
}

func invalidInput(msg string) *Error {
	return &Error{Kind: KindInvalidInput, Msg: msg}
}

// classifyError maps a chat-completion client error onto an ErrorKind.
func classifyError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Msg: "request timeout", Err: err}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &Error{Kind: KindUpstream, Status: apiErr.HTTPStatusCode, Body: apiErr.Message, Msg: apiErr.Message, Err: err}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		body := string(reqErr.Body)
		if body == "" && reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return &Error{Kind: KindUpstream, Status: reqErr.HTTPStatusCode, Body: body, Msg: body, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Msg: "request timeout", Err: err}
	}

	return &Error{Kind: KindNetwork, Msg: err.Error(), Err: err}
}
