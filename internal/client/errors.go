package client

import (
	"errors"
	"fmt"
)

const (
	ErrorCodeMissingDream  = "MISSING_DREAM"
	ErrorCodeNetwork       = "NETWORK_ERROR"
	ErrorCodeStream        = "STREAM_ERROR"
	ErrorCodeStreamTimeout = "STREAM_TIMEOUT"
)

// ErrClosed is returned by Interpret after Close.
var ErrClosed = errors.New("interpreter closed")

// Error is the caller-facing failure of one interpretation request.
type Error struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func (e *Error) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func httpStatusCode(status int) string {
	return fmt.Sprintf("HTTP_%d", status)
}

// asError converts err into an *Error, keeping server-provided codes and
// treating anything else as a network failure.
func asError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{
		Message: "Could not reach the interpretation service. Check your connection and try again.",
		Code:    ErrorCodeNetwork,
	}
}
