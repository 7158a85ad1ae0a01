// Package stream implements the server-sent-events framing used between the
// interpretation endpoint and its consumers: one JSON snapshot per block,
// a terminal [DONE] block, and in-band error blocks.
package stream

import (
	"encoding/json"
	"fmt"
)

const (
	DataPrefix   = "data: "
	Delimiter    = "\n\n"
	DoneSentinel = "[DONE]"
)

// CodeStreamError is the code carried by error frames written after the
// stream has started.
const CodeStreamError = "STREAM_ERROR"

type Kind int

const (
	KindSnapshot Kind = iota + 1
	KindDone
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindSnapshot:
		return "snapshot"
	case KindDone:
		return "done"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Frame is one decoded block. Data is set for snapshots and Err for error frames.
type Frame struct {
	Kind Kind
	Data json.RawMessage
	Err  *ErrorPayload
}

// ErrorPayload is the body of an error frame.
type ErrorPayload struct {
	Message string `json:"error"`
	Code    string `json:"code,omitempty"`
}

func (e *ErrorPayload) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

// Event is what Read delivers: either a frame or a read error.
type Event struct {
	Frame Frame
	Err   error
}
