package stream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Encoder writes frames to w, flushing after each one when w supports it.
type Encoder struct {
	w       io.Writer
	flusher http.Flusher
	frames  int
}

func NewEncoder(w io.Writer) *Encoder {
	enc := &Encoder{w: w}
	if f, ok := w.(http.Flusher); ok {
		enc.flusher = f
	}
	return enc
}

// WriteSnapshot writes one snapshot frame. The payload is compacted so that it
// fits on a single data line.
func (e *Encoder) WriteSnapshot(snapshot json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Compact(&buf, snapshot); err != nil {
		return fmt.Errorf("compact snapshot: %w", err)
	}
	return e.write(buf.Bytes())
}

func (e *Encoder) WriteDone() error {
	return e.write([]byte(DoneSentinel))
}

// WriteError writes an error frame. No frame should follow it.
func (e *Encoder) WriteError(message, code string) error {
	payload, err := json.Marshal(ErrorPayload{Message: message, Code: code})
	if err != nil {
		return err
	}
	return e.write(payload)
}

// Frames returns how many frames have been written so far.
func (e *Encoder) Frames() int {
	return e.frames
}

func (e *Encoder) write(payload []byte) error {
	buf := make([]byte, 0, len(DataPrefix)+len(payload)+len(Delimiter))
	buf = append(buf, DataPrefix...)
	buf = append(buf, payload...)
	buf = append(buf, Delimiter...)
	if _, err := e.w.Write(buf); err != nil {
		return err
	}
	e.frames++
	if e.flusher != nil {
		e.flusher.Flush()
	}
	return nil
}
