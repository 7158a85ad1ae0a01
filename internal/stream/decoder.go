package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"dream-backend/internal/shared/telemetry"
)

const readBufferSize = 4096

// Decoder splits an arbitrarily chunked byte stream into frames. Bytes after
// the last delimiter are held until a later Feed completes the block.
type Decoder struct {
	buf []byte
}

// Feed appends chunk and returns every frame completed by it, in order.
// Malformed blocks are logged and skipped.
func (d *Decoder) Feed(chunk []byte) []Frame {
	for _, b := range chunk {
		if b != '\r' {
			d.buf = append(d.buf, b)
		}
	}

	var frames []Frame
	for {
		idx := bytes.Index(d.buf, []byte(Delimiter))
		if idx < 0 {
			break
		}
		block := string(d.buf[:idx])
		d.buf = d.buf[idx+len(Delimiter):]
		if frame, ok := parseBlock(block); ok {
			frames = append(frames, frame)
		}
	}
	if len(d.buf) == 0 {
		d.buf = nil
	}
	return frames
}

// Pending returns the number of buffered bytes not yet part of a complete block.
func (d *Decoder) Pending() int {
	return len(d.buf)
}

func parseBlock(block string) (Frame, bool) {
	var data []string
	for _, line := range strings.Split(block, "\n") {
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, "data:") {
			// event:, id:, retry: carry nothing for this stream
			continue
		}
		value := strings.TrimPrefix(line, "data:")
		value = strings.TrimPrefix(value, " ")
		data = append(data, value)
	}
	if len(data) == 0 {
		return Frame{}, false
	}

	payload := strings.TrimSpace(strings.Join(data, "\n"))
	if payload == DoneSentinel {
		return Frame{Kind: KindDone}, true
	}
	if !json.Valid([]byte(payload)) {
		telemetry.Warn("stream.frame_malformed", map[string]any{
			"bytes":   len(payload),
			"preview": preview(payload),
		})
		return Frame{}, false
	}
	if errPayload, ok := parseError(payload); ok {
		return Frame{Kind: KindError, Err: errPayload}, true
	}
	return Frame{Kind: KindSnapshot, Data: json.RawMessage(payload)}, true
}

// parseError recognises any object carrying an "error" key. The value may be a
// string or an object with a message field.
func parseError(payload string) (*ErrorPayload, bool) {
	if !strings.HasPrefix(payload, "{") {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return nil, false
	}
	raw, ok := fields["error"]
	if !ok {
		return nil, false
	}

	out := &ErrorPayload{}
	if code, ok := fields["code"]; ok {
		_ = json.Unmarshal(code, &out.Code)
	}
	var message string
	if err := json.Unmarshal(raw, &message); err == nil {
		out.Message = message
		return out, true
	}
	var nested struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil && nested.Message != "" {
		out.Message = nested.Message
		if out.Code == "" {
			out.Code = nested.Code
		}
		return out, true
	}
	out.Message = string(raw)
	return out, true
}

func preview(s string) string {
	const limit = 80
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

// Read decodes r on a goroutine and delivers frames on the returned channel in
// arrival order. A read error is delivered as a final Event with Err set; the
// channel is closed at EOF, on error, or when ctx is done.
func Read(ctx context.Context, r io.Reader) <-chan Event {
	events := make(chan Event)
	go func() {
		defer close(events)
		var dec Decoder
		buf := make([]byte, readBufferSize)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				for _, frame := range dec.Feed(buf[:n]) {
					select {
					case events <- Event{Frame: frame}:
					case <-ctx.Done():
						return
					}
				}
			}
			if err == nil {
				continue
			}
			if errors.Is(err, io.EOF) {
				if pending := dec.Pending(); pending > 0 {
					telemetry.Warn("stream.trailing_fragment_dropped", map[string]any{"bytes": pending})
				}
				return
			}
			if ctx.Err() != nil {
				return
			}
			select {
			case events <- Event{Err: err}:
			case <-ctx.Done():
			}
			return
		}
	}()
	return events
}
