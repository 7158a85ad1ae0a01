package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/iotest"
)

const sampleStream = "data: {\"summary\":\"Fly\"}\n\n" +
	": keep-alive\n\n" +
	"data: {\"summary\":\"Flying\",\"mood\":\"happy\"}\n\n" +
	"event: message\ndata: {\"summary\":\"Flying\",\"mood\":\"happy\",\"tags\":[\"sky\"]}\n\n" +
	"data: [DONE]\n\n"

func TestEncoderWritesFramesAndFlushes(t *testing.T) {
	rec := httptest.NewRecorder()
	enc := NewEncoder(rec)

	if err := enc.WriteSnapshot(json.RawMessage("{\n  \"summary\": \"Fly\"\n}")); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if err := enc.WriteError("model failed", CodeStreamError); err != nil {
		t.Fatalf("WriteError: %v", err)
	}
	if err := enc.WriteDone(); err != nil {
		t.Fatalf("WriteDone: %v", err)
	}

	want := "data: {\"summary\":\"Fly\"}\n\n" +
		"data: {\"error\":\"model failed\",\"code\":\"STREAM_ERROR\"}\n\n" +
		"data: [DONE]\n\n"
	if got := rec.Body.String(); got != want {
		t.Fatalf("unexpected body:\n%q\nwant:\n%q", got, want)
	}
	if !rec.Flushed {
		t.Fatalf("expected recorder to be flushed")
	}
	if enc.Frames() != 3 {
		t.Fatalf("expected 3 frames, got %d", enc.Frames())
	}
}

func TestEncoderRejectsInvalidSnapshot(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	if err := enc.WriteSnapshot(json.RawMessage(`{"summary":`)); err == nil {
		t.Fatalf("expected error for invalid snapshot")
	}
	if buf.Len() != 0 {
		t.Fatalf("expected nothing written, got %q", buf.String())
	}
}

func TestDecoderSplitAtEveryOffset(t *testing.T) {
	var whole Decoder
	want := whole.Feed([]byte(sampleStream))
	if len(want) != 4 {
		t.Fatalf("expected 4 frames from whole stream, got %d", len(want))
	}

	for i := 0; i <= len(sampleStream); i++ {
		var dec Decoder
		got := dec.Feed([]byte(sampleStream[:i]))
		got = append(got, dec.Feed([]byte(sampleStream[i:]))...)
		assertFrames(t, i, got, want)
		if dec.Pending() != 0 {
			t.Fatalf("offset %d: expected empty buffer, got %d bytes", i, dec.Pending())
		}
	}
}

func TestDecoderOneByteAtATime(t *testing.T) {
	var whole Decoder
	want := whole.Feed([]byte(sampleStream))

	var dec Decoder
	var got []Frame
	for i := 0; i < len(sampleStream); i++ {
		got = append(got, dec.Feed([]byte{sampleStream[i]})...)
	}
	assertFrames(t, -1, got, want)
}

func TestDecoderHoldsIncompleteBlock(t *testing.T) {
	var dec Decoder
	frames := dec.Feed([]byte(`data: {"summary":"Fly`))
	if len(frames) != 0 {
		t.Fatalf("expected no frames before delimiter, got %d", len(frames))
	}
	frames = dec.Feed([]byte("ing\"}\n\ndata: [DONE]\n\n"))
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if frames[0].Kind != KindSnapshot || string(frames[0].Data) != `{"summary":"Flying"}` {
		t.Fatalf("unexpected first frame: %+v", frames[0])
	}
	if frames[1].Kind != KindDone {
		t.Fatalf("expected done frame, got %v", frames[1].Kind)
	}
}

func TestDecoderAcceptsCRLF(t *testing.T) {
	var dec Decoder
	frames := dec.Feed([]byte("data: {\"mood\":\"sad\"}\r\n\r\ndata: [DONE]\r"))
	frames = append(frames, dec.Feed([]byte("\n\r\n"))...)
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if string(frames[0].Data) != `{"mood":"sad"}` || frames[1].Kind != KindDone {
		t.Fatalf("unexpected frames: %+v", frames)
	}
}

func TestDecoderJoinsMultipleDataLines(t *testing.T) {
	var dec Decoder
	frames := dec.Feed([]byte("data: {\"summary\":\ndata: \"joined\"}\n\n"))
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	var v map[string]string
	if err := json.Unmarshal(frames[0].Data, &v); err != nil || v["summary"] != "joined" {
		t.Fatalf("unexpected joined payload %q: %v", frames[0].Data, err)
	}
}

func TestDecoderErrorFrames(t *testing.T) {
	tests := []struct {
		name        string
		block       string
		wantMessage string
		wantCode    string
	}{
		{name: "string error", block: `data: {"error":"quota exceeded","code":"STREAM_ERROR"}`, wantMessage: "quota exceeded", wantCode: "STREAM_ERROR"},
		{name: "no code", block: `data: {"error":"boom"}`, wantMessage: "boom"},
		{name: "nested error", block: `data: {"error":{"message":"overloaded","code":"server_busy"}}`, wantMessage: "overloaded", wantCode: "server_busy"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			var dec Decoder
			frames := dec.Feed([]byte(tt.block + Delimiter))
			if len(frames) != 1 || frames[0].Kind != KindError {
				t.Fatalf("expected one error frame, got %+v", frames)
			}
			if frames[0].Err.Message != tt.wantMessage || frames[0].Err.Code != tt.wantCode {
				t.Fatalf("unexpected error payload %+v", frames[0].Err)
			}
		})
	}
}

func TestDecoderSkipsMalformedBlocks(t *testing.T) {
	var dec Decoder
	frames := dec.Feed([]byte("data: {not json\n\nid: 7\n\ndata: {\"mood\":\"sad\"}\n\n"))
	if len(frames) != 1 {
		t.Fatalf("expected malformed block to be skipped, got %d frames", len(frames))
	}
	if frames[0].Kind != KindSnapshot {
		t.Fatalf("expected snapshot, got %v", frames[0].Kind)
	}
}

func TestReadDeliversFramesInOrder(t *testing.T) {
	r := iotest.OneByteReader(strings.NewReader(sampleStream + "data: {\"trailing\":"))
	var kinds []Kind
	for ev := range Read(context.Background(), r) {
		if ev.Err != nil {
			t.Fatalf("unexpected error event: %v", ev.Err)
		}
		kinds = append(kinds, ev.Frame.Kind)
	}
	want := []Kind{KindSnapshot, KindSnapshot, KindSnapshot, KindDone}
	if len(kinds) != len(want) {
		t.Fatalf("expected kinds %v, got %v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("expected kinds %v, got %v", want, kinds)
		}
	}
}

func TestReadReportsReaderError(t *testing.T) {
	boom := errors.New("connection reset")
	r := io.MultiReader(strings.NewReader("data: {\"mood\":\"sad\"}\n\n"), iotest.ErrReader(boom))

	var events []Event
	for ev := range Read(context.Background(), r) {
		events = append(events, ev)
	}
	if len(events) != 2 {
		t.Fatalf("expected frame then error, got %d events", len(events))
	}
	if !errors.Is(events[1].Err, boom) {
		t.Fatalf("expected reader error, got %v", events[1].Err)
	}
}

func TestReadStopsOnCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	ctx, cancel := context.WithCancel(context.Background())
	events := Read(ctx, pr)

	go func() {
		_, _ = pw.Write([]byte("data: {\"mood\":\"sad\"}\n\ndata: {\"mood\":\"happy\"}\n\n"))
	}()
	first := <-events
	if first.Frame.Kind != KindSnapshot {
		t.Fatalf("expected snapshot, got %+v", first)
	}
	cancel()
	_ = pr.CloseWithError(context.Canceled)
	for ev := range events {
		if ev.Err != nil {
			t.Fatalf("expected no error after cancel, got %v", ev.Err)
		}
	}
}

func assertFrames(t *testing.T, offset int, got, want []Frame) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("offset %d: expected %d frames, got %d", offset, len(want), len(got))
	}
	for i := range want {
		if got[i].Kind != want[i].Kind || !bytes.Equal(got[i].Data, want[i].Data) {
			t.Fatalf("offset %d: frame %d mismatch: got %+v want %+v", offset, i, got[i], want[i])
		}
	}
}
