package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"dream-backend/internal/dreams"
	"dream-backend/internal/interpretation"
	"dream-backend/internal/stream"
)

// pipeTransport hands each opened request to the test as a writable stream.
type pipeTransport struct {
	opened  chan *pipeStream
	openErr error
}

type pipeStream struct {
	dream string
	w     *io.PipeWriter
	enc   *stream.Encoder
}

func newPipeTransport() *pipeTransport {
	return &pipeTransport{opened: make(chan *pipeStream, 8)}
}

func (p *pipeTransport) Open(ctx context.Context, dream string) (io.ReadCloser, error) {
	if p.openErr != nil {
		return nil, p.openErr
	}
	r, w := io.Pipe()
	go func() {
		<-ctx.Done()
		_ = w.CloseWithError(ctx.Err())
	}()
	p.opened <- &pipeStream{dream: dream, w: w, enc: stream.NewEncoder(w)}
	return r, nil
}

func (p *pipeTransport) next(t *testing.T) *pipeStream {
	t.Helper()
	select {
	case s := <-p.opened:
		return s
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the transport to open")
		return nil
	}
}

type recordingSaver struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (s *recordingSaver) Save(ctx context.Context, originalText, formatted string) (dreams.SavedDream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, originalText+"\x00"+formatted)
	if s.err != nil {
		return dreams.SavedDream{}, s.err
	}
	return dreams.SavedDream{ID: "saved-1", OriginalText: originalText, FormattedInterpretation: formatted}, nil
}

func (s *recordingSaver) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type stateLog struct {
	mu     sync.Mutex
	states []State
}

func (l *stateLog) record(s State) {
	l.mu.Lock()
	l.states = append(l.states, s)
	l.mu.Unlock()
}

func (l *stateLog) all() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]State(nil), l.states...)
}

func newTestInterpreter(t *testing.T, opts Options) *Interpreter {
	t.Helper()
	it, err := NewInterpreter(opts)
	if err != nil {
		t.Fatalf("NewInterpreter: %v", err)
	}
	t.Cleanup(it.Close)
	return it
}

func waitFor(t *testing.T, it *Interpreter, what string, cond func(State) bool) State {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		st := it.State()
		if cond(st) {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s; last state %+v", what, st)
		}
		time.Sleep(time.Millisecond)
	}
}

func waitSettled(t *testing.T, it *Interpreter) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := it.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func fullDocument(t *testing.T) json.RawMessage {
	t.Helper()
	raw, err := os.ReadFile("../interpretation/testdata/valid_document.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	doc, err := interpretation.Validate(raw)
	if err != nil {
		t.Fatalf("fixture does not validate: %v", err)
	}
	compact, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return compact
}

func TestProgressiveStreamCompletesAndSavesOnce(t *testing.T) {
	transport := newPipeTransport()
	saver := &recordingSaver{}
	var log stateLog
	it := newTestInterpreter(t, Options{Transport: transport, Saver: saver, OnChange: log.record})

	if err := it.Interpret("Lensin pilvien yläpuolella"); err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	s := transport.next(t)
	if s.dream != "Lensin pilvien yläpuolella" {
		t.Fatalf("unexpected dream sent %q", s.dream)
	}

	full := fullDocument(t)
	_ = s.enc.WriteSnapshot(json.RawMessage(`{"summary":"You float above the clouds."}`))
	_ = s.enc.WriteSnapshot(json.RawMessage(`{"summary":"You float above the clouds.","mood":"peaceful"}`))
	_ = s.enc.WriteSnapshot(full)

	st := waitFor(t, it, "full snapshot", func(s State) bool { return s.IsComplete })
	if st.Status != StatusStreaming || st.Progress == 100 {
		t.Fatalf("expected complete-looking document while still streaming, got %+v", st)
	}

	_ = s.enc.WriteDone()
	waitSettled(t, it)

	final := it.State()
	if final.Status != StatusComplete || final.Progress != 100 || final.IsLoading || final.Error != nil {
		t.Fatalf("unexpected final state %+v", final)
	}
	if final.LastSavedDream == nil || final.LastSavedDream.OriginalText != "Lensin pilvien yläpuolella" {
		t.Fatalf("expected saved dream, got %+v", final.LastSavedDream)
	}
	if saver.count() != 1 {
		t.Fatalf("expected one save, got %d", saver.count())
	}
	if !strings.Contains(saver.calls[0], "Summary") {
		t.Fatalf("expected formatted interpretation to be saved, got %q", saver.calls[0])
	}

	states := log.all()
	prev := 0
	for i, s := range states {
		if s.Progress < prev {
			t.Fatalf("state %d: progress regressed from %d to %d", i, prev, s.Progress)
		}
		if (s.Progress == 100) != (s.Status == StatusComplete) {
			t.Fatalf("state %d: progress %d with status %s", i, s.Progress, s.Status)
		}
		if s.Status.InFlight() && s.Progress < minInFlightProgress {
			t.Fatalf("state %d: in-flight progress %d below floor", i, s.Progress)
		}
		prev = s.Progress
	}
	if states[0].Status != StatusSubmitted || states[0].Progress != minInFlightProgress {
		t.Fatalf("expected first state to be submitted at the floor, got %+v", states[0])
	}
}

func TestEmptyDreamFailsWithoutOpeningTransport(t *testing.T) {
	transport := newPipeTransport()
	saver := &recordingSaver{}
	it := newTestInterpreter(t, Options{Transport: transport, Saver: saver})

	if err := it.Interpret("   "); err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	st := it.State()
	if st.Status != StatusError || st.Error == nil || st.Error.Code != ErrorCodeMissingDream {
		t.Fatalf("expected MISSING_DREAM error, got %+v", st)
	}
	select {
	case <-transport.opened:
		t.Fatalf("expected no request to be opened")
	default:
	}
	if saver.count() != 0 {
		t.Fatalf("expected no save")
	}
}

func TestMalformedFrameIsSkipped(t *testing.T) {
	transport := newPipeTransport()
	it := newTestInterpreter(t, Options{Transport: transport})

	_ = it.Interpret("I was in a maze")
	s := transport.next(t)
	_ = s.enc.WriteSnapshot(json.RawMessage(`{"summary":"A maze"}`))
	_, _ = io.WriteString(s.w, "data: {not json\n\n")
	_ = s.enc.WriteSnapshot(json.RawMessage(`{"summary":"A maze","mood":"confused"}`))

	st := waitFor(t, it, "second valid frame", func(s State) bool {
		return s.Interpretation != nil && s.Interpretation.Mood != nil
	})
	if st.Status != StatusStreaming || st.Error != nil {
		t.Fatalf("expected healthy stream, got %+v", st)
	}
	if interpretation.Text(st.Interpretation.Summary) != "A maze" {
		t.Fatalf("expected first frame content to survive, got %+v", st.Interpretation)
	}
}

func TestCancelIsSilent(t *testing.T) {
	transport := newPipeTransport()
	saver := &recordingSaver{}
	it := newTestInterpreter(t, Options{Transport: transport, Saver: saver})

	_ = it.Interpret("I was falling")
	s := transport.next(t)
	_ = s.enc.WriteSnapshot(json.RawMessage(`{"summary":"Falling"}`))
	waitFor(t, it, "first frame", func(s State) bool { return s.Status == StatusStreaming })

	it.Cancel()
	it.Cancel()
	_ = s.enc.WriteDone()
	waitSettled(t, it)

	st := it.State()
	if st.Status != StatusCancelled || st.Error != nil || st.LastSavedDream != nil || st.IsLoading {
		t.Fatalf("unexpected state after cancel %+v", st)
	}
	if st.Interpretation == nil {
		t.Fatalf("expected partial interpretation to stay visible")
	}
	if saver.count() != 0 {
		t.Fatalf("expected no save after cancel, got %d", saver.count())
	}
}

func TestSecondSubmissionSupersedesFirst(t *testing.T) {
	transport := newPipeTransport()
	saver := &recordingSaver{}
	var log stateLog
	it := newTestInterpreter(t, Options{Transport: transport, Saver: saver, OnChange: log.record})

	_ = it.Interpret("first dream")
	first := transport.next(t)
	_ = first.enc.WriteSnapshot(json.RawMessage(`{"summary":"first"}`))
	waitFor(t, it, "first frame", func(s State) bool { return s.Status == StatusStreaming })

	time.Sleep(10 * time.Millisecond)
	_ = it.Interpret("second dream")
	second := transport.next(t)
	secondGen := it.State().Generation

	_ = first.enc.WriteSnapshot(json.RawMessage(`{"summary":"late first"}`))
	_ = first.enc.WriteDone()
	_ = second.enc.WriteSnapshot(fullDocument(t))
	_ = second.enc.WriteDone()
	waitSettled(t, it)

	st := it.State()
	if st.Status != StatusComplete || st.DreamContent != "second dream" {
		t.Fatalf("unexpected final state %+v", st)
	}
	if strings.Contains(interpretation.Text(st.Interpretation.Summary), "first") {
		t.Fatalf("first request leaked into the result: %q", interpretation.Text(st.Interpretation.Summary))
	}
	for i, s := range log.all() {
		if s.Generation >= secondGen && s.Interpretation != nil && strings.Contains(interpretation.Text(s.Interpretation.Summary), "first") {
			t.Fatalf("state %d: stale frame applied after supersession", i)
		}
	}
	if saver.count() != 1 || !strings.HasPrefix(saver.calls[0], "second dream\x00") {
		t.Fatalf("expected one save for the second dream, got %q", saver.calls)
	}
}

func TestDuplicateSubmissionIsIgnored(t *testing.T) {
	transport := newPipeTransport()
	it := newTestInterpreter(t, Options{Transport: transport})

	_ = it.Interpret("same dream")
	transport.next(t)
	gen := it.State().Generation
	_ = it.Interpret("  same dream ")

	if it.State().Generation != gen {
		t.Fatalf("expected duplicate submission to be ignored")
	}
	select {
	case <-transport.opened:
		t.Fatalf("expected no second request")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestErrorFrameKeepsPartialDocument(t *testing.T) {
	transport := newPipeTransport()
	saver := &recordingSaver{}
	it := newTestInterpreter(t, Options{Transport: transport, Saver: saver})

	_ = it.Interpret("I was swimming")
	s := transport.next(t)
	_ = s.enc.WriteSnapshot(json.RawMessage(`{"summary":"Water","mood":"peaceful"}`))
	_ = s.enc.WriteError("The interpretation stream was interrupted.", stream.CodeStreamError)
	waitSettled(t, it)

	st := it.State()
	if st.Status != StatusError || st.Error == nil || st.Error.Code != ErrorCodeStream {
		t.Fatalf("expected STREAM_ERROR, got %+v", st)
	}
	if st.Interpretation == nil || interpretation.Text(st.Interpretation.Summary) != "Water" {
		t.Fatalf("expected partial document to be kept, got %+v", st.Interpretation)
	}
	if st.Progress == 100 || saver.count() != 0 {
		t.Fatalf("expected no completion, got progress %d saves %d", st.Progress, saver.count())
	}
}

func TestTransportErrorsBecomeStateErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "server code", err: &Error{Message: "Too many requests", Code: "RATE_LIMITED"}, wantCode: "RATE_LIMITED"},
		{name: "network", err: errors.New("dial tcp 127.0.0.1:1: connect: connection refused"), wantCode: ErrorCodeNetwork},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			transport := newPipeTransport()
			transport.openErr = tt.err
			it := newTestInterpreter(t, Options{Transport: transport})

			_ = it.Interpret("I was late for an exam")
			waitSettled(t, it)

			st := it.State()
			if st.Status != StatusError || st.Error == nil || st.Error.Code != tt.wantCode {
				t.Fatalf("expected %s, got %+v", tt.wantCode, st)
			}
			if strings.Contains(st.Error.Message, "127.0.0.1") {
				t.Fatalf("expected a human readable message, got %q", st.Error.Message)
			}
		})
	}
}

func TestEndOfStreamWithoutDoneCompletes(t *testing.T) {
	transport := newPipeTransport()
	it := newTestInterpreter(t, Options{Transport: transport})

	_ = it.Interpret("I was home")
	s := transport.next(t)
	_ = s.enc.WriteSnapshot(fullDocument(t))
	_ = s.w.Close()
	waitSettled(t, it)

	if st := it.State(); st.Status != StatusComplete || st.Progress != 100 {
		t.Fatalf("expected completion at EOF, got %+v", st)
	}
}

func TestEndOfStreamWithoutDataFails(t *testing.T) {
	transport := newPipeTransport()
	it := newTestInterpreter(t, Options{Transport: transport})

	_ = it.Interpret("I was home")
	s := transport.next(t)
	_ = s.enc.WriteDone()
	waitSettled(t, it)

	if st := it.State(); st.Status != StatusError || st.Error.Code != ErrorCodeStream {
		t.Fatalf("expected STREAM_ERROR for an empty stream, got %+v", st)
	}
}

func TestValidationFailureIsAdvisory(t *testing.T) {
	transport := newPipeTransport()
	saver := &recordingSaver{}
	it := newTestInterpreter(t, Options{Transport: transport, Saver: saver})

	_ = it.Interpret("I was flying")
	s := transport.next(t)
	_ = s.enc.WriteSnapshot(json.RawMessage(`{"summary":"Flight","mood":"peaceful","keyMessage":"Let go"}`))
	_ = s.enc.WriteDone()
	waitSettled(t, it)

	st := it.State()
	if st.Status != StatusComplete || st.Error != nil || st.Progress != 100 {
		t.Fatalf("expected best-effort completion, got %+v", st)
	}
	if interpretation.Text(st.Interpretation.KeyMessage) != "Let go" {
		t.Fatalf("expected best-effort document, got %+v", st.Interpretation)
	}
	if saver.count() != 1 {
		t.Fatalf("expected best-effort result to be saved, got %d", saver.count())
	}
}

func TestSaveFailureIsSwallowed(t *testing.T) {
	transport := newPipeTransport()
	saver := &recordingSaver{err: errors.New("disk full")}
	it := newTestInterpreter(t, Options{Transport: transport, Saver: saver})

	_ = it.Interpret("I was flying")
	s := transport.next(t)
	_ = s.enc.WriteSnapshot(fullDocument(t))
	_ = s.enc.WriteDone()
	waitSettled(t, it)

	st := it.State()
	if st.Status != StatusComplete || st.Error != nil || st.LastSavedDream != nil {
		t.Fatalf("expected completion without error, got %+v", st)
	}
}

func TestIdleTimeout(t *testing.T) {
	transport := newPipeTransport()
	it := newTestInterpreter(t, Options{Transport: transport, IdleTimeout: 150 * time.Millisecond})

	_ = it.Interpret("I was waiting")
	s := transport.next(t)
	_ = s.enc.WriteSnapshot(json.RawMessage(`{"summary":"Waiting"}`))
	waitSettled(t, it)

	st := it.State()
	if st.Status != StatusError || st.Error.Code != ErrorCodeStreamTimeout || st.Interpretation == nil {
		t.Fatalf("expected STREAM_TIMEOUT with partial kept, got %+v", st)
	}
}

func TestResetClearsState(t *testing.T) {
	transport := newPipeTransport()
	it := newTestInterpreter(t, Options{Transport: transport})

	_ = it.Interpret("I was lost")
	s := transport.next(t)
	_ = s.enc.WriteSnapshot(json.RawMessage(`{"summary":"Lost"}`))
	before := waitFor(t, it, "first frame", func(s State) bool { return s.Status == StatusStreaming })

	it.Reset()
	_ = s.enc.WriteSnapshot(json.RawMessage(`{"summary":"Lost","mood":"confused"}`))

	st := it.State()
	if st.Status != StatusIdle || st.Interpretation != nil || st.Progress != 0 || st.DreamContent != "" || st.Error != nil {
		t.Fatalf("expected initial state after reset, got %+v", st)
	}
	if st.Generation <= before.Generation {
		t.Fatalf("expected reset to bump the generation")
	}
}

func TestStaleHandlersAreNoOps(t *testing.T) {
	transport := newPipeTransport()
	saver := &recordingSaver{}
	it := newTestInterpreter(t, Options{Transport: transport, Saver: saver})

	_ = it.Interpret("old dream")
	transport.next(t)
	staleGen := it.State().Generation
	_ = it.Interpret("new dream")
	transport.next(t)

	var saves sync.WaitGroup
	it.apply(staleGen, json.RawMessage(`{"summary":"stale"}`))
	it.finish(staleGen, &saves)
	it.fail(context.Background(), staleGen, errors.New("stale failure"))
	saves.Wait()

	st := it.State()
	if st.Interpretation != nil || st.Status != StatusSubmitted || st.Error != nil {
		t.Fatalf("stale handlers changed state: %+v", st)
	}
	if saver.count() != 0 {
		t.Fatalf("stale finish triggered a save")
	}
}

func TestFinishSavesOncePerGeneration(t *testing.T) {
	transport := newPipeTransport()
	saver := &recordingSaver{}
	it := newTestInterpreter(t, Options{Transport: transport, Saver: saver})

	_ = it.Interpret("I was flying")
	transport.next(t)
	gen := it.State().Generation
	it.apply(gen, fullDocument(t))

	var saves sync.WaitGroup
	it.finish(gen, &saves)
	it.finish(gen, &saves)
	saves.Wait()

	if saver.count() != 1 {
		t.Fatalf("expected exactly one save, got %d", saver.count())
	}
}

func TestInterpretAfterClose(t *testing.T) {
	it, err := NewInterpreter(Options{Transport: newPipeTransport()})
	if err != nil {
		t.Fatalf("NewInterpreter: %v", err)
	}
	it.Close()
	if err := it.Interpret("dream"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err := NewInterpreter(Options{}); err == nil {
		t.Fatalf("expected missing transport to be rejected")
	}
}
