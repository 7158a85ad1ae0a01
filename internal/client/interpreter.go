// Package client consumes the interpretation stream: it merges snapshots into
// observable state, tracks progress, supports cancellation and supersession,
// and saves each completed interpretation once.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"dream-backend/internal/dreams"
	"dream-backend/internal/interpretation"
	"dream-backend/internal/shared/telemetry"
	"dream-backend/internal/stream"
)

const (
	minInFlightProgress = 10
	maxInFlightProgress = 99
)

type Status string

const (
	StatusIdle      Status = "idle"
	StatusSubmitted Status = "submitted"
	StatusStreaming Status = "streaming"
	StatusComplete  Status = "complete"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// InFlight reports whether a request is submitted or streaming.
func (s Status) InFlight() bool {
	return s == StatusSubmitted || s == StatusStreaming
}

// State is a point-in-time view of the interpreter.
type State struct {
	Interpretation *interpretation.Partial
	Status         Status
	IsLoading      bool
	Error          *Error
	DreamContent   string
	IsComplete     bool
	Progress       int
	LastSavedDream *dreams.SavedDream
	Generation     uint64
}

// Saver persists a completed interpretation.
type Saver interface {
	Save(ctx context.Context, originalText, formatted string) (dreams.SavedDream, error)
}

type Options struct {
	Transport Transport
	// Saver is optional; without it completed interpretations are not saved.
	Saver Saver
	// Validate checks the final snapshot. Defaults to interpretation.Validate.
	Validate func(raw []byte) (interpretation.Document, error)
	// OnChange receives every state transition in order. It runs on the
	// goroutine that caused the transition and may call back into the
	// Interpreter, except for Wait.
	OnChange func(State)
	// IdleTimeout fails a request with STREAM_TIMEOUT when no frame arrives
	// for this long. Zero disables it.
	IdleTimeout time.Duration
}

// Interpreter runs at most one logical interpretation request at a time.
// Every submission gets a new generation; results of older generations are
// dropped.
type Interpreter struct {
	transport   Transport
	saver       Saver
	validate    func(raw []byte) (interpretation.Document, error)
	onChange    func(State)
	idleTimeout time.Duration

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu           sync.Mutex
	gen          uint64
	status       Status
	dream        string
	doc          *interpretation.Partial
	raw          json.RawMessage
	err          *Error
	progress     int
	lastSaved    *dreams.SavedDream
	persistedGen uint64
	cancel       context.CancelFunc
	done         chan struct{}
	closed       bool

	pending  []State
	draining bool
	drained  *sync.Cond
}

// NewInterpreter constructs an idle Interpreter.
func NewInterpreter(opts Options) (*Interpreter, error) {
	if opts.Transport == nil {
		return nil, errors.New("client: transport is required")
	}
	validate := opts.Validate
	if validate == nil {
		validate = interpretation.Validate
	}
	ctx, cancel := context.WithCancel(context.Background())
	it := &Interpreter{
		transport:   opts.Transport,
		saver:       opts.Saver,
		validate:    validate,
		onChange:    opts.OnChange,
		idleTimeout: opts.IdleTimeout,
		baseCtx:     ctx,
		baseCancel:  cancel,
		status:      StatusIdle,
	}
	it.drained = sync.NewCond(&it.mu)
	return it, nil
}

// State returns the current state.
func (it *Interpreter) State() State {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.stateLocked()
}

// Interpret submits a dream. A call with the same text as the request in
// flight is ignored; any other call supersedes it.
func (it *Interpreter) Interpret(text string) error {
	dream := strings.TrimSpace(text)

	it.mu.Lock()
	if it.closed {
		it.mu.Unlock()
		return ErrClosed
	}
	if it.status.InFlight() && it.dream == dream {
		it.mu.Unlock()
		return nil
	}
	it.stopLocked()
	it.gen++
	gen := it.gen
	it.dream = dream
	it.doc = nil
	it.raw = nil
	it.err = nil
	it.lastSaved = nil

	if dream == "" {
		it.status = StatusError
		it.progress = 0
		it.err = &Error{Message: "Please describe your dream first.", Code: ErrorCodeMissingDream}
		notify := it.changedLocked()
		it.mu.Unlock()
		notify()
		return nil
	}

	it.status = StatusSubmitted
	it.progress = minInFlightProgress
	ctx, cancel := context.WithCancel(it.baseCtx)
	done := make(chan struct{})
	it.cancel = cancel
	it.done = done
	notify := it.changedLocked()
	it.mu.Unlock()
	notify()

	go it.run(ctx, cancel, gen, dream, done)
	return nil
}

// Cancel aborts the request in flight. It does nothing when no request is in
// flight and never sets an error.
func (it *Interpreter) Cancel() {
	it.mu.Lock()
	if !it.status.InFlight() {
		it.mu.Unlock()
		return
	}
	it.stopLocked()
	it.status = StatusCancelled
	notify := it.changedLocked()
	it.mu.Unlock()
	notify()
}

// Reset cancels any request and returns to the initial state.
func (it *Interpreter) Reset() {
	it.mu.Lock()
	it.stopLocked()
	it.gen++
	it.status = StatusIdle
	it.dream = ""
	it.doc = nil
	it.raw = nil
	it.err = nil
	it.progress = 0
	it.lastSaved = nil
	it.done = nil
	notify := it.changedLocked()
	it.mu.Unlock()
	notify()
}

// Wait blocks until the current generation has settled, including its save,
// and every state change has been delivered to OnChange.
func (it *Interpreter) Wait(ctx context.Context) error {
	it.mu.Lock()
	done := it.done
	it.mu.Unlock()
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	it.mu.Lock()
	for it.draining {
		it.drained.Wait()
	}
	it.mu.Unlock()
	return nil
}

// Close cancels any request and releases the interpreter. Pending saves are
// cancelled too.
func (it *Interpreter) Close() {
	it.Cancel()
	it.mu.Lock()
	it.closed = true
	it.mu.Unlock()
	it.baseCancel()
}

func (it *Interpreter) stopLocked() {
	if it.cancel != nil {
		it.cancel()
		it.cancel = nil
	}
}

func (it *Interpreter) run(ctx context.Context, cancel context.CancelFunc, gen uint64, dream string, done chan struct{}) {
	var saves sync.WaitGroup
	defer func() {
		saves.Wait()
		close(done)
	}()
	defer cancel()

	body, err := it.transport.Open(ctx, dream)
	if err != nil {
		it.fail(ctx, gen, err)
		return
	}
	defer body.Close()

	var idle <-chan time.Time
	var timer *time.Timer
	if it.idleTimeout > 0 {
		timer = time.NewTimer(it.idleTimeout)
		defer timer.Stop()
		idle = timer.C
	}

	events := stream.Read(ctx, body)
	for {
		select {
		case <-ctx.Done():
			return
		case <-idle:
			it.fail(ctx, gen, &Error{
				Message: "The interpretation stream stopped responding. Please try again.",
				Code:    ErrorCodeStreamTimeout,
			})
			return
		case ev, ok := <-events:
			if !ok {
				if ctx.Err() == nil {
					it.finish(gen, &saves)
				}
				return
			}
			if ev.Err != nil {
				it.fail(ctx, gen, ev.Err)
				return
			}
			switch ev.Frame.Kind {
			case stream.KindSnapshot:
				it.apply(gen, ev.Frame.Data)
			case stream.KindDone:
				it.finish(gen, &saves)
				return
			case stream.KindError:
				code := ev.Frame.Err.Code
				if code == "" {
					code = ErrorCodeStream
				}
				it.fail(ctx, gen, &Error{Message: ev.Frame.Err.Message, Code: code})
				return
			}
			if timer != nil {
				timer.Reset(it.idleTimeout)
			}
		}
	}
}

func (it *Interpreter) apply(gen uint64, data json.RawMessage) {
	p, err := interpretation.DecodePartial(data)
	if err != nil {
		telemetry.Warn("interpret.snapshot_undecodable", map[string]any{
			"generation": gen,
			"err":        err.Error(),
		})
		return
	}

	it.mu.Lock()
	if gen != it.gen || !it.status.InFlight() {
		it.mu.Unlock()
		return
	}
	it.doc = &p
	it.raw = append(json.RawMessage(nil), data...)
	it.status = StatusStreaming
	it.progress = inFlightProgress(it.progress, &p)
	notify := it.changedLocked()
	it.mu.Unlock()
	notify()
}

func inFlightProgress(prev int, p *interpretation.Partial) int {
	v := interpretation.Progress(p)
	if v < minInFlightProgress {
		v = minInFlightProgress
	}
	if v > maxInFlightProgress {
		v = maxInFlightProgress
	}
	if v < prev {
		v = prev
	}
	return v
}

func (it *Interpreter) finish(gen uint64, saves *sync.WaitGroup) {
	it.mu.Lock()
	if gen != it.gen || !it.status.InFlight() {
		it.mu.Unlock()
		return
	}
	if it.raw == nil {
		it.status = StatusError
		it.err = &Error{Message: "The interpretation stream ended without any data.", Code: ErrorCodeStream}
		notify := it.changedLocked()
		it.mu.Unlock()
		notify()
		return
	}

	if doc, err := it.validate(it.raw); err != nil {
		telemetry.Warn("interpret.validation_failed", map[string]any{
			"generation": gen,
			"err":        err.Error(),
		})
	} else {
		p := doc.ToPartial()
		it.doc = &p
	}
	it.status = StatusComplete
	it.progress = 100

	if it.saver != nil && it.persistedGen != gen {
		it.persistedGen = gen
		dream := it.dream
		formatted := interpretation.Format(it.doc)
		saves.Add(1)
		go func() {
			defer saves.Done()
			it.persist(gen, dream, formatted)
		}()
	}
	notify := it.changedLocked()
	it.mu.Unlock()
	notify()
}

func (it *Interpreter) persist(gen uint64, dream, formatted string) {
	saved, err := it.saver.Save(it.baseCtx, dream, formatted)
	if err != nil {
		telemetry.Error("dream.save_failed", map[string]any{
			"generation": gen,
			"err":        err.Error(),
		})
		return
	}

	it.mu.Lock()
	if gen != it.gen {
		it.mu.Unlock()
		return
	}
	it.lastSaved = &saved
	notify := it.changedLocked()
	it.mu.Unlock()
	notify()
}

func (it *Interpreter) fail(ctx context.Context, gen uint64, err error) {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return
	}

	it.mu.Lock()
	if gen != it.gen || !it.status.InFlight() {
		it.mu.Unlock()
		return
	}
	it.status = StatusError
	it.err = asError(err)
	telemetry.Warn("interpret.request_failed", map[string]any{
		"generation": gen,
		"code":       it.err.Code,
		"err":        err.Error(),
	})
	notify := it.changedLocked()
	it.mu.Unlock()
	notify()
}

func (it *Interpreter) stateLocked() State {
	st := State{
		Interpretation: it.doc,
		Status:         it.status,
		IsLoading:      it.status.InFlight(),
		Error:          it.err,
		DreamContent:   it.dream,
		IsComplete:     it.doc.IsComplete(),
		Progress:       it.progress,
		Generation:     it.gen,
	}
	if it.lastSaved != nil {
		saved := *it.lastSaved
		st.LastSavedDream = &saved
	}
	return st
}

// changedLocked queues the current state for OnChange. The returned func
// delivers queued states and must be called after mu is released.
func (it *Interpreter) changedLocked() func() {
	if it.onChange == nil {
		return func() {}
	}
	it.pending = append(it.pending, it.stateLocked())
	if it.draining {
		return func() {}
	}
	it.draining = true
	return it.drain
}

func (it *Interpreter) drain() {
	for {
		it.mu.Lock()
		if len(it.pending) == 0 {
			it.draining = false
			it.drained.Broadcast()
			it.mu.Unlock()
			return
		}
		st := it.pending[0]
		it.pending = it.pending[1:]
		it.mu.Unlock()
		it.onChange(st)
	}
}
