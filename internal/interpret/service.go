package interpret

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"dream-backend/internal/llm"
	"dream-backend/internal/shared/metrics"
)

// DefaultMaxDreamChars bounds the dream text when no limit is configured.
const DefaultMaxDreamChars = 10000

// Update is one item of an interpretation stream: a full snapshot, the
// terminal Done marker, or an error. Nothing follows Done or Err.
type Update struct {
	Snapshot json.RawMessage
	Done     bool
	Err      error
}

// Result summarises a finished stream for logging.
type Result struct {
	Frames   int
	Duration time.Duration
	Usage    *llm.Usage
}

// Service produces snapshot streams from a streaming LLM client.
type Service struct {
	LLM           llm.Client
	Provider      string
	Model         string
	PromptVersion string
	MaxDreamChars int
	// OnFinish, when set, is called once per stream just before the terminal
	// update is sent.
	OnFinish func(Result, error)
}

// Configured reports whether an upstream model client is available.
func (s *Service) Configured() bool {
	if s == nil || s.LLM == nil {
		return false
	}
	_, placeholder := s.LLM.(llm.PlaceholderClient)
	return !placeholder
}

func (s *Service) maxDreamChars() int {
	if s.MaxDreamChars > 0 {
		return s.MaxDreamChars
	}
	return DefaultMaxDreamChars
}

// Interpret validates dream and starts streaming its interpretation. The
// returned channel is closed after Done, after an Err update, or when ctx ends.
func (s *Service) Interpret(ctx context.Context, dream string) (<-chan Update, error) {
	dream = strings.TrimSpace(dream)
	if dream == "" {
		return nil, ErrMissingDream
	}
	if n := utf8.RuneCountInString(dream); n > s.maxDreamChars() {
		return nil, fmt.Errorf("%w: %d characters, limit %d", ErrDreamTooLong, n, s.maxDreamChars())
	}
	if !s.Configured() {
		return nil, ErrUnconfigured
	}

	events, err := s.LLM.StreamInterpretation(ctx, llm.InterpretInput{
		DreamText:     dream,
		PromptVersion: s.PromptVersion,
	})
	if err != nil {
		if errors.Is(err, llm.ErrNotImplemented) {
			return nil, ErrUnconfigured
		}
		metrics.IncStreamFailed()
		return nil, fmt.Errorf("start interpretation: %w", err)
	}

	metrics.IncStreamStarted()
	updates := make(chan Update)
	go s.run(ctx, events, updates)
	return updates, nil
}

func (s *Service) run(ctx context.Context, events <-chan llm.StreamEvent, updates chan<- Update) {
	defer close(updates)
	start := time.Now()
	var (
		snap  snapshotter
		usage *llm.Usage
	)

	send := func(u Update) bool {
		select {
		case updates <- u:
			return true
		case <-ctx.Done():
			return false
		}
	}
	finish := func(err error) {
		elapsed := time.Since(start)
		metrics.AddFramesEmitted(snap.frames)
		metrics.ObserveStreamDurationMs(float64(elapsed.Milliseconds()))
		if err != nil {
			metrics.IncStreamFailed()
		} else {
			metrics.IncStreamCompleted()
		}
		if s.OnFinish != nil {
			s.OnFinish(Result{Frames: snap.frames, Duration: elapsed, Usage: usage}, err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			finish(ctx.Err())
			return
		case ev, ok := <-events:
			if !ok {
				if final, changed := snap.snapshot(); changed {
					if !send(Update{Snapshot: final}) {
						finish(ctx.Err())
						return
					}
				}
				if !snap.emitted() {
					finish(ErrEmptyOutput)
					send(Update{Err: ErrEmptyOutput})
					return
				}
				finish(nil)
				send(Update{Done: true})
				return
			}
			switch {
			case ev.Err != nil:
				finish(ev.Err)
				send(Update{Err: ev.Err})
				return
			case ev.Usage != nil:
				usage = ev.Usage
			default:
				if snapshot, changed := snap.push(ev.Delta); changed {
					if !send(Update{Snapshot: snapshot}) {
						finish(ctx.Err())
						return
					}
				}
			}
		}
	}
}
