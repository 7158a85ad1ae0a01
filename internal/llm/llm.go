package llm

import (
	"context"
	"errors"
)

// Client abstracts LLM providers that stream a dream interpretation as raw
// JSON text deltas.
type Client interface {
	StreamInterpretation(ctx context.Context, input InterpretInput) (<-chan StreamEvent, error)
}

// InterpretInput captures the inputs needed for one interpretation.
type InterpretInput struct {
	DreamText     string
	PromptVersion string
}

// StreamEvent is one item from a provider stream. Exactly one of Delta, Usage
// or Err is meaningful. The channel is closed when the provider is finished;
// a stream that ends without an Err event completed normally.
type StreamEvent struct {
	Delta string
	Usage *Usage
	Err   error
}

// Usage reports token counts for a finished response.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

type promptHashSinkKey struct{}

// WithPromptHashSink returns a context whose client call stores the hash of
// the rendered prompt into sink.
func WithPromptHashSink(ctx context.Context, sink *string) context.Context {
	return context.WithValue(ctx, promptHashSinkKey{}, sink)
}

// PromptHashSinkFromContext returns the sink registered with WithPromptHashSink.
func PromptHashSinkFromContext(ctx context.Context) (*string, bool) {
	sink, ok := ctx.Value(promptHashSinkKey{}).(*string)
	return sink, ok
}

// ErrNotImplemented is returned by the placeholder client.
var ErrNotImplemented = errors.New("LLM not implemented")

// PlaceholderClient is used when no provider credential is configured.
type PlaceholderClient struct{}

// StreamInterpretation returns ErrNotImplemented.
func (PlaceholderClient) StreamInterpretation(ctx context.Context, input InterpretInput) (<-chan StreamEvent, error) {
	_ = ctx
	_ = input
	return nil, ErrNotImplemented
}
