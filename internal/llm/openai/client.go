package openai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"dream-backend/internal/interpretation"
	"dream-backend/internal/llm"
)

const (
	schemaName      = "DreamInterpretation"
	maxOutputTokens = 2500
)

// Client implements llm.Client using the OpenAI Responses streaming API.
type Client struct {
	client openai.Client
	model  string
}

// NewClient constructs a new OpenAI client. Extra options are applied after
// the API key, so callers can set a base URL, timeout or retry policy.
func NewClient(apiKey, model string, opts ...option.RequestOption) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	reqOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Client{
		client: openai.NewClient(reqOpts...),
		model:  model,
	}, nil
}

// StreamInterpretation starts a streaming response and forwards its text
// deltas. Connection and status errors surface as the first event.
func (c *Client) StreamInterpretation(ctx context.Context, input llm.InterpretInput) (<-chan llm.StreamEvent, error) {
	if strings.TrimSpace(input.DreamText) == "" {
		return nil, errors.New("dream text is required")
	}
	schema, err := interpretation.JSONSchema()
	if err != nil {
		return nil, fmt.Errorf("interpretation schema: %w", err)
	}

	usedVersion, messages := BuildPrompt(input.PromptVersion, input.DreamText, c.model)
	if sink, ok := llm.PromptHashSinkFromContext(ctx); ok && sink != nil {
		*sink = hashPromptString(promptStringFromMessages(messages))
	}

	stream := c.client.Responses.NewStreaming(ctx, c.params(messages, schema))
	events := make(chan llm.StreamEvent)

	go func() {
		defer close(events)
		defer stream.Close()

		send := func(ev llm.StreamEvent) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for stream.Next() {
			switch ev := stream.Current().AsAny().(type) {
			case responses.ResponseTextDeltaEvent:
				if ev.Delta == "" {
					continue
				}
				if !send(llm.StreamEvent{Delta: ev.Delta}) {
					return
				}
			case responses.ResponseCompletedEvent:
				usage := &llm.Usage{
					InputTokens:  ev.Response.Usage.InputTokens,
					OutputTokens: ev.Response.Usage.OutputTokens,
					TotalTokens:  ev.Response.Usage.TotalTokens,
				}
				logUsage(c.model, usedVersion, usage)
				if !send(llm.StreamEvent{Usage: usage}) {
					return
				}
			case responses.ResponseErrorEvent:
				send(llm.StreamEvent{Err: fmt.Errorf("openai stream error: %s (%s)", ev.Message, ev.Code)})
				return
			case responses.ResponseFailedEvent:
				send(llm.StreamEvent{Err: fmt.Errorf("openai response failed: %s", ev.Response.Error.Message)})
				return
			}
		}

		if err := stream.Err(); err != nil {
			if ctx.Err() != nil {
				return
			}
			send(llm.StreamEvent{Err: fmt.Errorf("openai stream: %w", err)})
		}
	}()

	return events, nil
}

func (c *Client) params(messages []Message, schema map[string]any) responses.ResponseNewParams {
	items := make([]responses.ResponseInputItemUnionParam, 0, len(messages))
	for _, m := range messages {
		role := responses.EasyInputMessageRoleUser
		if m.Role == "developer" {
			role = responses.EasyInputMessageRoleDeveloper
		}
		items = append(items, responses.ResponseInputItemParamOfMessage(m.Content, role))
	}

	format := responses.ResponseFormatTextConfigUnionParam{
		OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:        schemaName,
			Schema:      schema,
			Strict:      openai.Bool(true),
			Description: openai.String("Structured dream interpretation"),
			Type:        "json_schema",
		},
	}

	return responses.ResponseNewParams{
		Model:           c.model,
		MaxOutputTokens: openai.Int(maxOutputTokens),
		Instructions:    openai.String(systemPrompt),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: items,
		},
		Text: responses.ResponseTextConfigParam{
			Format: format,
		},
	}
}

func logUsage(model, promptVersion string, usage *llm.Usage) {
	if usage == nil {
		log.Printf("llm response model=%s prompt_version=%s", model, promptVersion)
		return
	}
	log.Printf("llm response model=%s prompt_version=%s input_tokens=%d output_tokens=%d total_tokens=%d",
		model, promptVersion, usage.InputTokens, usage.OutputTokens, usage.TotalTokens)
}

var _ llm.Client = (*Client)(nil)
