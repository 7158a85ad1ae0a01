package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/openai/openai-go/option"

	"dream-backend/internal/interpret"
	"dream-backend/internal/llm"
	openai "dream-backend/internal/llm/openai"
	"dream-backend/internal/shared/config"
	"dream-backend/internal/shared/server"
	"dream-backend/internal/shared/telemetry"
)

// App holds the server's dependencies.
type App struct {
	Config    config.Config
	Router    *gin.Engine
	LLM       llm.Client
	Interpret *interpret.Service
}

// Build prepares the server's dependencies and routes. A missing model
// credential is not fatal: the service answers MISSING_API_KEY instead.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}

	llmClient, err := BuildLLM(cfg)
	if err != nil {
		return nil, err
	}

	svc := &interpret.Service{
		LLM:           llmClient,
		Provider:      cfg.LLMProvider,
		Model:         cfg.LLMModel,
		PromptVersion: cfg.PromptVersion,
		MaxDreamChars: cfg.MaxDreamChars,
		OnFinish:      logStreamFinished,
	}

	app := &App{
		Config:    cfg,
		LLM:       llmClient,
		Interpret: svc,
	}
	app.Router = server.NewRouter(cfg, server.RouterDeps{Interpret: svc})
	return app, nil
}

// BuildLLM returns the streaming model client for the configured provider,
// or a placeholder when no credential is set.
func BuildLLM(cfg config.Config) (llm.Client, error) {
	switch cfg.LLMProvider {
	case "", "openai":
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLMProvider)
	}
	if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		log.Printf("bootstrap: OPENAI_API_KEY empty; interpretation endpoint reports missing_api_key")
		return llm.PlaceholderClient{}, nil
	}

	var opts []option.RequestOption
	if cfg.OpenAIBaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.OpenAIBaseURL))
	}
	if cfg.OpenAITimeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.OpenAITimeout))
	}
	client, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func logStreamFinished(r interpret.Result, err error) {
	fields := map[string]any{
		"frames":      r.Frames,
		"duration_ms": r.Duration.Milliseconds(),
	}
	if r.Usage != nil {
		fields["input_tokens"] = r.Usage.InputTokens
		fields["output_tokens"] = r.Usage.OutputTokens
		fields["total_tokens"] = r.Usage.TotalTokens
	}
	if err != nil {
		fields["err"] = err.Error()
		if errors.Is(err, context.Canceled) {
			telemetry.Info("interpret.stream_cancelled", fields)
			return
		}
		telemetry.Error("interpret.stream_failed", fields)
		return
	}
	telemetry.Info("interpret.stream_finished", fields)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
