package main

// Stream one interpretation straight from the model and print every snapshot:
//   go run ./cmd/streamtest -dream "I was flying over a lake"
//   go run ./cmd/streamtest -file dream.txt -prompt-version v1

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"dream-backend/internal/bootstrap"
	"dream-backend/internal/interpret"
	"dream-backend/internal/interpretation"
	"dream-backend/internal/llm"
	"dream-backend/internal/shared/config"
)

func main() {
	cfg := config.Load()

	dream := flag.String("dream", "", "Dream text")
	dreamPath := flag.String("file", "", "Path to a file with the dream text")
	promptVersion := flag.String("prompt-version", cfg.PromptVersion, "Prompt version")
	model := flag.String("model", cfg.LLMModel, "LLM model")
	outPath := flag.String("out", "", "Path to write the final JSON (optional)")
	flag.Parse()

	text := *dream
	if strings.TrimSpace(*dreamPath) != "" {
		b, err := os.ReadFile(*dreamPath)
		if err != nil {
			exitErr(fmt.Sprintf("read dream: %v", err))
		}
		text = string(b)
	}
	if strings.TrimSpace(text) == "" {
		exitErr("dream text is required (-dream or -file)")
	}

	cfg.LLMModel = *model
	client, err := bootstrap.BuildLLM(cfg)
	if err != nil {
		exitErr(err.Error())
	}
	if _, ok := client.(llm.PlaceholderClient); ok {
		exitErr("OPENAI_API_KEY is required")
	}

	var promptHash string
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = llm.WithPromptHashSink(ctx, &promptHash)

	svc := &interpret.Service{
		LLM:           client,
		Provider:      cfg.LLMProvider,
		Model:         cfg.LLMModel,
		PromptVersion: *promptVersion,
		MaxDreamChars: cfg.MaxDreamChars,
		OnFinish: func(r interpret.Result, err error) {
			line := fmt.Sprintf("frames=%d duration=%s", r.Frames, r.Duration.Round(time.Millisecond))
			if r.Usage != nil {
				line += fmt.Sprintf(" tokens=%d/%d", r.Usage.InputTokens, r.Usage.OutputTokens)
			}
			if err != nil {
				line += " err=" + err.Error()
			}
			fmt.Fprintln(os.Stderr, line)
		},
	}

	updates, err := svc.Interpret(ctx, text)
	if err != nil {
		exitErr(fmt.Sprintf("interpret: %v", err))
	}

	var last json.RawMessage
	n := 0
	for u := range updates {
		switch {
		case u.Err != nil:
			exitErr(fmt.Sprintf("stream failed after %d snapshots: %v", n, u.Err))
		case u.Done:
			fmt.Fprintln(os.Stderr, "[DONE] prompt_hash="+promptHash)
		default:
			n++
			last = u.Snapshot
			p, _ := interpretation.DecodePartial(u.Snapshot)
			fmt.Printf("#%d progress=%d%% %s\n", n, interpretation.Progress(&p), u.Snapshot)
		}
	}
	if last == nil {
		exitErr("no snapshot received")
	}

	if _, err := interpretation.Validate(last); err != nil {
		fmt.Fprintf(os.Stderr, "final snapshot does not validate: %v\n", err)
	}
	pretty, err := prettyJSON(last)
	if err != nil {
		exitErr(fmt.Sprintf("format json: %v", err))
	}
	if *outPath != "" {
		if err := os.WriteFile(*outPath, pretty, 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
	}
}

func prettyJSON(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
