package main

// Interpret a dream against a running API and keep it in the local journal:
//   go run ./cmd/dreamctl interpret "I was flying over a frozen lake"
//   echo "I was falling" | go run ./cmd/dreamctl interpret
//   go run ./cmd/dreamctl list -limit 10
//   go run ./cmd/dreamctl show <id>

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"dream-backend/internal/bootstrap"
	"dream-backend/internal/client"
	"dream-backend/internal/dreams"
	"dream-backend/internal/interpretation"
	"dream-backend/internal/shared/config"
)

const usage = `usage: dreamctl <command> [flags]

commands:
  interpret [-server URL] [text]   stream an interpretation and save it
  list [-limit N] [-offset N]      list saved dreams, newest first
  show <id>                        print one saved dream as JSON
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch os.Args[1] {
	case "interpret":
		err = runInterpret(ctx, cfg, os.Args[2:])
	case "list":
		err = runList(ctx, cfg, os.Args[2:])
	case "show":
		err = runShow(ctx, cfg, os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		exitErr(err.Error())
	}
}

func runInterpret(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("interpret", flag.ExitOnError)
	serverURL := fs.String("server", cfg.ServerURL, "API base URL")
	quiet := fs.Bool("q", false, "Only print the final interpretation")
	_ = fs.Parse(args)

	text, err := readDream(fs.Args(), os.Stdin)
	if err != nil {
		return err
	}

	journal, err := bootstrap.BuildJournal(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer journal.Close()

	lastProgress := -1
	it, err := client.NewInterpreter(client.Options{
		Transport:   client.NewHTTPTransport(*serverURL),
		Saver:       journal.Service,
		IdleTimeout: cfg.IdleTimeout,
		OnChange: func(s client.State) {
			if *quiet || s.Progress == lastProgress || !s.Status.InFlight() {
				return
			}
			lastProgress = s.Progress
			fmt.Fprintf(os.Stderr, "%s %3d%%\n", s.Status, s.Progress)
		},
	})
	if err != nil {
		return err
	}
	defer it.Close()

	go func() {
		<-ctx.Done()
		it.Cancel()
	}()

	if err := it.Interpret(text); err != nil {
		return err
	}
	if err := it.Wait(context.Background()); err != nil {
		return err
	}

	final := it.State()
	switch final.Status {
	case client.StatusComplete:
		fmt.Println(interpretation.Format(final.Interpretation))
		if final.LastSavedDream != nil {
			fmt.Fprintf(os.Stderr, "saved %s (mood=%s tags=%s)\n",
				final.LastSavedDream.ID, final.LastSavedDream.Mood, strings.Join(final.LastSavedDream.Tags, ","))
		}
		return nil
	case client.StatusCancelled:
		return errors.New("cancelled")
	default:
		if final.Error != nil {
			return final.Error
		}
		return fmt.Errorf("interpretation ended in state %s", final.Status)
	}
}

func runList(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Maximum dreams to list")
	offset := fs.Int("offset", 0, "Dreams to skip")
	_ = fs.Parse(args)

	journal, err := bootstrap.BuildJournal(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer journal.Close()

	items, err := journal.Service.List(ctx, *limit, *offset)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("no saved dreams")
		return nil
	}
	for _, d := range items {
		fmt.Printf("%s  %s  %-9s  %s\n", d.ID, d.CreatedAt.Local().Format("2006-01-02 15:04"), d.Mood, excerpt(d.OriginalText, 60))
	}
	return nil
}

func runShow(ctx context.Context, cfg config.Config, args []string) error {
	if len(args) != 1 {
		return errors.New("show requires exactly one dream id")
	}
	journal, err := bootstrap.BuildJournal(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer journal.Close()

	d, err := journal.Service.Get(ctx, args[0])
	if errors.Is(err, dreams.ErrNotFound) {
		return fmt.Errorf("dream %s not found", args[0])
	}
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func readDream(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(b), nil
}

func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
