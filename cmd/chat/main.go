package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yaseenp24/Healthcare-Agent/internal/app/bootstrap"
	appconfig "github.com/yaseenp24/Healthcare-Agent/internal/config"
	"github.com/yaseenp24/Healthcare-Agent/internal/conversation"
	"github.com/yaseenp24/Healthcare-Agent/pkg/logging"
)

type chatter interface {
	Chat(ctx context.Context, sessionID, message string) (string, error)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()
	// The REPL keeps one session for its lifetime.
	cfg.SessionBackend = appconfig.SessionBackendMemory
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewWithWriter(os.Stderr, "error", "text")
	app, err := bootstrap.Build(context.Background(), cfg, logger, bootstrap.Deps{
		Registerer: prometheus.NewRegistry(),
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	runREPL(context.Background(), os.Stdin, os.Stdout, app.Service, uuid.NewString())
}

func runREPL(ctx context.Context, in io.Reader, out io.Writer, chat chatter, sessionID string) {
	fmt.Fprint(out, "Healthcare chat. Type 'exit' to quit.\n\n")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "You: ")
		if !scanner.Scan() {
			fmt.Fprintln(out, "\nBye!")
			return
		}
		text := strings.TrimSpace(scanner.Text())
		if isExit(text) {
			fmt.Fprintln(out, "Bye!")
			return
		}
		if text == "" {
			continue
		}

		reply, err := chat.Chat(ctx, sessionID, text)
		if err != nil {
			var upstream *conversation.UpstreamError
			if errors.As(err, &upstream) {
				fmt.Fprintf(out, "Error from %s: %v\n", upstream.Service, upstream.Err)
			} else {
				fmt.Fprintf(out, "Error: %v\n", err)
			}
			continue
		}
		fmt.Fprintf(out, "Bot: %s\n\n", reply)
	}
}

func isExit(text string) bool {
	switch strings.ToLower(text) {
	case "exit", "quit", ":q", "q":
		return true
	}
	return false
}
