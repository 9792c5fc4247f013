package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/docker/go-units"
	"github.com/joho/godotenv"

	"github.com/diligentai/jarvisctl/internal/chat"
	"github.com/diligentai/jarvisctl/internal/ingest"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx := context.Background()

	if err := run(ctx, os.Args[1:]); err != nil {
		log.Fatalf("command failed: %v", err)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("jarvisctl", flag.ExitOnError)
	backendFlag := fs.String("backend", "", "Backend base URL (default: config file or http://localhost:5000)")
	dropFlag := fs.String("drop", "", "Directory to watch for auto-ingestion (default: config file)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	env, err := prepareRuntimeEnv(ctx, *backendFlag, *dropFlag)
	if err != nil {
		return err
	}
	defer env.Close()

	runConsole(ctx, env)
	return nil
}

func runConsole(ctx context.Context, env *runtimeEnv) {
	log.Println("🤖 jarvisctl ready. /help for commands, /quit to exit.")
	printAssistant(env.Session.Transcript()[0])

	s := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !s.Scan() {
			break
		}
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if !handleCommand(ctx, env, s, line) {
				break
			}
			continue
		}

		reply, err := env.Session.Submit(ctx, line)
		if err != nil {
			// Rejections only; backend failures arrive as an error turn.
			log.Printf("⚠️  %v", err)
			continue
		}
		printAssistant(reply)
	}
}

// handleCommand dispatches one slash command. Returns false to quit.
func handleCommand(ctx context.Context, env *runtimeEnv, s *bufio.Scanner, line string) bool {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "/quit", "/exit":
		return false

	case "/help":
		printHelp()

	case "/context":
		if env.Session.ToggleContext() {
			fmt.Println("RAG ON")
		} else {
			fmt.Println("RAG OFF")
		}

	case "/status":
		printStatus(env)

	case "/ingest":
		runIngest(ctx, env, s, rest)

	case "/search":
		runSearch(ctx, env, rest)

	case "/log":
		printLog(ctx, env, rest)

	default:
		log.Printf("⚠️  Unknown command: %s", cmd)
	}
	return true
}

func printHelp() {
	fmt.Print(`Plain text is sent to the assistant. Commands:
  /context                    toggle retrieval context (RAG) for new messages
  /ingest <source> :: <text>  ingest text under a source identifier
  /ingest                     interactive ingestion (prompts for both fields)
  /search <query>             search the knowledge store directly
  /status                     backend liveness and component readiness
  /log [n]                    recent ingestion submissions
  /quit                       exit
`)
}

func printAssistant(t chat.Turn) {
	fmt.Printf("\njarvis> %s\n", t.Content)
	if t.Meta != nil {
		meta := fmt.Sprintf("%.3fs latency", t.Meta.LatencySeconds)
		if t.Meta.ContextUsed {
			meta += " · context retrieved"
		}
		fmt.Printf("        [%s]\n", meta)
	}
	fmt.Println()
}

func printStatus(env *runtimeEnv) {
	fmt.Printf("System status: %s\n", env.Monitor.Status())

	h := env.Monitor.Health()
	if h.Version != "" {
		fmt.Printf("Backend version: %s\n", h.Version)
	}
	for name, ready := range h.Components {
		state := "down"
		if ready {
			state = "ready"
		}
		fmt.Printf("  %-12s %s\n", name, state)
	}

	fmt.Printf("RAG context: %v | chat in flight: %v | ingestion: %s\n",
		env.Session.UseContext(), env.Session.InFlight(), env.Form.Status())
}

// runIngest accepts either "source :: text" inline or prompts for the
// two fields. The form owns draft and status; the console only feeds
// input and renders the outcome.
func runIngest(ctx context.Context, env *runtimeEnv, s *bufio.Scanner, rest string) {
	source, text, inline := strings.Cut(rest, "::")
	if !inline {
		fmt.Print("source> ")
		if !s.Scan() {
			return
		}
		source = s.Text()

		fmt.Print("text> ")
		if !s.Scan() {
			return
		}
		text = s.Text()
	}

	env.Form.SetSource(strings.TrimSpace(source))
	env.Form.SetText(strings.TrimSpace(text))

	if err := env.Form.Submit(ctx); err != nil {
		if errors.Is(err, ingest.ErrIncompleteDraft) || errors.Is(err, ingest.ErrNotIdle) {
			log.Printf("⚠️  %v", err)
			return
		}
		log.Printf("⚠️  %v", err)
		return
	}

	switch env.Form.Status() {
	case ingest.StatusSucceeded:
		fmt.Println("✅ Ingestion Complete")
	case ingest.StatusFailed:
		fmt.Println("❌ Ingestion Failed")
	}
}

func runSearch(ctx context.Context, env *runtimeEnv, query string) {
	if query == "" {
		log.Printf("⚠️  Usage: /search <query>")
		return
	}

	results, err := env.Client.SearchKnowledge(ctx, query, 0)
	if err != nil {
		log.Printf("⚠️  Search failed: %v", err)
		return
	}

	fmt.Printf("%d result(s)\n", results.Count)
	for _, hit := range results.Results {
		text := hit.Text
		if len(text) > 120 {
			text = text[:120] + "…"
		}
		fmt.Printf("  %.3f  %s\n", hit.Score, text)
	}
}

func printLog(ctx context.Context, env *runtimeEnv, rest string) {
	if env.Journal == nil {
		log.Printf("⚠️  Ingestion journal is disabled")
		return
	}

	limit := 10
	if rest != "" {
		if n, err := strconv.Atoi(rest); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := env.Journal.Recent(ctx, limit)
	if err != nil {
		log.Printf("⚠️  Failed to read journal: %v", err)
		return
	}
	if len(entries) == 0 {
		fmt.Println("No ingestion submissions recorded yet.")
		return
	}

	for _, e := range entries {
		fmt.Printf("  %s  %-9s  %-8s  %s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			e.Status,
			units.BytesSize(float64(e.SizeBytes)),
			e.Source)
	}
}
