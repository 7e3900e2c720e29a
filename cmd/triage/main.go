// Command triage wires together the pattern analyzer, similarity index,
// session store, batch executor, and orchestrator against a live recipe
// service, and drives them with a minimal stdin prompt that stands in
// for the out-of-scope terminal UI shell.
package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"triage/internal/config"
	"triage/internal/executor"
	"triage/internal/httpapi"
	"triage/internal/logging"
	"triage/internal/models"
	"triage/internal/orchestrator"
	"triage/internal/remoteclient"
	"triage/internal/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logging.New(os.Getenv("DEBUG") != "")

	var parser remoteclient.NoteParser
	if cfg.OpenAIAPIKey != "" {
		parser = remoteclient.NewOpenAINoteParser(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	}

	client := remoteclient.New(remoteclient.Options{
		BaseURL:            cfg.RecipeServiceURL,
		Token:              cfg.APIToken,
		ConnectionPoolSize: cfg.ConnectionPoolSize,
		RequestTimeout:     cfg.RequestTimeout,
		MaxRetries:         cfg.MaxRetries,
		Logger:             log,
		Parser:             parser,
	})

	exec := executor.New(client, cfg.BatchWidth, remoteclient.ModePerIngredient, log)
	store := session.New(cfg.SessionFilePath)

	orch := orchestrator.New(client, exec, store, cfg.SimilarityThreshold, 64, log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := orch.Bootstrap(ctx); err != nil {
		if remoteclient.Kind(err) == remoteclient.PermanentAuth {
			return fmt.Errorf("%w: %v", models.ErrAuthHalt, err)
		}
		return fmt.Errorf("bootstrap: %w", err)
	}

	server := httpapi.New(orch, log)
	go serveOperationalSurface(server, log)

	return interactiveLoop(ctx, orch, server)
}

func serveOperationalSurface(server *httpapi.Server, log zerolog.Logger) {
	addr := os.Getenv("TRIAGE_HTTP_ADDR")
	if addr == "" {
		addr = "127.0.0.1:8787"
	}
	if err := http.ListenAndServe(addr, server.Router()); err != nil {
		log.Warn().Err(err).Msg("operational HTTP surface stopped")
	}
}

// interactiveLoop is the minimal stdin stand-in for the out-of-scope
// terminal UI shell: list pending patterns, let the operator pick one
// and type a decision, run it, repeat until "quit".
func interactiveLoop(ctx context.Context, orch *orchestrator.Orchestrator, server *httpapi.Server) error {
	reader := bufio.NewReader(os.Stdin)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		printPending(orch)
		fmt.Print("\n> pattern index (or 'quit'): ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "quit" || line == "" {
			return nil
		}

		idx, err := strconv.Atoi(line)
		if err != nil {
			fmt.Println("not a number")
			continue
		}

		pending := pendingPatterns(orch)
		if idx < 0 || idx >= len(pending) {
			fmt.Println("out of range")
			continue
		}
		group := pending[idx]

		if err := promptAndExecute(ctx, orch, server, group, reader); err != nil {
			fmt.Fprintln(os.Stderr, "batch error:", err)
		}
	}
}

func printPending(orch *orchestrator.Orchestrator) {
	fmt.Println()
	for i, g := range pendingPatterns(orch) {
		fmt.Printf("[%d] (%s) %q — %d ingredients across %d recipes\n",
			i, g.Kind, g.DisplayText, len(g.IngredientRefs), len(g.RecipeIDs))
	}
}

func pendingPatterns(orch *orchestrator.Orchestrator) []models.PatternGroup {
	var out []models.PatternGroup
	for _, g := range orch.Patterns() {
		if g.Status == models.StatusPending {
			out = append(out, g)
		}
	}
	return out
}

func promptAndExecute(ctx context.Context, orch *orchestrator.Orchestrator, server *httpapi.Server, group models.PatternGroup, reader *bufio.Reader) error {
	fmt.Print("action [create_unit|create_food|add_food_alias|skip]: ")
	action, _ := reader.ReadString('\n')
	action = strings.TrimSpace(action)

	if action == "skip" {
		return orch.Skip(ctx, group.ID)
	}

	cancel := executor.NewCancelSignal()
	server.RegisterCancelSignal(group.ID, cancel)
	defer server.UnregisterCancelSignal(group.ID)

	switch action {
	case "create_unit":
		name, abbrev := promptName(reader, "unit name"), promptName(reader, "abbreviation")
		_, err := orch.ProcessBatch(ctx, group.ID, models.OpCreateUnit,
			models.OperationPayload{Name: name, Abbreviation: abbrev}, "", cancel)
		return err
	case "create_food":
		name := promptName(reader, "food name")
		_, err := orch.ProcessBatch(ctx, group.ID, models.OpCreateFood,
			models.OperationPayload{Name: name}, "", cancel)
		return err
	case "add_food_alias":
		targetID := promptName(reader, "target food id")
		_, err := orch.ProcessBatch(ctx, group.ID, models.OpAddFoodAlias,
			models.OperationPayload{AliasText: group.DisplayText, Name: group.DisplayText}, targetID, cancel)
		return err
	default:
		fmt.Println("unrecognized action")
		return nil
	}
}

func promptName(reader *bufio.Reader, label string) string {
	fmt.Printf("%s: ", label)
	v, _ := reader.ReadString('\n')
	return strings.TrimSpace(v)
}
