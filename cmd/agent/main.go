// Package main is the entry point for the Sentinel agent.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/cmd/launcher"
	"google.golang.org/adk/cmd/launcher/full"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/genai"

	"github.com/easeaico/sentinel-agent/internal/config"
	"github.com/easeaico/sentinel-agent/internal/guard"
	"github.com/easeaico/sentinel-agent/internal/llm"
	"github.com/easeaico/sentinel-agent/internal/memory"
	"github.com/easeaico/sentinel-agent/internal/scanner"
	"github.com/easeaico/sentinel-agent/internal/scar"
	"github.com/easeaico/sentinel-agent/internal/service"
	"github.com/easeaico/sentinel-agent/internal/tools"
)

func main() {
	// Load configuration from environment
	cfg := config.Load()

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown; cancellation is also the scanner's stop signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		cancel()
	}()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	deps, cleanup, err := initialize(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer cleanup()

	// The background scanner runs for the life of the process
	go deps.scanner.Run(ctx)
	if cfg.WatchMode {
		go func() {
			if err := deps.scanner.Watch(ctx); err != nil {
				logger.Warn("watch mode unavailable", zap.Error(err))
			}
		}()
	}

	if strings.EqualFold(os.Getenv("AGENT_MODE"), "console") {
		runConsole(ctx, deps.core)
		return
	}

	// Default: run the ADK agent runtime (launcher)
	llmAgent, err := buildAgent(ctx, cfg, deps)
	if err != nil {
		log.Fatalf("Failed to build agent: %v", err)
	}
	launcherCfg := &launcher.Config{
		AgentLoader: agent.NewSingleLoader(llmAgent),
	}
	l := full.NewLauncher()
	if err := l.Execute(ctx, launcherCfg, os.Args[1:]); err != nil {
		log.Fatalf("Failed to run agent: %v\n\n%s", err, l.CommandLineSyntax())
	}
}

// deps bundles the initialized components.
type deps struct {
	store        memory.Store
	retriever    *memory.Retriever
	ledger       *scar.Ledger
	constitution *guard.Constitution
	client       *llm.Client
	scanner      *scanner.Scanner
	core         *service.Core
}

// initialize creates and wires all components.
func initialize(ctx context.Context, cfg config.Config, logger *zap.Logger) (*deps, func(), error) {
	client, err := llm.NewClient(ctx, cfg.APIKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	var store memory.Store
	var scarStore scar.Store
	switch cfg.DBType {
	case "postgres":
		pgStore, err := memory.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := pgStore.InitSchema(ctx); err != nil {
			pgStore.Close()
			return nil, nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
		pgScars := scar.NewPostgresStore(pgStore.Pool())
		if err := pgScars.InitSchema(ctx); err != nil {
			pgStore.Close()
			return nil, nil, fmt.Errorf("failed to initialize scar schema: %w", err)
		}
		store, scarStore = pgStore, pgScars
	default:
		liteStore, err := memory.NewSQLiteStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := liteStore.InitSchema(ctx); err != nil {
			liteStore.Close()
			return nil, nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
		liteScars := scar.NewSQLiteStore(liteStore.DB())
		if err := liteScars.InitSchema(ctx); err != nil {
			liteStore.Close()
			return nil, nil, fmt.Errorf("failed to initialize scar schema: %w", err)
		}
		store, scarStore = liteStore, liteScars
	}

	vault, err := scanner.NewVault(cfg.VaultDir)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	ledger := scar.NewLedger(scarStore)
	constitution := guard.NewConstitution(cfg.RiskBudget)
	retriever := memory.NewRetriever(store, client)
	scan := scanner.New(store, client, client, constitution, vault, logger, cfg.ScanRoots, cfg.ScanInterval)
	core := service.New(store, retriever, ledger, constitution, client, client, logger)

	cleanup := func() {
		store.Close()
	}
	return &deps{
		store:        store,
		retriever:    retriever,
		ledger:       ledger,
		constitution: constitution,
		client:       client,
		scanner:      scan,
		core:         core,
	}, cleanup, nil
}

// buildAgent creates the ADK LLM agent with the sentinel tool set.
func buildAgent(ctx context.Context, cfg config.Config, d *deps) (agent.Agent, error) {
	agentTools, err := tools.BuildTools(tools.Config{
		Store:        d.store,
		Embedder:     d.client,
		Retriever:    d.retriever,
		Ledger:       d.ledger,
		Constitution: d.constitution,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build tools: %w", err)
	}

	llmModel, err := gemini.NewModel(ctx, "gemini-2.0-flash", &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM model: %w", err)
	}

	return llmagent.New(llmagent.Config{
		Name:        "sentinel",
		Description: "Executive intelligence system with institutional memory and decision gating",
		Model:       llmModel,
		Instruction: systemInstruction,
		Tools:       agentTools,
	})
}

const systemInstruction = `You are Sentinel, an executive intelligence system.
Before answering a consequential request, search institutional memory with recall_memories.
After resolving a request, persist what happened with save_memory, tagging the outcome.
Use rank_options when the user asks you to decide between or compare alternatives.
Use security_status when asked for a report or health check.
Warn the user whenever recalled memories describe a past failure relevant to the request.`

// runConsole is the interactive loop with post-decision feedback: every
// answered request is persisted with its reported outcome, and a negative
// outcome registers a scar.
func runConsole(ctx context.Context, core *service.Core) {
	fmt.Println("--- Sentinel (console mode) ---")
	fmt.Println("Type 'exit' to close, 'status' for a health report.")

	stdin := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nYou: ")
		if !stdin.Scan() {
			return
		}
		input := strings.TrimSpace(stdin.Text())
		if input == "" {
			continue
		}

		switch strings.ToLower(input) {
		case "exit", "quit":
			return
		case "report", "health", "status":
			fmt.Println(core.StatusReport(ctx))
			continue
		}

		reply, err := core.Handle(ctx, input)
		if err != nil {
			fmt.Printf("Sentinel: request failed: %v\n", err)
			continue
		}
		fmt.Printf("Sentinel: %s\n", reply)

		fmt.Print("\n[?] Was this outcome successful? (yes/no/skip): ")
		if !stdin.Scan() {
			return
		}

		outcome := memory.OutcomeNeutral
		lesson := ""
		switch strings.ToLower(strings.TrimSpace(stdin.Text())) {
		case "yes":
			outcome = memory.OutcomeSuccess
		case "no":
			outcome = memory.OutcomeFailure
			fmt.Print("[!] What went wrong? ")
			if stdin.Scan() {
				lesson = strings.TrimSpace(stdin.Text())
			}
		}

		if err := core.RecordFeedback(ctx, input, reply, outcome, lesson); err != nil {
			fmt.Printf("Sentinel: failed to record feedback: %v\n", err)
		}
	}
}
