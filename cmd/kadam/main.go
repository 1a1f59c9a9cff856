package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/rahul/kadam/internal/agent"
	"github.com/rahul/kadam/internal/gateway"
	"github.com/rahul/kadam/internal/governance"
	"github.com/rahul/kadam/internal/observability"
	"github.com/rahul/kadam/internal/store"
	"github.com/rahul/kadam/internal/workflow"
	"github.com/rahul/kadam/pkg/config"
)

func main() {
	configPath := flag.String("config", "config.json", "path to config file (json or yaml)")
	providerName := flag.String("provider", "", "provider to use (default: first enabled in config)")
	auto := flag.Bool("auto", false, "autonomous mode: the model decides each step")
	iterations := flag.Int("iterations", 10, "iteration cap for autonomous mode")
	ping := flag.Bool("ping", false, "send a test prompt to the model and exit")
	historyN := flag.Int("history", 0, "show the N most recent archived runs and exit")
	listen := flag.Bool("listen", false, "serve objectives from the telegram gateway")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	if *historyN > 0 {
		showHistory(cfg, *historyN)
		return
	}

	llm := buildModel(cfg, *providerName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *ping {
		pingModel(ctx, llm)
		return
	}

	promptsDir := cfg.App.PromptsDir
	if promptsDir == "" {
		promptsDir = "./prompts"
	}
	prompts := agent.NewPromptManager(promptsDir)
	logger := observability.NewLogger()

	archive, err := store.NewRunStore(cfg.ArchivePath())
	if err != nil {
		log.Fatal(err)
	}
	defer archive.Close()

	gov := governance.NewDefaultPolicyEngine()
	gov.MaxObjectiveChars = cfg.Policy.MaxObjectiveChars
	for _, pattern := range cfg.Policy.DenyPatterns {
		if err := gov.DenyObjective(pattern); err != nil {
			log.Printf("Warning: skipping bad deny pattern %q: %v", pattern, err)
		}
	}

	planner := agent.NewPlanner(llm, prompts)
	planner.Events = logger
	executor := agent.NewExecutor(llm, prompts)
	executor.Events = logger
	runner, err := workflow.NewRunner(planner, executor,
		workflow.WithArchive(archive),
		workflow.WithRunEvents(logger))
	if err != nil {
		log.Fatal(err)
	}

	if *listen {
		listenLoop(ctx, stop, cfg, runner, gov, logger)
		return
	}

	objective := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if objective == "" {
		fmt.Fprintln(os.Stderr, `usage: kadam [flags] "objective"`)
		flag.PrintDefaults()
		os.Exit(2)
	}

	res, err := gov.Evaluate(ctx, governance.Request{Objective: objective, Source: "cli"})
	if err != nil {
		log.Fatal(err)
	}
	if res.Effect == governance.EffectDeny {
		log.Fatalf("Objective rejected: %s", res.Reason)
	}

	if *auto {
		runAuto(ctx, llm, prompts, logger, objective, *iterations)
		return
	}
	runOnce(ctx, runner, objective)
}

// buildModel resolves the provider and constructs the chat client. Every
// supported provider speaks the OpenAI-compatible chat API.
func buildModel(cfg *config.Config, name string) llms.Model {
	pName, pCfg, err := cfg.ResolveProvider(name)
	if err != nil {
		log.Fatal(err)
	}

	opts := []openai.Option{
		openai.WithToken(pCfg.APIKey),
		openai.WithModel(pCfg.Model),
	}
	if pCfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(pCfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("Using provider %s (model %s)", pName, pCfg.Model)
	return llm
}

func pingModel(ctx context.Context, llm llms.Model) {
	messages := []llms.MessageContent{
		{Role: llms.ChatMessageTypeSystem, Parts: []llms.ContentPart{llms.TextPart("You are a helpful assistant.")}},
		{Role: llms.ChatMessageTypeHuman, Parts: []llms.ContentPart{llms.TextPart("Who are you?")}},
	}
	resp, err := llm.GenerateContent(ctx, messages)
	if err != nil {
		log.Fatalf("Ping failed: %v", err)
	}
	reply := ""
	if len(resp.Choices) > 0 {
		reply = resp.Choices[0].Content
	}
	fmt.Printf("Model replied: %s\n", strings.TrimSpace(reply))
}

func showHistory(cfg *config.Config, n int) {
	archive, err := store.NewRunStore(cfg.ArchivePath())
	if err != nil {
		log.Fatal(err)
	}
	defer archive.Close()

	runs, err := archive.ListRuns(context.Background(), n)
	if err != nil {
		log.Fatal(err)
	}
	if len(runs) == 0 {
		fmt.Println("No archived runs.")
		return
	}

	for _, r := range runs {
		fmt.Printf("%.8s  %s  %-9s  %d/%d tasks  %s\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04"), r.Status, r.StepsDone, len(r.Plan), r.Objective)
		if r.Error != "" {
			fmt.Printf("          error: %s\n", r.Error)
		}
	}
}

func runOnce(ctx context.Context, runner *workflow.Runner, objective string) {
	results, err := runner.Run(ctx, objective)

	fmt.Println("\n=== Run results ===")
	for i, result := range results {
		fmt.Printf("\nStep %d:\n%s\n", i+1, result)
	}
	if err != nil {
		hintModelFailure(err)
		log.Fatalf("Run failed after %d completed tasks: %v", len(results), err)
	}
}

// hintModelFailure prints likely causes when the run died on a model call.
func hintModelFailure(err error) {
	var clientErr *agent.ClientError
	if !errors.As(err, &clientErr) {
		return
	}
	fmt.Fprintln(os.Stderr, "The model call failed. Likely causes:")
	fmt.Fprintln(os.Stderr, "  1. no network connectivity")
	fmt.Fprintln(os.Stderr, "  2. wrong or expired API key")
	fmt.Fprintln(os.Stderr, "  3. exhausted API quota")
	fmt.Fprintln(os.Stderr, "  4. wrong model name for the provider")
}

func runAuto(ctx context.Context, llm llms.Model, prompts *agent.PromptManager, logger *observability.Logger, objective string, iterations int) {
	ctrl := agent.NewController(llm, prompts)
	ctrl.Events = logger
	if iterations > 0 {
		ctrl.MaxIterations = iterations
	}

	ctx = observability.WithRunID(ctx, uuid.NewString())
	summary, err := ctrl.Run(ctx, objective)

	fmt.Println("\n=== Autonomous run summary ===")
	fmt.Printf("Status: %s (%d iterations, confidence %.2f)\n", summary.Status, summary.Iterations, summary.Confidence)
	for i, task := range summary.Completed {
		fmt.Printf("\nTask %d (quality %.2f): %s\n%s\n", i+1, task.QualityScore, task.Task, task.Results)
	}
	if len(summary.Reflections) > 0 {
		fmt.Printf("\nReflections recorded: %d\n", len(summary.Reflections))
	}
	if err != nil {
		hintModelFailure(err)
		log.Fatalf("Autonomous run failed: %v", err)
	}
}

func listenLoop(ctx context.Context, stop context.CancelFunc, cfg *config.Config, runner *workflow.Runner, gov governance.PolicyEngine, logger *observability.Logger) {
	tgCfg, ok := cfg.GetTelegramConfig()
	if !ok {
		log.Fatal("Telegram gateway is not enabled or token is missing")
	}

	observability.PrintBanner()
	observability.InitializeTerminal()

	// Route all log output through the terminal mutex so it never
	// interrupts the dashboard's cursor save/restore sequence.
	log.SetOutput(observability.NewTermWriter())

	tg, err := gateway.NewTelegramGateway(tgCfg.Token, runner, gov)
	if err != nil {
		log.Fatal(err)
	}
	tg.Events = logger

	// Start Live Resource Dashboard (1-second updates)
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.PrintLiveStatus()
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.Heartbeat()
				logger.LogHeartbeat()
			}
		}
	}()

	// Start Gateway in a goroutine so we can wait for context in the main loop
	go func() {
		if err := tg.Start(); err != nil {
			log.Printf("\033[91m[ FAIL ] GATEWAY CRITICAL ERROR: %v\033[0m", err)
			stop() // stop caller if gateway dies
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	tg.Stop()

	// Reset terminal aesthetics
	observability.CleanupTerminal()

	// Give a short time for final logs/syncs
	time.Sleep(500 * time.Millisecond)
	log.Println("\033[95m[ EXIT ] ENGINE DE-INITIALIZED. GOODBYE.\033[0m")
}
