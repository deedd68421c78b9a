// Command planner is the local smoke-test CLI for the Natural Language
// Database Query Planner (spec.md §6): it loads reactsql.toml, builds
// one descriptor per configured database, wires a real llmclient.Client,
// and runs a single question end to end through internal/planner,
// printing the AggregateResult. Styled after the teacher's
// cmd/e2e_test visualization CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"reactsql/internal/catalog"
	"reactsql/internal/config"
	"reactsql/internal/dlog"
	"reactsql/internal/llmclient"
	"reactsql/internal/orchestrator"
	"reactsql/internal/planner"
)

const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
)

func header(title string) {
	line := strings.Repeat("━", 60)
	fmt.Printf("\n%s%s%s\n", cyan+bold, line, reset)
	fmt.Printf("%s  %s%s\n", cyan+bold, title, reset)
	fmt.Printf("%s%s%s\n\n", cyan+bold, line, reset)
}

func info(label, value string) {
	fmt.Printf("  %s%-18s%s %s\n", dim, label, reset, value)
}

func success(msg string) {
	fmt.Printf("  %s✓%s %s\n", green, reset, msg)
}

func failure(msg string) {
	fmt.Printf("  %s✗%s %s\n", red, reset, msg)
}

func warn(msg string) {
	fmt.Printf("  %s⚠%s %s\n", yellow, reset, msg)
}

func main() {
	configPath := flag.String("config", "", "Path to reactsql.toml (default: probe upward from cwd)")
	question := flag.String("q", "", "Natural-language question to run")
	model := flag.String("model", "gpt-4o-mini", "Model name passed to the LLM backend")
	baseURL := flag.String("base-url", os.Getenv("REACTSQL_LLM_BASE_URL"), "LLM backend base URL")
	apiKey := flag.String("api-key", os.Getenv("REACTSQL_LLM_API_KEY"), "LLM backend API key")
	debugLog := flag.String("debug-log", "", "Optional path to append debug-log lines to")
	timeoutSeconds := flag.Int("timeout", 60, "Plan-wide timeout in seconds")
	flag.Parse()

	if *question == "" {
		log.Fatal("planner: -q is required (the question to ask)")
	}

	header("Natural Language Database Query Planner")

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("planner: %v", err)
	}
	info("Config file:", cfg.ConfigFilePath)
	info("Databases:", fmt.Sprintf("%d", len(cfg.Databases)))

	descriptors := make([]catalog.DatabaseDescriptor, 0, len(cfg.Databases))
	for _, db := range cfg.Databases {
		desc, err := config.ToDescriptor(db, "")
		if err != nil {
			log.Fatalf("planner: %v", err)
		}
		descriptors = append(descriptors, desc)
		info("  database:", fmt.Sprintf("%s (%s)", desc.ID, desc.Dialect))
	}

	llm, err := llmclient.New(llmclient.Config{
		ModelName: *model,
		APIKey:    *apiKey,
		BaseURL:   *baseURL,
	})
	if err != nil {
		log.Fatalf("planner: building LLM client: %v", err)
	}

	logger, err := dlog.Open(*debugLog)
	if err != nil {
		warn(fmt.Sprintf("debug log unavailable, continuing with stdout only: %v", err))
	}

	p, err := planner.NewWithClient(llm, descriptors, nil, logger)
	if err != nil {
		log.Fatalf("planner: %v", err)
	}

	header("Running question")
	info("Question:", *question)

	ctx := context.Background()
	start := time.Now()
	result, err := p.PlanAndExecuteWithTimeout(ctx, *question, time.Duration(*timeoutSeconds)*time.Second)
	elapsed := time.Since(start)
	if err != nil {
		log.Fatalf("planner: %v", err)
	}

	printResult(result, elapsed)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func printResult(result *orchestrator.AggregateResult, elapsed time.Duration) {
	header("Result")
	if result.OK {
		success(fmt.Sprintf("aggregate ok, elapsed %s", elapsed))
	} else {
		failure(fmt.Sprintf("aggregate failed, elapsed %s", elapsed))
	}

	ids := make([]string, 0, len(result.PerDB))
	for id := range result.PerDB {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		db := result.PerDB[id]
		fmt.Printf("\n%s── %s ──%s\n", bold, id, reset)
		if db.OK {
			success(fmt.Sprintf("%d row(s) extracted in %dms", db.RowsExtracted, db.ElapsedMillis))
		} else {
			failure(db.Error)
		}
		if db.ExecutedSQL != "" {
			info("SQL:", db.ExecutedSQL)
		}
		for _, w := range db.Warnings {
			warn(w)
		}
		if db.Body != "" {
			fmt.Println(db.Body)
		}
	}

	if len(result.Errors) > 0 {
		fmt.Println()
		for _, e := range result.Errors {
			failure(e)
		}
	}
}
