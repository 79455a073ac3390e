package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/outreach-labs/contact-pipeline/internal/config"
	"github.com/outreach-labs/contact-pipeline/internal/db"
	"github.com/outreach-labs/contact-pipeline/internal/observability"
	"github.com/outreach-labs/contact-pipeline/internal/pipeline"
	"github.com/outreach-labs/contact-pipeline/internal/telemetry"
	"github.com/outreach-labs/contact-pipeline/internal/types"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the discovery pipeline over a batch of company records",
	Long: `Reads JSONL company records, resolves each company's domain and contacts
through the source waterfall, and writes one PipelineResult per line. Items
needing human review go to a parallel review stream.

Configuration can be loaded from a JSON file using --config. Command-line
arguments override config file values.`,
	RunE: runBatchCmd,
}

var (
	runConfigPath    string
	runInput         string
	runOutput        string
	runReviewOutput  string
	runAutoAccept    int
	runNeedsVerify   int
	runValidThresh   int
	runEarlyExit     int
	runConcurrency   int
	runTimeoutSec    int
	runWallClockSec  int
	runCostBudget    float64
	runConnectorList []string
	runUseBrowser    bool
	runVerbose       bool
	runDatabaseURL   string
)

func init() {
	// Config file flag (processed first)
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	runCommand.Flags().StringVarP(&runInput, "input", "i", "", "Path to JSONL company records ('-' for stdin)")
	runCommand.Flags().StringVarP(&runOutput, "output", "o", "", "Path for JSONL results (default stdout)")
	runCommand.Flags().StringVar(&runReviewOutput, "review-output", "", "Path for the manual-review JSONL stream (default: discarded)")
	runCommand.Flags().IntVar(&runAutoAccept, "auto-accept", 0, "Domain confidence accepted without review")
	runCommand.Flags().IntVar(&runNeedsVerify, "needs-verification", 0, "Lower bound of the domain gray zone")
	runCommand.Flags().IntVar(&runValidThresh, "valid-threshold", 0, "Minimum contact score for validity")
	runCommand.Flags().IntVar(&runEarlyExit, "early-exit-threshold", 0, "Contact score that skips remaining connectors")
	runCommand.Flags().IntVar(&runConcurrency, "max-concurrency", 0, "Company units processed in parallel")
	runCommand.Flags().IntVar(&runTimeoutSec, "connector-timeout", 0, "Per-connector-call timeout in seconds")
	runCommand.Flags().IntVar(&runWallClockSec, "wall-clock", 0, "Batch wall-clock budget in seconds (0 = unlimited)")
	runCommand.Flags().Float64Var(&runCostBudget, "cost-budget", 0, "Batch spend cap in dollars (0 = unlimited)")
	runCommand.Flags().StringSliceVar(&runConnectorList, "connectors", nil, "Source tags to enable (default: all)")
	runCommand.Flags().BoolVar(&runUseBrowser, "use-browser", false, "Use headless browser for SPA sites (requires Chrome)")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed debug information")

	// Database URL for result persistence
	runCommand.Flags().StringVar(&runDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(runCommand)
}

func runBatchCmd(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadMergedConfig(cmd)
	if err != nil {
		return err
	}
	if runInput == "" {
		return fmt.Errorf("--input is required")
	}

	logger, err := telemetry.NewLogger(cfg.Verbose)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	emitter := telemetry.NewEmitter(logger)

	runner, cleanup, err := buildRunner(ctx, cfg, emitter)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.Verbose {
		runner.Printer = observability.NewPrinter(os.Stdout)
	}

	// Input.
	var in io.Reader = os.Stdin
	if runInput != "-" {
		f, err := os.Open(runInput)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	companies, invalid, err := pipeline.ReadCompanies(in)
	if err != nil {
		return err
	}
	for _, line := range invalid {
		fmt.Fprintf(os.Stderr, "Warning: skipping line %d: %v\n", line.LineNo, line.Err)
	}
	if len(companies) == 0 {
		return fmt.Errorf("no valid company records in input")
	}

	// Output streams.
	var out io.Writer = os.Stdout
	if runOutput != "" {
		f, err := os.Create(runOutput)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}
	var review io.Writer
	if cfg.ReviewOutput != "" {
		f, err := os.Create(cfg.ReviewOutput)
		if err != nil {
			return fmt.Errorf("failed to create review output: %w", err)
		}
		defer func() { _ = f.Close() }()
		review = f
	}
	writer := pipeline.NewResultWriter(out, review)

	var results []types.PipelineResult

	// Optional persistence; the batch runs fine without it.
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to connect to database: %v\n", err)
			fmt.Fprintf(os.Stderr, "Continuing without database persistence...\n")
		} else {
			defer database.Close()
			runID, err := database.CreateRun(ctx, runInput, len(companies))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to create run record: %v\n", err)
			} else {
				runner.Database = database
				runner.RunID = runID
				defer func() {
					resolved, errored := outcomeCounts(results)
					_ = database.CompleteRun(context.Background(), runID, "completed", resolved, errored, runner.Budget.Spent())
				}()
			}
		}
	}

	// Wall-clock budget maps to cooperative cancellation: in-flight units
	// finish their current stage and their partial results are still written.
	if runWallClockSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(runWallClockSec)*time.Second)
		defer cancel()
	}

	results, err = runner.RunBatch(ctx, companies, writer)
	if err != nil {
		return err
	}

	if cfg.Verbose {
		observability.NewPrinter(os.Stdout).PrintBatchSummary(results, runner.Budget.Spent())
	}
	return nil
}

// loadMergedConfig builds the effective config: config file, then explicit
// CLI overrides, then defaults, then environment fallbacks for credentials.
func loadMergedConfig(cmd *cobra.Command) (config.Config, error) {
	// Step 1: Load config file if provided
	var cfg config.Config
	if runConfigPath != "" {
		loadedCfg, err := config.LoadConfig(runConfigPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		if err := loadedCfg.Validate(); err != nil {
			return cfg, err
		}
		cfg = *loadedCfg
		if runVerbose {
			_, _ = fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", runConfigPath)
		}
	}

	// Step 2: Apply CLI overrides (command-line args take priority)
	// Only override if the flag was explicitly set
	if cmd.Flags().Changed("auto-accept") {
		cfg.AutoAccept = runAutoAccept
	}
	if cmd.Flags().Changed("needs-verification") {
		cfg.NeedsVerification = runNeedsVerify
	}
	if cmd.Flags().Changed("valid-threshold") {
		cfg.ValidThreshold = runValidThresh
	}
	if cmd.Flags().Changed("early-exit-threshold") {
		cfg.EarlyExitThreshold = runEarlyExit
	}
	if cmd.Flags().Changed("max-concurrency") {
		cfg.MaxConcurrency = runConcurrency
	}
	if cmd.Flags().Changed("connector-timeout") {
		cfg.ConnectorTimeoutSec = runTimeoutSec
	}
	if cmd.Flags().Changed("cost-budget") {
		cfg.CostBudget = runCostBudget
	}
	if cmd.Flags().Changed("connectors") {
		cfg.EnabledConnectors = runConnectorList
	}
	if cmd.Flags().Changed("review-output") {
		cfg.ReviewOutput = runReviewOutput
	}
	if cmd.Flags().Changed("use-browser") {
		cfg.UseBrowser = runUseBrowser
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = runVerbose
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = runDatabaseURL
	}

	// Step 3: Apply defaults for unset values
	cfg = cfg.MergeWithDefaults(config.DefaultConfig())

	// Step 4: Credentials fall back to environment variables
	applyEnvCredentials(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnvCredentials fills unset credentials from environment variables.
func applyEnvCredentials(cfg *config.Config) {
	if cfg.PlacesAPIKey == "" {
		cfg.PlacesAPIKey = os.Getenv("PLACES_API_KEY")
	}
	if cfg.SearchAPIKey == "" {
		cfg.SearchAPIKey = os.Getenv("SEARCH_API_KEY")
	}
	if cfg.SearchEngineID == "" {
		cfg.SearchEngineID = os.Getenv("SEARCH_ENGINE_ID")
	}
	if cfg.GeminiAPIKey == "" {
		cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.DirectoryAPIKey == "" {
		cfg.DirectoryAPIKey = os.Getenv("DIRECTORY_API_KEY")
	}
	if cfg.DirectoryBaseURL == "" {
		cfg.DirectoryBaseURL = os.Getenv("DIRECTORY_BASE_URL")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
}

// outcomeCounts tallies resolved and errored companies for the run record.
func outcomeCounts(results []types.PipelineResult) (resolved, errored int) {
	for i := range results {
		switch results[i].Outcome {
		case types.OutcomeResolved:
			resolved++
		case types.OutcomeError:
			errored++
		}
	}
	return resolved, errored
}
