package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/outreach-labs/contact-pipeline/internal/config"
	"github.com/outreach-labs/contact-pipeline/internal/observability"
	"github.com/outreach-labs/contact-pipeline/internal/pipeline"
	"github.com/outreach-labs/contact-pipeline/internal/telemetry"
	"github.com/outreach-labs/contact-pipeline/internal/types"
)

var resolveCommand = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a single company to validated contacts",
	Long: `Runs the domain and contact waterfalls for one company given on the
command line and prints the PipelineResult as JSON. Useful for spot checks
and for tuning thresholds against a known company.`,
	RunE: resolveCmd,
}

var (
	resolveConfigPath string
	resolveName       string
	resolveDomain     string
	resolvePhone      string
	resolveAddress    string
	resolveKeywords   []string
	resolveUseBrowser bool
	resolveVerbose    bool
)

func init() {
	resolveCommand.Flags().StringVar(&resolveConfigPath, "config", "", "Path to config.json file")
	resolveCommand.Flags().StringVarP(&resolveName, "name", "n", "", "Company name (required)")
	resolveCommand.Flags().StringVarP(&resolveDomain, "domain", "d", "", "Known company domain (skips domain resolution)")
	resolveCommand.Flags().StringVar(&resolvePhone, "phone", "", "Known company phone")
	resolveCommand.Flags().StringVar(&resolveAddress, "address", "", "Company street address")
	resolveCommand.Flags().StringSliceVar(&resolveKeywords, "keywords", nil, "Context keywords to sharpen search queries")
	resolveCommand.Flags().BoolVar(&resolveUseBrowser, "use-browser", false, "Use headless browser for SPA sites (requires Chrome)")
	resolveCommand.Flags().BoolVarP(&resolveVerbose, "verbose", "v", false, "Print detailed debug information")

	_ = resolveCommand.MarkFlagRequired("name")

	rootCmd.AddCommand(resolveCommand)
}

func resolveCmd(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg config.Config
	if resolveConfigPath != "" {
		loadedCfg, err := config.LoadConfig(resolveConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := loadedCfg.Validate(); err != nil {
			return err
		}
		cfg = *loadedCfg
	}
	if cmd.Flags().Changed("use-browser") {
		cfg.UseBrowser = resolveUseBrowser
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = resolveVerbose
	}
	cfg = cfg.MergeWithDefaults(config.DefaultConfig())
	applyEnvCredentials(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
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

	company := types.CompanyRecord{
		ID:              uuid.NewString(),
		Name:            resolveName,
		Domain:          resolveDomain,
		Phone:           resolvePhone,
		Address:         resolveAddress,
		ContextKeywords: resolveKeywords,
	}
	if err := types.ValidateCompanyRecord(&company); err != nil {
		return err
	}

	writer := pipeline.NewResultWriter(os.Stdout, nil)
	results, err := runner.RunBatch(ctx, []types.CompanyRecord{company}, writer)
	if err != nil {
		return err
	}

	// Review items go to stderr for a single-company spot check.
	if len(results) == 1 && results[0].ResolvedDomain != nil && results[0].ResolvedDomain.NeedsManualReview {
		line, _ := json.Marshal(results[0].ResolvedDomain)
		fmt.Fprintf(os.Stderr, "needs manual review: %s\n", line)
	}
	return nil
}
