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

	"github.com/outreach-labs/contact-pipeline/internal/db"
	"github.com/outreach-labs/contact-pipeline/internal/types"
)

var resultsCommand = &cobra.Command{
	Use:   "results",
	Short: "List stored results for a pipeline run",
	Long: `Reads persisted PipelineResults for a run from PostgreSQL and prints them
as JSONL, one result per line. Requires a database URL (--db-url or
DATABASE_URL). Use --company to fetch a single company's result.`,
	RunE: resultsCmd,
}

var (
	resultsRunID       string
	resultsOutcome     string
	resultsCompanyID   string
	resultsDatabaseURL string
)

func init() {
	resultsCommand.Flags().StringVar(&resultsRunID, "run-id", "", "Pipeline run ID (required)")
	resultsCommand.Flags().StringVar(&resultsOutcome, "outcome", "", "Filter by outcome: resolved, no_candidates, or error")
	resultsCommand.Flags().StringVar(&resultsCompanyID, "company", "", "Fetch a single company's result")
	resultsCommand.Flags().StringVar(&resultsDatabaseURL, "db-url", "", "PostgreSQL connection URL (defaults to DATABASE_URL env var)")

	_ = resultsCommand.MarkFlagRequired("run-id")

	rootCmd.AddCommand(resultsCommand)
}

func resultsCmd(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID, err := uuid.Parse(resultsRunID)
	if err != nil {
		return fmt.Errorf("invalid run ID %q: %w", resultsRunID, err)
	}
	outcome, err := outcomeFilter(resultsOutcome)
	if err != nil {
		return err
	}

	databaseURL := resultsDatabaseURL
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		return fmt.Errorf("no database configured; set --db-url or DATABASE_URL")
	}

	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	enc := json.NewEncoder(os.Stdout)

	if resultsCompanyID != "" {
		result, err := database.GetResult(ctx, runID, resultsCompanyID)
		if err != nil {
			return err
		}
		if result == nil {
			return fmt.Errorf("no result for company %q in run %s", resultsCompanyID, runID)
		}
		return enc.Encode(result)
	}

	results, err := database.ListResults(ctx, runID, outcome)
	if err != nil {
		return err
	}
	for i := range results {
		if err := enc.Encode(&results[i]); err != nil {
			return err
		}
	}
	return nil
}

// outcomeFilter validates the --outcome flag; empty means no filter.
func outcomeFilter(s string) (*string, error) {
	if s == "" {
		return nil, nil
	}
	switch types.Outcome(s) {
	case types.OutcomeResolved, types.OutcomeNoCandidates, types.OutcomeError:
		return &s, nil
	}
	return nil, fmt.Errorf("unknown outcome %q: expected resolved, no_candidates, or error", s)
}
