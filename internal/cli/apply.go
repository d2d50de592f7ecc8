package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/railwatch/railwatch/internal/ledger"
	"github.com/railwatch/railwatch/internal/pipeline"
)

var applyDryRun bool

// applyCmd represents the apply command
var applyCmd = &cobra.Command{
	Use:   "apply <review-file>",
	Short: "Apply approved matches from a reviewed backfill report",
	Long: `Apply reads a backfill report produced by 'railwatch backfill --json',
finds the entries a reviewer marked with "action": "APPROVE", and writes
each one's official incident number and coordinates to its ledger row.

Entries left unmarked or marked REJECT are ignored.

Example:
  railwatch backfill --json review.json
  # edit review.json, set "action": "APPROVE" on correct matches
  railwatch apply review.json`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)

	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "show what would be applied without writing")
}

func runApply(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open review file: %w", err)
	}
	defer f.Close()

	report, err := pipeline.ReadReviewReport(f)
	if err != nil {
		return err
	}

	if applyDryRun {
		approved := 0
		for _, m := range report.NeedsReview {
			if !m.Approved() {
				continue
			}
			approved++
			fmt.Printf("would apply row %d: %s %s -> %s\n", m.Row, m.Date, m.Name, m.IncidentNumber)
		}
		fmt.Printf("%d of %d review entries approved\n", approved, len(report.NeedsReview))
		return nil
	}

	store, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer store.Close()

	result, err := pipeline.ApplyApproved(store, report.NeedsReview, log)
	if err != nil {
		return err
	}

	for _, m := range result.Applied {
		fmt.Printf("row %d: %s %s -> %s", m.Row, m.Date, m.Name, m.IncidentNumber)
		if m.Latitude != "" {
			fmt.Printf(" (%s, %s)", m.Latitude, m.Longitude)
		}
		fmt.Println()
	}
	fmt.Printf("\nApplied %d match(es), skipped %d entries\n", len(result.Applied), result.Skipped)
	return nil
}
