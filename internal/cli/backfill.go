package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/railwatch/railwatch/internal/fra"
	"github.com/railwatch/railwatch/internal/ledger"
	"github.com/railwatch/railwatch/internal/pipeline"
)

var (
	backfillTimeout  time.Duration
	backfillJSONPath string
	backfillMDPath   string
)

// backfillCmd represents the backfill command
var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Reconcile the full ledger against the official casualty database",
	Long: `Backfill walks every ledger row that is missing coordinates:
- Rows that already carry an official incident number get their
  coordinates filled from the casualty database
- Rows without one are matched geographically; a single unambiguous
  same-day record is applied automatically, everything else goes into
  a review report

Example:
  railwatch backfill
  railwatch backfill --md review.md --json review.json`,
	RunE: runBackfill,
}

func init() {
	rootCmd.AddCommand(backfillCmd)

	backfillCmd.Flags().DurationVar(&backfillTimeout, "timeout", 10*time.Minute, "overall backfill timeout")
	backfillCmd.Flags().StringVar(&backfillJSONPath, "json", "", "write the report as JSON to this path")
	backfillCmd.Flags().StringVar(&backfillMDPath, "md", "", "write the review report as Markdown to this path")
}

func runBackfill(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), backfillTimeout)
	defer cancel()

	store, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer store.Close()

	client := fra.NewClient(cfg.FRA, cfg.HTTP.Timeout, log)
	b := pipeline.NewBackfiller(store, client, log)
	report, err := b.Run(ctx)
	if err != nil {
		return err
	}

	if backfillJSONPath != "" {
		f, err := os.Create(backfillJSONPath)
		if err != nil {
			return fmt.Errorf("create report file: %w", err)
		}
		defer f.Close()
		if err := report.WriteJSON(f); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	if backfillMDPath != "" {
		f, err := os.Create(backfillMDPath)
		if err != nil {
			return fmt.Errorf("create review file: %w", err)
		}
		defer f.Close()
		if err := report.WriteMarkdown(f); err != nil {
			return fmt.Errorf("write review: %w", err)
		}
	}

	fmt.Printf("Rows: %d (already complete: %d)\n", report.TotalRows, report.AlreadyComplete)
	fmt.Printf("Coordinates filled: %d, numbers without coordinates: %d\n",
		report.CoordinatesFilled, report.NumberNotFound)
	fmt.Printf("Auto-applied: %d, needing review: %d, no candidates: %d\n",
		report.AutoApplied, len(report.NeedsReview), report.NoCandidates)

	if len(report.NeedsReview) > 0 && backfillMDPath == "" {
		fmt.Println("\nMatches needing review:")
		for _, m := range report.NeedsReview {
			fmt.Printf("  row %d (%s %s): %s on %s in %s county [%s] %s\n",
				m.Row, m.Date, m.City, m.IncidentNumber, m.OfficialDate, m.County, m.Confidence, m.Note)
		}
	}
	return nil
}
