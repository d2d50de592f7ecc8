package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/railwatch/railwatch/internal/feeds"
	"github.com/railwatch/railwatch/internal/fra"
	"github.com/railwatch/railwatch/internal/ledger"
	"github.com/railwatch/railwatch/internal/notify"
	"github.com/railwatch/railwatch/internal/pipeline"
)

var (
	runWithFRA  bool
	runTimeout  time.Duration
	runJSONPath string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Search news, extract incidents, and update the ledger",
	Long: `Run executes one pipeline pass:
- Search Google News and local RSS feeds for recent coverage
- Fetch and pre-filter the articles, then extract structured incidents
- Match each incident against the ledger; merge sources or append drafts
- Optionally reconcile recent official casualty records (--fra)
- Email a summary when new drafts were appended

Example:
  railwatch run
  railwatch run --fra --json run-summary.json`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runWithFRA, "fra", false, "also reconcile recent official casualty records")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 15*time.Minute, "overall run timeout")
	runCmd.Flags().StringVar(&runJSONPath, "json", "", "write the run summary as JSON to this path")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	store, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer store.Close()

	searcher := feeds.NewSearcher(cfg.Feeds, cfg.HTTP, log)
	fetcher := pipeline.NewFetcher(cfg.HTTP, cfg.Cache, log)

	// Typed nils must not reach the pipeline's interface fields.
	var extractor pipeline.Extractor
	if e, err := newExtractor(cfg, log); err != nil {
		return fmt.Errorf("configure extractor: %w", err)
	} else if e != nil {
		extractor = e
	}

	var fraSource pipeline.FRASource
	if runWithFRA {
		fraSource = fra.NewClient(cfg.FRA, cfg.HTTP.Timeout, log)
	}

	var notifier pipeline.Notifier
	if m := notify.NewMailer(cfg.Notify, log); m != nil {
		notifier = m
	}

	p := pipeline.New(cfg, store, searcher, fetcher, extractor, fraSource, notifier, log)
	summary, err := p.Run(ctx, runWithFRA)
	if err != nil {
		return err
	}

	if runJSONPath != "" {
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}
		if err := os.WriteFile(runJSONPath, data, 0644); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	fmt.Printf("Articles found: %d (already known: %d, filtered: %d, fetch failures: %d)\n",
		summary.ArticlesFound, summary.AlreadyKnown, summary.FilteredOut, summary.FetchFailures)
	fmt.Printf("Extracted: %d, merged into existing rows: %d, new drafts: %d\n",
		summary.Extracted, summary.MergedSources, len(summary.NewDrafts))
	if runWithFRA {
		fmt.Printf("Official records attached: %d, unmatched: %d\n",
			summary.FRAMatched, summary.FRAUnmatched)
	}
	for _, d := range summary.NewDrafts {
		marker := ""
		if d.Official {
			marker = " [official]"
		}
		fmt.Printf("  row %d: %s %s %s%s\n", d.Row, d.Date, d.City, d.Name, marker)
	}
	return nil
}
