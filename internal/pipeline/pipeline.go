// Package pipeline wires discovery, extraction, matching, and persistence
// into the runs the CLI exposes.
package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/railwatch/railwatch/internal/dedup"
	"github.com/railwatch/railwatch/internal/extract"
	"github.com/railwatch/railwatch/internal/ledger"
	"github.com/railwatch/railwatch/internal/model"
	"github.com/railwatch/railwatch/internal/worker"
)

// Store is the slice of the ledger the pipeline writes to.
type Store interface {
	Records() ([]model.IncidentRecord, error)
	AppendDraft(d ledger.Draft) (int64, error)
	MergeSources(rowID int64, sources []string) error
	SetOfficialRecord(rowID int64, incidentNumber, lat, lon string) error
}

// Searcher discovers candidate articles.
type Searcher interface {
	FetchAll(ctx context.Context) []model.Article
}

// Extractor turns article text into a structured incident, or nil when the
// article is rejected.
type Extractor interface {
	Extract(ctx context.Context, articleText string, publishDate *time.Time) (*model.ExtractedIncident, error)
}

// FRASource provides official casualty records.
type FRASource interface {
	RecentFatalities(ctx context.Context) ([]model.FRARecord, error)
}

// Notifier reports new drafts after a run. Nil disables notification.
type Notifier interface {
	NotifyRun(summary RunSummary) error
}

// NewDraft describes one row the run appended.
type NewDraft struct {
	Row      int64  `json:"row"`
	Date     string `json:"date"`
	City     string `json:"city"`
	Name     string `json:"name,omitempty"`
	Source   string `json:"source"`
	Official bool   `json:"official"` // true when seeded from a government record
}

// RunSummary aggregates one pipeline run.
type RunSummary struct {
	Started        time.Time  `json:"started"`
	ArticlesFound  int        `json:"articles_found"`
	AlreadyKnown   int        `json:"already_known"`
	FetchFailures  int        `json:"fetch_failures"`
	FilteredOut    int        `json:"filtered_out"`
	Extracted      int        `json:"extracted"`
	MergedSources  int        `json:"merged_sources"`
	NewDrafts      []NewDraft `json:"new_drafts"`
	FRAMatched     int        `json:"fra_matched"`
	FRAUnmatched   int        `json:"fra_unmatched"`
}

// Pipeline drives one scheduled run end to end.
type Pipeline struct {
	cfg       *model.Config
	store     Store
	searcher  Searcher
	fetcher   worker.PageFetcher
	parser    *extract.ArticleParser
	filter    *extract.KeywordFilter
	extractor Extractor
	fra       FRASource
	notifier  Notifier
	log       zerolog.Logger
}

// New assembles a pipeline. extractor, fra, and notifier may be nil; the
// corresponding stages are skipped.
func New(cfg *model.Config, store Store, searcher Searcher, fetcher worker.PageFetcher,
	extractor Extractor, fra FRASource, notifier Notifier, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		store:     store,
		searcher:  searcher,
		fetcher:   fetcher,
		parser:    extract.NewArticleParser(200),
		filter:    extract.NewKeywordFilter(cfg.Filter),
		extractor: extractor,
		fra:       fra,
		notifier:  notifier,
		log:       log,
	}
}

// Run executes the news pass and, when enabled, the official-records pass,
// then notifies. Errors in one stage do not abort the others.
func (p *Pipeline) Run(ctx context.Context, withFRA bool) (*RunSummary, error) {
	summary := &RunSummary{Started: time.Now().UTC()}

	deduper, err := p.loadDeduper()
	if err != nil {
		return nil, err
	}

	if err := p.processNews(ctx, deduper, summary); err != nil {
		p.log.Error().Err(err).Msg("news pass failed")
	}

	if withFRA && p.fra != nil {
		if err := p.processFRA(ctx, deduper, summary); err != nil {
			p.log.Error().Err(err).Msg("official records pass failed")
		}
	}

	if p.notifier != nil && len(summary.NewDrafts) > 0 {
		if err := p.notifier.NotifyRun(*summary); err != nil {
			p.log.Warn().Err(err).Msg("notification failed")
		}
	}

	p.log.Info().
		Int("articles", summary.ArticlesFound).
		Int("new_drafts", len(summary.NewDrafts)).
		Int("fra_matched", summary.FRAMatched).
		Msg("run complete")
	return summary, nil
}

func (p *Pipeline) loadDeduper() (*dedup.Deduper, error) {
	records, err := p.store.Records()
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	deduper, err := dedup.New(records, p.cfg.Match)
	if err != nil {
		return nil, fmt.Errorf("build matcher: %w", err)
	}
	return deduper, nil
}

// processNews runs search, fetch, filter, extraction, and matching.
func (p *Pipeline) processNews(ctx context.Context, deduper *dedup.Deduper, summary *RunSummary) error {
	articles := p.searcher.FetchAll(ctx)
	summary.ArticlesFound = len(articles)

	// Articles whose URL the ledger already evidences need no further work.
	var fresh []model.Article
	for _, a := range articles {
		if deduper.CheckSourceExists(a.URL) != nil {
			summary.AlreadyKnown++
			continue
		}
		fresh = append(fresh, a)
	}

	urls := make([]string, len(fresh))
	for i, a := range fresh {
		urls[i] = a.URL
	}
	pages := worker.FetchAll(ctx, p.fetcher, urls, p.cfg.Concurrency.FetchWorkers)

	texts := make(map[string]string, len(fresh))
	for _, a := range fresh {
		page := pages[a.URL]
		if page == nil || page.Error != nil {
			summary.FetchFailures++
			if page != nil {
				p.log.Debug().Err(page.Error).Str("url", a.URL).Msg("fetch failed")
			}
			continue
		}
		parsed, err := p.parser.Parse(a.URL, page.HTML)
		if err != nil {
			summary.FetchFailures++
			p.log.Debug().Err(err).Str("url", a.URL).Msg("parse failed")
			continue
		}
		texts[a.URL] = parsed.Text
	}

	passed, filtered := p.filter.Partition(fresh, texts)
	summary.FilteredOut = len(filtered)

	if p.extractor == nil {
		p.log.Warn().Msg("no extractor configured, skipping structured extraction")
		return nil
	}

	for _, a := range passed {
		text, ok := texts[a.URL]
		if !ok {
			continue
		}
		incident, err := p.extractor.Extract(ctx, text, a.Published)
		if err != nil {
			p.log.Warn().Err(err).Str("url", a.URL).Msg("extraction failed")
			continue
		}
		if incident == nil {
			continue
		}
		summary.Extracted++
		p.reconcile(deduper, model.RecordFromExtracted(*incident, a.URL), incident, summary)
	}
	return nil
}

// reconcile matches one extracted record against the ledger and either
// merges its sources into the matched row or appends a new draft.
func (p *Pipeline) reconcile(deduper *dedup.Deduper, rec model.IncidentRecord, incident *model.ExtractedIncident, summary *RunSummary) {
	result := deduper.FindMatch(rec)
	if result.IsMatch {
		if err := p.store.MergeSources(result.Matched.Row, rec.SourceIDs); err != nil {
			p.log.Error().Err(err).Int64("row", result.Matched.Row).Msg("merge sources failed")
			return
		}
		deduper.AttachSources(result.Matched, rec.SourceIDs)
		summary.MergedSources++
		p.log.Info().
			Int64("row", result.Matched.Row).
			Str("match", string(result.Type)).
			Int("score", result.Score).
			Strs("factors", result.Factors).
			Msg("matched existing incident")
		return
	}

	draft := ledger.Draft{
		Date:         model.FormatLedgerDate(rec.IncidentDate),
		LocationFull: rec.LocationFull,
		LocationCity: rec.LocationCity,
		Name:         rec.VictimName,
		Sources:      rec.SourceIDs,
	}
	if rec.VictimAge != nil {
		draft.Age = strconv.Itoa(*rec.VictimAge)
	}
	if incident != nil {
		draft.Details = incident.Details
		draft.Mode = incident.Mode
		draft.Gender = incident.VictimGender
		draft.Suicide = incident.Suicide
	}

	rowID, err := p.store.AppendDraft(draft)
	if err != nil {
		p.log.Error().Err(err).Msg("append draft failed")
		return
	}
	rec.Row = rowID
	deduper.AddRecord(rec)

	source := ""
	if len(rec.SourceIDs) > 0 {
		source = rec.SourceIDs[0]
	}
	summary.NewDrafts = append(summary.NewDrafts, NewDraft{
		Row:    rowID,
		Date:   draft.Date,
		City:   rec.LocationCity,
		Name:   rec.VictimName,
		Source: source,
	})
	p.log.Info().Int64("row", rowID).Str("city", rec.LocationCity).Msg("new draft incident")
}

// processFRA reconciles recent official records against the ledger. A
// matched record attaches its incident number and coordinates to the row;
// an unmatched one becomes a draft of its own.
func (p *Pipeline) processFRA(ctx context.Context, deduper *dedup.Deduper, summary *RunSummary) error {
	records, err := p.fra.RecentFatalities(ctx)
	if err != nil {
		return fmt.Errorf("fetch official records: %w", err)
	}

	for _, fra := range records {
		if deduper.CheckSourceExists(fra.IncidentNumber) != nil {
			continue
		}

		rec := model.RecordFromFRA(fra)
		result := deduper.FindMatch(rec)
		if result.IsMatch {
			lat, lon := "", ""
			if fra.HasCoordinates() {
				lat = strconv.FormatFloat(*fra.Latitude, 'f', -1, 64)
				lon = strconv.FormatFloat(*fra.Longitude, 'f', -1, 64)
			}
			if err := p.store.SetOfficialRecord(result.Matched.Row, fra.IncidentNumber, lat, lon); err != nil {
				p.log.Error().Err(err).Int64("row", result.Matched.Row).Msg("attach official record failed")
				continue
			}
			deduper.AttachSources(result.Matched, rec.SourceIDs)
			summary.FRAMatched++
			p.log.Info().
				Int64("row", result.Matched.Row).
				Str("incident_number", fra.IncidentNumber).
				Int("score", result.Score).
				Msg("official record attached")
			continue
		}

		summary.FRAUnmatched++
		draft := ledger.Draft{
			Date:         model.FormatLedgerDate(fra.IncidentDate),
			IncidentNum:  fra.IncidentNumber,
			LocationCity: fra.CountyName,
			Sources:      []string{fra.IncidentNumber},
		}
		if fra.Age != nil {
			draft.Age = strconv.Itoa(*fra.Age)
		}
		rowID, err := p.store.AppendDraft(draft)
		if err != nil {
			p.log.Error().Err(err).Msg("append official draft failed")
			continue
		}
		rec.Row = rowID
		deduper.AddRecord(rec)
		summary.NewDrafts = append(summary.NewDrafts, NewDraft{
			Row:      rowID,
			Date:     draft.Date,
			City:     fra.CountyName,
			Source:   fra.IncidentNumber,
			Official: true,
		})
	}
	return nil
}
