package extract

import (
	"sort"
	"strings"

	"github.com/railwatch/railwatch/internal/model"
)

// FilterResult records why an article passed or failed the keyword filter.
// Exclusion keywords in the title deprioritize an article without dropping
// it; obituaries occasionally carry the only usable name.
type FilterResult struct {
	Passed           bool
	MatchedRequired  []string
	MatchedIncident  []string
	MatchedExclusion []string
	Deprioritized    bool
}

// FilterStats aggregates outcomes across one run.
type FilterStats struct {
	Total          int
	Passed         int
	Filtered       int
	KeywordMatches map[string]int
}

// KeywordFilter screens articles before the LLM pass. An article must
// contain at least one required keyword and at least one incident keyword
// anywhere in its title, text, or summary.
type KeywordFilter struct {
	required  []string
	incident  []string
	exclusion []string
	stats     FilterStats
}

// NewKeywordFilter builds a filter from the configured word lists. Keywords
// are matched case-insensitively as substrings.
func NewKeywordFilter(cfg model.FilterConfig) *KeywordFilter {
	return &KeywordFilter{
		required:  lowerAll(cfg.RequiredKeywords),
		incident:  lowerAll(cfg.IncidentKeywords),
		exclusion: lowerAll(cfg.ExclusionKeywords),
		stats:     FilterStats{KeywordMatches: make(map[string]int)},
	}
}

// Check runs one article through the filter.
func (f *KeywordFilter) Check(title, text, summary string) FilterResult {
	f.stats.Total++

	combined := strings.ToLower(title + " " + text + " " + summary)
	titleLower := strings.ToLower(title)

	matchedRequired := matchAny(f.required, combined)
	if len(matchedRequired) == 0 {
		f.stats.Filtered++
		return FilterResult{}
	}

	matchedIncident := matchAny(f.incident, combined)
	if len(matchedIncident) == 0 {
		f.stats.Filtered++
		return FilterResult{MatchedRequired: matchedRequired}
	}

	matchedExclusion := matchAny(f.exclusion, titleLower)

	f.stats.Passed++
	for _, kw := range matchedRequired {
		f.stats.KeywordMatches[kw]++
	}
	for _, kw := range matchedIncident {
		f.stats.KeywordMatches[kw]++
	}

	return FilterResult{
		Passed:           true,
		MatchedRequired:  matchedRequired,
		MatchedIncident:  matchedIncident,
		MatchedExclusion: matchedExclusion,
		Deprioritized:    len(matchedExclusion) > 0,
	}
}

// Partition splits articles into those that passed and those that were
// filtered out. Passed articles are ordered with deprioritized ones last;
// the sort is stable so feed order is otherwise preserved.
func (f *KeywordFilter) Partition(articles []model.Article, texts map[string]string) (passed, filtered []model.Article) {
	type scored struct {
		article       model.Article
		deprioritized bool
	}
	var keep []scored
	for _, a := range articles {
		result := f.Check(a.Title, texts[a.URL], a.Summary)
		if result.Passed {
			keep = append(keep, scored{a, result.Deprioritized})
		} else {
			filtered = append(filtered, a)
		}
	}
	sort.SliceStable(keep, func(i, j int) bool {
		return !keep[i].deprioritized && keep[j].deprioritized
	})
	for _, s := range keep {
		passed = append(passed, s.article)
	}
	return passed, filtered
}

// Stats returns the counters accumulated so far.
func (f *KeywordFilter) Stats() FilterStats {
	return f.stats
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}

func matchAny(keywords []string, haystack string) []string {
	var matched []string
	for _, kw := range keywords {
		if kw != "" && strings.Contains(haystack, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}
