// Package dedup implements the incident matching core: fuzzy field
// similarity, weighted multi-factor scoring against the in-memory record
// pool, and the county-level co-location fallback for government records.
package dedup

import (
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Ratio computes an overall edit-distance similarity between two strings on
// a 0-100 scale. Inputs are case-folded and whitespace-trimmed before
// comparison. The score is round(100 * (maxLen - distance) / maxLen) over
// runes; identical normalized strings score 100 and an empty side scores 0.
func Ratio(a, b string) int {
	a = normalize(a)
	b = normalize(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	return int(math.Round(100 * float64(maxLen-dist) / float64(maxLen)))
}

// PartialRatio computes the best-substring alignment score on a 0-100 scale,
// for cases where one string is expected to be a short form or fragment of
// the other ("John" against "John Smith", a crossing name inside a longer
// address). Punctuation is dropped, and a single-letter token is expanded to
// the aligned token of the longer string when the initial matches, so
// "J. Smith" aligns with "John Smith". The shorter string is then slid over
// the longer and the best window Ratio wins. Empty input scores 0.
func PartialRatio(a, b string) int {
	a = normalizeLoose(a)
	b = normalizeLoose(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}

	shorter, longer := a, b
	if len([]rune(shorter)) > len([]rune(longer)) {
		shorter, longer = longer, shorter
	}

	shorter = expandInitials(shorter, longer)
	if strings.Contains(longer, shorter) {
		return 100
	}

	sr := []rune(shorter)
	lr := []rune(longer)
	if len(sr) >= len(lr) {
		return Ratio(shorter, longer)
	}

	best := 0
	for i := 0; i+len(sr) <= len(lr); i++ {
		window := string(lr[i : i+len(sr)])
		if score := Ratio(shorter, window); score > best {
			best = score
			if best == 100 {
				break
			}
		}
	}
	return best
}

// DaysApart returns the absolute difference in calendar days between two
// dates, ignoring time-of-day.
func DaysApart(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	days := int(ad.Sub(bd).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// normalizeLoose lowercases and replaces punctuation with spaces, collapsing
// runs of whitespace, so "J. Smith" and "j smith" compare equal.
func normalizeLoose(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// expandInitials replaces single-letter tokens of the shorter string with the
// positionally aligned token of the longer string when the initial matches.
func expandInitials(shorter, longer string) string {
	st := strings.Fields(shorter)
	lt := strings.Fields(longer)
	if len(st) != len(lt) {
		return shorter
	}
	changed := false
	for i, tok := range st {
		if len(tok) == 1 && strings.HasPrefix(lt[i], tok) {
			st[i] = lt[i]
			changed = true
		}
	}
	if !changed {
		return shorter
	}
	return strings.Join(st, " ")
}
