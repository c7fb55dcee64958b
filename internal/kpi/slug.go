package kpi

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// slugReplacer applies the symbol substitutions used across all KPI naming.
// Order matters: symbols first, then separators.
var slugReplacer = strings.NewReplacer(
	"%", "pct",
	"<", "lt",
	">", "gt",
	"+", "plus",
	"(", "",
	")", "",
	".", "",
	",", "",
	"/", "_",
	" ", "_",
	"-", "_",
)

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify converts a KPI display name (or code) into its canonical alias.
// It is deterministic, total, and idempotent: Slugify(Slugify(s)) == Slugify(s).
func Slugify(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	if stripped, _, err := transform.String(diacriticStripper, s); err == nil {
		s = stripped
	}
	s = slugReplacer.Replace(s)
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return strings.Trim(s, "_")
}
