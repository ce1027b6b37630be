package orchestrate

import (
	"regexp"
	"strings"
)

// genericTerms are too common to carry ranking signal on their own; a
// query consisting only of these keeps them all as its ranking terms (see
// parseQuery) rather than becoming empty.
var genericTerms = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "and": true, "or": true,
	"data": true, "dataset": true, "datasets": true, "study": true, "analysis": true,
}

// conjunctionMarkers signal the caller meant "both of these", not "either
// of these" — driving AND instead of OR in buildProviderQuery.
var conjunctionMarkers = []string{"and", "&", "joint", "combined", "multi", "integrated"}

var andSplitPattern = regexp.MustCompile(`(?i)\s+and\s+|\s*&\s*`)

// parseQuery splits a free-text query into ranking terms, dropping generic
// terms only when at least one specific term is also present — a query
// that is nothing but generic terms keeps them all rather than becoming
// empty.
func parseQuery(query string) []string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return nil
	}

	var specific []string
	for _, f := range fields {
		if !genericTerms[strings.ToLower(f)] {
			specific = append(specific, f)
		}
	}
	if len(specific) == 0 {
		return fields
	}
	return specific
}

// buildProviderQuery derives the term sent to a search provider from a
// free-text query: strip generic words, split any explicit "and"/"&"
// -joined phrases and AND them together, and otherwise AND or OR the
// remaining specific terms depending on whether the query carries an
// explicit conjunction marker or narrows to 2-3 specific terms.
func buildProviderQuery(query string) string {
	// Split on "and"/"&" against the raw query, before generic-word
	// stripping: stripGenericWords treats "and" itself as generic, so
	// splitting after stripping would never find it.
	if phrases := splitOnAnd(query); len(phrases) > 1 {
		quoted := make([]string, 0, len(phrases))
		for _, p := range phrases {
			phrase := stripGenericWords(p)
			if phrase == "" {
				phrase = strings.TrimSpace(p)
			}
			quoted = append(quoted, `"`+phrase+`"`)
		}
		return strings.Join(quoted, " AND ")
	}

	stripped := stripGenericWords(query)
	if stripped == "" {
		return strings.TrimSpace(query)
	}

	terms := parseQuery(stripped)
	if len(terms) == 0 {
		return stripped
	}

	joiner := " OR "
	if hasConjunctionMarker(query) || (len(terms) >= 2 && len(terms) <= 3) {
		joiner = " AND "
	}
	return strings.Join(terms, joiner)
}

// stripGenericWords drops generic words from query while preserving the
// order and phrasing of what remains, unlike parseQuery which only keeps
// ranking terms regardless of adjacency.
func stripGenericWords(query string) string {
	fields := strings.Fields(query)
	var kept []string
	for _, f := range fields {
		if !genericTerms[strings.ToLower(strings.Trim(f, ".,;"))] {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}

// splitOnAnd splits s on the literal conjunction word "and" or "&",
// trimming and dropping any empty phrase produced at the edges.
func splitOnAnd(s string) []string {
	var out []string
	for _, p := range andSplitPattern.Split(s, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func hasConjunctionMarker(query string) bool {
	lower := strings.ToLower(query)
	for _, marker := range conjunctionMarkers {
		if marker == "and" {
			for _, f := range strings.Fields(lower) {
				if f == "and" {
					return true
				}
			}
			continue
		}
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
