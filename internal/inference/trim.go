package inference

import "strings"

// MaxChars bounds the text handed to the experience extractor, keeping
// prompt size (and therefore cost) predictable regardless of how long
// a job description page is.
const MaxChars = 8000

// minKeywordTrimmedChars is the floor below which the keyword-filtered
// text is considered too thin to trust; below it we fall back to a
// raw prefix of the original text instead.
const minKeywordTrimmedChars = 500

// minLineChars discards short lines (nav labels, button text) before
// keyword filtering so they can't crowd out substantive ones.
const minLineChars = 20

// keywords identifies lines likely to describe requirements rather
// than boilerplate.
var keywords = []string{
	"experience",
	"years",
	"qualification",
	"requirement",
	"responsibil",
	"minimum",
	"preferred",
}

// Trim reduces a job description to the portion most likely to state
// an experience requirement: lines longer than minLineChars that
// mention one of keywords, joined back together. If that yields less
// than minKeywordTrimmedChars of text, it falls back to a raw prefix
// of the original text instead of risking an empty or misleading
// extraction input. The result is always capped at MaxChars.
func Trim(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) <= minLineChars {
			continue
		}
		if containsKeyword(line) {
			kept = append(kept, line)
		}
	}

	trimmed := strings.Join(kept, "\n")
	if len(trimmed) < minKeywordTrimmedChars {
		trimmed = truncate(text, MaxChars)
	}
	return truncate(trimmed, MaxChars)
}

func containsKeyword(line string) bool {
	lower := strings.ToLower(line)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
