package inference

import (
	"strings"
	"testing"
)

func TestTrimKeepsKeywordLines(t *testing.T) {
	lines := []string{
		"Apply now using our portal",
		"Minimum of 3 years of professional experience required for this role",
		"We offer competitive benefits and a great culture",
	}
	// Enough keyword lines that the kept text reaches
	// minKeywordTrimmedChars and Trim does not fall back to the raw text.
	for i := 0; i < 10; i++ {
		lines = append(lines, "Preferred qualifications include a degree in computer science")
	}
	text := strings.Join(lines, "\n")

	got := Trim(text)
	if !strings.Contains(got, "Minimum of 3 years") {
		t.Fatalf("Trim dropped the requirement line: %q", got)
	}
	if strings.Contains(got, "competitive benefits") {
		t.Fatalf("Trim kept a non-keyword line: %q", got)
	}
}

func TestTrimFallsBackWhenKeywordTextTooShort(t *testing.T) {
	text := strings.Repeat("a", 600) + "\nminimum 2 years experience here\n" + strings.Repeat("b", 600)

	got := Trim(text)
	// The keyword line alone is well under minKeywordTrimmedChars, so
	// Trim should fall back to a raw prefix of the full text.
	if !strings.HasPrefix(got, strings.Repeat("a", 10)) {
		t.Fatalf("Trim did not fall back to raw text prefix: %q", got[:min(40, len(got))])
	}
}

func TestTrimCapsAtMaxChars(t *testing.T) {
	text := strings.Repeat("minimum years of experience required\n", 1000)
	got := Trim(text)
	if len(got) > MaxChars {
		t.Fatalf("Trim returned %d chars, want <= %d", len(got), MaxChars)
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
