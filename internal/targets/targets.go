// Package targets loads the plain two-column company/URL CSV that
// tells the snapshotter which careers pages to watch. This file is
// intentionally kept separate from the layered TOML/env/flag app
// configuration in internal/appconfig: operators hand-edit it far
// more often than the rest of the config, and a header row makes
// spreadsheet round-tripping painless.
package targets

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Target is one company's careers-page URL to snapshot.
type Target struct {
	Company string
	URL     string
}

// LoadCSV reads a 2-column CSV of (company, url) pairs from path.
// Blank lines are skipped. A header row ("company,url" or similar) is
// auto-detected and dropped; files without one are read from the
// first row.
func LoadCSV(path string) ([]Target, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open targets csv: %w", err)
	}
	defer f.Close()
	return parseCSV(f)
}

func parseCSV(r io.Reader) ([]Target, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // rows may have trailing empty cells

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read targets csv: %w", err)
		}
		if !anyNonBlank(row) {
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	dataRows := rows
	if looksLikeHeader(rows[0]) {
		dataRows = rows[1:]
	}

	var out []Target
	for _, row := range dataRows {
		if len(row) < 2 {
			continue
		}
		company := strings.TrimSpace(row[0])
		url := strings.TrimSpace(row[1])
		if company == "" || url == "" {
			continue
		}
		out = append(out, Target{Company: company, URL: url})
	}
	return out, nil
}

func anyNonBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return true
		}
	}
	return false
}

var (
	companyHeaderWords = []string{"company", "company_name", "name"}
	urlHeaderWords     = []string{"url", "link"}
)

func looksLikeHeader(row []string) bool {
	if len(row) < 2 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(row[0]))
	second := strings.ToLower(strings.TrimSpace(row[1]))

	if contains(companyHeaderWords, first) && contains(urlHeaderWords, second) {
		return true
	}
	return strings.Contains(first, "company") && strings.Contains(second, "url")
}

func contains(words []string, s string) bool {
	for _, w := range words {
		if w == s {
			return true
		}
	}
	return false
}
