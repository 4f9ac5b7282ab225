// Package digest renders and sends the periodic email summarizing
// jobs under the experience threshold, and records which jobs have
// already been emailed.
package digest

import (
	"fmt"
	"html"
	"strings"

	"github.com/jobwatch/jobwatch/internal/store"
)

// Job is the subset of store.JobDetail the renderers need, decoupled
// from the storage row shape so render.go has no database dependency.
type Job struct {
	Site     string
	Title    string
	URL      string
	MinYears int
}

// FromDetail adapts a store.JobDetail into a Job for rendering.
func FromDetail(d store.JobDetail) Job {
	years := 0
	if d.MinYears != nil {
		years = *d.MinYears
	}
	return Job{Site: d.Site, Title: d.Title, URL: d.URL, MinYears: years}
}

func displaySite(j Job) string {
	if s := strings.TrimSpace(j.Site); s != "" {
		return s
	}
	return "Unknown"
}

func displayTitle(j Job) string {
	if t := strings.TrimSpace(j.Title); t != "" {
		return t
	}
	return "Untitled"
}

// FormatPlaintext renders the digest as a plain-text email body.
func FormatPlaintext(jobs []Job) string {
	var b strings.Builder
	b.WriteString("Job alerts\n\n")
	fmt.Fprintf(&b, "Total new jobs: %d\n\n", len(jobs))
	for _, j := range jobs {
		fmt.Fprintf(&b, "- %s | %s | min years: %d\n", displaySite(j), displayTitle(j), j.MinYears)
		if url := strings.TrimSpace(j.URL); url != "" {
			fmt.Fprintf(&b, "  %s\n", url)
		}
	}
	return strings.TrimSpace(b.String()) + "\n"
}

// FormatHTML renders the digest as an HTML email body.
func FormatHTML(jobs []Job) string {
	var rows strings.Builder
	for _, j := range jobs {
		link := "Link"
		if url := strings.TrimSpace(j.URL); url != "" {
			link = fmt.Sprintf(`<a href="%s">Link</a>`, html.EscapeString(url))
		}
		fmt.Fprintf(&rows, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%d</td></tr>\n",
			html.EscapeString(displaySite(j)), html.EscapeString(displayTitle(j)), link, j.MinYears)
	}

	return fmt.Sprintf(`<html><body>`+
		`<h1>Job alerts</h1>`+
		`<p>Total new jobs: %d</p>`+
		`<table border="1" cellpadding="6" cellspacing="0" style="border-collapse:collapse;">`+
		`<thead><tr><th>Company</th><th>Job title</th><th>URL</th><th>Min years</th></tr></thead>`+
		`<tbody>%s</tbody>`+
		`</table></body></html>`,
		len(jobs), rows.String())
}

// FormatMarkdown renders the digest as a Markdown table, the shape
// handed to glamour for the `jobwatch digest --preview` console
// preview (the digest is
// still emailed as plaintext/HTML; this is console-only tooling, not a
// wire format).
func FormatMarkdown(jobs []Job) string {
	var b strings.Builder
	b.WriteString("# Job alerts\n\n")
	fmt.Fprintf(&b, "Total new jobs: %d\n\n", len(jobs))
	b.WriteString("| Company | Job title | URL | Min years |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, j := range jobs {
		link := "Link"
		if url := strings.TrimSpace(j.URL); url != "" {
			link = fmt.Sprintf("[Link](%s)", url)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %d |\n", displaySite(j), displayTitle(j), link, j.MinYears)
	}
	return strings.TrimSpace(b.String()) + "\n"
}
