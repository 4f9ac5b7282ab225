package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/jobwatch/jobwatch/internal/inference"
	"github.com/jobwatch/jobwatch/internal/store"
)

// Service wires together the pieces of one digest run: reading
// eligible jobs from the store, rendering and sending the email, and
// marking jobs emailed only after the send succeeds.
type Service struct {
	Store     *store.Store
	Sender    *Sender
	AuditPath string
	To        []string
	// Limit bounds how many ready jobs one digest run includes. 0
	// falls back to DefaultLimit.
	Limit int
}

// DefaultLimit is the number of ready jobs a digest run includes when
// Service.Limit is left unset.
const DefaultLimit = 200

// Outcome reports what one digest run did, for logging and for the
// `jobwatch digest` CLI subcommand's exit status.
type Outcome struct {
	DigestID   string
	JobCount   int
	Sent       bool
	SkipReason string
}

// Run lists jobs ready for email under inference.MinYearsThreshold,
// and if any exist, appends them to the audit CSV, sends the digest,
// and marks them emailed. Jobs are only marked emailed after a
// successful send, so a crash or SMTP failure leaves them pending for
// the next run instead of silently dropping them.
func (s *Service) Run(ctx context.Context, owner string, at time.Time) (Outcome, error) {
	limit := s.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	details, err := s.Store.JobsReadyForEmail(ctx, inference.MinYearsThreshold-1, limit)
	if err != nil {
		return Outcome{}, fmt.Errorf("digest: list ready jobs: %w", err)
	}
	// Re-check the threshold in memory as well as in the query.
	eligible := details[:0]
	for _, d := range details {
		if d.MinYears != nil && *d.MinYears < inference.MinYearsThreshold {
			eligible = append(eligible, d)
		}
	}
	details = eligible
	if len(details) == 0 {
		return Outcome{SkipReason: "no_jobs_ready"}, nil
	}

	jobs := make([]Job, len(details))
	for i, d := range details {
		jobs[i] = FromDetail(d)
	}

	digestID := DigestID(owner, at)

	if s.AuditPath != "" {
		if err := AppendAuditCSV(s.AuditPath, jobs, at); err != nil {
			return Outcome{}, fmt.Errorf("digest: append audit csv: %w", err)
		}
	}

	bodyText := FormatPlaintext(jobs)
	bodyHTML := FormatHTML(jobs)
	subject := fmt.Sprintf("Job alerts (%d new)", len(jobs))

	if err := s.Sender.Send(s.To, subject, bodyText, bodyHTML, s.AuditPath); err != nil {
		return Outcome{}, fmt.Errorf("digest: send: %w", err)
	}

	if err := s.Store.MarkJobsEmailed(ctx, details, digestID); err != nil {
		return Outcome{}, fmt.Errorf("digest: mark emailed after successful send: %w", err)
	}

	return Outcome{DigestID: digestID, JobCount: len(jobs), Sent: true}, nil
}
