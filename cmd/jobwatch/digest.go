package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/jobwatch/jobwatch/internal/appconfig"
	"github.com/jobwatch/jobwatch/internal/applog"
	"github.com/jobwatch/jobwatch/internal/digest"
	"github.com/jobwatch/jobwatch/internal/inference"
	"github.com/jobwatch/jobwatch/internal/store"
)

var (
	flagDigestSecretsFile string
	flagDigestPreview     bool
	flagDigestLimit       int
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Send the digest email for every job under the experience threshold",
	RunE:  runDigest,
}

func init() {
	digestCmd.Flags().StringVar(&flagDigestSecretsFile, "secrets-file", "./state/secrets.env", "path to the SMTP credentials file")
	digestCmd.Flags().BoolVar(&flagDigestPreview, "preview", false, "render the digest to the terminal instead of sending it")
	digestCmd.Flags().IntVar(&flagDigestLimit, "limit", digest.DefaultLimit, "maximum number of ready jobs to include in one digest")
	rootCmd.AddCommand(digestCmd)
}

func runDigest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	s, err := store.Open(ctx, appconfig.GetString("db"))
	if err != nil {
		return err
	}
	defer s.Close()

	if flagDigestPreview {
		return previewDigest(ctx, s, flagDigestLimit)
	}

	secrets, err := appconfig.LoadSecrets(flagDigestSecretsFile)
	if err != nil {
		return err
	}

	to := strings.FieldsFunc(appconfig.GetString("email-to"), func(r rune) bool { return r == ',' || r == ' ' })

	sender := digest.NewSender(digest.SMTPConfig{
		Host:     secrets.SMTPHost,
		Port:     secrets.SMTPPort,
		Username: secrets.SMTPUser,
		Password: secrets.SMTPPass,
		From:     secrets.From,
	})

	svc := &digest.Service{
		Store:     s,
		Sender:    sender,
		AuditPath: appconfig.GetString("audit-csv"),
		To:        to,
		Limit:     flagDigestLimit,
	}

	owner := applog.Owner()
	outcome, err := svc.Run(ctx, owner, time.Now())
	if err != nil {
		return err
	}
	if !outcome.Sent {
		logger.Info("digest_skipped", "reason", outcome.SkipReason)
		return nil
	}
	logger.Info("digest_sent", "digest_id", outcome.DigestID, "count", outcome.JobCount)
	return nil
}

// previewDigest renders the would-be digest body to the terminal
// without sending mail or marking any job emailed, so an operator can
// sanity-check formatting before wiring up real SMTP credentials.
func previewDigest(ctx context.Context, s *store.Store, limit int) error {
	if limit <= 0 {
		limit = digest.DefaultLimit
	}
	details, err := s.JobsReadyForEmail(ctx, inference.MinYearsThreshold-1, limit)
	if err != nil {
		return fmt.Errorf("list ready jobs: %w", err)
	}
	if len(details) == 0 {
		fmt.Println("no jobs ready for digest")
		return nil
	}

	jobs := make([]digest.Job, len(details))
	for i, d := range details {
		jobs[i] = digest.FromDetail(d)
	}

	md := digest.FormatMarkdown(jobs)
	rendered, err := glamour.Render(md, "dark")
	if err != nil {
		fmt.Println(md)
		return nil
	}
	fmt.Print(rendered)
	return nil
}
