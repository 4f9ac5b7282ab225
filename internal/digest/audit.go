package digest

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// denverLocation is loaded once; if the platform's tzdata is missing
// it falls back to UTC rather than failing the whole digest run.
var denverLocation = loadDenver()

func loadDenver() *time.Location {
	loc, err := time.LoadLocation("America/Denver")
	if err != nil {
		return time.UTC
	}
	return loc
}

// DigestID derives a short, stable-looking identifier for one digest
// run from owner and the time it started, for correlating log lines
// with the audit CSV.
func DigestID(owner string, at time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", owner, at.Unix())))
	return hex.EncodeToString(sum[:])[:16]
}

var auditHeader = []string{"emailed_date", "emailed_time", "site", "url", "job_title", "min_years"}

// AppendAuditCSV appends one row per job to csvPath, writing a header
// first if the file is new or empty. It is called before the email is
// sent, so the attached CSV always reflects every job up to and
// including the digest currently being sent.
func AppendAuditCSV(csvPath string, jobs []Job, at time.Time) error {
	if err := os.MkdirAll(filepath.Dir(csvPath), 0o755); err != nil {
		return fmt.Errorf("create audit csv dir: %w", err)
	}

	info, statErr := os.Stat(csvPath)
	writeHeader := statErr != nil || info.Size() == 0

	f, err := os.OpenFile(csvPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(auditHeader); err != nil {
			return fmt.Errorf("write audit csv header: %w", err)
		}
	}

	mt := at.In(denverLocation)
	date := mt.Format("2006-01-02")
	clockTime := trimLeadingZero(mt.Format("03:04:05 PM"))

	for _, j := range jobs {
		row := []string{date, clockTime, j.Site, j.URL, j.Title, fmt.Sprintf("%d", j.MinYears)}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write audit csv row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// trimLeadingZero strips a leading zero from a 12-hour clock string
// ("03:04:05 PM" -> "3:04:05 PM"), matching the original digest's
// str.lstrip("0") formatting.
func trimLeadingZero(s string) string {
	if len(s) > 0 && s[0] == '0' {
		return s[1:]
	}
	return s
}
