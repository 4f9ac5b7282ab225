package appconfig

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/viper"
)

// Secrets holds the credentials the rest of appconfig deliberately
// keeps out of jobwatch.toml so it can be committed safely.
type Secrets struct {
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	From     string
}

// LoadSecrets reads a .env-style key=value file (state/secrets.env by
// convention — the Go analogue of the original tooling's
// python-dotenv-loaded secrets file) without overriding any variable
// already set in the real environment. A missing file yields zero-value
// Secrets rather than an error, since operators may supply credentials
// purely via the environment.
func LoadSecrets(path string) (Secrets, error) {
	var s Secrets

	if _, err := os.Stat(path); err == nil {
		sv := viper.New()
		sv.SetConfigFile(path)
		sv.SetConfigType("env")
		if err := sv.ReadInConfig(); err != nil {
			return s, fmt.Errorf("read secrets file %s: %w", path, err)
		}
		s.SMTPHost = sv.GetString("SMTP_HOST")
		s.SMTPPort = sv.GetInt("SMTP_PORT")
		s.SMTPUser = sv.GetString("SMTP_USER")
		s.SMTPPass = sv.GetString("SMTP_PASS")
		s.From = sv.GetString("EMAIL_FROM")
	}

	// Real environment variables win over the secrets file, matching
	// load_dotenv(override=False) semantics.
	if val := os.Getenv("SMTP_HOST"); val != "" {
		s.SMTPHost = val
	}
	if val := os.Getenv("SMTP_USER"); val != "" {
		s.SMTPUser = val
	}
	if val := os.Getenv("SMTP_PASS"); val != "" {
		s.SMTPPass = val
	}
	if val := os.Getenv("EMAIL_FROM"); val != "" {
		s.From = val
	}
	if val := os.Getenv("SMTP_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			s.SMTPPort = port
		}
	}
	if s.SMTPPort == 0 {
		s.SMTPPort = 465
	}
	return s, nil
}
