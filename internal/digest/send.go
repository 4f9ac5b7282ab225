package digest

import (
	"crypto/tls"
	"fmt"
	"mime"
	"mime/multipart"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SMTPConfig names the TLS SMTP (implicit TLS on connect, port 465 by
// convention) server to send digests through.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// sendFunc is the injectable transport seam, mirroring the pattern of
// wrapping the net/smtp send call behind a function value so tests can
// substitute a fake without a real TLS listener.
type sendFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// Sender sends a rendered digest as a multipart/alternative email,
// optionally attaching an audit CSV.
type Sender struct {
	cfg  SMTPConfig
	send sendFunc
}

// NewSender builds a Sender that connects to cfg's host over implicit
// TLS (SMTPS), the same transport the original job-alert tooling used
// (smtplib.SMTP_SSL).
func NewSender(cfg SMTPConfig) *Sender {
	return &Sender{cfg: cfg, send: tlsSendMail}
}

// tlsSendMail dials addr over TLS up front (rather than plaintext +
// STARTTLS) and speaks SMTP over that connection — what SMTP_SSL does
// on the Python side, and what a TLS port like 465 expects.
func tlsSendMail(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	host, _, err := splitHostPort(addr)
	if err != nil {
		return err
	}

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host})
	if err != nil {
		return fmt.Errorf("dial smtps %s: %w", addr, err)
	}
	defer conn.Close()

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(from); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp RCPT TO %s: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write body: %w", err)
	}
	return w.Close()
}

func splitHostPort(addr string) (string, string, error) {
	idx := strings.LastIndex(addr, ":")
	if idx < 0 {
		return "", "", fmt.Errorf("address %q missing port", addr)
	}
	return addr[:idx], addr[idx+1:], nil
}

// Send builds a multipart/alternative (plaintext + HTML) message,
// optionally attaching attachPath as a CSV, and sends it to every
// address in to.
func (s *Sender) Send(to []string, subject, bodyText, bodyHTML, attachPath string) error {
	msg, err := buildMessage(s.cfg.From, to, subject, bodyText, bodyHTML, attachPath)
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}

	var auth smtp.Auth
	if s.cfg.Username != "" && s.cfg.Password != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	if err := s.send(addr, auth, s.cfg.From, to, msg); err != nil {
		return fmt.Errorf("send digest: %w", err)
	}
	return nil
}

func buildMessage(from string, to []string, subject, bodyText, bodyHTML, attachPath string) ([]byte, error) {
	var b strings.Builder
	writer := multipart.NewWriter(&b)

	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", writer.Boundary())

	altBoundary := "alt-" + writer.Boundary()
	fmt.Fprintf(&b, "--%s\r\n", writer.Boundary())
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", altBoundary)

	fmt.Fprintf(&b, "--%s\r\n", altBoundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(bodyText)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", altBoundary)
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	b.WriteString(bodyHTML)
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "--%s--\r\n", altBoundary)

	if attachPath != "" {
		if data, err := os.ReadFile(attachPath); err == nil {
			fmt.Fprintf(&b, "--%s\r\n", writer.Boundary())
			fmt.Fprintf(&b, "Content-Type: text/csv; name=%q\r\n", filepath.Base(attachPath))
			fmt.Fprintf(&b, "Content-Disposition: attachment; filename=%q\r\n\r\n", filepath.Base(attachPath))
			b.Write(data)
			b.WriteString("\r\n")
		}
		// A missing or unreadable attachment is not fatal: the digest
		// still carries the important information in its body.
	}

	fmt.Fprintf(&b, "--%s--\r\n", writer.Boundary())
	return []byte(b.String()), nil
}
