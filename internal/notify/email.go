// Package notify sends draft-incident notifications after a pipeline run.
package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/railwatch/railwatch/internal/model"
	"github.com/railwatch/railwatch/internal/pipeline"
)

// Mailer emails a summary of newly appended drafts. It satisfies the
// pipeline's Notifier and is constructed only when the configuration
// carries both credentials and a recipient.
type Mailer struct {
	cfg  model.NotifyConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	log  zerolog.Logger
}

// NewMailer returns a configured Mailer, or nil when notification is
// disabled (missing host, password, or recipient).
func NewMailer(cfg model.NotifyConfig, log zerolog.Logger) *Mailer {
	if cfg.SMTPHost == "" || cfg.Password == "" || cfg.To == "" {
		return nil
	}
	return &Mailer{cfg: cfg, send: smtp.SendMail, log: log}
}

// NotifyRun emails the run summary. Called only when the run produced at
// least one new draft.
func (m *Mailer) NotifyRun(summary pipeline.RunSummary) error {
	subject := fmt.Sprintf("[railwatch] %d new draft incident(s)", len(summary.NewDrafts))
	body := RenderRunEmail(summary)

	msg := buildMessage(m.cfg.From, m.cfg.To, subject, body)
	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)
	auth := smtp.PlainAuth("", m.cfg.From, m.cfg.Password, m.cfg.SMTPHost)

	if err := m.send(addr, auth, m.cfg.From, []string{m.cfg.To}, msg); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	m.log.Info().Str("to", m.cfg.To).Int("drafts", len(summary.NewDrafts)).Msg("notification sent")
	return nil
}

// RenderRunEmail produces the plain-text body for a run summary.
func RenderRunEmail(summary pipeline.RunSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run started %s found %d new draft incident(s).\n\n",
		summary.Started.Format("2006-01-02 15:04 MST"), len(summary.NewDrafts))

	for i, d := range summary.NewDrafts {
		fmt.Fprintf(&b, "%d. %s", i+1, d.Date)
		if d.City != "" {
			fmt.Fprintf(&b, " - %s", d.City)
		}
		if d.Name != "" {
			fmt.Fprintf(&b, " - %s", d.Name)
		}
		if d.Official {
			b.WriteString(" (official record, no news coverage found)")
		}
		fmt.Fprintf(&b, "\n   source: %s\n", d.Source)
	}

	fmt.Fprintf(&b, "\nArticles found: %d, already known: %d, filtered: %d, merged into existing rows: %d\n",
		summary.ArticlesFound, summary.AlreadyKnown, summary.FilteredOut, summary.MergedSources)
	if summary.FRAMatched > 0 || summary.FRAUnmatched > 0 {
		fmt.Fprintf(&b, "Official records attached: %d, unmatched: %d\n",
			summary.FRAMatched, summary.FRAUnmatched)
	}
	b.WriteString("\nReview the drafts and confirm or remove them.\n")
	return b.String()
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}
