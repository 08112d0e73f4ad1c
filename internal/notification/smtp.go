// Package notification delivers operational alerts to humans. Currently one
// channel: email to the compliance inbox via direct SMTP.
package notification

import (
	"context"
	"fmt"
	"net"
	"time"

	"buyerbot_backend/internal/config"
	"buyerbot_backend/internal/resilience"

	gomail "github.com/wneessen/go-mail"
)

// SMTPNotifier implements the resilience layer's ComplianceNotifier over a
// direct SMTP connection via go-mail.
type SMTPNotifier struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
	inbox     string
}

// NewSMTPNotifier creates a notifier from the email settings.
func NewSMTPNotifier(cfg *config.Config) *SMTPNotifier {
	return &SMTPNotifier{
		host:      cfg.SMTPHost,
		port:      cfg.SMTPPort,
		username:  cfg.SMTPUsername,
		password:  cfg.SMTPPassword,
		fromName:  cfg.EmailFromName,
		fromEmail: cfg.EmailFromAddress,
		inbox:     cfg.ComplianceInbox,
	}
}

// NotifyCompliance emails the compliance inbox about a detected violation.
func (s *SMTPNotifier) NotifyCompliance(ctx context.Context, ticket *resilience.Ticket, detail string) error {
	subject := fmt.Sprintf("[%s] Compliance violation: %s", ticket.Severity, ticket.Category)
	content, err := renderTemplate("compliance_alert.html", complianceAlertData{
		baseData: baseData{
			Title:   "Compliance violation detected",
			Heading: "Compliance violation detected",
		},
		TicketID:   ticket.ID.String(),
		ContactID:  ticket.SubjectID,
		Category:   ticket.Category,
		Severity:   ticket.Severity,
		Detail:     detail,
		DetectedAt: ticket.CreatedAt.Format(time.RFC3339),
		BotPaused:  ticket.Severity == resilience.SeverityCritical || ticket.Severity == resilience.SeverityHigh,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, s.inbox, subject, content)
}

func (s *SMTPNotifier) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// NoopNotifier is used when email delivery is disabled. Compliance tickets
// are still persisted and published; only the inbox alert is skipped.
type NoopNotifier struct{}

func (NoopNotifier) NotifyCompliance(context.Context, *resilience.Ticket, string) error {
	return nil
}
