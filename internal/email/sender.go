// Package email renders and delivers notification emails over SMTP.
package email

import (
	"context"
	"fmt"
	"net"
	"time"

	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"

	gomail "github.com/wneessen/go-mail"
)

// AnsweredCallData fills the answered-call notification template.
type AnsweredCallData struct {
	ContactName      string
	ContactPhone     string
	OrganizationName string
	Outcome          string
	Summary          string
	Answers          map[string]string
	RecordingURL     string
	CallTime         string
}

// Sender delivers notification emails.
type Sender interface {
	SendAnsweredCallEmail(ctx context.Context, toEmail string, data AnsweredCallData) error
}

// SMTPSender implements Sender using a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender from email configuration.
func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
	}
}

// SendAnsweredCallEmail notifies the organization's sales inbox that the
// assistant just finished an answered call.
func (s *SMTPSender) SendAnsweredCallEmail(ctx context.Context, toEmail string, data AnsweredCallData) error {
	subject := fmt.Sprintf(subjectAnsweredCallFmt, data.ContactName)
	if data.ContactName == "" {
		subject = subjectAnsweredCall
	}

	content, err := renderEmailTemplate("answered_call.html", answeredCallEmailData{
		baseEmailData: baseEmailData{
			Title:   "Answered call",
			Heading: "Your assistant just finished a call",
		},
		AnsweredCallData: data,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
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

// NoopSender drops emails. Used when email is disabled in config.
type NoopSender struct {
	log *logger.Logger
}

// NewNoopSender creates a NoopSender.
func NewNoopSender(log *logger.Logger) *NoopSender {
	return &NoopSender{log: log}
}

// SendAnsweredCallEmail logs and drops the notification.
func (s *NoopSender) SendAnsweredCallEmail(_ context.Context, toEmail string, _ AnsweredCallData) error {
	s.log.Info("email disabled, dropping answered-call notification", "to", toEmail)
	return nil
}
