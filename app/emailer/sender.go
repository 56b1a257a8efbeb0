// Package emailer delivers the daily brief by SMTP, with a dry-run mode that
// prints a framed preview to stdout instead of transmitting.
package emailer

import (
	"fmt"
	"io"
	"log/slog"
	"net/smtp"
	"os"
	"strings"
)

const previewSeparatorWidth = 72

// Config holds SMTP delivery settings.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
	To       []string
}

// Sender delivers briefings by email.
type Sender struct {
	config Config

	// sendMail is swapped in tests; defaults to smtp.SendMail.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	preview  io.Writer
}

// NewSender creates a new sender. Host, from, and at least one recipient are
// required unless every send is a dry run.
func NewSender(config Config) *Sender {
	return &Sender{
		config:   config,
		sendMail: smtp.SendMail,
		preview:  os.Stdout,
	}
}

// SendBrief sends (or previews) the daily brief. In dry-run mode the message
// is printed to stdout and never transmitted. Transmission errors propagate
// to the caller.
func (s *Sender) SendBrief(subject, body string, dryRun bool) error {
	if dryRun {
		slog.Info("Dry run enabled, printing email instead of sending")
		s.printPreview(subject, body)
		return nil
	}

	if s.config.Host == "" || s.config.From == "" || len(s.config.To) == 0 {
		return fmt.Errorf("SMTP delivery requires host, sender, and at least one recipient")
	}

	addr := s.config.Host + ":" + s.config.Port
	var auth smtp.Auth
	if s.config.User != "" {
		auth = smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	}

	slog.Info("Sending email", "to", strings.Join(s.config.To, ", "), "addr", addr)

	if err := s.sendMail(addr, auth, s.config.From, s.config.To, s.buildMessage(subject, body)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	slog.Info("Email sent successfully")
	return nil
}

// buildMessage assembles an RFC 5322 plaintext message.
func (s *Sender) buildMessage(subject, body string) []byte {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.config.From)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(s.config.To, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return []byte(msg.String())
}

func (s *Sender) printPreview(subject, body string) {
	separator := strings.Repeat("=", previewSeparatorWidth)
	fmt.Fprintln(s.preview, separator)
	fmt.Fprintf(s.preview, "From: %s\n", s.config.From)
	fmt.Fprintf(s.preview, "To:   %s\n", strings.Join(s.config.To, ", "))
	fmt.Fprintf(s.preview, "Subject: %s\n", subject)
	fmt.Fprintln(s.preview, separator)
	fmt.Fprintln(s.preview, body)
	fmt.Fprintln(s.preview, separator)
}
