package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/spec-kit/helpdesk/internal/config"
)

// ErrDisabled is returned when the email channel is switched off.
var ErrDisabled = errors.New("email notifications disabled")

const sendTimeout = 15 * time.Second

// SMTPSender delivers plain-text email through an SMTP relay.
type SMTPSender struct {
	cfg config.NotificationConfig
}

// NewSMTPSender builds a sender from notification config.
func NewSMTPSender(cfg config.NotificationConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send dials the relay and sends one message, honouring ctx.
func (s *SMTPSender) Send(ctx context.Context, to []string, subject, body string) error {
	if !s.cfg.EmailEnabled {
		return ErrDisabled
	}
	msg, err := buildMessage(s.cfg.EmailFrom, to, subject, body)
	if err != nil {
		return err
	}

	d := gomail.NewDialer(s.cfg.SMTPHost, s.cfg.SMTPPort, s.cfg.SMTPUsername, s.cfg.SMTPPassword)
	done := make(chan error, 1)
	go func() {
		done <- d.DialAndSend(msg)
	}()

	wait := sendTimeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left > 0 && left < wait {
			wait = left
		}
	}

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return context.DeadlineExceeded
	}
}

func buildMessage(from string, to []string, subject, body string) (*gomail.Message, error) {
	from = strings.TrimSpace(from)
	if from == "" {
		return nil, errors.New("email: from is required")
	}
	recipients := make([]string, 0, len(to))
	for _, addr := range to {
		if addr = strings.TrimSpace(addr); addr != "" {
			recipients = append(recipients, addr)
		}
	}
	if len(recipients) == 0 {
		return nil, errors.New("email: at least one recipient is required")
	}
	if strings.TrimSpace(subject) == "" {
		return nil, errors.New("email: subject is required")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", recipients...)
	msg.SetHeader("Subject", strings.TrimSpace(subject))
	msg.SetBody("text/plain", body)
	return msg, nil
}
