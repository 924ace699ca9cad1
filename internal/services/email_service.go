package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/textproto"

	"gopkg.in/gomail.v2"
)

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailNotifier delivers notifications over SMTP.
type EmailNotifier struct {
	sender mailSender
	from   string
}

func NewEmailNotifier(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail string) *EmailNotifier {
	dialer := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword)
	return &EmailNotifier{sender: dialer, from: fromEmail}
}

func (s *EmailNotifier) Notify(ctx context.Context, to, subject, bodyHTML string) (Outcome, error) {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", bodyHTML)

	// gomail has no context support; the send keeps running in the
	// background if ctx ends first.
	done := make(chan error, 1)
	go func() { done <- s.sender.DialAndSend(m) }()

	select {
	case <-ctx.Done():
		return OutcomeUnresponsive, fmt.Errorf("send email to %s: %w", to, ctx.Err())
	case err := <-done:
		if err != nil {
			return classifySMTPError(err), fmt.Errorf("send email to %s: %w", to, err)
		}
		return OutcomeAccepted, nil
	}
}

func classifySMTPError(err error) Outcome {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return OutcomeRejected
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return OutcomeUnresponsive
	}
	return OutcomeRejected
}
