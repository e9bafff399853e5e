package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

type Config struct {
	Host     string
	Port     int
	Email    string
	Password string
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer sends owner notifications through an SMTP relay.
type SMTPMailer struct {
	from   string
	dialer dialer
}

func NewSMTPMailer(cfg Config) *SMTPMailer {
	return &SMTPMailer{
		from:   cfg.Email,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Email, cfg.Password),
	}
}

func (m *SMTPMailer) SendListingCreatedEmail(toEmail, listingName string) error {
	msg := newListingCreatedMessage(m.from, toEmail, listingName)
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send listing email to %s: %w", toEmail, err)
	}
	return nil
}

func newListingCreatedMessage(from, to, listingName string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Your car is listed")
	msg.SetBody("text/plain", "Your listing '"+listingName+"' has been published successfully.")
	return msg
}

// NopMailer is used when SMTP is not configured.
type NopMailer struct{}

func (NopMailer) SendListingCreatedEmail(string, string) error { return nil }
