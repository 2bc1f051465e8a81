package notify

import (
	"context"
	"fmt"

	"github.com/segmentio/ksuid"
	"gopkg.in/gomail.v2"
)

type SMTPProvider struct {
	host     string
	port     int
	username string
	password string

	// sender replaces the network dialer in tests.
	sender gomail.Sender
}

func NewSMTPProvider(host string, port int, username, password string) *SMTPProvider {
	return &SMTPProvider{
		host:     host,
		port:     port,
		username: username,
		password: password,
	}
}

func (p *SMTPProvider) Name() string { return "smtp" }

func (p *SMTPProvider) Configured() bool { return p.host != "" && p.port > 0 }

func (p *SMTPProvider) Send(ctx context.Context, msg Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	messageID := fmt.Sprintf("<%s@%s>", ksuid.New().String(), p.host)

	m := gomail.NewMessage()
	m.SetAddressHeader("From", msg.FromAddress, msg.FromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", messageID)
	m.SetBody("text/html", msg.HTML)

	var err error
	if p.sender != nil {
		err = gomail.Send(p.sender, m)
	} else {
		err = gomail.NewDialer(p.host, p.port, p.username, p.password).DialAndSend(m)
	}
	if err != nil {
		return "", fmt.Errorf("failed to send email via gomail: %w", err)
	}
	return messageID, nil
}
