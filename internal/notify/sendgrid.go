package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendGridHost = "https://api.sendgrid.com"

type SendGridProvider struct {
	apiKey string
	host   string
}

func NewSendGridProvider(apiKey string) *SendGridProvider {
	return &SendGridProvider{apiKey: apiKey, host: sendGridHost}
}

// WithHost points the provider at another API host, e.g. a local mock.
func (p *SendGridProvider) WithHost(host string) *SendGridProvider {
	p.host = strings.TrimRight(host, "/")
	return p
}

func (p *SendGridProvider) Name() string { return "sendgrid" }

func (p *SendGridProvider) Configured() bool { return p.apiKey != "" }

func (p *SendGridProvider) Send(ctx context.Context, msg Message) (string, error) {
	from := mail.NewEmail(msg.FromName, msg.FromAddress)
	to := mail.NewEmail("", msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, to, "", msg.HTML)

	request := sendgrid.GetRequest(p.apiKey, "/v3/mail/send", p.host)
	request.Method = "POST"
	request.Body = mail.GetRequestBody(message)

	response, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return "", fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}

	for k, v := range response.Headers {
		if strings.EqualFold(k, "X-Message-Id") && len(v) > 0 {
			return v[0], nil
		}
	}
	return "", nil
}
