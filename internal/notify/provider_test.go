package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"ticketdesk-backoffice/internal/config"
)

func TestSendGridProvider_Send(t *testing.T) {
	var gotAuth, gotPath string
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &payload)
		w.Header().Set("X-Message-Id", "sg-42")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	p := NewSendGridProvider("SG.key").WithHost(srv.URL)
	assert.True(t, p.Configured())
	assert.Equal(t, "sendgrid", p.Name())

	id, err := p.Send(context.Background(), Message{
		FromAddress: "noreply@gigs.example.com",
		FromName:    "Gigs",
		To:          "a@example.com",
		Subject:     "Hello",
		HTML:        "<p>hi</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, "sg-42", id)
	assert.Equal(t, "Bearer SG.key", gotAuth)
	assert.Equal(t, "/v3/mail/send", gotPath)
	assert.Equal(t, "Hello", payload["subject"])
}

func TestSendGridProvider_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer srv.Close()

	_, err := NewSendGridProvider("SG.bad").WithHost(srv.URL).Send(context.Background(), Message{To: "a@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestSendGridProvider_NotConfigured(t *testing.T) {
	assert.False(t, NewSendGridProvider("").Configured())
}

func TestSMTPProvider_Send(t *testing.T) {
	var from string
	var to []string
	var raw strings.Builder

	p := NewSMTPProvider("mail.example.com", 587, "user", "pass")
	p.sender = gomail.SendFunc(func(f string, rcpt []string, msg io.WriterTo) error {
		from, to = f, rcpt
		_, err := msg.WriteTo(&raw)
		return err
	})

	id, err := p.Send(context.Background(), Message{
		FromAddress: "noreply@gigs.example.com",
		FromName:    "Gigs",
		To:          "a@example.com",
		Subject:     "Hello",
		HTML:        "<p>hi</p>",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "<"))
	assert.True(t, strings.HasSuffix(id, "@mail.example.com>"))
	assert.Equal(t, "noreply@gigs.example.com", from)
	assert.Equal(t, []string{"a@example.com"}, to)
	assert.Contains(t, raw.String(), "Message-ID: "+id)
	assert.Contains(t, raw.String(), "Subject: Hello")
}

func TestSMTPProvider_SendError(t *testing.T) {
	p := NewSMTPProvider("mail.example.com", 25, "", "")
	p.sender = gomail.SendFunc(func(string, []string, io.WriterTo) error { return errors.New("550 rejected") })

	_, err := p.Send(context.Background(), Message{FromAddress: "x@example.com", To: "a@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "550 rejected")
}

func TestSMTPProvider_Configured(t *testing.T) {
	assert.False(t, NewSMTPProvider("", 587, "", "").Configured())
	assert.False(t, NewSMTPProvider("mail.example.com", 0, "", "").Configured())
	assert.True(t, NewSMTPProvider("mail.example.com", 25, "", "").Configured())
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(config.EmailConfig{Provider: "sendgrid", SendGridAPIKey: "SG.x"})
	require.NoError(t, err)
	assert.Equal(t, "sendgrid", p.Name())
	assert.True(t, p.Configured())

	p, err = NewProvider(config.EmailConfig{Provider: "smtp", SMTP: config.SMTPConfig{Host: "mail.example.com", Port: 25}})
	require.NoError(t, err)
	assert.Equal(t, "smtp", p.Name())

	p, err = NewProvider(config.EmailConfig{})
	require.NoError(t, err)
	assert.False(t, p.Configured())

	_, err = NewProvider(config.EmailConfig{Provider: "carrier-pigeon"})
	assert.Error(t, err)
}
