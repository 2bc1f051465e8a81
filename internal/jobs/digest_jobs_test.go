package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketdesk-backoffice/internal/config"
	"ticketdesk-backoffice/internal/domain"
	"ticketdesk-backoffice/internal/notify"
	"ticketdesk-backoffice/internal/repository/memory"
)

type recordingSender struct {
	reqs []notify.SendRequest
	fail map[string]bool
}

func (s *recordingSender) Send(ctx context.Context, req notify.SendRequest) notify.SendResult {
	s.reqs = append(s.reqs, req)
	if s.fail[req.To] {
		return notify.SendResult{Success: false, Message: "rejected"}
	}
	return notify.SendResult{Success: true}
}

func testConfig(recipients ...string) *config.Config {
	cfg := &config.Config{}
	cfg.Site.Name = "Gigs"
	cfg.Site.PublicBaseURL = "https://gigs.example.com"
	cfg.Site.LoginPath = "/login"
	cfg.Digest.Recipients = recipients
	return cfg
}

func TestSendPendingDigest(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	now := time.Now().UTC()
	for i, status := range []domain.RegistrationStatus{domain.RegistrationStatusPending, domain.RegistrationStatusPending, domain.RegistrationStatusApproved} {
		require.NoError(t, store.Registrations().Create(ctx, &domain.Registration{
			Email:     "fan@example.com",
			FullName:  "Fan",
			Status:    status,
			CreatedAt: now.Add(-time.Duration(i+1) * time.Hour),
		}))
	}

	sender := &recordingSender{fail: map[string]bool{"broken@example.com": true}}
	jr := NewJobRunner(store.Registrations(), notify.MustRenderer(), sender, testConfig("ops@example.com", "broken@example.com"))

	sent, err := jr.sendPendingDigest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, sender.reqs, 2)

	req := sender.reqs[0]
	assert.Equal(t, "ops@example.com", req.To)
	assert.Equal(t, domain.TemplateGeneric, req.TemplateKind)
	assert.Equal(t, "2 registrations awaiting review", req.Subject)
	assert.Empty(t, req.RegistrationID)
	assert.Contains(t, req.HTML, "3 new, 1 approved, 0 rejected, 2 still pending")
	assert.Contains(t, req.HTML, "Fan &lt;fan@example.com&gt;")
}

func TestSendPendingDigest_NoRecipients(t *testing.T) {
	sender := &recordingSender{}
	jr := NewJobRunner(memory.NewStore().Registrations(), notify.MustRenderer(), sender, testConfig())

	jr.SendPendingDigest()
	assert.Empty(t, sender.reqs)
}

func TestDigestBody(t *testing.T) {
	created := time.Date(2024, 2, 3, 9, 30, 0, 0, time.UTC)
	body := digestBody([]domain.Registration{{FullName: "A", Email: "a@example.com", CreatedAt: created}}, 3, domain.RegistrationStats{Total: 1, Pending: 1})

	assert.Contains(t, body, "A <a@example.com>, submitted Feb 3 09:30 UTC")
	assert.Contains(t, body, "...and 2 more.")

	assert.Contains(t, digestBody(nil, 0, domain.RegistrationStats{}), "no registrations awaiting review")
}
