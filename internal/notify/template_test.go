package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketdesk-backoffice/internal/domain"
)

func TestRender_Approval(t *testing.T) {
	r := MustRenderer()

	out, err := r.Render(NotificationData{
		Kind:          domain.TemplateApproval,
		RecipientName: "Ada Lovelace",
		SiteName:      "Gigs",
		SiteURL:       "https://gigs.example.com/",
		ActionURL:     "https://gigs.example.com/login",
		RequestedAt:   time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, "Your Gigs access request has been approved", out.Subject)
	assert.Contains(t, out.HTML, "<!DOCTYPE html>")
	assert.Contains(t, out.HTML, "Hi Ada,")
	assert.Contains(t, out.HTML, "March 9, 2024")
	assert.Contains(t, out.HTML, `href="https://gigs.example.com/login"`)
	assert.Contains(t, out.HTML, PlaceholderTrackingPixel)
	assert.Contains(t, out.HTML, "https://gigs.example.com/unsubscribe?email="+PlaceholderRecipientEmail)
}

func TestRender_RejectionWithReason(t *testing.T) {
	out, err := MustRenderer().Render(NotificationData{
		Kind:   domain.TemplateRejection,
		Reason: "Incomplete <details>",
	})
	require.NoError(t, err)

	assert.Equal(t, "Update on your TicketDesk access request", out.Subject)
	assert.Contains(t, out.HTML, "Hello there,")
	assert.Contains(t, out.HTML, "Reason: Incomplete &lt;details&gt;")
}

func TestRender_UnknownKindFallsBackToGeneric(t *testing.T) {
	out, err := MustRenderer().Render(NotificationData{
		Kind:     domain.TemplateKind("birthday"),
		SiteName: "Gigs",
		Heading:  "Scheduled maintenance",
		Body:     "First paragraph.\n\nSecond paragraph.",
	})
	require.NoError(t, err)

	assert.Equal(t, "Scheduled maintenance", out.Subject)
	assert.Contains(t, out.HTML, "<p>First paragraph.</p>")
	assert.Contains(t, out.HTML, "<p>Second paragraph.</p>")
}

func TestRender_EveryKindProducesSubject(t *testing.T) {
	r := MustRenderer()
	for _, kind := range []domain.TemplateKind{domain.TemplateApproval, domain.TemplateRejection, domain.TemplateWelcome, domain.TemplateGeneric} {
		out, err := r.Render(NotificationData{Kind: kind})
		require.NoError(t, err, kind)
		assert.NotEmpty(t, out.Subject, kind)
		assert.True(t, strings.HasSuffix(strings.TrimSpace(out.HTML), "</html>"), kind)
	}
}

func TestGreeting(t *testing.T) {
	assert.Equal(t, "Hello there,", greeting("  "))
	assert.Equal(t, "Hi Grace,", greeting("Grace Hopper"))
	assert.Equal(t, "Hi Linus,", greeting("Linus"))
}
