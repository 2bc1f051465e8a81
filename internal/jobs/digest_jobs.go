package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ticketdesk-backoffice/internal/domain"
	"ticketdesk-backoffice/internal/logger"
	"ticketdesk-backoffice/internal/notify"
)

// digestListLimit caps how many pending registrations the digest names.
const digestListLimit = 20

// SendPendingDigest emails each digest recipient a summary of registrations awaiting review.
func (jr *JobRunner) SendPendingDigest() {
	jr.runWithRecovery("SendPendingDigest", func() {
		sent, err := jr.sendPendingDigest(context.Background())
		if err != nil {
			logger.Error("Failed to send pending digest", "error", err)
			return
		}
		logger.Info("Pending digest sent", "recipients", sent)
	})
}

func (jr *JobRunner) sendPendingDigest(ctx context.Context) (int, error) {
	recipients := jr.config.Digest.Recipients
	if len(recipients) == 0 {
		logger.Debug("No digest recipients configured, skipping")
		return 0, nil
	}

	pending, total, err := jr.registrations.ListFiltered(ctx, domain.RegistrationFilter{
		Status:    domain.RegistrationStatusPending,
		SortField: domain.SortByCreatedAt,
		PageSize:  digestListLimit,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list pending registrations: %w", err)
	}

	since := jr.now().Add(-24 * time.Hour)
	recent, err := jr.registrations.CountByStatus(ctx, &since)
	if err != nil {
		return 0, fmt.Errorf("failed to count recent registrations: %w", err)
	}

	rendered, err := jr.renderer.Render(notify.NotificationData{
		Kind:      domain.TemplateGeneric,
		SiteName:  jr.config.Site.Name,
		SiteURL:   jr.config.Site.PublicBaseURL,
		ActionURL: jr.config.LoginURL(),
		Heading:   fmt.Sprintf("%d registrations awaiting review", total),
		Body:      digestBody(pending, total, recent),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to render digest: %w", err)
	}

	sent := 0
	for _, to := range recipients {
		if to == "" {
			continue
		}
		res := jr.sender.Send(ctx, notify.SendRequest{
			To:           to,
			Subject:      rendered.Subject,
			HTML:         rendered.HTML,
			TemplateKind: domain.TemplateGeneric,
		})
		if !res.Success {
			logger.Warn("Digest email not sent", "to", to, "error", res.Message)
			continue
		}
		sent++
	}
	return sent, nil
}

func digestBody(pending []domain.Registration, total int, recent domain.RegistrationStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "In the last 24 hours: %d new, %d approved, %d rejected, %d still pending.",
		recent.Total, recent.Approved, recent.Rejected, recent.Pending)
	if total == 0 {
		b.WriteString("\n\nThere are no registrations awaiting review.")
		return b.String()
	}
	b.WriteString("\n\nOldest requests waiting:")
	for _, r := range pending {
		fmt.Fprintf(&b, "\n\n%s <%s>, submitted %s", r.FullName, r.Email, r.CreatedAt.UTC().Format("Jan 2 15:04 MST"))
	}
	if total > len(pending) {
		fmt.Fprintf(&b, "\n\n...and %d more.", total-len(pending))
	}
	return b.String()
}
