package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/residency-scheduler/pkg/clients/queueclient"
	"github.com/jakechorley/residency-scheduler/pkg/core/metrics"
)

// Notifier announces schedule lifecycle events. Either channel may be nil.
// Events go to the queue for every change; emails are only sent on publication.
type Notifier struct {
	Events     EventPublisher
	Email      EmailClient
	Recipients []string
}

// notify sends the event through every configured channel.
// Failures are logged and never returned.
func (n *Notifier) notify(ctx context.Context, logger *zap.Logger, eventType queueclient.EventType, s metrics.Schedule, at time.Time) {
	if n == nil {
		return
	}

	event := queueclient.Event{
		Type:           eventType,
		ScheduleID:     s.ID,
		Horizon:        string(s.Horizon),
		PeriodKey:      s.PeriodKey,
		IsValid:        s.IsValid,
		HardViolations: s.Summary.HardViolations,
		SoftViolations: s.Summary.SoftViolations,
		CoverageRate:   s.Summary.CoverageRate,
		OccurredAt:     at,
	}

	if n.Events != nil {
		if err := n.Events.Publish(ctx, event); err != nil {
			logger.Warn("Failed to publish schedule event",
				zap.String("type", string(eventType)),
				zap.String("period", s.PeriodKey),
				zap.Error(err))
		} else {
			logger.Debug("Published schedule event", zap.String("type", string(eventType)), zap.String("period", s.PeriodKey))
		}
	}

	if n.Email == nil || eventType != queueclient.EventSchedulePublished {
		return
	}

	subject, body := publishedEmail(s)
	for _, to := range n.Recipients {
		if err := n.Email.SendEmail(ctx, to, subject, body); err != nil {
			logger.Warn("Failed to send publication email", zap.String("to", to), zap.Error(err))
			continue
		}
		logger.Debug("Sent publication email", zap.String("to", to))
	}
}

// publishedEmail renders the subject and body of a publication notice
func publishedEmail(s metrics.Schedule) (string, string) {
	subject := fmt.Sprintf("%s schedule %s published", titleCase(string(s.Horizon)), s.PeriodKey)

	var b strings.Builder
	fmt.Fprintf(&b, "The %s schedule for %s has been published.\n\n", s.Horizon, s.PeriodKey)
	fmt.Fprintf(&b, "Period: %s to %s\n", s.Period.Start.Format("Mon Jan 02 2006"), s.Period.End.Format("Mon Jan 02 2006"))
	fmt.Fprintf(&b, "Coverage: %.1f%% (%d of %d slots)\n", s.Summary.CoverageRate*100, s.Summary.FilledSlots, s.Summary.RequiredSlots)
	fmt.Fprintf(&b, "Violations: %d hard, %d soft\n", s.Summary.HardViolations, s.Summary.SoftViolations)
	return subject, b.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
