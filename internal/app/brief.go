package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finance-brief/internal/alerting"
	"finance-brief/internal/report"
)

// BriefOptions configure the brief command.
type BriefOptions struct {
	Send bool
}

// Brief builds the morning brief, prints it, and optionally delivers it.
func (a *App) Brief(ctx context.Context, opts BriefOptions) error {
	s, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	text, results := s.brief.Build(ctx)
	a.println(text)

	for _, r := range results {
		if r.Status == report.StatusTimedOut || r.Status == report.StatusFailed {
			a.Logger.Warn().Str("section", r.Name).Str("status", string(r.Status)).Err(r.Err).Msg("section degraded")
		}
	}

	if !opts.Send {
		return nil
	}
	notifier, closeNotifier, err := a.newNotifier()
	if err != nil {
		return err
	}
	defer closeNotifier()
	if notifier == nil {
		return errors.New("no delivery channel enabled; set delivery.telegram.enabled or delivery.kafka.enabled")
	}
	if err := notifier.Notify(ctx, alerting.Notification{Kind: alerting.KindBrief, Body: text, At: time.Now().UTC()}); err != nil {
		return fmt.Errorf("deliver brief: %w", err)
	}
	a.Logger.Info().Msg("brief delivered")
	return nil
}
