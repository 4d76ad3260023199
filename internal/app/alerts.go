package app

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"finance-brief/internal/alerts"
	"finance-brief/internal/format"
)

// AddAlertOptions carry the arguments of "alerts add".
type AddAlertOptions struct {
	Kind      alerts.Kind
	Symbol    string
	Condition string
	Target    *decimal.Decimal
	Keywords  []string
	Threshold *decimal.Decimal
}

// ListAlerts prints every alert with its status.
func (a *App) ListAlerts(ctx context.Context) error {
	s, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	a.println(alerts.FormatList(s.alerts.List()))
	return nil
}

// AddAlert validates and stores a new alert.
func (a *App) AddAlert(ctx context.Context, opts AddAlertOptions) error {
	s, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	alert, err := s.alerts.Add(alerts.Request{
		Kind:         opts.Kind,
		Symbol:       opts.Symbol,
		Condition:    opts.Condition,
		Target:       opts.Target,
		Keywords:     opts.Keywords,
		ThresholdPct: opts.Threshold,
	})
	if err != nil {
		return err
	}
	a.printf("Alert #%d created: %s\n", alert.ID, alerts.Describe(alert))
	return nil
}

// RemoveAlert deletes an alert by id.
func (a *App) RemoveAlert(ctx context.Context, id int) error {
	s, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.alerts.Remove(id); err != nil {
		return err
	}
	a.printf("Alert #%d removed\n", id)
	return nil
}

// CheckAlerts runs one evaluation pass and prints what fired.
func (a *App) CheckAlerts(ctx context.Context) error {
	s, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	triggered, saveErr := s.engine.EvaluateAll(ctx)
	if len(triggered) == 0 {
		a.println("No alerts triggered.")
	} else {
		a.println(alerts.FormatTriggered(triggered))
	}
	if saveErr != nil {
		a.Logger.Error().Err(saveErr).Msg("triggered alerts could not be saved")
	}
	return nil
}

// AlertHistory prints recent triggers from the audit trail.
func (a *App) AlertHistory(ctx context.Context, limit int) error {
	s, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if s.store == nil {
		return fmt.Errorf("database.dsn not configured; trigger history is unavailable")
	}
	records, err := s.store.ListRecentTriggers(ctx, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		a.println("no triggers recorded")
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Triggered\tAlert\tType\tSymbol\tPrice\tChange\tHeadlines")
	for _, rec := range records {
		fmt.Fprintf(writer, "%s\t#%d\t%s\t%s\t%s\t%s\t%d\n",
			rec.TriggeredAt.In(s.loc).Format(time.DateTime),
			rec.AlertID,
			rec.Kind,
			orDash(rec.Symbol),
			format.Price(rec.TriggerPrice, format.PricePlaces(rec.TriggerPrice)),
			format.Change(rec.TriggerChangePct),
			len(rec.Headlines),
		)
	}
	return writer.Flush()
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
