package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"finance-brief/internal/api"
	"finance-brief/internal/scheduler"
	"finance-brief/internal/service"
	"finance-brief/internal/storage"
)

// Run executes the long-running daemon: periodic alert checks plus the daily brief.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	s, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	if s.store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; trigger audit disabled")
	}

	notifier, closeNotifier, err := a.newNotifier()
	if err != nil {
		return err
	}
	defer closeNotifier()
	if notifier == nil {
		a.Logger.Warn().Msg("no delivery channel enabled; triggers and briefs are only logged")
	}

	sched, err := scheduler.New(scheduler.Options{
		Interval:     a.Config.Schedule.AlertInterval,
		Align:        a.Config.Schedule.AlignToBucket,
		StartupDelay: a.Config.Schedule.StartupDelay,
	}, a.Logger)
	if err != nil {
		return err
	}

	var locker storage.AdvisoryLocker
	if s.store != nil {
		locker = s.store
	}

	svc := service.New(sched, s.engine, s.brief, notifier, locker, service.Options{
		BriefAt:  a.Config.Schedule.BriefAt,
		Location: s.loc,
		LockKey:  a.Config.Schedule.LockKey,
	}, a.Logger)

	a.Logger.Info().Msg("starting daemon")
	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("daemon terminated with error")
		return err
	}
	a.Logger.Info().Msg("daemon stopped")
	return nil
}

// Serve exposes the HTTP API until interrupted.
func (a *App) Serve(ctx context.Context, listen string) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	s, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if listen == "" {
		listen = a.Config.API.Listen
	}
	return api.New(s.alerts, s.engine, s.brief, a.Logger).Serve(ctx, listen)
}
