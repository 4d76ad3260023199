package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"finance-brief/internal/alerting"
	"finance-brief/internal/alerts"
	"finance-brief/internal/report"
	"finance-brief/internal/scheduler"
	"finance-brief/internal/storage"
)

// AlertEvaluator runs one evaluation pass over pending alerts.
type AlertEvaluator interface {
	EvaluateAll(ctx context.Context) ([]alerts.Alert, error)
}

// BriefBuilder produces the composed morning brief.
type BriefBuilder interface {
	Build(ctx context.Context) (string, []report.SectionResult)
}

// Options configure the daemon.
type Options struct {
	// BriefAt is the daily delivery time as "15:04"; empty disables the job.
	BriefAt  string
	Location *time.Location
	// LockKey guards alert checks across replicas when a locker is present.
	LockKey int64
	Now     func() time.Time
}

// Service runs scheduled alert checks and the daily brief.
type Service struct {
	scheduler *scheduler.Scheduler
	alerts    AlertEvaluator
	brief     BriefBuilder
	notifier  alerting.Notifier
	locker    storage.AdvisoryLocker
	opts      Options
	logger    zerolog.Logger
}

// New constructs the daemon. locker may be nil.
func New(sched *scheduler.Scheduler, evaluator AlertEvaluator, brief BriefBuilder, notifier alerting.Notifier, locker storage.AdvisoryLocker, opts Options, logger zerolog.Logger) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if notifier == nil {
		notifier = alerting.Nop{}
	}
	return &Service{
		scheduler: sched,
		alerts:    evaluator,
		brief:     brief,
		notifier:  notifier,
		locker:    locker,
		opts:      opts,
		logger:    logger.With().Str("component", "service").Logger(),
	}
}

// Run starts the daily brief job and blocks in the alert check loop until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return errors.New("scheduler not configured")
	}

	cron, err := s.startBriefJob(ctx)
	if err != nil {
		return err
	}
	if cron != nil {
		defer cron.Stop()
	}

	err = s.scheduler.Run(ctx, s.CheckAlerts)
	if errors.Is(err, context.Canceled) {
		s.logger.Info().Msg("daemon stopped")
		return nil
	}
	return err
}

func (s *Service) startBriefJob(ctx context.Context) (*gocron.Scheduler, error) {
	if s.opts.BriefAt == "" || s.brief == nil {
		return nil, nil
	}

	cron := gocron.NewScheduler(s.opts.Location)
	cron.SingletonModeAll()
	if _, err := cron.Every(1).Day().At(s.opts.BriefAt).Do(func() {
		if err := s.SendBrief(ctx); err != nil {
			s.logger.Error().Err(err).Msg("scheduled brief failed")
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule daily brief at %s: %w", s.opts.BriefAt, err)
	}
	cron.StartAsync()

	s.logger.Info().Str("at", s.opts.BriefAt).Str("tz", s.opts.Location.String()).Msg("daily brief scheduled")
	return cron, nil
}

// CheckAlerts 执行一次告警检查，并推送新触发的告警。
func (s *Service) CheckAlerts(ctx context.Context, at time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("at", at).Msg("skip alert check because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	triggered, saveErr := s.alerts.EvaluateAll(ctx)
	if saveErr != nil {
		s.logger.Error().Err(saveErr).Msg("triggered alerts could not be saved")
	}
	if len(triggered) == 0 {
		s.logger.Debug().Time("at", at).Msg("no alerts triggered")
		return saveErr
	}

	note := alerting.Notification{
		Kind:    alerting.KindAlert,
		Subject: fmt.Sprintf("%d alert(s) triggered", len(triggered)),
		Body:    alerts.FormatTriggered(triggered),
		At:      s.opts.Now().UTC(),
	}
	if err := s.notifier.Notify(ctx, note); err != nil {
		return errors.Join(saveErr, fmt.Errorf("notify triggered alerts: %w", err))
	}
	s.logger.Info().Int("triggered", len(triggered)).Msg("alert notification sent")
	return saveErr
}

// SendBrief builds the brief and delivers it.
func (s *Service) SendBrief(ctx context.Context) error {
	if s.brief == nil {
		return errors.New("brief builder not configured")
	}
	text, results := s.brief.Build(ctx)

	failed := 0
	for _, r := range results {
		if r.Status == report.StatusTimedOut || r.Status == report.StatusFailed {
			failed++
		}
	}

	note := alerting.Notification{Kind: alerting.KindBrief, Body: text, At: s.opts.Now().UTC()}
	if err := s.notifier.Notify(ctx, note); err != nil {
		return fmt.Errorf("deliver brief: %w", err)
	}
	s.logger.Info().Int("sections", len(results)).Int("degraded", failed).Msg("brief delivered")
	return nil
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.opts.LockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.opts.LockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
