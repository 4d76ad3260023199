package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"finance-brief/internal/alerting"
	"finance-brief/internal/alerts"
	"finance-brief/internal/report"
	"finance-brief/internal/scheduler"
)

type stubEvaluator struct {
	triggered []alerts.Alert
	err       error
	calls     int
}

func (s *stubEvaluator) EvaluateAll(context.Context) ([]alerts.Alert, error) {
	s.calls++
	return s.triggered, s.err
}

type stubBrief struct{ text string }

func (b stubBrief) Build(context.Context) (string, []report.SectionResult) {
	return b.text, []report.SectionResult{
		{Name: "Alerts", Status: report.StatusEmpty},
		{Name: "News", Status: report.StatusTimedOut},
	}
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []alerting.Notification
	err   error
}

func (r *recordingNotifier) Notify(_ context.Context, n alerting.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
	return r.err
}

type stubLocker struct{ acquired bool }

func (l stubLocker) TryAdvisoryLock(context.Context, int64) (func(), bool, error) {
	return func() {}, l.acquired, nil
}

func triggeredPrice() alerts.Alert {
	price := decimal.RequireFromString("101")
	target := decimal.RequireFromString("100")
	return alerts.Alert{ID: 1, Kind: alerts.KindPrice, Symbol: "BHP.AX", Condition: alerts.Above, Target: &target, TriggerPrice: &price, Triggered: true}
}

func TestCheckAlertsNotifiesTriggered(t *testing.T) {
	eval := &stubEvaluator{triggered: []alerts.Alert{triggeredPrice()}}
	notes := &recordingNotifier{}
	svc := New(nil, eval, nil, notes, nil, Options{}, zerolog.Nop())

	if err := svc.CheckAlerts(context.Background(), time.Now()); err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(notes.notes) != 1 {
		t.Fatalf("expected one notification, got %d", len(notes.notes))
	}
	n := notes.notes[0]
	if n.Kind != alerting.KindAlert || !strings.Contains(n.Body, "BHP.AX hit 101.00") {
		t.Fatalf("unexpected notification %+v", n)
	}
}

func TestCheckAlertsQuietWhenNothingFires(t *testing.T) {
	notes := &recordingNotifier{}
	svc := New(nil, &stubEvaluator{}, nil, notes, nil, Options{}, zerolog.Nop())

	if err := svc.CheckAlerts(context.Background(), time.Now()); err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(notes.notes) != 0 {
		t.Fatal("nothing triggered, nothing should be sent")
	}
}

func TestCheckAlertsSaveErrorStillNotifies(t *testing.T) {
	saveErr := errors.New("disk full")
	eval := &stubEvaluator{triggered: []alerts.Alert{triggeredPrice()}, err: saveErr}
	notes := &recordingNotifier{}
	svc := New(nil, eval, nil, notes, nil, Options{}, zerolog.Nop())

	err := svc.CheckAlerts(context.Background(), time.Now())
	if !errors.Is(err, saveErr) {
		t.Fatalf("save error should surface, got %v", err)
	}
	if len(notes.notes) != 1 {
		t.Fatal("triggers must still be delivered when the save fails")
	}
}

func TestCheckAlertsSkipsWithoutLock(t *testing.T) {
	eval := &stubEvaluator{}
	svc := New(nil, eval, nil, nil, stubLocker{acquired: false}, Options{LockKey: 7}, zerolog.Nop())

	if err := svc.CheckAlerts(context.Background(), time.Now()); err != nil {
		t.Fatalf("check: %v", err)
	}
	if eval.calls != 0 {
		t.Fatal("evaluation must be skipped while another replica holds the lock")
	}
}

func TestSendBrief(t *testing.T) {
	notes := &recordingNotifier{}
	svc := New(nil, nil, stubBrief{text: "Morning Finance Brief"}, notes, nil, Options{}, zerolog.Nop())

	if err := svc.SendBrief(context.Background()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(notes.notes) != 1 || notes.notes[0].Kind != alerting.KindBrief || notes.notes[0].Body != "Morning Finance Brief" {
		t.Fatalf("unexpected notifications %+v", notes.notes)
	}

	notes.err = errors.New("telegram down")
	if err := svc.SendBrief(context.Background()); err == nil {
		t.Fatal("delivery failure should be reported")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	sched, err := scheduler.New(scheduler.Options{Interval: 10 * time.Millisecond, Immediate: true}, zerolog.Nop())
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	eval := &stubEvaluator{}
	svc := New(sched, eval, stubBrief{}, nil, nil, Options{BriefAt: "07:00", Location: time.UTC}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("run: %v", err)
	}
	if eval.calls == 0 {
		t.Fatal("alert checks should have run")
	}
}

func TestRunRejectsBadBriefTime(t *testing.T) {
	sched, _ := scheduler.New(scheduler.Options{Interval: time.Minute}, zerolog.Nop())
	svc := New(sched, &stubEvaluator{}, stubBrief{}, nil, nil, Options{BriefAt: "7am"}, zerolog.Nop())

	if err := svc.Run(context.Background()); err == nil {
		t.Fatal("unparseable brief time should fail at startup")
	}
}
