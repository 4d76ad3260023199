// Package report runs independent report sections under per-section
// timeouts and assembles whatever completed into one bounded document.
package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// ErrSectionTimeout marks a section abandoned after its time budget.
var ErrSectionTimeout = errors.New("timed out")

// Status classifies a section outcome.
type Status string

const (
	StatusOK       Status = "ok"
	StatusTimedOut Status = "timed_out"
	StatusFailed   Status = "failed"
	StatusEmpty    Status = "empty"
)

// Builder produces a section body. It should return promptly once ctx is done.
type Builder func(ctx context.Context) (string, error)

// Section is one named unit of a report.
type Section struct {
	Name  string
	Build Builder
}

// SectionResult is the outcome of one section.
type SectionResult struct {
	Name    string
	Status  Status
	Content string
	Err     error
	Elapsed time.Duration
}

// Body returns the text the section contributes to a report: its content,
// a placeholder for failures and timeouts, or "" when empty.
func (r SectionResult) Body() string {
	switch r.Status {
	case StatusOK:
		return r.Content
	case StatusTimedOut, StatusFailed:
		return r.Placeholder()
	default:
		return ""
	}
}

// Placeholder renders the diagnostic shown in place of a failed section.
func (r SectionResult) Placeholder() string {
	msg := "unknown error"
	if r.Err != nil {
		msg = r.Err.Error()
	}
	return fmt.Sprintf("[%s unavailable: %s]", r.Name, msg)
}

// Options tune the orchestrator.
type Options struct {
	// Timeout bounds each section.
	Timeout time.Duration
	// Parallelism bounds sections in flight; values below 1 mean 1.
	Parallelism int
}

// Orchestrator runs sections with isolated failures.
type Orchestrator struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs an Orchestrator.
func New(opts Options, logger zerolog.Logger) *Orchestrator {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	return &Orchestrator{opts: opts, logger: logger.With().Str("component", "orchestrator").Logger()}
}

// Run executes sections and returns one result per section in input order.
// It never returns before every section finished or was abandoned, and never
// waits on a single section longer than the configured timeout.
func (o *Orchestrator) Run(ctx context.Context, sections []Section) []SectionResult {
	results := make([]SectionResult, len(sections))
	sem := semaphore.NewWeighted(int64(o.opts.Parallelism))
	done := make(chan struct{}, len(sections))

	started := 0
	for i, sec := range sections {
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = SectionResult{Name: sec.Name, Status: StatusFailed, Err: err}
			continue
		}
		started++
		go func(i int, sec Section) {
			defer func() {
				sem.Release(1)
				done <- struct{}{}
			}()
			results[i] = o.runOne(ctx, sec)
		}(i, sec)
	}
	for ; started > 0; started-- {
		<-done
	}
	return results
}

type outcome struct {
	content string
	err     error
}

func (o *Orchestrator) runOne(ctx context.Context, sec Section) SectionResult {
	start := time.Now()
	secCtx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
	// cancel tells an abandoned builder to release what it holds
	defer cancel()

	// buffered so an abandoned builder can still deliver and exit
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		content, err := sec.Build(secCtx)
		ch <- outcome{content: content, err: err}
	}()

	res := SectionResult{Name: sec.Name}
	select {
	case out := <-ch:
		res.Elapsed = time.Since(start)
		switch {
		case out.err != nil:
			res.Status, res.Err = StatusFailed, out.err
		case strings.TrimSpace(out.content) == "":
			res.Status = StatusEmpty
		default:
			res.Status, res.Content = StatusOK, out.content
		}
	case <-secCtx.Done():
		res.Elapsed = time.Since(start)
		if ctx.Err() != nil {
			res.Status, res.Err = StatusFailed, ctx.Err()
		} else {
			res.Status = StatusTimedOut
			res.Err = fmt.Errorf("%w after %s", ErrSectionTimeout, o.opts.Timeout)
		}
	}

	ev := o.logger.Debug()
	if res.Status == StatusFailed || res.Status == StatusTimedOut {
		ev = o.logger.Warn().Err(res.Err)
	}
	ev.Str("section", sec.Name).Str("status", string(res.Status)).Dur("elapsed", res.Elapsed).Msg("section finished")
	return res
}
