package app

import (
	"context"
	"fmt"
	"strings"

	"finance-brief/internal/cache"
	"finance-brief/internal/calendar"
	"finance-brief/internal/format"
	"finance-brief/internal/news"
)

// NewsOptions configure the news command.
type NewsOptions struct {
	Category string
	Limit    int
	Verbose  bool
	Keywords []string
}

// News prints ranked headlines, or keyword matches when keywords are given.
func (a *App) News(ctx context.Context, opts NewsOptions) error {
	s, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if opts.Limit <= 0 {
		opts.Limit = 10
	}

	if len(opts.Keywords) > 0 {
		res := s.news.ScanForKeywords(ctx, opts.Keywords, opts.Limit)
		if !res.OK() {
			return fmt.Errorf("news unavailable: %w", res.Err)
		}
		if len(res.Value) == 0 {
			a.println("No matching headlines.")
			return nil
		}
		stale := format.Stale(res.State == cache.Stale)
		for _, m := range res.Value {
			a.printf("[%s] %s%s\n  (%s)\n", m.Keyword, m.Title, stale, m.Source)
		}
		return nil
	}

	res := s.news.Scan(ctx, opts.Category, opts.Limit)
	if !res.OK() {
		return fmt.Errorf("news unavailable: %w", res.Err)
	}
	a.println(news.FormatItems(res.Value, opts.Verbose, res.State == cache.Stale))
	return nil
}

// CalendarOptions configure the calendar command.
type CalendarOptions struct {
	Days      int
	Country   string
	Recurring bool
}

// Calendar prints upcoming or recurring economic events.
func (a *App) Calendar(ctx context.Context, opts CalendarOptions) error {
	s, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if opts.Recurring {
		events, err := s.calendar.Recurring(opts.Country)
		if err != nil {
			return err
		}
		for _, e := range events {
			a.printf("  [%s] %s %s (%s)\n", strings.ToUpper(e.Impact), e.Country, e.Name, e.Frequency)
		}
		return nil
	}

	if opts.Days <= 0 {
		opts.Days = 7
	}
	res := s.calendar.Upcoming(ctx, opts.Days, opts.Country)
	if !res.OK() {
		return fmt.Errorf("calendar unavailable: %w", res.Err)
	}
	if len(res.Value) == 0 {
		a.printf("No events in the next %d days.\n", opts.Days)
		return nil
	}
	a.println(calendar.FormatEvents(res.Value))
	return nil
}
