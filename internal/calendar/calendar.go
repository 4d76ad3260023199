package calendar

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"finance-brief/internal/cache"
	"finance-brief/internal/jsonfile"
)

const dateLayout = "2006-01-02"

// Event is a scheduled economic release.
type Event struct {
	Date    string `json:"date"`
	Name    string `json:"name"`
	Country string `json:"country"`
	Impact  string `json:"impact"`
	Time    string `json:"time"`
}

// Recurring describes a regularly repeating release.
type Recurring struct {
	Name      string `json:"name"`
	Country   string `json:"country"`
	Frequency string `json:"frequency"`
	Impact    string `json:"impact"`
}

type template struct {
	Upcoming  []Event     `json:"upcoming_events"`
	Recurring []Recurring `json:"recurring_events"`
}

// Options tune the calendar service.
type Options struct {
	TemplatePath string
	Location     *time.Location
	Policy       cache.Policy
	Now          func() time.Time
}

// Service reads the economic calendar template.
type Service struct {
	cache  *cache.Cache
	opts   Options
	logger zerolog.Logger
}

// New constructs a calendar service.
func New(c *cache.Cache, opts Options, logger zerolog.Logger) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{cache: c, opts: opts, logger: logger.With().Str("component", "calendar").Logger()}
}

// Upcoming returns events dated from today through today+days in the
// configured timezone, sorted by date. An empty country matches all.
func (s *Service) Upcoming(ctx context.Context, days int, country string) cache.Result[[]Event] {
	key := fmt.Sprintf("calendar_%d_%s", days, orAll(country))
	return cache.Load(ctx, s.cache, s.opts.Policy, key, func(context.Context) ([]Event, error) {
		tpl, err := s.load()
		if err != nil {
			return nil, err
		}

		today := s.today()
		cutoff := today.AddDate(0, 0, days)

		events := make([]Event, 0)
		for _, ev := range tpl.Upcoming {
			date, err := time.ParseInLocation(dateLayout, ev.Date, s.opts.Location)
			if err != nil {
				s.logger.Debug().Str("date", ev.Date).Str("event", ev.Name).Msg("skipping event with malformed date")
				continue
			}
			if date.Before(today) || date.After(cutoff) {
				continue
			}
			if country != "" && !strings.EqualFold(ev.Country, country) {
				continue
			}
			events = append(events, ev)
		}
		sort.SliceStable(events, func(i, j int) bool { return events[i].Date < events[j].Date })
		return events, nil
	})
}

// Recurring lists recurring releases, optionally for one country.
func (s *Service) Recurring(country string) ([]Recurring, error) {
	tpl, err := s.load()
	if err != nil {
		return nil, err
	}
	if country == "" {
		return tpl.Recurring, nil
	}
	out := make([]Recurring, 0, len(tpl.Recurring))
	for _, r := range tpl.Recurring {
		if strings.EqualFold(r.Country, country) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Service) load() (template, error) {
	var tpl template
	found, err := jsonfile.Read(s.opts.TemplatePath, &tpl)
	if err != nil {
		return template{}, err
	}
	if !found {
		return template{}, fmt.Errorf("calendar template %s not found", s.opts.TemplatePath)
	}
	return tpl, nil
}

func (s *Service) today() time.Time {
	now := s.opts.Now().In(s.opts.Location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.opts.Location)
}

func orAll(country string) string {
	if country == "" {
		return "all"
	}
	return country
}

// FormatEvents groups events under a heading per day.
func FormatEvents(events []Event) string {
	if len(events) == 0 {
		return "No upcoming events in the specified period."
	}

	var lines []string
	current := ""
	for _, ev := range events {
		if ev.Date != current {
			current = ev.Date
			heading := ev.Date
			if d, err := time.Parse(dateLayout, ev.Date); err == nil {
				heading = d.Format("Mon 02 Jan 2006")
			}
			if len(lines) > 0 {
				lines = append(lines, "")
			}
			lines = append(lines, heading+":")
		}

		impact := strings.ToUpper(ev.Impact)
		if impact == "" {
			impact = "MEDIUM"
		}
		line := fmt.Sprintf("  [%s] %s %s", impact, ev.Country, ev.Name)
		if ev.Time != "" {
			line += fmt.Sprintf(" (%s)", ev.Time)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
