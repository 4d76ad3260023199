// Package brief builds the morning finance brief from independent sections.
package brief

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"finance-brief/internal/alerts"
	"finance-brief/internal/cache"
	"finance-brief/internal/calendar"
	"finance-brief/internal/format"
	"finance-brief/internal/market"
	"finance-brief/internal/news"
	"finance-brief/internal/portfolio"
	"finance-brief/internal/report"
)

var errNoQuotes = errors.New("no quotes available")

// AlertEvaluator runs an alert check.
type AlertEvaluator interface {
	EvaluateAll(ctx context.Context) ([]alerts.Alert, error)
}

// MarketSource provides the quotes shown in the brief.
type MarketSource interface {
	Forex(ctx context.Context, pair market.Instrument) (market.Named, bool)
	ForexDashboard(ctx context.Context, pairs []market.Instrument) []market.Named
	Indices(ctx context.Context) []market.Named
	Commodities(ctx context.Context) []market.Named
}

// NewsSource provides ranked headlines.
type NewsSource interface {
	Scan(ctx context.Context, category string, limit int) cache.Result[[]news.Item]
}

// CalendarSource provides upcoming economic events.
type CalendarSource interface {
	Upcoming(ctx context.Context, days int, country string) cache.Result[[]calendar.Event]
}

// PortfolioSource provides priced holdings.
type PortfolioSource interface {
	Valued(ctx context.Context) []portfolio.Valued
}

// Deps are the data sources. A nil source omits its section.
type Deps struct {
	Alerts    AlertEvaluator
	Market    MarketSource
	News      NewsSource
	Calendar  CalendarSource
	Portfolio PortfolioSource
}

// Options tune the brief.
type Options struct {
	Title        string
	Location     *time.Location
	Now          func() time.Time
	ForexPair    market.Instrument
	ForexPairs   []market.Instrument
	NewsLimit    int
	CalendarDays int
	MaxLength    int
	Marker       string
}

// Builder assembles the brief.
type Builder struct {
	deps   Deps
	orch   *report.Orchestrator
	opts   Options
	logger zerolog.Logger
}

// New constructs a Builder.
func New(deps Deps, orch *report.Orchestrator, opts Options, logger zerolog.Logger) *Builder {
	if opts.Title == "" {
		opts.Title = "Morning Finance Brief"
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewsLimit <= 0 {
		opts.NewsLimit = 5
	}
	if opts.CalendarDays <= 0 {
		opts.CalendarDays = 3
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = 4096
	}
	if opts.Marker == "" {
		opts.Marker = report.DefaultMarker
	}
	if opts.ForexPair.Name == "" {
		opts.ForexPair.Name = opts.ForexPair.Symbol
	}
	return &Builder{deps: deps, orch: orch, opts: opts, logger: logger.With().Str("component", "brief").Logger()}
}

// Header renders the dated title line.
func (b *Builder) Header() string {
	return fmt.Sprintf("%s — %s", b.opts.Title, b.opts.Now().In(b.opts.Location).Format("Monday 02 Jan 2006"))
}

// Sections lists the brief sections in display order.
func (b *Builder) Sections() []report.Section {
	var sections []report.Section
	if b.deps.Alerts != nil {
		sections = append(sections, report.Section{Name: "Alerts", Build: b.alertsSection})
	}
	if b.deps.Market != nil {
		sections = append(sections,
			report.Section{Name: "Forex data", Build: b.forexSection},
			report.Section{Name: "Indices", Build: b.indicesSection},
			report.Section{Name: "Commodities", Build: b.commoditiesSection},
		)
	}
	if b.deps.News != nil {
		sections = append(sections, report.Section{Name: "News", Build: b.newsSection})
	}
	if b.deps.Calendar != nil {
		sections = append(sections, report.Section{Name: "Calendar", Build: b.calendarSection})
	}
	if b.deps.Portfolio != nil {
		sections = append(sections, report.Section{Name: "Portfolio", Build: b.portfolioSection})
	}
	return sections
}

// Build runs every section and returns the composed brief with per-section outcomes.
func (b *Builder) Build(ctx context.Context) (string, []report.SectionResult) {
	results := b.orch.Run(ctx, b.Sections())
	text := report.Compose(b.Header(), results, b.opts.MaxLength, b.opts.Marker)

	summary := zerolog.Dict()
	for _, r := range results {
		summary.Str(r.Name, string(r.Status))
	}
	b.logger.Info().Dict("sections", summary).Int("length", len([]rune(text))).Msg("brief built")
	return text, results
}

func (b *Builder) alertsSection(ctx context.Context) (string, error) {
	triggered, err := b.deps.Alerts.EvaluateAll(ctx)
	if err != nil {
		// the triggers happened even though they were not saved
		b.logger.Error().Err(err).Msg("alert evaluation could not be saved")
	}
	return alerts.FormatTriggered(triggered), nil
}

func (b *Builder) forexSection(ctx context.Context) (string, error) {
	primary, ok := b.deps.Market.Forex(ctx, b.opts.ForexPair)
	if !ok {
		return "", fmt.Errorf("%w for %s", errNoQuotes, b.opts.ForexPair.Symbol)
	}

	title := "Forex"
	if b.opts.ForexPair.Name != b.opts.ForexPair.Symbol {
		title = b.opts.ForexPair.Name + " & Forex"
	}
	lines := []string{format.SectionHeader(title)}
	stale := ""
	if primary.Stale() {
		stale = " (stale)"
	}
	lines = append(lines,
		fmt.Sprintf("%s: %s (%s)%s", primary.Name, format.Price(&primary.Quote.Price, 4), format.Change(&primary.Quote.ChangePct), stale),
		fmt.Sprintf("  High: %s | Low: %s", format.Price(&primary.Quote.High, 4), format.Price(&primary.Quote.Low, 4)),
	)

	others := 0
	for _, pair := range b.deps.Market.ForexDashboard(ctx, b.opts.ForexPairs) {
		if pair.Symbol == b.opts.ForexPair.Symbol {
			continue
		}
		if others == 4 {
			break
		}
		others++
		lines = append(lines, fmt.Sprintf("  %s: %s (%s)%s",
			pair.Name, format.Price(&pair.Quote.Price, 4), format.Change(&pair.Quote.ChangePct), format.Stale(pair.Stale())))
	}
	return strings.Join(lines, "\n"), nil
}

func (b *Builder) indicesSection(ctx context.Context) (string, error) {
	return quoteSection("Global Indices", b.deps.Market.Indices(ctx))
}

func (b *Builder) commoditiesSection(ctx context.Context) (string, error) {
	return quoteSection("Commodities", b.deps.Market.Commodities(ctx))
}

func quoteSection(title string, quotes []market.Named) (string, error) {
	if len(quotes) == 0 {
		return "", errNoQuotes
	}
	lines := []string{format.SectionHeader(title)}
	for _, q := range quotes {
		lines = append(lines, fmt.Sprintf("  %s: %s (%s)%s",
			q.Name, format.Price(&q.Quote.Price, 2), format.Change(&q.Quote.ChangePct), format.Stale(q.Stale())))
	}
	return strings.Join(lines, "\n"), nil
}

func (b *Builder) newsSection(ctx context.Context) (string, error) {
	res := b.deps.News.Scan(ctx, "", b.opts.NewsLimit)
	if !res.OK() {
		return "", res.Err
	}
	if len(res.Value) == 0 {
		return "", nil
	}
	stale := format.Stale(res.State == cache.Stale)
	lines := []string{format.SectionHeader("Top Financial News")}
	for i, item := range res.Value {
		lines = append(lines,
			fmt.Sprintf("  %d. %s%s", i+1, item.Title, stale),
			fmt.Sprintf("     (%s)", item.Source),
		)
	}
	return strings.Join(lines, "\n"), nil
}

func (b *Builder) calendarSection(ctx context.Context) (string, error) {
	res := b.deps.Calendar.Upcoming(ctx, b.opts.CalendarDays, "")
	if !res.OK() {
		return "", res.Err
	}
	if len(res.Value) == 0 {
		return "", nil
	}
	title := format.SectionHeader(fmt.Sprintf("Economic Calendar (next %d days)", b.opts.CalendarDays))
	return title + "\n" + calendar.FormatEvents(res.Value), nil
}

func (b *Builder) portfolioSection(ctx context.Context) (string, error) {
	holdings := b.deps.Portfolio.Valued(ctx)
	if len(holdings) == 0 {
		return "", nil
	}
	return format.SectionHeader("Portfolio Summary") + "\n" + portfolio.FormatValued(holdings), nil
}
