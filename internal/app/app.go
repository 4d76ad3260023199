package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"finance-brief/internal/alerting"
	"finance-brief/internal/alerts"
	"finance-brief/internal/brief"
	"finance-brief/internal/cache"
	"finance-brief/internal/calendar"
	"finance-brief/internal/config"
	"finance-brief/internal/fetcher"
	"finance-brief/internal/market"
	"finance-brief/internal/news"
	"finance-brief/internal/portfolio"
	"finance-brief/internal/ratelimit"
	"finance-brief/internal/report"
	"finance-brief/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	// Out receives human-readable command output.
	Out io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger(), Out: os.Stdout}
}

// stack is the component graph shared by commands within one process.
type stack struct {
	loc       *time.Location
	cache     *cache.Cache
	store     *storage.Store
	limiter   *ratelimit.Limiter
	market    *market.Service
	prices    *market.Service
	news      *news.Scanner
	calendar  *calendar.Service
	portfolio *portfolio.Book
	alerts    *alerts.Store
	engine    *alerts.Engine
	brief     *brief.Builder

	forexPair  market.Instrument
	forexPairs []market.Instrument
	universe   []market.Instrument

	closers []func() error
}

func (s *stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

// open builds every component from configuration.
func (a *App) open(ctx context.Context) (*stack, error) {
	cfg := a.Config
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	s := &stack{loc: loc}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	if store != nil {
		s.store = store
		s.closers = append(s.closers, store.Close)
	}

	backend, err := a.cacheBackend(store)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.cache = cache.New(backend, cache.Options{}, a.Logger)
	if store == nil {
		s.closers = append(s.closers, s.cache.Close)
	}

	s.limiter = ratelimit.New(cfg.RateLimit.Calls, cfg.RateLimit.Period)
	history := a.newHistoryFetcher()

	s.universe, err = market.LoadUniverse(cfg.ReferencePath(cfg.Market.UniverseFile))
	if err != nil {
		a.Logger.Warn().Err(err).Msg("stock universe unavailable; movers and sectors disabled")
	}
	s.forexPairs, err = market.LoadForexPairs(cfg.ReferencePath(cfg.Market.ForexFile))
	if err != nil {
		a.Logger.Warn().Err(err).Msg("forex reference unavailable; dashboard limited to the default pair")
	}
	s.forexPair = market.Instrument{Symbol: cfg.Market.ForexDefault, Name: cfg.Market.ForexDefault}
	for _, p := range s.forexPairs {
		if p.Symbol == cfg.Market.ForexDefault {
			s.forexPair = p
		}
	}

	marketOpts := market.Options{
		Period:      cfg.Market.HistoryPeriod,
		Policy:      a.policy(config.NamespaceMarketData),
		Indices:     instruments(cfg.Market.Indices),
		Commodities: instruments(cfg.Market.Commodities),
	}
	s.market = market.New(s.cache, s.limiter, history, marketOpts, a.Logger)

	priceOpts := marketOpts
	priceOpts.Policy = a.policy(config.NamespacePortfolioPrices)
	s.prices = market.New(s.cache, s.limiter, history, priceOpts, a.Logger)

	ref, err := news.LoadReference(cfg.ReferencePath(cfg.News.FeedsFile))
	if err != nil {
		a.Logger.Warn().Err(err).Msg("feeds reference unavailable; news will report no feeds")
	}
	s.news = news.NewScanner(s.cache, s.limiter, fetcher.NewRSS(fetcher.RSSOptions{
		Timeout:   cfg.News.RequestTimeout,
		UserAgent: cfg.News.UserAgent,
	}, a.Logger), news.Options{
		Reference:   ref,
		DedupPrefix: cfg.News.DedupPrefix,
		Lookback:    cfg.News.Lookback,
		Policy:      a.policy(config.NamespaceNews),
	}, a.Logger)

	s.calendar = calendar.New(s.cache, calendar.Options{
		TemplatePath: cfg.ReferencePath(cfg.Calendar.TemplateFile),
		Location:     loc,
		Policy:       a.policy(config.NamespaceCalendar),
	}, a.Logger)

	s.portfolio = portfolio.New(cfg.DataPath(cfg.Portfolio.File), s.prices, market.Sectors(s.universe), a.Logger)

	s.alerts = alerts.NewStore(alerts.StoreOptions{
		Path:     cfg.DataPath(cfg.Alerts.File),
		Location: loc,
	}, a.Logger)
	var recorder alerts.Recorder
	if store != nil {
		recorder = store
	}
	s.engine = alerts.NewEngine(s.alerts, s.market, s.news, recorder, alerts.EngineOptions{
		AllowStale:    cfg.Alerts.AllowStale,
		EvidenceLimit: cfg.Alerts.EvidenceLimit,
	}, a.Logger)

	orch := report.New(report.Options{
		Timeout:     cfg.Report.SectionTimeout,
		Parallelism: cfg.Report.Parallelism,
	}, a.Logger)
	s.brief = brief.New(brief.Deps{
		Alerts:    s.engine,
		Market:    s.market,
		News:      s.news,
		Calendar:  s.calendar,
		Portfolio: s.portfolio,
	}, orch, brief.Options{
		Title:        cfg.Report.Title,
		Location:     loc,
		ForexPair:    s.forexPair,
		ForexPairs:   s.forexPairs,
		CalendarDays: cfg.Calendar.BriefDays,
		MaxLength:    cfg.Report.MaxLength,
		Marker:       cfg.Report.TruncationMarker,
	}, a.Logger)

	return s, nil
}

func (a *App) policy(namespace string) cache.Policy {
	return cache.Policy{
		Namespace: namespace,
		TTL:       a.Config.TTL(namespace),
		MaxStale:  a.Config.Cache.StaleMaxAge,
	}
}

func (a *App) cacheBackend(store *storage.Store) (cache.Backend, error) {
	if strings.EqualFold(a.Config.Cache.Backend, "postgres") {
		if store == nil {
			return nil, errors.New("cache.backend=postgres requires database.dsn")
		}
		return store, nil
	}
	backend, err := cache.NewSQLiteBackend(a.Config.CacheDir())
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return backend, nil
}

// newHistoryFetcher routes "cl:" symbols to Chainlink and the rest to Yahoo.
func (a *App) newHistoryFetcher() fetcher.HistoryFetcher {
	yahoo := fetcher.NewYahoo(fetcher.YahooOptions{
		BaseURL:   a.Config.Market.BaseURL,
		Timeout:   a.Config.Market.RequestTimeout,
		UserAgent: a.Config.Market.UserAgent,
	}, a.Logger)

	router := fetcher.NewRouter(yahoo)
	if a.Config.Chainlink.RPCURL != "" {
		router.Handle(fetcher.ChainlinkPrefix, fetcher.NewChainlink(fetcher.ChainlinkOptions{
			RPCURL:  a.Config.Chainlink.RPCURL,
			Timeout: a.Config.Chainlink.RequestTimeout,
			Feeds:   a.Config.Chainlink.Feeds,
		}, a.Logger))
	}
	return router
}

func (a *App) newNotifier() (alerting.Notifier, func(), error) {
	var (
		notifiers alerting.Multi
		closers   []func() error
	)

	if tg := a.Config.Delivery.Telegram; tg.Enabled {
		notifiers = append(notifiers, alerting.NewTelegramNotifier(tg.BotToken, tg.ChatID, tg.APIBase, tg.Timeout, a.Logger))
	}
	if kc := a.Config.Delivery.Kafka; kc.Enabled {
		producer, err := alerting.NewKafkaProducer(kc.Brokers, kc.ClientID)
		if err != nil {
			return nil, nil, err
		}
		kafka := alerting.NewKafkaNotifier(producer, kc.Topic, a.Logger)
		notifiers = append(notifiers, kafka)
		closers = append(closers, kafka.Close)
	}

	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				a.Logger.Warn().Err(err).Msg("close notifier")
			}
		}
	}
	if len(notifiers) == 0 {
		return nil, closeAll, nil
	}
	return notifiers, closeAll, nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, error) {
	if a.Config.Database.DSN == "" {
		return nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, err
	}

	store := storage.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func instruments(list []config.Instrument) []market.Instrument {
	out := make([]market.Instrument, 0, len(list))
	for _, in := range list {
		name := in.Name
		if name == "" {
			name = in.Symbol
		}
		out = append(out, market.Instrument{Symbol: in.Symbol, Name: name})
	}
	return out
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.Out, format, args...)
}

func (a *App) println(text string) {
	fmt.Fprintln(a.Out, text)
}
