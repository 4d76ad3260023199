package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"finance-brief/internal/logging"
	"finance-brief/internal/version"
)

// Cache namespaces shared by producers.
const (
	NamespaceMarketData      = "market_data"
	NamespaceNews            = "news"
	NamespaceCalendar        = "calendar"
	NamespacePortfolioPrices = "portfolio_prices"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Data      DataConfig      `mapstructure:"data"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Market    MarketConfig    `mapstructure:"market"`
	Chainlink ChainlinkConfig `mapstructure:"chainlink"`
	News      NewsConfig      `mapstructure:"news"`
	Calendar  CalendarConfig  `mapstructure:"calendar"`
	Portfolio PortfolioConfig `mapstructure:"portfolio"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	Report    ReportConfig    `mapstructure:"report"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Delivery  DeliveryConfig  `mapstructure:"delivery"`
	API       APIConfig       `mapstructure:"api"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Timezone    string `mapstructure:"timezone"`
}

// DataConfig locates state and reference files.
type DataConfig struct {
	Dir           string `mapstructure:"dir"`
	ReferencesDir string `mapstructure:"references_dir"`
}

// DatabaseConfig encapsulates optional PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
}

// CacheConfig selects the cache backend and freshness horizons.
type CacheConfig struct {
	Backend     string                   `mapstructure:"backend"`
	Dir         string                   `mapstructure:"dir"`
	TTL         map[string]time.Duration `mapstructure:"ttl"`
	StaleMaxAge time.Duration            `mapstructure:"stale_max_age"`
}

// RateLimitConfig bounds upstream calls.
type RateLimitConfig struct {
	Calls  int           `mapstructure:"calls"`
	Period time.Duration `mapstructure:"period"`
}

// Instrument names a watched symbol.
type Instrument struct {
	Symbol string `mapstructure:"symbol" json:"symbol"`
	Name   string `mapstructure:"name" json:"name"`
}

// MarketConfig covers the quote provider and watch lists.
type MarketConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	HistoryPeriod  string        `mapstructure:"history_period"`
	Indices        []Instrument  `mapstructure:"indices"`
	Commodities    []Instrument  `mapstructure:"commodities"`
	ForexDefault   string        `mapstructure:"forex_default"`
	ForexFile      string        `mapstructure:"forex_file"`
	UniverseFile   string        `mapstructure:"universe_file"`
	MoversLimit    int           `mapstructure:"movers_limit"`
}

// ChainlinkConfig covers on-chain price feeds.
type ChainlinkConfig struct {
	RPCURL         string            `mapstructure:"rpc_url"`
	RequestTimeout time.Duration     `mapstructure:"request_timeout"`
	Feeds          map[string]string `mapstructure:"feeds"`
}

// NewsConfig covers feed aggregation.
type NewsConfig struct {
	FeedsFile      string        `mapstructure:"feeds_file"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	DedupPrefix    int           `mapstructure:"dedup_prefix"`
	Lookback       int           `mapstructure:"lookback"`
}

// CalendarConfig covers the economic calendar template.
type CalendarConfig struct {
	TemplateFile string `mapstructure:"template_file"`
	BriefDays    int    `mapstructure:"brief_days"`
}

// PortfolioConfig covers the holdings document.
type PortfolioConfig struct {
	File string `mapstructure:"file"`
}

// AlertsConfig covers the alert document and evaluation.
type AlertsConfig struct {
	File          string `mapstructure:"file"`
	AllowStale    bool   `mapstructure:"allow_stale"`
	EvidenceLimit int    `mapstructure:"evidence_limit"`
}

// ReportConfig covers composite report assembly.
type ReportConfig struct {
	SectionTimeout   time.Duration `mapstructure:"section_timeout"`
	Parallelism      int           `mapstructure:"parallelism"`
	MaxLength        int           `mapstructure:"max_length"`
	TruncationMarker string        `mapstructure:"truncation_marker"`
	Title            string        `mapstructure:"title"`
}

// ScheduleConfig governs the daemon cadence.
type ScheduleConfig struct {
	AlertInterval time.Duration `mapstructure:"alert_interval"`
	AlignToBucket bool          `mapstructure:"align_to_bucket"`
	StartupDelay  time.Duration `mapstructure:"startup_delay"`
	BriefAt       string        `mapstructure:"brief_at"`
	LockKey       int64         `mapstructure:"lock_key"`
}

// DeliveryConfig routes briefs and alerts.
type DeliveryConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
}

// TelegramConfig describes Telegram delivery.
type TelegramConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	BotToken string        `mapstructure:"bot_token"`
	ChatID   string        `mapstructure:"chat_id"`
	APIBase  string        `mapstructure:"api_base"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// KafkaConfig describes Kafka delivery.
type KafkaConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Brokers  []string `mapstructure:"brokers"`
	Topic    string   `mapstructure:"topic"`
	ClientID string   `mapstructure:"client_id"`
}

// APIConfig covers the HTTP surface.
type APIConfig struct {
	Listen string `mapstructure:"listen"`
}

// ExportConfig sets chart export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FINANCEBRIEF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".financebrief/data"
	}
	return filepath.Join(home, ".financebrief", "data")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "financebrief")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.timezone", "Australia/Sydney")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("data.dir", defaultDataDir())
	v.SetDefault("data.references_dir", "references")

	v.SetDefault("cache.backend", "sqlite")
	v.SetDefault("cache.dir", "")
	v.SetDefault("cache.ttl", map[string]any{
		NamespaceMarketData:      "5m",
		NamespaceNews:            "15m",
		NamespaceCalendar:        "1h",
		NamespacePortfolioPrices: "5m",
	})
	v.SetDefault("cache.stale_max_age", "24h")

	v.SetDefault("rate_limit.calls", 30)
	v.SetDefault("rate_limit.period", "60s")

	v.SetDefault("market.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("market.request_timeout", "10s")
	v.SetDefault("market.user_agent", version.UserAgent())
	v.SetDefault("market.history_period", "5d")
	v.SetDefault("market.indices", []map[string]any{
		{"symbol": "^AXJO", "name": "ASX 200"},
		{"symbol": "^GSPC", "name": "S&P 500"},
		{"symbol": "^DJI", "name": "Dow Jones"},
		{"symbol": "^IXIC", "name": "NASDAQ"},
		{"symbol": "^FTSE", "name": "FTSE 100"},
		{"symbol": "^N225", "name": "Nikkei 225"},
	})
	v.SetDefault("market.commodities", []map[string]any{
		{"symbol": "GC=F", "name": "Gold"},
		{"symbol": "SI=F", "name": "Silver"},
		{"symbol": "CL=F", "name": "Crude Oil (WTI)"},
		{"symbol": "HG=F", "name": "Copper"},
	})
	v.SetDefault("market.forex_default", "AUDUSD=X")
	v.SetDefault("market.forex_file", "forex_pairs.json")
	v.SetDefault("market.universe_file", "asx_codes.json")
	v.SetDefault("market.movers_limit", 5)

	v.SetDefault("chainlink.request_timeout", "10s")

	v.SetDefault("news.feeds_file", "rss_feeds.json")
	v.SetDefault("news.request_timeout", "10s")
	v.SetDefault("news.user_agent", version.UserAgent())
	v.SetDefault("news.dedup_prefix", 60)
	v.SetDefault("news.lookback", 50)

	v.SetDefault("calendar.template_file", "economic_calendar_template.json")
	v.SetDefault("calendar.brief_days", 3)

	v.SetDefault("portfolio.file", "portfolio.json")

	v.SetDefault("alerts.file", "alerts.json")
	v.SetDefault("alerts.allow_stale", false)
	v.SetDefault("alerts.evidence_limit", 3)

	v.SetDefault("report.section_timeout", "20s")
	v.SetDefault("report.parallelism", 1)
	v.SetDefault("report.max_length", 4096)
	v.SetDefault("report.truncation_marker", "\n\n... (truncated)")
	v.SetDefault("report.title", "Morning Finance Brief")

	v.SetDefault("schedule.alert_interval", "5m")
	v.SetDefault("schedule.align_to_bucket", true)
	v.SetDefault("schedule.startup_delay", "0s")
	v.SetDefault("schedule.brief_at", "07:00")
	v.SetDefault("schedule.lock_key", 0)

	v.SetDefault("delivery.telegram.enabled", false)
	v.SetDefault("delivery.telegram.api_base", "https://api.telegram.org")
	v.SetDefault("delivery.telegram.timeout", "10s")
	v.SetDefault("delivery.kafka.enabled", false)
	v.SetDefault("delivery.kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("delivery.kafka.topic", "finance.briefs")
	v.SetDefault("delivery.kafka.client_id", "financebrief")

	v.SetDefault("api.listen", ":8080")

	v.SetDefault("export.max_data_points", 1000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.connect_timeout", "5s")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Data.Dir) == "" {
		return fmt.Errorf("data.dir must be set")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	switch strings.ToLower(c.Cache.Backend) {
	case "sqlite":
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("cache.backend=postgres requires database.dsn")
		}
	default:
		return fmt.Errorf("cache.backend must be sqlite or postgres, got %q", c.Cache.Backend)
	}
	if c.Cache.StaleMaxAge < 0 {
		return fmt.Errorf("cache.stale_max_age cannot be negative")
	}
	if c.RateLimit.Calls < 0 || c.RateLimit.Period < 0 {
		return fmt.Errorf("rate_limit values cannot be negative")
	}
	if c.Report.SectionTimeout <= 0 {
		return fmt.Errorf("report.section_timeout must be greater than zero")
	}
	if c.Report.MaxLength <= 0 {
		return fmt.Errorf("report.max_length must be greater than zero")
	}
	if c.Report.Parallelism < 0 {
		return fmt.Errorf("report.parallelism cannot be negative")
	}
	if c.News.DedupPrefix < 0 {
		return fmt.Errorf("news.dedup_prefix cannot be negative")
	}
	if c.Schedule.AlertInterval <= 0 {
		return fmt.Errorf("schedule.alert_interval must be greater than zero")
	}
	if _, err := time.Parse("15:04", c.Schedule.BriefAt); err != nil {
		return fmt.Errorf("schedule.brief_at must be HH:MM: %w", err)
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Delivery.Telegram.Enabled {
		if c.Delivery.Telegram.BotToken == "" {
			return fmt.Errorf("delivery.telegram.bot_token must be set")
		}
		if c.Delivery.Telegram.ChatID == "" {
			return fmt.Errorf("delivery.telegram.chat_id must be set")
		}
	}
	if c.Delivery.Kafka.Enabled {
		if len(c.Delivery.Kafka.Brokers) == 0 {
			return fmt.Errorf("delivery.kafka.brokers must be set")
		}
		if c.Delivery.Kafka.Topic == "" {
			return fmt.Errorf("delivery.kafka.topic must be set")
		}
	}
	return nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("app.timezone %q: %w", c.App.Timezone, err)
	}
	return loc, nil
}

// DataPath resolves name against the data directory unless it is absolute.
func (c *Config) DataPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Data.Dir, name)
}

// ReferencePath resolves name against the references directory unless it is absolute.
func (c *Config) ReferencePath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Data.ReferencesDir, name)
}

// CacheDir returns the directory for the sqlite cache backend.
func (c *Config) CacheDir() string {
	if c.Cache.Dir != "" {
		return c.Cache.Dir
	}
	return filepath.Join(c.Data.Dir, "cache")
}

// TTL returns the freshness window for a namespace.
func (c *Config) TTL(namespace string) time.Duration {
	if ttl, ok := c.Cache.TTL[namespace]; ok {
		return ttl
	}
	return 5 * time.Minute
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
