package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  name: financebrief\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.App.Timezone != "Australia/Sydney" {
		t.Fatalf("timezone = %q", cfg.App.Timezone)
	}
	if cfg.TTL(NamespaceMarketData) != 5*time.Minute || cfg.TTL(NamespaceNews) != 15*time.Minute ||
		cfg.TTL(NamespaceCalendar) != time.Hour || cfg.TTL(NamespacePortfolioPrices) != 5*time.Minute {
		t.Fatalf("unexpected ttls %v", cfg.Cache.TTL)
	}
	if cfg.Cache.StaleMaxAge != 24*time.Hour {
		t.Fatalf("stale max age = %s", cfg.Cache.StaleMaxAge)
	}
	if cfg.RateLimit.Calls != 30 || cfg.RateLimit.Period != time.Minute {
		t.Fatalf("rate limit = %+v", cfg.RateLimit)
	}
	if cfg.Report.MaxLength != 4096 || cfg.Report.SectionTimeout != 20*time.Second {
		t.Fatalf("report = %+v", cfg.Report)
	}
	if len(cfg.Market.Indices) != 6 || cfg.Market.Indices[0].Symbol != "^AXJO" || cfg.Market.Indices[0].Name != "ASX 200" {
		t.Fatalf("indices = %+v", cfg.Market.Indices)
	}
	if len(cfg.Market.Commodities) != 4 || cfg.Market.ForexDefault != "AUDUSD=X" {
		t.Fatalf("market = %+v", cfg.Market)
	}
	if cfg.Alerts.AllowStale {
		t.Fatal("stale quotes must not trigger alerts by default")
	}
}

func TestLoadOverridesAndPaths(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(writeConfig(t, `
data:
  dir: `+dir+`
cache:
  ttl:
    news: 30m
report:
  section_timeout: 5s
delivery:
  kafka:
    brokers: "a:9092,b:9092"
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TTL(NamespaceNews) != 30*time.Minute {
		t.Fatalf("news ttl = %s", cfg.TTL(NamespaceNews))
	}
	if cfg.Report.SectionTimeout != 5*time.Second {
		t.Fatalf("section timeout = %s", cfg.Report.SectionTimeout)
	}
	if len(cfg.Delivery.Kafka.Brokers) != 2 {
		t.Fatalf("brokers = %v", cfg.Delivery.Kafka.Brokers)
	}
	if got := cfg.DataPath("alerts.json"); got != filepath.Join(dir, "alerts.json") {
		t.Fatalf("data path = %s", got)
	}
	if got := cfg.CacheDir(); got != filepath.Join(dir, "cache") {
		t.Fatalf("cache dir = %s", got)
	}
	if got := cfg.DataPath("/abs/alerts.json"); got != "/abs/alerts.json" {
		t.Fatalf("absolute paths must pass through, got %s", got)
	}
}

func TestEnvOverridesDataDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FINANCEBRIEF_DATA_DIR", dir)

	cfg, err := Load(writeConfig(t, "app:\n  name: financebrief\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Data.Dir != dir {
		t.Fatalf("data dir = %q, want %q", cfg.Data.Dir, dir)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"bad timezone", "app:\n  timezone: Mars/Olympus\n", "app.timezone"},
		{"bad backend", "cache:\n  backend: redis\n", "cache.backend"},
		{"postgres without dsn", "cache:\n  backend: postgres\n", "database.dsn"},
		{"zero max length", "report:\n  max_length: 0\n", "report.max_length"},
		{"bad brief time", "schedule:\n  brief_at: 7am\n", "schedule.brief_at"},
		{"telegram without token", "delivery:\n  telegram:\n    enabled: true\n", "bot_token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}
