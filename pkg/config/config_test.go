package config

import (
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"KRAKEN_API_KEY", "KRAKEN_API_SECRET", "KRAKEN_BASE_URL", "KRAKEN_TIMEOUT_SECONDS", "EXCHANGE_RPS", "TICKER_CACHE_SECONDS",
		"QUOTE_ASSET", "ASSET_PAIRS", "WATCH_PAIR", "LOOKBACK_HOURS", "CANDLE_INTERVAL_MINUTES",
		"CHECK_INTERVAL_MINUTES", "JOB_PREFIX", "SESSION_TARGET", "HTTP_ADDR", "API_JWT_SECRET", "LOG_LEVEL", "CONFIG_FILE",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.KrakenBaseURL != "https://api.kraken.com" {
		t.Fatalf("unexpected base url: %s", cfg.KrakenBaseURL)
	}
	if cfg.KrakenTimeout != 10*time.Second || cfg.TickerCacheTTL != 10*time.Second {
		t.Fatalf("unexpected timeouts: %v %v", cfg.KrakenTimeout, cfg.TickerCacheTTL)
	}
	if cfg.WatchPair != "XXBTZUSD" || cfg.QuoteAsset != "ZUSD" {
		t.Fatalf("unexpected pair/quote: %s %s", cfg.WatchPair, cfg.QuoteAsset)
	}
	if cfg.LookbackHours != 24 || cfg.CandleIntervalMinutes != 60 {
		t.Fatalf("unexpected window: %d/%d", cfg.LookbackHours, cfg.CandleIntervalMinutes)
	}
	if cfg.JobPrefix != "claw" || cfg.SessionTarget != "main" {
		t.Fatalf("unexpected job settings: %s %s", cfg.JobPrefix, cfg.SessionTarget)
	}
}

func TestLoadEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("KRAKEN_API_KEY", "key")
	t.Setenv("KRAKEN_API_SECRET", "c2VjcmV0")
	t.Setenv("ASSET_PAIRS", "XXDG=XDGUSD, bad ,XETH = XETHZUSD")
	t.Setenv("LOOKBACK_HOURS", "6")
	t.Setenv("EXCHANGE_RPS", "2.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.KrakenAPIKey != "key" || cfg.KrakenAPISecret != "c2VjcmV0" {
		t.Fatalf("credentials not loaded")
	}
	if len(cfg.AssetPairs) != 2 || cfg.AssetPairs["XETH"] != "XETHZUSD" {
		t.Fatalf("unexpected asset pairs: %+v", cfg.AssetPairs)
	}
	if cfg.LookbackHours != 6 || cfg.ExchangeRPS != 2.5 {
		t.Fatalf("unexpected numeric settings: %d %v", cfg.LookbackHours, cfg.ExchangeRPS)
	}
}

func TestLoadFileOverlay(t *testing.T) {
	clearEnv(t)
	t.Setenv("ASSET_PAIRS", "XLTC=XLTCZEUR,XXBT=XBTEUR")
	t.Setenv("CONFIG_FILE", filepath.Join("testdata", "config.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.KrakenBaseURL != "https://kraken.test" || cfg.KrakenTimeout != 3*time.Second || cfg.ExchangeRPS != 0.5 {
		t.Fatalf("unexpected kraken overlay: %s %v %v", cfg.KrakenBaseURL, cfg.KrakenTimeout, cfg.ExchangeRPS)
	}
	if cfg.TickerCacheTTL != 30*time.Second {
		t.Fatalf("unexpected ticker cache ttl: %v", cfg.TickerCacheTTL)
	}
	if cfg.QuoteAsset != "ZEUR" || cfg.WatchPair != "XETHZEUR" {
		t.Fatalf("unexpected quote/pair: %s %s", cfg.QuoteAsset, cfg.WatchPair)
	}
	if cfg.AssetPairs["XXBT"] != "XXBTZEUR" || cfg.AssetPairs["XLTC"] != "XLTCZEUR" || cfg.AssetPairs["XXDG"] != "XDGEUR" {
		t.Fatalf("file pairs should merge over env pairs: %+v", cfg.AssetPairs)
	}
	if cfg.LookbackHours != 12 || cfg.CandleIntervalMinutes != 30 || cfg.CheckIntervalMinutes != 5 {
		t.Fatalf("unexpected analysis overlay: %+v", cfg)
	}
	if cfg.JobPrefix != "watch" || cfg.SessionTarget != "ops" {
		t.Fatalf("unexpected jobs overlay: %s %s", cfg.JobPrefix, cfg.SessionTarget)
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHECK_INTERVAL_MINUTES", "-1")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for negative check interval")
	}
}
