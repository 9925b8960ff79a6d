package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds environment-driven settings for the market watcher.
type Config struct {
	// Exchange
	KrakenAPIKey    string
	KrakenAPISecret string
	KrakenBaseURL   string
	KrakenTimeout   time.Duration
	ExchangeRPS     float64 // caller-side spacing of exchange calls
	TickerCacheTTL  time.Duration

	// Valuation
	QuoteAsset string
	AssetPairs map[string]string // asset -> ticker pair overrides

	// Analysis
	WatchPair             string
	LookbackHours         int
	CandleIntervalMinutes int
	CheckIntervalMinutes  int

	// Job descriptors
	JobPrefix     string
	SessionTarget string

	// Process
	HTTPAddr  string
	JWTSecret string // enables bearer auth on job endpoints
	LogLevel  string
}

// fileOverlay is the optional YAML file named by CONFIG_FILE. Set fields win
// over the environment.
type fileOverlay struct {
	Kraken struct {
		BaseURL        string  `yaml:"base_url"`
		TimeoutSeconds int     `yaml:"timeout_seconds"`
		RPS            float64 `yaml:"rps"`
		TickerCacheSec int     `yaml:"ticker_cache_seconds"`
	} `yaml:"kraken"`
	Portfolio struct {
		QuoteAsset string            `yaml:"quote_asset"`
		Pairs      map[string]string `yaml:"pairs"`
	} `yaml:"portfolio"`
	Analysis struct {
		Pair                  string `yaml:"pair"`
		LookbackHours         int    `yaml:"lookback_hours"`
		CandleIntervalMinutes int    `yaml:"candle_interval_minutes"`
		CheckIntervalMinutes  int    `yaml:"check_interval_minutes"`
	} `yaml:"analysis"`
	Jobs struct {
		Prefix        string `yaml:"prefix"`
		SessionTarget string `yaml:"session_target"`
	} `yaml:"jobs"`
}

// Load reads environment variables (optionally via .env) into Config, then
// applies CONFIG_FILE if set. Credentials only ever come from the environment.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	cfg := &Config{
		KrakenAPIKey:          os.Getenv("KRAKEN_API_KEY"),
		KrakenAPISecret:       os.Getenv("KRAKEN_API_SECRET"),
		KrakenBaseURL:         getEnv("KRAKEN_BASE_URL", "https://api.kraken.com"),
		KrakenTimeout:         time.Duration(getEnvInt("KRAKEN_TIMEOUT_SECONDS", 10)) * time.Second,
		ExchangeRPS:           getEnvFloat("EXCHANGE_RPS", 1),
		TickerCacheTTL:        time.Duration(getEnvInt("TICKER_CACHE_SECONDS", 10)) * time.Second,
		QuoteAsset:            getEnv("QUOTE_ASSET", "ZUSD"),
		AssetPairs:            parsePairs(os.Getenv("ASSET_PAIRS")),
		WatchPair:             getEnv("WATCH_PAIR", "XXBTZUSD"),
		LookbackHours:         getEnvInt("LOOKBACK_HOURS", 24),
		CandleIntervalMinutes: getEnvInt("CANDLE_INTERVAL_MINUTES", 60),
		CheckIntervalMinutes:  getEnvInt("CHECK_INTERVAL_MINUTES", 15),
		JobPrefix:             getEnv("JOB_PREFIX", "claw"),
		SessionTarget:         getEnv("SESSION_TARGET", "main"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		JWTSecret:             os.Getenv("API_JWT_SECRET"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges that would otherwise surface as odd runtime behavior.
func (c *Config) Validate() error {
	switch {
	case c.LookbackHours <= 0:
		return fmt.Errorf("config: LOOKBACK_HOURS must be positive, got %d", c.LookbackHours)
	case c.CandleIntervalMinutes <= 0:
		return fmt.Errorf("config: CANDLE_INTERVAL_MINUTES must be positive, got %d", c.CandleIntervalMinutes)
	case c.CheckIntervalMinutes <= 0:
		return fmt.Errorf("config: CHECK_INTERVAL_MINUTES must be positive, got %d", c.CheckIntervalMinutes)
	case c.ExchangeRPS <= 0:
		return fmt.Errorf("config: EXCHANGE_RPS must be positive, got %v", c.ExchangeRPS)
	case c.WatchPair == "":
		return fmt.Errorf("config: WATCH_PAIR is required")
	}
	return nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var f fileOverlay
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}

	setString(&c.KrakenBaseURL, f.Kraken.BaseURL)
	if f.Kraken.TimeoutSeconds > 0 {
		c.KrakenTimeout = time.Duration(f.Kraken.TimeoutSeconds) * time.Second
	}
	if f.Kraken.RPS > 0 {
		c.ExchangeRPS = f.Kraken.RPS
	}
	if f.Kraken.TickerCacheSec > 0 {
		c.TickerCacheTTL = time.Duration(f.Kraken.TickerCacheSec) * time.Second
	}
	setString(&c.QuoteAsset, f.Portfolio.QuoteAsset)
	for asset, pair := range f.Portfolio.Pairs {
		if c.AssetPairs == nil {
			c.AssetPairs = make(map[string]string)
		}
		c.AssetPairs[asset] = pair
	}
	setString(&c.WatchPair, f.Analysis.Pair)
	setInt(&c.LookbackHours, f.Analysis.LookbackHours)
	setInt(&c.CandleIntervalMinutes, f.Analysis.CandleIntervalMinutes)
	setInt(&c.CheckIntervalMinutes, f.Analysis.CheckIntervalMinutes)
	setString(&c.JobPrefix, f.Jobs.Prefix)
	setString(&c.SessionTarget, f.Jobs.SessionTarget)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parsePairs reads "XXDG=XDGUSD,XETH=XETHZUSD".
func parsePairs(val string) map[string]string {
	out := make(map[string]string)
	for _, p := range splitAndTrim(val) {
		asset, pair, ok := strings.Cut(p, "=")
		if !ok {
			continue
		}
		asset, pair = strings.TrimSpace(asset), strings.TrimSpace(pair)
		if asset != "" && pair != "" {
			out[asset] = pair
		}
	}
	return out
}

func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
