// Package app assembles the exchange client, market checks, job synthesis and
// HTTP surface from a loaded configuration.
package app

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"kraken-watch/internal/analysis"
	"kraken-watch/internal/api"
	"kraken-watch/internal/events"
	"kraken-watch/internal/jobs"
	"kraken-watch/internal/journal"
	"kraken-watch/internal/metrics"
	"kraken-watch/internal/monitor"
	"kraken-watch/internal/portfolio"
	"kraken-watch/pkg/config"
	"kraken-watch/pkg/exchanges/kraken"
	"kraken-watch/pkg/logger"
)

// Options override pieces of the assembly, mostly for tests.
type Options struct {
	HTTPClient *http.Client
	Registry   *prometheus.Registry
	// JournalWriter additionally receives rendered markdown entries.
	JournalWriter io.Writer
}

// App owns every long-lived component.
type App struct {
	Config   config.Config
	Log      zerolog.Logger
	Exchange *kraken.Client
	Valuer   *portfolio.Valuer
	Analyzer *analysis.Analyzer
	Jobs     *jobs.Synthesizer
	Journal  journal.Sink
	Events   *events.Bus
	Metrics  *metrics.Metrics
	Checker  *monitor.Checker
	Runner   *monitor.Runner
	Server   *api.Server
}

// New wires the components. It fails only on configuration problems such as
// a malformed API secret.
func New(cfg config.Config, log zerolog.Logger, opts Options) (*App, error) {
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := metrics.New(reg)

	client, err := kraken.New(kraken.Config{
		Credential: kraken.Credential{APIKey: cfg.KrakenAPIKey, APISecret: cfg.KrakenAPISecret},
		BaseURL:    cfg.KrakenBaseURL,
		Timeout:    cfg.KrakenTimeout,
		HTTPClient: opts.HTTPClient,
		Observer:   m,
		Logger:     log.With().Str("component", "kraken").Logger(),
	})
	if err != nil {
		return nil, err
	}

	var exchange monitor.Exchange = client
	if cfg.ExchangeRPS > 0 {
		exchange = monitor.NewThrottledExchange(exchange, cfg.ExchangeRPS)
	}
	var cached *monitor.CachedExchange
	if cfg.TickerCacheTTL > 0 {
		cached = monitor.NewCachedExchange(exchange, cfg.TickerCacheTTL)
		exchange = cached
	}

	valuer := portfolio.New(exchange, log.With().Str("component", "portfolio").Logger())
	valuer.QuoteAsset = cfg.QuoteAsset
	valuer.Pairs = cfg.AssetPairs

	analyzer := analysis.New(exchange)

	synth := jobs.New()
	synth.Prefix = cfg.JobPrefix
	synth.SessionTarget = cfg.SessionTarget

	bus := events.NewBus()
	sinks := []journal.Sink{
		journal.LogSink{Log: log.With().Str("component", "journal").Logger()},
		journal.BusSink{Bus: bus},
	}
	if opts.JournalWriter != nil {
		sinks = append(sinks, &journal.WriterSink{W: opts.JournalWriter, Log: log})
	}
	sink := journal.MultiSink{Sinks: sinks, Log: log}

	analysisOpts := analysis.Options{
		LookbackHours:   cfg.LookbackHours,
		IntervalMinutes: cfg.CandleIntervalMinutes,
	}

	checker := &monitor.Checker{
		Valuer:   valuer,
		Analyzer: analyzer,
		Pair:     cfg.WatchPair,
		Options:  analysisOpts,
		Sink:     sink,
		Metrics:  m,
		Log:      log.With().Str("component", "monitor").Logger(),
	}

	every := time.Duration(cfg.CheckIntervalMinutes) * time.Minute
	runner := monitor.NewRunner(checker, every, log.With().Str("component", "runner").Logger())
	if cached != nil {
		runner.Housekeep("ticker cache", cfg.TickerCacheTTL, cached.Prune)
	}

	return &App{
		Config:   cfg,
		Log:      log,
		Exchange: client,
		Valuer:   valuer,
		Analyzer: analyzer,
		Jobs:     synth,
		Journal:  sink,
		Events:   bus,
		Metrics:  m,
		Checker:  checker,
		Runner:   runner,
		Server: api.NewServer(api.Deps{
			Analyzer: analyzer,
			Valuer:   valuer,
			Jobs:     synth,
			Sink:     sink,
			Metrics:  m,
			Events:   bus,
			Options:  analysisOpts,
			Log:      log.With().Str("component", "api").Logger(),

			JWTSecret: cfg.JWTSecret,
		}),
	}, nil
}

// Load reads configuration from the environment (and CONFIG_FILE) and wires
// an App logging to stdout at the configured level.
func Load() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.LogLevel)
	log.Info().
		Str("pair", cfg.WatchPair).
		Str("quote", cfg.QuoteAsset).
		Bool("private_api", cfg.KrakenAPIKey != "").
		Msg("configuration loaded")
	return New(*cfg, log, Options{})
}

// Run starts periodic checks and serves HTTP until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if err := a.Runner.Start(ctx); err != nil {
		return err
	}
	defer a.Runner.Stop()
	go a.Server.EvictIdleClients(ctx)

	srv := &http.Server{Addr: a.Config.HTTPAddr, Handler: a.Server.Router}
	errCh := make(chan error, 1)
	go func() {
		a.Log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.Log.Info().Msg("shutting down http server")
	return srv.Shutdown(shutdownCtx)
}
