package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"kraken-watch/internal/analysis"
	"kraken-watch/internal/events"
	"kraken-watch/internal/jobs"
	"kraken-watch/internal/journal"
	"kraken-watch/internal/metrics"
	"kraken-watch/internal/portfolio"
)

// MarketAnalyzer produces an analysis or an unavailable result.
type MarketAnalyzer interface {
	Analyze(ctx context.Context, pair string, opts analysis.Options) analysis.Result
}

// Valuator produces a portfolio valuation.
type Valuator interface {
	Value(ctx context.Context) portfolio.Valuation
}

// Deps are the components the HTTP surface exposes. Metrics, Sink and Events
// are optional. A non-empty JWTSecret puts the job endpoints behind
// AuthMiddleware.
type Deps struct {
	Analyzer MarketAnalyzer
	Valuer   Valuator
	Jobs     *jobs.Synthesizer
	Sink     journal.Sink
	Metrics  *metrics.Metrics
	Events   *events.Bus
	Options  analysis.Options
	Log      zerolog.Logger
	Clock    func() time.Time

	JWTSecret string
}

const (
	requestTimeout = 30 * time.Second
	limiterIdle    = 5 * time.Minute
)

// Server wires HTTP endpoints around the market checks and job synthesis.
type Server struct {
	Router   *gin.Engine
	deps     Deps
	limiters *ipLimiters
}

func NewServer(deps Deps) *Server {
	if deps.Sink == nil {
		deps.Sink = journal.Discard{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger(deps.Log, deps.Metrics)) // after ID is set
	limiters := newIPLimiters(20, 50)
	r.Use(RateLimitMiddleware(limiters, deps.Log))
	r.Use(TimeoutMiddleware(requestTimeout, deps.Log))

	s := &Server{Router: r, deps: deps, limiters: limiters}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	if s.deps.Metrics != nil {
		s.Router.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	}

	api := s.Router.Group("/api")
	{
		api.GET("/analysis/:pair", s.getAnalysis)
		api.GET("/portfolio", s.getPortfolio)
		if s.deps.Events != nil {
			api.GET("/events", s.websocket)
		}

		j := api.Group("/jobs")
		if s.deps.JWTSecret != "" {
			j.Use(AuthMiddleware(s.deps.JWTSecret))
		}
		{
			j.POST("/once", s.createOnce)
			j.POST("/repeating", s.createRepeating)
			j.POST("/progressive", s.createProgressive)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// EvictIdleClients drops per-IP rate limiters of clients idle for five
// minutes. It blocks until ctx is done.
func (s *Server) EvictIdleClients(ctx context.Context) {
	s.limiters.run(ctx, limiterIdle)
}
