package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"kraken-watch/internal/jobs"
	"kraken-watch/internal/journal"
)

type analysisQuery struct {
	LookbackHours   int `form:"lookback_hours" binding:"omitempty,min=1,max=720"`
	IntervalMinutes int `form:"interval_minutes" binding:"omitempty,oneof=1 5 15 30 60 240 1440 10080 21600"`
}

type createOnceRequest struct {
	DelayMinutes int    `json:"delay_minutes"`
	Description  string `json:"description" binding:"required,min=1"`
}

type createRepeatingRequest struct {
	IntervalMinutes int    `json:"interval_minutes"`
	DurationMinutes int    `json:"duration_minutes"`
	Description     string `json:"description" binding:"required,min=1"`
}

type createProgressiveRequest struct {
	DelaysMinutes []int  `json:"delays_minutes"`
	Description   string `json:"description" binding:"required,min=1"`
}

func respondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{
		"code":  code,
		"error": msg,
	})
}

// respondJobError maps synthesizer failures: range errors are the caller's.
func respondJobError(c *gin.Context, err error) {
	var verr *jobs.ValidationError
	if errors.As(err, &verr) {
		respondError(c, http.StatusBadRequest, "INVALID_SCHEDULE", verr.Error())
		return
	}
	respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
}

func (s *Server) getAnalysis(c *gin.Context) {
	var q analysisQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_QUERY", "invalid query parameters")
		return
	}

	opts := s.deps.Options
	if q.LookbackHours > 0 {
		opts.LookbackHours = q.LookbackHours
	}
	if q.IntervalMinutes > 0 {
		opts.IntervalMinutes = q.IntervalMinutes
	}

	res := s.deps.Analyzer.Analyze(c.Request.Context(), c.Param("pair"), opts)
	if !res.Available() {
		respondError(c, http.StatusServiceUnavailable, "ANALYSIS_UNAVAILABLE", res.Err.Error())
		return
	}
	c.JSON(http.StatusOK, res.Analysis)
}

func (s *Server) getPortfolio(c *gin.Context) {
	v := s.deps.Valuer.Value(c.Request.Context())
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordValuation(v.Total, v.Degraded)
	}

	body := gin.H{
		"total":    v.Total,
		"quote":    v.Quote,
		"priced":   v.Priced,
		"skipped":  v.Skipped,
		"degraded": v.Degraded,
	}
	if v.Err != nil {
		body["error"] = v.Err.Error()
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) createOnce(c *gin.Context) {
	var req createOnceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request payload")
		return
	}

	d, err := s.deps.Jobs.Once(req.DelayMinutes, req.Description)
	if err != nil {
		respondJobError(c, err)
		return
	}

	s.recordJobs(c, journal.ScheduleOnce, fmt.Sprintf("%dmin", req.DelayMinutes), req.Description, d)
	c.JSON(http.StatusCreated, gin.H{"jobs": []jobs.Descriptor{d}})
}

func (s *Server) createRepeating(c *gin.Context) {
	var req createRepeatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request payload")
		return
	}

	monitor, stop, err := s.deps.Jobs.Repeating(req.IntervalMinutes, req.DurationMinutes, req.Description)
	if err != nil {
		respondJobError(c, err)
		return
	}

	schedule := fmt.Sprintf("%dmin for %dmin", req.IntervalMinutes, req.DurationMinutes)
	s.recordJobs(c, journal.ScheduleRepeating, schedule, req.Description, monitor, stop)
	c.JSON(http.StatusCreated, gin.H{"jobs": []jobs.Descriptor{monitor, stop}})
}

func (s *Server) createProgressive(c *gin.Context) {
	var req createProgressiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request payload")
		return
	}

	ds, err := s.deps.Jobs.Progressive(req.DelaysMinutes, req.Description)
	if err != nil {
		respondJobError(c, err)
		return
	}

	// Nothing was scheduled, so nothing is journaled.
	if len(ds) > 0 {
		s.recordJobs(c, journal.ScheduleProgressive, fmt.Sprint(req.DelaysMinutes), req.Description, ds...)
	}
	c.JSON(http.StatusCreated, gin.H{"jobs": ds})
}

func (s *Server) recordJobs(c *gin.Context, typ, schedule, description string, ds ...jobs.Descriptor) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.JobsSynthesized.WithLabelValues(typ).Add(float64(len(ds)))
	}
	s.deps.Sink.Append(journal.NewScheduleEntry(s.deps.Clock(), typ, schedule, description, ds...))
	s.deps.Log.Info().
		Str("request_id", c.GetString("RequestID")).
		Str("operator", CurrentOperator(c)).
		Str("type", typ).
		Str("schedule", schedule).
		Int("jobs", len(ds)).
		Msg("jobs synthesized")
}
