// Package journal is the append-only event log boundary. Producers hand over
// fully formed entries; sinks never report failure back to the caller.
package journal

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"kraken-watch/internal/analysis"
	"kraken-watch/internal/events"
	"kraken-watch/internal/jobs"
)

const timeLayout = "2006-01-02 15:04:05"

// Entry is one journal record.
type Entry interface {
	Time() time.Time
	Kind() string
	Render() string
	Fields(e *zerolog.Event) *zerolog.Event
}

// Sink accepts entries fire-and-forget.
type Sink interface {
	Append(Entry)
}

// AnalysisEntry records one market check.
type AnalysisEntry struct {
	At             time.Time
	PortfolioValue decimal.Decimal
	Analysis       analysis.Analysis
}

func (e AnalysisEntry) Time() time.Time { return e.At }
func (e AnalysisEntry) Kind() string    { return "analysis" }

func (e AnalysisEntry) Render() string {
	a := e.Analysis
	var b strings.Builder
	fmt.Fprintf(&b, "\n### %s - Market Check\n", e.At.Format(timeLayout))
	fmt.Fprintf(&b, "- **Portfolio Value:** $%s\n", e.PortfolioValue.StringFixed(2))
	fmt.Fprintf(&b, "- **%s Price:** $%s\n", a.Pair, a.CurrentPrice.StringFixed(2))
	fmt.Fprintf(&b, "- **Period Low:** $%s\n", a.LowPrice.StringFixed(2))
	fmt.Fprintf(&b, "- **Period High:** $%s\n", a.HighPrice.StringFixed(2))
	fmt.Fprintf(&b, "- **Period Avg:** $%s\n", a.AveragePrice.StringFixed(2))
	fmt.Fprintf(&b, "- **Signal:** %s\n", a.Signal)
	fmt.Fprintf(&b, "- **Reason:** %s\n\n", a.Reason)
	return b.String()
}

func (e AnalysisEntry) Fields(ev *zerolog.Event) *zerolog.Event {
	a := e.Analysis
	return ev.Str("pair", a.Pair).
		Str("portfolio_value", e.PortfolioValue.StringFixed(2)).
		Str("price", a.CurrentPrice.String()).
		Str("low", a.LowPrice.String()).
		Str("high", a.HighPrice.String()).
		Str("avg", a.AveragePrice.String()).
		Str("signal", string(a.Signal)).
		Str("reason", a.Reason)
}

// Schedule types.
const (
	ScheduleOnce        = "ONCE"
	ScheduleRepeating   = "REPEATING"
	ScheduleProgressive = "PROGRESSIVE"
)

// ScheduleEntry records a batch of synthesized job descriptors.
type ScheduleEntry struct {
	At          time.Time
	Type        string
	Schedule    string
	Target      time.Time
	Description string
}

// NewScheduleEntry targets the last At trigger among ds (the stop job for a
// repeating pair, the final check for a progressive batch).
func NewScheduleEntry(at time.Time, typ, schedule, description string, ds ...jobs.Descriptor) ScheduleEntry {
	e := ScheduleEntry{At: at, Type: typ, Schedule: schedule, Description: description}
	for _, d := range ds {
		if trig, ok := d.Trigger.(jobs.At); ok {
			e.Target = trig.Time().In(at.Location())
		}
	}
	return e
}

func (e ScheduleEntry) Time() time.Time { return e.At }
func (e ScheduleEntry) Kind() string    { return "schedule" }

func (e ScheduleEntry) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n### %s - Scheduled Task\n", e.At.Format(timeLayout))
	fmt.Fprintf(&b, "- **Type:** %s\n", e.Type)
	fmt.Fprintf(&b, "- **Schedule:** %s\n", e.Schedule)
	fmt.Fprintf(&b, "- **Target Time:** %s\n", e.Target.Format(timeLayout))
	fmt.Fprintf(&b, "- **Task:** %s\n\n", e.Description)
	return b.String()
}

func (e ScheduleEntry) Fields(ev *zerolog.Event) *zerolog.Event {
	return ev.Str("type", e.Type).
		Str("schedule", e.Schedule).
		Time("target", e.Target).
		Str("task", e.Description)
}

// LogSink writes entries as structured log events.
type LogSink struct {
	Log zerolog.Logger
}

func (s LogSink) Append(e Entry) {
	e.Fields(s.Log.Info().Str("entry", e.Kind()).Time("at", e.Time())).Msg("journal entry")
}

// WriterSink appends rendered entries to W. Write errors are logged and
// dropped.
type WriterSink struct {
	W   io.Writer
	Log zerolog.Logger

	mu sync.Mutex
}

func (s *WriterSink) Append(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.W == nil {
		return
	}
	if _, err := io.WriteString(s.W, e.Render()); err != nil {
		s.Log.Warn().Err(err).Str("entry", e.Kind()).Msg("journal write failed")
	}
}

// MultiSink fans out to every sink; a panicking sink does not stop the rest
// or reach the caller.
type MultiSink struct {
	Sinks []Sink
	Log   zerolog.Logger
}

func (m MultiSink) Append(e Entry) {
	for _, s := range m.Sinks {
		m.appendOne(s, e)
	}
}

func (m MultiSink) appendOne(s Sink, e Entry) {
	defer func() {
		if p := recover(); p != nil {
			m.Log.Error().Interface("panic", p).Str("entry", e.Kind()).Msg("journal sink panicked")
		}
	}()
	s.Append(e)
}

// BusSink publishes entries to live subscribers: analyses on
// EventMarketCheck, schedules on EventJobsCreated.
type BusSink struct {
	Bus *events.Bus
}

func (s BusSink) Append(e Entry) {
	switch e.(type) {
	case AnalysisEntry:
		s.Bus.Publish(events.EventMarketCheck, e)
	case ScheduleEntry:
		s.Bus.Publish(events.EventJobsCreated, e)
	}
}

// Discard drops every entry.
type Discard struct{}

func (Discard) Append(Entry) {}
