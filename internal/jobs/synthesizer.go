// Package jobs builds scheduler job descriptors for one-shot, bounded
// repeating and progressive follow-up checks. Builders are pure: they read the
// clock and return values, nothing is submitted or recorded here.
package jobs

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultPrefix        = "claw"
	DefaultSessionTarget = "main"

	stopPrefix = "stop-"
)

// ValidationError rejects an input range before any descriptor is built.
type ValidationError struct {
	Field  string
	Value  int
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %d: %s", e.Field, e.Value, e.Reason)
}

// Synthesizer creates descriptors. Names are the prefix, a kind and the
// creation time in milliseconds, so two calls in the same millisecond collide.
type Synthesizer struct {
	Prefix        string
	SessionTarget string
	Clock         func() time.Time
}

// New returns a Synthesizer with the default prefix and session target.
func New() *Synthesizer {
	return &Synthesizer{Prefix: DefaultPrefix, SessionTarget: DefaultSessionTarget, Clock: time.Now}
}

func (s *Synthesizer) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func (s *Synthesizer) name(kind string, at time.Time) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return prefix + "-" + kind + "-" + strconv.FormatInt(at.UnixMilli(), 10)
}

func (s *Synthesizer) descriptor(name string, trig Trigger, text string) Descriptor {
	target := s.SessionTarget
	if target == "" {
		target = DefaultSessionTarget
	}
	return Descriptor{Name: name, Trigger: trig, PayloadText: text, SessionTarget: target, Enabled: true}
}

// Once schedules a single wake-up delayMinutes from now.
func (s *Synthesizer) Once(delayMinutes int, description string) (Descriptor, error) {
	if delayMinutes < 0 {
		return Descriptor{}, &ValidationError{Field: "delay minutes", Value: delayMinutes, Reason: "must not be negative"}
	}
	now := s.now()
	at := now.Add(time.Duration(delayMinutes) * time.Minute)
	return s.descriptor(
		s.name("task", now),
		At{Ms: at.UnixMilli()},
		"🔔 SCHEDULED TASK: "+description,
	), nil
}

// Repeating returns an Every descriptor plus a paired stop descriptor due
// durationMinutes from now. The scheduler has no "run until" primitive, so the
// stop job's payload names the monitor job for whoever disables it.
func (s *Synthesizer) Repeating(intervalMinutes, durationMinutes int, description string) (monitor, stop Descriptor, err error) {
	if intervalMinutes <= 0 {
		return Descriptor{}, Descriptor{}, &ValidationError{Field: "interval minutes", Value: intervalMinutes, Reason: "must be positive"}
	}
	if durationMinutes < 0 {
		return Descriptor{}, Descriptor{}, &ValidationError{Field: "duration minutes", Value: durationMinutes, Reason: "must not be negative"}
	}
	now := s.now()
	monitorName := s.name("monitor", now)
	interval := time.Duration(intervalMinutes) * time.Minute

	monitor = s.descriptor(
		monitorName,
		Every{Ms: interval.Milliseconds()},
		"🔁 REPEATING TASK: "+description,
	)
	stop = s.descriptor(
		StopName(monitorName),
		At{Ms: now.Add(time.Duration(durationMinutes) * time.Minute).UnixMilli()},
		"🛑 STOP MONITOR: Disable "+monitorName,
	)
	return monitor, stop, nil
}

// Progressive schedules one check per delay, in input order, each payload
// numbered "#i/n". An empty delays slice yields an empty result.
func (s *Synthesizer) Progressive(delaysMinutes []int, description string) ([]Descriptor, error) {
	for _, d := range delaysMinutes {
		if d < 0 {
			return nil, &ValidationError{Field: "delay minutes", Value: d, Reason: "must not be negative"}
		}
	}
	now := s.now()
	base := s.name("progressive", now)
	out := make([]Descriptor, 0, len(delaysMinutes))
	for i, d := range delaysMinutes {
		at := now.Add(time.Duration(d) * time.Minute)
		out = append(out, s.descriptor(
			base+"-"+strconv.Itoa(i),
			At{Ms: at.UnixMilli()},
			fmt.Sprintf("📊 PROGRESSIVE CHECK #%d/%d: %s", i+1, len(delaysMinutes), description),
		))
	}
	return out, nil
}

// StopName is the name of the stop job paired with monitorName.
func StopName(monitorName string) string { return stopPrefix + monitorName }

// StopTarget recovers the monitor job name from a stop job name.
func StopTarget(stopName string) (string, bool) {
	if !strings.HasPrefix(stopName, stopPrefix) || len(stopName) == len(stopPrefix) {
		return "", false
	}
	return strings.TrimPrefix(stopName, stopPrefix), true
}
