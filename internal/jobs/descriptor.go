package jobs

import (
	"encoding/json"
	"fmt"
	"time"
)

// Trigger is either At or Every. The interface is sealed so a descriptor can
// only ever carry one of the two schedule shapes the scheduler accepts.
type Trigger interface {
	kind() string
}

// At fires once at an absolute epoch-millisecond timestamp.
type At struct {
	Ms int64
}

func (At) kind() string { return "at" }

// Time returns the trigger instant.
func (a At) Time() time.Time { return time.UnixMilli(a.Ms) }

// Every fires repeatedly with a fixed period in milliseconds.
type Every struct {
	Ms int64
}

func (Every) kind() string { return "every" }

// Interval returns the period as a duration.
func (e Every) Interval() time.Duration { return time.Duration(e.Ms) * time.Millisecond }

// Descriptor describes a future job for the external scheduler. It is handed
// over on return and never modified afterwards.
type Descriptor struct {
	Name          string
	Trigger       Trigger
	PayloadText   string
	SessionTarget string
	Enabled       bool
}

type scheduleJSON struct {
	Kind    string `json:"kind"`
	AtMs    *int64 `json:"atMs,omitempty"`
	EveryMs *int64 `json:"everyMs,omitempty"`
}

type payloadJSON struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

type descriptorJSON struct {
	Name          string       `json:"name"`
	Schedule      scheduleJSON `json:"schedule"`
	Payload       payloadJSON  `json:"payload"`
	SessionTarget string       `json:"sessionTarget"`
	Enabled       bool         `json:"enabled"`
}

const payloadKindSystemEvent = "systemEvent"

// MarshalJSON renders the scheduler wire shape.
func (d Descriptor) MarshalJSON() ([]byte, error) {
	out := descriptorJSON{
		Name:          d.Name,
		Payload:       payloadJSON{Kind: payloadKindSystemEvent, Text: d.PayloadText},
		SessionTarget: d.SessionTarget,
		Enabled:       d.Enabled,
	}
	switch t := d.Trigger.(type) {
	case At:
		ms := t.Ms
		out.Schedule = scheduleJSON{Kind: t.kind(), AtMs: &ms}
	case Every:
		ms := t.Ms
		out.Schedule = scheduleJSON{Kind: t.kind(), EveryMs: &ms}
	default:
		return nil, fmt.Errorf("descriptor %s: no trigger", d.Name)
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the scheduler wire shape and rejects unknown or
// incomplete schedules.
func (d *Descriptor) UnmarshalJSON(data []byte) error {
	var in descriptorJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	var trig Trigger
	switch in.Schedule.Kind {
	case "at":
		if in.Schedule.AtMs == nil {
			return fmt.Errorf("descriptor %s: at schedule without atMs", in.Name)
		}
		trig = At{Ms: *in.Schedule.AtMs}
	case "every":
		if in.Schedule.EveryMs == nil {
			return fmt.Errorf("descriptor %s: every schedule without everyMs", in.Name)
		}
		trig = Every{Ms: *in.Schedule.EveryMs}
	default:
		return fmt.Errorf("descriptor %s: unknown schedule kind %q", in.Name, in.Schedule.Kind)
	}
	if in.Payload.Kind != payloadKindSystemEvent {
		return fmt.Errorf("descriptor %s: unknown payload kind %q", in.Name, in.Payload.Kind)
	}
	*d = Descriptor{
		Name:          in.Name,
		Trigger:       trig,
		PayloadText:   in.Payload.Text,
		SessionTarget: in.SessionTarget,
		Enabled:       in.Enabled,
	}
	return nil
}
