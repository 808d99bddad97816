package harness

import (
	"github.com/roach88/nback/internal/engine"
	"github.com/roach88/nback/internal/ir"
)

// Trace event types.
const (
	EventTick  = "tick"
	EventClaim = "claim"
)

// TraceEvent is one engine record as seen by the harness.
// Tick events carry the stimulus fields, claim events the claim fields.
type TraceEvent struct {
	Type string `json:"type"` // "tick" or "claim"
	Seq  int64  `json:"seq"`

	// tick
	Index         int64 `json:"index,omitempty"`
	Sound         int   `json:"sound,omitempty"`
	Position      int   `json:"position,omitempty"`
	Comparable    bool  `json:"comparable,omitempty"`
	SoundMatch    bool  `json:"sound_match,omitempty"`
	PositionMatch bool  `json:"position_match,omitempty"`

	// claim
	Tick    int64  `json:"tick,omitempty"`
	Channel string `json:"channel,omitempty"`
	Result  string `json:"result,omitempty"`
}

// Fields returns the event as a flat map keyed by record field name.
// Only the fields meaningful for the event type are present.
func (e TraceEvent) Fields() map[string]any {
	if e.Type == EventClaim {
		return map[string]any{
			"type":    e.Type,
			"seq":     e.Seq,
			"tick":    e.Tick,
			"channel": e.Channel,
			"result":  e.Result,
		}
	}
	return map[string]any{
		"type":           e.Type,
		"seq":            e.Seq,
		"index":          e.Index,
		"sound":          int64(e.Sound),
		"position":       int64(e.Position),
		"comparable":     e.Comparable,
		"sound_match":    e.SoundMatch,
		"position_match": e.PositionMatch,
	}
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause, assertion and the journal
	// replay check succeeded.
	Pass bool `json:"pass"`

	// SessionID is the id stamped on every record of the run.
	SessionID string `json:"session_id"`

	// Trace contains all ticks and claims in seq order.
	Trace []TraceEvent `json:"trace"`

	// Stats is the engine's final counter snapshot.
	Stats engine.Stats `json:"stats"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTickTrace appends a tick record to the trace.
func (r *Result) AddTickTrace(t ir.Tick) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:          EventTick,
		Seq:           t.Seq,
		Index:         t.Index,
		Sound:         t.Sound,
		Position:      t.Position,
		Comparable:    t.Comparable,
		SoundMatch:    t.SoundMatch,
		PositionMatch: t.PositionMatch,
	})
}

// AddClaimTrace appends a claim record to the trace.
func (r *Result) AddClaimTrace(c ir.Claim) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:    EventClaim,
		Seq:     c.Seq,
		Tick:    c.Tick,
		Channel: c.Channel,
		Result:  c.Result,
	})
}

// traceObserver feeds engine records into a Result.
type traceObserver struct {
	result *Result
}

func (o traceObserver) ObserveTick(t ir.Tick)   { o.result.AddTickTrace(t) }
func (o traceObserver) ObserveClaim(c ir.Claim) { o.result.AddClaimTrace(c) }
