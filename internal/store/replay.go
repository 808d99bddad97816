package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/nback/internal/engine"
	"github.com/roach88/nback/internal/ir"
)

// SessionEvent is a single journaled event (tick or claim).
type SessionEvent struct {
	Type  SessionEventType
	Seq   int64
	ID    string
	Tick  *ir.Tick
	Claim *ir.Claim
}

// SessionEventType distinguishes between ticks and claims.
type SessionEventType int

const (
	EventTick SessionEventType = iota
	EventClaim
)

// String returns the event type as a string.
func (t SessionEventType) String() string {
	switch t {
	case EventTick:
		return "tick"
	case EventClaim:
		return "claim"
	default:
		return "unknown"
	}
}

// SessionEvents returns the ticks and claims of a session merged into one
// stream in engine call order.
func (s *Store) SessionEvents(ctx context.Context, sessionID string) ([]SessionEvent, error) {
	ticks, err := s.ReadTicks(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	claims, err := s.ReadClaims(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	events := make([]SessionEvent, 0, len(ticks)+len(claims))
	for i := range ticks {
		events = append(events, SessionEvent{Type: EventTick, Seq: ticks[i].Seq, ID: ticks[i].ID, Tick: &ticks[i]})
	}
	for i := range claims {
		events = append(events, SessionEvent{Type: EventClaim, Seq: claims[i].Seq, ID: claims[i].ID, Claim: &claims[i]})
	}

	slices.SortStableFunc(events, compareEvents)
	return events, nil
}

// compareEvents orders by seq, then ticks before claims, then by ID.
func compareEvents(a, b SessionEvent) int {
	if a.Seq != b.Seq {
		if a.Seq < b.Seq {
			return -1
		}
		return 1
	}
	if a.Type != b.Type {
		return int(a.Type) - int(b.Type)
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}

// Mismatch is one disagreement between the journal and the reference.
type Mismatch struct {
	Seq   int64  `json:"seq"`
	ID    string `json:"id,omitempty"`
	Field string `json:"field"`
	Want  string `json:"want"`
	Got   string `json:"got"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("seq %d: %s: want %s, got %s", m.Seq, m.Field, m.Want, m.Got)
}

// ReplayReport is the outcome of re-verifying one session.
type ReplayReport struct {
	SessionID  string       `json:"session_id"`
	Ticks      int          `json:"ticks"`
	Claims     int          `json:"claims"`
	Stats      engine.Stats `json:"stats"`
	Consistent bool         `json:"consistent"`
	Mismatches []Mismatch   `json:"mismatches,omitempty"`
}

// Replay re-verifies a journaled session against a reference that keeps the
// complete tick list and compares ticks[k] with ticks[k-n] directly.
//
// It checks tick indexes and match flags, every claim's tick and result, and
// that the SQL-derived SessionStats equal the reference counters. The
// reference counters are returned in Stats.
func (s *Store) Replay(ctx context.Context, sessionID string) (ReplayReport, error) {
	sess, err := s.ReadSession(ctx, sessionID)
	if err != nil {
		return ReplayReport{}, fmt.Errorf("replay: %w", err)
	}
	policy, err := engine.ParseOpportunityPolicy(sess.Policy)
	if err != nil {
		return ReplayReport{}, fmt.Errorf("replay: %w", err)
	}
	events, err := s.SessionEvents(ctx, sessionID)
	if err != nil {
		return ReplayReport{}, fmt.Errorf("replay: %w", err)
	}

	r := &replayer{
		n:      int64(sess.N),
		sess:   sess,
		policy: policy,
		report: ReplayReport{SessionID: sessionID},
	}
	for _, ev := range events {
		switch ev.Type {
		case EventTick:
			r.tick(*ev.Tick)
		case EventClaim:
			r.claim(*ev.Claim)
		}
	}

	journaled, err := s.SessionStats(ctx, sessionID)
	if err != nil {
		return ReplayReport{}, fmt.Errorf("replay: %w", err)
	}
	for _, c := range engine.Channels {
		got, want := journaled.Of(c), r.stats.Of(c)
		if got != want {
			r.mismatch(0, "", "stats."+c.String(), fmtStats(want), fmtStats(got))
		}
	}

	r.report.Stats = r.stats
	r.report.Consistent = len(r.report.Mismatches) == 0
	return r.report, nil
}

type replayer struct {
	n      int64
	sess   ir.Session
	policy engine.OpportunityPolicy

	ticks   []ir.Tick
	match   [2]bool
	claimed [2]bool
	stats   engine.Stats

	report ReplayReport
}

func (r *replayer) channelStats(c engine.Channel) *engine.ChannelStats {
	if c == engine.Sound {
		return &r.stats.Sound
	}
	return &r.stats.Position
}

func (r *replayer) mismatch(seq int64, id, field string, want, got any) {
	r.report.Mismatches = append(r.report.Mismatches, Mismatch{
		Seq:   seq,
		ID:    id,
		Field: field,
		Want:  fmt.Sprint(want),
		Got:   fmt.Sprint(got),
	})
}

func (r *replayer) tick(t ir.Tick) {
	k := int64(len(r.ticks))
	if t.Index != k {
		r.mismatch(t.Seq, t.ID, "tick.index", k, t.Index)
	}
	if t.Sound < 0 || t.Sound >= r.sess.Sounds {
		r.mismatch(t.Seq, t.ID, "tick.sound", fmt.Sprintf("[0,%d)", r.sess.Sounds), t.Sound)
	}
	if t.Position < 0 || t.Position >= r.sess.Positions {
		r.mismatch(t.Seq, t.ID, "tick.position", fmt.Sprintf("[0,%d)", r.sess.Positions), t.Position)
	}
	r.ticks = append(r.ticks, t)

	comparable := k >= r.n
	r.match = [2]bool{}
	if comparable {
		back := r.ticks[k-r.n]
		r.match[engine.Sound] = t.Sound == back.Sound
		r.match[engine.Position] = t.Position == back.Position
	}
	r.claimed = [2]bool{}

	if t.Comparable != comparable {
		r.mismatch(t.Seq, t.ID, "tick.comparable", comparable, t.Comparable)
	}
	if t.SoundMatch != r.match[engine.Sound] {
		r.mismatch(t.Seq, t.ID, "tick.sound_match", r.match[engine.Sound], t.SoundMatch)
	}
	if t.PositionMatch != r.match[engine.Position] {
		r.mismatch(t.Seq, t.ID, "tick.position_match", r.match[engine.Position], t.PositionMatch)
	}

	for _, c := range engine.Channels {
		if (r.policy == engine.OpportunityOnComparable && comparable) ||
			(r.policy == engine.OpportunityOnMatch && r.match[c]) {
			r.channelStats(c).Opportunities++
		}
	}
	r.report.Ticks++
}

func (r *replayer) claim(c ir.Claim) {
	r.report.Claims++

	current := int64(len(r.ticks)) - 1
	if c.Tick != current {
		r.mismatch(c.Seq, c.ID, "claim.tick", current, c.Tick)
	}

	ch, err := engine.ParseChannel(c.Channel)
	if err != nil {
		r.mismatch(c.Seq, c.ID, "claim.channel", "sound|position", c.Channel)
		return
	}

	var want engine.ClaimResult
	switch {
	case r.claimed[ch]:
		want = engine.AlreadyClaimed
	case r.match[ch]:
		r.claimed[ch] = true
		r.channelStats(ch).Hits++
		want = engine.Hit
	default:
		r.claimed[ch] = true
		r.channelStats(ch).Strikes++
		want = engine.Strike
	}

	if c.Result != want.String() {
		r.mismatch(c.Seq, c.ID, "claim.result", want, c.Result)
	}
}

func fmtStats(s engine.ChannelStats) string {
	return fmt.Sprintf("hits=%d strikes=%d opportunities=%d", s.Hits, s.Strikes, s.Opportunities)
}
