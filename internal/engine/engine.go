package engine

import (
	"io"
	"log/slog"

	"github.com/roach88/nback/internal/ir"
)

// Config is the construction-time configuration of an Engine.
// All three values must be >= 1.
type Config struct {
	N         int // back-reference depth
	Sounds    int // size of the sound alphabet
	Positions int // size of the position alphabet
}

// Validate returns a *ConfigError for the first field below its minimum.
func (c Config) Validate() error {
	switch {
	case c.N < 1:
		return newConfigError("n", c.N, 1)
	case c.Sounds < 1:
		return newConfigError("sounds", c.Sounds, 1)
	case c.Positions < 1:
		return newConfigError("positions", c.Positions, 1)
	}
	return nil
}

// Observer receives a record for every tick and every claim, in call order.
// Implemented by store.Recorder and metrics.Collector.
//
// Observers run synchronously inside Tick and Claim and must not call back
// into the engine.
type Observer interface {
	ObserveTick(ir.Tick)
	ObserveClaim(ir.Claim)
}

// ChannelStats is re-exported from ir so callers of the engine need not
// import the record package for plain counter reads.
type ChannelStats = ir.ChannelStats

// Stats is a snapshot of both channels' counters.
type Stats struct {
	Sound    ChannelStats `json:"sound"`
	Position ChannelStats `json:"position"`
}

// Of returns the counters of one channel.
func (s Stats) Of(c Channel) ChannelStats {
	if c == Sound {
		return s.Sound
	}
	return s.Position
}

func (s *Stats) at(c Channel) *ChannelStats {
	if c == Sound {
		return &s.Sound
	}
	return &s.Position
}

// Engine is the dual n-back match engine.
//
// It owns the stimulus history, draws a new stimulus on every Tick, scores
// claims against the n-back rule and accumulates per-channel statistics.
//
// Each tick has two phases: generate (Tick clears the claim flags) and the
// claim window (any number of Claim calls; the first per channel is scored).
//
// Thread-safety model: none. The host must serialize Tick and Claim calls
// in time order. session.Session does this with a single-writer loop.
//
// INVARIANTS:
//   - history capacity is N and never changes
//   - hits, strikes and opportunities never decrease
//   - at most one claim per channel per tick is scored
type Engine struct {
	cfg     Config
	history *History

	// current is the latest stimulus; nBack the stimulus exactly N ticks
	// before it, captured when Tick evicted it from history.
	current    Stimulus
	nBack      Stimulus
	hasCurrent bool
	comparable bool

	claimed [numChannels]bool
	stats   Stats
	ticks   int64

	source    Source
	clock     *Clock
	policy    OpportunityPolicy
	sessionID string
	observers []Observer
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithSource sets the stimulus source.
// Default: an entropy-seeded uniform source.
func WithSource(src Source) Option {
	return func(e *Engine) {
		e.source = src
	}
}

// WithSeed is shorthand for WithSource(NewRandomSource(seed)).
func WithSeed(seed uint64) Option {
	return WithSource(NewRandomSource(seed))
}

// WithOpportunityPolicy selects how opportunities are counted.
// Default: OpportunityOnMatch.
func WithOpportunityPolicy(p OpportunityPolicy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithClock sets the logical clock used to stamp records.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithSessionID sets the session id carried by every record.
func WithSessionID(id string) Option {
	return func(e *Engine) {
		e.sessionID = id
	}
}

// WithObserver registers observers, notified in registration order.
func WithObserver(obs ...Observer) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, obs...)
	}
}

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an engine for cfg.
//
// Returns a *ConfigError (matching ErrInvalidConfiguration) if N, Sounds or
// Positions is below 1. Stats start at zero and both claim flags are clear.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:     cfg,
		history: NewHistory(cfg.N),
		source:  entropySource{},
		clock:   NewClock(),
		policy:  OpportunityOnMatch,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Tick generates the next stimulus and opens its claim window.
//
// The stimulus evicted from history by this write is the one from exactly N
// ticks ago; it becomes the comparison target for claims until the next
// Tick. Never fails.
func (e *Engine) Tick() Stimulus {
	s := e.source.Next(e.cfg.Sounds, e.cfg.Positions)

	e.claimed = [numChannels]bool{}
	e.nBack, e.comparable = e.history.Push(s)
	e.current = s
	e.hasCurrent = true
	index := e.ticks
	e.ticks++

	for _, c := range Channels {
		if e.countsAsOpportunity(c) {
			e.stats.at(c).Opportunities++
		}
	}

	seq := e.clock.Next()
	e.logger.Debug("tick",
		"session", e.sessionID,
		"seq", seq,
		"index", index,
		"sound", s.Sound,
		"position", s.Position,
		"comparable", e.comparable,
	)

	if len(e.observers) > 0 {
		rec := ir.Tick{
			ID:            ir.MustTickID(e.sessionID, seq, index, s.Sound, s.Position),
			SessionID:     e.sessionID,
			Seq:           seq,
			Index:         index,
			Sound:         s.Sound,
			Position:      s.Position,
			Comparable:    e.comparable,
			SoundMatch:    e.isMatch(Sound),
			PositionMatch: e.isMatch(Position),
		}
		for _, o := range e.observers {
			o.ObserveTick(rec)
		}
	}

	return s
}

// isMatch reports whether the current stimulus matches the one N ticks
// before it on channel c. False while no N-back stimulus exists yet.
func (e *Engine) isMatch(c Channel) bool {
	if !e.hasCurrent || !e.comparable {
		return false
	}
	return e.current.Field(c) == e.nBack.Field(c)
}

func (e *Engine) countsAsOpportunity(c Channel) bool {
	if e.policy == OpportunityOnComparable {
		return e.comparable
	}
	return e.isMatch(c)
}

// Claim asserts that the current stimulus matches the N-back stimulus on
// channel c.
//
// The first claim per channel within a tick is scored as Hit or Strike;
// later ones return AlreadyClaimed and change nothing. Claims made before
// any Tick, or before N ticks of history exist, are Strikes. Never fails.
//
// Panics if c is not a defined channel.
func (e *Engine) Claim(c Channel) ClaimResult {
	if !c.Valid() {
		panic("engine: unknown channel " + c.String())
	}

	var result ClaimResult
	switch {
	case e.claimed[c]:
		result = AlreadyClaimed
	case e.isMatch(c):
		e.claimed[c] = true
		e.stats.at(c).Hits++
		result = Hit
	default:
		e.claimed[c] = true
		e.stats.at(c).Strikes++
		result = Strike
	}

	seq := e.clock.Next()
	tick := e.ticks - 1
	e.logger.Debug("claim",
		"session", e.sessionID,
		"seq", seq,
		"tick", tick,
		"channel", c.String(),
		"result", result.String(),
	)

	if len(e.observers) > 0 {
		rec := ir.Claim{
			ID:        ir.MustClaimID(e.sessionID, seq, tick, c.String(), result.String()),
			SessionID: e.sessionID,
			Seq:       seq,
			Tick:      tick,
			Channel:   c.String(),
			Result:    result.String(),
		}
		for _, o := range e.observers {
			o.ObserveClaim(rec)
		}
	}

	return result
}

// ClaimSound is Claim(Sound).
func (e *Engine) ClaimSound() ClaimResult { return e.Claim(Sound) }

// ClaimPosition is Claim(Position).
func (e *Engine) ClaimPosition() ClaimResult { return e.Claim(Position) }

// Hits returns the number of correct claims on c.
func (e *Engine) Hits(c Channel) int64 { return e.stats.Of(c).Hits }

// Strikes returns the number of incorrect claims on c.
func (e *Engine) Strikes(c Channel) int64 { return e.stats.Of(c).Strikes }

// Opportunities returns the number of ticks counted as opportunities on c
// under the engine's OpportunityPolicy.
func (e *Engine) Opportunities(c Channel) int64 { return e.stats.Of(c).Opportunities }

// Misses returns Opportunities(c) - Hits(c). Under OpportunityOnMatch this is
// the number of true matches that were never claimed.
func (e *Engine) Misses(c Channel) int64 {
	st := e.stats.Of(c)
	return st.Opportunities - st.Hits
}

// Stats returns a snapshot of all counters.
func (e *Engine) Stats() Stats { return e.stats }

// Claimed reports whether c has been claimed in the current tick.
func (e *Engine) Claimed(c Channel) bool { return e.claimed[c] }

// Current returns the latest stimulus, or false before the first Tick.
func (e *Engine) Current() (Stimulus, bool) { return e.current, e.hasCurrent }

// History returns the stimuli still retained, oldest first.
func (e *Engine) History() []Stimulus { return e.history.Recent() }

// Ticks returns the number of ticks so far.
func (e *Engine) Ticks() int64 { return e.ticks }

// Config returns the construction configuration.
func (e *Engine) Config() Config { return e.cfg }

// Policy returns the opportunity policy in force.
func (e *Engine) Policy() OpportunityPolicy { return e.policy }

// SessionID returns the session id stamped on records.
func (e *Engine) SessionID() string { return e.sessionID }

// Session describes this engine as a journal record.
// seed is recorded as given; pass 0 for scripted or entropy sources.
func (e *Engine) Session(seed int64) ir.Session {
	return ir.Session{
		ID:            e.sessionID,
		N:             e.cfg.N,
		Sounds:        e.cfg.Sounds,
		Positions:     e.cfg.Positions,
		Seed:          seed,
		Policy:        e.policy.String(),
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
}
