package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/roach88/nback/internal/config"
	"github.com/roach88/nback/internal/engine"
	"github.com/roach88/nback/internal/ir"
)

// TickEvent is passed to the OnTick hook after every tick.
type TickEvent struct {
	SessionID string
	Index     int64
	Stimulus  engine.Stimulus
}

// ClaimEvent is passed to the OnClaim hook after every applied claim.
type ClaimEvent struct {
	SessionID string
	Tick      int64
	Channel   engine.Channel
	Result    engine.ClaimResult
}

// Session hosts one engine on a wall-clock schedule.
//
// A single loop goroutine owns the engine while running: it ticks on every
// Ticker signal and applies queued claims in arrival order. Claims queued
// before a tick signal are always applied before that tick.
//
// Claims are accepted only while running. Reset stops the session and
// replaces the engine, starting a new journal session with zeroed stats.
//
// Thread-safety: all methods are safe for concurrent use. Hooks run on the
// loop goroutine; they may call the read accessors but not Stop or Reset.
type Session struct {
	cfg    config.Config
	policy engine.OpportunityPolicy

	newTicker TickerFunc
	ids       engine.SessionIDGenerator
	observers []engine.Observer
	logger    *slog.Logger
	onTick    func(TickEvent)
	onClaim   func(ClaimEvent)
	onReset   func(ir.Session) error

	// engMu guards eng and record.
	engMu  sync.Mutex
	eng    *engine.Engine
	record ir.Session

	// mu guards the lifecycle fields below.
	mu      sync.Mutex
	running bool
	queue   *inputQueue
	cancel  context.CancelFunc
	done    chan struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithTicker replaces the wall-clock ticker. Default: NewTimeTicker.
func WithTicker(f TickerFunc) Option {
	return func(s *Session) {
		s.newTicker = f
	}
}

// WithIDGenerator sets the session id source. Default: UUIDv7Generator.
func WithIDGenerator(g engine.SessionIDGenerator) Option {
	return func(s *Session) {
		s.ids = g
	}
}

// WithObserver attaches observers to every engine the session builds.
func WithObserver(obs ...engine.Observer) Option {
	return func(s *Session) {
		s.observers = append(s.observers, obs...)
	}
}

// WithLogger sets the logger for the session and its engines.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// OnTick registers the view hook called with each new stimulus.
func OnTick(f func(TickEvent)) Option {
	return func(s *Session) {
		s.onTick = f
	}
}

// OnClaim registers a hook called with each scored claim.
func OnClaim(f func(ClaimEvent)) Option {
	return func(s *Session) {
		s.onClaim = f
	}
}

// OnReset registers a hook called with the record of every new engine,
// before it can emit anything. Journals write the session record here.
func OnReset(f func(ir.Session) error) Option {
	return func(s *Session) {
		s.onReset = f
	}
}

// New creates a stopped session with a fresh engine.
// cfg is validated first.
func New(cfg config.Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}

	s := &Session{
		cfg:       cfg,
		policy:    policy,
		newTicker: NewTimeTicker,
		ids:       engine.UUIDv7Generator{},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.Reset(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reset stops the session and builds a new engine with a new session id.
//
// A configured seed is reused, so every reset replays the same stimulus
// sequence; seed 0 draws a fresh one. The seed used is in Record().
func (s *Session) Reset() error {
	s.Stop()

	seed := s.cfg.Seed
	for seed == 0 {
		seed = rand.Int64()
	}

	id := s.ids.Generate()
	eng, err := engine.New(s.cfg.EngineConfig(),
		engine.WithSeed(uint64(seed)),
		engine.WithOpportunityPolicy(s.policy),
		engine.WithSessionID(id),
		engine.WithObserver(s.observers...),
		engine.WithLogger(s.logger),
	)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	record := eng.Session(seed)
	if s.onReset != nil {
		if err := s.onReset(record); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}

	s.engMu.Lock()
	s.eng, s.record = eng, record
	s.engMu.Unlock()

	s.logger.Info("session reset", "session", id, "n", s.cfg.N, "seed", seed)
	return nil
}

// Start begins ticking every cfg.Interval. A no-op if already running.
// The session stops by itself when ctx is cancelled.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	q := newInputQueue()
	t := s.newTicker(s.cfg.Interval)
	done := make(chan struct{})

	s.running = true
	s.queue = q
	s.cancel = cancel
	s.done = done

	go s.loop(ctx, q, t, done)
}

// Stop halts ticking and waits for the loop to apply every accepted claim.
// A no-op if not running.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.queue.Close()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
}

// Running reports whether the session is ticking.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Done returns a channel closed when the current run ends, or nil if the
// session was never started.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// ClaimSound queues a sound claim. Returns false, and ignores the claim, if
// the session is not running.
func (s *Session) ClaimSound() bool { return s.claim(engine.Sound) }

// ClaimPosition queues a position claim. Returns false, and ignores the
// claim, if the session is not running.
func (s *Session) ClaimPosition() bool { return s.claim(engine.Position) }

func (s *Session) claim(c engine.Channel) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return false
	}
	return s.queue.Enqueue(input{channel: c})
}

// Stats returns a snapshot of the current engine's counters.
func (s *Session) Stats() engine.Stats {
	s.engMu.Lock()
	defer s.engMu.Unlock()
	return s.eng.Stats()
}

// Ticks returns the number of ticks of the current engine.
func (s *Session) Ticks() int64 {
	s.engMu.Lock()
	defer s.engMu.Unlock()
	return s.eng.Ticks()
}

// Current returns the latest stimulus, or false before the first tick.
func (s *Session) Current() (engine.Stimulus, bool) {
	s.engMu.Lock()
	defer s.engMu.Unlock()
	return s.eng.Current()
}

// Record returns the journal record of the current engine.
func (s *Session) Record() ir.Session {
	s.engMu.Lock()
	defer s.engMu.Unlock()
	return s.record
}

// Config returns the session configuration.
func (s *Session) Config() config.Config { return s.cfg }

func (s *Session) loop(ctx context.Context, q *inputQueue, t Ticker, done chan struct{}) {
	defer close(done)
	defer t.Stop()
	defer s.finish(done)

	for {
		s.drain(q)
		select {
		case <-ctx.Done():
			s.drain(q)
			return
		case <-q.Wait():
		case <-t.C():
			s.drain(q)
			s.tick()
		}
	}
}

// finish clears the running flag when the loop exits on its own, e.g. on
// parent context cancellation.
func (s *Session) finish(done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == done && s.running {
		s.running = false
		s.queue.Close()
	}
}

func (s *Session) tick() {
	s.engMu.Lock()
	index := s.eng.Ticks()
	stim := s.eng.Tick()
	id := s.record.ID
	s.engMu.Unlock()

	if s.onTick != nil {
		s.onTick(TickEvent{SessionID: id, Index: index, Stimulus: stim})
	}
}

func (s *Session) drain(q *inputQueue) {
	for {
		in, ok := q.TryDequeue()
		if !ok {
			return
		}

		s.engMu.Lock()
		result := s.eng.Claim(in.channel)
		tick := s.eng.Ticks() - 1
		id := s.record.ID
		s.engMu.Unlock()

		if s.onClaim != nil {
			s.onClaim(ClaimEvent{SessionID: id, Tick: tick, Channel: in.channel, Result: result})
		}
	}
}
