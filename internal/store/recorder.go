package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/nback/internal/ir"
)

// Recorder journals every tick and claim an engine emits.
// It implements engine.Observer.
//
// Observer callbacks cannot return errors, so the first write failure is
// kept and every later record is dropped. Hosts check Err after the run.
//
// The session record must be written (WriteSession) before the engine emits
// its first record, or the foreign key check fails.
//
// Thread-safety: Recorder is safe for concurrent use via internal mutex.
type Recorder struct {
	ctx   context.Context
	store *Store

	mu     sync.Mutex
	err    error
	ticks  int
	claims int
}

// NewRecorder creates a recorder writing to s. ctx bounds every write.
func NewRecorder(ctx context.Context, s *Store) *Recorder {
	return &Recorder{ctx: ctx, store: s}
}

// ObserveTick writes t.
func (r *Recorder) ObserveTick(t ir.Tick) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return
	}
	if err := r.store.WriteTick(r.ctx, t); err != nil {
		r.err = fmt.Errorf("record tick %d: %w", t.Index, err)
		return
	}
	r.ticks++
}

// ObserveClaim writes c.
func (r *Recorder) ObserveClaim(c ir.Claim) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return
	}
	if err := r.store.WriteClaim(r.ctx, c); err != nil {
		r.err = fmt.Errorf("record claim seq %d: %w", c.Seq, err)
		return
	}
	r.claims++
}

// Err returns the first write error, or nil.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Counts returns how many ticks and claims were written.
func (r *Recorder) Counts() (ticks, claims int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ticks, r.claims
}
