package store

import (
	"context"
	"fmt"

	"github.com/roach88/nback/internal/ir"
)

// WriteSession inserts a session record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
// Other constraint violations (e.g., n < 1) still return errors.
func (s *Store) WriteSession(ctx context.Context, sess ir.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions
		(id, n, sounds, positions, seed, policy, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		sess.ID,
		sess.N,
		sess.Sounds,
		sess.Positions,
		sess.Seed,
		sess.Policy,
		sess.EngineVersion,
		sess.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// WriteTick inserts a tick record.
// Uses ON CONFLICT DO NOTHING for idempotency.
//
// Note: The session referenced by SessionID must exist (foreign key constraint).
func (s *Store) WriteTick(ctx context.Context, t ir.Tick) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ticks
		(id, session_id, seq, idx, sound, position, comparable, sound_match, position_match)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		t.ID,
		t.SessionID,
		t.Seq,
		t.Index,
		t.Sound,
		t.Position,
		t.Comparable,
		t.SoundMatch,
		t.PositionMatch,
	)
	if err != nil {
		return fmt.Errorf("write tick: %w", err)
	}
	return nil
}

// WriteClaim inserts a claim record, AlreadyClaimed results included.
// Uses ON CONFLICT(id) DO NOTHING for idempotency.
//
// Note: The session referenced by SessionID must exist (foreign key constraint).
func (s *Store) WriteClaim(ctx context.Context, c ir.Claim) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO claims
		(id, session_id, seq, tick, channel, result)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		c.ID,
		c.SessionID,
		c.Seq,
		c.Tick,
		c.Channel,
		c.Result,
	)
	if err != nil {
		return fmt.Errorf("write claim: %w", err)
	}
	return nil
}
