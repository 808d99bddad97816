package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/nback/internal/engine"
	"github.com/roach88/nback/internal/ir"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSession creates a session record with minimal required fields.
func createTestSession(id string, n int) ir.Session {
	return ir.Session{
		ID:            id,
		N:             n,
		Sounds:        8,
		Positions:     9,
		Seed:          0,
		Policy:        "match",
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
}

// createTestTick creates a tick record with a real content-addressed id.
func createTestTick(sessionID string, seq, index int64, sound, position int) ir.Tick {
	return ir.Tick{
		ID:        ir.MustTickID(sessionID, seq, index, sound, position),
		SessionID: sessionID,
		Seq:       seq,
		Index:     index,
		Sound:     sound,
		Position:  position,
	}
}

// createTestClaim creates a claim record with a real content-addressed id.
func createTestClaim(sessionID string, seq, tick int64, channel, result string) ir.Claim {
	return ir.Claim{
		ID:        ir.MustClaimID(sessionID, seq, tick, channel, result),
		SessionID: sessionID,
		Seq:       seq,
		Tick:      tick,
		Channel:   channel,
		Result:    result,
	}
}

// step is one scripted engine call: tick, or a claim on a channel.
type step struct {
	tick    bool
	channel engine.Channel
}

func tickStep() step                  { return step{tick: true} }
func claimStep(c engine.Channel) step { return step{channel: c} }

// recordSession runs a real engine with a Recorder attached and returns it.
func recordSession(t *testing.T, s *Store, id string, cfg engine.Config, opts []engine.Option, steps []step) *engine.Engine {
	t.Helper()
	ctx := context.Background()

	rec := NewRecorder(ctx, s)
	opts = append(opts, engine.WithSessionID(id), engine.WithObserver(rec))
	eng, err := engine.New(cfg, opts...)
	if err != nil {
		t.Fatalf("engine.New() failed: %v", err)
	}
	if err := s.WriteSession(ctx, eng.Session(0)); err != nil {
		t.Fatalf("WriteSession() failed: %v", err)
	}

	for _, st := range steps {
		if st.tick {
			eng.Tick()
		} else {
			eng.Claim(st.channel)
		}
	}

	if err := rec.Err(); err != nil {
		t.Fatalf("recorder error: %v", err)
	}
	return eng
}
