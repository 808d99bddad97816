package store

import (
	"context"
	"testing"

	"github.com/roach88/nback/internal/engine"
)

func TestRecorder_WritesEveryRecord(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	src := engine.NewScriptedSource(
		engine.Stimulus{Sound: 1, Position: 1},
		engine.Stimulus{Sound: 1, Position: 2},
	)
	rec := NewRecorder(ctx, s)
	eng, err := engine.New(engine.Config{N: 1, Sounds: 4, Positions: 4},
		engine.WithSource(src), engine.WithSessionID("s1"), engine.WithObserver(rec))
	if err != nil {
		t.Fatalf("engine.New() failed: %v", err)
	}
	if err := s.WriteSession(ctx, eng.Session(0)); err != nil {
		t.Fatalf("WriteSession() failed: %v", err)
	}

	eng.ClaimPosition() // before first tick
	eng.Tick()
	eng.Tick()
	eng.ClaimSound()
	eng.ClaimSound()

	if err := rec.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	if ticks, claims := rec.Counts(); ticks != 2 || claims != 3 {
		t.Errorf("Counts() = (%d, %d), want (2, 3)", ticks, claims)
	}

	ticks, err := s.ReadTicks(ctx, "s1")
	if err != nil {
		t.Fatalf("ReadTicks() failed: %v", err)
	}
	if len(ticks) != 2 {
		t.Fatalf("len(ticks) = %d, want 2", len(ticks))
	}
	if !ticks[1].Comparable || !ticks[1].SoundMatch || ticks[1].PositionMatch {
		t.Errorf("second tick flags = %+v, want comparable sound match only", ticks[1])
	}

	claims, err := s.ReadClaims(ctx, "s1")
	if err != nil {
		t.Fatalf("ReadClaims() failed: %v", err)
	}
	wantResults := []string{"strike", "hit", "already_claimed"}
	for i, want := range wantResults {
		if claims[i].Result != want {
			t.Errorf("claims[%d].Result = %q, want %q", i, claims[i].Result, want)
		}
	}
	if claims[0].Tick != -1 {
		t.Errorf("claims[0].Tick = %d, want -1", claims[0].Tick)
	}
}

func TestRecorder_KeepsFirstError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// No session record: the first tick violates the foreign key.
	rec := NewRecorder(ctx, s)
	eng, err := engine.New(engine.Config{N: 1, Sounds: 1, Positions: 1},
		engine.WithSessionID("unwritten"), engine.WithObserver(rec))
	if err != nil {
		t.Fatalf("engine.New() failed: %v", err)
	}

	eng.Tick()
	first := rec.Err()
	if first == nil {
		t.Fatal("Err() = nil, want foreign key error")
	}

	eng.Tick()
	eng.ClaimSound()
	if rec.Err() != first {
		t.Errorf("Err() changed after later records: %v", rec.Err())
	}
	if ticks, claims := rec.Counts(); ticks != 0 || claims != 0 {
		t.Errorf("Counts() = (%d, %d), want (0, 0)", ticks, claims)
	}
}

func TestRecorder_CancelledContext(t *testing.T) {
	s := createTestStore(t)

	if err := s.WriteSession(context.Background(), createTestSession("s1", 1)); err != nil {
		t.Fatalf("WriteSession() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := NewRecorder(ctx, s)
	eng, err := engine.New(engine.Config{N: 1, Sounds: 8, Positions: 9},
		engine.WithSessionID("s1"), engine.WithObserver(rec))
	if err != nil {
		t.Fatalf("engine.New() failed: %v", err)
	}
	eng.Tick()

	if rec.Err() == nil {
		t.Error("Err() = nil, want context cancellation error")
	}
}
