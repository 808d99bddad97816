package store

import (
	"context"
	"testing"
)

func TestWriteSession_Basic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	sess := createTestSession("session-1", 3)
	sess.Seed = 42
	if err := s.WriteSession(ctx, sess); err != nil {
		t.Fatalf("WriteSession() failed: %v", err)
	}

	got, err := s.ReadSession(ctx, "session-1")
	if err != nil {
		t.Fatalf("ReadSession() failed: %v", err)
	}
	if got != sess {
		t.Errorf("ReadSession() = %+v, want %+v", got, sess)
	}
}

func TestWriteSession_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	sess := createTestSession("session-1", 2)
	for i := 0; i < 3; i++ {
		if err := s.WriteSession(ctx, sess); err != nil {
			t.Fatalf("WriteSession() #%d failed: %v", i, err)
		}
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("sessions = %d, want 1", count)
	}
}

func TestWriteSession_RejectsInvalid(t *testing.T) {
	s := createTestStore(t)

	sess := createTestSession("session-1", 0)
	if err := s.WriteSession(context.Background(), sess); err == nil {
		t.Error("expected CHECK violation for n = 0")
	}
}

func TestWriteTick_Basic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.WriteSession(ctx, createTestSession("s1", 1)); err != nil {
		t.Fatalf("WriteSession() failed: %v", err)
	}

	tick := createTestTick("s1", 2, 1, 4, 5)
	tick.Comparable = true
	tick.SoundMatch = true
	if err := s.WriteTick(ctx, tick); err != nil {
		t.Fatalf("WriteTick() failed: %v", err)
	}

	ticks, err := s.ReadTicks(ctx, "s1")
	if err != nil {
		t.Fatalf("ReadTicks() failed: %v", err)
	}
	if len(ticks) != 1 {
		t.Fatalf("len(ticks) = %d, want 1", len(ticks))
	}
	if ticks[0] != tick {
		t.Errorf("tick = %+v, want %+v", ticks[0], tick)
	}
}

func TestWriteTick_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.WriteSession(ctx, createTestSession("s1", 1)); err != nil {
		t.Fatalf("WriteSession() failed: %v", err)
	}

	tick := createTestTick("s1", 1, 0, 0, 0)
	for i := 0; i < 2; i++ {
		if err := s.WriteTick(ctx, tick); err != nil {
			t.Fatalf("WriteTick() #%d failed: %v", i, err)
		}
	}

	ticks, _ := s.ReadTicks(ctx, "s1")
	if len(ticks) != 1 {
		t.Errorf("len(ticks) = %d, want 1", len(ticks))
	}
}

func TestWriteTick_ForeignKeyViolation(t *testing.T) {
	s := createTestStore(t)

	err := s.WriteTick(context.Background(), createTestTick("missing", 1, 0, 0, 0))
	if err == nil {
		t.Error("expected foreign key violation for unknown session")
	}
}

func TestWriteClaim_Basic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.WriteSession(ctx, createTestSession("s1", 1)); err != nil {
		t.Fatalf("WriteSession() failed: %v", err)
	}

	claim := createTestClaim("s1", 1, -1, "sound", "strike")
	if err := s.WriteClaim(ctx, claim); err != nil {
		t.Fatalf("WriteClaim() failed: %v", err)
	}
	// Same id again is ignored.
	if err := s.WriteClaim(ctx, claim); err != nil {
		t.Fatalf("WriteClaim() duplicate failed: %v", err)
	}

	claims, err := s.ReadClaims(ctx, "s1")
	if err != nil {
		t.Fatalf("ReadClaims() failed: %v", err)
	}
	if len(claims) != 1 {
		t.Fatalf("len(claims) = %d, want 1", len(claims))
	}
	if claims[0] != claim {
		t.Errorf("claim = %+v, want %+v", claims[0], claim)
	}
}

func TestWriteClaim_RejectsUnknownResult(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.WriteSession(ctx, createTestSession("s1", 1)); err != nil {
		t.Fatalf("WriteSession() failed: %v", err)
	}

	err := s.WriteClaim(ctx, createTestClaim("s1", 1, 0, "sound", "miss"))
	if err == nil {
		t.Error("expected CHECK violation for result \"miss\"")
	}
}
