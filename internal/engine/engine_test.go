package engine

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nback/internal/ir"
)

// recordingObserver collects every record the engine emits.
type recordingObserver struct {
	ticks  []ir.Tick
	claims []ir.Claim
}

func (r *recordingObserver) ObserveTick(t ir.Tick)   { r.ticks = append(r.ticks, t) }
func (r *recordingObserver) ObserveClaim(c ir.Claim) { r.claims = append(r.claims, c) }

func newTestEngine(t *testing.T, cfg Config, opts ...Option) *Engine {
	t.Helper()
	e, err := New(cfg, opts...)
	require.NoError(t, err)
	return e
}

func TestEngine_New(t *testing.T) {
	e := newTestEngine(t, Config{N: 3, Sounds: 8, Positions: 9})

	assert.Equal(t, Config{N: 3, Sounds: 8, Positions: 9}, e.Config())
	assert.Equal(t, Stats{}, e.Stats())
	assert.Equal(t, int64(0), e.Ticks())
	assert.Equal(t, OpportunityOnMatch, e.Policy())
	assert.False(t, e.Claimed(Sound))
	assert.False(t, e.Claimed(Position))

	_, ok := e.Current()
	assert.False(t, ok, "no stimulus before the first tick")
}

func TestEngine_New_InvalidConfiguration(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		field string
	}{
		{"n zero", Config{N: 0, Sounds: 1, Positions: 1}, "n"},
		{"n negative", Config{N: -2, Sounds: 1, Positions: 1}, "n"},
		{"sounds zero", Config{N: 1, Sounds: 0, Positions: 1}, "sounds"},
		{"positions zero", Config{N: 1, Sounds: 1, Positions: 0}, "positions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New(tt.cfg)
			require.Error(t, err)
			assert.Nil(t, e)

			assert.True(t, errors.Is(err, ErrInvalidConfiguration))
			assert.True(t, IsConfigError(err))

			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, ErrCodeInvalidConfiguration, ce.Code)
			assert.Equal(t, tt.field, ce.Field)
			assert.Contains(t, ce.Error(), "INVALID_CONFIGURATION")
		})
	}
}

func TestEngine_TickDrawsWithinAlphabets(t *testing.T) {
	e := newTestEngine(t, Config{N: 2, Sounds: 3, Positions: 4}, WithSeed(42))

	for i := 0; i < 500; i++ {
		s := e.Tick()
		assert.GreaterOrEqual(t, s.Sound, 0)
		assert.Less(t, s.Sound, 3)
		assert.GreaterOrEqual(t, s.Position, 0)
		assert.Less(t, s.Position, 4)

		cur, ok := e.Current()
		require.True(t, ok)
		assert.Equal(t, s, cur)
	}
	assert.Equal(t, int64(500), e.Ticks())
}

func TestEngine_SeedIsDeterministic(t *testing.T) {
	cfg := Config{N: 2, Sounds: 8, Positions: 9}
	e1 := newTestEngine(t, cfg, WithSeed(7))
	e2 := newTestEngine(t, cfg, WithSeed(7))

	for i := 0; i < 100; i++ {
		assert.Equal(t, e1.Tick(), e2.Tick())
	}
}

func TestEngine_ClaimBeforeFirstTick(t *testing.T) {
	e := newTestEngine(t, Config{N: 1, Sounds: 1, Positions: 1})

	assert.Equal(t, Strike, e.ClaimSound(), "nothing to compare against yet")
	assert.Equal(t, AlreadyClaimed, e.ClaimSound())
	assert.Equal(t, Strike, e.ClaimPosition())

	assert.Equal(t, int64(1), e.Strikes(Sound))
	assert.Equal(t, int64(1), e.Strikes(Position))
	assert.Equal(t, int64(0), e.Hits(Sound))
}

func TestEngine_NoHitDuringInitialFill(t *testing.T) {
	// Single-symbol alphabets force every stimulus to be identical, so the
	// only thing preventing a Hit is the missing n-back slot.
	for n := 1; n <= 6; n++ {
		e := newTestEngine(t, Config{N: n, Sounds: 1, Positions: 1})
		for k := 0; k < n; k++ {
			e.Tick()
			assert.Equal(t, Strike, e.ClaimSound(), "n=%d tick=%d", n, k)
			assert.Equal(t, Strike, e.ClaimPosition(), "n=%d tick=%d", n, k)
		}
		assert.Equal(t, int64(0), e.Hits(Sound))
		assert.Equal(t, int64(0), e.Opportunities(Sound))

		e.Tick()
		assert.Equal(t, Hit, e.ClaimSound(), "n=%d first comparable tick", n)
	}
}

func TestEngine_DuplicateClaimIsIdempotent(t *testing.T) {
	e := newTestEngine(t, Config{N: 1, Sounds: 1, Positions: 1})
	e.Tick()
	e.Tick()

	assert.Equal(t, Hit, e.ClaimSound())
	before := e.Stats()

	assert.Equal(t, AlreadyClaimed, e.ClaimSound())
	assert.Equal(t, AlreadyClaimed, e.Claim(Sound))
	assert.Equal(t, before, e.Stats(), "duplicate claims change no counter")
	assert.True(t, e.Claimed(Sound))
	assert.False(t, e.Claimed(Position), "channels are independent")

	e.Tick()
	assert.False(t, e.Claimed(Sound), "tick clears claim flags")
	assert.Equal(t, Hit, e.ClaimSound())
	assert.Equal(t, int64(2), e.Hits(Sound))
}

func TestEngine_RoundTripHit(t *testing.T) {
	src := NewScriptedSource(
		st(4, 1), // tick 0
		st(0, 0), // tick 1
		st(2, 2), // tick 2
		st(4, 5), // tick 3: sound matches tick 0, position does not
	)
	e := newTestEngine(t, Config{N: 3, Sounds: 8, Positions: 9}, WithSource(src))

	for i := 0; i < 3; i++ {
		e.Tick()
	}
	e.Tick()

	assert.Equal(t, Hit, e.ClaimSound())
	assert.Equal(t, Strike, e.ClaimPosition())
	assert.Equal(t, 0, src.Remaining())
}

func TestEngine_SingleSymbolScenario(t *testing.T) {
	e := newTestEngine(t, Config{N: 2, Sounds: 1, Positions: 1})

	for k := 0; k < 10; k++ {
		e.Tick()
		want := Strike
		if k >= 2 {
			want = Hit
		}
		assert.Equal(t, want, e.ClaimSound(), "tick %d", k)
		assert.Equal(t, want, e.ClaimPosition(), "tick %d", k)
	}

	assert.Equal(t, int64(8), e.Hits(Sound))
	assert.Equal(t, int64(2), e.Strikes(Sound))
	assert.Equal(t, int64(8), e.Opportunities(Position))
	assert.Equal(t, int64(0), e.Misses(Position))
}

// TestEngine_MatchesFullHistoryReference checks the ring-buffer comparison
// against a reference that keeps every tick and compares ticks[k] with
// ticks[k-n] directly.
func TestEngine_MatchesFullHistoryReference(t *testing.T) {
	for n := 1; n <= 5; n++ {
		e := newTestEngine(t, Config{N: n, Sounds: 2, Positions: 3}, WithSeed(uint64(n)))

		var ticks []Stimulus
		var wantOpp [numChannels]int64
		for k := 0; k < 2*n+1+40; k++ {
			s := e.Tick()
			ticks = append(ticks, s)

			for _, c := range Channels {
				match := k >= n && ticks[k].Field(c) == ticks[k-n].Field(c)
				if match {
					wantOpp[c]++
				}
				want := Strike
				if match {
					want = Hit
				}
				assert.Equal(t, want, e.Claim(c), "n=%d k=%d channel=%s", n, k, c)
			}
		}

		for _, c := range Channels {
			assert.Equal(t, wantOpp[c], e.Opportunities(c), "n=%d channel=%s", n, c)
			assert.Equal(t, e.Hits(c), e.Opportunities(c), "every true match was claimed")
		}
	}
}

func TestEngine_OpportunityPolicies(t *testing.T) {
	script := []Stimulus{st(0, 0), st(1, 0), st(0, 1), st(0, 0), st(1, 1)}
	// n=1 comparisons: t1 (1,0)v(0,0): pos match
	//                  t2 (0,1)v(1,0): none
	//                  t3 (0,0)v(0,1): sound match
	//                  t4 (1,1)v(0,0): none

	onMatch := newTestEngine(t, Config{N: 1, Sounds: 2, Positions: 2},
		WithSource(NewScriptedSource(script...)))
	onComparable := newTestEngine(t, Config{N: 1, Sounds: 2, Positions: 2},
		WithSource(NewScriptedSource(script...)),
		WithOpportunityPolicy(OpportunityOnComparable))

	for range script {
		onMatch.Tick()
		onComparable.Tick()
	}

	assert.Equal(t, int64(1), onMatch.Opportunities(Sound))
	assert.Equal(t, int64(1), onMatch.Opportunities(Position))
	assert.Equal(t, int64(1), onMatch.Misses(Sound), "never claimed")

	assert.Equal(t, int64(4), onComparable.Opportunities(Sound))
	assert.Equal(t, int64(4), onComparable.Opportunities(Position))
	assert.Equal(t, "comparable", onComparable.Policy().String())
}

func TestEngine_CountersAreMonotonic(t *testing.T) {
	e := newTestEngine(t, Config{N: 2, Sounds: 2, Positions: 2}, WithSeed(99))
	rng := rand.New(rand.NewPCG(1, 2))

	prev := e.Stats()
	for i := 0; i < 2000; i++ {
		switch rng.IntN(4) {
		case 0, 1:
			e.Tick()
		case 2:
			e.ClaimSound()
		case 3:
			e.ClaimPosition()
		}

		cur := e.Stats()
		for _, c := range Channels {
			assert.GreaterOrEqual(t, cur.Of(c).Hits, prev.Of(c).Hits)
			assert.GreaterOrEqual(t, cur.Of(c).Strikes, prev.Of(c).Strikes)
			assert.GreaterOrEqual(t, cur.Of(c).Opportunities, prev.Of(c).Opportunities)
			assert.LessOrEqual(t, cur.Of(c).Hits, cur.Of(c).Opportunities)
		}
		prev = cur
	}
}

func TestEngine_ObserverRecords(t *testing.T) {
	obs := &recordingObserver{}
	e := newTestEngine(t, Config{N: 1, Sounds: 4, Positions: 4},
		WithSource(NewScriptedSource(st(1, 2), st(1, 3))),
		WithSessionID("session-1"),
		WithObserver(obs),
	)

	e.ClaimSound() // seq 1, before first tick
	e.Tick()       // seq 2
	e.Tick()       // seq 3
	e.ClaimSound() // seq 4
	e.ClaimSound() // seq 5

	require.Len(t, obs.ticks, 2)
	require.Len(t, obs.claims, 3)

	assert.Equal(t, ir.Tick{
		ID:        ir.MustTickID("session-1", 2, 0, 1, 2),
		SessionID: "session-1",
		Seq:       2,
		Index:     0,
		Sound:     1,
		Position:  2,
	}, obs.ticks[0])

	second := obs.ticks[1]
	assert.Equal(t, int64(3), second.Seq)
	assert.Equal(t, int64(1), second.Index)
	assert.True(t, second.Comparable)
	assert.True(t, second.SoundMatch)
	assert.False(t, second.PositionMatch)

	assert.Equal(t, int64(-1), obs.claims[0].Tick)
	assert.Equal(t, "strike", obs.claims[0].Result)
	assert.Equal(t, "hit", obs.claims[1].Result)
	assert.Equal(t, int64(1), obs.claims[1].Tick)
	assert.Equal(t, "already_claimed", obs.claims[2].Result)
	assert.Equal(t, ir.MustClaimID("session-1", 5, 1, "sound", "already_claimed"), obs.claims[2].ID)
}

func TestEngine_SharedClockAcrossEngines(t *testing.T) {
	clock := NewClockAt(10)
	obs := &recordingObserver{}
	e := newTestEngine(t, Config{N: 1, Sounds: 1, Positions: 1}, WithClock(clock), WithObserver(obs))

	e.Tick()
	require.Len(t, obs.ticks, 1)
	assert.Equal(t, int64(11), obs.ticks[0].Seq)
	assert.Equal(t, int64(11), clock.Current())
}

func TestEngine_HistoryAccessor(t *testing.T) {
	e := newTestEngine(t, Config{N: 2, Sounds: 9, Positions: 9},
		WithSource(NewScriptedSource(st(1, 1), st(2, 2), st(3, 3))))

	e.Tick()
	assert.Equal(t, []Stimulus{st(1, 1)}, e.History())
	e.Tick()
	e.Tick()
	assert.Equal(t, []Stimulus{st(2, 2), st(3, 3)}, e.History())
}

func TestEngine_SessionRecord(t *testing.T) {
	e := newTestEngine(t, Config{N: 2, Sounds: 8, Positions: 9},
		WithSessionID("abc"), WithOpportunityPolicy(OpportunityOnComparable))

	s := e.Session(42)
	assert.Equal(t, "abc", s.ID)
	assert.Equal(t, 2, s.N)
	assert.Equal(t, int64(42), s.Seed)
	assert.Equal(t, "comparable", s.Policy)
	assert.Equal(t, ir.EngineVersion, s.EngineVersion)
}

func TestEngine_ClaimPanicsOnUnknownChannel(t *testing.T) {
	e := newTestEngine(t, Config{N: 1, Sounds: 1, Positions: 1})
	assert.Panics(t, func() { e.Claim(Channel(5)) })
}

func TestScriptedSource_PanicsWhenExhausted(t *testing.T) {
	src := NewScriptedSource(st(0, 0))
	src.Next(1, 1)
	assert.Panics(t, func() { src.Next(1, 1) })
}
