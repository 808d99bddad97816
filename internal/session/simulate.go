package session

import (
	"math/rand/v2"

	"github.com/roach88/nback/internal/engine"
)

// Player decides which channels to claim after each tick.
type Player interface {
	Respond(index int64, s engine.Stimulus) []engine.Channel
}

// NopPlayer never claims. Every opportunity becomes a miss.
type NopPlayer struct{}

// Respond implements Player.
func (NopPlayer) Respond(int64, engine.Stimulus) []engine.Channel { return nil }

// OraclePlayer remembers every stimulus and knows the true answer on both
// channels. With probability accuracy it answers correctly (claims exactly
// the true matches); otherwise it inverts its answer for that channel.
type OraclePlayer struct {
	n        int
	accuracy float64
	rng      *rand.Rand
	seen     []engine.Stimulus
}

// NewOraclePlayer creates a player for depth n. accuracy is clamped to
// [0, 1]; 1 never errs.
func NewOraclePlayer(n int, accuracy float64, seed uint64) *OraclePlayer {
	return &OraclePlayer{
		n:        n,
		accuracy: min(max(accuracy, 0), 1),
		rng:      rand.New(rand.NewPCG(seed, ^seed)),
	}
}

// Respond implements Player.
func (p *OraclePlayer) Respond(_ int64, s engine.Stimulus) []engine.Channel {
	p.seen = append(p.seen, s)
	k := len(p.seen) - 1

	var claims []engine.Channel
	for _, c := range engine.Channels {
		match := k >= p.n && s.Field(c) == p.seen[k-p.n].Field(c)
		correct := p.accuracy >= 1 || p.rng.Float64() < p.accuracy
		if match == correct {
			claims = append(claims, c)
		}
	}
	return claims
}

// Simulate drives eng for ticks ticks without a wall clock, applying the
// player's claims after each one, and returns the final counters.
func Simulate(eng *engine.Engine, ticks int, p Player) engine.Stats {
	for i := 0; i < ticks; i++ {
		index := eng.Ticks()
		s := eng.Tick()
		for _, c := range p.Respond(index, s) {
			eng.Claim(c)
		}
	}
	return eng.Stats()
}
