package engine

import (
	"math/rand/v2"
	"sync"
)

// Stimulus is the (sound, position) pair shown on one tick.
// Ids are opaque; mapping them to audio or screen cells is the view's job.
type Stimulus struct {
	Sound    int `json:"sound" yaml:"sound"`
	Position int `json:"position" yaml:"position"`
}

// Field returns the id carried on the given channel.
func (s Stimulus) Field(c Channel) int {
	if c == Sound {
		return s.Sound
	}
	return s.Position
}

// Source draws stimuli. Implementations receive the alphabet sizes on every
// call and must return ids in [0, sounds) and [0, positions).
type Source interface {
	Next(sounds, positions int) Stimulus
}

// RandomSource draws both ids independently and uniformly from a seeded PCG
// generator, so a seed reproduces a session exactly.
type RandomSource struct {
	rng *rand.Rand
}

// NewRandomSource creates a source seeded with seed.
func NewRandomSource(seed uint64) *RandomSource {
	return &RandomSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Next implements Source.
func (r *RandomSource) Next(sounds, positions int) Stimulus {
	return Stimulus{
		Sound:    r.rng.IntN(sounds),
		Position: r.rng.IntN(positions),
	}
}

// entropySource draws from the runtime's randomly seeded global generator.
// It is the default when no source is configured.
type entropySource struct{}

func (entropySource) Next(sounds, positions int) Stimulus {
	return Stimulus{Sound: rand.IntN(sounds), Position: rand.IntN(positions)}
}

// ScriptedSource returns predetermined stimuli in order, ignoring the
// alphabet sizes. Used by tests and scenario files.
//
// Thread-safety: ScriptedSource is safe for concurrent use via internal mutex.
type ScriptedSource struct {
	mu      sync.Mutex
	stimuli []Stimulus
	idx     int
}

// NewScriptedSource creates a source that yields stimuli in order.
func NewScriptedSource(stimuli ...Stimulus) *ScriptedSource {
	return &ScriptedSource{stimuli: stimuli}
}

// Next returns the next scripted stimulus.
//
// Panics once the script is exhausted: a test that ticks more often than it
// scripted is misconfigured.
func (s *ScriptedSource) Next(_, _ int) Stimulus {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.idx >= len(s.stimuli) {
		panic("ScriptedSource: all stimuli exhausted")
	}
	st := s.stimuli[s.idx]
	s.idx++
	return st
}

// Remaining returns how many scripted stimuli are left.
func (s *ScriptedSource) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stimuli) - s.idx
}
