package testutil

// FixedSessionID generates the same session id every time.
//
// This enables deterministic test execution and golden snapshot comparison:
// the same scenario with the same FixedSessionID produces byte-identical
// journals, since record ids hash the session id.
//
// Unlike engine.FixedGenerator which returns ids in sequence, this generator
// always returns the same id.
//
// Thread-safety: FixedSessionID is stateless and safe for concurrent use.
type FixedSessionID struct {
	id string
}

// NewFixedSessionID creates a fixed session id generator.
// If id is empty, Generate returns "test-session".
func NewFixedSessionID(id string) *FixedSessionID {
	if id == "" {
		id = "test-session"
	}
	return &FixedSessionID{id: id}
}

// Generate returns the fixed id.
//
// Implements engine.SessionIDGenerator.
func (g *FixedSessionID) Generate() string {
	return g.id
}
