package engine

// History is a fixed-capacity circular buffer of stimuli.
//
// Capacity equals the back-reference depth n. Once full, the slot at the
// write cursor always holds the stimulus from exactly n writes ago, so
// Push hands back that stimulus as it overwrites it.
//
// INVARIANTS:
//   - capacity never changes after construction
//   - cursor is always in [0, capacity)
//   - at most capacity most-recent stimuli are retained
type History struct {
	slots  []Stimulus
	filled []bool
	cursor int
	size   int
}

// NewHistory allocates a history with the given capacity.
// Callers validate capacity >= 1 (see New).
func NewHistory(capacity int) *History {
	return &History{
		slots:  make([]Stimulus, capacity),
		filled: make([]bool, capacity),
	}
}

// Push writes s at the cursor and advances it.
// Returns the overwritten stimulus and true when the slot was populated,
// i.e. the stimulus written exactly Cap() pushes earlier.
func (h *History) Push(s Stimulus) (evicted Stimulus, ok bool) {
	evicted, ok = h.slots[h.cursor], h.filled[h.cursor]

	h.slots[h.cursor] = s
	if !h.filled[h.cursor] {
		h.filled[h.cursor] = true
		h.size++
	}
	h.cursor = (h.cursor + 1) % len(h.slots)

	return evicted, ok
}

// Latest returns the most recently written stimulus.
func (h *History) Latest() (Stimulus, bool) {
	return h.Back(0)
}

// Back returns the stimulus written k pushes before the latest one,
// for k in [0, Cap()). Returns false for out-of-range k or empty slots.
func (h *History) Back(k int) (Stimulus, bool) {
	n := len(h.slots)
	if k < 0 || k >= n {
		return Stimulus{}, false
	}
	idx := ((h.cursor-1-k)%n + n) % n
	if !h.filled[idx] {
		return Stimulus{}, false
	}
	return h.slots[idx], true
}

// Recent returns the retained stimuli, oldest first.
func (h *History) Recent() []Stimulus {
	out := make([]Stimulus, 0, h.size)
	for k := h.size - 1; k >= 0; k-- {
		s, _ := h.Back(k)
		out = append(out, s)
	}
	return out
}

// Cap returns the fixed capacity.
func (h *History) Cap() int { return len(h.slots) }

// Len returns the number of populated slots.
func (h *History) Len() int { return h.size }

// Cursor returns the index of the next slot to be written.
func (h *History) Cursor() int { return h.cursor }
