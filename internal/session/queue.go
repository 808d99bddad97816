package session

import (
	"sync"

	"github.com/roach88/nback/internal/engine"
)

// input is one claim request from the player.
type input struct {
	channel engine.Channel
}

// inputQueue is a thread-safe FIFO of claim requests.
//
// Input handlers (stdin readers, HTTP handlers) enqueue from any goroutine
// while the session loop dequeues. The queue uses a channel for signaling so
// the loop can wait on it alongside the ticker and its context.
type inputQueue struct {
	mu     sync.Mutex
	inputs []input
	closed bool
	signal chan struct{} // Signals input availability (buffered, size 1)
}

// newInputQueue creates an empty input queue.
func newInputQueue() *inputQueue {
	return &inputQueue{
		inputs: make([]input, 0, 8),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an input to the back of the queue.
// Returns false if the queue is closed.
func (q *inputQueue) Enqueue(in input) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.inputs = append(q.inputs, in)

	// Non-blocking: the buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front input without blocking.
// Returns (input{}, false) if the queue is empty.
func (q *inputQueue) TryDequeue() (input, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.inputs) == 0 {
		return input{}, false
	}

	in := q.inputs[0]
	if len(q.inputs) == 1 {
		q.inputs = q.inputs[:0]
	} else {
		q.inputs = q.inputs[1:]
	}
	return in, true
}

// Wait returns a channel that signals when inputs may be available.
func (q *inputQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *inputQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.inputs)
}

// Close rejects further inputs. Queued inputs can still be dequeued.
func (q *inputQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}
