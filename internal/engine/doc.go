// Package engine implements the dual n-back match engine.
//
// On every Tick the engine draws a (sound, position) stimulus; between ticks
// the host may Claim that the current sound and/or position equals the one
// shown exactly N ticks earlier. The engine scores each channel separately.
//
// ARCHITECTURE:
//
// History:
// A circular buffer of capacity N. Writing tick k overwrites, in place, the
// stimulus of tick k-N; Tick keeps that evicted stimulus as the comparison
// target of the claim window it opens.
//
// Per-tick cycle:
//  1. Tick draws a stimulus, clears both claim flags, writes history,
//     counts opportunities and stamps a record with the logical clock.
//  2. Claim scores the first claim per channel (Hit or Strike); duplicates
//     return AlreadyClaimed.
//
// The engine owns no timers, goroutines or external handles. Scheduling
// ticks and dispatching input belong to the host (package session).
//
// Determinism:
// With a seeded RandomSource or a ScriptedSource, the same call sequence
// produces identical stimuli, results and records.
package engine
