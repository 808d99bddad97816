// Package ir defines the canonical records of a dual n-back session.
//
// This package contains record types, the constrained value model and the
// canonical encoding. All other internal packages import ir; ir imports
// nothing internal.
//
// Constraints:
//   - no float types anywhere; ids, counters and sequence numbers are integers
//   - all JSON tags use snake_case
//   - ordering uses logical clocks (seq) only, never wall-clock timestamps
package ir
