// Package harness provides conformance testing for the n-back match engine.
//
// The harness loads YAML scenarios, drives a real engine through their flow
// of ticks and claims, journals every record to an in-memory store and
// validates the outcome as an executable contract test.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	config: { n: 2, sounds: 8, positions: 9, opportunities: match }
//	stimuli:
//	  - { sound: 0, position: 4 }
//	  - { sound: 3, position: 1 }
//	  - { sound: 0, position: 2 }
//	flow:
//	  - invoke: tick
//	  - invoke: tick
//	  - invoke: tick
//	    expect: { comparable: true }
//	  - invoke: claim
//	    channel: sound
//	    expect: { result: hit }
//	assertions:
//	  - type: stats
//	    channel: sound
//	    expect: { hits: 1, strikes: 0, misses: 0 }
//	  - type: trace_count
//	    event: claim
//	    where: { result: hit }
//	    count: 1
//	  - type: final_state
//	    table: ticks
//	    where: { idx: 2 }
//	    expect: { sound_match: true }
//
// Instead of stimuli a scenario may give a seed for the random source.
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - stats: Verifies one channel's final hits, strikes, opportunities, misses
//   - trace_contains: Verifies a tick or claim with matching fields exists
//   - trace_count: Verifies how many ticks or claims match
//   - final_state: Queries a journal table and verifies expected values
//
// After the flow the journal is replayed (store.Replay); any inconsistency
// fails the scenario.
//
// # Deterministic Testing
//
// The logical clock starts at zero, the session id is fixed
// ("test-session" unless the scenario names one) and stimuli are scripted
// or seeded, so traces are identical across runs and can be compared
// against golden files in testdata/golden.
package harness
