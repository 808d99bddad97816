package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/nback/internal/engine"
)

// Scenario defines a conformance test scenario.
// A scenario drives a real engine through a flow of ticks and claims and
// asserts on the resulting trace, statistics and journal.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// SessionID is stamped on every record.
	// Defaults to "test-session" for deterministic golden comparison.
	SessionID string `yaml:"session_id,omitempty"`

	// Config is the engine configuration.
	Config ScenarioConfig `yaml:"config"`

	// Stimuli scripts the stimulus of every tick in order.
	// Mutually exclusive with Seed.
	Stimuli []engine.Stimulus `yaml:"stimuli,omitempty"`

	// Seed seeds a random stimulus source when Stimuli is empty.
	Seed int64 `yaml:"seed,omitempty"`

	// Flow contains the ticks and claims to perform, in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace, statistics and journal.
	// Supported types: stats, trace_contains, trace_count, final_state
	Assertions []Assertion `yaml:"assertions"`
}

// ScenarioConfig is the engine configuration of a scenario.
type ScenarioConfig struct {
	N         int `yaml:"n"`
	Sounds    int `yaml:"sounds"`
	Positions int `yaml:"positions"`

	// Opportunities is the opportunity policy: "match" (default) or
	// "comparable".
	Opportunities string `yaml:"opportunities,omitempty"`
}

// EngineConfig returns the engine.Config part.
func (c ScenarioConfig) EngineConfig() engine.Config {
	return engine.Config{N: c.N, Sounds: c.Sounds, Positions: c.Positions}
}

// Policy parses Opportunities, defaulting to OpportunityOnMatch.
func (c ScenarioConfig) Policy() (engine.OpportunityPolicy, error) {
	return engine.ParseOpportunityPolicy(c.Opportunities)
}

// Flow step kinds.
const (
	StepTick  = "tick"
	StepClaim = "claim"
)

// FlowStep is a single tick or claim.
type FlowStep struct {
	// Invoke is "tick" or "claim".
	Invoke string `yaml:"invoke"`

	// Channel is the claimed channel ("sound" or "position"). Claims only.
	Channel string `yaml:"channel,omitempty"`

	// Expect specifies the expected outcome. If nil, nothing is checked.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a flow step.
// Result applies to claims; the stimulus fields and Comparable to ticks.
type ExpectClause struct {
	Result     string `yaml:"result,omitempty"`
	Sound      *int   `yaml:"sound,omitempty"`
	Position   *int   `yaml:"position,omitempty"`
	Comparable *bool  `yaml:"comparable,omitempty"`
}

// Assertion validates trace, statistics or journal state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "stats": Check one channel's final counters
	// - "trace_contains": Check an event with matching fields exists
	// - "trace_count": Check how many events match
	// - "final_state": Query a journal table and verify expected values
	Type string `yaml:"type"`

	// Channel is the channel whose counters are checked (used by stats).
	Channel string `yaml:"channel,omitempty"`

	// Event is the trace event type, "tick" or "claim" (used by
	// trace_contains and trace_count).
	Event string `yaml:"event,omitempty"`

	// Table is the journal table name (used by final_state).
	Table string `yaml:"table,omitempty"`

	// Where filters events or rows. All fields must match exactly.
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect contains expected values (used by stats and final_state).
	// Subset match - only specified fields are validated.
	Expect map[string]interface{} `yaml:"expect,omitempty"`

	// Count is the expected number of matching events (used by trace_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertStats         = "stats"
	AssertTraceContains = "trace_contains"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// DefaultSessionID is used when a scenario does not name its session.
const DefaultSessionID = "test-session"

// statsKeys are the fields a stats assertion may check.
var statsKeys = map[string]bool{
	"hits":          true,
	"strikes":       true,
	"opportunities": true,
	"misses":        true,
}

// journalTables are the tables a final_state assertion may query.
var journalTables = map[string]bool{
	"sessions": true,
	"ticks":    true,
	"claims":   true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Reject unknown fields (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml and *.yml file in dir, sorted by path.
func LoadScenarios(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	cfg := s.Config.EngineConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := s.Config.Policy(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if len(s.Stimuli) > 0 && s.Seed != 0 {
		return fmt.Errorf("stimuli and seed are mutually exclusive")
	}

	for i, st := range s.Stimuli {
		if st.Sound < 0 || st.Sound >= cfg.Sounds {
			return fmt.Errorf("stimuli[%d]: sound %d outside [0, %d)", i, st.Sound, cfg.Sounds)
		}
		if st.Position < 0 || st.Position >= cfg.Positions {
			return fmt.Errorf("stimuli[%d]: position %d outside [0, %d)", i, st.Position, cfg.Positions)
		}
	}

	ticks := 0
	for i, step := range s.Flow {
		if err := validateStep(i, &step); err != nil {
			return err
		}
		if step.Invoke == StepTick {
			ticks++
		}
	}
	if len(s.Stimuli) > 0 && ticks > len(s.Stimuli) {
		return fmt.Errorf("flow has %d ticks but only %d stimuli are scripted", ticks, len(s.Stimuli))
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateStep validates a single flow step based on its kind.
func validateStep(index int, step *FlowStep) error {
	switch step.Invoke {
	case StepTick:
		if step.Channel != "" {
			return fmt.Errorf("flow[%d]: channel is not allowed on tick", index)
		}
		if step.Expect != nil && step.Expect.Result != "" {
			return fmt.Errorf("flow[%d].expect: result is only allowed on claim", index)
		}
	case StepClaim:
		if _, err := engine.ParseChannel(step.Channel); err != nil {
			return fmt.Errorf("flow[%d]: %w", index, err)
		}
		if step.Expect == nil {
			return nil
		}
		e := step.Expect
		if e.Sound != nil || e.Position != nil || e.Comparable != nil {
			return fmt.Errorf("flow[%d].expect: stimulus fields are only allowed on tick", index)
		}
		if e.Result != "" {
			if _, err := engine.ParseClaimResult(e.Result); err != nil {
				return fmt.Errorf("flow[%d].expect: %w", index, err)
			}
		}
	case "":
		return fmt.Errorf("flow[%d]: invoke is required", index)
	default:
		return fmt.Errorf("flow[%d]: unknown step %q (want tick or claim)", index, step.Invoke)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertStats:
		if _, err := engine.ParseChannel(a.Channel); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for stats", index)
		}
		for key := range a.Expect {
			if !statsKeys[key] {
				return fmt.Errorf("assertions[%d]: unknown stats field %q", index, key)
			}
		}
	case AssertTraceContains:
		if a.Event != EventTick && a.Event != EventClaim {
			return fmt.Errorf("assertions[%d]: event must be tick or claim for trace_contains", index)
		}
	case AssertTraceCount:
		if a.Event != EventTick && a.Event != EventClaim {
			return fmt.Errorf("assertions[%d]: event must be tick or claim for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if !journalTables[a.Table] {
			return fmt.Errorf("assertions[%d]: table must be sessions, ticks or claims for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
