package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nback/internal/engine"
)

const validScenarioYAML = `
name: test_scenario
description: "Test scenario for validation"
config: { n: 1, sounds: 2, positions: 2 }
stimuli:
  - { sound: 0, position: 1 }
  - { sound: 0, position: 0 }
flow:
  - invoke: tick
  - invoke: tick
  - invoke: claim
    channel: sound
    expect: { result: hit }
assertions:
  - type: stats
    channel: sound
    expect: { hits: 1 }
`

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "test.yaml", validScenarioYAML)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.Equal(t, engine.Config{N: 1, Sounds: 2, Positions: 2}, scenario.Config.EngineConfig())
	assert.Equal(t, []engine.Stimulus{{Sound: 0, Position: 1}, {Sound: 0, Position: 0}}, scenario.Stimuli)
	assert.Len(t, scenario.Flow, 3)
	assert.Len(t, scenario.Assertions, 1)
	assert.Equal(t, StepClaim, scenario.Flow[2].Invoke)
	assert.Equal(t, "sound", scenario.Flow[2].Channel)
	require.NotNil(t, scenario.Flow[2].Expect)
	assert.Equal(t, "hit", scenario.Flow[2].Expect.Result)
	assert.Equal(t, 1, scenario.Assertions[0].Expect["hits"])
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "typo.yaml", validScenarioYAML+"assertion: []\n")

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_DefaultPolicy(t *testing.T) {
	scenario, err := ParseScenario([]byte(validScenarioYAML))
	require.NoError(t, err)

	p, err := scenario.Config.Policy()
	require.NoError(t, err)
	assert.Equal(t, engine.OpportunityOnMatch, p)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "missing name",
			yaml: `
description: d
config: { n: 1, sounds: 1, positions: 1 }
flow: [{ invoke: tick }]
assertions: [{ type: trace_count, event: tick, count: 1 }]
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			yaml: `
name: x
config: { n: 1, sounds: 1, positions: 1 }
flow: [{ invoke: tick }]
assertions: [{ type: trace_count, event: tick, count: 1 }]
`,
			wantErr: "description is required",
		},
		{
			name: "depth zero",
			yaml: `
name: x
description: d
config: { n: 0, sounds: 1, positions: 1 }
flow: [{ invoke: tick }]
assertions: [{ type: trace_count, event: tick, count: 1 }]
`,
			wantErr: "n must be >= 1",
		},
		{
			name: "bad policy",
			yaml: `
name: x
description: d
config: { n: 1, sounds: 1, positions: 1, opportunities: always }
flow: [{ invoke: tick }]
assertions: [{ type: trace_count, event: tick, count: 1 }]
`,
			wantErr: "unknown opportunity policy",
		},
		{
			name: "empty flow",
			yaml: `
name: x
description: d
config: { n: 1, sounds: 1, positions: 1 }
flow: []
assertions: [{ type: trace_count, event: tick, count: 1 }]
`,
			wantErr: "flow list is required",
		},
		{
			name: "empty assertions",
			yaml: `
name: x
description: d
config: { n: 1, sounds: 1, positions: 1 }
flow: [{ invoke: tick }]
assertions: []
`,
			wantErr: "assertions list is required",
		},
		{
			name: "stimuli and seed",
			yaml: `
name: x
description: d
config: { n: 1, sounds: 1, positions: 1 }
stimuli: [{ sound: 0, position: 0 }]
seed: 4
flow: [{ invoke: tick }]
assertions: [{ type: trace_count, event: tick, count: 1 }]
`,
			wantErr: "mutually exclusive",
		},
		{
			name: "stimulus outside alphabet",
			yaml: `
name: x
description: d
config: { n: 1, sounds: 2, positions: 1 }
stimuli: [{ sound: 2, position: 0 }]
flow: [{ invoke: tick }]
assertions: [{ type: trace_count, event: tick, count: 1 }]
`,
			wantErr: "stimuli[0]: sound 2 outside [0, 2)",
		},
		{
			name: "too few stimuli",
			yaml: `
name: x
description: d
config: { n: 1, sounds: 1, positions: 1 }
stimuli: [{ sound: 0, position: 0 }]
flow: [{ invoke: tick }, { invoke: tick }]
assertions: [{ type: trace_count, event: tick, count: 2 }]
`,
			wantErr: "flow has 2 ticks but only 1 stimuli",
		},
		{
			name: "missing invoke",
			yaml: `
name: x
description: d
config: { n: 1, sounds: 1, positions: 1 }
flow: [{ channel: sound }]
assertions: [{ type: trace_count, event: tick, count: 0 }]
`,
			wantErr: "flow[0]: invoke is required",
		},
		{
			name: "unknown step",
			yaml: `
name: x
description: d
config: { n: 1, sounds: 1, positions: 1 }
flow: [{ invoke: pause }]
assertions: [{ type: trace_count, event: tick, count: 0 }]
`,
			wantErr: `unknown step "pause"`,
		},
		{
			name: "claim without channel",
			yaml: `
name: x
description: d
config: { n: 1, sounds: 1, positions: 1 }
flow: [{ invoke: claim }]
assertions: [{ type: trace_count, event: claim, count: 1 }]
`,
			wantErr: "unknown channel",
		},
		{
			name: "channel on tick",
			yaml: `
name: x
description: d
config: { n: 1, sounds: 1, positions: 1 }
flow: [{ invoke: tick, channel: sound }]
assertions: [{ type: trace_count, event: tick, count: 1 }]
`,
			wantErr: "channel is not allowed on tick",
		},
		{
			name: "result on tick",
			yaml: `
name: x
description: d
config: { n: 1, sounds: 1, positions: 1 }
flow: [{ invoke: tick, expect: { result: hit } }]
assertions: [{ type: trace_count, event: tick, count: 1 }]
`,
			wantErr: "result is only allowed on claim",
		},
		{
			name: "stimulus on claim",
			yaml: `
name: x
description: d
config: { n: 1, sounds: 1, positions: 1 }
flow: [{ invoke: claim, channel: sound, expect: { sound: 0 } }]
assertions: [{ type: trace_count, event: claim, count: 1 }]
`,
			wantErr: "stimulus fields are only allowed on tick",
		},
		{
			name: "bad claim result",
			yaml: `
name: x
description: d
config: { n: 1, sounds: 1, positions: 1 }
flow: [{ invoke: claim, channel: sound, expect: { result: miss } }]
assertions: [{ type: trace_count, event: claim, count: 1 }]
`,
			wantErr: "unknown claim result",
		},
		{
			name: "unknown assertion type",
			yaml: `
name: x
description: d
config: { n: 1, sounds: 1, positions: 1 }
flow: [{ invoke: tick }]
assertions: [{ type: trace_order }]
`,
			wantErr: `unknown assertion type "trace_order"`,
		},
		{
			name: "stats unknown field",
			yaml: `
name: x
description: d
config: { n: 1, sounds: 1, positions: 1 }
flow: [{ invoke: tick }]
assertions: [{ type: stats, channel: sound, expect: { score: 1 } }]
`,
			wantErr: `unknown stats field "score"`,
		},
		{
			name: "final_state unknown table",
			yaml: `
name: x
description: d
config: { n: 1, sounds: 1, positions: 1 }
flow: [{ invoke: tick }]
assertions: [{ type: final_state, table: sqlite_master, expect: { name: x } }]
`,
			wantErr: "table must be sessions, ticks or claims",
		},
		{
			name: "trace_count without event",
			yaml: `
name: x
description: d
config: { n: 1, sounds: 1, positions: 1 }
flow: [{ invoke: tick }]
assertions: [{ type: trace_count, count: 1 }]
`,
			wantErr: "event must be tick or claim",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenarios_SortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "b.yaml", validScenarioYAML)
	writeScenario(t, dir, "a.yml", validScenarioYAML)
	writeScenario(t, dir, "notes.txt", "not a scenario")

	scenarios, err := LoadScenarios(dir)
	require.NoError(t, err)
	assert.Len(t, scenarios, 2)
}

func TestLoadScenarios_ReportsPath(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "broken.yaml", "name: [")

	_, err := LoadScenarios(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestLoadScenarios_Testdata(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.Len(t, scenarios, 3)

	names := make([]string, len(scenarios))
	for i, s := range scenarios {
		names[i] = s.Name
	}
	assert.Equal(t, []string{"dual_match_n2", "early_claims", "missed_matches"}, names)
}
